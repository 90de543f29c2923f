// Package storage opens one of the persistence backends behind the domain
// repository interfaces.
package storage

import (
	"context"
	"os"

	"github.com/go-faster/errors"

	"github.com/xenking/streetmagic-pos/internal/domain/customer"
	"github.com/xenking/streetmagic-pos/internal/domain/menu"
	"github.com/xenking/streetmagic-pos/internal/domain/order"
	"github.com/xenking/streetmagic-pos/internal/domain/pos"
	"github.com/xenking/streetmagic-pos/internal/domain/report"
	"github.com/xenking/streetmagic-pos/internal/storage/local"
	"github.com/xenking/streetmagic-pos/internal/storage/postgres"
)

// Drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Config selects and configures a backend.
type Config struct {
	Driver string
	// Path is the state file of the file driver. Empty keeps state in memory.
	Path        string
	DatabaseURL string
	// Baseline is the sequence value before the first bill or KOT.
	Baseline int
	// Menu seeds a new state file or an empty menu table.
	Menu []menu.Item
}

// Backend is an open store seen through the domain interfaces.
type Backend struct {
	Name      string
	Register  pos.Repository
	Orders    order.Repository
	Menu      menu.Repository
	Customers customer.Repository
	Books     report.Repository
	// SeededMenu reports whether Open wrote Config.Menu.
	SeededMenu bool

	ping  func(ctx context.Context) error
	close func()
}

// Ping checks that the backend is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

// Close releases connections held by the backend.
func (b *Backend) Close() {
	b.close()
}

// Open opens the backend named by cfg.Driver. The postgres driver applies
// the schema before returning.
func Open(ctx context.Context, cfg Config) (*Backend, error) {
	switch cfg.Driver {
	case DriverFile, "":
		return openFile(cfg)
	case DriverPostgres:
		return openPostgres(ctx, cfg)
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openFile(cfg Config) (*Backend, error) {
	fresh := cfg.Path == ""
	if !fresh {
		_, err := os.Stat(cfg.Path)
		fresh = os.IsNotExist(err)
	}
	s, err := local.Open(cfg.Path, local.Options{
		Baseline: cfg.Baseline,
		Menu:     cfg.Menu,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open state file")
	}
	return &Backend{
		Name:      "state-file",
		Register:  local.NewRegisterRepository(s),
		Orders:    local.NewOrderRepository(s),
		Menu:      local.NewMenuRepository(s),
		Customers: local.NewCustomerRepository(s),
		Books:     local.NewBooksRepository(s),

		SeededMenu: fresh && len(cfg.Menu) > 0,

		ping:  s.Ping,
		close: func() {},
	}, nil
}

func openPostgres(ctx context.Context, cfg Config) (*Backend, error) {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	menuRepo := postgres.NewMenuRepository(pool)
	b := &Backend{
		Name:      "postgres",
		Register:  postgres.NewRegisterRepository(pool, cfg.Baseline),
		Orders:    postgres.NewOrderRepository(pool, cfg.Baseline),
		Menu:      menuRepo,
		Customers: postgres.NewCustomerRepository(pool),
		Books:     postgres.NewBooksRepository(pool),
		ping:      pool.Ping,
		close:     pool.Close,
	}
	if len(cfg.Menu) > 0 {
		if b.SeededMenu, err = menuRepo.SeedMenu(ctx, cfg.Menu); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "seed menu")
		}
	}
	return b, nil
}
