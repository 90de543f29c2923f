// Command seed-menu loads a menu into the POS storage.
//
// Without -menu-file the built-in starter menu is used. An existing menu is
// left alone unless -replace is given.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/streetmagic-pos/internal/domain/menu"
	"github.com/xenking/streetmagic-pos/internal/storage"
)

func main() {
	var (
		cfg      storage.Config
		menuFile string
		replace  bool
	)

	flag.StringVar(&cfg.Driver, "driver", storage.DriverFile, "storage driver: file or postgres")
	flag.StringVar(&cfg.Path, "state", "pos-state.json", "state file for the file driver")
	flag.StringVar(&cfg.DatabaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&menuFile, "menu-file", "", "JSON array of menu items; empty uses the starter menu")
	flag.BoolVar(&replace, "replace", false, "overwrite a menu that already has items")
	flag.Parse()

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.Driver == storage.DriverPostgres && cfg.DatabaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, cfg, menuFile, replace); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg storage.Config, menuFile string, replace bool) error {
	items := menu.Defaults()
	if menuFile != "" {
		var err error
		if items, err = readMenu(menuFile); err != nil {
			return err
		}
	}

	slog.Info("opening storage", slog.String("driver", cfg.Driver))
	b, err := storage.Open(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer b.Close()

	current, err := b.Menu.ListMenu(ctx)
	if err != nil {
		return errors.Wrap(err, "list menu")
	}
	if len(current) > 0 && !replace {
		slog.Info("menu already present, use -replace to overwrite", slog.Int("items", len(current)))
		return nil
	}

	if err := b.Menu.ReplaceMenu(ctx, items); err != nil {
		return errors.Wrap(err, "write menu")
	}
	slog.Info("menu written",
		slog.Int("items", len(items)),
		slog.Int("categories", len(menu.Categorize(items))),
	)
	return nil
}

// readMenu decodes and validates a JSON array of menu drafts.
func readMenu(path string) ([]menu.Item, error) {
	slog.Info("reading menu file", slog.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read menu file")
	}
	var drafts []menu.Draft
	if err := json.Unmarshal(data, &drafts); err != nil {
		return nil, errors.Wrap(err, "parse menu JSON")
	}

	items := make([]menu.Item, 0, len(drafts))
	for i, d := range drafts {
		it, err := d.Item()
		if err != nil {
			return nil, errors.Wrapf(err, "menu item %d (%q)", i, d.Name)
		}
		items = append(items, it)
	}
	return items, nil
}
