// Command pos-backup exports and restores POS data as gzip-compressed JSON.
//
//	pos-backup export -out backups/2026-10-19
//	pos-backup import -orders backups/2026-10-19/orders.json.gz
//
// Exports write orders.json.gz, menu.json.gz and customers.json.gz in
// parallel. The orders file has the same format as GET /api/orders/backup,
// so plain JSON downloads are accepted by import as well.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/streetmagic-pos/internal/storage"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s export|import [flags]\n", os.Args[0])
	os.Exit(2)
}

func storageFlags(fs *flag.FlagSet) *storage.Config {
	cfg := new(storage.Config)
	fs.StringVar(&cfg.Driver, "driver", storage.DriverFile, "storage driver: file or postgres")
	fs.StringVar(&cfg.Path, "state", "pos-state.json", "state file for the file driver")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	return cfg
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "export":
		fs := flag.NewFlagSet("export", flag.ExitOnError)
		cfg := storageFlags(fs)
		out := fs.String("out", "backup-"+time.Now().Format("2006-01-02"), "output directory")
		_ = fs.Parse(args)
		err = withStorage(ctx, cfg, func(b *storage.Backend) error {
			return export(ctx, b, *out)
		})
	case "import":
		fs := flag.NewFlagSet("import", flag.ExitOnError)
		cfg := storageFlags(fs)
		orders := fs.String("orders", "", "orders backup (.json or .json.gz)")
		menuFile := fs.String("menu", "", "menu backup (.json or .json.gz)")
		_ = fs.Parse(args)
		if *orders == "" && *menuFile == "" {
			slog.Error("nothing to import: set -orders and/or -menu")
			os.Exit(2)
		}
		err = withStorage(ctx, cfg, func(b *storage.Backend) error {
			return restore(ctx, b, *orders, *menuFile)
		})
	default:
		usage()
	}
	if err != nil {
		slog.Error("backup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func withStorage(ctx context.Context, cfg *storage.Config, fn func(b *storage.Backend) error) error {
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.Driver == storage.DriverPostgres && cfg.DatabaseURL == "" {
		return errors.New("database URL is required: set --database-url or DATABASE_URL")
	}
	slog.Info("opening storage", slog.String("driver", cfg.Driver))
	b, err := storage.Open(ctx, *cfg)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer b.Close()
	return fn(b)
}
