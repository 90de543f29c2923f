package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/streetmagic-pos/internal/domain/menu"
	"github.com/xenking/streetmagic-pos/internal/domain/order"
	"github.com/xenking/streetmagic-pos/internal/storage"
)

var gzipMagic = []byte{0x1f, 0x8b}

// export writes one compressed file per data set concurrently.
func export(ctx context.Context, b *storage.Backend, dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.Wrap(err, "create output dir")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := order.NewHistory(b.Orders, nil).Backup(ctx)
		if err != nil {
			return err
		}
		return writeGzip(filepath.Join(dir, "orders.json.gz"), data)
	})
	g.Go(func() error {
		items, err := b.Menu.ListMenu(ctx)
		if err != nil {
			return errors.Wrap(err, "list menu")
		}
		return writeJSONGzip(filepath.Join(dir, "menu.json.gz"), items)
	})
	g.Go(func() error {
		cs, err := b.Customers.ListCustomers(ctx)
		if err != nil {
			return errors.Wrap(err, "list customers")
		}
		return writeJSONGzip(filepath.Join(dir, "customers.json.gz"), cs)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("export completed", slog.String("dir", dir))
	return nil
}

// restore replaces the order log and, when given, the menu.
func restore(ctx context.Context, b *storage.Backend, ordersPath, menuPath string) error {
	if ordersPath != "" {
		data, err := readMaybeGzip(ordersPath)
		if err != nil {
			return err
		}
		n, err := order.NewHistory(b.Orders, nil).Restore(ctx, data)
		if err != nil {
			return errors.Wrapf(err, "restore %s", ordersPath)
		}
		slog.Info("orders restored", slog.Int("count", n))
	}
	if menuPath != "" {
		data, err := readMaybeGzip(menuPath)
		if err != nil {
			return err
		}
		var items []menu.Item
		if err := json.Unmarshal(data, &items); err != nil {
			return errors.Wrapf(err, "parse %s", menuPath)
		}
		if err := b.Menu.ReplaceMenu(ctx, items); err != nil {
			return errors.Wrap(err, "replace menu")
		}
		slog.Info("menu restored", slog.Int("items", len(items)))
	}
	return nil
}

func writeJSONGzip(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", filepath.Base(path))
	}
	return writeGzip(path, data)
}

func writeGzip(path string, data []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create file")
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "close file")
		}
	}()

	zw := pgzip.NewWriter(f)
	if _, err := zw.Write(data); err != nil {
		return errors.Wrapf(err, "compress %s", filepath.Base(path))
	}
	if err := zw.Close(); err != nil {
		return errors.Wrapf(err, "flush %s", filepath.Base(path))
	}
	slog.Info("wrote", slog.String("path", path), slog.Int("bytes", len(data)))
	return nil
}

// readMaybeGzip reads path, decompressing it when it starts with the gzip
// magic bytes.
func readMaybeGzip(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open backup")
	}
	defer func() { _ = f.Close() }()

	br := bufio.NewReader(f)
	head, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	if !bytes.Equal(head, gzipMagic) {
		data, err := io.ReadAll(br)
		return data, errors.Wrapf(err, "read %s", path)
	}

	zr, err := pgzip.NewReader(br)
	if err != nil {
		return nil, errors.Wrapf(err, "open gzip %s", path)
	}
	defer func() { _ = zr.Close() }()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrapf(err, "decompress %s", path)
	}
	return data, nil
}
