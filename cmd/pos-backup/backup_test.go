package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/streetmagic-pos/internal/domain/menu"
	"github.com/xenking/streetmagic-pos/internal/domain/order"
	"github.com/xenking/streetmagic-pos/internal/domain/table"
	"github.com/xenking/streetmagic-pos/internal/storage"
)

func openMemory(t *testing.T, items []menu.Item) *storage.Backend {
	t.Helper()
	b, err := storage.Open(context.Background(), storage.Config{Menu: items})
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

func TestExportRestore(t *testing.T) {
	ctx := context.Background()
	src := openMemory(t, menu.Defaults())

	o := &order.Order{
		ID:       "bill-1",
		Type:     order.KindBill,
		Date:     time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC),
		Table:    table.Takeaway,
		Subtotal: decimal.NewFromInt(120),
		Total:    decimal.NewFromInt(120),
		CashPaid: decimal.NewFromInt(120),
	}
	require.NoError(t, src.Orders.AppendNumbered(ctx, o))

	dir := filepath.Join(t.TempDir(), "backup")
	require.NoError(t, export(ctx, src, dir))
	for _, name := range []string{"orders.json.gz", "menu.json.gz", "customers.json.gz"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	dst := openMemory(t, nil)
	require.NoError(t, restore(ctx, dst,
		filepath.Join(dir, "orders.json.gz"),
		filepath.Join(dir, "menu.json.gz"),
	))

	orders, err := dst.Orders.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "bill-1", orders[0].ID)
	assert.Equal(t, o.BillNo, orders[0].BillNo)
	assert.True(t, orders[0].Total.Equal(decimal.NewFromInt(120)))

	items, err := dst.Menu.ListMenu(ctx)
	require.NoError(t, err)
	assert.Len(t, items, len(menu.Defaults()))
}

func TestReadMaybeGzip(t *testing.T) {
	dir := t.TempDir()
	payload := []byte(`[{"id":"a"}]`)

	plain := filepath.Join(dir, "orders.json")
	require.NoError(t, os.WriteFile(plain, payload, 0o600))
	got, err := readMaybeGzip(plain)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	packed := filepath.Join(dir, "orders.json.gz")
	require.NoError(t, writeGzip(packed, payload))
	got, err = readMaybeGzip(packed)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	got, err = readMaybeGzip(empty)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRestore_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	err := restore(context.Background(), openMemory(t, nil), path, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, order.ErrInvalidRestore)
}
