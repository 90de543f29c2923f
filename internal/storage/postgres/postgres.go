// Package postgres stores POS state in PostgreSQL. Each aggregate has its own
// repository; multi-row writes run in a single transaction.
package postgres

import (
	"context"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/streetmagic-pos/db"
)

// DefaultBaseline is the sequence value before the first bill.
const DefaultBaseline = 3940

const (
	nextNumberSQL = `INSERT INTO counters (name, value) VALUES ('bill', $1 + 1)
	ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
	RETURNING value`
	resetNumberSQL = `INSERT INTO counters (name, value) VALUES ('bill', $1)
	ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`
)

// querier is the subset of pgxpool.Pool and pgx.Tx the repositories use.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

var (
	_ querier = (*pgxpool.Pool)(nil)
	_ querier = (pgx.Tx)(nil)
)

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create connection pool")
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	return nil
}

// nextNumber advances the shared bill/KOT sequence. A missing counter row
// starts from baseline.
func nextNumber(ctx context.Context, q querier, baseline int) (int, error) {
	var n int
	if err := q.QueryRow(ctx, nextNumberSQL, baseline).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "advance bill counter")
	}
	return n, nil
}

func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, pool, fn)
}
