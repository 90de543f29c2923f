package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/streetmagic-pos/internal/domain/cart"
	"github.com/xenking/streetmagic-pos/internal/domain/customer"
	"github.com/xenking/streetmagic-pos/internal/domain/pos"
	"github.com/xenking/streetmagic-pos/internal/domain/table"
)

const (
	listLiveTablesSQL = `SELECT table_id, items FROM live_tables`
	upsertLiveSQL     = `INSERT INTO live_tables (table_id, items) VALUES ($1, $2)
	ON CONFLICT (table_id) DO UPDATE SET items = EXCLUDED.items`
	deleteLiveSQL = `DELETE FROM live_tables WHERE table_id = $1`

	listTableBillsSQL = `SELECT table_id, total FROM table_bills`
	upsertTableBillSQL = `INSERT INTO table_bills (table_id, total) VALUES ($1, $2)
	ON CONFLICT (table_id) DO UPDATE SET total = EXCLUDED.total`
	deleteTableBillSQL = `DELETE FROM table_bills WHERE table_id = $1`

	getParkedSQL    = `SELECT items FROM parked_bill WHERE id = 1`
	upsertParkedSQL = `INSERT INTO parked_bill (id, items) VALUES (1, $1)
	ON CONFLICT (id) DO UPDATE SET items = EXCLUDED.items`
	deleteParkedSQL = `DELETE FROM parked_bill`

	accrueCustomerSQL = `INSERT INTO customers (phone, name, points, history)
	VALUES ($1, $2, $3, jsonb_build_array($4::jsonb))
	ON CONFLICT (phone) DO UPDATE SET
		name = COALESCE(NULLIF(EXCLUDED.name, ''), customers.name),
		points = customers.points + EXCLUDED.points,
		history = customers.history || EXCLUDED.history`
)

var _ pos.Repository = (*RegisterRepository)(nil)

// RegisterRepository implements pos.Repository backed by PostgreSQL.
type RegisterRepository struct {
	pool     *pgxpool.Pool
	baseline int
}

// NewRegisterRepository returns a RegisterRepository that uses the given
// pool. baseline seeds the sequence when no bill has been numbered yet.
func NewRegisterRepository(pool *pgxpool.Pool, baseline int) *RegisterRepository {
	if baseline <= 0 {
		baseline = DefaultBaseline
	}
	return &RegisterRepository{pool: pool, baseline: baseline}
}

func (r *RegisterRepository) LoadRegister(ctx context.Context) (*pos.Register, error) {
	reg := &pos.Register{
		LiveTables: make(map[table.ID]cart.Cart),
		TableBills: make(map[table.ID]pos.TableBill),
	}

	rows, err := r.pool.Query(ctx, listLiveTablesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list live tables")
	}
	var (
		id    string
		items []byte
	)
	_, err = pgx.ForEachRow(rows, []any{&id, &items}, func() error {
		var c cart.Cart
		if err := json.Unmarshal(items, &c); err != nil {
			return errors.Wrapf(err, "unmarshal cart of %s", id)
		}
		reg.LiveTables[table.ID(id)] = c
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan live tables")
	}

	rows, err = r.pool.Query(ctx, listTableBillsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list table bills")
	}
	var total decimal.Decimal
	_, err = pgx.ForEachRow(rows, []any{&id, &total}, func() error {
		reg.TableBills[table.ID(id)] = pos.TableBill{Total: total}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan table bills")
	}

	err = r.pool.QueryRow(ctx, getParkedSQL).Scan(&items)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, errors.Wrap(err, "get parked bill")
	default:
		if err := json.Unmarshal(items, &reg.Parked); err != nil {
			return nil, errors.Wrap(err, "unmarshal parked bill")
		}
	}

	return reg, nil
}

// setLive stores c for a dine-in table or frees it when c is empty.
func setLive(ctx context.Context, q querier, id table.ID, c cart.Cart) error {
	if id.IsTakeaway() {
		return nil
	}
	if len(c) == 0 {
		if _, err := q.Exec(ctx, deleteLiveSQL, string(id)); err != nil {
			return errors.Wrapf(err, "free %s", id)
		}
		return nil
	}
	items, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal cart")
	}
	if _, err := q.Exec(ctx, upsertLiveSQL, string(id), items); err != nil {
		return errors.Wrapf(err, "save %s", id)
	}
	return nil
}

func (r *RegisterRepository) SaveLiveTable(ctx context.Context, id table.ID, c cart.Cart) error {
	return setLive(ctx, r.pool, id, c)
}

func (r *RegisterRepository) ClearTableBill(ctx context.Context, id table.ID) error {
	if _, err := r.pool.Exec(ctx, deleteTableBillSQL, string(id)); err != nil {
		return errors.Wrapf(err, "clear bill of %s", id)
	}
	return nil
}

// Commit stamps the allocated number on c.Order only once the transaction has
// committed.
func (r *RegisterRepository) Commit(ctx context.Context, c *pos.Commit) error {
	var n int
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if n, err = nextNumber(ctx, tx, r.baseline); err != nil {
			return err
		}
		rec := c.Order.Clone()
		rec.SetNumber(n)
		if err := insertOrder(ctx, tx, rec); err != nil {
			return err
		}
		if err := setLive(ctx, tx, c.Table, nil); err != nil {
			return err
		}
		if c.TableBill != nil && !c.Table.IsTakeaway() {
			if _, err := tx.Exec(ctx, upsertTableBillSQL, string(c.Table), c.TableBill.Total); err != nil {
				return errors.Wrapf(err, "save bill of %s", c.Table)
			}
		}
		if rec.Customer != nil && rec.Customer.Phone != "" {
			doc, err := json.Marshal(rec)
			if err != nil {
				return errors.Wrap(err, "marshal customer history")
			}
			_, err = tx.Exec(ctx, accrueCustomerSQL,
				rec.Customer.Phone, rec.Customer.Name, customer.PointsFor(rec.Total), doc,
			)
			if err != nil {
				return errors.Wrapf(err, "accrue customer %s", rec.Customer.Phone)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.Order.SetNumber(n)
	return nil
}

func (r *RegisterRepository) Transfer(ctx context.Context, from, to table.ID, merged cart.Cart) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := setLive(ctx, tx, from, nil); err != nil {
			return err
		}
		return setLive(ctx, tx, to, merged)
	})
}

func (r *RegisterRepository) Park(ctx context.Context, from table.ID, c cart.Cart) error {
	items, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal parked bill")
	}
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertParkedSQL, items); err != nil {
			return errors.Wrap(err, "park bill")
		}
		return setLive(ctx, tx, from, nil)
	})
}

func (r *RegisterRepository) Resume(ctx context.Context, into table.ID, c cart.Cart) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteParkedSQL); err != nil {
			return errors.Wrap(err, "clear parked bill")
		}
		return setLive(ctx, tx, into, c)
	})
}
