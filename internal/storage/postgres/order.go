package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/streetmagic-pos/internal/domain/order"
	"github.com/xenking/streetmagic-pos/internal/domain/table"
)

const (
	orderColumns = `id, bill_no, kot_no, kot, type, date, table_id, items,
	subtotal, discount, total, cash_paid, online_paid, customer`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY seq`
	getOrderSQL   = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	updateOrderSQL = `UPDATE orders SET bill_no = $2, kot_no = $3, kot = $4, type = $5,
	date = $6, table_id = $7, items = $8, subtotal = $9, discount = $10, total = $11,
	cash_paid = $12, online_paid = $13, customer = $14
	WHERE id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
	clearOrdersSQL = `DELETE FROM orders`

	raiseNumberSQL = `INSERT INTO counters (name, value)
	SELECT 'bill', GREATEST($1, COALESCE(MAX(GREATEST(bill_no, kot_no)), 0)) FROM orders
	ON CONFLICT (name) DO UPDATE SET value = GREATEST(counters.value, EXCLUDED.value)`
)

var orderCopyColumns = []string{
	"id", "bill_no", "kot_no", "kot", "type", "date", "table_id", "items",
	"subtotal", "discount", "total", "cash_paid", "online_paid", "customer",
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool     *pgxpool.Pool
	baseline int
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
// baseline is the sequence value a reset rewinds to.
func NewOrderRepository(pool *pgxpool.Pool, baseline int) *OrderRepository {
	if baseline <= 0 {
		baseline = DefaultBaseline
	}
	return &OrderRepository{pool: pool, baseline: baseline}
}

// orderArgs flattens o into column order. Items and the customer are stored
// as JSONB.
func orderArgs(o *order.Order) ([]any, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, errors.Wrap(err, "marshal order items")
	}
	var contact []byte
	if o.Customer != nil {
		if contact, err = json.Marshal(o.Customer); err != nil {
			return nil, errors.Wrap(err, "marshal order customer")
		}
	}
	return []any{
		o.ID, o.BillNo, o.KOTNo, o.KOT, string(o.Type), o.Date.UTC(), string(o.Table), items,
		o.Subtotal, o.Discount, o.Total, o.CashPaid, o.OnlinePaid, contact,
	}, nil
}

func scanOrder(row pgx.Row) (order.Order, error) {
	var (
		o              order.Order
		kind, tableID  string
		items, contact []byte
	)
	err := row.Scan(
		&o.ID, &o.BillNo, &o.KOTNo, &o.KOT, &kind, &o.Date, &tableID, &items,
		&o.Subtotal, &o.Discount, &o.Total, &o.CashPaid, &o.OnlinePaid, &contact,
	)
	if err != nil {
		return o, err
	}
	o.Type = order.Kind(kind)
	o.Table = table.ID(tableID)
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, errors.Wrapf(err, "unmarshal items of order %q", o.ID)
	}
	if len(contact) > 0 {
		o.Customer = new(order.Contact)
		if err := json.Unmarshal(contact, o.Customer); err != nil {
			return o, errors.Wrapf(err, "unmarshal customer of order %q", o.ID)
		}
	}
	return o, nil
}

func insertOrder(ctx context.Context, q querier, o *order.Order) error {
	args, err := orderArgs(o)
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, insertOrderSQL, args...); err != nil {
		return errors.Wrapf(err, "insert order %q", o.ID)
	}
	return nil
}

// ListOrders returns the log in append order.
func (r *OrderRepository) ListOrders(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	return orders, nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, getOrderSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return &o, nil
}

func (r *OrderRepository) UpdateOrder(ctx context.Context, o *order.Order) error {
	args, err := orderArgs(o)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, updateOrderSQL, args...)
	if err != nil {
		return errors.Wrapf(err, "update order %q", o.ID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) DeleteOrder(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// AppendNumbered stamps the number on o only once the transaction has
// committed.
func (r *OrderRepository) AppendNumbered(ctx context.Context, o *order.Order) error {
	var n int
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if n, err = nextNumber(ctx, tx, r.baseline); err != nil {
			return err
		}
		rec := o.Clone()
		rec.SetNumber(n)
		return insertOrder(ctx, tx, rec)
	})
	if err != nil {
		return err
	}
	o.SetNumber(n)
	return nil
}

// ReplaceOrders swaps the log using COPY and lifts the counter past the
// restored numbers.
func (r *OrderRepository) ReplaceOrders(ctx context.Context, orders []order.Order) error {
	rows := make([][]any, 0, len(orders))
	for i := range orders {
		args, err := orderArgs(&orders[i])
		if err != nil {
			return err
		}
		rows = append(rows, args)
	}
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, clearOrdersSQL); err != nil {
			return errors.Wrap(err, "clear orders")
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"orders"}, orderCopyColumns, pgx.CopyFromRows(rows)); err != nil {
			return errors.Wrap(err, "copy orders")
		}
		if _, err := tx.Exec(ctx, raiseNumberSQL, r.baseline); err != nil {
			return errors.Wrap(err, "raise bill counter")
		}
		return nil
	})
}

func (r *OrderRepository) ResetOrders(ctx context.Context) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, clearOrdersSQL); err != nil {
			return errors.Wrap(err, "clear orders")
		}
		if _, err := tx.Exec(ctx, resetNumberSQL, r.baseline); err != nil {
			return errors.Wrap(err, "reset bill counter")
		}
		return nil
	})
}
