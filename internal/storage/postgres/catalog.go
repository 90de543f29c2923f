package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/streetmagic-pos/internal/domain/customer"
	"github.com/xenking/streetmagic-pos/internal/domain/menu"
	"github.com/xenking/streetmagic-pos/internal/domain/report"
)

const (
	listMenuSQL = `SELECT name, price, category, subcategory, variants, stock
	FROM menu_items ORDER BY position`
	clearMenuSQL  = `DELETE FROM menu_items`
	insertMenuSQL = `INSERT INTO menu_items (position, name, price, category, subcategory, variants, stock)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	countMenuSQL = `SELECT count(*) FROM menu_items`

	customerColumns  = `phone, name, points, history`
	getCustomerSQL   = `SELECT ` + customerColumns + ` FROM customers WHERE phone = $1`
	listCustomersSQL = `SELECT ` + customerColumns + ` FROM customers ORDER BY phone`

	getExpensesSQL = `SELECT salary_per_day, rent_per_month, power_per_month, other_per_month
	FROM expenses WHERE id = 1`
	saveExpensesSQL = `INSERT INTO expenses (id, salary_per_day, rent_per_month, power_per_month, other_per_month)
	VALUES (1, $1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET
		salary_per_day = EXCLUDED.salary_per_day,
		rent_per_month = EXCLUDED.rent_per_month,
		power_per_month = EXCLUDED.power_per_month,
		other_per_month = EXCLUDED.other_per_month`

	listPurchasesSQL = `SELECT date, item, qty, price FROM purchases ORDER BY seq`
	addPurchaseSQL   = `INSERT INTO purchases (date, item, qty, price) VALUES ($1, $2, $3, $4)`
)

var (
	_ menu.Repository     = (*MenuRepository)(nil)
	_ customer.Repository = (*CustomerRepository)(nil)
	_ report.Repository   = (*BooksRepository)(nil)
)

// MenuRepository implements menu.Repository backed by PostgreSQL. Rows keep
// their menu position.
type MenuRepository struct {
	pool *pgxpool.Pool
}

// NewMenuRepository returns a MenuRepository that uses the given pool.
func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

func (r *MenuRepository) ListMenu(ctx context.Context) ([]menu.Item, error) {
	rows, err := r.pool.Query(ctx, listMenuSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list menu")
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (menu.Item, error) {
		var (
			it       menu.Item
			variants []byte
		)
		if err := row.Scan(&it.Name, &it.Price, &it.Category, &it.Subcategory, &variants, &it.Stock); err != nil {
			return it, err
		}
		if err := json.Unmarshal(variants, &it.Variants); err != nil {
			return it, errors.Wrapf(err, "unmarshal variants of %q", it.Name)
		}
		return it, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan menu")
	}
	return items, nil
}

func (r *MenuRepository) ReplaceMenu(ctx context.Context, items []menu.Item) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, clearMenuSQL); err != nil {
			return errors.Wrap(err, "clear menu")
		}
		batch := &pgx.Batch{}
		for i, it := range items {
			variants := it.Variants
			if variants == nil {
				variants = []menu.Variant{}
			}
			doc, err := json.Marshal(variants)
			if err != nil {
				return errors.Wrapf(err, "marshal variants of %q", it.Name)
			}
			batch.Queue(insertMenuSQL, i, it.Name, it.Price, it.Category, it.Subcategory, doc, it.Stock)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "insert menu")
		}
		return nil
	})
}

// SeedMenu stores items only when the menu is empty. It reports whether the
// menu was written.
func (r *MenuRepository) SeedMenu(ctx context.Context, items []menu.Item) (bool, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countMenuSQL).Scan(&n); err != nil {
		return false, errors.Wrap(err, "count menu")
	}
	if n > 0 {
		return false, nil
	}
	return true, r.ReplaceMenu(ctx, items)
}

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

func scanCustomer(row pgx.Row) (customer.Customer, error) {
	var (
		c       customer.Customer
		history []byte
	)
	if err := row.Scan(&c.Phone, &c.Name, &c.Points, &history); err != nil {
		return c, err
	}
	if err := json.Unmarshal(history, &c.History); err != nil {
		return c, errors.Wrapf(err, "unmarshal history of %s", c.Phone)
	}
	return c, nil
}

func (r *CustomerRepository) GetCustomer(ctx context.Context, phone string) (*customer.Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx, getCustomerSQL, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get customer %s", phone)
	}
	return &c, nil
}

func (r *CustomerRepository) ListCustomers(ctx context.Context) ([]customer.Customer, error) {
	rows, err := r.pool.Query(ctx, listCustomersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list customers")
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (customer.Customer, error) {
		return scanCustomer(row)
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan customers")
	}
	return out, nil
}

// BooksRepository implements report.Repository backed by PostgreSQL.
type BooksRepository struct {
	pool *pgxpool.Pool
}

// NewBooksRepository returns a BooksRepository that uses the given pool.
func NewBooksRepository(pool *pgxpool.Pool) *BooksRepository {
	return &BooksRepository{pool: pool}
}

func (r *BooksRepository) GetExpenses(ctx context.Context) (*report.Expenses, error) {
	var e report.Expenses
	err := r.pool.QueryRow(ctx, getExpensesSQL).Scan(
		&e.SalaryPerDay, &e.RentPerMonth, &e.PowerPerMonth, &e.OtherPerMonth,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get expenses")
	}
	return &e, nil
}

func (r *BooksRepository) SaveExpenses(ctx context.Context, e report.Expenses) error {
	_, err := r.pool.Exec(ctx, saveExpensesSQL, e.SalaryPerDay, e.RentPerMonth, e.PowerPerMonth, e.OtherPerMonth)
	if err != nil {
		return errors.Wrap(err, "save expenses")
	}
	return nil
}

func (r *BooksRepository) ListPurchases(ctx context.Context) ([]report.Purchase, error) {
	rows, err := r.pool.Query(ctx, listPurchasesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list purchases")
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.Purchase, error) {
		var p report.Purchase
		err := row.Scan(&p.Date, &p.Item, &p.Qty, &p.Price)
		return p, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan purchases")
	}
	return out, nil
}

func (r *BooksRepository) AddPurchase(ctx context.Context, p report.Purchase) error {
	if _, err := r.pool.Exec(ctx, addPurchaseSQL, p.Date.UTC(), p.Item, p.Qty, p.Price); err != nil {
		return errors.Wrapf(err, "add purchase %q", p.Item)
	}
	return nil
}
