package local

import (
	"context"
	"sort"

	"github.com/xenking/streetmagic-pos/internal/domain/customer"
	"github.com/xenking/streetmagic-pos/internal/domain/menu"
	"github.com/xenking/streetmagic-pos/internal/domain/report"
)

var (
	_ menu.Repository     = (*MenuRepository)(nil)
	_ customer.Repository = (*CustomerRepository)(nil)
	_ report.Repository   = (*BooksRepository)(nil)
)

// MenuRepository implements menu.Repository on the state document.
type MenuRepository struct {
	s *Store
}

// NewMenuRepository returns a MenuRepository backed by s.
func NewMenuRepository(s *Store) *MenuRepository {
	return &MenuRepository{s: s}
}

func (r *MenuRepository) ListMenu(_ context.Context) ([]menu.Item, error) {
	var out []menu.Item
	err := r.s.view(func(st *state) error {
		out = st.MenuItems
		return nil
	})
	return out, err
}

func (r *MenuRepository) ReplaceMenu(_ context.Context, items []menu.Item) error {
	return r.s.update(func(st *state) error {
		st.MenuItems = items
		if st.MenuItems == nil {
			st.MenuItems = []menu.Item{}
		}
		return nil
	})
}

// CustomerRepository implements customer.Repository on the state document.
type CustomerRepository struct {
	s *Store
}

// NewCustomerRepository returns a CustomerRepository backed by s.
func NewCustomerRepository(s *Store) *CustomerRepository {
	return &CustomerRepository{s: s}
}

func (r *CustomerRepository) GetCustomer(_ context.Context, phone string) (*customer.Customer, error) {
	var out *customer.Customer
	err := r.s.view(func(st *state) error {
		c, ok := st.Customers[phone]
		if !ok || c == nil {
			return customer.ErrNotFound
		}
		c.Phone = phone
		out = c
		return nil
	})
	return out, err
}

func (r *CustomerRepository) ListCustomers(_ context.Context) ([]customer.Customer, error) {
	var out []customer.Customer
	err := r.s.view(func(st *state) error {
		out = make([]customer.Customer, 0, len(st.Customers))
		for phone, c := range st.Customers {
			if c == nil {
				continue
			}
			c.Phone = phone
			out = append(out, *c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Phone < out[j].Phone })
	return out, err
}

// BooksRepository implements report.Repository on the state document.
type BooksRepository struct {
	s *Store
}

// NewBooksRepository returns a BooksRepository backed by s.
func NewBooksRepository(s *Store) *BooksRepository {
	return &BooksRepository{s: s}
}

func (r *BooksRepository) GetExpenses(_ context.Context) (*report.Expenses, error) {
	var out *report.Expenses
	err := r.s.view(func(st *state) error {
		out = st.Expenses
		return nil
	})
	return out, err
}

func (r *BooksRepository) SaveExpenses(_ context.Context, e report.Expenses) error {
	return r.s.update(func(st *state) error {
		st.Expenses = &e
		return nil
	})
}

func (r *BooksRepository) ListPurchases(_ context.Context) ([]report.Purchase, error) {
	var out []report.Purchase
	err := r.s.view(func(st *state) error {
		out = st.Purchases
		return nil
	})
	return out, err
}

func (r *BooksRepository) AddPurchase(_ context.Context, p report.Purchase) error {
	return r.s.update(func(st *state) error {
		st.Purchases = append(st.Purchases, p)
		return nil
	})
}
