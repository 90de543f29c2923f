package local

import (
	"context"

	"github.com/xenking/streetmagic-pos/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository on the state document.
type OrderRepository struct {
	s *Store
}

// NewOrderRepository returns an OrderRepository backed by s.
func NewOrderRepository(s *Store) *OrderRepository {
	return &OrderRepository{s: s}
}

func (r *OrderRepository) ListOrders(_ context.Context) ([]order.Order, error) {
	var out []order.Order
	err := r.s.view(func(st *state) error {
		out = st.Orders
		return nil
	})
	return out, err
}

func (r *OrderRepository) GetOrder(_ context.Context, id string) (*order.Order, error) {
	var out *order.Order
	err := r.s.view(func(st *state) error {
		i := indexOrder(st.Orders, id)
		if i < 0 {
			return order.ErrNotFound
		}
		out = &st.Orders[i]
		return nil
	})
	return out, err
}

func (r *OrderRepository) UpdateOrder(_ context.Context, o *order.Order) error {
	return r.s.update(func(st *state) error {
		i := indexOrder(st.Orders, o.ID)
		if i < 0 {
			return order.ErrNotFound
		}
		st.Orders[i] = *o.Clone()
		return nil
	})
}

func (r *OrderRepository) DeleteOrder(_ context.Context, id string) error {
	return r.s.update(func(st *state) error {
		i := indexOrder(st.Orders, id)
		if i < 0 {
			return order.ErrNotFound
		}
		st.Orders = append(st.Orders[:i], st.Orders[i+1:]...)
		return nil
	})
}

// AppendNumbered stamps the number on o only once the write has succeeded.
func (r *OrderRepository) AppendNumbered(_ context.Context, o *order.Order) error {
	var n int
	err := r.s.update(func(st *state) error {
		n = st.nextNumber(r.s.baseline)
		rec := o.Clone()
		rec.SetNumber(n)
		st.Orders = append(st.Orders, *rec)
		return nil
	})
	if err != nil {
		return err
	}
	o.SetNumber(n)
	return nil
}

func (r *OrderRepository) ReplaceOrders(_ context.Context, orders []order.Order) error {
	return r.s.update(func(st *state) error {
		st.Orders = orders
		if st.Orders == nil {
			st.Orders = []order.Order{}
		}
		for i := range st.Orders {
			st.BillCounter = max(st.BillCounter, st.Orders[i].Number())
		}
		return nil
	})
}

func (r *OrderRepository) ResetOrders(_ context.Context) error {
	return r.s.update(func(st *state) error {
		st.Orders = []order.Order{}
		st.BillCounter = r.s.baseline
		return nil
	})
}

func indexOrder(orders []order.Order, id string) int {
	for i := range orders {
		if orders[i].ID == id {
			return i
		}
	}
	return -1
}
