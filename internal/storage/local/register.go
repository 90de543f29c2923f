package local

import (
	"context"

	"github.com/xenking/streetmagic-pos/internal/domain/cart"
	"github.com/xenking/streetmagic-pos/internal/domain/customer"
	"github.com/xenking/streetmagic-pos/internal/domain/pos"
	"github.com/xenking/streetmagic-pos/internal/domain/table"
)

var _ pos.Repository = (*RegisterRepository)(nil)

// RegisterRepository implements pos.Repository on the state document. Each
// method is a single update, so finalize commits are all-or-nothing.
type RegisterRepository struct {
	s *Store
}

// NewRegisterRepository returns a RegisterRepository backed by s.
func NewRegisterRepository(s *Store) *RegisterRepository {
	return &RegisterRepository{s: s}
}

func (r *RegisterRepository) LoadRegister(_ context.Context) (*pos.Register, error) {
	var out *pos.Register
	err := r.s.view(func(st *state) error {
		out = &pos.Register{
			LiveTables: st.LiveTables,
			TableBills: st.TableBills,
			Parked:     st.ParkedBill,
		}
		return nil
	})
	return out, err
}

func setLive(st *state, id table.ID, c cart.Cart) {
	if id.IsTakeaway() {
		return
	}
	if len(c) == 0 {
		delete(st.LiveTables, id)
		return
	}
	st.LiveTables[id] = c.Clone()
}

func (r *RegisterRepository) SaveLiveTable(_ context.Context, id table.ID, c cart.Cart) error {
	return r.s.update(func(st *state) error {
		setLive(st, id, c)
		return nil
	})
}

func (r *RegisterRepository) ClearTableBill(_ context.Context, id table.ID) error {
	return r.s.update(func(st *state) error {
		delete(st.TableBills, id)
		return nil
	})
}

// Commit stamps the allocated number on c.Order only once the write has
// succeeded.
func (r *RegisterRepository) Commit(_ context.Context, c *pos.Commit) error {
	var n int
	err := r.s.update(func(st *state) error {
		n = st.nextNumber(r.s.baseline)
		rec := c.Order.Clone()
		rec.SetNumber(n)
		st.Orders = append(st.Orders, *rec)

		setLive(st, c.Table, nil)
		if c.TableBill != nil && !c.Table.IsTakeaway() {
			st.TableBills[c.Table] = *c.TableBill
		}
		if rec.Customer != nil && rec.Customer.Phone != "" {
			phone := rec.Customer.Phone
			st.Customers[phone] = customer.Record(st.Customers[phone], phone, rec)
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.Order.SetNumber(n)
	return nil
}

func (r *RegisterRepository) Transfer(_ context.Context, from, to table.ID, merged cart.Cart) error {
	return r.s.update(func(st *state) error {
		setLive(st, from, nil)
		setLive(st, to, merged)
		return nil
	})
}

func (r *RegisterRepository) Park(_ context.Context, from table.ID, c cart.Cart) error {
	return r.s.update(func(st *state) error {
		st.ParkedBill = c.Clone()
		setLive(st, from, nil)
		return nil
	})
}

func (r *RegisterRepository) Resume(_ context.Context, into table.ID, c cart.Cart) error {
	return r.s.update(func(st *state) error {
		st.ParkedBill = nil
		setLive(st, into, c)
		return nil
	})
}
