package pos

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/streetmagic-pos/internal/domain/cart"
	"github.com/xenking/streetmagic-pos/internal/domain/order"
	"github.com/xenking/streetmagic-pos/internal/domain/table"
)

// Options configures a CartStore.
type Options struct {
	Layout  table.Layout
	Logger  *zap.Logger
	Metrics *Metrics
	Now     func() time.Time
}

// CartStore owns the terminal: the active table, its cart and a cache of
// persisted table state. Every operation holds mu for its whole duration, so
// a repeated finalize runs strictly after the first one and sees its result.
//
// Takeaway carts live only in memory and are discarded when switching away.
type CartStore struct {
	mu sync.Mutex

	repo    Repository
	layout  table.Layout
	lg      *zap.Logger
	metrics *Metrics
	now     func() time.Time

	active table.ID
	cart   cart.Cart
	live   map[table.ID]cart.Cart
	bills  map[table.ID]TableBill
	parked cart.Cart

	subs    map[int]func(Snapshot)
	nextSub int
}

// NewCartStore loads persisted terminal state and starts on Takeaway with an
// empty cart.
func NewCartStore(ctx context.Context, repo Repository, opts Options) (*CartStore, error) {
	reg, err := repo.LoadRegister(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load register")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Layout == (table.Layout{}) {
		opts.Layout = table.NewLayout(table.DefaultTables)
	}

	s := &CartStore{
		repo:    repo,
		layout:  opts.Layout,
		lg:      opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
		active:  table.Takeaway,
		live:    make(map[table.ID]cart.Cart),
		bills:   make(map[table.ID]TableBill),
		parked:  reg.Parked,
		subs:    make(map[int]func(Snapshot)),
	}
	for id, c := range reg.LiveTables {
		if !id.IsTakeaway() && len(c) > 0 {
			s.live[id] = c
		}
	}
	for id, b := range reg.TableBills {
		s.bills[id] = b
	}
	return s, nil
}

// Subscribe registers fn to receive a snapshot after every state change and
// returns a function that removes it. fn is called with the store locked: it
// must not block or call back into the store.
func (s *CartStore) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *CartStore) notify() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshot()
	for _, fn := range s.subs {
		fn(snap)
	}
}

// Snapshot returns the current terminal state.
func (s *CartStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *CartStore) snapshot() Snapshot {
	items := s.cart.Clone()
	if items == nil {
		items = cart.Cart{}
	}
	return Snapshot{
		Table:    s.active,
		Items:    items,
		Subtotal: s.cart.Subtotal(),
		Quantity: s.cart.Quantity(),
		Parked:   len(s.parked) > 0,
		Tables:   s.tables(),
	}
}

// ActiveTable returns the selected table.
func (s *CartStore) ActiveTable() table.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Cart returns a copy of the active cart.
func (s *CartStore) Cart() cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// persist writes c as the active table's live cart. Takeaway is skipped.
func (s *CartStore) persist(ctx context.Context, c cart.Cart) error {
	if s.active.IsTakeaway() {
		return nil
	}
	if err := s.repo.SaveLiveTable(ctx, s.active, c); err != nil {
		return errors.Wrapf(err, "save live table %q", s.active)
	}
	return nil
}

func (s *CartStore) setLive(id table.ID, c cart.Cart) {
	if id.IsTakeaway() {
		return
	}
	if len(c) == 0 {
		delete(s.live, id)
		return
	}
	s.live[id] = c.Clone()
}

// SelectTable switches the active table. A non-empty dine-in cart is saved
// to its table first; the new table's saved cart, if any, becomes active.
func (s *CartStore) SelectTable(ctx context.Context, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.layout.Parse(raw)
	if err != nil {
		return err
	}

	if !s.active.IsTakeaway() && len(s.cart) > 0 {
		if err := s.persist(ctx, s.cart); err != nil {
			return err
		}
		s.setLive(s.active, s.cart)
	}

	s.active = id
	s.cart = s.live[id].Clone()
	s.notify()
	return nil
}

// AddItem adds one unit of item to the active cart.
func (s *CartStore) AddItem(ctx context.Context, item cart.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cart.Clone()
	if err := next.Add(item); err != nil {
		return err
	}
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.cart = next
	s.setLive(s.active, next)
	s.notify()
	return nil
}

// UpdateQty shifts the quantity of the line identified by key by delta. An
// unknown key is ignored.
func (s *CartStore) UpdateQty(ctx context.Context, key cart.Key, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cart.Clone()
	if !next.UpdateQty(key, delta) {
		return nil
	}
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.cart = next
	s.setLive(s.active, next)
	s.notify()
	return nil
}

// Totals computes subtotal and discounted total of the active cart.
func (s *CartStore) Totals(discount decimal.Decimal) cart.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Totals(discount)
}

func (s *CartStore) newOrder(kind order.Kind) *order.Order {
	return &order.Order{
		ID:    uuid.NewString(),
		Type:  kind,
		KOT:   kind == order.KindKOT,
		Date:  s.now().UTC(),
		Table: s.active,
		Items: s.cart.Clone(),
	}
}

func normalizeContact(c *order.Contact) *order.Contact {
	if c == nil {
		return nil
	}
	out := &order.Contact{
		Name:  strings.TrimSpace(c.Name),
		Phone: strings.TrimSpace(c.Phone),
	}
	if out.Name == "" && out.Phone == "" {
		return nil
	}
	return out
}

// FinalizeBill settles the active cart. Cash plus online must equal the
// discounted total to the cent. On success the order is numbered and stored,
// the table is freed, its last bill total recorded, and the cart emptied.
func (s *CartStore) FinalizeBill(ctx context.Context, p Payment) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cart) == 0 {
		return nil, ErrEmptyCart
	}
	if p.Cash.IsNegative() || p.Online.IsNegative() {
		return nil, ErrInvalidPayment
	}
	totals := s.cart.Totals(p.Discount)
	if paid := p.Cash.Add(p.Online).Round(2); !paid.Equal(totals.Total) {
		return nil, &PaymentMismatchError{Expected: totals.Total}
	}

	o := s.newOrder(order.KindBill)
	o.Subtotal = totals.Subtotal
	o.Discount = totals.Discount
	o.Total = totals.Total
	o.CashPaid = p.Cash.Round(2)
	o.OnlinePaid = p.Online.Round(2)
	o.Customer = normalizeContact(p.Customer)

	c := &Commit{Order: o, Table: s.active}
	if !s.active.IsTakeaway() {
		c.TableBill = &TableBill{Total: totals.Total}
	}
	if err := s.repo.Commit(ctx, c); err != nil {
		return nil, errors.Wrap(err, "commit bill")
	}

	if c.TableBill != nil {
		s.bills[s.active] = *c.TableBill
	}
	delete(s.live, s.active)
	s.cart = nil

	s.metrics.finalized(ctx, o)
	s.lg.Info("Bill finalized",
		zap.Int("bill_no", o.BillNo),
		zap.String("table", string(o.Table)),
		zap.String("total", o.Total.StringFixed(2)),
	)
	s.notify()
	return o.Clone(), nil
}

// FinalizeKOT records a kitchen ticket for the active cart. The number comes
// from the same sequence as bills. A dine-in table is freed but the cart
// stays on the terminal for billing later.
func (s *CartStore) FinalizeKOT(ctx context.Context) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cart) == 0 {
		return nil, ErrEmptyCart
	}

	sum := s.cart.Subtotal().Round(2)
	o := s.newOrder(order.KindKOT)
	o.Subtotal = sum
	o.Discount = decimal.Zero
	o.Total = sum

	if err := s.repo.Commit(ctx, &Commit{Order: o, Table: s.active}); err != nil {
		return nil, errors.Wrap(err, "commit kot")
	}
	delete(s.live, s.active)

	s.metrics.finalized(ctx, o)
	s.lg.Info("KOT finalized",
		zap.Int("kot_no", o.KOTNo),
		zap.String("table", string(o.Table)),
		zap.Int("quantity", o.Quantity()),
	)
	s.notify()
	return o.Clone(), nil
}

// Park holds the active cart aside and empties the terminal. A previously
// parked cart is replaced.
func (s *CartStore) Park(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cart) == 0 {
		return ErrEmptyCart
	}
	if err := s.repo.Park(ctx, s.active, s.cart); err != nil {
		return errors.Wrap(err, "park")
	}
	s.parked = s.cart
	s.cart = nil
	delete(s.live, s.active)

	s.lg.Info("Bill parked", zap.String("table", string(s.active)), zap.Int("lines", len(s.parked)))
	s.notify()
	return nil
}

// Resume brings the parked cart back onto the active table, merged into
// whatever is already there.
func (s *CartStore) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.parked) == 0 {
		return ErrNothingParked
	}
	merged := s.cart.Clone()
	merged.Merge(s.parked)
	if err := s.repo.Resume(ctx, s.active, merged); err != nil {
		return errors.Wrap(err, "resume")
	}
	s.parked = nil
	s.cart = merged
	s.setLive(s.active, merged)

	s.lg.Info("Bill resumed", zap.String("table", string(s.active)))
	s.notify()
	return nil
}

// TransferTable moves the cart of one dine-in table onto another, merging
// lines with the same name and price.
func (s *CartStore) TransferTable(ctx context.Context, rawFrom, rawTo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, err := s.layout.Parse(rawFrom)
	if err != nil {
		return err
	}
	to, err := s.layout.Parse(rawTo)
	if err != nil {
		return err
	}
	if from.IsTakeaway() {
		return &table.InvalidError{ID: rawFrom}
	}
	if to.IsTakeaway() {
		return &table.InvalidError{ID: rawTo}
	}
	if from == to {
		return nil
	}

	src := s.live[from]
	if from == s.active {
		src = s.cart
	}
	if len(src) == 0 {
		return ErrEmptyCart
	}
	merged := s.live[to].Clone()
	if to == s.active {
		merged = s.cart.Clone()
	}
	merged.Merge(src)

	if err := s.repo.Transfer(ctx, from, to, merged); err != nil {
		return errors.Wrap(err, "transfer")
	}
	delete(s.live, from)
	s.setLive(to, merged)
	switch s.active {
	case from:
		s.cart = nil
	case to:
		s.cart = merged.Clone()
	}

	s.lg.Info("Table transferred", zap.String("from", string(from)), zap.String("to", string(to)))
	s.notify()
	return nil
}

// Tables reports the status of every table in layout order.
func (s *CartStore) Tables() []TableStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables()
}

func (s *CartStore) tables() []TableStatus {
	ids := s.layout.All()
	out := make([]TableStatus, 0, len(ids))
	for _, id := range ids {
		st := TableStatus{ID: id, Active: id == s.active}
		c := s.live[id]
		if id == s.active {
			c = s.cart
		}
		if !id.IsTakeaway() {
			st.Occupied = len(s.live[id]) > 0
		}
		st.Items = c.Quantity()
		if b, ok := s.bills[id]; ok {
			total := b.Total
			st.LastBillTotal = &total
		}
		out = append(out, st)
	}
	return out
}

// ClearTableBill forgets the last bill total of a table.
func (s *CartStore) ClearTableBill(ctx context.Context, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.layout.Parse(raw)
	if err != nil {
		return err
	}
	if err := s.repo.ClearTableBill(ctx, id); err != nil {
		return errors.Wrap(err, "clear table bill")
	}
	delete(s.bills, id)
	s.notify()
	return nil
}
