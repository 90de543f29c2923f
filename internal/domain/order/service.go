package order

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/streetmagic-pos/internal/domain/cart"
)

// PageSize is the number of orders per listing page.
const PageSize = 10

// Sentinel errors for order history operations.
var (
	ErrNotFound       = errors.New("order not found")
	ErrInvalidRestore = errors.New("invalid restore payload")
)

// Page is one page of a filtered listing, newest first.
type Page struct {
	Orders []Order `json:"orders"`
	Page   int     `json:"page"`
	Pages  int     `json:"pages"`
	Total  int     `json:"total"`
}

// Summary describes one day of bills.
type Summary struct {
	Date    string          `json:"date"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
	Average decimal.Decimal `json:"averageBill"`
	TopItem string          `json:"topItem"`
}

// History encapsulates order-log browsing and maintenance.
type History struct {
	orders Repository
	loc    *time.Location
	now    func() time.Time
}

// NewHistory creates a History. Calendar days are evaluated in loc; nil
// means UTC.
func NewHistory(orders Repository, loc *time.Location) *History {
	if loc == nil {
		loc = time.UTC
	}
	return &History{
		orders: orders,
		loc:    loc,
		now:    time.Now,
	}
}

// List returns the requested page of orders matching f. Pages are 1-based;
// out-of-range pages are empty.
func (h *History) List(ctx context.Context, f Filter, page int) (*Page, error) {
	all, err := h.orders.ListOrders(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	matched := make([]Order, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if f.Match(&all[i], h.loc) {
			matched = append(matched, all[i])
		}
	}

	if page < 1 {
		page = 1
	}
	out := &Page{
		Orders: []Order{},
		Page:   page,
		Pages:  (len(matched) + PageSize - 1) / PageSize,
		Total:  len(matched),
	}
	start := (page - 1) * PageSize
	if start < len(matched) {
		end := min(start+PageSize, len(matched))
		out.Orders = matched[start:end]
	}
	return out, nil
}

// Get returns a single order.
func (h *History) Get(ctx context.Context, id string) (*Order, error) {
	return h.orders.GetOrder(ctx, id)
}

// Delete removes an order from the log.
func (h *History) Delete(ctx context.Context, id string) error {
	return h.orders.DeleteOrder(ctx, id)
}

// EditItems replaces the items of an order. Lines with a blank name are
// dropped, non-positive quantities become 1, and the total is recomputed as
// the plain item sum.
func (h *History) EditItems(ctx context.Context, id string, items []cart.LineItem) (*Order, error) {
	o, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	cleaned := make([]cart.LineItem, 0, len(items))
	for _, it := range items {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" {
			continue
		}
		if it.Qty < 1 {
			it.Qty = 1
		}
		cleaned = append(cleaned, it)
	}

	sum := cart.Cart(cleaned).Subtotal().Round(2)
	o.Items = cleaned
	o.Subtotal = sum
	o.Discount = decimal.Zero
	o.Total = sum

	if err := h.orders.UpdateOrder(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}

// Duplicate appends a copy of an order under the next sequence number,
// stamped with the current time.
func (h *History) Duplicate(ctx context.Context, id string) (*Order, error) {
	src, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	cp := src.Clone()
	cp.ID = uuid.NewString()
	cp.Date = h.now().UTC()
	if err := h.orders.AppendNumbered(ctx, cp); err != nil {
		return nil, errors.Wrap(err, "append duplicate")
	}
	return cp, nil
}

// Backup serializes the whole log as a JSON array.
func (h *History) Backup(ctx context.Context) ([]byte, error) {
	all, err := h.orders.ListOrders(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if all == nil {
		all = []Order{}
	}
	data, err := json.Marshal(all)
	if err != nil {
		return nil, errors.Wrap(err, "marshal orders")
	}
	return data, nil
}

// Restore replaces the log with a previously exported JSON array. Orders
// lacking an id receive one. Malformed payloads leave the log untouched.
func (h *History) Restore(ctx context.Context, data []byte) (int, error) {
	orders, err := ParseBackup(data)
	if err != nil {
		return 0, err
	}
	if err := h.orders.ReplaceOrders(ctx, orders); err != nil {
		return 0, errors.Wrap(err, "replace orders")
	}
	return len(orders), nil
}

// ParseBackup decodes an exported order array.
func ParseBackup(data []byte) ([]Order, error) {
	if !jx.Valid(data) {
		return nil, ErrInvalidRestore
	}
	var orders []Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, errors.Wrap(ErrInvalidRestore, err.Error())
	}
	if orders == nil {
		return nil, ErrInvalidRestore
	}
	for i := range orders {
		if orders[i].ID == "" {
			orders[i].ID = uuid.NewString()
		}
		if orders[i].Type == "" {
			orders[i].Type = orders[i].Kind()
		}
	}
	return orders, nil
}

// Reset clears the log and rewinds the sequence counter.
func (h *History) Reset(ctx context.Context) error {
	return h.orders.ResetOrders(ctx)
}

// Summary reports bill count, revenue, average bill and the best-selling
// item for the given day. A zero day means today.
func (h *History) Summary(ctx context.Context, day time.Time) (*Summary, error) {
	all, err := h.orders.ListOrders(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if day.IsZero() {
		day = h.now()
	}
	date := day.In(h.loc).Format(DateLayout)

	s := &Summary{
		Date:    date,
		Revenue: decimal.Zero,
		Average: decimal.Zero,
		TopItem: "-",
	}
	counts := make(map[string]int)
	for i := range all {
		o := &all[i]
		if o.Kind() != KindBill || o.Date.In(h.loc).Format(DateLayout) != date {
			continue
		}
		s.Orders++
		s.Revenue = s.Revenue.Add(o.Total)
		for _, it := range o.Items {
			counts[it.Name] += it.Qty
		}
	}
	if s.Orders > 0 {
		s.Average = s.Revenue.Div(decimal.NewFromInt(int64(s.Orders))).Round(2)
	}
	if top := TopItems(counts, 1); len(top) > 0 {
		s.TopItem = top[0].Name
	}
	return s, nil
}

// ItemCount is an item name with the quantity sold.
type ItemCount struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

// TopItems ranks counts by quantity, ties broken by name, keeping at most n
// entries (n <= 0 keeps all).
func TopItems(counts map[string]int, n int) []ItemCount {
	out := make([]ItemCount, 0, len(counts))
	for name, qty := range counts {
		out = append(out, ItemCount{Name: name, Qty: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Qty != out[j].Qty {
			return out[i].Qty > out[j].Qty
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
