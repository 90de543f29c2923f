package order

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/streetmagic-pos/internal/domain/cart"
	"github.com/xenking/streetmagic-pos/internal/domain/table"
)

// Kind distinguishes final bills from kitchen order tickets.
type Kind string

const (
	KindBill Kind = "BILL"
	KindKOT  Kind = "KOT"
)

// DateLayout is the calendar-day format used by filters and reports.
const DateLayout = "2006-01-02"

// Contact is the optional customer captured on a bill.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Order is a finalized bill or KOT as kept in the order log.
type Order struct {
	ID         string          `json:"id"`
	BillNo     int             `json:"billNo,omitempty"`
	KOTNo      int             `json:"kotNo,omitempty"`
	KOT        bool            `json:"kot,omitempty"`
	Type       Kind            `json:"type,omitempty"`
	Date       time.Time       `json:"date"`
	Table      table.ID        `json:"table,omitempty"`
	Items      []cart.LineItem `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
	CashPaid   decimal.Decimal `json:"cashPaid"`
	OnlinePaid decimal.Decimal `json:"onlinePaid"`
	Customer   *Contact        `json:"customer,omitempty"`
}

// Kind reports whether the record is a bill or a KOT. Records restored from
// older backups may carry only the kot flag or only the type.
func (o *Order) Kind() Kind {
	if o.KOT || o.Type == KindKOT {
		return KindKOT
	}
	return KindBill
}

// Number is the sequence number printed on the slip.
func (o *Order) Number() int {
	if o.BillNo == 0 {
		return o.KOTNo
	}
	return o.BillNo
}

// SetNumber stamps an allocated sequence number.
func (o *Order) SetNumber(n int) {
	o.BillNo = n
	if o.Kind() == KindKOT {
		o.KOTNo = n
	}
}

// Quantity is the number of units across all items.
func (o *Order) Quantity() int {
	return cart.Cart(o.Items).Quantity()
}

// Clone returns a deep copy.
func (o *Order) Clone() *Order {
	cp := *o
	cp.Items = cart.Cart(o.Items).Clone()
	if o.Customer != nil {
		c := *o.Customer
		cp.Customer = &c
	}
	return &cp
}

// Filter narrows the order log. Zero-valued fields match everything.
type Filter struct {
	// Date is a calendar day in DateLayout.
	Date          string
	BillNo        string
	Kind          Kind
	MinTotal      *decimal.Decimal
	MaxTotal      *decimal.Decimal
	CustomerName  string
	CustomerPhone string
}

// Match reports whether o passes every set criterion. Dates are compared in loc.
func (f Filter) Match(o *Order, loc *time.Location) bool {
	if f.Date != "" && o.Date.In(loc).Format(DateLayout) != f.Date {
		return false
	}
	if f.BillNo != "" && !strings.Contains(strconv.Itoa(o.Number()), f.BillNo) {
		return false
	}
	if f.Kind != "" && o.Kind() != f.Kind {
		return false
	}
	if f.MinTotal != nil && o.Total.LessThan(*f.MinTotal) {
		return false
	}
	if f.MaxTotal != nil && o.Total.GreaterThan(*f.MaxTotal) {
		return false
	}
	var c Contact
	if o.Customer != nil {
		c = *o.Customer
	}
	if f.CustomerName != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(f.CustomerName)) {
		return false
	}
	if f.CustomerPhone != "" && !strings.Contains(c.Phone, f.CustomerPhone) {
		return false
	}
	return true
}

// Repository defines persistence operations for the order log. List returns
// orders in the order they were appended.
type Repository interface {
	ListOrders(ctx context.Context) ([]Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	UpdateOrder(ctx context.Context, o *Order) error
	DeleteOrder(ctx context.Context, id string) error
	// AppendNumbered allocates the next sequence number, stamps it on o and
	// appends o, as one atomic unit.
	AppendNumbered(ctx context.Context, o *Order) error
	// ReplaceOrders swaps the whole log and raises the sequence to at least
	// the highest number in it.
	ReplaceOrders(ctx context.Context, orders []Order) error
	// ResetOrders empties the log and rewinds the sequence to its baseline.
	ResetOrders(ctx context.Context) error
}
