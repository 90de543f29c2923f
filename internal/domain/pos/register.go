// Package pos implements the billing terminal: the active table, its cart,
// and the finalize operations that turn a cart into a numbered order.
package pos

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/streetmagic-pos/internal/domain/cart"
	"github.com/xenking/streetmagic-pos/internal/domain/order"
	"github.com/xenking/streetmagic-pos/internal/domain/table"
)

// Sentinel errors for terminal operations.
var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrNothingParked  = errors.New("no parked bill")
	ErrInvalidPayment = errors.New("payments must not be negative")
)

// PaymentMismatchError is returned when cash plus online payment does not
// equal the bill total.
type PaymentMismatchError struct {
	Expected decimal.Decimal
}

func (e *PaymentMismatchError) Error() string {
	return fmt.Sprintf("cash + online must equal total amount (%s)", e.Expected.StringFixed(2))
}

// TableBill is the last bill total recorded for a dine-in table.
type TableBill struct {
	Total decimal.Decimal `json:"total"`
}

// Register is the persisted terminal state.
type Register struct {
	LiveTables map[table.ID]cart.Cart
	TableBills map[table.ID]TableBill
	Parked     cart.Cart
}

// Commit is everything a finalize writes. Storage applies it as one atomic
// unit: allocate the next sequence number onto Order, append Order, delete
// the live-table entry of Table (dine-in only), write TableBill for Table
// when set, and accrue loyalty for Order.Customer when it has a phone.
type Commit struct {
	Order     *order.Order
	Table     table.ID
	TableBill *TableBill
}

// Repository persists terminal state. Takeaway is never written as a live
// table by any method.
type Repository interface {
	LoadRegister(ctx context.Context) (*Register, error)
	// SaveLiveTable stores the cart of a dine-in table; an empty cart frees it.
	SaveLiveTable(ctx context.Context, id table.ID, c cart.Cart) error
	ClearTableBill(ctx context.Context, id table.ID) error
	Commit(ctx context.Context, c *Commit) error
	// Transfer frees from and stores merged under to.
	Transfer(ctx context.Context, from, to table.ID, merged cart.Cart) error
	// Park stores c as the parked bill and frees from.
	Park(ctx context.Context, from table.ID, c cart.Cart) error
	// Resume clears the parked bill and stores c under into.
	Resume(ctx context.Context, into table.ID, c cart.Cart) error
}

// Payment is the settlement entered for a bill.
type Payment struct {
	Discount decimal.Decimal
	Cash     decimal.Decimal
	Online   decimal.Decimal
	Customer *order.Contact
}

// TableStatus describes one table for the floor view.
type TableStatus struct {
	ID            table.ID         `json:"id"`
	Occupied      bool             `json:"occupied"`
	Active        bool             `json:"active"`
	Items         int              `json:"items"`
	LastBillTotal *decimal.Decimal `json:"lastBillTotal,omitempty"`
}

// Snapshot is the terminal state delivered to subscribers.
type Snapshot struct {
	Table    table.ID        `json:"table"`
	Items    cart.Cart       `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Quantity int             `json:"quantity"`
	Parked   bool            `json:"parked"`
	Tables   []TableStatus   `json:"tables"`
}
