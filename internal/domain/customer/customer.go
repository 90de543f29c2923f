// Package customer tracks repeat customers and their loyalty points.
package customer

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/streetmagic-pos/internal/domain/order"
)

// ErrNotFound is returned when no customer is known under a phone number.
var ErrNotFound = errors.New("customer not found")

// pointValue is the spend that earns one loyalty point.
var pointValue = decimal.NewFromInt(100)

// Customer is keyed by phone number.
type Customer struct {
	Phone   string        `json:"phone,omitempty"`
	Name    string        `json:"name,omitempty"`
	History []order.Order `json:"history"`
	Points  int           `json:"points"`
}

// PointsFor returns the loyalty points earned by a bill total.
func PointsFor(total decimal.Decimal) int {
	if !total.IsPositive() {
		return 0
	}
	return int(total.Div(pointValue).Floor().IntPart())
}

// Record appends o to the customer's history and accrues its points. A nil
// customer starts a new record for phone.
func Record(c *Customer, phone string, o *order.Order) *Customer {
	if c == nil {
		c = &Customer{Phone: phone}
	}
	if o.Customer != nil && o.Customer.Name != "" {
		c.Name = o.Customer.Name
	}
	c.History = append(c.History, *o.Clone())
	c.Points += PointsFor(o.Total)
	return c
}

// Repository reads customer records. Writes happen as part of bill commits.
type Repository interface {
	GetCustomer(ctx context.Context, phone string) (*Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
}
