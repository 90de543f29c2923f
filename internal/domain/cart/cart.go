// Package cart implements the in-progress order a terminal is building.
package cart

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrOutOfStock is returned when a stock-tracked item has no stock left.
	ErrOutOfStock = errors.New("out of stock")
	// ErrInvalidKey is returned when a textual line key cannot be parsed.
	ErrInvalidKey = errors.New("invalid line key")
)

const keySep = "::"

// Key identifies a line within a cart. Two lines with the same name but a
// different price (e.g. size variants) are distinct.
type Key struct {
	Name  string
	Price decimal.Decimal
}

// String renders the key as "name::price".
func (k Key) String() string {
	return k.Name + keySep + k.Price.String()
}

// Matches reports whether the line carries this key.
func (k Key) Matches(l LineItem) bool {
	return l.Name == k.Name && l.Price.Equal(k.Price)
}

// ParseKey parses the "name::price" form produced by Key.String.
func ParseKey(s string) (Key, error) {
	i := strings.LastIndex(s, keySep)
	if i < 0 {
		return Key{}, ErrInvalidKey
	}
	price, err := decimal.NewFromString(s[i+len(keySep):])
	if err != nil {
		return Key{}, errors.Wrap(ErrInvalidKey, err.Error())
	}
	return Key{Name: s[:i], Price: price}, nil
}

// Item is a sellable unit offered to the cart.
type Item struct {
	Name         string
	Price        decimal.Decimal
	VariantLabel string
	Category     string
	// Stock is optional; nil means the item is not stock-tracked.
	Stock *int
}

// LineItem is one row of a cart.
type LineItem struct {
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Qty          int             `json:"qty"`
	VariantLabel string          `json:"variantLabel,omitempty"`
	Category     string          `json:"category,omitempty"`
}

// Key returns the line's identity.
func (l LineItem) Key() Key {
	return Key{Name: l.Name, Price: l.Price}
}

// Amount is price × qty.
func (l LineItem) Amount() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// Cart is an ordered list of lines; insertion order is display order.
type Cart []LineItem

// Add merges item into the cart: an existing line with the same key gains one
// unit, otherwise a new line with qty 1 is appended.
func (c *Cart) Add(item Item) error {
	if item.Stock != nil && *item.Stock <= 0 {
		return ErrOutOfStock
	}
	key := Key{Name: item.Name, Price: item.Price}
	if i := c.index(key); i >= 0 {
		(*c)[i].Qty++
		return nil
	}
	*c = append(*c, LineItem{
		Name:         item.Name,
		Price:        item.Price,
		Qty:          1,
		VariantLabel: item.VariantLabel,
		Category:     item.Category,
	})
	return nil
}

// UpdateQty shifts the quantity of the line with the given key by delta and
// removes the line when the result drops to zero or below. It reports whether
// a line was found.
func (c *Cart) UpdateQty(key Key, delta int) bool {
	i := c.index(key)
	if i < 0 {
		return false
	}
	(*c)[i].Qty += delta
	if (*c)[i].Qty <= 0 {
		*c = append((*c)[:i], (*c)[i+1:]...)
	}
	return true
}

// Merge folds other into c, adding quantities for matching keys and
// appending the rest in order.
func (c *Cart) Merge(other Cart) {
	for _, l := range other {
		if l.Qty <= 0 {
			continue
		}
		if i := c.index(l.Key()); i >= 0 {
			(*c)[i].Qty += l.Qty
			continue
		}
		*c = append(*c, l)
	}
}

// Line returns the line with the given key.
func (c Cart) Line(key Key) (LineItem, bool) {
	if i := c.index(key); i >= 0 {
		return c[i], true
	}
	return LineItem{}, false
}

func (c Cart) index(key Key) int {
	for i, l := range c {
		if key.Matches(l) {
			return i
		}
	}
	return -1
}

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool {
	return len(c) == 0
}

// Quantity is the number of units across all lines.
func (c Cart) Quantity() int {
	n := 0
	for _, l := range c {
		n += l.Qty
	}
	return n
}

// Subtotal is Σ price × qty.
func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c {
		sum = sum.Add(l.Amount())
	}
	return sum
}

// Clone returns an independent copy.
func (c Cart) Clone() Cart {
	if c == nil {
		return nil
	}
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Totals holds the bill arithmetic for a cart.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// Totals applies a flat discount to the subtotal. The total is floored at
// zero and rounded to 2 decimal places; a negative discount counts as none.
func (c Cart) Totals(discount decimal.Decimal) Totals {
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	subtotal := c.Subtotal()
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Totals{
		Subtotal: subtotal.Round(2),
		Discount: discount.Round(2),
		Total:    total.Round(2),
	}
}
