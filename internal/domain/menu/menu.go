package menu

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for menu maintenance.
var (
	ErrNotFound        = errors.New("menu item not found")
	ErrInvalidItem     = errors.New("name, category, subcategory and a price or variants are required")
	ErrVariantRequired = errors.New("item has variants; choose one")
	ErrUnknownVariant  = errors.New("unknown variant")
)

// Variant is a size option with its own price.
type Variant struct {
	Size  string          `json:"size"`
	Price decimal.Decimal `json:"price"`
}

// Item is a sellable menu entry. Its position in the menu is its identity.
type Item struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	Variants    []Variant       `json:"variants,omitempty"`
	Stock       *int            `json:"stock,omitempty"`
}

// HasVariants reports whether the item is sold by size.
func (i Item) HasVariants() bool {
	return len(i.Variants) > 0
}

// Matches is a case-insensitive substring search over name, category and
// subcategory.
func (i Item) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, s := range []string{i.Name, i.Category, i.Subcategory} {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

// Draft is the user input for creating or replacing an item.
type Draft struct {
	Name        string           `json:"name"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Category    string           `json:"category"`
	Subcategory string           `json:"subcategory"`
	Variants    []Variant        `json:"variants,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
}

// Item validates the draft. Variants with a blank size are ignored. A price
// may be omitted only when variants exist, in which case it becomes zero.
func (d Draft) Item() (Item, error) {
	it := Item{
		Name:        strings.TrimSpace(d.Name),
		Category:    strings.TrimSpace(d.Category),
		Subcategory: strings.TrimSpace(d.Subcategory),
		Stock:       d.Stock,
	}
	for _, v := range d.Variants {
		v.Size = strings.TrimSpace(v.Size)
		if v.Size == "" {
			continue
		}
		if v.Price.IsNegative() {
			return Item{}, ErrInvalidItem
		}
		it.Variants = append(it.Variants, v)
	}
	if it.Name == "" || it.Category == "" || it.Subcategory == "" {
		return Item{}, ErrInvalidItem
	}
	switch {
	case d.Price != nil:
		if d.Price.IsNegative() {
			return Item{}, ErrInvalidItem
		}
		it.Price = *d.Price
	case it.HasVariants():
		it.Price = decimal.Zero
	default:
		return Item{}, ErrInvalidItem
	}
	return it, nil
}

// Category groups subcategories in first-seen menu order.
type Category struct {
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
}

// Repository persists the ordered menu as a whole.
type Repository interface {
	ListMenu(ctx context.Context) ([]Item, error)
	ReplaceMenu(ctx context.Context, items []Item) error
}

// Defaults is the starter menu used for a fresh installation.
func Defaults() []Item {
	return []Item{
		{Name: "Classic Burger", Price: decimal.NewFromInt(120), Category: "Food", Subcategory: "Burger"},
		{Name: "Chicken Pizza", Price: decimal.NewFromInt(250), Category: "Food", Subcategory: "Pizza"},
		{Name: "Vanilla Ice Cream", Price: decimal.NewFromInt(80), Category: "Dessert", Subcategory: "Ice Cream"},
	}
}
