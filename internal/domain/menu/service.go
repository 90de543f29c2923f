package menu

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/streetmagic-pos/internal/domain/cart"
)

// Service maintains the menu. Edits are read-modify-write over the whole
// list, serialized by mu.
type Service struct {
	mu    sync.Mutex
	items Repository
}

// NewService creates a menu Service.
func NewService(items Repository) *Service {
	return &Service{items: items}
}

// List returns the full menu in display order.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	items, err := s.items.ListMenu(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list menu")
	}
	return items, nil
}

// Get returns the item at idx.
func (s *Service) Get(ctx context.Context, idx int) (*Item, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(items) {
		return nil, ErrNotFound
	}
	return &items[idx], nil
}

// Add appends a new item and returns its index.
func (s *Service) Add(ctx context.Context, d Draft) (int, error) {
	it, err := d.Item()
	if err != nil {
		return 0, err
	}
	var idx int
	err = s.edit(ctx, func(items []Item) ([]Item, error) {
		idx = len(items)
		return append(items, it), nil
	})
	return idx, err
}

// Update replaces the item at idx.
func (s *Service) Update(ctx context.Context, idx int, d Draft) error {
	it, err := d.Item()
	if err != nil {
		return err
	}
	return s.edit(ctx, func(items []Item) ([]Item, error) {
		if idx < 0 || idx >= len(items) {
			return nil, ErrNotFound
		}
		items[idx] = it
		return items, nil
	})
}

// Delete removes the item at idx.
func (s *Service) Delete(ctx context.Context, idx int) error {
	return s.edit(ctx, func(items []Item) ([]Item, error) {
		if idx < 0 || idx >= len(items) {
			return nil, ErrNotFound
		}
		return slices.Delete(items, idx, idx+1), nil
	})
}

// Move relocates the item at from so that it ends up at index to, optionally
// re-filing it under another category and subcategory. An out-of-range
// destination moves the item to the end.
func (s *Service) Move(ctx context.Context, from, to int, category, subcategory string) error {
	return s.edit(ctx, func(items []Item) ([]Item, error) {
		if from < 0 || from >= len(items) {
			return nil, ErrNotFound
		}
		it := items[from]
		if category != "" {
			it.Category = category
		}
		if subcategory != "" {
			it.Subcategory = subcategory
		}
		items = slices.Delete(items, from, from+1)
		if to < 0 || to > len(items) {
			to = len(items)
		}
		return slices.Insert(items, to, it), nil
	})
}

func (s *Service) edit(ctx context.Context, fn func([]Item) ([]Item, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.items.ListMenu(ctx)
	if err != nil {
		return errors.Wrap(err, "list menu")
	}
	items, err = fn(slices.Clone(items))
	if err != nil {
		return err
	}
	if err := s.items.ReplaceMenu(ctx, items); err != nil {
		return errors.Wrap(err, "save menu")
	}
	return nil
}

// Categories lists categories and their subcategories in first-seen order.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return Categorize(items), nil
}

// Categorize groups items by category and subcategory in first-seen order.
func Categorize(items []Item) []Category {
	var out []Category
	pos := make(map[string]int)
	for _, it := range items {
		i, ok := pos[it.Category]
		if !ok {
			i = len(out)
			pos[it.Category] = i
			out = append(out, Category{Name: it.Category})
		}
		if !slices.Contains(out[i].Subcategories, it.Subcategory) {
			out[i].Subcategories = append(out[i].Subcategories, it.Subcategory)
		}
	}
	return out
}

// Entry pairs an item with its menu index.
type Entry struct {
	Index int  `json:"index"`
	Item  Item `json:"item"`
}

// Find returns the entries matching category and subcategory (blank matches
// all) and the free-text query.
func (s *Service) Find(ctx context.Context, category, subcategory, query string) ([]Entry, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(items))
	for i, it := range items {
		if category != "" && it.Category != category {
			continue
		}
		if subcategory != "" && it.Subcategory != subcategory {
			continue
		}
		if !it.Matches(query) {
			continue
		}
		out = append(out, Entry{Index: i, Item: it})
	}
	return out, nil
}

// CartItem turns the item at idx into something the cart can take. Items
// sold by size need a size; the chosen variant becomes "<name> (<size>)" at
// the variant's price.
func (s *Service) CartItem(ctx context.Context, idx int, size string) (cart.Item, error) {
	it, err := s.Get(ctx, idx)
	if err != nil {
		return cart.Item{}, err
	}
	return ToCartItem(*it, size)
}

// ToCartItem converts a menu item, or one of its variants, into a cart item.
func ToCartItem(it Item, size string) (cart.Item, error) {
	if !it.HasVariants() {
		if size != "" {
			return cart.Item{}, ErrUnknownVariant
		}
		return cart.Item{
			Name:     it.Name,
			Price:    it.Price,
			Category: it.Category,
			Stock:    it.Stock,
		}, nil
	}
	if size == "" {
		return cart.Item{}, ErrVariantRequired
	}
	for _, v := range it.Variants {
		if v.Size == size {
			return cart.Item{
				Name:         fmt.Sprintf("%s (%s)", it.Name, v.Size),
				Price:        v.Price,
				VariantLabel: v.Size,
				Category:     it.Category,
				Stock:        it.Stock,
			}, nil
		}
	}
	return cart.Item{}, ErrUnknownVariant
}
