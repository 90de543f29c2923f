// Package table names the seating positions a terminal can bill against.
package table

import (
	"fmt"
	"strconv"
	"strings"
)

// ID identifies a table. Dine-in tables are named "Table 1" … "Table N";
// Takeaway is the transient walk-in pseudo-table.
type ID string

// Takeaway is never persisted as a live table.
const Takeaway ID = "Takeaway"

// DefaultTables is the number of dine-in tables on the floor plan.
const DefaultTables = 8

const dineInPrefix = "Table "

// IsTakeaway reports whether id is the walk-in pseudo-table.
func (id ID) IsTakeaway() bool {
	return id == Takeaway
}

// InvalidError is returned for table ids outside the floor plan.
type InvalidError struct {
	ID string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid table %q", e.ID)
}

// Layout is the fixed set of tables a terminal serves.
type Layout struct {
	tables int
}

// NewLayout returns a layout with n dine-in tables plus Takeaway. Non-positive
// n falls back to DefaultTables.
func NewLayout(n int) Layout {
	if n <= 0 {
		n = DefaultTables
	}
	return Layout{tables: n}
}

// DineIn returns the id of the n-th dine-in table (1-based).
func DineIn(n int) ID {
	return ID(dineInPrefix + strconv.Itoa(n))
}

// Parse validates s against the layout.
func (l Layout) Parse(s string) (ID, error) {
	if ID(s) == Takeaway {
		return Takeaway, nil
	}
	num, ok := strings.CutPrefix(s, dineInPrefix)
	if !ok {
		return "", &InvalidError{ID: s}
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 || n > l.tables || strconv.Itoa(n) != num {
		return "", &InvalidError{ID: s}
	}
	return ID(s), nil
}

// Valid reports whether id belongs to the layout.
func (l Layout) Valid(id ID) bool {
	_, err := l.Parse(string(id))
	return err == nil
}

// DineInTables lists Table 1 … Table N in order.
func (l Layout) DineInTables() []ID {
	ids := make([]ID, l.tables)
	for i := range l.tables {
		ids[i] = DineIn(i + 1)
	}
	return ids
}

// All lists Takeaway followed by every dine-in table.
func (l Layout) All() []ID {
	return append([]ID{Takeaway}, l.DineInTables()...)
}
