// Package local keeps the whole POS state in a single JSON document on
// disk, laid out key-for-key like the browser storage it replaces.
package local

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/moby/sys/atomicwriter"

	"github.com/xenking/streetmagic-pos/internal/domain/cart"
	"github.com/xenking/streetmagic-pos/internal/domain/customer"
	"github.com/xenking/streetmagic-pos/internal/domain/menu"
	"github.com/xenking/streetmagic-pos/internal/domain/order"
	"github.com/xenking/streetmagic-pos/internal/domain/pos"
	"github.com/xenking/streetmagic-pos/internal/domain/report"
	"github.com/xenking/streetmagic-pos/internal/domain/table"
)

// DefaultBaseline is the sequence value before the first bill.
const DefaultBaseline = 3940

type state struct {
	MenuItems   []menu.Item                   `json:"menuItems"`
	Orders      []order.Order                 `json:"orders"`
	LiveTables  map[table.ID]cart.Cart        `json:"liveTables"`
	TableBills  map[table.ID]pos.TableBill    `json:"tableBills"`
	Customers   map[string]*customer.Customer `json:"customers"`
	BillCounter int                           `json:"billCounter"`
	Expenses    *report.Expenses              `json:"expenses,omitempty"`
	ParkedBill  cart.Cart                     `json:"parkedBill"`
	Purchases   []report.Purchase             `json:"purchases"`
}

func (st *state) init() {
	if st.Orders == nil {
		st.Orders = []order.Order{}
	}
	if st.MenuItems == nil {
		st.MenuItems = []menu.Item{}
	}
	if st.LiveTables == nil {
		st.LiveTables = make(map[table.ID]cart.Cart)
	}
	if st.TableBills == nil {
		st.TableBills = make(map[table.ID]pos.TableBill)
	}
	if st.Customers == nil {
		st.Customers = make(map[string]*customer.Customer)
	}
	if st.Purchases == nil {
		st.Purchases = []report.Purchase{}
	}
}

// nextNumber advances the shared bill/KOT sequence.
func (st *state) nextNumber(baseline int) int {
	if st.BillCounter == 0 {
		st.BillCounter = baseline
	}
	st.BillCounter++
	return st.BillCounter
}

// Options configures Open.
type Options struct {
	// Baseline is the sequence value a fresh or reset log starts from.
	Baseline int
	// Menu seeds a state file that does not exist yet.
	Menu []menu.Item
}

// Store holds the encoded state document. Every update decodes a private
// copy, applies the change, encodes it and, when backed by a file, atomically
// replaces the file before the new document becomes visible. A failed update
// leaves both memory and disk untouched.
type Store struct {
	mu       sync.RWMutex
	path     string
	baseline int
	raw      []byte
}

// Open loads the state document at path, creating it if missing. An empty
// path keeps state in memory only. Orders saved without an id get one.
func Open(path string, opts Options) (*Store, error) {
	if opts.Baseline <= 0 {
		opts.Baseline = DefaultBaseline
	}
	s := &Store{path: path, baseline: opts.Baseline}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var st state
			if err := json.Unmarshal(data, &st); err != nil {
				return nil, errors.Wrapf(err, "decode %s", path)
			}
			st.init()
			for i := range st.Orders {
				if st.Orders[i].ID == "" {
					st.Orders[i].ID = uuid.NewString()
				}
			}
			if s.raw, err = json.Marshal(&st); err != nil {
				return nil, errors.Wrap(err, "encode state")
			}
			return s, nil
		case !os.IsNotExist(err):
			return nil, errors.Wrapf(err, "read %s", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, errors.Wrap(err, "create state dir")
		}
	}

	st := state{MenuItems: opts.Menu, BillCounter: opts.Baseline}
	st.init()
	data, err := json.Marshal(&st)
	if err != nil {
		return nil, errors.Wrap(err, "encode state")
	}
	if err := s.write(data); err != nil {
		return nil, err
	}
	s.raw = data
	return s, nil
}

func (s *Store) write(data []byte) error {
	if s.path == "" {
		return nil
	}
	if err := atomicwriter.WriteFile(s.path, data, 0o600); err != nil {
		return errors.Wrapf(err, "write %s", s.path)
	}
	return nil
}

func (s *Store) decode() (*state, error) {
	var st state
	if err := json.Unmarshal(s.raw, &st); err != nil {
		return nil, errors.Wrap(err, "decode state")
	}
	st.init()
	return &st, nil
}

// view runs fn on a private copy of the state.
func (s *Store) view(fn func(st *state) error) error {
	s.mu.RLock()
	st, err := s.decode()
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	return fn(st)
}

// update runs fn on a private copy of the state and commits the result if
// fn succeeds.
func (s *Store) update(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.decode()
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	data, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "encode state")
	}
	if err := s.write(data); err != nil {
		return err
	}
	s.raw = data
	return nil
}

// Ping reports whether the state file is still reachable.
func (s *Store) Ping(_ context.Context) error {
	if s.path == "" {
		return nil
	}
	if _, err := os.Stat(s.path); err != nil {
		return errors.Wrap(err, "stat state file")
	}
	return nil
}

// Snapshot returns the encoded state document.
func (s *Store) Snapshot() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]byte, len(s.raw))
	copy(out, s.raw)
	return out
}

// Path is the backing file, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}
