package order

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/streetmagic-pos/internal/domain/cart"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	orders   []Order
	counter  int
	baseline int
	listErr  error
}

func newMockRepo(baseline int) *mockOrderRepo {
	return &mockOrderRepo{counter: baseline, baseline: baseline}
}

func (m *mockOrderRepo) ListOrders(_ context.Context) ([]Order, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]Order, len(m.orders))
	copy(out, m.orders)
	return out, nil
}

func (m *mockOrderRepo) GetOrder(_ context.Context, id string) (*Order, error) {
	for i := range m.orders {
		if m.orders[i].ID == id {
			return m.orders[i].Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockOrderRepo) UpdateOrder(_ context.Context, o *Order) error {
	for i := range m.orders {
		if m.orders[i].ID == o.ID {
			m.orders[i] = *o.Clone()
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockOrderRepo) DeleteOrder(_ context.Context, id string) error {
	for i := range m.orders {
		if m.orders[i].ID == id {
			m.orders = append(m.orders[:i], m.orders[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockOrderRepo) AppendNumbered(_ context.Context, o *Order) error {
	m.counter++
	o.SetNumber(m.counter)
	m.orders = append(m.orders, *o.Clone())
	return nil
}

func (m *mockOrderRepo) ReplaceOrders(_ context.Context, orders []Order) error {
	m.orders = orders
	for i := range orders {
		m.counter = max(m.counter, orders[i].Number())
	}
	return nil
}

func (m *mockOrderRepo) ResetOrders(_ context.Context) error {
	m.orders = nil
	m.counter = m.baseline
	return nil
}

// --- Helpers ---

var day = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func bill(n int, total string, at time.Time) Order {
	return Order{
		ID:     "o-" + strconv.Itoa(n),
		BillNo: n,
		Type:   KindBill,
		Date:   at,
		Items:  []cart.LineItem{{Name: "Burger", Price: d(total), Qty: 1}},
		Total:  d(total),
	}
}

func newTestHistory(repo *mockOrderRepo) *History {
	h := NewHistory(repo, time.UTC)
	h.now = func() time.Time { return day }
	return h
}

// --- Tests ---

func TestHistory_ListNewestFirstPaged(t *testing.T) {
	repo := newMockRepo(3940)
	for i := 1; i <= 23; i++ {
		repo.orders = append(repo.orders, bill(3940+i, "100", day))
	}
	h := newTestHistory(repo)

	p, err := h.List(context.Background(), Filter{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Pages)
	assert.Equal(t, 23, p.Total)
	require.Len(t, p.Orders, PageSize)
	assert.Equal(t, 3963, p.Orders[0].BillNo)

	p, err = h.List(context.Background(), Filter{}, 3)
	require.NoError(t, err)
	require.Len(t, p.Orders, 3)
	assert.Equal(t, 3941, p.Orders[2].BillNo)

	p, err = h.List(context.Background(), Filter{}, 9)
	require.NoError(t, err)
	assert.Empty(t, p.Orders)
}

func TestHistory_ListFilters(t *testing.T) {
	repo := newMockRepo(3940)
	b1 := bill(3941, "100", day)
	b1.Customer = &Contact{Name: "Asha Rao", Phone: "9876500000"}
	b2 := bill(3942, "450", day.AddDate(0, 0, -1))
	kot := bill(3943, "200", day)
	kot.Type, kot.KOT = KindKOT, true
	repo.orders = []Order{b1, b2, kot}
	h := newTestHistory(repo)

	minTotal, maxTotal := d("150"), d("300")

	tests := []struct {
		name   string
		filter Filter
		want   []int
	}{
		{name: "no filter", filter: Filter{}, want: []int{3943, 3942, 3941}},
		{name: "date", filter: Filter{Date: "2025-03-14"}, want: []int{3943, 3941}},
		{name: "bill number substring", filter: Filter{BillNo: "42"}, want: []int{3942}},
		{name: "kind KOT", filter: Filter{Kind: KindKOT}, want: []int{3943}},
		{name: "kind bill", filter: Filter{Kind: KindBill}, want: []int{3942, 3941}},
		{name: "amount range", filter: Filter{MinTotal: &minTotal, MaxTotal: &maxTotal}, want: []int{3943}},
		{name: "customer name case-insensitive", filter: Filter{CustomerName: "asha"}, want: []int{3941}},
		{name: "customer phone", filter: Filter{CustomerPhone: "98765"}, want: []int{3941}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := h.List(context.Background(), tt.filter, 1)
			require.NoError(t, err)
			got := make([]int, 0, len(p.Orders))
			for _, o := range p.Orders {
				got = append(got, o.Number())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHistory_EditItems(t *testing.T) {
	repo := newMockRepo(3940)
	o := bill(3941, "100", day)
	o.Discount = d("10")
	repo.orders = []Order{o}
	h := newTestHistory(repo)

	got, err := h.EditItems(context.Background(), "o-3941", []cart.LineItem{
		{Name: " Tea ", Price: d("20"), Qty: 2},
		{Name: "   ", Price: d("99"), Qty: 1},
		{Name: "Samosa", Price: d("15"), Qty: 0},
	})
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Tea", got.Items[0].Name)
	assert.Equal(t, 1, got.Items[1].Qty)
	assert.True(t, d("55").Equal(got.Total))

	stored, err := repo.GetOrder(context.Background(), "o-3941")
	require.NoError(t, err)
	assert.True(t, d("55").Equal(stored.Total))
}

func TestHistory_EditItemsNotFound(t *testing.T) {
	h := newTestHistory(newMockRepo(3940))
	_, err := h.EditItems(context.Background(), "missing", nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHistory_DuplicateUsesSharedCounter(t *testing.T) {
	repo := newMockRepo(3945)
	repo.orders = []Order{bill(3945, "300", day.AddDate(0, 0, -2))}
	h := newTestHistory(repo)

	cp, err := h.Duplicate(context.Background(), "o-3945")
	require.NoError(t, err)
	assert.Equal(t, 3946, cp.BillNo)
	assert.NotEqual(t, "o-3945", cp.ID)
	assert.Equal(t, day, cp.Date)
	assert.Len(t, repo.orders, 2)
}

func TestHistory_BackupRestore(t *testing.T) {
	repo := newMockRepo(3940)
	repo.orders = []Order{bill(3941, "100", day)}
	h := newTestHistory(repo)

	data, err := h.Backup(context.Background())
	require.NoError(t, err)

	repo.orders = nil
	n, err := h.Restore(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3941, repo.orders[0].BillNo)
}

func TestHistory_RestoreLegacyPayload(t *testing.T) {
	repo := newMockRepo(3940)
	h := newTestHistory(repo)

	payload := `[
		{"billNo":3941,"date":"2025-03-14T10:00:00.000Z","items":[{"name":"Burger","price":100,"qty":2}],
		 "subtotal":200,"discount":0,"total":200,"cashPaid":200,"onlinePaid":0,"table":"Table 2"},
		{"kot":true,"kotNo":3942,"billNo":3942,"date":"2025-03-14T10:05:00.000Z",
		 "items":[{"name":"Tea","price":20,"qty":1}],"subtotal":20,"discount":0,"total":20}
	]`
	n, err := h.Restore(context.Background(), []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, repo.orders, 2)
	assert.NotEmpty(t, repo.orders[0].ID)
	assert.Equal(t, KindBill, repo.orders[0].Type)
	assert.Equal(t, KindKOT, repo.orders[1].Type)
	assert.True(t, d("200").Equal(repo.orders[0].Total))
}

func TestHistory_RestoreInvalidLeavesState(t *testing.T) {
	repo := newMockRepo(3940)
	repo.orders = []Order{bill(3941, "100", day)}
	h := newTestHistory(repo)

	for _, payload := range []string{`not json`, `{"orders":[]}`, `null`, `[{"total":"abc"}]`} {
		_, err := h.Restore(context.Background(), []byte(payload))
		require.ErrorIs(t, err, ErrInvalidRestore, payload)
	}
	assert.Len(t, repo.orders, 1)
}

func TestHistory_Reset(t *testing.T) {
	repo := newMockRepo(3940)
	repo.orders = []Order{bill(3941, "100", day)}
	repo.counter = 3941
	h := newTestHistory(repo)

	require.NoError(t, h.Reset(context.Background()))
	assert.Empty(t, repo.orders)

	o := &Order{ID: "x", Type: KindBill}
	require.NoError(t, repo.AppendNumbered(context.Background(), o))
	assert.Equal(t, 3941, o.BillNo)
}

func TestHistory_Summary(t *testing.T) {
	repo := newMockRepo(3940)
	b1 := bill(3941, "100", day)
	b1.Items = []cart.LineItem{{Name: "Tea", Price: d("20"), Qty: 5}}
	b2 := bill(3942, "250", day)
	b2.Items = []cart.LineItem{{Name: "Burger", Price: d("125"), Qty: 2}}
	kot := bill(3943, "1000", day)
	kot.Type = KindKOT
	old := bill(3944, "999", day.AddDate(0, 0, -1))
	repo.orders = []Order{b1, b2, kot, old}
	h := newTestHistory(repo)

	s, err := h.Summary(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14", s.Date)
	assert.Equal(t, 2, s.Orders)
	assert.True(t, d("350").Equal(s.Revenue))
	assert.True(t, d("175").Equal(s.Average))
	assert.Equal(t, "Tea", s.TopItem)
}

func TestHistory_ListError(t *testing.T) {
	repo := newMockRepo(3940)
	repo.listErr = errors.New("disk gone")
	h := newTestHistory(repo)

	_, err := h.List(context.Background(), Filter{}, 1)
	require.Error(t, err)
}

func TestTopItems(t *testing.T) {
	got := TopItems(map[string]int{"b": 2, "a": 2, "c": 5}, 2)
	assert.Equal(t, []ItemCount{{Name: "c", Qty: 5}, {Name: "a", Qty: 2}}, got)
}
