package report

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/streetmagic-pos/internal/domain/cart"
	"github.com/xenking/streetmagic-pos/internal/domain/order"
)

type mockOrders struct {
	orders []order.Order
}

func (m *mockOrders) ListOrders(_ context.Context) ([]order.Order, error) {
	out := make([]order.Order, len(m.orders))
	copy(out, m.orders)
	return out, nil
}

type mockBooks struct {
	expenses  *Expenses
	purchases []Purchase
}

func (m *mockBooks) GetExpenses(_ context.Context) (*Expenses, error) {
	return m.expenses, nil
}

func (m *mockBooks) SaveExpenses(_ context.Context, e Expenses) error {
	m.expenses = &e
	return nil
}

func (m *mockBooks) ListPurchases(_ context.Context) ([]Purchase, error) {
	return m.purchases, nil
}

func (m *mockBooks) AddPurchase(_ context.Context, p Purchase) error {
	m.purchases = append(m.purchases, p)
	return nil
}

var now = time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func line(name, category, price string, qty int) cart.LineItem {
	return cart.LineItem{Name: name, Category: category, Price: d(price), Qty: qty}
}

func billAt(at time.Time, total string, items ...cart.LineItem) order.Order {
	return order.Order{Type: order.KindBill, Date: at, Total: d(total), Items: items}
}

func newTestService(orders []order.Order, books *mockBooks) *Service {
	s := NewService(&mockOrders{orders: orders}, books, time.UTC)
	s.now = func() time.Time { return now }
	return s
}

func TestExpenses_Daily(t *testing.T) {
	daily := DefaultExpenses().Daily()
	assert.True(t, d("500").Equal(daily.Salary))
	assert.True(t, d("100").Equal(daily.Rent))
	assert.True(t, d("40").Equal(daily.Power))
	assert.True(t, d("133").Equal(daily.Other))
	assert.True(t, d("773").Equal(daily.Total))
}

func TestService_Dashboard(t *testing.T) {
	kot := billAt(now, "999")
	kot.Type = order.KindKOT

	orders := []order.Order{
		billAt(now, "1000"),
		billAt(now.Add(-time.Hour), "500"),
		billAt(now.AddDate(0, 0, -3), "300"),
		billAt(time.Date(2025, 2, 10, 10, 0, 0, 0, time.UTC), "700"),
		billAt(time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC), "50"),
		kot,
	}
	books := &mockBooks{purchases: []Purchase{
		{Date: now, Item: "Flour", Qty: d("2"), Price: d("50")},
		{Date: now.AddDate(0, 0, -1), Item: "Oil", Qty: d("1"), Price: d("500")},
	}}
	s := newTestService(orders, books)

	got, err := s.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2025-03-14", got.Date)
	assert.True(t, d("1500").Equal(got.TodaySales), got.TodaySales.String())
	assert.True(t, d("1800").Equal(got.MonthSales))
	assert.Equal(t, 3, got.MonthCount)
	assert.True(t, d("700").Equal(got.LastMonthSales))
	assert.Equal(t, 1, got.LastMonthCount)
	assert.True(t, d("900").Equal(got.DailyAverage))
	assert.Equal(t, 5, got.Transactions)
	assert.True(t, d("100").Equal(got.TodayPurchases))
	// 1500 - (100 + 773)
	assert.True(t, d("627").Equal(got.ProfitLoss), got.ProfitLoss.String())
}

func TestService_DashboardUsesSavedExpenses(t *testing.T) {
	books := &mockBooks{}
	s := newTestService(nil, books)

	require.NoError(t, s.SaveExpenses(context.Background(), Expenses{
		SalaryPerDay:  d("100"),
		RentPerMonth:  d("0"),
		PowerPerMonth: d("0"),
		OtherPerMonth: d("0"),
	}))

	got, err := s.Dashboard(context.Background())
	require.NoError(t, err)
	assert.True(t, d("-100").Equal(got.ProfitLoss))

	err = s.SaveExpenses(context.Background(), Expenses{SalaryPerDay: d("-1")})
	require.Error(t, err)
}

func TestService_Sales(t *testing.T) {
	orders := []order.Order{
		billAt(now, "300", line("Burger", "Food", "100", 2), line("Cola", "Drinks", "50", 2)),
		billAt(now.AddDate(0, 0, -1), "50", line("Cola", "Drinks", "50", 1)),
		billAt(now.AddDate(0, 0, -10), "120", line("Burger", "Food", "120", 1)),
	}
	s := newTestService(orders, &mockBooks{})

	tests := []struct {
		name      string
		filter    SalesFilter
		wantTotal string
		wantTx    int
		wantItems []ItemSales
		wantAvg   string
	}{
		{
			name:      "all categories, open range",
			filter:    SalesFilter{Category: "all"},
			wantTotal: "470",
			wantTx:    3,
			wantItems: []ItemSales{{Name: "Burger", Amount: d("320")}, {Name: "Cola", Amount: d("150")}},
			wantAvg:   "156.67",
		},
		{
			name:      "drinks only",
			filter:    SalesFilter{Category: "Drinks"},
			wantTotal: "350",
			wantTx:    2,
			wantItems: []ItemSales{{Name: "Cola", Amount: d("150")}},
			wantAvg:   "116.67",
		},
		{
			name:      "date range is inclusive",
			filter:    SalesFilter{From: now.AddDate(0, 0, -1), To: now.AddDate(0, 0, -1)},
			wantTotal: "50",
			wantTx:    1,
			wantItems: []ItemSales{{Name: "Cola", Amount: d("50")}},
			wantAvg:   "50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Sales(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.True(t, d(tt.wantTotal).Equal(got.Total), got.Total.String())
			assert.Equal(t, tt.wantTx, got.Transactions)
			assert.True(t, d(tt.wantAvg).Equal(got.DailyAverage), got.DailyAverage.String())
			require.Len(t, got.ByItem, len(tt.wantItems))
			for i, want := range tt.wantItems {
				assert.Equal(t, want.Name, got.ByItem[i].Name)
				assert.True(t, want.Amount.Equal(got.ByItem[i].Amount))
			}
			assert.Equal(t, []string{"Food", "Drinks"}, got.Categories)
		})
	}
}

func TestService_Trend7Days(t *testing.T) {
	orders := []order.Order{
		billAt(now, "100", line("Tea", "", "20", 5)),
		billAt(now.AddDate(0, 0, -6), "40", line("Samosa", "", "20", 2)),
		billAt(now.AddDate(0, 0, -7), "999", line("Old", "", "999", 1)),
	}
	s := newTestService(orders, &mockBooks{})

	got, err := s.Trend(context.Background(), Last7Days)
	require.NoError(t, err)
	require.Len(t, got.Labels, 7)
	assert.Equal(t, "08 Mar", got.Labels[0])
	assert.Equal(t, "14 Mar", got.Labels[6])
	assert.True(t, d("40").Equal(got.Sales[0]))
	assert.True(t, d("100").Equal(got.Sales[6]))
	assert.Equal(t, 5, got.Items[6])
	assert.Equal(t, []order.ItemCount{{Name: "Tea", Qty: 5}, {Name: "Samosa", Qty: 2}}, got.TopItems)
}

func TestService_Trend6Months(t *testing.T) {
	orders := []order.Order{
		billAt(now, "100", line("Tea", "", "20", 5)),
		billAt(time.Date(2024, 10, 31, 10, 0, 0, 0, time.UTC), "70", line("Cake", "", "70", 1)),
		billAt(time.Date(2024, 9, 30, 10, 0, 0, 0, time.UTC), "999", line("Old", "", "999", 1)),
	}
	s := newTestService(orders, &mockBooks{})

	got, err := s.Trend(context.Background(), Last6Months)
	require.NoError(t, err)
	assert.Equal(t, []string{"Oct", "Nov", "Dec", "Jan", "Feb", "Mar"}, got.Labels)
	assert.True(t, d("70").Equal(got.Sales[0]))
	assert.True(t, d("100").Equal(got.Sales[5]))
	assert.Equal(t, 1, got.Items[0])

	_, err = s.Trend(context.Background(), Window("1y"))
	require.ErrorIs(t, err, ErrInvalidWindow)
}

func TestService_AddPurchase(t *testing.T) {
	books := &mockBooks{}
	s := newTestService(nil, books)

	p, err := s.AddPurchase(context.Background(), Purchase{Item: " Milk ", Qty: d("3"), Price: d("25")})
	require.NoError(t, err)
	assert.Equal(t, "Milk", p.Item)
	assert.Equal(t, now, p.Date)
	assert.Len(t, books.purchases, 1)

	_, err = s.AddPurchase(context.Background(), Purchase{Item: "Milk", Qty: d("0"), Price: d("25")})
	require.ErrorIs(t, err, ErrInvalidPurchase)
}
