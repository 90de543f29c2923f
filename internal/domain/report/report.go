// Package report derives sales, trend and profit figures from the order log.
package report

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/streetmagic-pos/internal/domain/order"
)

// ErrInvalidWindow is returned for an unknown trend window.
var ErrInvalidWindow = errors.New("unknown trend window")

// ErrInvalidPurchase is returned for purchases without an item or with
// non-positive quantity or negative price.
var ErrInvalidPurchase = errors.New("invalid purchase")

// ErrInvalidExpenses is returned for negative expense figures.
var ErrInvalidExpenses = errors.New("expenses must not be negative")

// daysPerMonth spreads monthly costs over a day.
var daysPerMonth = decimal.NewFromInt(30)

// Expenses are the running costs set against daily sales.
type Expenses struct {
	SalaryPerDay  decimal.Decimal `json:"salaryPerDay"`
	RentPerMonth  decimal.Decimal `json:"rentPerMonth"`
	PowerPerMonth decimal.Decimal `json:"powerPerMonth"`
	OtherPerMonth decimal.Decimal `json:"otherExpances"`
}

// DefaultExpenses applies until the owner saves their own figures.
func DefaultExpenses() Expenses {
	return Expenses{
		SalaryPerDay:  decimal.NewFromInt(500),
		RentPerMonth:  decimal.NewFromInt(3000),
		PowerPerMonth: decimal.NewFromInt(1200),
		OtherPerMonth: decimal.NewFromInt(4000),
	}
}

// DailyExpenses is one day's share of Expenses; monthly figures are divided
// by 30 and rounded to whole units.
type DailyExpenses struct {
	Salary decimal.Decimal `json:"salary"`
	Rent   decimal.Decimal `json:"rent"`
	Power  decimal.Decimal `json:"power"`
	Other  decimal.Decimal `json:"other"`
	Total  decimal.Decimal `json:"total"`
}

// Daily computes the per-day share.
func (e Expenses) Daily() DailyExpenses {
	d := DailyExpenses{
		Salary: e.SalaryPerDay,
		Rent:   e.RentPerMonth.Div(daysPerMonth).Round(0),
		Power:  e.PowerPerMonth.Div(daysPerMonth).Round(0),
		Other:  e.OtherPerMonth.Div(daysPerMonth).Round(0),
	}
	d.Total = d.Salary.Add(d.Rent).Add(d.Power).Add(d.Other)
	return d
}

// Validate rejects negative figures.
func (e Expenses) Validate() error {
	for _, v := range []decimal.Decimal{e.SalaryPerDay, e.RentPerMonth, e.PowerPerMonth, e.OtherPerMonth} {
		if v.IsNegative() {
			return ErrInvalidExpenses
		}
	}
	return nil
}

// Purchase is a stock purchase booked against the day's profit.
type Purchase struct {
	Date  time.Time       `json:"date"`
	Item  string          `json:"item"`
	Qty   decimal.Decimal `json:"qty"`
	Price decimal.Decimal `json:"price"`
}

// Amount is qty × price.
func (p Purchase) Amount() decimal.Decimal {
	return p.Qty.Mul(p.Price)
}

// Dashboard is the headline report.
type Dashboard struct {
	Date           string          `json:"date"`
	TodaySales     decimal.Decimal `json:"todaySales"`
	MonthSales     decimal.Decimal `json:"monthSales"`
	MonthCount     int             `json:"monthTransactions"`
	LastMonthSales decimal.Decimal `json:"lastMonthSales"`
	LastMonthCount int             `json:"lastMonthTransactions"`
	DailyAverage   decimal.Decimal `json:"dailyAverage"`
	Transactions   int             `json:"transactions"`
	TodayPurchases decimal.Decimal `json:"todayPurchases"`
	Expenses       DailyExpenses   `json:"expenses"`
	ProfitLoss     decimal.Decimal `json:"profitLoss"`
}

// SalesFilter selects orders for the filtered sales report. From and To are
// inclusive calendar days; zero values leave the range open. Category "all"
// or blank includes every line.
type SalesFilter struct {
	From     time.Time
	To       time.Time
	Category string
}

// ItemSales is the revenue of one item.
type ItemSales struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Sales is the filtered sales report.
type Sales struct {
	ByItem       []ItemSales     `json:"byItem"`
	Total        decimal.Decimal `json:"total"`
	Transactions int             `json:"transactions"`
	DailyAverage decimal.Decimal `json:"dailyAverage"`
	Categories   []string        `json:"categories"`
}

// Window selects a trend period.
type Window string

const (
	Last7Days   Window = "7d"
	Last6Months Window = "6m"
)

// Trend is chart data for a window: one bucket per day or month.
type Trend struct {
	Window   Window            `json:"window"`
	Labels   []string          `json:"labels"`
	Sales    []decimal.Decimal `json:"sales"`
	Items    []int             `json:"items"`
	TopItems []order.ItemCount `json:"topItems"`
}

// Repository persists expenses and purchases.
type Repository interface {
	GetExpenses(ctx context.Context) (*Expenses, error)
	SaveExpenses(ctx context.Context, e Expenses) error
	ListPurchases(ctx context.Context) ([]Purchase, error)
	AddPurchase(ctx context.Context, p Purchase) error
}

// OrderLister is the read side of the order log the reports need.
type OrderLister interface {
	ListOrders(ctx context.Context) ([]order.Order, error)
}
