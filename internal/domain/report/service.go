package report

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/streetmagic-pos/internal/domain/order"
)

const topItemsLimit = 5

// Service builds reports. Only bills count as sales; KOT records repeat the
// items of a later bill.
type Service struct {
	orders OrderLister
	books  Repository
	loc    *time.Location
	now    func() time.Time
}

// NewService creates a report Service evaluating calendar days in loc (nil
// means UTC).
func NewService(orders OrderLister, books Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		orders: orders,
		books:  books,
		loc:    loc,
		now:    time.Now,
	}
}

func (s *Service) bills(ctx context.Context) ([]order.Order, error) {
	all, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	out := all[:0]
	for _, o := range all {
		if o.Kind() == order.KindBill {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Service) day(t time.Time) string {
	return t.In(s.loc).Format(order.DateLayout)
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// Expenses returns the saved expenses or the defaults.
func (s *Service) Expenses(ctx context.Context) (Expenses, error) {
	e, err := s.books.GetExpenses(ctx)
	if err != nil {
		return Expenses{}, errors.Wrap(err, "get expenses")
	}
	if e == nil {
		return DefaultExpenses(), nil
	}
	return *e, nil
}

// SaveExpenses stores new expense figures.
func (s *Service) SaveExpenses(ctx context.Context, e Expenses) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return s.books.SaveExpenses(ctx, e)
}

// Purchases lists recorded purchases.
func (s *Service) Purchases(ctx context.Context) ([]Purchase, error) {
	return s.books.ListPurchases(ctx)
}

// AddPurchase records a purchase; a zero date means now.
func (s *Service) AddPurchase(ctx context.Context, p Purchase) (*Purchase, error) {
	p.Item = strings.TrimSpace(p.Item)
	if p.Item == "" || !p.Qty.IsPositive() || p.Price.IsNegative() {
		return nil, ErrInvalidPurchase
	}
	if p.Date.IsZero() {
		p.Date = s.now().UTC()
	}
	if err := s.books.AddPurchase(ctx, p); err != nil {
		return nil, errors.Wrap(err, "add purchase")
	}
	return &p, nil
}

// Dashboard builds the headline report for today.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	bills, err := s.bills(ctx)
	if err != nil {
		return nil, err
	}
	purchases, err := s.books.ListPurchases(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list purchases")
	}
	expenses, err := s.Expenses(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	today := now.Format(order.DateLayout)
	lastMonth := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, s.loc)

	d := &Dashboard{
		Date:           today,
		TodaySales:     decimal.Zero,
		MonthSales:     decimal.Zero,
		LastMonthSales: decimal.Zero,
		DailyAverage:   decimal.Zero,
		TodayPurchases: decimal.Zero,
		Transactions:   len(bills),
		Expenses:       expenses.Daily(),
	}

	salesDays := make(map[string]struct{})
	for _, o := range bills {
		at := o.Date.In(s.loc)
		if at.Format(order.DateLayout) == today {
			d.TodaySales = d.TodaySales.Add(o.Total)
		}
		switch {
		case sameMonth(at, now):
			d.MonthSales = d.MonthSales.Add(o.Total)
			d.MonthCount++
			salesDays[at.Format(order.DateLayout)] = struct{}{}
		case sameMonth(at, lastMonth):
			d.LastMonthSales = d.LastMonthSales.Add(o.Total)
			d.LastMonthCount++
		}
	}
	if len(salesDays) > 0 {
		d.DailyAverage = d.MonthSales.Div(decimal.NewFromInt(int64(len(salesDays)))).Round(2)
	}

	for _, p := range purchases {
		if s.day(p.Date) == today {
			d.TodayPurchases = d.TodayPurchases.Add(p.Amount())
		}
	}
	d.ProfitLoss = d.TodaySales.Sub(d.TodayPurchases.Add(d.Expenses.Total))
	return d, nil
}

// Sales builds the filtered sales-by-item report. An order counts towards the
// total when at least one of its lines is in the selected category.
func (s *Service) Sales(ctx context.Context, f SalesFilter) (*Sales, error) {
	bills, err := s.bills(ctx)
	if err != nil {
		return nil, err
	}

	var from, to string
	if !f.From.IsZero() {
		from = s.day(f.From)
	}
	if !f.To.IsZero() {
		to = s.day(f.To)
	}
	all := f.Category == "" || f.Category == "all"

	out := &Sales{
		ByItem:       []ItemSales{},
		Total:        decimal.Zero,
		DailyAverage: decimal.Zero,
		Categories:   []string{},
	}
	itemPos := make(map[string]int)
	seenCat := make(map[string]struct{})
	days := make(map[string]struct{})

	for _, o := range bills {
		for _, it := range o.Items {
			if it.Category == "" {
				continue
			}
			if _, ok := seenCat[it.Category]; !ok {
				seenCat[it.Category] = struct{}{}
				out.Categories = append(out.Categories, it.Category)
			}
		}

		day := s.day(o.Date)
		if (from != "" && day < from) || (to != "" && day > to) {
			continue
		}
		days[day] = struct{}{}

		include := false
		for _, it := range o.Items {
			if !all && it.Category != f.Category {
				continue
			}
			include = true
			i, ok := itemPos[it.Name]
			if !ok {
				i = len(out.ByItem)
				itemPos[it.Name] = i
				out.ByItem = append(out.ByItem, ItemSales{Name: it.Name, Amount: decimal.Zero})
			}
			out.ByItem[i].Amount = out.ByItem[i].Amount.Add(it.Amount())
		}
		if include {
			out.Total = out.Total.Add(o.Total)
			out.Transactions++
		}
	}
	if len(days) > 0 {
		out.DailyAverage = out.Total.Div(decimal.NewFromInt(int64(len(days)))).Round(2)
	}
	return out, nil
}

// Trend builds per-day (7d) or per-month (6m) sales and item counts ending
// today, plus the best sellers over the window.
func (s *Service) Trend(ctx context.Context, w Window) (*Trend, error) {
	type bucket struct {
		label string
		key   string
	}

	now := s.now().In(s.loc)
	var (
		buckets []bucket
		keyOf   func(time.Time) string
	)
	switch w {
	case Last7Days:
		keyOf = func(t time.Time) string { return t.Format(order.DateLayout) }
		for i := 6; i >= 0; i-- {
			d := now.AddDate(0, 0, -i)
			buckets = append(buckets, bucket{label: d.Format("02 Jan"), key: keyOf(d)})
		}
	case Last6Months:
		keyOf = func(t time.Time) string { return t.Format("2006-01") }
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
		for i := 5; i >= 0; i-- {
			m := first.AddDate(0, -i, 0)
			buckets = append(buckets, bucket{label: m.Format("Jan"), key: keyOf(m)})
		}
	default:
		return nil, ErrInvalidWindow
	}

	bills, err := s.bills(ctx)
	if err != nil {
		return nil, err
	}

	t := &Trend{
		Window: w,
		Labels: make([]string, len(buckets)),
		Sales:  make([]decimal.Decimal, len(buckets)),
		Items:  make([]int, len(buckets)),
	}
	index := make(map[string]int, len(buckets))
	for i, b := range buckets {
		t.Labels[i] = b.label
		t.Sales[i] = decimal.Zero
		index[b.key] = i
	}

	counts := make(map[string]int)
	for _, o := range bills {
		i, ok := index[keyOf(o.Date.In(s.loc))]
		if !ok {
			continue
		}
		t.Sales[i] = t.Sales[i].Add(o.Total)
		for _, it := range o.Items {
			t.Items[i] += it.Qty
			counts[it.Name] += it.Qty
		}
	}
	t.TopItems = order.TopItems(counts, topItemsLimit)
	return t, nil
}
