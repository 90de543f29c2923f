package pos

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/streetmagic-pos/internal/domain/order"
	"github.com/xenking/streetmagic-pos/internal/domain/table"
)

// Metrics counts finalized orders.
type Metrics struct {
	orders  metric.Int64Counter
	revenue metric.Float64Counter
}

// NewMetrics registers the terminal instruments on m.
func NewMetrics(m metric.Meter) (*Metrics, error) {
	orders, err := m.Int64Counter("pos.orders",
		metric.WithDescription("Finalized bills and KOTs"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders counter")
	}
	revenue, err := m.Float64Counter("pos.revenue",
		metric.WithDescription("Billed revenue"),
		metric.WithUnit("{currency}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "revenue counter")
	}
	return &Metrics{orders: orders, revenue: revenue}, nil
}

func (m *Metrics) finalized(ctx context.Context, o *order.Order) {
	if m == nil {
		return
	}
	dining := "dine_in"
	if o.Table == table.Takeaway {
		dining = "takeaway"
	}
	attrs := metric.WithAttributes(
		attribute.String("type", string(o.Kind())),
		attribute.String("dining", dining),
	)
	m.orders.Add(ctx, 1, attrs)
	if o.Kind() == order.KindBill {
		m.revenue.Add(ctx, o.Total.InexactFloat64(), attrs)
	}
}
