// Package receipt renders orders as the fixed-width text slips handed to the
// thermal printer.
package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/streetmagic-pos/internal/domain/order"
)

const (
	billRule = "------------------------------\n"
	kotRule  = "--------------------------------\n"

	currency = "₹"
)

// Render picks the slip layout for the kind of o. Times are printed in loc.
func Render(o *order.Order, loc *time.Location) string {
	if o.Kind() == order.KindKOT {
		return KOT(o, loc)
	}
	return Bill(o, loc)
}

func money(d decimal.Decimal) string {
	return currency + d.StringFixed(2)
}

// Bill renders the customer copy of a final bill.
func Bill(o *order.Order, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("   *** STREET MAGIC ***\n")
	b.WriteString(billRule)
	fmt.Fprintf(&b, "Bill No: %d\n", o.Number())
	fmt.Fprintf(&b, "Date: %s\n", o.Date.In(loc).Format("02/01/2006, 15:04:05"))
	fmt.Fprintf(&b, "Table: %s\n", o.Table)
	b.WriteString(billRule)
	b.WriteString("Item            Qty   Total\n")
	b.WriteString(billRule)
	for _, it := range o.Items {
		fmt.Fprintf(&b, "%-12s%3d  %7s\n", it.Name, it.Qty, money(it.Amount()))
	}
	b.WriteString(billRule)
	fmt.Fprintf(&b, "Subtotal:        %s\n", money(o.Subtotal))
	fmt.Fprintf(&b, "Discount:        %s\n", money(o.Discount))
	fmt.Fprintf(&b, "TOTAL:           %s\n", money(o.Total))
	fmt.Fprintf(&b, "Cash:            %s\n", money(o.CashPaid))
	fmt.Fprintf(&b, "Online:          %s\n", money(o.OnlinePaid))
	b.WriteString(billRule)
	b.WriteString("   Thank You, Visit Again!\n")
	return b.String()
}

// KOT renders the kitchen ticket. Takeaway orders print as Pickup.
func KOT(o *order.Order, loc *time.Location) string {
	at := o.Date.In(loc)
	dest := string(o.Table)
	if o.Table.IsTakeaway() || o.Table == "" {
		dest = "Pickup"
	}

	var b strings.Builder
	b.WriteString("      STREET MAGIC\n")
	fmt.Fprintf(&b, "Date: %s   %s\n", at.Format("02/01/2006"), at.Format("15:04"))
	fmt.Fprintf(&b, "KOT No: %d   %s\n", o.Number(), dest)
	b.WriteString(kotRule)
	b.WriteString("No. Item                 Qty\n")
	b.WriteString(kotRule)
	for i, it := range o.Items {
		fmt.Fprintf(&b, "%d. %-22s %d\n", i+1, it.Name, it.Qty)
	}
	b.WriteString(kotRule)
	fmt.Fprintf(&b, "Total Items: %d   Quantity: %d\n", len(o.Items), o.Quantity())
	return b.String()
}
