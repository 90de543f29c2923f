package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/streetmagic-pos/internal/domain/cart"
	"github.com/xenking/streetmagic-pos/internal/domain/order"
	"github.com/xenking/streetmagic-pos/internal/receipt"
)

func optDecimal(v, name string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, badRequest(name + " must be a number")
	}
	return &d, nil
}

func (h *Handler) parseDay(v, name string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(order.DateLayout, v, h.loc)
	if err != nil {
		return time.Time{}, badRequest(name + " must be YYYY-MM-DD")
	}
	return t, nil
}

func orderFilter(r *http.Request) (order.Filter, int, error) {
	q := r.URL.Query()
	f := order.Filter{
		Date:          q.Get("date"),
		BillNo:        q.Get("billNo"),
		CustomerName:  q.Get("customer"),
		CustomerPhone: q.Get("phone"),
	}
	if f.Date != "" {
		if _, err := time.Parse(order.DateLayout, f.Date); err != nil {
			return f, 0, badRequest("date must be YYYY-MM-DD")
		}
	}
	switch kind := order.Kind(strings.ToUpper(q.Get("type"))); kind {
	case "", order.KindBill, order.KindKOT:
		f.Kind = kind
	default:
		return f, 0, badRequest("type must be BILL or KOT")
	}

	var err error
	if f.MinTotal, err = optDecimal(q.Get("minTotal"), "minTotal"); err != nil {
		return f, 0, err
	}
	if f.MaxTotal, err = optDecimal(q.Get("maxTotal"), "maxTotal"); err != nil {
		return f, 0, err
	}

	page := 1
	if v := q.Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil {
			return f, 0, badRequest("page must be an integer")
		}
	}
	return f, page, nil
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	f, page, err := orderFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.orders.List(r.Context(), f, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) editItems(w http.ResponseWriter, r *http.Request) {
	var items []cart.LineItem
	if err := decode(w, r, &items); err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.orders.EditItems(r.Context(), r.PathValue("id"), items)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) duplicate(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Duplicate(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, receipt.Render(o, h.loc))
}

func (h *Handler) backup(w http.ResponseWriter, r *http.Request) {
	data, err := h.orders.Backup(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="orders_backup.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRestoreBytes))
	if err != nil {
		h.fail(w, r, badRequest("request body too large"))
		return
	}
	n, err := h.orders.Restore(r.Context(), data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"restored": n})
}

func (h *Handler) resetOrders(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Reset(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	day, err := h.parseDay(r.URL.Query().Get("date"), "date")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	s, err := h.orders.Summary(r.Context(), day)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	cs, err := h.customers.ListCustomers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.customers.GetCustomer(r.Context(), r.PathValue("phone"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
