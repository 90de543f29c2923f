package handler

import (
	"net/http"

	"github.com/xenking/streetmagic-pos/internal/domain/report"
)

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.reports.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) sales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := h.parseDay(q.Get("from"), "from")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := h.parseDay(q.Get("to"), "to")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	s, err := h.reports.Sales(r.Context(), report.SalesFilter{
		From:     from,
		To:       to,
		Category: q.Get("category"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) trend(w http.ResponseWriter, r *http.Request) {
	window := report.Window(r.URL.Query().Get("window"))
	if window == "" {
		window = report.Last7Days
	}
	t, err := h.reports.Trend(r.Context(), window)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) expenses(w http.ResponseWriter, r *http.Request) {
	e, err := h.reports.Expenses(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) saveExpenses(w http.ResponseWriter, r *http.Request) {
	var e report.Expenses
	if err := decode(w, r, &e); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.reports.SaveExpenses(r.Context(), e); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) purchases(w http.ResponseWriter, r *http.Request) {
	ps, err := h.reports.Purchases(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if ps == nil {
		ps = []report.Purchase{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *Handler) addPurchase(w http.ResponseWriter, r *http.Request) {
	var p report.Purchase
	if err := decode(w, r, &p); err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.reports.AddPurchase(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}
