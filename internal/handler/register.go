package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/streetmagic-pos/internal/domain/cart"
	"github.com/xenking/streetmagic-pos/internal/domain/order"
	"github.com/xenking/streetmagic-pos/internal/domain/pos"
)

func (h *Handler) snapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.terminal.Snapshot())
}

// events streams a snapshot of the terminal after every change as
// Server-Sent Events. The current state is sent first.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// Without a deadline the server WriteTimeout would cut the stream. If it
	// cannot be lifted the client reconnects and gets a fresh snapshot.
	_ = rc.SetWriteDeadline(time.Time{})

	updates := make(chan pos.Snapshot, 16)
	unsubscribe := h.terminal.Subscribe(func(s pos.Snapshot) {
		select {
		case updates <- s:
		default:
			// Slow reader; it catches up with the next snapshot.
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(s pos.Snapshot) bool {
		data, err := json.Marshal(s)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	if !send(h.terminal.Snapshot()) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		case s := <-updates:
			if !send(s) {
				return
			}
		}
	}
}

func (h *Handler) totals(w http.ResponseWriter, r *http.Request) {
	discount := decimal.Zero
	if v := r.URL.Query().Get("discount"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			h.fail(w, r, badRequest("discount must be a number"))
			return
		}
		discount = d
	}
	writeJSON(w, http.StatusOK, h.terminal.Totals(discount))
}

type selectTableRequest struct {
	Table string `json:"table"`
}

func (h *Handler) selectTable(w http.ResponseWriter, r *http.Request) {
	var req selectTableRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.terminal.SelectTable(r.Context(), req.Table); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.terminal.Snapshot())
}

type addItemRequest struct {
	Index int    `json:"index"`
	Size  string `json:"size,omitempty"`
}

// addItem puts one unit of a menu item, or of one of its sizes, in the cart.
func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.menu.CartItem(r.Context(), req.Index, req.Size)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.terminal.AddItem(r.Context(), item); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.terminal.Snapshot())
}

type updateQtyRequest struct {
	Key   string `json:"key"`
	Delta int    `json:"delta"`
}

func (h *Handler) updateQty(w http.ResponseWriter, r *http.Request) {
	var req updateQtyRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	key, err := cart.ParseKey(req.Key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.terminal.UpdateQty(r.Context(), key, req.Delta); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.terminal.Snapshot())
}

type billRequest struct {
	Discount   decimal.Decimal `json:"discount"`
	CashPaid   decimal.Decimal `json:"cashPaid"`
	OnlinePaid decimal.Decimal `json:"onlinePaid"`
	Customer   *order.Contact  `json:"customer,omitempty"`
}

func (h *Handler) finalizeBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.terminal.FinalizeBill(r.Context(), pos.Payment{
		Discount: req.Discount,
		Cash:     req.CashPaid,
		Online:   req.OnlinePaid,
		Customer: req.Customer,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) finalizeKOT(w http.ResponseWriter, r *http.Request) {
	o, err := h.terminal.FinalizeKOT(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) park(w http.ResponseWriter, r *http.Request) {
	if err := h.terminal.Park(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.terminal.Snapshot())
}

func (h *Handler) resume(w http.ResponseWriter, r *http.Request) {
	if err := h.terminal.Resume(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.terminal.Snapshot())
}

type transferRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.terminal.TransferTable(r.Context(), req.From, req.To); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.terminal.Snapshot())
}

func (h *Handler) tables(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.terminal.Tables())
}

func (h *Handler) clearTableBill(w http.ResponseWriter, r *http.Request) {
	if err := h.terminal.ClearTableBill(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
