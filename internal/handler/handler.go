// Package handler exposes the POS terminal, menu, order history and reports
// as a JSON HTTP API.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/streetmagic-pos/internal/domain/cart"
	"github.com/xenking/streetmagic-pos/internal/domain/customer"
	"github.com/xenking/streetmagic-pos/internal/domain/menu"
	"github.com/xenking/streetmagic-pos/internal/domain/order"
	"github.com/xenking/streetmagic-pos/internal/domain/pos"
	"github.com/xenking/streetmagic-pos/internal/domain/report"
	"github.com/xenking/streetmagic-pos/internal/domain/table"
)

const (
	maxBodyBytes    = 1 << 20
	maxRestoreBytes = 32 << 20
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// Location is the time zone receipts are printed in. Nil means UTC.
	Location *time.Location
}

// Handler serves the API, delegating business logic to the domain services.
type Handler struct {
	terminal  *pos.CartStore
	menu      *menu.Service
	orders    *order.History
	reports   *report.Service
	customers customer.Repository
	loc       *time.Location

	done      chan struct{}
	closeOnce sync.Once
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	terminal *pos.CartStore,
	menuService *menu.Service,
	orders *order.History,
	reports *report.Service,
	customers customer.Repository,
) *Handler {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		terminal:  terminal,
		menu:      menuService,
		orders:    orders,
		reports:   reports,
		customers: customers,
		loc:       loc,
		done:      make(chan struct{}),
	}
}

// Shutdown ends open event streams so that http.Server.Shutdown does not
// wait on them. Register it with http.Server.RegisterOnShutdown.
func (h *Handler) Shutdown() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/menu", h.listMenu)
	mux.HandleFunc("POST /api/menu", h.addMenuItem)
	mux.HandleFunc("GET /api/menu/categories", h.menuCategories)
	mux.HandleFunc("POST /api/menu/move", h.moveMenuItem)
	mux.HandleFunc("PUT /api/menu/{index}", h.updateMenuItem)
	mux.HandleFunc("DELETE /api/menu/{index}", h.deleteMenuItem)

	mux.HandleFunc("GET /api/register", h.snapshot)
	mux.HandleFunc("GET /api/register/events", h.events)
	mux.HandleFunc("GET /api/register/totals", h.totals)
	mux.HandleFunc("POST /api/register/table", h.selectTable)
	mux.HandleFunc("POST /api/register/items", h.addItem)
	mux.HandleFunc("PATCH /api/register/items", h.updateQty)
	mux.HandleFunc("POST /api/register/bill", h.finalizeBill)
	mux.HandleFunc("POST /api/register/kot", h.finalizeKOT)
	mux.HandleFunc("POST /api/register/park", h.park)
	mux.HandleFunc("POST /api/register/resume", h.resume)
	mux.HandleFunc("POST /api/register/transfer", h.transfer)

	mux.HandleFunc("GET /api/tables", h.tables)
	mux.HandleFunc("DELETE /api/tables/{id}/bill", h.clearTableBill)

	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("DELETE /api/orders", h.resetOrders)
	mux.HandleFunc("GET /api/orders/backup", h.backup)
	mux.HandleFunc("POST /api/orders/restore", h.restore)
	mux.HandleFunc("GET /api/orders/summary", h.summary)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", h.deleteOrder)
	mux.HandleFunc("PUT /api/orders/{id}/items", h.editItems)
	mux.HandleFunc("POST /api/orders/{id}/duplicate", h.duplicate)
	mux.HandleFunc("GET /api/orders/{id}/receipt", h.receipt)

	mux.HandleFunc("GET /api/customers", h.listCustomers)
	mux.HandleFunc("GET /api/customers/{phone}", h.getCustomer)

	mux.HandleFunc("GET /api/reports/dashboard", h.dashboard)
	mux.HandleFunc("GET /api/reports/sales", h.sales)
	mux.HandleFunc("GET /api/reports/trend", h.trend)
	mux.HandleFunc("GET /api/expenses", h.expenses)
	mux.HandleFunc("PUT /api/expenses", h.saveExpenses)
	mux.HandleFunc("GET /api/purchases", h.purchases)
	mux.HandleFunc("POST /api/purchases", h.addPurchase)
}

// requestError is a malformed request.
type requestError string

func (e requestError) Error() string { return string(e) }

func badRequest(msg string) error {
	return requestError(msg)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	d := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := d.Decode(v); err != nil {
		return badRequest("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, extra func(e *jx.Encoder)) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(msg)
	if extra != nil {
		extra(&e)
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// fail maps domain errors to API errors. Anything unrecognised is logged and
// reported as 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		mismatch *pos.PaymentMismatchError
		invalid  *table.InvalidError
		bad      requestError
	)
	switch {
	case errors.As(err, &mismatch):
		writeError(w, http.StatusUnprocessableEntity, mismatch.Error(), func(e *jx.Encoder) {
			e.FieldStart("expected")
			e.Str(mismatch.Expected.StringFixed(2))
		})
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, invalid.Error(), nil)
	case errors.As(err, &bad),
		errors.Is(err, order.ErrInvalidRestore),
		errors.Is(err, report.ErrInvalidWindow),
		errors.Is(err, cart.ErrInvalidKey):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, menu.ErrNotFound),
		errors.Is(err, customer.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, pos.ErrEmptyCart),
		errors.Is(err, pos.ErrNothingParked),
		errors.Is(err, cart.ErrOutOfStock):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, pos.ErrInvalidPayment),
		errors.Is(err, menu.ErrInvalidItem),
		errors.Is(err, menu.ErrVariantRequired),
		errors.Is(err, menu.ErrUnknownVariant),
		errors.Is(err, report.ErrInvalidPurchase),
		errors.Is(err, report.ErrInvalidExpenses):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), nil)
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func pathIndex(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, badRequest(name + " must be an integer")
	}
	return n, nil
}
