package handler

import (
	"net/http"

	"github.com/xenking/streetmagic-pos/internal/domain/menu"
)

// listMenu returns indexed menu entries, optionally filtered by category,
// subcategory and a search query.
func (h *Handler) listMenu(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.menu.Find(r.Context(), q.Get("category"), q.Get("subcategory"), q.Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) menuCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.menu.Categories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *Handler) addMenuItem(w http.ResponseWriter, r *http.Request) {
	var d menu.Draft
	if err := decode(w, r, &d); err != nil {
		h.fail(w, r, err)
		return
	}
	idx, err := h.menu.Add(r.Context(), d)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"index": idx})
}

func (h *Handler) updateMenuItem(w http.ResponseWriter, r *http.Request) {
	idx, err := pathIndex(r, "index")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var d menu.Draft
	if err := decode(w, r, &d); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.menu.Update(r.Context(), idx, d); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteMenuItem(w http.ResponseWriter, r *http.Request) {
	idx, err := pathIndex(r, "index")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.menu.Delete(r.Context(), idx); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	From        int    `json:"from"`
	To          int    `json:"to"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}

func (h *Handler) moveMenuItem(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.menu.Move(r.Context(), req.From, req.To, req.Category, req.Subcategory); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
