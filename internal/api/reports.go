package api

import (
	"net/http"
	"strconv"
	"time"

	"pharmapos/m/domain"
)

func (h *Handler) dailySales(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RolePharmacist) {
		return
	}
	day := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
			return
		}
		day = parsed
	}
	report, err := h.store.DailySales(r.Context(), day)
	if err != nil {
		h.respondStoreError(w, err, "unable to build daily report")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) recentOrders(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RolePharmacist) {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	orders, err := h.store.RecentOrders(r.Context(), limit)
	if err != nil {
		h.respondStoreError(w, err, "unable to list orders")
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RolePharmacist) {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := h.store.Order(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "unable to load order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}
