package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"pharmapos/m/domain"
)

func (h *Handler) listSupplierOrders(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RolePharmacist) {
		return
	}
	orders, err := h.store.ListSupplierOrders(r.Context())
	if err != nil {
		h.respondStoreError(w, err, "unable to list supplier orders")
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

type supplierOrderRequest struct {
	ProductID    int64           `json:"product_id"`
	SupplierName string          `json:"supplier_name"`
	Quantity     int             `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
}

func (h *Handler) createSupplierOrder(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RolePharmacist) {
		return
	}
	var req supplierOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	so, err := h.store.CreateSupplierOrder(r.Context(), domain.SupplierOrder{
		ProductID:    req.ProductID,
		SupplierName: req.SupplierName,
		Quantity:     req.Quantity,
		UnitCost:     req.UnitCost,
	})
	if err != nil {
		h.respondStoreError(w, err, "unable to create supplier order")
		return
	}
	respondJSON(w, http.StatusCreated, so)
}

func (h *Handler) receiveSupplierOrder(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RolePharmacist) {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid supplier order id")
		return
	}
	var payload struct {
		BatchNumber    string `json:"batch_number"`
		ExpirationDate string `json:"expiration_date"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	so, err := h.store.ReceiveSupplierOrder(r.Context(), id, payload.BatchNumber, payload.ExpirationDate)
	if err != nil {
		h.respondStoreError(w, err, "unable to receive supplier order")
		return
	}
	respondJSON(w, http.StatusOK, so)
}
