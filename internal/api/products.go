package api

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmapos/m/domain"
	"pharmapos/m/internal/catalog"
)

// listProducts serves the sales screen's product list, narrowed by
// ?query= on name or barcode. Administrators may ask for inactive
// products with ?include_inactive=true, read from the local store.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []domain.Product
		err      error
	)
	if r.URL.Query().Get("include_inactive") == "true" {
		if !h.requireRole(w, r, domain.RoleAdmin, domain.RolePharmacist) {
			return
		}
		products, err = h.store.ListProducts(r.Context(), true)
	} else {
		products, err = h.catalog.ActiveProducts(r.Context())
	}
	if err != nil {
		h.respondStoreError(w, err, "unable to list products")
		return
	}
	respondJSON(w, http.StatusOK, catalog.Filter(products, r.URL.Query().Get("query")))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	p, err := h.catalog.Product(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "unable to load product")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

type productRequest struct {
	Name                 string             `json:"name"`
	Barcode              string             `json:"barcode"`
	Price                decimal.Decimal    `json:"price"`
	StockQuantity        int                `json:"stock_quantity"`
	AnvisaLabel          domain.AnvisaLabel `json:"anvisa_label"`
	RequiresPrescription bool               `json:"requires_prescription"`
	MaxQuantityPerSale   *int               `json:"max_quantity_per_sale"`
	IsActive             *bool              `json:"is_active"`
}

func (req productRequest) product() domain.Product {
	p := domain.Product{
		Name:                 req.Name,
		Barcode:              req.Barcode,
		Price:                req.Price,
		StockQuantity:        req.StockQuantity,
		AnvisaLabel:          req.AnvisaLabel,
		RequiresPrescription: req.RequiresPrescription,
		MaxQuantityPerSale:   req.MaxQuantityPerSale,
		IsActive:             true,
	}
	if p.AnvisaLabel == "" {
		p.AnvisaLabel = domain.LabelOverTheCounter
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	return p
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RolePharmacist) {
		return
	}
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.store.CreateProduct(r.Context(), req.product())
	if err != nil {
		h.respondStoreError(w, err, "unable to create product")
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RolePharmacist) {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := req.product()
	p.ID = id
	if err := h.store.UpdateProduct(r.Context(), p); err != nil {
		h.respondStoreError(w, err, "unable to update product")
		return
	}
	updated, err := h.store.Product(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "unable to load product")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RolePharmacist) {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var payload struct {
		Delta  int    `json:"delta"`
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Delta == 0 {
		respondError(w, http.StatusBadRequest, "delta must not be zero")
		return
	}
	p, err := h.store.AdjustStock(r.Context(), id, payload.Delta)
	if err != nil {
		h.respondStoreError(w, err, "unable to adjust stock")
		return
	}
	h.logger.Info("stock adjusted",
		zap.Int64("product_id", id),
		zap.Int("delta", payload.Delta),
		zap.Int("stock", p.StockQuantity),
		zap.String("reason", payload.Reason),
		zap.Int64("by", currentUser(r)))
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) productBatches(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	batches, err := h.catalog.ProductBatches(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "unable to list batches")
		return
	}
	respondJSON(w, http.StatusOK, batches)
}

func (h *Handler) expiringBatches(w http.ResponseWriter, r *http.Request) {
	days := h.expiryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "days must be a non-negative integer")
			return
		}
		days = parsed
	}
	batches, err := h.store.ExpiringBatches(r.Context(), days)
	if err != nil {
		h.respondStoreError(w, err, "unable to list expiring batches")
		return
	}
	respondJSON(w, http.StatusOK, batches)
}

func (h *Handler) paymentMethods(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, domain.PaymentMethods)
}
