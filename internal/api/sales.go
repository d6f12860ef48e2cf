package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"pharmapos/m/domain"
	"pharmapos/m/internal/backend"
	"pharmapos/m/internal/sale"
	"pharmapos/m/internal/session"
	"pharmapos/m/internal/store"
)

type lineView struct {
	ProductID            int64        `json:"product_id"`
	ProductName          string       `json:"product_name"`
	BatchID              *int64       `json:"batch_id,omitempty"`
	BatchNumber          string       `json:"batch_number,omitempty"`
	Quantity             int          `json:"quantity"`
	UnitPrice            domain.Money `json:"unit_price"`
	Discount             domain.Money `json:"discount"`
	Total                domain.Money `json:"total"`
	RequiresPrescription bool         `json:"requires_prescription"`
}

type sessionView struct {
	ID                   string         `json:"id"`
	State                string         `json:"state"`
	Client               *domain.Client `json:"client"`
	Lines                []lineView     `json:"lines"`
	Subtotal             domain.Money   `json:"subtotal"`
	Discount             domain.Money   `json:"discount"`
	Final                domain.Money   `json:"final"`
	RequiresPrescription bool           `json:"requires_prescription"`
}

// viewOf renders the composer with money rounded for display.
func viewOf(id string, c *sale.Composer) sessionView {
	totals := c.Totals()
	v := sessionView{
		ID:                   id,
		State:                c.State().String(),
		Client:               c.Client(),
		Lines:                []lineView{},
		Subtotal:             domain.NewMoney(totals.Subtotal),
		Discount:             domain.NewMoney(totals.Discount),
		Final:                domain.NewMoney(totals.Final),
		RequiresPrescription: c.RequiresPrescription(),
	}
	for _, line := range c.Lines() {
		lv := lineView{
			ProductID:            line.Product.ID,
			ProductName:          line.Product.Name,
			Quantity:             line.Quantity,
			UnitPrice:            domain.NewMoney(line.UnitPrice),
			Discount:             domain.NewMoney(line.Discount),
			Total:                domain.NewMoney(line.Total),
			RequiresPrescription: line.Product.RequiresPrescription,
		}
		if line.Batch != nil {
			id := line.Batch.ID
			lv.BatchID = &id
			lv.BatchNumber = line.Batch.BatchNumber
		}
		v.Lines = append(v.Lines, lv)
	}
	return v
}

// withSession runs fn on the caller's session and answers with the
// session view, or the mapped error.
func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, status int, fn func(*sale.Composer) error) {
	sid := chi.URLParam(r, "sid")
	var view sessionView
	err := h.sessions.With(sid, currentUser(r), func(c *sale.Composer) error {
		if err := fn(c); err != nil {
			return err
		}
		view = viewOf(sid, c)
		return nil
	})
	if err != nil {
		h.respondSaleError(w, err)
		return
	}
	respondJSON(w, status, view)
}

func (h *Handler) openSession(w http.ResponseWriter, r *http.Request) {
	sid := h.sessions.Create(currentUser(r))
	var view sessionView
	_ = h.sessions.With(sid, currentUser(r), func(c *sale.Composer) error {
		view = viewOf(sid, c)
		return nil
	})
	respondJSON(w, http.StatusCreated, view)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(*sale.Composer) error { return nil })
}

func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "sid"), currentUser(r)); err != nil {
		h.respondSaleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addLineRequest struct {
	ProductID int64  `json:"product_id"`
	BatchID   *int64 `json:"batch_id"`
}

func (h *Handler) addLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.catalog.Product(r.Context(), req.ProductID)
	if err != nil {
		h.respondStoreError(w, err, "unable to load product")
		return
	}
	if !product.IsActive {
		respondError(w, http.StatusNotFound, "product is not available for sale")
		return
	}
	var batch *domain.Batch
	if req.BatchID != nil {
		batches, err := h.catalog.ProductBatches(r.Context(), product.ID)
		if err != nil {
			h.respondStoreError(w, err, "unable to list batches")
			return
		}
		for i := range batches {
			if batches[i].ID == *req.BatchID {
				batch = &batches[i]
				break
			}
		}
		if batch == nil {
			respondError(w, http.StatusNotFound, "batch not found for product")
			return
		}
	}
	h.withSession(w, r, http.StatusOK, func(c *sale.Composer) error {
		return c.AddLine(product, batch)
	})
}

// clearLines abandons the sale in progress and keeps the session open.
func (h *Handler) clearLines(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(c *sale.Composer) error {
		return c.Reset()
	})
}

func lineKey(r *http.Request) (int64, int64, bool) {
	productID, ok := pathID(r, "productID")
	if !ok {
		return 0, 0, false
	}
	var batchID int64
	if raw := r.URL.Query().Get("batch_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, 0, false
		}
		batchID = id
	}
	return productID, batchID, true
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	productID, batchID, ok := lineKey(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid line")
		return
	}
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.withSession(w, r, http.StatusOK, func(c *sale.Composer) error {
		return c.SetQuantity(productID, payload.Quantity, batchID)
	})
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	productID, batchID, ok := lineKey(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid line")
		return
	}
	h.withSession(w, r, http.StatusOK, func(c *sale.Composer) error {
		return c.RemoveLine(productID, batchID)
	})
}

func (h *Handler) setClient(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ClientID *int64 `json:"client_id"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var client *domain.Client
	if payload.ClientID != nil {
		c, err := h.clients.Client(r.Context(), *payload.ClientID)
		if err != nil {
			h.respondStoreError(w, err, "unable to load client")
			return
		}
		if !c.IsActive {
			respondError(w, http.StatusNotFound, "client is not active")
			return
		}
		client = &c
	}
	h.withSession(w, r, http.StatusOK, func(c *sale.Composer) error {
		return c.SetClient(client)
	})
}

type checkoutRequest struct {
	PaymentMethod        string `json:"payment_method"`
	PrescriptionAttached bool   `json:"prescription_attached"`
}

type checkoutResponse struct {
	Receipt *domain.Receipt `json:"receipt"`
	Session sessionView     `json:"session"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sid := chi.URLParam(r, "sid")
	var resp checkoutResponse
	err := h.sessions.With(sid, currentUser(r), func(c *sale.Composer) error {
		receipt, err := c.Submit(r.Context(), req.PaymentMethod, req.PrescriptionAttached)
		if err != nil {
			return err
		}
		resp = checkoutResponse{Receipt: receipt, Session: viewOf(sid, c)}
		return nil
	})
	if err != nil {
		h.respondSaleError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.SaleCompleted(resp.Receipt.PaymentMethod, resp.Receipt.FinalAmount.InexactFloat64())
	}
	respondJSON(w, http.StatusCreated, resp)
}

// respondSaleError answers with {"error", "code"}. Rule violations of the
// sale are 422; a rejected submission keeps the status class of its cause.
func (h *Handler) respondSaleError(w http.ResponseWriter, err error) {
	var subErr *sale.SubmissionError
	code := sale.Code(err)
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, session.ErrBusy):
		code = "SessionBusy"
		status = http.StatusConflict
	case errors.Is(err, sale.ErrSubmissionInFlight):
		status = http.StatusConflict
	case errors.Is(err, sale.ErrLineNotFound):
		status = http.StatusNotFound
	case errors.As(err, &subErr):
		status = submissionStatus(subErr.Err)
		h.logger.Warn("sale rejected by order api", zap.Error(subErr.Err))
	case code == "":
		h.logger.Error("sale session failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "unable to update sale")
		return
	}
	respondJSON(w, status, map[string]string{"error": err.Error(), "code": code})
}

func submissionStatus(err error) int {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, store.ErrInvalid), errors.Is(err, store.ErrNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrInsufficientStock), errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}
