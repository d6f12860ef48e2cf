package api

import (
	"net/http"

	"go.uber.org/zap"

	"pharmapos/m/domain"
	"pharmapos/m/internal/store"
)

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	if includeInactive && !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	clients, err := h.store.ListClients(r.Context(), r.URL.Query().Get("query"), includeInactive)
	if err != nil {
		h.respondStoreError(w, err, "unable to list clients")
		return
	}
	respondJSON(w, http.StatusOK, clients)
}

func (h *Handler) getClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	c, err := h.store.Client(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "unable to load client")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

type clientRequest struct {
	Name       string            `json:"name"`
	CPF        string            `json:"cpf"`
	Phone      string            `json:"phone"`
	Email      *string           `json:"email"`
	Address    *string           `json:"address"`
	BirthDate  *string           `json:"birth_date"`
	ClientType domain.ClientType `json:"client_type"`
}

func (req clientRequest) client() domain.Client {
	return domain.Client{
		Name:       req.Name,
		CPF:        req.CPF,
		Phone:      req.Phone,
		Email:      nullIfEmpty(req.Email),
		Address:    nullIfEmpty(req.Address),
		BirthDate:  nullIfEmpty(req.BirthDate),
		ClientType: req.ClientType,
	}
}

func (h *Handler) createClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.store.CreateClient(r.Context(), req.client())
	if err != nil {
		h.respondStoreError(w, err, "unable to register client")
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (h *Handler) updateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	var req clientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	c := req.client()
	c.ID = id
	updated, err := h.store.UpdateClient(r.Context(), c)
	if err != nil {
		h.respondStoreError(w, err, "unable to update client")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// deleteClient honours an LGPD deletion request by anonymizing the client.
func (h *Handler) deleteClient(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RolePharmacist) {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	if err := h.store.AnonymizeClient(r.Context(), id, r.URL.Query().Get("reason")); err != nil {
		h.respondStoreError(w, err, "unable to delete client data")
		return
	}
	h.logger.Info("client data anonymized", zap.Int64("client_id", id), zap.Int64("by", currentUser(r)))
	respondJSON(w, http.StatusOK, map[string]string{"status": "client data anonymized"})
}

func (h *Handler) clientHistory(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	c, err := h.store.Client(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "unable to load client")
		return
	}
	history, err := store.ClientHistory(c)
	if err != nil {
		h.respondStoreError(w, err, "unable to read client history")
		return
	}
	if history == nil {
		history = []domain.ClientModification{}
	}
	respondJSON(w, http.StatusOK, history)
}
