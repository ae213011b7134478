package handler

import (
	"net/http"

	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/Dan9191/bank-ledger/internal/service"
)

type createClientRequest struct {
	NationalID string `json:"national_id" validate:"required,max=32"`
	Name       string `json:"name" validate:"required,max=255"`
}

type updateClientRequest struct {
	ExpectedVersion *int64  `json:"expected_version" validate:"omitempty,gt=0"`
	NationalID      *string `json:"national_id" validate:"omitempty,min=1,max=32"`
	Name            *string `json:"name" validate:"omitempty,min=1,max=255"`
}

type deleteClientResponse struct {
	Client   *models.Client   `json:"client"`
	Accounts []models.Account `json:"accounts"`
}

// CreateClient handles client registration
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := h.decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	client, err := h.svc.CreateClient(r.Context(), req.NationalID, req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

// ListClients handles client listing
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.ListClients(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if clients == nil {
		clients = []models.Client{}
	}
	writeJSON(w, http.StatusOK, clients)
}

// GetClient handles client lookup
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	client, err := h.svc.GetClient(r.Context(), pathID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// UpdateClient handles client changes
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var req updateClientRequest
	if err := h.decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	client, err := h.svc.UpdateClient(r.Context(), service.ClientUpdate{
		ID:              pathID(r),
		ExpectedVersion: req.ExpectedVersion,
		NationalID:      req.NationalID,
		Name:            req.Name,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// DeleteClient handles client removal together with its accounts
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	client, accounts, err := h.svc.DeleteClient(r.Context(), pathID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	writeJSON(w, http.StatusOK, deleteClientResponse{Client: client, Accounts: accounts})
}
