package handler

import (
	"net/http"

	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/Dan9191/bank-ledger/internal/service"
	"github.com/Dan9191/bank-ledger/internal/statement"
)

type createAccountRequest struct {
	OwnerID  int64  `json:"owner_id" validate:"required,gt=0"`
	Password string `json:"password" validate:"required"`
	Balance  int64  `json:"balance" validate:"gte=0"`
}

type updateAccountRequest struct {
	ExpectedVersion *int64  `json:"expected_version" validate:"omitempty,gt=0"`
	OwnerID         *int64  `json:"owner_id" validate:"omitempty,gt=0"`
	Password        *string `json:"password" validate:"omitempty,min=1"`
}

// CreateAccount handles account creation
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := h.decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	account, err := h.svc.CreateAccount(r.Context(), service.AccountCreate{
		OwnerID:  req.OwnerID,
		Password: req.Password,
		Balance:  req.Balance,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// ListAccounts handles account listing, optionally by owner
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ownerID, err := queryID(r, "owner_id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	accounts, err := h.svc.ListAccounts(r.Context(), models.AccountFilter{OwnerID: ownerID})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

// GetAccount handles account lookup
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.svc.GetAccount(r.Context(), pathID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// UpdateAccount handles owner and password changes
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req updateAccountRequest
	if err := h.decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	account, err := h.svc.UpdateAccount(r.Context(), service.AccountUpdate{
		ID:              pathID(r),
		ExpectedVersion: req.ExpectedVersion,
		OwnerID:         req.OwnerID,
		Password:        req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// DeleteAccount handles removal of a zero-balance account
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.svc.DeleteAccount(r.Context(), pathID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Statement renders the account's ledger as XML
func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	account, txns, err := h.svc.Statement(r.Context(), pathID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	if err := statement.Write(w, account, txns, h.now()); err != nil {
		h.log.Errorf("Failed to write statement for account %d: %v", account.ID, err)
	}
}
