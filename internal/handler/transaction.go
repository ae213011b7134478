package handler

import (
	"net/http"

	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/Dan9191/bank-ledger/internal/service"
)

type createTransactionRequest struct {
	Kind            string `json:"kind" validate:"required"`
	Amount          int64  `json:"amount"`
	PayerID         *int64 `json:"payer_id" validate:"omitempty,gt=0"`
	ReceiverID      *int64 `json:"receiver_id" validate:"omitempty,gt=0"`
	Password        string `json:"password" validate:"required"`
	PayerVersion    *int64 `json:"payer_version" validate:"omitempty,gt=0"`
	ReceiverVersion *int64 `json:"receiver_version" validate:"omitempty,gt=0"`
}

// CreateTransaction handles deposits, withdrawals and transfers
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := h.decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	kind, err := models.ParseTransactionKind(req.Kind)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	txn, err := h.svc.CreateTransaction(r.Context(), service.TransactionRequest{
		Kind:            kind,
		Amount:          req.Amount,
		PayerID:         req.PayerID,
		ReceiverID:      req.ReceiverID,
		Password:        req.Password,
		PayerVersion:    req.PayerVersion,
		ReceiverVersion: req.ReceiverVersion,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

// ListTransactions handles ledger listing with optional account, kind and owner filters
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, err := queryID(r, "account_id")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	filter := models.TransactionFilter{
		AccountID: accountID,
		OwnerName: r.URL.Query().Get("owner_name"),
	}
	if k := r.URL.Query().Get("kind"); k != "" {
		if filter.Kind, err = models.ParseTransactionKind(k); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	txns, err := h.svc.ListTransactions(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}

// GetTransaction handles ledger entry lookup
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.svc.GetTransaction(r.Context(), pathID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

// DissolveTransaction handles reversal of a recent ledger entry
func (h *Handler) DissolveTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.svc.DissolveTransaction(r.Context(), pathID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}
