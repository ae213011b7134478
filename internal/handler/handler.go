package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/Dan9191/bank-ledger/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Handler maps HTTP requests onto service operations
type Handler struct {
	svc      *service.Service
	log      *logrus.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler creates a handler over svc
func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log, validate: validator.New(), now: time.Now}
}

// Register adds every ledger route to r
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	r.HandleFunc("/clients", h.CreateClient).Methods(http.MethodPost)
	r.HandleFunc("/clients", h.ListClients).Methods(http.MethodGet)
	r.HandleFunc("/clients/{id:[0-9]+}", h.GetClient).Methods(http.MethodGet)
	r.HandleFunc("/clients/{id:[0-9]+}", h.UpdateClient).Methods(http.MethodPatch)
	r.HandleFunc("/clients/{id:[0-9]+}", h.DeleteClient).Methods(http.MethodDelete)

	r.HandleFunc("/accounts", h.CreateAccount).Methods(http.MethodPost)
	r.HandleFunc("/accounts", h.ListAccounts).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id:[0-9]+}", h.GetAccount).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id:[0-9]+}", h.UpdateAccount).Methods(http.MethodPatch)
	r.HandleFunc("/accounts/{id:[0-9]+}", h.DeleteAccount).Methods(http.MethodDelete)
	r.HandleFunc("/accounts/{id:[0-9]+}/statement", h.Statement).Methods(http.MethodGet)

	r.HandleFunc("/transactions", h.CreateTransaction).Methods(http.MethodPost)
	r.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{id:[0-9]+}", h.GetTransaction).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{id:[0-9]+}/dissolve", h.DissolveTransaction).Methods(http.MethodPost)
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{models.ErrNotFound, http.StatusNotFound, "not_found"},
	{models.ErrVersionConflict, http.StatusConflict, "version_conflict"},
	{models.ErrDuplicate, http.StatusConflict, "duplicate"},
	{models.ErrNonZeroBalance, http.StatusConflict, "non_zero_balance"},
	{models.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{models.ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds"},
	{models.ErrDissolveWindowExpired, http.StatusUnprocessableEntity, "dissolve_window_expired"},
	{models.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{models.ErrMissingParticipant, http.StatusBadRequest, "missing_participant"},
	{models.ErrUnexpectedParticipant, http.StatusBadRequest, "unexpected_participant"},
	{models.ErrSameAccount, http.StatusBadRequest, "same_account"},
	{models.ErrInvalidKind, http.StatusBadRequest, "invalid_kind"},
	{models.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{models.ErrLockTimeout, http.StatusServiceUnavailable, "lock_timeout"},
}

// writeError renders a service error with the status its kind maps to
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			writeJSON(w, e.status, errorResponse{Error: err.Error(), Code: e.code})
			return
		}
	}
	h.log.Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", Code: "store_failure"})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "invalid_input"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v and validates it
func (h *Handler) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := h.validate.Struct(v); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

func pathID(r *http.Request) int64 {
	// The route pattern guarantees digits; overflow falls through to not found.
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func queryID(r *http.Request, key string) (int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return id, nil
}
