package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the store, the ledger engine and its callers.
// Callers match with errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrVersionConflict       = errors.New("version conflict")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrMissingParticipant    = errors.New("missing participant")
	ErrUnexpectedParticipant = errors.New("unexpected participant")
	ErrSameAccount           = errors.New("payer and receiver are the same account")
	ErrNonZeroBalance        = errors.New("non-zero balance")
	ErrDissolveWindowExpired = errors.New("dissolve window expired")
	ErrLockTimeout           = errors.New("write lock timeout")
	ErrStoreFailure          = errors.New("store failure")
	ErrInvalidKind           = errors.New("invalid transaction kind")
	ErrInvalidInput          = errors.New("invalid input")
	ErrDuplicate             = errors.New("duplicate")
)

var (
	ErrAccountNotFound     = fmt.Errorf("account %w", ErrNotFound)
	ErrClientNotFound      = fmt.Errorf("client %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
)
