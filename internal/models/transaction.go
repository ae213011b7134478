package models

import (
	"fmt"
	"time"
)

// TransactionKind is the operation a ledger entry records
type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
	KindTransfer   TransactionKind = "transfer"
)

// ParseTransactionKind validates a kind received from a caller
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch k := TransactionKind(s); k {
	case KindDeposit, KindWithdrawal, KindTransfer:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// HasPayer reports whether money leaves an account for this kind
func (k TransactionKind) HasPayer() bool {
	return k == KindWithdrawal || k == KindTransfer
}

// HasReceiver reports whether money enters an account for this kind
func (k TransactionKind) HasReceiver() bool {
	return k == KindDeposit || k == KindTransfer
}

// Transaction is an immutable ledger entry. Exactly the participants implied by
// Kind are set; the other one is nil.
type Transaction struct {
	ID         int64           `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Kind       TransactionKind `json:"kind"`
	Amount     int64           `json:"amount"`
	PayerID    *int64          `json:"payer_id,omitempty"`
	ReceiverID *int64          `json:"receiver_id,omitempty"`
	Version    int64           `json:"version"`
}

// Involves reports whether the account took part in the transaction
func (t *Transaction) Involves(accountID int64) bool {
	return (t.PayerID != nil && *t.PayerID == accountID) ||
		(t.ReceiverID != nil && *t.ReceiverID == accountID)
}

// TransactionFilter narrows transaction listings. Zero values match everything.
type TransactionFilter struct {
	AccountID int64
	Kind      TransactionKind
	OwnerName string // matches the name of the client owning either participant
}
