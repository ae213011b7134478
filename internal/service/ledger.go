package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/Dan9191/bank-ledger/internal/repository"
)

// TransactionRequest asks the ledger to move money. PayerVersion and
// ReceiverVersion, when set, are the versions the caller last observed.
type TransactionRequest struct {
	Kind            models.TransactionKind
	Amount          int64
	PayerID         *int64
	ReceiverID      *int64
	Password        string
	PayerVersion    *int64
	ReceiverVersion *int64
}

// CreateTransaction validates and applies a deposit, withdrawal or transfer
// and appends its ledger entry, all in one atomic write.
//
// The password must belong to the account funds move out of: the payer for
// withdrawals and transfers, the receiver for deposits. Only that account is
// checked.
func (s *Service) CreateTransaction(ctx context.Context, req TransactionRequest) (*models.Transaction, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var txn *models.Transaction
	err := s.write(ctx, "create_transaction", func(ctx context.Context, tx repository.Tx) error {
		var err error
		txn, err = s.applyTransaction(ctx, tx, req)
		return err
	})
	if err != nil {
		s.log.Warnf("Transaction rejected: %s of %d: %v", req.Kind, req.Amount, err)
		return nil, err
	}

	s.log.Infof("Transaction %d committed: %s of %d (payer %s, receiver %s)",
		txn.ID, txn.Kind, txn.Amount, idString(txn.PayerID), idString(txn.ReceiverID))
	if s.notifier != nil {
		if err := s.notifier.TransactionCommitted(txn); err != nil {
			s.log.Warnf("Failed to notify about transaction %d: %v", txn.ID, err)
		}
	}
	return txn, nil
}

func validateRequest(req TransactionRequest) error {
	if _, err := models.ParseTransactionKind(string(req.Kind)); err != nil {
		return err
	}
	if req.Amount <= 0 {
		return fmt.Errorf("%w: %d", models.ErrInvalidAmount, req.Amount)
	}
	if req.Kind.HasPayer() && req.PayerID == nil {
		return fmt.Errorf("%s requires a payer: %w", req.Kind, models.ErrMissingParticipant)
	}
	if req.Kind.HasReceiver() && req.ReceiverID == nil {
		return fmt.Errorf("%s requires a receiver: %w", req.Kind, models.ErrMissingParticipant)
	}
	if !req.Kind.HasPayer() && req.PayerID != nil {
		return fmt.Errorf("%s takes no payer: %w", req.Kind, models.ErrUnexpectedParticipant)
	}
	if !req.Kind.HasReceiver() && req.ReceiverID != nil {
		return fmt.Errorf("%s takes no receiver: %w", req.Kind, models.ErrUnexpectedParticipant)
	}
	if req.Kind == models.KindTransfer && *req.PayerID == *req.ReceiverID {
		return fmt.Errorf("account %d: %w", *req.PayerID, models.ErrSameAccount)
	}
	return nil
}

func (s *Service) applyTransaction(ctx context.Context, tx repository.Tx, req TransactionRequest) (*models.Transaction, error) {
	var (
		payer, receiver *models.Account
		err             error
	)
	if req.Kind.HasPayer() {
		if payer, err = tx.GetAccount(ctx, *req.PayerID); err != nil {
			return nil, err
		}
		if err := checkVersion("payer account", payer.ID, payer.Version, req.PayerVersion); err != nil {
			return nil, err
		}
	}
	if req.Kind.HasReceiver() {
		if receiver, err = tx.GetAccount(ctx, *req.ReceiverID); err != nil {
			return nil, err
		}
		if err := checkVersion("receiver account", receiver.ID, receiver.Version, req.ReceiverVersion); err != nil {
			return nil, err
		}
	}

	authorizer := payer
	if authorizer == nil {
		authorizer = receiver
	}
	if !s.hasher.Verify(req.Password, authorizer.PasswordHash) {
		return nil, fmt.Errorf("account %d: %w", authorizer.ID, models.ErrUnauthorized)
	}

	if payer != nil {
		if req.Amount > payer.Balance {
			return nil, fmt.Errorf("account %d holds %d, needs %d: %w",
				payer.ID, payer.Balance, req.Amount, models.ErrInsufficientFunds)
		}
		payer.Balance -= req.Amount
		if err := tx.UpdateAccount(ctx, payer); err != nil {
			return nil, err
		}
	}
	if receiver != nil {
		if receiver.Balance > math.MaxInt64-req.Amount {
			return nil, fmt.Errorf("%w: account %d balance would overflow", models.ErrInvalidAmount, receiver.ID)
		}
		receiver.Balance += req.Amount
		if err := tx.UpdateAccount(ctx, receiver); err != nil {
			return nil, err
		}
	}

	txn := &models.Transaction{
		Timestamp:  s.now().UTC(),
		Kind:       req.Kind,
		Amount:     req.Amount,
		PayerID:    cloneID(req.PayerID),
		ReceiverID: cloneID(req.ReceiverID),
		Version:    models.InitialVersion,
	}
	if err := tx.InsertTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// DissolveTransaction reverses a ledger entry younger than the dissolve window
// and deletes it. Balances are restored without a funds check, so a receiver
// that already spent the money can end up negative.
func (s *Service) DissolveTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	var txn *models.Transaction
	err := s.write(ctx, "dissolve_transaction", func(ctx context.Context, tx repository.Tx) error {
		var err error
		if txn, err = tx.GetTransaction(ctx, id); err != nil {
			return err
		}
		if elapsed := s.now().Sub(txn.Timestamp); elapsed > s.dissolveWindow {
			return fmt.Errorf("transaction %d is %s old, limit %s: %w",
				id, elapsed.Truncate(time.Second), s.dissolveWindow, models.ErrDissolveWindowExpired)
		}

		var payer, receiver *models.Account
		if txn.Kind.HasPayer() {
			if payer, err = participant(ctx, tx, txn.PayerID); err != nil {
				return err
			}
		}
		if txn.Kind.HasReceiver() {
			if receiver, err = participant(ctx, tx, txn.ReceiverID); err != nil {
				return err
			}
		}

		if payer != nil {
			payer.Balance += txn.Amount
			if err := tx.UpdateAccount(ctx, payer); err != nil {
				return err
			}
		}
		if receiver != nil {
			receiver.Balance -= txn.Amount
			if err := tx.UpdateAccount(ctx, receiver); err != nil {
				return err
			}
		}
		return tx.DeleteTransaction(ctx, id)
	})
	if err != nil {
		s.log.Warnf("Dissolve of transaction %d rejected: %v", id, err)
		return nil, err
	}

	s.log.Infof("Transaction %d dissolved: %s of %d reversed", txn.ID, txn.Kind, txn.Amount)
	if s.notifier != nil {
		if err := s.notifier.TransactionDissolved(txn); err != nil {
			s.log.Warnf("Failed to notify about dissolved transaction %d: %v", txn.ID, err)
		}
	}
	return txn, nil
}

// participant reloads an account referenced by a ledger entry. A nil id means
// the account was deleted after the entry was written.
func participant(ctx context.Context, tx repository.Tx, id *int64) (*models.Account, error) {
	if id == nil {
		return nil, fmt.Errorf("participant was deleted: %w", models.ErrAccountNotFound)
	}
	return tx.GetAccount(ctx, *id)
}

// GetTransaction returns a single ledger entry
func (s *Service) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	var txn *models.Transaction
	err := s.read(ctx, "get_transaction", func(tx repository.Tx) error {
		var err error
		txn, err = tx.GetTransaction(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// ListTransactions returns the ledger entries matching filter
func (s *Service) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.read(ctx, "list_transactions", func(tx repository.Tx) error {
		var err error
		txns, err = tx.ListTransactions(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Debugf("Listed %d transactions", len(txns))
	return txns, nil
}

// Statement returns an account together with every ledger entry it took part in,
// read from one consistent snapshot
func (s *Service) Statement(ctx context.Context, accountID int64) (*models.Account, []models.Transaction, error) {
	var (
		account *models.Account
		txns    []models.Transaction
	)
	err := s.read(ctx, "statement", func(tx repository.Tx) error {
		var err error
		if account, err = tx.GetAccount(ctx, accountID); err != nil {
			return err
		}
		txns, err = tx.ListTransactions(ctx, models.TransactionFilter{AccountID: accountID})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return account, txns, nil
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func idString(id *int64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *id)
}
