package service

import (
	"context"
	"fmt"

	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/Dan9191/bank-ledger/internal/repository"
)

// AccountCreate describes a new account. Balance defaults to zero.
type AccountCreate struct {
	OwnerID  int64
	Password string
	Balance  int64
}

// AccountUpdate changes the fields that are set. ExpectedVersion, when set,
// must equal the stored version.
type AccountUpdate struct {
	ID              int64
	ExpectedVersion *int64
	OwnerID         *int64
	Password        *string
}

// GetAccount returns a single account
func (s *Service) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	var account *models.Account
	err := s.read(ctx, "get_account", func(tx repository.Tx) error {
		var err error
		account, err = tx.GetAccount(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// ListAccounts returns the accounts matching filter
func (s *Service) ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, error) {
	var accounts []models.Account
	err := s.read(ctx, "list_accounts", func(tx repository.Tx) error {
		var err error
		accounts, err = tx.ListAccounts(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Debugf("Listed %d accounts", len(accounts))
	return accounts, nil
}

// CreateAccount opens an account for an existing client
func (s *Service) CreateAccount(ctx context.Context, in AccountCreate) (*models.Account, error) {
	if in.Balance < 0 {
		return nil, fmt.Errorf("%w: initial balance %d is negative", models.ErrInvalidAmount, in.Balance)
	}
	// Hash outside the write lock; bcrypt is the slow part.
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		OwnerID:      in.OwnerID,
		Balance:      in.Balance,
		PasswordHash: hash,
		Version:      models.InitialVersion,
	}
	err = s.write(ctx, "create_account", func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetClient(ctx, in.OwnerID); err != nil {
			return err
		}
		return tx.InsertAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Account %d created for client %d", account.ID, account.OwnerID)
	return account, nil
}

// UpdateAccount changes the owner and/or password of an account
func (s *Service) UpdateAccount(ctx context.Context, in AccountUpdate) (*models.Account, error) {
	var hash string
	if in.Password != nil {
		var err error
		if hash, err = s.hasher.Hash(*in.Password); err != nil {
			return nil, err
		}
	}

	var account *models.Account
	err := s.write(ctx, "update_account", func(ctx context.Context, tx repository.Tx) error {
		var err error
		if account, err = tx.GetAccount(ctx, in.ID); err != nil {
			return err
		}
		if err := checkVersion("account", account.ID, account.Version, in.ExpectedVersion); err != nil {
			return err
		}
		if in.OwnerID != nil {
			if _, err := tx.GetClient(ctx, *in.OwnerID); err != nil {
				return err
			}
			account.OwnerID = *in.OwnerID
		}
		if in.Password != nil {
			account.PasswordHash = hash
		}
		return tx.UpdateAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Account %d updated to version %d", account.ID, account.Version)
	return account, nil
}

// DeleteAccount removes an account whose balance is zero
func (s *Service) DeleteAccount(ctx context.Context, id int64) (*models.Account, error) {
	var account *models.Account
	err := s.write(ctx, "delete_account", func(ctx context.Context, tx repository.Tx) error {
		var err error
		if account, err = tx.GetAccount(ctx, id); err != nil {
			return err
		}
		if account.Balance != 0 {
			return fmt.Errorf("account %d holds %d: %w", id, account.Balance, models.ErrNonZeroBalance)
		}
		return tx.DeleteAccount(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Account %d deleted", id)
	return account, nil
}

// checkVersion compares an optional caller-observed version with the stored one
func checkVersion(entity string, id, stored int64, expected *int64) error {
	if expected == nil || *expected == stored {
		return nil
	}
	return fmt.Errorf("%s %d at version %d, caller saw %d: %w",
		entity, id, stored, *expected, models.ErrVersionConflict)
}
