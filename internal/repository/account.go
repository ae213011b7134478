package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/bank-ledger/internal/models"
)

// GetAccount retrieves an account by id
func (t *pgTx) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	account := &models.Account{}
	query := `
		SELECT id, owner_id, balance, password_hash, version
		FROM accounts
		WHERE id = $1`
	err := t.tx.QueryRowContext(ctx, query, id).
		Scan(&account.ID, &account.OwnerID, &account.Balance, &account.PasswordHash, &account.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %d: %w", id, models.ErrAccountNotFound)
	}
	if err != nil {
		return nil, storeFailure("failed to find account", err)
	}
	return account, nil
}

// ListAccounts returns accounts ordered by id
func (t *pgTx) ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, error) {
	query := `
		SELECT id, owner_id, balance, password_hash, version
		FROM accounts`
	var args []any
	if filter.OwnerID != 0 {
		query += ` WHERE owner_id = $1`
		args = append(args, filter.OwnerID)
	}
	query += ` ORDER BY id`

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeFailure("failed to list accounts", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Balance, &a.PasswordHash, &a.Version); err != nil {
			return nil, storeFailure("failed to scan account", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailure("failed to list accounts", err)
	}
	return accounts, nil
}

// InsertAccount creates a new account and fills in its id
func (t *pgTx) InsertAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (owner_id, balance, password_hash, version)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := t.tx.QueryRowContext(ctx, query, account.OwnerID, account.Balance, account.PasswordHash, account.Version).
		Scan(&account.ID)
	if err != nil {
		return classify("failed to create account", err,
			fmt.Errorf("client %d: %w", account.OwnerID, models.ErrClientNotFound))
	}
	return nil
}

// UpdateAccount implements Tx
func (t *pgTx) UpdateAccount(ctx context.Context, account *models.Account) error {
	query := `
		UPDATE accounts
		SET owner_id = $1, balance = $2, password_hash = $3, version = version + 1
		WHERE id = $4 AND version = $5
		RETURNING version`
	err := t.tx.QueryRowContext(ctx, query,
		account.OwnerID, account.Balance, account.PasswordHash, account.ID, account.Version).
		Scan(&account.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return t.checkVersioned(ctx, "accounts", account.ID,
			fmt.Errorf("account %d: %w", account.ID, models.ErrAccountNotFound))
	}
	if err != nil {
		return classify("failed to update account", err,
			fmt.Errorf("client %d: %w", account.OwnerID, models.ErrClientNotFound))
	}
	return nil
}

// DeleteAccount removes an account row
func (t *pgTx) DeleteAccount(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return storeFailure("failed to delete account", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeFailure("failed to delete account", err)
	}
	if n == 0 {
		return fmt.Errorf("account %d: %w", id, models.ErrAccountNotFound)
	}
	return nil
}
