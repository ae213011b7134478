package repository

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS clients (
		id          BIGSERIAL PRIMARY KEY,
		national_id TEXT NOT NULL UNIQUE,
		name        TEXT NOT NULL,
		version     BIGINT NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id            BIGSERIAL PRIMARY KEY,
		owner_id      BIGINT NOT NULL REFERENCES clients (id),
		balance       BIGINT NOT NULL DEFAULT 0,
		password_hash TEXT NOT NULL,
		version       BIGINT NOT NULL DEFAULT 1
	)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_owner ON accounts (owner_id)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id          BIGSERIAL PRIMARY KEY,
		created_at  TIMESTAMPTZ NOT NULL,
		kind        TEXT NOT NULL CHECK (kind IN ('deposit', 'withdrawal', 'transfer')),
		amount      BIGINT NOT NULL CHECK (amount > 0),
		payer_id    BIGINT REFERENCES accounts (id) ON DELETE SET NULL,
		receiver_id BIGINT REFERENCES accounts (id) ON DELETE SET NULL,
		version     BIGINT NOT NULL DEFAULT 1
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_payer ON transactions (payer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_receiver ON transactions (receiver_id)`,
}

// Migrate creates the ledger tables when they do not exist yet
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}
