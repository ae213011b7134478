package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/bank-ledger/internal/models"
)

const transactionColumns = `t.id, t.created_at, t.kind, t.amount, t.payer_id, t.receiver_id, t.version`

// GetTransaction retrieves a ledger entry by id
func (t *pgTx) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		WHERE t.id = $1`
	txn, err := scanTransaction(t.tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %d: %w", id, models.ErrTransactionNotFound)
	}
	if err != nil {
		return nil, storeFailure("failed to find transaction", err)
	}
	return txn, nil
}

// ListTransactions returns ledger entries ordered by id. The owner name filter
// joins both participants to their owning client.
func (t *pgTx) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	var (
		b     strings.Builder
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	b.WriteString(`SELECT ` + transactionColumns + ` FROM transactions t`)
	if filter.OwnerName != "" {
		b.WriteString(`
		LEFT JOIN accounts pa ON pa.id = t.payer_id
		LEFT JOIN clients pc ON pc.id = pa.owner_id
		LEFT JOIN accounts ra ON ra.id = t.receiver_id
		LEFT JOIN clients rc ON rc.id = ra.owner_id`)
		p := arg(filter.OwnerName)
		conds = append(conds, fmt.Sprintf("(pc.name = %s OR rc.name = %s)", p, p))
	}
	if filter.AccountID != 0 {
		p := arg(filter.AccountID)
		conds = append(conds, fmt.Sprintf("(t.payer_id = %s OR t.receiver_id = %s)", p, p))
	}
	if filter.Kind != "" {
		conds = append(conds, "t.kind = "+arg(string(filter.Kind)))
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY t.id")

	rows, err := t.tx.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, storeFailure("failed to list transactions", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, storeFailure("failed to scan transaction", err)
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailure("failed to list transactions", err)
	}
	return txns, nil
}

// InsertTransaction appends a ledger entry and fills in its id
func (t *pgTx) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (created_at, kind, amount, payer_id, receiver_id, version)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := t.tx.QueryRowContext(ctx, query,
		txn.Timestamp.UTC(), string(txn.Kind), txn.Amount,
		nullInt64(txn.PayerID), nullInt64(txn.ReceiverID), txn.Version).
		Scan(&txn.ID)
	if err != nil {
		return classify("failed to create transaction", err, models.ErrAccountNotFound)
	}
	return nil
}

// DeleteTransaction removes a ledger entry
func (t *pgTx) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return storeFailure("failed to delete transaction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeFailure("failed to delete transaction", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, models.ErrTransactionNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		txn             models.Transaction
		kind            string
		payer, receiver sql.NullInt64
	)
	if err := row.Scan(&txn.ID, &txn.Timestamp, &kind, &txn.Amount, &payer, &receiver, &txn.Version); err != nil {
		return nil, err
	}
	txn.Kind = models.TransactionKind(kind)
	txn.Timestamp = txn.Timestamp.UTC()
	txn.PayerID = int64Ptr(payer)
	txn.ReceiverID = int64Ptr(receiver)
	return &txn, nil
}
