package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/lib/pq"
)

// Store opens scoped transactions against the ledger database
type Store interface {
	// WithTx runs fn inside a read-write transaction. The transaction commits
	// when fn returns nil and rolls back on any error or panic.
	WithTx(ctx context.Context, fn func(Tx) error) error
	// ReadTx runs fn inside a read-only transaction that sees one snapshot.
	ReadTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the data access surface available inside a scoped transaction
type Tx interface {
	GetClient(ctx context.Context, id int64) (*models.Client, error)
	ListClients(ctx context.Context) ([]models.Client, error)
	InsertClient(ctx context.Context, client *models.Client) error
	// UpdateClient writes client if its stored version still equals client.Version
	// and advances client.Version on success.
	UpdateClient(ctx context.Context, client *models.Client) error
	DeleteClient(ctx context.Context, id int64) error

	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, error)
	InsertAccount(ctx context.Context, account *models.Account) error
	// UpdateAccount writes account if its stored version still equals
	// account.Version and advances account.Version on success.
	UpdateAccount(ctx context.Context, account *models.Account) error
	DeleteAccount(ctx context.Context, id int64) error

	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)
	ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	InsertTransaction(ctx context.Context, txn *models.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
}

// Postgres provides database operations on PostgreSQL
type Postgres struct {
	db          *sql.DB
	connTimeout time.Duration
}

// NewPostgres initializes a new PostgreSQL store. connTimeout bounds the wait
// for a pool connection when a transaction begins; zero waits as long as ctx.
func NewPostgres(db *sql.DB, connTimeout time.Duration) *Postgres {
	return &Postgres{db: db, connTimeout: connTimeout}
}

// WithTx implements Store
func (p *Postgres) WithTx(ctx context.Context, fn func(Tx) error) error {
	return p.run(ctx, nil, fn)
}

// ReadTx implements Store
func (p *Postgres) ReadTx(ctx context.Context, fn func(Tx) error) error {
	return p.run(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead}, fn)
}

func (p *Postgres) run(ctx context.Context, opts *sql.TxOptions, fn func(Tx) error) error {
	conn, err := p.reserve(ctx)
	if err != nil {
		return storeFailure("failed to reserve connection", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, opts)
	if err != nil {
		return storeFailure("failed to begin transaction", err)
	}
	// No-op once committed; rolls back on error returns and panics.
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeFailure("failed to commit transaction", err)
	}
	return nil
}

// reserve takes a pool connection, waiting at most connTimeout. Only the wait
// is bounded; the transaction on the connection still runs under ctx.
func (p *Postgres) reserve(ctx context.Context) (*sql.Conn, error) {
	if p.connTimeout <= 0 {
		return p.db.Conn(ctx)
	}
	waitCtx, cancel := context.WithTimeout(ctx, p.connTimeout)
	defer cancel()
	return p.db.Conn(waitCtx)
}

// pgTx implements Tx over a *sql.Tx
type pgTx struct {
	tx *sql.Tx
}

func storeFailure(msg string, err error) error {
	return fmt.Errorf("%s: %w: %w", msg, models.ErrStoreFailure, err)
}

// classify maps PostgreSQL constraint violations onto the domain taxonomy
func classify(msg string, err error, fkErr error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w: %s", msg, models.ErrDuplicate, pqErr.Detail)
		case "23503": // foreign_key_violation
			if fkErr != nil {
				return fmt.Errorf("%s: %w", msg, fkErr)
			}
		}
	}
	return storeFailure(msg, err)
}

// checkVersioned resolves a zero-row versioned UPDATE into not-found or conflict
func (t *pgTx) checkVersioned(ctx context.Context, table string, id int64, notFound error) error {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := t.tx.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return storeFailure("failed to check "+table, err)
	}
	if !exists {
		return notFound
	}
	return fmt.Errorf("%s %d: %w", table, id, models.ErrVersionConflict)
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
