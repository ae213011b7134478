package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db, 0), mock
}

func TestWithTx_Commit(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO clients (national_id, name, version)`)).
		WithArgs("AB123", "Alice", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	client := &models.Client{NationalID: "AB123", Name: "Alice", Version: models.InitialVersion}
	err := store.WithTx(context.Background(), func(tx Tx) error {
		return tx.InsertClient(context.Background(), client)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), client.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnError(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "balance", "password_hash", "version"}))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx Tx) error {
		_, err := tx.GetAccount(context.Background(), 3)
		return err
	})
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginFailure(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := store.WithTx(context.Background(), func(Tx) error { return nil })
	assert.ErrorIs(t, err, models.ErrStoreFailure)
	assert.ErrorContains(t, err, "connection refused")
}

func TestWithTx_ConnectionWaitIsBounded(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	store := NewPostgres(db, 50*time.Millisecond)

	held, err := db.Conn(context.Background())
	require.NoError(t, err)

	start := time.Now()
	err = store.WithTx(context.Background(), func(Tx) error { return nil })
	assert.ErrorIs(t, err, models.ErrStoreFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	require.NoError(t, held.Close())
	mock.ExpectBegin()
	mock.ExpectCommit()
	err = store.WithTx(context.Background(), func(Tx) error { return nil })
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertClient_Duplicate(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO clients`)).
		WillReturnError(&pq.Error{Code: "23505", Detail: "Key (national_id)=(AB123) already exists."})
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx Tx) error {
		return tx.InsertClient(context.Background(), &models.Client{NationalID: "AB123", Name: "Alice", Version: 1})
	})
	assert.ErrorIs(t, err, models.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAccount_UnknownOwner(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO accounts`)).
		WithArgs(int64(9), int64(0), "hash", int64(1)).
		WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx Tx) error {
		return tx.InsertAccount(context.Background(), &models.Account{OwnerID: 9, PasswordHash: "hash", Version: 1})
	})
	assert.ErrorIs(t, err, models.ErrClientNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAccount(t *testing.T) {
	updateSQL := regexp.QuoteMeta(`WHERE id = $4 AND version = $5`)
	existsSQL := regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`)

	t.Run("advances version", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(updateSQL).
			WithArgs(int64(1), int64(700), "hash", int64(5), int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(4))
		mock.ExpectCommit()

		account := &models.Account{ID: 5, OwnerID: 1, Balance: 700, PasswordHash: "hash", Version: 3}
		err := store.WithTx(context.Background(), func(tx Tx) error {
			return tx.UpdateAccount(context.Background(), account)
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), account.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(updateSQL).WillReturnRows(sqlmock.NewRows([]string{"version"}))
		mock.ExpectQuery(existsSQL).WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		err := store.WithTx(context.Background(), func(tx Tx) error {
			return tx.UpdateAccount(context.Background(), &models.Account{ID: 5, Version: 2})
		})
		assert.ErrorIs(t, err, models.ErrVersionConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(updateSQL).WillReturnRows(sqlmock.NewRows([]string{"version"}))
		mock.ExpectQuery(existsSQL).WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		err := store.WithTx(context.Background(), func(tx Tx) error {
			return tx.UpdateAccount(context.Background(), &models.Account{ID: 5, Version: 2})
		})
		assert.ErrorIs(t, err, models.ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListTransactions_Filters(t *testing.T) {
	store, mock := newMock(t)
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	columns := []string{"id", "created_at", "kind", "amount", "payer_id", "receiver_id", "version"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		`WHERE (pc.name = $1 OR rc.name = $1) AND (t.payer_id = $2 OR t.receiver_id = $2) AND t.kind = $3 ORDER BY t.id`)).
		WithArgs("Alice", int64(3), "transfer").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(1, created, "transfer", 300, 3, nil, 1).
			AddRow(4, created, "transfer", 50, nil, 3, 1))
	mock.ExpectCommit()

	var txns []models.Transaction
	err := store.ReadTx(context.Background(), func(tx Tx) error {
		var err error
		txns, err = tx.ListTransactions(context.Background(), models.TransactionFilter{
			AccountID: 3, Kind: models.KindTransfer, OwnerName: "Alice",
		})
		return err
	})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, int64(3), *txns[0].PayerID)
	assert.Nil(t, txns[0].ReceiverID)
	assert.Nil(t, txns[1].PayerID)
	assert.Equal(t, models.KindTransfer, txns[1].Kind)
	assert.Equal(t, created, txns[1].Timestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTransactions_NoFilter(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM transactions t ORDER BY t\.id$`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "kind", "amount", "payer_id", "receiver_id", "version"}))
	mock.ExpectCommit()

	err := store.ReadTx(context.Background(), func(tx Tx) error {
		txns, err := tx.ListTransactions(context.Background(), models.TransactionFilter{})
		assert.Empty(t, txns)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertTransaction(t *testing.T) {
	store, mock := newMock(t)
	receiver := int64(2)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions`)).
		WithArgs(sqlmock.AnyArg(), "deposit", int64(150), nil, int64(2), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	txn := &models.Transaction{
		Timestamp:  time.Now(),
		Kind:       models.KindDeposit,
		Amount:     150,
		ReceiverID: &receiver,
		Version:    models.InitialVersion,
	}
	err := store.WithTx(context.Background(), func(tx Tx) error {
		return tx.InsertTransaction(context.Background(), txn)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), txn.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTransaction_NotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM transactions WHERE id = $1`)).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx Tx) error {
		return tx.DeleteTransaction(context.Background(), 8)
	})
	assert.ErrorIs(t, err, models.ErrTransactionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
