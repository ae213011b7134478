package service

import (
	"context"
	"testing"

	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.client(t, "AB123", "Alice")

	a := f.account(t, c.ID, 250)
	assert.Equal(t, c.ID, a.OwnerID)
	assert.Equal(t, int64(250), a.Balance)
	assert.Equal(t, models.InitialVersion, a.Version)
	assert.NotEqual(t, testPassword, a.PasswordHash)

	_, err := f.svc.CreateAccount(ctx, AccountCreate{OwnerID: 77, Password: testPassword})
	assert.ErrorIs(t, err, models.ErrClientNotFound)

	_, err = f.svc.CreateAccount(ctx, AccountCreate{OwnerID: c.ID, Password: testPassword, Balance: -1})
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	_, err = f.svc.CreateAccount(ctx, AccountCreate{OwnerID: c.ID})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	accounts, err := f.svc.ListAccounts(ctx, models.AccountFilter{OwnerID: c.ID})
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestUpdateAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.client(t, "AB123", "Alice")
	bob := f.client(t, "CD456", "Bob")
	a := f.account(t, alice.ID, 100)

	pw := "new-secret"
	updated, err := f.svc.UpdateAccount(ctx, AccountUpdate{
		ID: a.ID, ExpectedVersion: id(1), OwnerID: id(bob.ID), Password: &pw,
	})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, updated.OwnerID)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, int64(100), updated.Balance)

	_, err = f.svc.CreateTransaction(ctx, TransactionRequest{
		Kind: models.KindWithdrawal, Amount: 10, PayerID: id(a.ID), Password: testPassword,
	})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, err = f.svc.CreateTransaction(ctx, TransactionRequest{
		Kind: models.KindWithdrawal, Amount: 10, PayerID: id(a.ID), Password: pw,
	})
	assert.NoError(t, err)

	_, err = f.svc.UpdateAccount(ctx, AccountUpdate{ID: a.ID, ExpectedVersion: id(2), Password: &pw})
	assert.ErrorIs(t, err, models.ErrVersionConflict)

	_, err = f.svc.UpdateAccount(ctx, AccountUpdate{ID: a.ID, OwnerID: id(99)})
	assert.ErrorIs(t, err, models.ErrClientNotFound)
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.client(t, "AB123", "Alice")
	funded := f.account(t, c.ID, 10)
	empty := f.account(t, c.ID, 0)

	_, err := f.svc.DeleteAccount(ctx, funded.ID)
	assert.ErrorIs(t, err, models.ErrNonZeroBalance)
	assert.Equal(t, int64(10), f.balance(t, funded.ID))

	deleted, err := f.svc.DeleteAccount(ctx, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, empty.ID, deleted.ID)

	_, err = f.svc.DeleteAccount(ctx, empty.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
