package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Dan9191/bank-ledger/internal/config"
	"github.com/Dan9191/bank-ledger/internal/lock"
	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/Dan9191/bank-ledger/internal/repository/memory"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const testPassword = "secret"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu        sync.Mutex
	committed []int64
	dissolved []int64
}

func (n *recordingNotifier) TransactionCommitted(txn *models.Transaction) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.committed = append(n.committed, txn.ID)
	return nil
}

func (n *recordingNotifier) TransactionDissolved(txn *models.Transaction) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dissolved = append(n.dissolved, txn.ID)
	return nil
}

type fixture struct {
	svc    *Service
	store  *memory.Store
	locker *lock.Local
	clock  *clock
}

func testConfig() *config.Config {
	return &config.Config{
		BcryptCost:     4,
		LockTimeout:    time.Second,
		DissolveWindow: 300 * time.Second,
	}
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{
		store:  memory.New(),
		locker: lock.NewLocal(),
		clock:  &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	opts = append([]Option{WithClock(f.clock.Now)}, opts...)
	f.svc = NewService(f.store, f.locker, log, testConfig(), opts...)
	return f
}

func (f *fixture) client(t *testing.T, nationalID, name string) *models.Client {
	t.Helper()
	c, err := f.svc.CreateClient(context.Background(), nationalID, name)
	require.NoError(t, err)
	return c
}

func (f *fixture) account(t *testing.T, ownerID, balance int64) *models.Account {
	t.Helper()
	a, err := f.svc.CreateAccount(context.Background(), AccountCreate{
		OwnerID:  ownerID,
		Password: testPassword,
		Balance:  balance,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) balance(t *testing.T, id int64) int64 {
	t.Helper()
	a, err := f.svc.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return a.Balance
}

func (f *fixture) total(t *testing.T) int64 {
	t.Helper()
	accounts, err := f.svc.ListAccounts(context.Background(), models.AccountFilter{})
	require.NoError(t, err)
	var sum int64
	for _, a := range accounts {
		sum += a.Balance
	}
	return sum
}

func id(v int64) *int64 { return &v }
