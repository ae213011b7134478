package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/bank-ledger/internal/config"
	"github.com/Dan9191/bank-ledger/internal/lock"
	"github.com/Dan9191/bank-ledger/internal/metrics"
	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/Dan9191/bank-ledger/internal/repository"
	"github.com/Dan9191/bank-ledger/internal/utils"
	"github.com/sirupsen/logrus"
)

// Notifier is told about ledger changes after they commit
type Notifier interface {
	TransactionCommitted(txn *models.Transaction) error
	TransactionDissolved(txn *models.Transaction) error
}

// Service handles business logic
type Service struct {
	store    repository.Store
	locker   lock.Locker
	hasher   *utils.PasswordHasher
	log      *logrus.Logger
	metrics  *metrics.Metrics
	notifier Notifier
	now      func() time.Time

	lockTimeout    time.Duration
	dissolveWindow time.Duration
}

// Option customizes a Service
type Option func(*Service)

// WithClock replaces the wall clock used for timestamps and the dissolve window
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifier registers a post-commit notifier
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records operation metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService initializes a new service
func NewService(store repository.Store, locker lock.Locker, log *logrus.Logger, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		store:          store,
		locker:         locker,
		hasher:         utils.NewPasswordHasher(cfg.BcryptCost),
		log:            log,
		now:            time.Now,
		lockTimeout:    cfg.LockTimeout,
		dissolveWindow: cfg.DissolveWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// write runs fn as the only in-flight mutation: it takes the write lock with a
// bounded wait, then runs fn in a read-write transaction. Once the lock is held
// the transaction is detached from ctx cancellation so it always reaches commit
// or rollback.
func (s *Service) write(ctx context.Context, op string, fn func(context.Context, repository.Tx) error) (err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation(op, start, err) }()

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	release, err := s.locker.Acquire(lockCtx)
	cancel()
	s.metrics.ObserveLockWait(time.Since(start), err == nil)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return fmt.Errorf("%s: %w: %w", op, models.ErrLockTimeout, err)
		}
		return fmt.Errorf("%s: failed to acquire write lock: %w: %w", op, models.ErrStoreFailure, err)
	}
	defer release()

	detached := context.WithoutCancel(ctx)
	return s.store.WithTx(detached, func(tx repository.Tx) error {
		return fn(detached, tx)
	})
}

// read runs fn in a read-only transaction without touching the write lock
func (s *Service) read(ctx context.Context, op string, fn func(repository.Tx) error) (err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation(op, start, err) }()
	return s.store.ReadTx(ctx, fn)
}
