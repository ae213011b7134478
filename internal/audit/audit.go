// Package audit periodically scans account balances. Dissolving a transaction
// never checks funds, so an account can legitimately end up below zero; the
// audit makes such accounts visible.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/bank-ledger/internal/metrics"
	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// AccountLister is the read side of the ledger service the audit needs
type AccountLister interface {
	ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, error)
}

// Auditor checks balances
type Auditor struct {
	accounts AccountLister
	log      *logrus.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
}

// NewAuditor creates an auditor; m may be nil
func NewAuditor(accounts AccountLister, log *logrus.Logger, m *metrics.Metrics) *Auditor {
	return &Auditor{accounts: accounts, log: log, metrics: m, timeout: 30 * time.Second}
}

// Run performs one audit pass and returns the accounts with a negative balance
func (a *Auditor) Run(ctx context.Context) ([]models.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	accounts, err := a.accounts.ListAccounts(ctx, models.AccountFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for audit: %w", err)
	}

	var negative []models.Account
	for _, acc := range accounts {
		if acc.Balance < 0 {
			negative = append(negative, acc)
			a.log.WithFields(logrus.Fields{
				"account_id": acc.ID,
				"owner_id":   acc.OwnerID,
				"balance":    acc.Balance,
			}).Warn("Account balance is negative")
		}
	}
	if a.metrics != nil {
		a.metrics.NegativeBalances.Set(float64(len(negative)))
	}
	a.log.Debugf("Balance audit checked %d accounts, %d negative", len(accounts), len(negative))
	return negative, nil
}

// Start schedules Run on a cron spec such as "@every 1m". The returned
// scheduler is already running; stop it with Stop.
func (a *Auditor) Start(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := a.Run(context.Background()); err != nil {
			a.log.Errorf("Balance audit failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid audit schedule %q: %w", spec, err)
	}
	c.Start()
	a.log.Infof("Balance audit scheduled: %s", spec)
	return c, nil
}
