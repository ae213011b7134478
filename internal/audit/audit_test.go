package audit

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/Dan9191/bank-ledger/internal/metrics"
	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	accounts []models.Account
	err      error
}

func (s stubLister) ListAccounts(context.Context, models.AccountFilter) ([]models.Account, error) {
	return s.accounts, s.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestAuditor_Run(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	a := NewAuditor(stubLister{accounts: []models.Account{
		{ID: 1, Balance: 100},
		{ID: 2, Balance: -50},
		{ID: 3, Balance: 0},
		{ID: 4, Balance: -1},
	}}, quietLogger(), m)

	negative, err := a.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, negative, 2)
	assert.Equal(t, int64(2), negative[0].ID)
	assert.Equal(t, int64(4), negative[1].ID)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.NegativeBalances))
}

func TestAuditor_RunError(t *testing.T) {
	a := NewAuditor(stubLister{err: errors.New("boom")}, quietLogger(), nil)

	_, err := a.Run(context.Background())
	assert.ErrorContains(t, err, "boom")
}

func TestAuditor_StartRejectsBadSchedule(t *testing.T) {
	a := NewAuditor(stubLister{}, quietLogger(), nil)

	_, err := a.Start("every now and then")
	assert.Error(t, err)

	c, err := a.Start("@every 1h")
	require.NoError(t, err)
	c.Stop()
}
