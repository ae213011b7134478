package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus instruments for the ledger service
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	LockWait          *prometheus.HistogramVec
	RequestCounter    *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	RequestsInFlight  prometheus.Gauge
	NegativeBalances  prometheus.Gauge
	DBConnPoolStats   *prometheus.GaugeVec
}

// NewMetrics registers the instruments on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bank",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Total number of ledger operations by outcome",
			},
			[]string{"operation", "result"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bank",
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Ledger operation duration in seconds, lock wait included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		LockWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bank",
				Subsystem: "ledger",
				Name:      "write_lock_wait_seconds",
				Help:      "Time spent waiting for the write lock",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bank",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bank",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "bank",
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		NegativeBalances: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "bank",
				Subsystem: "ledger",
				Name:      "negative_balance_accounts",
				Help:      "Accounts with a negative balance at the last audit",
			},
		),
		DBConnPoolStats: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "bank",
				Subsystem: "db",
				Name:      "connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"stat"},
		),
	}
}

// ObserveOperation records the outcome of one ledger operation
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, result).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveLockWait records how long a writer waited for the lock
func (m *Metrics) ObserveLockWait(wait time.Duration, acquired bool) {
	if m == nil {
		return
	}
	result := "acquired"
	if !acquired {
		result = "timeout"
	}
	m.LockWait.WithLabelValues(result).Observe(wait.Seconds())
}

// RecordDBPoolStats records database connection pool statistics
func (m *Metrics) RecordDBPoolStats(stats sql.DBStats) {
	if m == nil {
		return
	}
	m.DBConnPoolStats.WithLabelValues("open").Set(float64(stats.OpenConnections))
	m.DBConnPoolStats.WithLabelValues("in_use").Set(float64(stats.InUse))
	m.DBConnPoolStats.WithLabelValues("idle").Set(float64(stats.Idle))
	m.DBConnPoolStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
	m.DBConnPoolStats.WithLabelValues("wait_duration_ms").Set(float64(stats.WaitDuration.Milliseconds()))
}
