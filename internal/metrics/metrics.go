// Package metrics holds the Prometheus collectors Brokewise exports.
// A nil *Metrics is valid and records nothing, so the calculation core can
// run without a registry (CLI, tests).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "brokewise"

// Rate lookup results.
const (
	RateIdentity = "identity"
	RateOK       = "ok"
	RateDegraded = "degraded"
)

// Metrics groups the collectors.
type Metrics struct {
	rateLookups        *prometheus.CounterVec
	expensesRejected   *prometheus.CounterVec
	settlements        prometheus.Counter
	settlementDuration prometheus.Histogram
	groupsPurged       prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rateLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_lookups_total",
			Help:      "Exchange rate lookups by result (identity, ok, degraded).",
		}, []string{"result"}),
		expensesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_rejected_total",
			Help:      "Expenses rejected at admission, by error kind.",
		}, []string{"kind"}),
		settlements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Settlement computations performed.",
		}),
		settlementDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settlement_duration_seconds",
			Help:      "Time to aggregate balances and reduce them to transfers.",
			Buckets:   prometheus.DefBuckets,
		}),
		groupsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_purged_total",
			Help:      "Inactive groups deleted by the retention janitor.",
		}),
	}
	reg.MustRegister(
		m.rateLookups,
		m.expensesRejected,
		m.settlements,
		m.settlementDuration,
		m.groupsPurged,
	)
	return m
}

// RateLookup counts one gateway lookup.
func (m *Metrics) RateLookup(result string) {
	if m == nil {
		return
	}
	m.rateLookups.WithLabelValues(result).Inc()
}

// ExpenseRejected counts one rejected expense.
func (m *Metrics) ExpenseRejected(kind string) {
	if m == nil {
		return
	}
	m.expensesRejected.WithLabelValues(kind).Inc()
}

// SettlementComputed records one settlement computation.
func (m *Metrics) SettlementComputed(d time.Duration) {
	if m == nil {
		return
	}
	m.settlements.Inc()
	m.settlementDuration.Observe(d.Seconds())
}

// GroupsPurged adds n purged groups.
func (m *Metrics) GroupsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.groupsPurged.Add(float64(n))
}
