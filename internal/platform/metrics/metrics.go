package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	TicketsRegistered     prometheus.Counter
	SettlementsSucceeded  prometheus.Counter
	SettlementsFailed     prometheus.Counter
	ReconcileCASConflicts prometheus.Counter
	RequestLatency        *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		TicketsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "citation_tickets_registered_total",
			Help: "Total number of tickets registered",
		}),
		SettlementsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "citation_settlements_succeeded_total",
			Help: "Total number of penalty settlement attempts that committed",
		}),
		SettlementsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "citation_settlements_failed_total",
			Help: "Total number of penalty settlement attempts reported in the failed list",
		}),
		ReconcileCASConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "citation_reconcile_cas_conflicts_total",
			Help: "Total number of compare-and-swap conflicts surfaced as stale_state",
		}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "citation_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveRequest records one HTTP request observation.
func (m *Metrics) ObserveRequest(route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestLatency.WithLabelValues(route, status).Observe(seconds)
}

// Nil-safe increment helpers so tests can wire services without metrics.

func (m *Metrics) IncTicketsRegistered() {
	if m != nil {
		m.TicketsRegistered.Inc()
	}
}

func (m *Metrics) IncSettlementsSucceeded() {
	if m != nil {
		m.SettlementsSucceeded.Inc()
	}
}

func (m *Metrics) IncSettlementsFailed() {
	if m != nil {
		m.SettlementsFailed.Inc()
	}
}

func (m *Metrics) IncReconcileCASConflicts() {
	if m != nil {
		m.ReconcileCASConflicts.Inc()
	}
}
