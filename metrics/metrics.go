// Package metrics holds the Prometheus instrumentation for launchpadd.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics carries the collectors shared by the reconciler, the orchestrator
// and the catalog API. All collectors are registered on the registry passed
// to New, so tests can use an isolated registry.
type Metrics struct {
	Registry *prometheus.Registry

	// Reconciler
	BlocksProcessed    prometheus.Counter
	LastProcessedBlock prometheus.Gauge
	EventsApplied      *prometheus.CounterVec
	EventsSkipped      prometheus.Counter
	ReconcileErrors    prometheus.Counter

	// Orchestrator
	LedgerSubmissions  *prometheus.CounterVec
	PurchaseRejections *prometheus.CounterVec

	// Pinning
	PinRequests *prometheus.CounterVec
}

// New builds a Metrics set registered on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		BlocksProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "launchpadd_blocks_processed_total",
			Help: "number of ledger blocks scanned by the reconciler",
		}),
		LastProcessedBlock: factory.NewGauge(prometheus.GaugeOpts{
			Name: "launchpadd_last_processed_block",
			Help: "highest block number the reconciler has fully applied",
		}),
		EventsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpadd_events_applied_total",
			Help: "ledger events applied to the catalog, by event type",
		}, []string{"event"}),
		EventsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "launchpadd_events_skipped_total",
			Help: "ledger events skipped as malformed or irrelevant",
		}),
		ReconcileErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "launchpadd_reconcile_errors_total",
			Help: "reconciler ticks that ended in an error",
		}),
		LedgerSubmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpadd_ledger_submissions_total",
			Help: "transactions submitted to the launchpad contract, by operation and outcome",
		}, []string{"operation", "outcome"}),
		PurchaseRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpadd_purchase_rejections_total",
			Help: "purchase requests rejected before submission, by reason",
		}, []string{"reason"}),
		PinRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "launchpadd_pin_requests_total",
			Help: "metadata pinning requests, by outcome",
		}, []string{"outcome"}),
	}
}
