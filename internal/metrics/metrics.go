// Package metrics exposes Prometheus collectors for the analysis pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// NodeRuns counts node executions by outcome (ok | timeout | fault).
	NodeRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analiz_node_runs_total",
			Help: "Total pipeline node executions by node and outcome",
		},
		[]string{"node", "outcome"},
	)

	// NodeDuration observes wall time per node execution.
	NodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analiz_node_duration_seconds",
			Help:    "Pipeline node execution duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"node"},
	)

	// Requests counts finished analyses by terminal result (done | error | degraded).
	Requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analiz_requests_total",
			Help: "Total analysis requests by terminal result",
		},
		[]string{"result"},
	)
)

// Register registers all pipeline collectors on the given registry.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(NodeRuns, NodeDuration, Requests)
}
