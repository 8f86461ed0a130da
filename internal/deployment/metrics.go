package deployment

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

// Deployment outcomes.
const (
	outcomeSucceeded = "succeeded"
	outcomeFailed    = "failed"
	outcomeTransport = "transport_error"
	outcomeStuck     = "stuck"
	outcomeAborted   = "aborted"
)

var (
	deploymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chainfleet",
			Subsystem: "deployment",
			Name:      "sessions_total",
			Help:      "Finished deployment sessions by outcome",
		},
		[]string{"outcome"},
	)

	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chainfleet",
			Subsystem: "deployment",
			Name:      "events_total",
			Help:      "Deployment session events processed by type",
		},
		[]string{"type"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chainfleet",
			Subsystem: "deployment",
			Name:      "active_sessions",
			Help:      "Deployment sessions currently being coordinated",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(deploymentsTotal, eventsTotal, activeSessions)
}
