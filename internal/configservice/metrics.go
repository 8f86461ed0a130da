package configservice

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var sessionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "chainfleet",
		Subsystem: "configuration",
		Name:      "sessions_total",
		Help:      "Configuration session lifecycle events (created, create_failed, deleted)",
	},
	[]string{"event"},
)

func init() {
	metrics.Registry.MustRegister(sessionsTotal)
}
