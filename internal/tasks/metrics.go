package tasks

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	mergeApplied  = "applied"
	mergeNoop     = "noop"
	mergeConflict = "conflict"
)

var taskMergesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "chainfleet",
		Subsystem: "tasks",
		Name:      "merges_total",
		Help:      "Task merge attempts by result (applied, noop on terminal task, conflict)",
	},
	[]string{"result"},
)

func init() {
	metrics.Registry.MustRegister(taskMergesTotal)
}

func recordMerge(result string) {
	taskMergesTotal.WithLabelValues(result).Inc()
}
