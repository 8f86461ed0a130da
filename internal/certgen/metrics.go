package certgen

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	batchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chainfleet",
			Subsystem: "certgen",
			Name:      "batches_total",
			Help:      "Identity batches by kind and result (success, error)",
		},
		[]string{"kind", "result"},
	)

	batchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chainfleet",
			Subsystem: "certgen",
			Name:      "batch_duration_seconds",
			Help:      "Wall time to generate one identity batch",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"kind"},
	)
)

func init() {
	metrics.Registry.MustRegister(batchesTotal, batchDuration)
}

func observeBatch(kind Kind, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	batchesTotal.WithLabelValues(string(kind), result).Inc()
	batchDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
}
