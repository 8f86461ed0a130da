package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	lookupHit  = "hit"
	lookupMiss = "miss"
)

var grantLookupsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "chainfleet",
		Subsystem: "auth",
		Name:      "grant_lookups_total",
		Help:      "Grant resolutions by cache result",
	},
	[]string{"result"},
)

func init() {
	metrics.Registry.MustRegister(grantLookupsTotal)
}
