// Package observability exposes service-level Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors the service increments.
type Metrics struct {
	SlicesServed    prometheus.Counter
	DegradedReplays prometheus.Counter
	StatsComputed   *prometheus.CounterVec
	StatsDuration   prometheus.Histogram
	NormalizeRaces  prometheus.Counter
	ForksCreated    prometheus.Counter
}

// New registers the collectors against the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SlicesServed: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustcore_slices_served_total",
			Help: "Replay slices reconstructed and served.",
		}),
		DegradedReplays: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustcore_degraded_replays_total",
			Help: "Slices served with replay_degraded set.",
		}),
		StatsComputed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trustcore_stats_computed_total",
			Help: "Statistical summaries computed, by outcome status.",
		}, []string{"status"}),
		StatsDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustcore_stats_duration_seconds",
			Help:    "Wall time of statistical summary computation.",
			Buckets: prometheus.DefBuckets,
		}),
		NormalizeRaces: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustcore_normalize_conflicts_total",
			Help: "Optimistic version conflicts during sibling normalization.",
		}),
		ForksCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustcore_forks_created_total",
			Help: "Nodes created by forking.",
		}),
	}
}
