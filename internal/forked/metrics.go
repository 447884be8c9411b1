package forked

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts updates and merge outcomes. A nil *Metrics records nothing.
type Metrics struct {
	updates       *prometheus.CounterVec
	merges        *prometheus.CounterVec
	mergeDuration *prometheus.HistogramVec
}

// NewMetrics registers the resource metrics with reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		updates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forked_updates_total",
			Help: "Commits written by update, per fork",
		}, []string{"fork"}),
		merges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forked_merges_total",
			Help: "Merges by direction and outcome",
		}, []string{"direction", "outcome"}),
		mergeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forked_merge_duration_seconds",
			Help:    "Merge duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"direction"}),
	}
}

func (m *Metrics) observeUpdate(fork Fork) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(string(fork)).Inc()
}

func (m *Metrics) observeMerge(direction string, outcome MergeOutcome, started time.Time) {
	if m == nil {
		return
	}
	m.merges.WithLabelValues(direction, outcome.String()).Inc()
	m.mergeDuration.WithLabelValues(direction).Observe(time.Since(started).Seconds())
}
