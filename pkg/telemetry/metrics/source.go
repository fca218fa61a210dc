package metrics

import (
	"mercator-hq/dyndict/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SourceMetrics tracks file watching for file-backed resources.
//
// Metrics:
//   - dyndict_registry_source_changes_total: Filesystem changes seen per entry
//   - dyndict_registry_source_reloads_throttled_total: Watch reloads dropped by the rate limiter
type SourceMetrics struct {
	changesTotal   *prometheus.CounterVec
	throttledTotal *prometheus.CounterVec
}

// NewSourceMetrics creates and registers source metrics with the provided registry.
func NewSourceMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SourceMetrics {
	sm := &SourceMetrics{
		changesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "source_changes_total",
				Help:      "Total number of filesystem changes seen for watched resources",
			},
			[]string{"entry"},
		),
		throttledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "source_reloads_throttled_total",
				Help:      "Total number of watch-triggered reloads dropped by rate limiting",
			},
			[]string{"entry"},
		),
	}

	registry.MustRegister(sm.changesTotal, sm.throttledTotal)

	return sm
}

// RecordChange records a filesystem change.
func (sm *SourceMetrics) RecordChange(entry string) {
	sm.changesTotal.WithLabelValues(entry).Inc()
}

// RecordThrottled records a throttled reload.
func (sm *SourceMetrics) RecordThrottled(entry string) {
	sm.throttledTotal.WithLabelValues(entry).Inc()
}
