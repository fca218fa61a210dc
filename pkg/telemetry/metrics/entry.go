package metrics

import (
	"time"

	"mercator-hq/dyndict/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// EntryMetrics tracks the lifecycle and load history of registry entries.
//
// Metrics:
//   - dyndict_registry_entries: Number of active entries
//   - dyndict_registry_loads_total: Loader calls by entry, kind, and result
//   - dyndict_registry_load_duration_seconds: Loader duration histogram
//   - dyndict_registry_last_load_timestamp_seconds: Time of the last successful load
//   - dyndict_registry_reloads_deferred_total: Reloads postponed because both versions were in use
type EntryMetrics struct {
	entries       prometheus.Gauge
	loadsTotal    *prometheus.CounterVec
	loadDuration  *prometheus.HistogramVec
	lastLoad      *prometheus.GaugeVec
	deferredTotal *prometheus.CounterVec
}

// NewEntryMetrics creates and registers entry metrics with the provided registry.
func NewEntryMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EntryMetrics {
	em := &EntryMetrics{
		entries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "entries",
				Help:      "Number of active registry entries",
			},
		),

		loadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "loads_total",
				Help:      "Total number of resource loads",
			},
			[]string{"entry", "kind", "result"},
		),

		loadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "load_duration_seconds",
				Help:      "Duration of resource loads in seconds",
				Buckets:   cfg.LoadDurationBuckets,
			},
			[]string{"entry", "kind"},
		),

		lastLoad: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "last_load_timestamp_seconds",
				Help:      "Unix time of the last successful load",
			},
			[]string{"entry"},
		),

		deferredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "reloads_deferred_total",
				Help:      "Total number of reloads postponed because both versions were in use",
			},
			[]string{"entry"},
		),
	}

	registry.MustRegister(
		em.entries,
		em.loadsTotal,
		em.loadDuration,
		em.lastLoad,
		em.deferredTotal,
	)

	return em
}

// Added increments the active entry gauge.
func (em *EntryMetrics) Added(entry string) {
	em.entries.Inc()
}

// Removed decrements the active entry gauge and drops the entry's
// last-load series.
func (em *EntryMetrics) Removed(entry string) {
	em.entries.Dec()
	if entry != otherLabel {
		em.lastLoad.DeleteLabelValues(entry)
	}
}

// RecordLoad records one Loader call.
func (em *EntryMetrics) RecordLoad(entry string, initial bool, elapsed time.Duration, err error) {
	kind := "reload"
	if initial {
		kind = "initial"
	}
	result := "success"
	if err != nil {
		result = "failure"
	}

	em.loadsTotal.WithLabelValues(entry, kind, result).Inc()
	em.loadDuration.WithLabelValues(entry, kind).Observe(elapsed.Seconds())
	if err == nil {
		em.lastLoad.WithLabelValues(entry).SetToCurrentTime()
	}
}

// RecordDeferred records a postponed reload.
func (em *EntryMetrics) RecordDeferred(entry string) {
	em.deferredTotal.WithLabelValues(entry).Inc()
}
