package metrics

import (
	"mercator-hq/dyndict/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ReferenceMetrics tracks borrows, releases, and the notification path.
//
// Metrics:
//   - dyndict_registry_borrows_total: Successful borrows by entry
//   - dyndict_registry_releases_total: Successful releases by entry
//   - dyndict_registry_references_outstanding: Borrowed handles not yet released
//   - dyndict_registry_queue_full_total: Notifications rejected by a full queue
//   - dyndict_registry_protocol_violations_total: Rejected reference events
type ReferenceMetrics struct {
	borrowsTotal    *prometheus.CounterVec
	releasesTotal   *prometheus.CounterVec
	outstanding     *prometheus.GaugeVec
	queueFullTotal  *prometheus.CounterVec
	violationsTotal *prometheus.CounterVec
}

// NewReferenceMetrics creates and registers reference metrics with the provided registry.
func NewReferenceMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ReferenceMetrics {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      name,
				Help:      help,
			},
			[]string{"entry"},
		)
	}

	rm := &ReferenceMetrics{
		borrowsTotal:  counter("borrows_total", "Total number of successful borrows"),
		releasesTotal: counter("releases_total", "Total number of successful releases"),
		outstanding: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "references_outstanding",
				Help:      "Number of borrowed handles not yet released",
			},
			[]string{"entry"},
		),
		queueFullTotal:  counter("queue_full_total", "Total number of notifications rejected by a full queue"),
		violationsTotal: counter("protocol_violations_total", "Total number of rejected reference events"),
	}

	registry.MustRegister(
		rm.borrowsTotal,
		rm.releasesTotal,
		rm.outstanding,
		rm.queueFullTotal,
		rm.violationsTotal,
	)

	return rm
}

// Borrowed records a borrow.
func (rm *ReferenceMetrics) Borrowed(entry string) {
	rm.borrowsTotal.WithLabelValues(entry).Inc()
	rm.outstanding.WithLabelValues(entry).Inc()
}

// Released records a release.
func (rm *ReferenceMetrics) Released(entry string) {
	rm.releasesTotal.WithLabelValues(entry).Inc()
	rm.outstanding.WithLabelValues(entry).Dec()
}

// RecordQueueFull records a rejected notification.
func (rm *ReferenceMetrics) RecordQueueFull(entry string) {
	rm.queueFullTotal.WithLabelValues(entry).Inc()
}

// RecordViolation records a rejected reference event.
func (rm *ReferenceMetrics) RecordViolation(entry string) {
	rm.violationsTotal.WithLabelValues(entry).Inc()
}

// Forget drops the outstanding gauge of a removed entry. Counters are kept
// so rates stay continuous across a delete and re-add.
func (rm *ReferenceMetrics) Forget(entry string) {
	rm.outstanding.DeleteLabelValues(entry)
}
