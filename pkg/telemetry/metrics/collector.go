package metrics

import (
	"sync"
	"time"

	"mercator-hq/dyndict/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// DefaultMaxEntries bounds the number of distinct entry label values. Names
// beyond it are reported as "other".
const DefaultMaxEntries = 10000

// otherLabel replaces entry names once the cardinality limit is reached.
const otherLabel = "other"

// Collector is the main orchestrator for all Prometheus metrics in dyndict.
// It implements registry.Observer, so a registry created with
// registry.WithObserver(collector) reports every borrow, release, load, and
// teardown here.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	entryMetrics     *EntryMetrics
	referenceMetrics *ReferenceMetrics
	sourceMetrics    *SourceMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "dyndict",
//		Subsystem: "registry",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.LoadDurationBuckets) == 0 {
		cfg.LoadDurationBuckets = append([]float64(nil), config.DefaultLoadDurationBuckets...)
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(DefaultMaxEntries),
	}

	c.entryMetrics = NewEntryMetrics(cfg, registry)
	c.referenceMetrics = NewReferenceMetrics(cfg, registry)
	c.sourceMetrics = NewSourceMetrics(cfg, registry)

	return c
}

// RegisterRuntimeMetrics adds the Go runtime and process collectors.
func (c *Collector) RegisterRuntimeMetrics() error {
	if err := c.registry.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	return c.registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
		Namespace: c.config.Namespace,
	}))
}

// label maps an entry name to a bounded label value.
func (c *Collector) label(name string) string {
	if c.cardinalityLimiter.Allow(name) {
		return name
	}
	return otherLabel
}

// EntryAdded records a newly active entry.
func (c *Collector) EntryAdded(name string) {
	if !c.config.Enabled {
		return
	}
	c.entryMetrics.Added(c.label(name))
}

// EntryRemoved records a torn down entry and drops its per-entry series.
func (c *Collector) EntryRemoved(name string) {
	if !c.config.Enabled {
		return
	}
	label := c.label(name)
	c.entryMetrics.Removed(label)
	if label != otherLabel {
		c.referenceMetrics.Forget(label)
	}
}

// LoadFinished records the outcome and duration of a Loader call.
//
// Parameters:
//   - name: entry name
//   - initial: true for the load performed by Add
//   - elapsed: time spent in the Loader
//   - err: nil on success
func (c *Collector) LoadFinished(name string, initial bool, elapsed time.Duration, err error) {
	if !c.config.Enabled {
		return
	}
	c.entryMetrics.RecordLoad(c.label(name), initial, elapsed, err)
}

// ReloadDeferred records a reload postponed because both versions are in use.
func (c *Collector) ReloadDeferred(name string) {
	if !c.config.Enabled {
		return
	}
	c.entryMetrics.RecordDeferred(c.label(name))
}

// Borrowed records a successful Borrow.
func (c *Collector) Borrowed(name string) {
	if !c.config.Enabled {
		return
	}
	c.referenceMetrics.Borrowed(c.label(name))
}

// Released records a successful Release.
func (c *Collector) Released(name string) {
	if !c.config.Enabled {
		return
	}
	c.referenceMetrics.Released(c.label(name))
}

// QueueFull records a notification that could not be enqueued.
func (c *Collector) QueueFull(name string) {
	if !c.config.Enabled {
		return
	}
	c.referenceMetrics.RecordQueueFull(c.label(name))
}

// ProtocolViolation records a rejected reference event.
func (c *Collector) ProtocolViolation(name string) {
	if !c.config.Enabled {
		return
	}
	c.referenceMetrics.RecordViolation(c.label(name))
}

// FileChanged records a filesystem event for a watched resource.
func (c *Collector) FileChanged(name string) {
	if !c.config.Enabled {
		return
	}
	c.sourceMetrics.RecordChange(c.label(name))
}

// ReloadThrottled records a watch-triggered reload suppressed by rate limiting.
func (c *Collector) ReloadThrottled(name string) {
	if !c.config.Enabled {
		return
	}
	c.sourceMetrics.RecordThrottled(c.label(name))
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label value is allowed. Returns true if the value
// already exists or if the limit has not been reached yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
