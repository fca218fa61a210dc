package config

import (
	"path/filepath"
	"strings"
	"time"
)

// Default values for configuration fields.
const (
	// Registry defaults
	DefaultRegistryCapacity         = 100
	DefaultRegistryQueueCapacity    = 1024
	DefaultRegistryEnqueueTimeout   = 100 * time.Millisecond
	DefaultRegistryLoadTimeout      = 30 * time.Second
	DefaultRegistryOperationTimeout = time.Minute
	DefaultRegistryShutdownTimeout  = 30 * time.Second

	// Resource defaults
	DefaultResourceType        = "file"
	DefaultResourceFormat      = "tsv"
	DefaultResourceKeyColumn   = "key"
	DefaultResourceValueColumn = "value"
	DefaultResourceMaxSize     = int64(10 * 1024 * 1024) // 10MB

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:9090"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "dyndict"
	DefaultMetricsSubsystem    = "registry"
	DefaultTracingSampler      = "ratio"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingServiceName  = "dyndict"
	DefaultOTLPTimeout         = 10 * time.Second
	DefaultLivenessPath        = "/health"
	DefaultReadinessPath       = "/ready"
	DefaultVersionPath         = "/version"
	DefaultHealthCheckTimeout  = 5 * time.Second
)

// DefaultLoadDurationBuckets are the histogram buckets for resource load
// duration, in seconds.
var DefaultLoadDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30}

// ApplyDefaults fills in zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	// Registry defaults
	if cfg.Registry.Capacity == 0 {
		cfg.Registry.Capacity = DefaultRegistryCapacity
	}
	if cfg.Registry.QueueCapacity == 0 {
		cfg.Registry.QueueCapacity = DefaultRegistryQueueCapacity
	}
	if cfg.Registry.EnqueueTimeout == 0 {
		cfg.Registry.EnqueueTimeout = DefaultRegistryEnqueueTimeout
	}
	if cfg.Registry.LoadTimeout == 0 {
		cfg.Registry.LoadTimeout = DefaultRegistryLoadTimeout
	}
	if cfg.Registry.OperationTimeout == 0 {
		cfg.Registry.OperationTimeout = DefaultRegistryOperationTimeout
	}
	if cfg.Registry.ShutdownTimeout == 0 {
		cfg.Registry.ShutdownTimeout = DefaultRegistryShutdownTimeout
	}

	// Resource defaults - applied to each resource
	for i := range cfg.Resources {
		applyResourceDefaults(&cfg.Resources[i])
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

// applyResourceDefaults applies default values to a single resource.
func applyResourceDefaults(res *ResourceConfig) {
	if res.Type == "" {
		res.Type = DefaultResourceType
	}

	switch res.Type {
	case "file":
		if res.Format == "" {
			res.Format = formatFromPath(res.Path)
		}
		if res.MaxSize == 0 {
			res.MaxSize = DefaultResourceMaxSize
		}
	case "sqlite":
		if res.KeyColumn == "" {
			res.KeyColumn = DefaultResourceKeyColumn
		}
		if res.ValueColumn == "" {
			res.ValueColumn = DefaultResourceValueColumn
		}
	}
}

// formatFromPath derives a file format from the file extension.
func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return DefaultResourceFormat
	}
}

// applyTelemetryDefaults applies default values to telemetry configuration.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Metrics.LoadDurationBuckets) == 0 {
		cfg.Metrics.LoadDurationBuckets = append([]float64(nil), DefaultLoadDurationBuckets...)
	}

	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Tracing.OTLP.Timeout == 0 {
		cfg.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}

	if cfg.Health.LivenessPath == "" {
		cfg.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Health.ReadinessPath == "" {
		cfg.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Health.VersionPath == "" {
		cfg.Health.VersionPath = DefaultVersionPath
	}
	if cfg.Health.CheckTimeout == 0 {
		cfg.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}

// NewDefaultConfig returns a configuration with every default applied and no
// resources.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
