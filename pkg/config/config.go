package config

import "time"

// Config is the root configuration structure for dyndict.
// It contains the registry sizing, the resources to serve, the admin server
// and telemetry settings.
type Config struct {
	// Registry contains sizing and timeout configuration for the resource
	// registry.
	Registry RegistryConfig `yaml:"registry"`

	// Resources lists the resources loaded into the registry at startup.
	Resources []ResourceConfig `yaml:"resources"`

	// Server contains configuration for the admin HTTP server.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RegistryConfig contains configuration for the resource registry.
type RegistryConfig struct {
	// Capacity is the maximum number of entries the registry holds.
	// Default: 100
	Capacity int `yaml:"capacity"`

	// QueueCapacity is the number of pending borrow/release notifications
	// each entry buffers before callers start waiting.
	// Default: 1024
	QueueCapacity int `yaml:"queue_capacity"`

	// EnqueueTimeout is how long a borrow or release waits for room in a
	// full notification queue before failing.
	// Default: 100ms
	EnqueueTimeout time.Duration `yaml:"enqueue_timeout"`

	// LoadTimeout bounds a single load of a resource. Zero means no limit.
	// Default: 30s
	LoadTimeout time.Duration `yaml:"load_timeout"`

	// OperationTimeout bounds how long add and delete operations issued by
	// the CLI wait for the registry worker.
	// Default: 1m
	OperationTimeout time.Duration `yaml:"operation_timeout"`

	// ShutdownTimeout is the maximum duration to wait for outstanding
	// references to be released during shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ResourceConfig describes one resource served by the registry.
type ResourceConfig struct {
	// Name uniquely identifies the resource.
	Name string `yaml:"name"`

	// Type selects the loader.
	// Options: "file", "sqlite"
	// Default: "file"
	Type string `yaml:"type"`

	// Path is the file to load, or the SQLite database path.
	Path string `yaml:"path"`

	// Format is the file format for file resources.
	// Options: "tsv", "yaml", "json"
	// Default: derived from the file extension, falling back to "tsv"
	Format string `yaml:"format"`

	// Table is the table read by sqlite resources.
	Table string `yaml:"table"`

	// KeyColumn and ValueColumn name the columns read by sqlite resources.
	// Default: "key" and "value"
	KeyColumn   string `yaml:"key_column"`
	ValueColumn string `yaml:"value_column"`

	// Interval is the delay between periodic reloads. Zero disables
	// periodic reloads unless Schedule is set.
	Interval time.Duration `yaml:"interval"`

	// Schedule is a cron expression for reloads (e.g. "*/5 * * * *").
	// Takes precedence over Interval.
	Schedule string `yaml:"schedule"`

	// Watch reloads a file resource when the file changes on disk.
	// Default: false
	Watch bool `yaml:"watch"`

	// MaxSize is the largest file a file resource may load, in bytes.
	// Default: 10485760 (10MB)
	MaxSize int64 `yaml:"max_size"`
}

// ServerConfig contains configuration for the admin HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port for the admin server.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 60s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// BufferSize is the size of the async log buffer. Zero writes
	// synchronously.
	// Default: 0
	BufferSize int `yaml:"buffer_size"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "dyndict"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "registry"
	Subsystem string `yaml:"subsystem"`

	// LoadDurationBuckets defines histogram buckets for load duration (seconds).
	// Default: [0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30]
	LoadDurationBuckets []float64 `yaml:"load_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "dyndict"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for OTLP connection.
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// VersionPath is the path for the version information endpoint.
	// Default: "/version"
	VersionPath string `yaml:"version_path"`

	// CheckTimeout is the timeout for individual component health checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
