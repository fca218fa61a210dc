package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateRegistry(&cfg.Registry)...)
	errs = append(errs, validateResources(cfg.Resources, cfg.Registry.Capacity)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateRegistry validates registry configuration.
func validateRegistry(cfg *RegistryConfig) []FieldError {
	var errs []FieldError

	if cfg.Capacity <= 0 {
		errs = append(errs, FieldError{
			Field:   "registry.capacity",
			Message: "capacity must be positive",
		})
	}
	if cfg.QueueCapacity <= 0 {
		errs = append(errs, FieldError{
			Field:   "registry.queue_capacity",
			Message: "queue capacity must be positive",
		})
	}
	if cfg.EnqueueTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "registry.enqueue_timeout",
			Message: "enqueue timeout must not be negative",
		})
	}
	if cfg.LoadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "registry.load_timeout",
			Message: "load timeout must not be negative",
		})
	}
	if cfg.OperationTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "registry.operation_timeout",
			Message: "operation timeout must not be negative",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "registry.shutdown_timeout",
			Message: "shutdown timeout must not be negative",
		})
	}

	return errs
}

// validateResources validates the resource list.
func validateResources(resources []ResourceConfig, capacity int) []FieldError {
	var errs []FieldError

	if capacity > 0 && len(resources) > capacity {
		errs = append(errs, FieldError{
			Field:   "resources",
			Message: fmt.Sprintf("%d resources configured but registry capacity is %d", len(resources), capacity),
		})
	}

	seen := make(map[string]int, len(resources))
	for i := range resources {
		res := &resources[i]
		prefix := fmt.Sprintf("resources[%d]", i)

		if res.Name == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".name",
				Message: "resource name is required",
			})
		} else if first, ok := seen[res.Name]; ok {
			errs = append(errs, FieldError{
				Field:   prefix + ".name",
				Message: fmt.Sprintf("duplicate resource name %q (first defined at resources[%d])", res.Name, first),
			})
		} else {
			seen[res.Name] = i
		}

		if res.Path == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".path",
				Message: "path is required",
			})
		}

		switch res.Type {
		case "file":
			validFormats := map[string]bool{"tsv": true, "yaml": true, "json": true}
			if !validFormats[res.Format] {
				errs = append(errs, FieldError{
					Field:   prefix + ".format",
					Message: fmt.Sprintf("invalid format %q: must be 'tsv', 'yaml', or 'json'", res.Format),
				})
			}
			if res.MaxSize < 0 {
				errs = append(errs, FieldError{
					Field:   prefix + ".max_size",
					Message: "max size must not be negative",
				})
			}
		case "sqlite":
			if res.Table == "" {
				errs = append(errs, FieldError{
					Field:   prefix + ".table",
					Message: "table is required for sqlite resources",
				})
			}
			if res.Watch {
				errs = append(errs, FieldError{
					Field:   prefix + ".watch",
					Message: "watch is only supported for file resources",
				})
			}
		default:
			errs = append(errs, FieldError{
				Field:   prefix + ".type",
				Message: fmt.Sprintf("invalid resource type %q: must be 'file' or 'sqlite'", res.Type),
			})
		}

		if res.Interval < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".interval",
				Message: "interval must not be negative",
			})
		} else if res.Interval > 0 && res.Interval < time.Second {
			errs = append(errs, FieldError{
				Field:   prefix + ".interval",
				Message: "interval must be at least 1s",
			})
		}

		if res.Schedule != "" {
			if _, err := cron.ParseStandard(res.Schedule); err != nil {
				errs = append(errs, FieldError{
					Field:   prefix + ".schedule",
					Message: fmt.Sprintf("invalid cron schedule %q: %v", res.Schedule, err),
				})
			}
		}
	}

	return errs
}

// validateServer validates admin server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: %v", cfg.ListenAddress, err),
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}
	if cfg.Logging.BufferSize < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.buffer_size",
			Message: "buffer size must not be negative",
		})
	}

	// Validate metrics
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Path == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path is required when metrics are enabled",
			})
		} else if cfg.Metrics.Path[0] != '/' {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with /",
			})
		}
	}
	for i := 1; i < len(cfg.Metrics.LoadDurationBuckets); i++ {
		if cfg.Metrics.LoadDurationBuckets[i] <= cfg.Metrics.LoadDurationBuckets[i-1] {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.load_duration_buckets",
				Message: "buckets must be strictly increasing",
			})
			break
		}
	}

	// Validate tracing configuration
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if cfg.Tracing.Sampler != "" && !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	// Validate health check paths
	paths := []struct {
		field string
		value string
	}{
		{"telemetry.health.liveness_path", cfg.Health.LivenessPath},
		{"telemetry.health.readiness_path", cfg.Health.ReadinessPath},
		{"telemetry.health.version_path", cfg.Health.VersionPath},
	}
	for _, p := range paths {
		if p.value == "" {
			errs = append(errs, FieldError{Field: p.field, Message: "path is required"})
		} else if p.value[0] != '/' {
			errs = append(errs, FieldError{Field: p.field, Message: "path must start with /"})
		}
	}
	if cfg.Health.CheckTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.check_timeout",
			Message: "check timeout must be positive",
		})
	}
	if cfg.Health.CheckTimeout > 60*time.Second {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.check_timeout",
			Message: "check timeout exceeds reasonable limit (60s)",
		})
	}

	return errs
}
