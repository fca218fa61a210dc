// Package telemetry groups the observability packages used by dyndict.
//
// # Components
//
//   - logging: structured logging on log/slog
//   - metrics: Prometheus metrics fed by the registry observer
//   - tracing: OpenTelemetry spans exported over OTLP
//   - health: liveness, readiness, and version endpoints
//
// The run command builds all four from config.TelemetryConfig and hands the
// logger, collector, and tracer to the registry through its options.
package telemetry
