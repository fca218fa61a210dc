// Package server provides the admin HTTP server for a dyndict registry.
//
// The server exposes probes, metrics, and a small JSON API over the
// registry. It owns no registry state: every request goes through the
// public registry operations, so a lookup borrows the active version,
// reads it, and releases it before the response is written.
//
// # Basic Usage
//
//	srv := server.NewServer(&cfg.Server, server.Options{
//	    Registry: reg,
//	    Checker:  checker,
//	    Health:   &cfg.Telemetry.Health,
//	    Metrics:  collector,
//	    Tracer:   tracer,
//	    Logger:   logger,
//	})
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until ctx is cancelled or Shutdown is called, then waits up
// to server.shutdown_timeout for in-flight requests.
//
// # Routes
//
//   - GET /health - Liveness probe
//   - GET /ready - Readiness probe (registry live, configured entries active)
//   - GET /version - Build information
//   - GET /metrics - Prometheus metrics
//   - GET /v1/resources - Registry snapshot
//   - GET /v1/resources/{name} - Snapshot of one entry
//   - GET /v1/resources/{name}/{key} - Dictionary lookup
//   - POST /v1/resources/{name}/reload - Load a new version now
//
// Probe and metrics paths follow the telemetry configuration. Registry
// errors map to statuses: an unknown entry is 404, a registry that is
// shutting down or a full queue is 503, and a reload that has to wait for
// a version to be released is 202.
//
// # Middleware Chain
//
// Requests pass through, outermost first: recovery, request ID, logging,
// and tracing when a tracer is configured.
package server
