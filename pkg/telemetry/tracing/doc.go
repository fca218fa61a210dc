// Package tracing provides OpenTelemetry distributed tracing for dyndict.
//
// # Overview
//
// Spans cover resource loads (started by the registry worker with the tracer
// returned by OTel), source reads, and admin HTTP requests. Spans are
// exported over OTLP gRPC. When tracing is disabled every call goes to a
// noop tracer.
//
// # Trace Context Propagation
//
// Admin requests carrying W3C Trace Context headers are joined to the
// caller's trace by HTTPMiddleware:
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
// # Sampling Strategies
//
//   - always: Sample all traces
//   - never: Sample no traces
//   - ratio: Sample a fraction of root traces
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	reg := registry.New(cfg.Registry.Capacity,
//	    registry.WithTracer(tracer.OTel()),
//	)
package tracing
