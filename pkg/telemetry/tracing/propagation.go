package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// propagator handles W3C Trace Context and Baggage headers.
var propagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// Propagator returns the W3C text map propagator New installs globally.
func Propagator() propagation.TextMapPropagator {
	return propagator
}

// Extract extracts trace context from HTTP headers. If no trace context is
// found, the original context is returned.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return propagator.Extract(ctx, propagation.HeaderCarrier(headers))
}

// Inject serializes the trace context from ctx into traceparent and
// tracestate headers.
func Inject(ctx context.Context, headers http.Header) {
	propagator.Inject(ctx, propagation.HeaderCarrier(headers))
}

// statusRecorder captures the response status for the span.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware extracts trace context from incoming requests and wraps
// each request in a server span named after the route. The trace ID is
// echoed in the X-Trace-ID response header.
//
//	mux.Handle("/", tracing.HTTPMiddleware(tracer, handler))
func HTTPMiddleware(t *Tracer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := Extract(r.Context(), r.Header)

		name := r.Method + " " + r.URL.Path
		if r.Pattern != "" {
			name = r.Pattern
		}
		ctx, span := t.Start(ctx, name,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			),
		)
		defer span.End()

		if sc := span.SpanContext(); sc.IsValid() {
			w.Header().Set("X-Trace-ID", sc.TraceID().String())
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.response.status_code", rec.status))
		if rec.status >= http.StatusInternalServerError {
			SetStatus(span, errStatus(rec.status))
		}
	})
}

type errStatus int

func (e errStatus) Error() string {
	return http.StatusText(int(e))
}
