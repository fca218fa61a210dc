package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// EntryKey is the context key for registry entry names.
	EntryKey contextKey = "entry"

	// GenerationKey is the context key for resource generations.
	GenerationKey contextKey = "generation"

	// OperationKey is the context key for the registry operation in progress.
	OperationKey contextKey = "operation"

	// TraceIDKey is the context key for trace IDs.
	TraceIDKey contextKey = "trace_id"

	// SpanIDKey is the context key for span IDs.
	SpanIDKey contextKey = "span_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithEntry adds a registry entry name to the context.
func WithEntry(ctx context.Context, entry string) context.Context {
	return context.WithValue(ctx, EntryKey, entry)
}

// GetEntry retrieves the registry entry name from the context.
func GetEntry(ctx context.Context) string {
	if entry, ok := ctx.Value(EntryKey).(string); ok {
		return entry
	}
	return ""
}

// WithGeneration adds a resource generation to the context.
func WithGeneration(ctx context.Context, generation uint64) context.Context {
	return context.WithValue(ctx, GenerationKey, generation)
}

// GetGeneration retrieves the resource generation from the context.
func GetGeneration(ctx context.Context) (uint64, bool) {
	generation, ok := ctx.Value(GenerationKey).(uint64)
	return generation, ok
}

// WithOperation adds an operation name to the context.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, OperationKey, op)
}

// GetOperation retrieves the operation name from the context.
func GetOperation(ctx context.Context) string {
	if op, ok := ctx.Value(OperationKey).(string); ok {
		return op
	}
	return ""
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context, falling back to the
// active span.
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// WithSpanID adds a span ID to the context.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, SpanIDKey, spanID)
}

// GetSpanID retrieves the span ID from the context, falling back to the
// active span.
func GetSpanID(ctx context.Context) string {
	if spanID, ok := ctx.Value(SpanIDKey).(string); ok {
		return spanID
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasSpanID() {
		return sc.SpanID().String()
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
// Returns a slice of key-value pairs suitable for logger.With().
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if op := GetOperation(ctx); op != "" {
		fields = append(fields, "operation", op)
	}
	if entry := GetEntry(ctx); entry != "" {
		fields = append(fields, "entry", entry)
	}
	if generation, ok := GetGeneration(ctx); ok {
		fields = append(fields, "generation", generation)
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, "trace_id", traceID)
	}
	if spanID := GetSpanID(ctx); spanID != "" {
		fields = append(fields, "span_id", spanID)
	}

	return fields
}
