package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/dyndict/pkg/config"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestTracer(t *testing.T) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := newTracer(&config.TracingConfig{
		Enabled: true,
		Sampler: SamplerAlways,
	}, exporter, "test")
	if err != nil {
		t.Fatalf("newTracer() error = %v", err)
	}
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })
	return tracer, exporter
}

// flush forces the batcher to hand finished spans to the exporter.
func flush(t *testing.T, tracer *Tracer) {
	t.Helper()
	if err := tracer.provider.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}
}

func TestNew(t *testing.T) {
	if _, err := New(nil, "v"); err == nil {
		t.Error("New(nil) error = nil")
	}

	tracer, err := New(&config.TracingConfig{Enabled: false}, "v")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tracer.Enabled() {
		t.Error("Enabled() = true for disabled config")
	}

	_, span := tracer.Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("disabled tracer produced a valid span context")
	}
	span.End()

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewTracer_BadSampler(t *testing.T) {
	_, err := newTracer(&config.TracingConfig{
		Enabled: true,
		Sampler: "sometimes",
	}, tracetest.NewInMemoryExporter(), "v")
	if err == nil {
		t.Error("newTracer() with unknown sampler error = nil")
	}
}

func TestTracer_Start(t *testing.T) {
	tracer, exporter := newTestTracer(t)
	if !tracer.Enabled() {
		t.Fatal("Enabled() = false")
	}

	ctx, parent := tracer.Start(context.Background(), "registry.reload")
	SetEntryAttributes(parent, "stopwords", 3)
	_, child := tracer.OTel().Start(ctx, "registry.load")
	child.End()
	parent.End()

	flush(t, tracer)
	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("exported %d spans, want 2", len(spans))
	}
	if spans[0].Parent.SpanID() != spans[1].SpanContext.SpanID() {
		t.Error("child span is not parented to the reload span")
	}

	attrs := map[string]any{}
	for _, kv := range spans[1].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	if attrs["dyndict.entry"] != "stopwords" || attrs["dyndict.generation"] != int64(3) {
		t.Errorf("attributes = %v", attrs)
	}
	if got := spans[1].Resource.Attributes(); len(got) == 0 {
		t.Error("span has no resource attributes")
	}
}

func TestTraceIDAndSpanID(t *testing.T) {
	if TraceID(context.Background()) != "" || SpanID(context.Background()) != "" {
		t.Error("IDs of an empty context should be empty")
	}

	tracer, _ := newTestTracer(t)
	ctx, span := tracer.Start(context.Background(), "op")
	defer span.End()

	if got := TraceID(ctx); got != span.SpanContext().TraceID().String() {
		t.Errorf("TraceID() = %q", got)
	}
	if got := SpanID(ctx); got != span.SpanContext().SpanID().String() {
		t.Errorf("SpanID() = %q", got)
	}
}

func TestSetErrorAndStatus(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, failed := tracer.Start(context.Background(), "failed")
	SetError(failed, errors.New("load failed"))
	failed.End()

	_, ok := tracer.Start(context.Background(), "ok")
	SetError(ok, nil)
	SetStatus(ok, nil)
	ok.End()

	flush(t, tracer)
	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("exported %d spans, want 2", len(spans))
	}
	if spans[0].Status.Code != codes.Error || len(spans[0].Events) != 1 {
		t.Errorf("failed span status = %v, events = %d", spans[0].Status, len(spans[0].Events))
	}
	if spans[1].Status.Code != codes.Ok {
		t.Errorf("ok span status = %v", spans[1].Status)
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{"always", SamplerAlways, 0, false},
		{"never", SamplerNever, 0, false},
		{"ratio", SamplerRatio, 0.5, false},
		{"empty means ratio", "", 1, false},
		{"ratio too high", SamplerRatio, 1.5, true},
		{"ratio negative", SamplerRatio, -0.1, true},
		{"unknown", "sometimes", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sampler, err := createSampler(tt.strategy, tt.ratio)
			if (err != nil) != tt.wantErr {
				t.Fatalf("createSampler() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && sampler == nil {
				t.Error("createSampler() returned nil sampler")
			}
		})
	}
}

func TestCreateSampler_Decisions(t *testing.T) {
	never, _ := createSampler(SamplerNever, 0)
	always, _ := createSampler(SamplerAlways, 0)

	params := sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       trace.TraceID{1},
		Name:          "root",
	}
	if got := never.ShouldSample(params).Decision; got != sdktrace.Drop {
		t.Errorf("never decision = %v", got)
	}
	if got := always.ShouldSample(params).Decision; got != sdktrace.RecordAndSample {
		t.Errorf("always decision = %v", got)
	}
}

func TestExtractInject(t *testing.T) {
	headers := http.Header{}
	headers.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	ctx := Extract(context.Background(), headers)
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || !sc.IsRemote() || !sc.IsSampled() {
		t.Fatalf("extracted span context = %+v", sc)
	}
	if sc.TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("TraceID = %s", sc.TraceID())
	}

	out := http.Header{}
	Inject(ctx, out)
	if out.Get("traceparent") != headers.Get("traceparent") {
		t.Errorf("injected traceparent = %q", out.Get("traceparent"))
	}

	if ctx := Extract(context.Background(), http.Header{}); trace.SpanContextFromContext(ctx).IsValid() {
		t.Error("Extract() of empty headers produced a span context")
	}
}

func TestHTTPMiddleware(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	var seen trace.SpanContext
	handler := HTTPMiddleware(tracer, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = trace.SpanContextFromContext(r.Context())
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
	if seen.TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("handler trace ID = %s, want the caller's", seen.TraceID())
	}
	if rec.Header().Get("X-Trace-ID") != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("X-Trace-ID = %q", rec.Header().Get("X-Trace-ID"))
	}

	flush(t, tracer)
	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("exported %d spans, want 1", len(spans))
	}
	if spans[0].SpanKind != trace.SpanKindServer || spans[0].Status.Code != codes.Error {
		t.Errorf("span kind = %v, status = %v", spans[0].SpanKind, spans[0].Status)
	}
	if spans[0].Name != "GET /ready" {
		t.Errorf("span name = %q", spans[0].Name)
	}
}

func TestAddEvent(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.Start(context.Background(), "op")
	AddEvent(span, "reload.deferred", AttrEntry.String("geoip"))
	span.End()

	flush(t, tracer)
	spans := exporter.GetSpans()
	if len(spans) != 1 || len(spans[0].Events) != 1 || spans[0].Events[0].Name != "reload.deferred" {
		t.Errorf("spans = %+v", spans)
	}
}
