package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by registry, source, and server spans.
const (
	AttrEntry      = attribute.Key("dyndict.entry")
	AttrGeneration = attribute.Key("dyndict.generation")
	AttrOperation  = attribute.Key("dyndict.operation")
	AttrKey        = attribute.Key("dyndict.key")
	AttrSourceType = attribute.Key("dyndict.source.type")
	AttrSourcePath = attribute.Key("dyndict.source.path")
	AttrRecords    = attribute.Key("dyndict.source.records")
	AttrChecksum   = attribute.Key("dyndict.source.checksum")
)

// SetEntryAttributes tags span with the entry it concerns.
func SetEntryAttributes(span trace.Span, entry string, generation uint64) {
	span.SetAttributes(
		AttrEntry.String(entry),
		AttrGeneration.Int64(int64(generation)),
	)
}

// SetSourceAttributes tags a load span with what was read.
func SetSourceAttributes(span trace.Span, sourceType, path string, records int, checksum string) {
	attrs := []attribute.KeyValue{
		AttrSourceType.String(sourceType),
		AttrSourcePath.String(path),
		AttrRecords.Int(records),
	}
	if checksum != "" {
		attrs = append(attrs, AttrChecksum.String(checksum))
	}
	span.SetAttributes(attrs...)
}

// AddEvent adds an event to the span if it is recording.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
