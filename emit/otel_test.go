package emit

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func attributeMap(attrs []attribute.KeyValue) map[string]interface{} {
	m := make(map[string]interface{})
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value.AsInterface()
	}
	return m
}

func newTestTracer(t *testing.T) (trace.Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return otel.Tracer("test"), exporter
}

func TestOTelEmitter_NodeEventBecomesSpanWithStandardAttributes(t *testing.T) {
	tracer, exporter := newTestTracer(t)
	emitter := NewOTelEmitter(tracer)

	emitter.Emit(Event{RunID: "run-1", Step: 3, NodeID: "nodeA", LayerID: "layer-0", Msg: "node-completed"})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "node-completed" {
		t.Errorf("span name = %q, want %q", span.Name, "node-completed")
	}
	attrs := attributeMap(span.Attributes)
	if attrs["nodegraph.run_id"] != "run-1" {
		t.Errorf("run_id = %v", attrs["nodegraph.run_id"])
	}
	if attrs["nodegraph.node_id"] != "nodeA" {
		t.Errorf("node_id = %v", attrs["nodegraph.node_id"])
	}
	if attrs["nodegraph.layer_id"] != "layer-0" {
		t.Errorf("layer_id = %v", attrs["nodegraph.layer_id"])
	}
	if !span.EndTime.After(span.StartTime) {
		t.Error("span was not ended")
	}
}

func TestOTelEmitter_NodeFailureSetsErrorStatus(t *testing.T) {
	tracer, exporter := newTestTracer(t)
	emitter := NewOTelEmitter(tracer)

	emitter.Emit(Event{RunID: "run-1", NodeID: "nodeA", Msg: "node-failed", Meta: map[string]interface{}{
		"error": "validation failed",
	}})

	span := exporter.GetSpans()[0]
	if span.Status.Code != codes.Error {
		t.Errorf("status = %v, want error", span.Status.Code)
	}
	if len(span.Events) == 0 {
		t.Error("expected a recorded error event")
	}
}

func TestOTelEmitter_ProjectsDurationAndAttemptMetadata(t *testing.T) {
	tracer, exporter := newTestTracer(t)
	emitter := NewOTelEmitter(tracer)

	emitter.Emit(Event{RunID: "run-1", NodeID: "nodeA", Msg: "node-completed", Meta: map[string]interface{}{
		"duration_ms": int64(42),
		"attempt":     2,
	}})

	attrs := attributeMap(exporter.GetSpans()[0].Attributes)
	if got := attrs["nodegraph.duration_ms"]; got != int64(42) {
		t.Errorf("duration_ms = %v, want 42", got)
	}
	if got := attrs["nodegraph.attempt"]; got != int64(2) {
		t.Errorf("attempt = %v, want 2", got)
	}
}

func TestOTelEmitter_EmitBatchCreatesOneSpanPerEvent(t *testing.T) {
	tracer, exporter := newTestTracer(t)
	emitter := NewOTelEmitter(tracer)

	events := []Event{
		{RunID: "run-1", LayerID: "layer-0", Msg: "layer-started"},
		{RunID: "run-1", NodeID: "nodeA", Msg: "node-started"},
		{RunID: "run-1", NodeID: "nodeA", Msg: "node-completed"},
	}
	if err := emitter.EmitBatch(context.Background(), events); err != nil {
		t.Fatalf("EmitBatch failed: %v", err)
	}
	if len(exporter.GetSpans()) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(exporter.GetSpans()))
	}
}

func TestOTelEmitter_FlushForcesExport(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	emitter := NewOTelEmitter(otel.Tracer("test"))
	emitter.Emit(Event{RunID: "run-1", Msg: "run-started"})

	if err := emitter.Flush(context.Background()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if len(exporter.GetSpans()) != 1 {
		t.Errorf("expected 1 span after flush, got %d", len(exporter.GetSpans()))
	}
}

func TestOTelEmitter_NilMetaDoesNotPanic(t *testing.T) {
	tracer, exporter := newTestTracer(t)
	emitter := NewOTelEmitter(tracer)

	emitter.Emit(Event{RunID: "run-1", NodeID: "nodeA", Msg: "node-started", Meta: nil})

	if len(exporter.GetSpans()) != 1 {
		t.Fatalf("expected 1 span, got %d", len(exporter.GetSpans()))
	}
}

func TestOTelEmitter_InterfaceContract(t *testing.T) {
	var _ Emitter = NewOTelEmitter(otel.Tracer("test"))
}
