package emit

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by turning each event into a zero-
// duration OpenTelemetry span named after event.Msg, carrying run,
// layer, node, and retry-attempt attributes plus whatever Meta the
// producing code attached (duration_ms, error, and so on). It is the
// distributed-tracing counterpart to PrometheusEmitter's metrics view
// of the same event stream.
//
// Usage:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//	eng, _ := engine.New(registry, engine.WithTracing(otel.Tracer("nodegraph")))
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter wraps tracer, typically otel.Tracer("nodegraph").
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit starts and immediately ends a span for event. Events represent
// points in time (a node started, a layer completed), not intervals,
// so the span is never left open; any elapsed duration event.Meta
// carries is recorded as an attribute instead of as span timing.
func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	defer span.End()
	o.annotate(span, event)
}

// EmitBatch starts and ends one span per event, in order.
func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		_, span := o.tracer.Start(ctx, event.Msg)
		o.annotate(span, event)
		span.End()
	}
	return nil
}

// Flush force-flushes the active tracer provider, if it supports it
// (the SDK provider does; the default no-op provider doesn't).
func (o *OTelEmitter) Flush(ctx context.Context) error {
	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := otel.GetTracerProvider().(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

func (o *OTelEmitter) annotate(span trace.Span, event Event) {
	span.SetAttributes(
		attribute.String("nodegraph.run_id", event.RunID),
		attribute.Int("nodegraph.step", event.Step),
		attribute.String("nodegraph.node_id", event.NodeID),
		attribute.String("nodegraph.layer_id", event.LayerID),
	)
	o.addMetadataAttributes(span, event.Meta)
	if err, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, err)
		span.RecordError(fmt.Errorf("%s", err))
	}
}

// addMetadataAttributes projects event.Meta onto span attributes.
// "attempt" is handled separately (retry bookkeeping, not free-form
// metadata); everything else converts by dynamic type, falling back
// to its string representation.
func (o *OTelEmitter) addMetadataAttributes(span trace.Span, meta map[string]interface{}) {
	for key, value := range meta {
		if key == "attempt" {
			continue
		}
		attrKey := "nodegraph." + key
		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String(attrKey, v))
		case int:
			span.SetAttributes(attribute.Int(attrKey, v))
		case int64:
			span.SetAttributes(attribute.Int64(attrKey, v))
		case float64:
			span.SetAttributes(attribute.Float64(attrKey, v))
		case bool:
			span.SetAttributes(attribute.Bool(attrKey, v))
		case time.Duration:
			span.SetAttributes(attribute.Int64(attrKey, int64(v/time.Millisecond)))
		default:
			span.SetAttributes(attribute.String(attrKey, fmt.Sprintf("%v", v)))
		}
	}
	if attempt, ok := meta["attempt"].(int); ok {
		span.SetAttributes(attribute.Int("nodegraph.attempt", attempt))
	} else if attempt, ok := meta["attempt"].(int64); ok {
		span.SetAttributes(attribute.Int64("nodegraph.attempt", attempt))
	}
}
