package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracingObserver records events as span events on the context's active
// OpenTelemetry span. When the context carries no recording span the
// event is discarded, so the observer is safe to install unconditionally.
type TracingObserver struct{}

// NewTracingObserver creates a TracingObserver.
func NewTracingObserver() *TracingObserver {
	return &TracingObserver{}
}

func (o *TracingObserver) OnEvent(ctx context.Context, event Event) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(event.Data)+2)
	attrs = append(attrs,
		attribute.String("event.source", event.Source),
		attribute.String("event.severity", event.Level.String()),
	)
	for key, value := range event.Data {
		attrs = append(attrs, eventAttribute(key, value))
	}

	span.AddEvent(
		string(event.Type),
		trace.WithTimestamp(event.Timestamp),
		trace.WithAttributes(attrs...),
	)
}

// eventAttribute converts an event data value into a typed OTel attribute,
// falling back to its string rendering for uncommon types.
func eventAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
