package observability

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TraceObserver records events on the span carried by the event context.
// Events emitted outside a recording span are dropped.
type TraceObserver struct{}

// NewTraceObserver creates a TraceObserver.
func NewTraceObserver() *TraceObserver {
	return &TraceObserver{}
}

func (o *TraceObserver) OnEvent(ctx context.Context, event Event) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.AddEvent(string(event.Type), trace.WithTimestamp(event.Timestamp), trace.WithAttributes(eventAttributes(event)...))

	if event.Type == EventGraphFailed {
		msg, _ := event.Data["cause"].(string)
		span.SetStatus(codes.Error, msg)
	}
}

func eventAttributes(event Event) []attribute.KeyValue {
	keys := make([]string, 0, len(event.Data))
	for k := range event.Data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	attrs := make([]attribute.KeyValue, 0, len(keys)+1)
	attrs = append(attrs, attribute.String("source", event.Source))
	for _, k := range keys {
		attrs = append(attrs, toAttribute(k, event.Data[k]))
	}
	return attrs
}

func toAttribute(key string, value any) attribute.KeyValue {
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
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
