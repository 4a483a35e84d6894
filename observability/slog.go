package observability

import (
	"context"
	"log/slog"
	"sort"
)

// callFlowKeys are the data keys the fabric stamps on call lifecycle
// events. SlogObserver surfaces them in this order, ahead of any other
// data, so the log lines for one call line up column for column.
var callFlowKeys = []string{
	"call_id",
	"tool",
	"caller",
	"requester",
	"transport",
	"error",
	"duration_ms",
}

// SlogObserver emits events to a slog.Logger. The event type becomes
// the log message and Level maps through SlogLevel. Call-flow data
// keys come first in a fixed order, remaining keys follow sorted, so
// attribute order is deterministic.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver creates a SlogObserver that emits to the given logger.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	attrs := make([]slog.Attr, 0, len(event.Data)+1)
	attrs = append(attrs, slog.String("source", event.Source))

	promoted := make(map[string]bool, len(callFlowKeys))
	for _, key := range callFlowKeys {
		if value, ok := event.Data[key]; ok {
			attrs = append(attrs, slog.Any(key, value))
			promoted[key] = true
		}
	}

	rest := make([]string, 0, len(event.Data))
	for key := range event.Data {
		if !promoted[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		attrs = append(attrs, slog.Any(key, event.Data[key]))
	}

	o.logger.LogAttrs(ctx, event.Level.SlogLevel(), string(event.Type), attrs...)
}
