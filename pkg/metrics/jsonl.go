package metrics

import (
	"context"
	"io"
	"log/slog"
	"sort"
)

// JSONLObserver writes one JSON object per event.
type JSONLObserver struct {
	logger *slog.Logger
}

func NewJSONLObserver(w io.Writer) *JSONLObserver {
	if w == nil {
		w = io.Discard
	}
	return &JSONLObserver{logger: slog.New(slog.NewJSONHandler(w, nil))}
}

func (o *JSONLObserver) RecordEvent(ev MetricsEvent) {
	o.logger.LogAttrs(context.Background(), slog.LevelInfo, "metrics", Attrs(ev)...)
}

// Attrs flattens an event into slog attributes with tags and fields in key order.
func Attrs(ev MetricsEvent) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("name", ev.Name),
		slog.Time("time", ev.Time),
		slog.Float64("value", ev.Value),
	}
	for _, k := range sortedKeys(ev.Tags) {
		attrs = append(attrs, slog.String(k, ev.Tags[k]))
	}
	for _, k := range sortedKeys(ev.Fields) {
		attrs = append(attrs, slog.Any(k, ev.Fields[k]))
	}
	return attrs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
