package observers

import (
	"context"
	"log/slog"

	"github.com/harunnryd/halo/pkg/metrics"
)

// LoggerObserver logs every metrics event at debug level.
type LoggerObserver struct {
	log *slog.Logger
}

func NewLoggerObserver(log *slog.Logger) *LoggerObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LoggerObserver{log: log}
}

func (o *LoggerObserver) RecordEvent(ev metrics.MetricsEvent) {
	o.log.LogAttrs(context.Background(), slog.LevelDebug, "metrics", metrics.Attrs(ev)...)
}

type MultiObserver struct {
	list []metrics.Observer
}

func NewMultiObserver(list ...metrics.Observer) *MultiObserver {
	out := make([]metrics.Observer, 0, len(list))
	for _, obs := range list {
		if obs != nil {
			out = append(out, obs)
		}
	}
	return &MultiObserver{list: out}
}

func (m *MultiObserver) RecordEvent(ev metrics.MetricsEvent) {
	for _, obs := range m.list {
		obs.RecordEvent(ev)
	}
}
