package observers

import (
	"time"

	"github.com/harunnryd/halo/pkg/metrics"
	"github.com/harunnryd/halo/pkg/turn"
)

// MetricsListener converts machine state changes into metrics events. It is
// called on the machine's goroutine and keeps no lock.
type MetricsListener struct {
	obs       metrics.Observer
	sessionID string
	entered   time.Time
}

func NewMetricsListener(obs metrics.Observer, sessionID string) *MetricsListener {
	if obs == nil {
		obs = metrics.NoopObserver{}
	}
	return &MetricsListener{obs: obs, sessionID: sessionID}
}

func (l *MetricsListener) OnStateChange(c turn.StateChange) {
	tags := map[string]string{
		metrics.TagSessionID: l.sessionID,
		metrics.TagFrom:      c.From.String(),
		metrics.TagTo:        c.To.String(),
		metrics.TagTrigger:   string(c.Trigger),
	}
	var fields map[string]any
	if c.Reason != "" {
		fields = map[string]any{"reason": c.Reason}
	}
	l.obs.RecordEvent(metrics.MetricsEvent{
		Name:   metrics.EventStateChange,
		Time:   c.Timestamp,
		Value:  1,
		Tags:   tags,
		Fields: fields,
	})
	if !l.entered.IsZero() {
		l.obs.RecordEvent(metrics.MetricsEvent{
			Name:  metrics.EventPhaseDuration,
			Time:  c.Timestamp,
			Value: float64(c.Timestamp.Sub(l.entered).Milliseconds()),
			Tags: map[string]string{
				metrics.TagSessionID: l.sessionID,
				metrics.TagPhase:     c.From.String(),
				metrics.TagTo:        c.To.String(),
				metrics.TagTrigger:   string(c.Trigger),
			},
		})
	}
	l.entered = c.Timestamp
}

var _ turn.Listener = (*MetricsListener)(nil)
