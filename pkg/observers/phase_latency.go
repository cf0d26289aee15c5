package observers

import (
	"log/slog"
	"sync"

	"github.com/harunnryd/halo/pkg/metrics"
	"github.com/harunnryd/halo/pkg/turn"
)

// PhaseLatencyObserver folds phase durations into one log line per turn.
type PhaseLatencyObserver struct {
	mu     sync.Mutex
	traces map[string]*phaseTrace
	log    *slog.Logger
}

type phaseTrace struct {
	listenMs  int64
	thinkMs   int64
	respondMs int64
	phases    int
}

func NewPhaseLatencyObserver(log *slog.Logger) *PhaseLatencyObserver {
	if log == nil {
		log = slog.Default()
	}
	return &PhaseLatencyObserver{
		traces: make(map[string]*phaseTrace),
		log:    log,
	}
}

func (o *PhaseLatencyObserver) RecordEvent(ev metrics.MetricsEvent) {
	if ev.Name != metrics.EventPhaseDuration {
		return
	}
	sessionID := ev.Tag(metrics.TagSessionID)
	if sessionID == "" {
		return
	}
	ms := int64(ev.Value)

	o.mu.Lock()
	defer o.mu.Unlock()
	t := o.traces[sessionID]
	if t == nil {
		t = &phaseTrace{}
		o.traces[sessionID] = t
	}
	switch ev.Tag(metrics.TagPhase) {
	case turn.StateListening.String():
		t.listenMs += ms
		t.phases++
	case turn.StateThinking.String():
		t.thinkMs += ms
		t.phases++
	case turn.StateResponding.String():
		t.respondMs += ms
		t.phases++
	}
	switch to := ev.Tag(metrics.TagTo); to {
	case turn.StateIdle.String(), turn.StateError.String():
		if t.phases > 0 {
			o.logTurnLocked(sessionID, to, ev.Tag(metrics.TagTrigger), t)
		}
		delete(o.traces, sessionID)
	}
}

// Pending returns the number of sessions with an unfinished turn.
func (o *PhaseLatencyObserver) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.traces)
}

func (o *PhaseLatencyObserver) logTurnLocked(sessionID, to, trigger string, t *phaseTrace) {
	outcome := "completed"
	switch {
	case to == turn.StateError.String():
		outcome = "error"
	case trigger == string(turn.TriggerReset):
		outcome = "reset"
	}
	o.log.Info("turn_latency",
		"session_id", sessionID,
		"outcome", outcome,
		"listen_ms", t.listenMs,
		"think_ms", t.thinkMs,
		"respond_ms", t.respondMs,
		"total_ms", t.listenMs+t.thinkMs+t.respondMs,
	)
}
