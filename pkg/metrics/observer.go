package metrics

import "time"

// Event names emitted by the turn core.
const (
	EventStateChange   = "turn_state_change"
	EventPhaseDuration = "turn_phase_duration"
	EventHookExec      = "hook_exec"
)

// Tag keys shared by emitters and observers.
const (
	TagSessionID = "session_id"
	TagFrom      = "from"
	TagTo        = "to"
	TagTrigger   = "trigger"
	TagPhase     = "phase"
	TagHook      = "hook"
	TagStatus    = "status"
)

type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

// Tag returns a tag value or "".
func (ev MetricsEvent) Tag(key string) string {
	if ev.Tags == nil {
		return ""
	}
	return ev.Tags[key]
}

type Observer interface {
	RecordEvent(ev MetricsEvent)
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}
