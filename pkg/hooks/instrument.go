package hooks

import (
	"context"
	"time"

	"github.com/harunnryd/halo/pkg/metrics"
	"github.com/harunnryd/halo/pkg/turn"
)

// Instrumented wraps hooks so every executed work item records a
// metrics.EventHookExec event with its duration in milliseconds.
type Instrumented struct {
	inner     turn.Hooks
	obs       metrics.Observer
	sessionID string
	now       func() time.Time
}

// Instrument wraps inner. A nil observer returns inner unchanged.
func Instrument(inner turn.Hooks, obs metrics.Observer, sessionID string) turn.Hooks {
	if obs == nil {
		return inner
	}
	if inner == nil {
		inner = turn.NoopHooks{}
	}
	return &Instrumented{inner: inner, obs: obs, sessionID: sessionID, now: time.Now}
}

func (h *Instrumented) wrap(name string, w turn.Work, err error) (turn.Work, error) {
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = turn.Nop
	}
	return func(ctx context.Context) error {
		start := h.now()
		runErr := w(ctx)
		status := "ok"
		if runErr != nil {
			status = "error"
		}
		end := h.now()
		h.obs.RecordEvent(metrics.MetricsEvent{
			Name:  metrics.EventHookExec,
			Time:  end,
			Value: float64(end.Sub(start).Microseconds()) / 1000,
			Tags: map[string]string{
				metrics.TagSessionID: h.sessionID,
				metrics.TagHook:      name,
				metrics.TagStatus:    status,
			},
		})
		return runErr
	}, nil
}

func (h *Instrumented) ShowOverlay(s turn.State) (turn.Work, error) {
	w, err := h.inner.ShowOverlay(s)
	return h.wrap(turn.HookShowOverlay, w, err)
}

func (h *Instrumented) HideOverlay(s turn.State) (turn.Work, error) {
	w, err := h.inner.HideOverlay(s)
	return h.wrap(turn.HookHideOverlay, w, err)
}

func (h *Instrumented) StartCapture() (turn.Work, error) {
	w, err := h.inner.StartCapture()
	return h.wrap(turn.HookStartCapture, w, err)
}

func (h *Instrumented) StopCapture() (turn.Work, error) {
	w, err := h.inner.StopCapture()
	return h.wrap(turn.HookStopCapture, w, err)
}

func (h *Instrumented) StartSpeech(text string) (turn.Work, error) {
	w, err := h.inner.StartSpeech(text)
	return h.wrap(turn.HookStartSpeech, w, err)
}

func (h *Instrumented) StopSpeech() (turn.Work, error) {
	w, err := h.inner.StopSpeech()
	return h.wrap(turn.HookStopSpeech, w, err)
}
