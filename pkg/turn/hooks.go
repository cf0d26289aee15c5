package turn

import "context"

// Hook names, as reported by HookError and instrumentation.
const (
	HookShowOverlay  = "show_overlay"
	HookHideOverlay  = "hide_overlay"
	HookStartCapture = "start_capture"
	HookStopCapture  = "stop_capture"
	HookStartSpeech  = "start_tts"
	HookStopSpeech   = "stop_tts"
)

// Hooks are the side effects a Machine schedules. Each method returns the
// work to run; it must not fail before returning it.
type Hooks interface {
	ShowOverlay(state State) (Work, error)
	HideOverlay(state State) (Work, error)
	StartCapture() (Work, error)
	StopCapture() (Work, error)
	StartSpeech(text string) (Work, error)
	StopSpeech() (Work, error)
}

// Nop is a Work that does nothing.
func Nop(context.Context) error { return nil }

// NoopHooks is the default hook set.
type NoopHooks struct{}

func (NoopHooks) ShowOverlay(State) (Work, error)  { return Nop, nil }
func (NoopHooks) HideOverlay(State) (Work, error)  { return Nop, nil }
func (NoopHooks) StartCapture() (Work, error)      { return Nop, nil }
func (NoopHooks) StopCapture() (Work, error)       { return Nop, nil }
func (NoopHooks) StartSpeech(string) (Work, error) { return Nop, nil }
func (NoopHooks) StopSpeech() (Work, error)        { return Nop, nil }

// HookFuncs builds a hook set from individual functions. Nil fields behave as NoopHooks.
type HookFuncs struct {
	Show       func(state State) (Work, error)
	Hide       func(state State) (Work, error)
	CaptureOn  func() (Work, error)
	CaptureOff func() (Work, error)
	SpeechOn   func(text string) (Work, error)
	SpeechOff  func() (Work, error)
}

func (h HookFuncs) ShowOverlay(state State) (Work, error) {
	if h.Show == nil {
		return Nop, nil
	}
	return h.Show(state)
}

func (h HookFuncs) HideOverlay(state State) (Work, error) {
	if h.Hide == nil {
		return Nop, nil
	}
	return h.Hide(state)
}

func (h HookFuncs) StartCapture() (Work, error) {
	if h.CaptureOn == nil {
		return Nop, nil
	}
	return h.CaptureOn()
}

func (h HookFuncs) StopCapture() (Work, error) {
	if h.CaptureOff == nil {
		return Nop, nil
	}
	return h.CaptureOff()
}

func (h HookFuncs) StartSpeech(text string) (Work, error) {
	if h.SpeechOn == nil {
		return Nop, nil
	}
	return h.SpeechOn(text)
}

func (h HookFuncs) StopSpeech() (Work, error) {
	if h.SpeechOff == nil {
		return Nop, nil
	}
	return h.SpeechOff()
}

var (
	_ Hooks = NoopHooks{}
	_ Hooks = HookFuncs{}
)
