package hooks

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/harunnryd/halo/pkg/errorsx"
	"github.com/harunnryd/halo/pkg/metrics"
	"github.com/harunnryd/halo/pkg/turn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, w turn.Work, err error) error {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, w)
	return w(context.Background())
}

func TestLoggingHooksWriteEvents(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	h := NewLogging(log, slog.LevelInfo, 5)

	w, err := h.ShowOverlay(turn.StateListening)
	require.NoError(t, run(t, w, err))
	w, err = h.StartSpeech("hello world")
	require.NoError(t, run(t, w, err))

	out := buf.String()
	assert.Contains(t, out, "msg=overlay_show state=LISTENING")
	assert.Contains(t, out, "msg=speech_start chars=11 preview=hello…")
}

func TestLoggingHooksBelowLevelAreSilent(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	h := NewLogging(log, slog.LevelDebug, 0)

	w, err := h.StopCapture()
	require.NoError(t, run(t, w, err))
	assert.Empty(t, buf.String())
}

func TestConsoleRendersStateBadge(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsole(&buf, 0)

	w, err := h.ShowOverlay(turn.StateThinking)
	require.NoError(t, run(t, w, err))
	w, err = h.StartSpeech("it is sunny")
	require.NoError(t, run(t, w, err))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "THINKING")
	assert.Contains(t, lines[1], `"it is sunny"`)
}

func TestInstrumentRecordsHookExec(t *testing.T) {
	obs := metrics.NewMemoryObserver()
	failing := turn.HookFuncs{
		CaptureOn: func() (turn.Work, error) {
			return func(context.Context) error { return errors.New("mic busy") }, nil
		},
	}
	h := Instrument(failing, obs, "s1")

	w, err := h.StartCapture()
	assert.EqualError(t, run(t, w, err), "mic busy")
	w, err = h.ShowOverlay(turn.StateIdle)
	require.NoError(t, run(t, w, err))

	events := obs.Named(metrics.EventHookExec)
	require.Len(t, events, 2)
	assert.Equal(t, turn.HookStartCapture, events[0].Tag(metrics.TagHook))
	assert.Equal(t, "error", events[0].Tag(metrics.TagStatus))
	assert.Equal(t, "s1", events[0].Tag(metrics.TagSessionID))
	assert.Equal(t, turn.HookShowOverlay, events[1].Tag(metrics.TagHook))
	assert.Equal(t, "ok", events[1].Tag(metrics.TagStatus))
}

func TestInstrumentPassesFactoryErrors(t *testing.T) {
	obs := metrics.NewMemoryObserver()
	boom := errors.New("no overlay")
	h := Instrument(turn.HookFuncs{Hide: func(turn.State) (turn.Work, error) { return nil, boom }}, obs, "s1")

	w, err := h.HideOverlay(turn.StateIdle)
	assert.Nil(t, w)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, obs.Events())
}

func TestInstrumentNilObserverReturnsInner(t *testing.T) {
	inner := turn.NoopHooks{}
	assert.Equal(t, turn.Hooks(inner), Instrument(inner, nil, "s1"))
}

func TestMultiRunsInOrderAndJoinsErrors(t *testing.T) {
	var order []string
	part := func(name string, fail bool) turn.Hooks {
		return turn.HookFuncs{SpeechOff: func() (turn.Work, error) {
			return func(context.Context) error {
				order = append(order, name)
				if fail {
					return errors.New(name + " failed")
				}
				return nil
			}, nil
		}}
	}
	m := NewMulti(part("a", true), nil, part("b", false), part("c", true))

	w, err := m.StopSpeech()
	err = run(t, w, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.ErrorContains(t, err, "a failed")
	assert.ErrorContains(t, err, "c failed")
}

func TestMultiStopsOnFactoryError(t *testing.T) {
	called := false
	m := NewMulti(
		turn.HookFuncs{Show: func(turn.State) (turn.Work, error) { return nil, errors.New("nope") }},
		turn.HookFuncs{Show: func(turn.State) (turn.Work, error) { called = true; return turn.Nop, nil }},
	)
	_, err := m.ShowOverlay(turn.StateIdle)
	assert.EqualError(t, err, "nope")
	assert.False(t, called)
}

func TestRegistryBuildsProviders(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"console", "log", "noop"}, r.Providers())

	h, err := r.Build("", nil, Deps{})
	require.NoError(t, err)
	assert.IsType(t, turn.NoopHooks{}, h)

	var buf bytes.Buffer
	h, err = r.Build(" LOG ", map[string]any{"level": "debug", "preview-chars": 8}, Deps{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))})
	require.NoError(t, err)
	w, err := h.StartCapture()
	require.NoError(t, run(t, w, err))
	assert.Contains(t, buf.String(), "level=DEBUG msg=capture_start component=hooks")

	h, err = r.Build("console", map[string]any{"preview_chars": 4}, Deps{Out: &buf})
	require.NoError(t, err)
	assert.IsType(t, &Console{}, h)
}

func TestRegistryRejectsBadConfig(t *testing.T) {
	r := NewRegistry()

	_, err := r.Build("speaker", nil, Deps{})
	require.Error(t, err)
	assert.Equal(t, errorsx.ReasonConfigInvalid, errorsx.Reason(err))

	_, err = r.Build("log", map[string]any{"colour": "red"}, Deps{})
	assert.ErrorContains(t, err, "unknown: colour")

	_, err = r.Build("log", map[string]any{"level": "loud"}, Deps{})
	assert.Error(t, err)

	_, err = r.Build("noop", map[string]any{"x": 1}, Deps{})
	assert.Error(t, err)
}

func TestRegistryCombinesProviders(t *testing.T) {
	var logs, screen bytes.Buffer
	h, err := NewRegistry().Build("log, console", map[string]any{
		"log":     map[string]any{"level": "info"},
		"console": map[string]any{"preview_chars": 4},
	}, Deps{Logger: slog.New(slog.NewTextHandler(&logs, nil)), Out: &screen})
	require.NoError(t, err)
	require.IsType(t, Multi{}, h)
	assert.Len(t, h.(Multi), 2)

	w, err := h.StartSpeech("good morning")
	require.NoError(t, run(t, w, err))
	assert.Contains(t, logs.String(), "msg=speech_start")
	assert.Contains(t, screen.String(), `say "good…"`)
}

func TestRegistryCombinedSettingsAreKeyedByProvider(t *testing.T) {
	r := NewRegistry()

	_, err := r.Build("log,console", map[string]any{"level": "info"}, Deps{})
	assert.Equal(t, errorsx.ReasonConfigInvalid, errorsx.Reason(err))

	_, err = r.Build("log,console", map[string]any{"log": "loud"}, Deps{})
	assert.ErrorContains(t, err, "must be a map")

	_, err = r.Build("log,speaker", nil, Deps{})
	assert.ErrorContains(t, err, "not registered: speaker")
}

func TestShapeSpeechRewritesAndLimits(t *testing.T) {
	var spoken string
	inner := turn.HookFuncs{SpeechOn: func(text string) (turn.Work, error) {
		spoken = text
		return turn.Nop, nil
	}}
	h := ShapeSpeech(inner, SpeechOptions{
		Replacements: map[string]string{"deg c": "degrees Celsius", "": "ignored"},
		MaxSentences: 2,
	})

	_, err := h.StartSpeech("  It is 21 DEG C. Clear skies! Wind is calm. ")
	require.NoError(t, err)
	assert.Equal(t, "It is 21 degrees Celsius. Clear skies!", spoken)
}

func TestShapeSpeechCharLimitCountsRunes(t *testing.T) {
	h := ShapeSpeech(nil, SpeechOptions{MaxChars: 4})
	assert.Equal(t, "café", h.Shape("café au lait"))
	assert.Equal(t, "ok", h.Shape("ok"))
}

func TestShapeSpeechKeepsOtherHooks(t *testing.T) {
	shown := false
	h := ShapeSpeech(turn.HookFuncs{Show: func(turn.State) (turn.Work, error) { shown = true; return turn.Nop, nil }}, SpeechOptions{})
	_, err := h.ShowOverlay(turn.StateListening)
	require.NoError(t, err)
	assert.True(t, shown)
}
