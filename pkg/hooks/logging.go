// Package hooks provides turn.Hooks implementations for the wearable overlay,
// capture and speech side effects, plus a registry that builds them from
// configuration.
package hooks

import (
	"context"
	"log/slog"

	"github.com/harunnryd/halo/pkg/redact"
	"github.com/harunnryd/halo/pkg/turn"
)

// DefaultPreviewChars bounds the speech text copied into logs.
const DefaultPreviewChars = 48

// Logging records every hook as a structured log line when its work runs.
type Logging struct {
	log     *slog.Logger
	level   slog.Level
	preview int
}

// NewLogging returns hooks that log at level. preview bounds the speech text
// preview; zero selects DefaultPreviewChars.
func NewLogging(log *slog.Logger, level slog.Level, preview int) *Logging {
	if log == nil {
		log = slog.Default()
	}
	if preview <= 0 {
		preview = DefaultPreviewChars
	}
	return &Logging{log: log, level: level, preview: preview}
}

func (l *Logging) emit(msg string, attrs ...slog.Attr) turn.Work {
	return func(ctx context.Context) error {
		l.log.LogAttrs(ctx, l.level, msg, attrs...)
		return nil
	}
}

func (l *Logging) ShowOverlay(s turn.State) (turn.Work, error) {
	return l.emit("overlay_show", slog.String("state", s.String())), nil
}

func (l *Logging) HideOverlay(s turn.State) (turn.Work, error) {
	return l.emit("overlay_hide", slog.String("state", s.String())), nil
}

func (l *Logging) StartCapture() (turn.Work, error) {
	return l.emit("capture_start"), nil
}

func (l *Logging) StopCapture() (turn.Work, error) {
	return l.emit("capture_stop"), nil
}

func (l *Logging) StartSpeech(text string) (turn.Work, error) {
	return l.emit("speech_start",
		slog.Int("chars", len([]rune(text))),
		slog.String("preview", redact.Preview(text, l.preview)),
	), nil
}

func (l *Logging) StopSpeech() (turn.Work, error) {
	return l.emit("speech_stop"), nil
}
