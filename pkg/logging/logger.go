// Package logging builds the process slog logger.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// ScopeName is the instrumentation scope used by the otel format.
const ScopeName = "github.com/harunnryd/halo"

// Formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatOTel = "otel"
)

// New returns a logger writing to w in the given format. The otel format
// ignores w and forwards records to the global OpenTelemetry logger provider,
// which the host process must install with global.SetLoggerProvider. Until
// it does, records are discarded.
func New(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case FormatText, "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case FormatJSON:
		opts.AddSource = true
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case FormatOTel:
		return slog.New(levelHandler{Handler: otelslog.NewHandler(ScopeName), level: level}), nil
	default:
		return nil, fmt.Errorf("logging: unknown format %q", format)
	}
}

// InitLogger builds a stderr logger and installs it as the slog default.
func InitLogger(level slog.Level, format string) (*slog.Logger, error) {
	log, err := New(os.Stderr, level, format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)
	return log, nil
}

// NewComponentLogger tags every record with the component name.
func NewComponentLogger(base *slog.Logger, component string) *slog.Logger {
	return base.With(slog.String("component", component))
}

// levelHandler applies a minimum level in front of a handler that has none.
type levelHandler struct {
	slog.Handler
	level slog.Level
}

func (h levelHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.level && h.Handler.Enabled(ctx, l)
}

func (h levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return levelHandler{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h levelHandler) WithGroup(name string) slog.Handler {
	return levelHandler{Handler: h.Handler.WithGroup(name), level: h.level}
}
