package observers

import (
	"context"
	"errors"
	"strings"

	"github.com/harunnryd/halo/pkg/turn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/harunnryd/halo/pkg/observers"

// TracingListener opens one span per active phase (listening, thinking,
// responding) and ends it when the machine leaves that phase.
type TracingListener struct {
	ctx       context.Context
	tracer    trace.Tracer
	sessionID string
	span      trace.Span
}

// NewTracingListener uses the global tracer provider when tracer is nil.
// Spans are dropped unless the host has installed one with
// otel.SetTracerProvider.
func NewTracingListener(ctx context.Context, tracer trace.Tracer, sessionID string) *TracingListener {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracer == nil {
		tracer = otel.Tracer(scopeName)
	}
	return &TracingListener{ctx: ctx, tracer: tracer, sessionID: sessionID}
}

func (l *TracingListener) OnStateChange(c turn.StateChange) {
	if l.span != nil {
		l.span.SetAttributes(
			attribute.String("turn.exit_trigger", string(c.Trigger)),
			attribute.String("turn.next_state", c.To.String()),
		)
		if c.To == turn.StateError {
			l.span.RecordError(errors.New(c.Reason))
			l.span.SetStatus(codes.Error, c.Reason)
		}
		l.span.End(trace.WithTimestamp(c.Timestamp))
		l.span = nil
	}
	if !c.To.Active() {
		return
	}
	_, l.span = l.tracer.Start(l.ctx, "turn."+strings.ToLower(c.To.String()),
		trace.WithTimestamp(c.Timestamp),
		trace.WithAttributes(
			attribute.String("session.id", l.sessionID),
			attribute.String("turn.enter_trigger", string(c.Trigger)),
		),
	)
}

// InPhase reports whether a phase span is open.
func (l *TracingListener) InPhase() bool {
	return l.span != nil
}

var _ turn.Listener = (*TracingListener)(nil)
