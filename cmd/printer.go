package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/halo/pkg/session"
	"github.com/harunnryd/halo/pkg/turn"
)

// transitionPrinter writes one line per state change, stamped with the offset
// from start.
type transitionPrinter struct {
	mu    *sync.Mutex
	w     io.Writer
	start time.Time
}

func newTransitionPrinter(w io.Writer, start time.Time) *transitionPrinter {
	return &transitionPrinter{mu: &sync.Mutex{}, w: w, start: start}
}

func (p *transitionPrinter) OnStateChange(c turn.StateChange) {
	line := fmt.Sprintf("%-8s %s -> %s (%s)", offset(c.Timestamp.Sub(p.start)), c.From, c.To, c.Trigger)
	if c.Reason != "" {
		line += " reason=" + c.Reason
	}
	p.println(line)
}

func (p *transitionPrinter) step(step session.Step, snap session.Snapshot, err error) {
	switch {
	case err != nil && errors.Is(err, turn.ErrInvalidTransition):
		p.println("! " + err.Error())
	case err != nil:
		p.println(fmt.Sprintf("! %s: %v", step, err))
	case step.Kind == session.StepState:
		p.println(describe(snap))
	}
}

func (p *transitionPrinter) println(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.w, line)
}

func describe(s session.Snapshot) string {
	timers := make([]string, len(s.ArmedTimers))
	for i, k := range s.ArmedTimers {
		timers[i] = string(k)
	}
	line := fmt.Sprintf("= %s timers=[%s]", s.State, strings.Join(timers, ","))
	if s.HasError {
		line += " last_error=" + s.LastErrorReason
	}
	return line
}

func offset(d time.Duration) string {
	return "+" + d.Round(time.Millisecond).String()
}

var _ turn.Listener = (*transitionPrinter)(nil)
