package turn

import (
	"time"

	"github.com/harunnryd/halo/pkg/errorsx"
)

// TimerKey identifies the phase timer armed for an active state.
type TimerKey string

const (
	ListenTimeout   TimerKey = "listen_timeout"
	ThinkingTimeout TimerKey = "thinking_timeout"
	ResponseTimeout TimerKey = "response_timeout"
)

// Budget holds the per-phase time limits. The zero value is invalid; use NewBudget.
type Budget struct {
	listen  time.Duration
	think   time.Duration
	respond time.Duration
}

// NewBudget validates and returns a Budget. Every field must be strictly positive.
func NewBudget(listen, think, respond time.Duration) (Budget, error) {
	b := Budget{listen: listen, think: think, respond: respond}
	if err := b.validate(); err != nil {
		return Budget{}, err
	}
	return b, nil
}

func (b Budget) Listen() time.Duration  { return b.listen }
func (b Budget) Think() time.Duration   { return b.think }
func (b Budget) Respond() time.Duration { return b.respond }

// For returns the limit bound to a timer key, or zero for an unknown key.
func (b Budget) For(key TimerKey) time.Duration {
	switch key {
	case ListenTimeout:
		return b.listen
	case ThinkingTimeout:
		return b.think
	case ResponseTimeout:
		return b.respond
	default:
		return 0
	}
}

func (b Budget) validate() error {
	for _, key := range []TimerKey{ListenTimeout, ThinkingTimeout, ResponseTimeout} {
		if v := b.For(key); v <= 0 {
			return errorsx.Wrap(&BudgetError{Field: string(key), Value: v}, errorsx.ReasonBudgetInvalid)
		}
	}
	return nil
}
