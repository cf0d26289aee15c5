package turn

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition matches every *InvalidTransitionError via errors.Is.
var ErrInvalidTransition = errors.New("invalid transition")

// InvalidTransitionError is returned when a trigger arrives in a state that does not accept it.
type InvalidTransitionError struct {
	Trigger Trigger
	State   State
}

func (e *InvalidTransitionError) Error() string {
	return "invalid transition: " + string(e.Trigger) + " not accepted in state " + e.State.String()
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// BudgetError names the offending budget field.
type BudgetError struct {
	Field string
	Value time.Duration
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("%s must be positive, got %s", e.Field, e.Value)
}

// HookError wraps a hook that failed before returning its unit of work.
type HookError struct {
	Hook string
	Err  error
}

func (e *HookError) Error() string {
	return "hook invocation failed: " + e.Hook + ": " + e.Err.Error()
}

func (e *HookError) Unwrap() error {
	return e.Err
}
