package errorsx

import (
	"errors"
	"testing"
)

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonHookInvocation)
	if Reason(err) != ReasonHookInvocation {
		t.Fatalf("expected reason %s, got %s", ReasonHookInvocation, Reason(err))
	}
	if !HasReason(err, ReasonHookInvocation) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonBudgetInvalid)
	second := Wrap(first, ReasonConfigInvalid)
	if Reason(second) != ReasonBudgetInvalid {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestWrapNilAndUnwrap(t *testing.T) {
	if Wrap(nil, ReasonQueueFull) != nil {
		t.Fatalf("expected nil passthrough")
	}
	if Reason(nil) != ReasonUnknown {
		t.Fatalf("expected unknown reason for nil")
	}
	err := Wrap(assertErr{}, ReasonQueueFull)
	var target assertErr
	if !errors.As(err, &target) {
		t.Fatalf("expected wrapped error to unwrap")
	}
	if Reason(errors.New("plain")) != ReasonUnknown {
		t.Fatalf("expected unknown reason for plain error")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestErrorfKeepsWrappedChain(t *testing.T) {
	base := assertErr{}
	err := Errorf(ReasonHookExec, "run %s: %w", "show_overlay", base)
	if !HasReason(err, ReasonHookExec) {
		t.Fatalf("expected hook_exec reason, got %s", Reason(err))
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected errors.Is to find wrapped error")
	}
	if got := New(ReasonSessionClosed, "closed").Error(); got != "closed" {
		t.Fatalf("unexpected message %q", got)
	}
}
