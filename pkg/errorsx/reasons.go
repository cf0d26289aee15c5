package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonInvalidTransition ReasonCode = "invalid_transition"
	ReasonHookInvocation    ReasonCode = "hook_invocation"
	ReasonBudgetInvalid     ReasonCode = "budget_invalid"

	ReasonHookExec    ReasonCode = "hook_exec"
	ReasonHookTimeout ReasonCode = "hook_timeout"
	ReasonQueueFull   ReasonCode = "queue_full"

	ReasonSessionClosed ReasonCode = "session_closed"
	ReasonConfigInvalid ReasonCode = "config_invalid"
)
