package turn

type State int

const (
	StateIdle State = iota
	StateListening
	StateThinking
	StateResponding
	StateError
)

// States lists every state in declaration order.
var States = []State{StateIdle, StateListening, StateThinking, StateResponding, StateError}

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateListening:
		return "LISTENING"
	case StateThinking:
		return "THINKING"
	case StateResponding:
		return "RESPONDING"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Active reports whether the state is a timed phase.
func (s State) Active() bool {
	return s == StateListening || s == StateThinking || s == StateResponding
}

// Trigger names an inbound event accepted by the Machine.
type Trigger string

const (
	TriggerWakeWord         Trigger = "wake_word_detected"
	TriggerButtonTapped     Trigger = "button_tapped"
	TriggerRequestSubmitted Trigger = "request_submitted"
	TriggerResponseReady    Trigger = "response_ready"
	TriggerResponseComplete Trigger = "response_complete"
	TriggerNetworkError     Trigger = "network_error"
	TriggerTimeout          Trigger = "timeout"
	TriggerReset            Trigger = "reset"
)

// Triggers lists every trigger.
var Triggers = []Trigger{
	TriggerWakeWord,
	TriggerButtonTapped,
	TriggerRequestSubmitted,
	TriggerResponseReady,
	TriggerResponseComplete,
	TriggerNetworkError,
	TriggerTimeout,
	TriggerReset,
}

// Error reasons recorded on entry to StateError.
const (
	ReasonNetworkError = "Network error"
	ReasonTimeout      = "Timeout"
)
