package turn

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/harunnryd/halo/pkg/errorsx"
)

// StateChange represents a state transition event.
type StateChange struct {
	From      State
	To        State
	Trigger   Trigger
	Reason    string
	Timestamp time.Time
}

// Listener observes turn state changes.
type Listener interface {
	OnStateChange(change StateChange)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(change StateChange)

func (f ListenerFunc) OnStateChange(change StateChange) { f(change) }

// Options configures a Machine. Every field is optional.
type Options struct {
	Hooks     Hooks
	Listeners []Listener
	Logger    *slog.Logger
	Now       func() time.Time
}

type armedTimer struct {
	handle Handle
	gen    uint64
}

// Machine sequences the listening, thinking and responding phases of a turn.
// It is not safe for concurrent use; callers delivering timer callbacks from
// other goroutines must serialize access (see pkg/session).
type Machine struct {
	current   State
	lastError string
	hasError  bool

	budget    Budget
	timer     Timer
	spawner   Spawner
	hooks     Hooks
	listeners []Listener

	timers map[TimerKey]armedTimer
	gen    uint64

	log *slog.Logger
	now func() time.Time
}

// NewMachine creates a Machine in StateIdle.
func NewMachine(budget Budget, timer Timer, spawner Spawner, opts Options) (*Machine, error) {
	if err := budget.validate(); err != nil {
		return nil, err
	}
	if timer == nil {
		return nil, errors.New("turn: timer is required")
	}
	if spawner == nil {
		return nil, errors.New("turn: spawner is required")
	}
	hooks := opts.Hooks
	if hooks == nil {
		hooks = NoopHooks{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	listeners := make([]Listener, 0, len(opts.Listeners))
	for _, l := range opts.Listeners {
		if l != nil {
			listeners = append(listeners, l)
		}
	}
	return &Machine{
		current:   StateIdle,
		budget:    budget,
		timer:     timer,
		spawner:   spawner,
		hooks:     hooks,
		listeners: listeners,
		timers:    make(map[TimerKey]armedTimer),
		log:       log,
		now:       now,
	}, nil
}

// State returns the current state.
func (m *Machine) State() State {
	return m.current
}

// LastErrorReason returns the reason recorded on the last entry to StateError.
func (m *Machine) LastErrorReason() (string, bool) {
	return m.lastError, m.hasError
}

// ArmedTimers returns the keys of the currently armed phase timers.
func (m *Machine) ArmedTimers() []TimerKey {
	keys := make([]TimerKey, 0, len(m.timers))
	for k := range m.timers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Budget returns the phase limits the machine was built with.
func (m *Machine) Budget() Budget {
	return m.budget
}

// Subscribe registers a listener for state change events.
func (m *Machine) Subscribe(l Listener) {
	if l == nil {
		return
	}
	m.listeners = append(m.listeners, l)
}

func (m *Machine) WakeWordDetected() error { return m.Fire(TriggerWakeWord, "") }
func (m *Machine) ButtonTapped() error     { return m.Fire(TriggerButtonTapped, "") }
func (m *Machine) RequestSubmitted() error { return m.Fire(TriggerRequestSubmitted, "") }
func (m *Machine) ResponseComplete() error { return m.Fire(TriggerResponseComplete, "") }
func (m *Machine) NetworkError() error     { return m.Fire(TriggerNetworkError, "") }
func (m *Machine) Timeout() error          { return m.Fire(TriggerTimeout, "") }
func (m *Machine) Reset() error            { return m.Fire(TriggerReset, "") }

// ResponseReady moves Thinking to Responding and hands text to the speech hook.
func (m *Machine) ResponseReady(text string) error {
	return m.Fire(TriggerResponseReady, text)
}

// Fire dispatches a trigger through the transition table. text is only used
// by TriggerResponseReady.
func (m *Machine) Fire(trigger Trigger, text string) error {
	eff, ok := lookupTransition(trigger, m.current)
	if !ok {
		m.log.Warn("turn_trigger_rejected", "trigger", string(trigger), "state", m.current.String())
		return errorsx.Wrap(&InvalidTransitionError{Trigger: trigger, State: m.current}, errorsx.ReasonInvalidTransition)
	}
	if eff == effectIgnore {
		m.log.Debug("turn_trigger_ignored", "trigger", string(trigger), "state", m.current.String())
		return nil
	}
	plan, err := m.prepare(trigger, eff, text)
	if err != nil {
		m.log.Error("turn_hook_failed", "trigger", string(trigger), "state", m.current.String(), "error", err)
		return errorsx.Wrap(err, errorsx.ReasonHookInvocation)
	}
	return m.apply(trigger, plan)
}

// transitionPlan holds every prepared hook for one entry, in spawn order.
type transitionPlan struct {
	to          State
	pre         []Work
	hide        Work
	show        Work
	post        []Work
	reason      string
	setReason   bool
	clearReason bool
	timer       TimerKey
}

// prepare invokes the hook factories an entry needs. A failure here leaves the machine untouched.
func (m *Machine) prepare(trigger Trigger, eff effect, text string) (transitionPlan, error) {
	var (
		p    transitionPlan
		prep preparer
	)
	switch eff {
	case effectListen:
		p.to, p.timer = StateListening, ListenTimeout
		m.prepareOverlay(&prep, &p)
		p.post = append(p.post, prep.call(HookStartCapture, m.hooks.StartCapture))
	case effectThink:
		p.to, p.timer = StateThinking, ThinkingTimeout
		p.pre = append(p.pre, prep.call(HookStopCapture, m.hooks.StopCapture))
		m.prepareOverlay(&prep, &p)
	case effectRespond:
		p.to, p.timer = StateResponding, ResponseTimeout
		m.prepareOverlay(&prep, &p)
		p.post = append(p.post, prep.call(HookStartSpeech, func() (Work, error) { return m.hooks.StartSpeech(text) }))
	case effectComplete:
		p.to = StateIdle
		p.pre = append(p.pre, prep.call(HookStopSpeech, m.hooks.StopSpeech))
		m.prepareOverlay(&prep, &p)
	case effectFail:
		p.to, p.setReason = StateError, true
		p.reason = ReasonTimeout
		if trigger == TriggerNetworkError {
			p.reason = ReasonNetworkError
		}
		p.pre = append(p.pre,
			prep.call(HookStopCapture, m.hooks.StopCapture),
			prep.call(HookStopSpeech, m.hooks.StopSpeech),
		)
		m.prepareOverlay(&prep, &p)
	case effectReset:
		p.to, p.clearReason = StateIdle, true
		p.pre = append(p.pre,
			prep.call(HookStopCapture, m.hooks.StopCapture),
			prep.call(HookStopSpeech, m.hooks.StopSpeech),
		)
		m.prepareOverlay(&prep, &p)
	default:
		return p, fmt.Errorf("turn: unknown effect %d", eff)
	}
	return p, prep.err
}

func (m *Machine) prepareOverlay(prep *preparer, p *transitionPlan) {
	if p.to == m.current {
		return
	}
	from, to := m.current, p.to
	p.hide = prep.call(HookHideOverlay, func() (Work, error) { return m.hooks.HideOverlay(from) })
	p.show = prep.call(HookShowOverlay, func() (Work, error) { return m.hooks.ShowOverlay(to) })
}

func (m *Machine) apply(trigger Trigger, p transitionPlan) error {
	m.cancelTimers()
	for _, w := range p.pre {
		m.spawn(w)
	}
	switch {
	case p.setReason:
		m.lastError, m.hasError = p.reason, true
	case p.clearReason:
		m.lastError, m.hasError = "", false
	}
	m.transition(trigger, p.to, p.reason, p.hide, p.show)
	for _, w := range p.post {
		m.spawn(w)
	}
	if p.timer == "" {
		return nil
	}
	return m.arm(p.timer)
}

// transition hides the previous overlay, updates the state, notifies
// listeners and shows the new overlay. Self-transitions do nothing.
func (m *Machine) transition(trigger Trigger, to State, reason string, hide, show Work) {
	from := m.current
	if from == to {
		return
	}
	m.spawn(hide)
	m.current = to
	m.log.Debug("turn_transition", "trigger", string(trigger), "from", from.String(), "to", to.String())
	change := StateChange{
		From:      from,
		To:        to,
		Trigger:   trigger,
		Reason:    reason,
		Timestamp: m.now(),
	}
	for _, l := range m.listeners {
		l.OnStateChange(change)
	}
	m.spawn(show)
}

func (m *Machine) spawn(w Work) {
	if w == nil {
		return
	}
	m.spawner.Spawn(w)
}

func (m *Machine) arm(key TimerKey) error {
	delay := m.budget.For(key)
	if delay <= 0 {
		return errorsx.Wrap(&BudgetError{Field: string(key), Value: delay}, errorsx.ReasonBudgetInvalid)
	}
	m.gen++
	gen := m.gen
	handle := m.timer.Schedule(delay, func() { m.onTimer(key, gen) })
	m.timers[key] = armedTimer{handle: handle, gen: gen}
	return nil
}

// onTimer drops stale callbacks, removes its own registry entry and re-enters through Timeout.
func (m *Machine) onTimer(key TimerKey, gen uint64) {
	armed, ok := m.timers[key]
	if !ok || armed.gen != gen {
		m.log.Debug("turn_timer_stale", "timer", string(key))
		return
	}
	delete(m.timers, key)
	m.log.Info("turn_timer_fired", "timer", string(key), "state", m.current.String())
	if err := m.Timeout(); err != nil {
		m.log.Error("turn_timeout_failed", "timer", string(key), "error", err)
	}
}

// Stop cancels every armed timer without changing state. The machine stays
// usable; the next entry to an active phase arms its timer again.
func (m *Machine) Stop() {
	m.cancelTimers()
}

func (m *Machine) cancelTimers() {
	for key, armed := range m.timers {
		if armed.handle != nil {
			armed.handle.Cancel()
		}
		delete(m.timers, key)
	}
}

// preparer records the first hook failure and skips later factories.
type preparer struct {
	err error
}

func (p *preparer) call(name string, factory func() (Work, error)) Work {
	if p.err != nil {
		return nil
	}
	w, err := invokeHook(name, factory)
	if err != nil {
		p.err = err
		return nil
	}
	return w
}

func invokeHook(name string, factory func() (Work, error)) (w Work, err error) {
	defer func() {
		if r := recover(); r != nil {
			w, err = nil, &HookError{Hook: name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	w, err = factory()
	if err != nil {
		return nil, &HookError{Hook: name, Err: err}
	}
	if w == nil {
		w = Nop
	}
	return w, nil
}
