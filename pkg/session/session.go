// Package session serializes every call into a turn.Machine through a single
// loop goroutine fed by a two-level priority queue. Timer callbacks are
// re-posted into the same loop, so integrators never touch the machine from
// more than one goroutine.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/harunnryd/halo/pkg/errorsx"
	"github.com/harunnryd/halo/pkg/priority"
	"github.com/harunnryd/halo/pkg/turn"
)

const (
	DefaultQueueSize = 64
	DefaultFairness  = 3
)

// Snapshot is a consistent view of the machine taken on the loop.
type Snapshot struct {
	ID              string
	State           turn.State
	LastErrorReason string
	HasError        bool
	ArmedTimers     []turn.TimerKey
}

// Options configures a Session. Budget, Timer and Spawner are required.
type Options struct {
	ID        string
	Budget    turn.Budget
	Timer     turn.Timer
	Spawner   turn.Spawner
	Hooks     turn.Hooks
	Listeners []turn.Listener
	Logger    *slog.Logger
	Now       func() time.Time
	QueueSize int
	Fairness  int
	// Wait implements the "wait" script step. Defaults to stepping Clock when
	// set, otherwise to a ctx-aware sleep.
	Wait func(ctx context.Context, d time.Duration) error
	// Clock is the virtual clock behind Timer, if any.
	Clock SteppedClock
}

// SteppedClock is a virtual clock that fires due callbacks from Advance.
type SteppedClock interface {
	Next() (time.Duration, bool)
	Advance(d time.Duration) int
}

type command struct {
	run  func(m *turn.Machine) error
	done chan error
}

// Session owns one Machine and the loop that drives it.
type Session struct {
	id      string
	machine *turn.Machine
	queue   *priority.Queue[command]
	spawner turn.Spawner
	wait    func(ctx context.Context, d time.Duration) error
	clock   SteppedClock
	log     *slog.Logger

	// halt is cancelled when the loop stops so blocked timer posts give up.
	halt       context.Context
	cancelHalt context.CancelFunc

	mu     sync.RWMutex
	closed bool

	started  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

var (
	errClosed = errorsx.New(errorsx.ReasonSessionClosed, "session closed")
	errFull   = errorsx.New(errorsx.ReasonQueueFull, "session queue full")
)

// New builds a session in turn.StateIdle. Call Run to start the loop.
func New(opts Options) (*Session, error) {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log = log.With(slog.String("session_id", id))
	if opts.Timer == nil {
		return nil, errors.New("session: timer is required")
	}
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	fairness := opts.Fairness
	if fairness <= 0 {
		fairness = DefaultFairness
	}
	halt, cancelHalt := context.WithCancel(context.Background())
	s := &Session{
		id:         id,
		queue:      priority.New[command](size, size, fairness),
		spawner:    opts.Spawner,
		wait:       opts.Wait,
		clock:      opts.Clock,
		log:        log,
		halt:       halt,
		cancelHalt: cancelHalt,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	switch {
	case s.wait != nil:
	case s.clock != nil:
		s.wait = s.advance
	default:
		s.wait = sleep
	}
	m, err := turn.NewMachine(opts.Budget, loopTimer{inner: opts.Timer, s: s}, opts.Spawner, turn.Options{
		Hooks:     opts.Hooks,
		Listeners: opts.Listeners,
		Logger:    log,
		Now:       opts.Now,
	})
	if err != nil {
		cancelHalt()
		return nil, err
	}
	s.machine = m
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Run drives the loop until ctx is done or Drain is called.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.log.Info("session_started")
	defer s.finish()
	for {
		cmd, err := s.queue.Pop(ctx)
		if err != nil {
			return nil
		}
		s.exec(cmd)
	}
}

// Drain stops the loop, fails queued commands with session_closed and waits
// for spawned hook work when the spawner supports it.
func (s *Session) Drain() error {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.started.CompareAndSwap(false, true) {
		s.finish()
	}
	<-s.done
	if d, ok := s.spawner.(interface{ Drain() error }); ok {
		return d.Drain()
	}
	return nil
}

// Done is closed once the loop has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) finish() {
	s.cancelHalt()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.machine.Stop()
	for s.queue.Len() > 0 {
		cmd, err := s.queue.Pop(context.Background())
		if err != nil {
			break
		}
		if cmd.done != nil {
			cmd.done <- errClosed
		}
	}
	s.log.Info("session_stopped", "state", s.machine.State().String())
	close(s.done)
}

func (s *Session) exec(cmd command) {
	err := cmd.run(s.machine)
	if cmd.done != nil {
		cmd.done <- err
	}
}

func (s *Session) post(high bool, cmd command) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	var ok bool
	if high {
		ok = s.queue.TryPushHigh(cmd)
	} else {
		ok = s.queue.TryPushLow(cmd)
	}
	if !ok {
		return errFull
	}
	return nil
}

// postTimer queues a timer callback on the high lane, waiting for room
// instead of dropping it. It gives up once the loop has stopped.
func (s *Session) postTimer(cmd command) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	if err := s.queue.PushHigh(s.halt, cmd); err != nil {
		return errClosed
	}
	return nil
}

func (s *Session) do(ctx context.Context, high bool, fn func(m *turn.Machine) error) error {
	cmd := command{run: fn, done: make(chan error, 1)}
	if err := s.post(high, cmd); err != nil {
		return err
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		select {
		case err := <-cmd.done:
			return err
		default:
			return errClosed
		}
	}
}

func highPriority(t turn.Trigger) bool {
	switch t {
	case turn.TriggerReset, turn.TriggerNetworkError, turn.TriggerTimeout:
		return true
	}
	return false
}

// Fire dispatches trigger on the loop and returns the machine's verdict.
func (s *Session) Fire(ctx context.Context, trigger turn.Trigger, text string) error {
	_, err := s.fire(ctx, trigger, text)
	return err
}

func (s *Session) fire(ctx context.Context, trigger turn.Trigger, text string) (Snapshot, error) {
	var snap Snapshot
	err := s.do(ctx, highPriority(trigger), func(m *turn.Machine) error {
		err := m.Fire(trigger, text)
		snap = s.snapshot(m)
		return err
	})
	return snap, err
}

func (s *Session) WakeWordDetected(ctx context.Context) error {
	return s.Fire(ctx, turn.TriggerWakeWord, "")
}

func (s *Session) ButtonTapped(ctx context.Context) error {
	return s.Fire(ctx, turn.TriggerButtonTapped, "")
}

func (s *Session) RequestSubmitted(ctx context.Context) error {
	return s.Fire(ctx, turn.TriggerRequestSubmitted, "")
}

func (s *Session) ResponseReady(ctx context.Context, text string) error {
	return s.Fire(ctx, turn.TriggerResponseReady, text)
}

func (s *Session) ResponseComplete(ctx context.Context) error {
	return s.Fire(ctx, turn.TriggerResponseComplete, "")
}

func (s *Session) NetworkError(ctx context.Context) error {
	return s.Fire(ctx, turn.TriggerNetworkError, "")
}

func (s *Session) Timeout(ctx context.Context) error {
	return s.Fire(ctx, turn.TriggerTimeout, "")
}

func (s *Session) Reset(ctx context.Context) error {
	return s.Fire(ctx, turn.TriggerReset, "")
}

// Snapshot reads the machine on the loop.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	return s.snapshotOn(ctx, false)
}

// snapshotOn with high set runs behind every high priority command already
// queued, including re-posted timer callbacks.
func (s *Session) snapshotOn(ctx context.Context, high bool) (Snapshot, error) {
	var snap Snapshot
	err := s.do(ctx, high, func(m *turn.Machine) error {
		snap = s.snapshot(m)
		return nil
	})
	return snap, err
}

func (s *Session) snapshot(m *turn.Machine) Snapshot {
	reason, has := m.LastErrorReason()
	return Snapshot{
		ID:              s.id,
		State:           m.State(),
		LastErrorReason: reason,
		HasError:        has,
		ArmedTimers:     m.ArmedTimers(),
	}
}

// loopTimer re-posts timer callbacks into the session loop.
type loopTimer struct {
	inner turn.Timer
	s     *Session
}

func (t loopTimer) Schedule(delay time.Duration, fn func()) turn.Handle {
	return t.inner.Schedule(delay, func() {
		err := t.s.postTimer(command{run: func(*turn.Machine) error {
			fn()
			return nil
		}})
		if err != nil {
			t.s.log.Debug("session_timer_discarded", "delay", delay, "error", err)
		}
	})
}

// advance moves the virtual clock forward by d one deadline at a time. After
// each deadline it waits for the loop to run the re-posted callbacks, so a
// transition fired by a timer is stamped with its own deadline and timers it
// arms are measured from there.
func (s *Session) advance(ctx context.Context, d time.Duration) error {
	for d > 0 {
		next, ok := s.clock.Next()
		if !ok || next > d {
			s.clock.Advance(d)
			return nil
		}
		if next < 0 {
			next = 0
		}
		s.clock.Advance(next)
		d -= next
		if _, err := s.snapshotOn(ctx, true); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
