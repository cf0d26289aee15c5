package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultDrainTimeout = 10 * time.Second

type Options struct {
	// Drainers run in order once the run context ends.
	Drainers []Drainer
	// OnStart runs after the banner; an error aborts Run and drains.
	OnStart func(ctx context.Context) error
	OnStop  func()
	Timeout time.Duration
	// Banner receives the startup banner; nil skips it.
	Banner io.Writer
	Logger *slog.Logger
}

type Lifecycle struct {
	phase    atomic.Int32
	opts     Options
	log      *slog.Logger
	mu       sync.Mutex
	cancel   context.CancelFunc
	onceStop sync.Once
	stopErr  error
}

func New(opts Options) *Lifecycle {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultDrainTimeout
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Lifecycle{opts: opts, log: log}
}

// Run starts the components and blocks until ctx ends or Stop is called.
func (r *Lifecycle) Run(ctx context.Context) error {
	if !r.phase.CompareAndSwap(int32(PhaseNew), int32(PhaseStarting)) {
		return fmt.Errorf("runner: cannot run from phase %s", r.Phase())
	}
	if r.opts.Banner != nil {
		PrintBanner(r.opts.Banner, false)
	}
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	if r.opts.OnStart != nil {
		if err := r.opts.OnStart(ctx); err != nil {
			r.log.Error("runner_start_failed", "error", err)
			return errors.Join(err, r.stop())
		}
	}
	r.phase.Store(int32(PhaseRunning))
	r.log.Info("runner_running", "version", Version)
	<-ctx.Done()
	return r.stop()
}

// Stop cancels Run and drains. It is safe to call more than once.
func (r *Lifecycle) Stop() error {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return r.stop()
}

func (r *Lifecycle) Phase() Phase {
	return Phase(r.phase.Load())
}

func (r *Lifecycle) stop() error {
	r.onceStop.Do(func() {
		r.phase.Store(int32(PhaseDraining))
		r.stopErr = r.drain()
		if r.opts.OnStop != nil {
			r.opts.OnStop()
		}
		r.phase.Store(int32(PhaseStopped))
		r.log.Info("runner_stopped", "error", r.stopErr)
	})
	return r.stopErr
}

func (r *Lifecycle) drain() error {
	if len(r.opts.Drainers) == 0 {
		return nil
	}
	done := make(chan error, 1)
	go func() {
		var errs []error
		for _, d := range r.opts.Drainers {
			if d == nil {
				continue
			}
			if err := d.Drain(); err != nil {
				errs = append(errs, err)
			}
		}
		done <- errors.Join(errs...)
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(r.opts.Timeout):
		return errors.New("runner: drain timeout")
	}
}

var _ Runner = (*Lifecycle)(nil)
