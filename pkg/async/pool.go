package async

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harunnryd/halo/pkg/errorsx"
	"github.com/harunnryd/halo/pkg/resilience"
	"github.com/harunnryd/halo/pkg/turn"
	"github.com/sourcegraph/conc"
)

type PoolOptions struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
	Retry     *resilience.RetryPolicy
	Logger    *slog.Logger
}

// Pool runs work on a fixed set of workers fed by a bounded queue. Spawn never
// blocks: work arriving at a full queue is dropped. With one worker, work runs
// in spawn order.
type Pool struct {
	ctx    context.Context
	runner runner
	log    *slog.Logger
	tasks  chan turn.Work

	mu     sync.RWMutex
	closed bool
	once   sync.Once
	wg     conc.WaitGroup

	dropped atomic.Int64
	failed  atomic.Int64
	done    atomic.Int64
}

func NewPool(ctx context.Context, opts PoolOptions) *Pool {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	r := newRunner(opts.Logger, opts.Timeout, opts.Retry)
	p := &Pool{
		ctx:    ctx,
		runner: r,
		log:    r.log,
		tasks:  make(chan turn.Work, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		p.wg.Go(p.worker)
	}
	return p
}

func (p *Pool) Spawn(work turn.Work) {
	if work == nil {
		return
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.drop("pool closed")
		return
	}
	select {
	case p.tasks <- work:
	default:
		p.drop("queue full")
	}
}

func (p *Pool) drop(why string) {
	p.dropped.Add(1)
	p.log.Warn("hook_work_dropped", "reason", string(errorsx.ReasonQueueFull), "detail", why)
}

func (p *Pool) worker() {
	for work := range p.tasks {
		if err := p.runner.run(p.ctx, work); err != nil {
			p.failed.Add(1)
		}
		p.done.Add(1)
	}
}

// Dropped returns the number of units rejected by Spawn.
func (p *Pool) Dropped() int64 { return p.dropped.Load() }

// Failed returns the number of units that returned an error.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Completed returns the number of units that ran, successfully or not.
func (p *Pool) Completed() int64 { return p.done.Load() }

// Drain stops accepting work, runs everything already queued and waits for the workers.
func (p *Pool) Drain() error {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
	})
	if r := p.wg.WaitAndRecover(); r != nil {
		return r.AsError()
	}
	return nil
}

var _ turn.Spawner = (*Pool)(nil)
