package async

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/harunnryd/halo/pkg/turn"
)

// Inline runs work synchronously on the spawning goroutine. Timeouts, panic
// recovery and failure logging still apply. Used for deterministic replays.
type Inline struct {
	ctx    context.Context
	runner runner
	failed atomic.Int64
}

func NewInline(ctx context.Context, log *slog.Logger, timeout time.Duration) *Inline {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Inline{ctx: ctx, runner: newRunner(log, timeout, nil)}
}

func (i *Inline) Spawn(work turn.Work) {
	if work == nil {
		return
	}
	if err := i.runner.run(i.ctx, work); err != nil {
		i.failed.Add(1)
	}
}

// Failed returns the number of units that returned an error.
func (i *Inline) Failed() int64 { return i.failed.Load() }

// Drain is a no-op; every unit has finished by the time Spawn returns.
func (i *Inline) Drain() error { return nil }

var _ turn.Spawner = (*Inline)(nil)
