package async

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/harunnryd/halo/pkg/turn"
	"github.com/sourcegraph/conc"
)

// Go runs every unit of work on its own goroutine.
type Go struct {
	ctx    context.Context
	runner runner
	wg     conc.WaitGroup
	failed atomic.Int64
}

// NewGo returns a spawner whose work observes ctx. A positive timeout bounds each unit.
func NewGo(ctx context.Context, log *slog.Logger, timeout time.Duration) *Go {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Go{ctx: ctx, runner: newRunner(log, timeout, nil)}
}

func (g *Go) Spawn(work turn.Work) {
	if work == nil {
		return
	}
	g.wg.Go(func() {
		if err := g.runner.run(g.ctx, work); err != nil {
			g.failed.Add(1)
		}
	})
}

// Failed returns the number of units that returned an error.
func (g *Go) Failed() int64 {
	return g.failed.Load()
}

// Drain waits for every spawned unit to finish.
func (g *Go) Drain() error {
	if r := g.wg.WaitAndRecover(); r != nil {
		return r.AsError()
	}
	return nil
}

var _ turn.Spawner = (*Go)(nil)
