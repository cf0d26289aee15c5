// Package async provides turn.Spawner implementations that run hook work off
// the caller's goroutine.
package async

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/harunnryd/halo/pkg/errorsx"
	"github.com/harunnryd/halo/pkg/resilience"
	"github.com/harunnryd/halo/pkg/turn"
)

type runner struct {
	log     *slog.Logger
	timeout time.Duration
	retry   *resilience.RetryPolicy
}

func newRunner(log *slog.Logger, timeout time.Duration, retry *resilience.RetryPolicy) runner {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return runner{log: log, timeout: timeout, retry: retry}
}

// run executes one unit of work, converting panics and deadline overruns into reasoned errors.
func (r runner) run(ctx context.Context, work turn.Work) error {
	call := func(ctx context.Context) (err error) {
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		defer func() {
			if rec := recover(); rec != nil {
				err = errorsx.Errorf(errorsx.ReasonHookExec, "hook work panicked: %v", rec)
			}
		}()
		err = work(ctx)
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return errorsx.Wrap(fmt.Errorf("hook work timed out after %s: %w", r.timeout, err), errorsx.ReasonHookTimeout)
		}
		return errorsx.Wrap(err, errorsx.ReasonHookExec)
	}
	var err error
	if r.retry != nil {
		err = r.retry.Do(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		r.log.Warn("hook_work_failed", "reason", string(errorsx.Reason(err)), "error", err)
	}
	return err
}
