package resilience

import (
	"context"
	"time"
)

// RetryPolicy defines retry behavior for failed hook work.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// NewRetryPolicy returns a policy. Negative retries are clamped to zero
// (run once); a non-positive backoff defaults to 200ms.
func NewRetryPolicy(maxRetries int, backoff time.Duration) RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return RetryPolicy{MaxRetries: maxRetries, Backoff: backoff}
}

// Do calls fn until it succeeds, retries are exhausted or ctx is done.
// Backoff grows linearly with the attempt number.
func (r RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for i := 0; i <= r.MaxRetries; i++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if i == r.MaxRetries {
			return err
		}
		t := time.NewTimer(r.Backoff * time.Duration(i+1))
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
	return err
}
