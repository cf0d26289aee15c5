package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyRetriesUntilSuccess(t *testing.T) {
	p := NewRetryPolicy(3, time.Millisecond)
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicyReturnsLastError(t *testing.T) {
	p := NewRetryPolicy(1, time.Millisecond)
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("down")
	})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 2, calls)
}

func TestRetryPolicyStopsOnContextDone(t *testing.T) {
	p := NewRetryPolicy(5, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestNewRetryPolicyDefaults(t *testing.T) {
	p := NewRetryPolicy(-1, 0)
	assert.Equal(t, 0, p.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, p.Backoff)
}
