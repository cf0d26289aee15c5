package priority

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePrefersHigh(t *testing.T) {
	q := New[string](4, 4, 3)
	require.True(t, q.TryPushLow("low"))
	require.True(t, q.TryPushHigh("high"))

	ctx := context.Background()
	v, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "high", v)
	v, err = q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "low", v)
	assert.Equal(t, Stats{HighPush: 1, LowPush: 1, HighPop: 1, LowPop: 1}, q.Stats())
}

func TestQueueFairnessServesLowAfterStreak(t *testing.T) {
	q := New[int](8, 8, 2)
	for i := 0; i < 4; i++ {
		require.True(t, q.TryPushHigh(i))
	}
	require.True(t, q.TryPushLow(100))

	ctx := context.Background()
	var got []int
	for i := 0; i < 5; i++ {
		v, err := q.Pop(ctx)
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []int{0, 1, 100, 2, 3}, got)
}

func TestQueueRejectsWhenFull(t *testing.T) {
	q := New[int](1, 1, 1)
	assert.True(t, q.TryPushHigh(1))
	assert.False(t, q.TryPushHigh(2))
	assert.True(t, q.TryPushLow(1))
	assert.False(t, q.TryPushLow(2))
	assert.Equal(t, 2, q.Len())
}

func TestQueuePopHonoursContext(t *testing.T) {
	q := New[int](1, 1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueuePushHighWaitsForRoom(t *testing.T) {
	q := New[int](1, 1, 1)
	require.True(t, q.TryPushHigh(1))

	pushed := make(chan error, 1)
	go func() { pushed <- q.PushHigh(context.Background(), 2) }()

	select {
	case <-pushed:
		t.Fatal("push returned while the lane was full")
	case <-time.After(20 * time.Millisecond):
	}
	v, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	require.NoError(t, <-pushed)
	v, err = q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestQueuePushHighHonoursContext(t *testing.T) {
	q := New[int](1, 1, 1)
	require.True(t, q.TryPushHigh(1))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.PushHigh(ctx, 2), context.DeadlineExceeded)
	assert.Equal(t, 1, q.Len())
}
