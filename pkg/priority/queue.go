package priority

import (
	"context"
	"sync/atomic"
)

type Stats struct {
	HighPush int64
	LowPush  int64
	HighPop  int64
	LowPop   int64
}

// Queue is a two-level bounded queue with a single consumer. High items are
// preferred, but after fairness consecutive high pops a waiting low item is
// served first so low traffic cannot starve.
type Queue[T any] struct {
	high     chan T
	low      chan T
	fairness int
	streak   int
	highPush int64
	lowPush  int64
	highPop  int64
	lowPop   int64
}

func New[T any](highCap, lowCap, fairness int) *Queue[T] {
	if fairness <= 0 {
		fairness = 3
	}
	if highCap <= 0 {
		highCap = 16
	}
	if lowCap <= 0 {
		lowCap = 64
	}
	return &Queue[T]{
		high:     make(chan T, highCap),
		low:      make(chan T, lowCap),
		fairness: fairness,
	}
}

func (q *Queue[T]) TryPushHigh(v T) bool {
	select {
	case q.high <- v:
		atomic.AddInt64(&q.highPush, 1)
		return true
	default:
		return false
	}
}

func (q *Queue[T]) TryPushLow(v T) bool {
	select {
	case q.low <- v:
		atomic.AddInt64(&q.lowPush, 1)
		return true
	default:
		return false
	}
}

// PushHigh blocks until v fits in the high lane or ctx is done.
func (q *Queue[T]) PushHigh(ctx context.Context, v T) error {
	select {
	case q.high <- v:
		atomic.AddInt64(&q.highPush, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop blocks until an item is available or ctx is done.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	if q.streak >= q.fairness {
		select {
		case v := <-q.low:
			return q.poppedLow(v), nil
		default:
		}
	}
	select {
	case v := <-q.high:
		return q.poppedHigh(v), nil
	default:
	}
	select {
	case v := <-q.high:
		return q.poppedHigh(v), nil
	case v := <-q.low:
		return q.poppedLow(v), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	return len(q.high) + len(q.low)
}

func (q *Queue[T]) poppedHigh(v T) T {
	q.streak++
	atomic.AddInt64(&q.highPop, 1)
	return v
}

func (q *Queue[T]) poppedLow(v T) T {
	q.streak = 0
	atomic.AddInt64(&q.lowPop, 1)
	return v
}

func (q *Queue[T]) Stats() Stats {
	return Stats{
		HighPush: atomic.LoadInt64(&q.highPush),
		LowPush:  atomic.LoadInt64(&q.lowPush),
		HighPop:  atomic.LoadInt64(&q.highPop),
		LowPop:   atomic.LoadInt64(&q.lowPop),
	}
}
