package turn

import (
	"context"
	"time"
)

// Handle cancels a scheduled callback. Cancel must be idempotent and safe to
// call after the callback has already been queued.
type Handle interface {
	Cancel()
}

// Timer schedules a single delayed callback.
type Timer interface {
	Schedule(delay time.Duration, fn func()) Handle
}

// TimerFunc adapts a function to Timer.
type TimerFunc func(delay time.Duration, fn func()) Handle

func (f TimerFunc) Schedule(delay time.Duration, fn func()) Handle { return f(delay, fn) }

// Work is a deferred unit of side-effect work handed to a Spawner.
type Work func(ctx context.Context) error

// Spawner runs Work without blocking the caller.
type Spawner interface {
	Spawn(work Work)
}

// SpawnerFunc adapts a function to Spawner.
type SpawnerFunc func(work Work)

func (f SpawnerFunc) Spawn(work Work) { f(work) }
