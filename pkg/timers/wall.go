// Package timers provides turn.Timer implementations backed by the wall
// clock and by a manually advanced virtual clock.
package timers

import (
	"sync/atomic"
	"time"

	"github.com/harunnryd/halo/pkg/turn"
)

// Wall schedules callbacks with time.AfterFunc.
type Wall struct {
	pending atomic.Int64
}

func NewWall() *Wall {
	return &Wall{}
}

// Schedule runs fn after delay unless the returned handle is cancelled first.
func (w *Wall) Schedule(delay time.Duration, fn func()) turn.Handle {
	h := &wallHandle{owner: w}
	w.pending.Add(1)
	h.timer = time.AfterFunc(delay, func() {
		if !h.done.CompareAndSwap(false, true) {
			return
		}
		w.pending.Add(-1)
		fn()
	})
	return h
}

// Pending returns the number of callbacks neither fired nor cancelled.
func (w *Wall) Pending() int {
	return int(w.pending.Load())
}

type wallHandle struct {
	owner *Wall
	timer *time.Timer
	done  atomic.Bool
}

// Cancel is idempotent. A callback already queued by the runtime observes the
// done flag and returns without calling fn.
func (h *wallHandle) Cancel() {
	if !h.done.CompareAndSwap(false, true) {
		return
	}
	h.owner.pending.Add(-1)
	if h.timer != nil {
		h.timer.Stop()
	}
}

var _ turn.Timer = (*Wall)(nil)
