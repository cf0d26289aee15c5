package timers

import (
	"sync"
	"time"

	"github.com/harunnryd/halo/pkg/turn"
)

// Manual is a virtual clock. Callbacks only run from Advance, on the caller's goroutine.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	entries []*manualEntry
}

type manualEntry struct {
	owner     *Manual
	deadline  time.Time
	seq       uint64
	fn        func()
	cancelled bool
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Schedule(delay time.Duration, fn func()) turn.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	e := &manualEntry{owner: m, deadline: m.now.Add(delay), seq: m.seq, fn: fn}
	m.entries = append(m.entries, e)
	return e
}

func (e *manualEntry) Cancel() {
	e.owner.mu.Lock()
	e.cancelled = true
	e.owner.mu.Unlock()
}

// Pending returns the number of callbacks waiting to fire.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if !e.cancelled {
			n++
		}
	}
	return n
}

// Next returns the delay until the earliest pending callback.
func (m *Manual) Next() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.earliestLocked(time.Time{}, false)
	if e == nil {
		return 0, false
	}
	return e.deadline.Sub(m.now), true
}

// Advance moves the clock forward by d, firing due callbacks in deadline
// order. Callbacks scheduled while advancing fire too if they fall due
// within the window. It returns the number of callbacks fired.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	fired := 0
	for {
		m.mu.Lock()
		e := m.earliestLocked(target, true)
		if e == nil {
			m.now = target
			m.mu.Unlock()
			return fired
		}
		m.removeLocked(e)
		m.now = e.deadline
		m.mu.Unlock()

		e.fn()
		fired++
	}
}

// earliestLocked returns the first live entry, due at or before limit when bounded.
func (m *Manual) earliestLocked(limit time.Time, bounded bool) *manualEntry {
	var best *manualEntry
	for _, e := range m.entries {
		if e.cancelled {
			continue
		}
		if bounded && e.deadline.After(limit) {
			continue
		}
		if best == nil || e.deadline.Before(best.deadline) || (e.deadline.Equal(best.deadline) && e.seq < best.seq) {
			best = e
		}
	}
	return best
}

func (m *Manual) removeLocked(target *manualEntry) {
	out := m.entries[:0]
	for _, e := range m.entries {
		if e != target && !e.cancelled {
			out = append(out, e)
		}
	}
	m.entries = out
}

var _ turn.Timer = (*Manual)(nil)
