// Package schedule provides cancellable delayed callbacks keyed by name.
package schedule

import (
	"sync"
	"time"
)

// Scheduler runs fn once after d. Scheduling a key that is already pending
// replaces the pending callback.
type Scheduler interface {
	Schedule(key string, d time.Duration, fn func())
	Cancel(key string)
	Pending(key string) bool
}

// Timers is a Scheduler backed by time.AfterFunc
type Timers struct {
	mu     sync.Mutex
	timers map[string]*timerEntry
	seq    uint64
}

type timerEntry struct {
	timer *time.Timer
	seq   uint64
}

// NewTimers creates a real-time scheduler
func NewTimers() *Timers {
	return &Timers{timers: make(map[string]*timerEntry)}
}

// Schedule arms a timer for key, replacing any pending one
func (t *Timers) Schedule(key string, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.timers[key]; ok {
		old.timer.Stop()
	}
	t.seq++
	seq := t.seq
	entry := &timerEntry{seq: seq}
	entry.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		// a replaced timer that already fired must not run
		current, ok := t.timers[key]
		if !ok || current.seq != seq {
			t.mu.Unlock()
			return
		}
		delete(t.timers, key)
		t.mu.Unlock()
		fn()
	})
	t.timers[key] = entry
}

// Cancel stops the pending timer for key, if any
func (t *Timers) Cancel(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.timers[key]; ok {
		entry.timer.Stop()
		delete(t.timers, key)
	}
}

// Pending reports whether key has a timer armed
func (t *Timers) Pending(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[key]
	return ok
}

// Stop cancels every pending timer
func (t *Timers) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, entry := range t.timers {
		entry.timer.Stop()
		delete(t.timers, key)
	}
}
