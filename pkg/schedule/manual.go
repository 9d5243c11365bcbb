package schedule

import (
	"sort"
	"sync"
	"time"
)

// Manual is a virtual-time Scheduler. Callbacks only run from Advance, on the
// caller's goroutine, in due-time order.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   uint64
	tasks map[string]manualTask
}

type manualTask struct {
	due time.Duration
	seq uint64
	fn  func()
}

// NewManual creates a scheduler whose clock starts at zero
func NewManual() *Manual {
	return &Manual{tasks: make(map[string]manualTask)}
}

// Schedule registers fn to run once the clock passes now+d
func (m *Manual) Schedule(key string, d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.tasks[key] = manualTask{due: m.now + d, seq: m.seq, fn: fn}
}

// Cancel drops the pending task for key
func (m *Manual) Cancel(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, key)
}

// Pending reports whether key has a task registered
func (m *Manual) Pending(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tasks[key]
	return ok
}

// Now returns the virtual clock
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d, running every task that falls due.
// Tasks scheduled by a running callback run too if they are due within d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		key, task, ok := m.next(target)
		if !ok {
			// a nested Advance from a callback may have moved past target
			if target > m.now {
				m.now = target
			}
			m.mu.Unlock()
			return
		}
		delete(m.tasks, key)
		if task.due > m.now {
			m.now = task.due
		}
		m.mu.Unlock()

		task.fn()
	}
}

// next returns the earliest task due at or before target. Caller holds mu.
func (m *Manual) next(target time.Duration) (string, manualTask, bool) {
	keys := make([]string, 0, len(m.tasks))
	for k, t := range m.tasks {
		if t.due <= target {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", manualTask{}, false
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := m.tasks[keys[i]], m.tasks[keys[j]]
		if a.due != b.due {
			return a.due < b.due
		}
		return a.seq < b.seq
	})
	return keys[0], m.tasks[keys[0]], true
}
