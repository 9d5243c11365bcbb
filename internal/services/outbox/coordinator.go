// Package outbox buffers local region edits and flushes them to the
// persistence service, one write per region at a time.
package outbox

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/killallgit/transcript-sync/internal/models"
	apperrors "github.com/killallgit/transcript-sync/pkg/errors"
	"github.com/killallgit/transcript-sync/pkg/schedule"
)

const (
	DefaultDebounce     = 1500 * time.Millisecond
	DefaultBackoff      = 25 * time.Millisecond
	DefaultWriteTimeout = 10 * time.Second
)

// Config holds coordinator timings
type Config struct {
	Debounce     time.Duration
	Backoff      time.Duration
	WriteTimeout time.Duration
}

// Coordinator owns the write buffer of one synchronization session
type Coordinator struct {
	mu        sync.Mutex
	backend   Backend
	scheduler schedule.Scheduler
	listener  Listener
	cfg       Config
	entries   map[string]*entry
}

type entry struct {
	pending  models.RegionPatch
	sending  models.RegionPatch
	inFlight bool
	failed   bool
}

// NewCoordinator creates a coordinator. Zero durations in cfg take defaults.
func NewCoordinator(backend Backend, scheduler schedule.Scheduler, listener Listener, cfg Config) *Coordinator {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	return &Coordinator{
		backend:   backend,
		scheduler: scheduler,
		listener:  listener,
		cfg:       cfg,
		entries:   make(map[string]*entry),
	}
}

// Update merges patch into the region's buffered patch and restarts the
// debounce window. Edits made while a write is in flight go to the next cycle.
func (c *Coordinator) Update(regionID string, patch models.RegionPatch) {
	if patch.IsEmpty() {
		return
	}

	c.mu.Lock()
	e := c.entry(regionID)
	e.pending = e.pending.Merge(patch)
	e.failed = false
	c.mu.Unlock()

	c.scheduler.Schedule(regionID, c.cfg.Debounce, func() { c.fire(regionID) })
}

// Retry re-arms the flush of a region whose last write failed
func (c *Coordinator) Retry(regionID string) {
	c.mu.Lock()
	e, ok := c.entries[regionID]
	if !ok || e.pending.IsEmpty() {
		c.mu.Unlock()
		return
	}
	e.failed = false
	c.mu.Unlock()

	c.scheduler.Schedule(regionID, 0, func() { c.fire(regionID) })
}

// State reports the buffering state of a region
func (c *Coordinator) State(regionID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[regionID]
	switch {
	case !ok:
		return StateIdle
	case e.inFlight:
		return StateInFlight
	case e.failed:
		return StateUnsynced
	case !e.pending.IsEmpty():
		return StateQueued
	default:
		return StateIdle
	}
}

// Pending returns the local edits of a region the server has not confirmed
// yet: the patch in flight with the buffered patch merged on top.
func (c *Coordinator) Pending(regionID string) (models.RegionPatch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[regionID]
	if !ok {
		return models.RegionPatch{}, false
	}
	patch := e.sending.Merge(e.pending)
	if patch.IsEmpty() {
		return models.RegionPatch{}, false
	}
	return patch, true
}

// Forget drops the buffered state of a region, e.g. after it was deleted
func (c *Coordinator) Forget(regionID string) {
	c.scheduler.Cancel(regionID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[regionID]; ok && !e.inFlight {
		delete(c.entries, regionID)
	}
}

// FlushAll sends every buffered patch now, skipping the debounce window.
// Regions with a write already in flight are left to their timers.
func (c *Coordinator) FlushAll(ctx context.Context) error {
	c.mu.Lock()
	var ids []string
	for id, e := range c.entries {
		if !e.inFlight && !e.pending.IsEmpty() {
			ids = append(ids, id)
		}
	}
	c.mu.Unlock()

	var errs []error
	for _, id := range ids {
		c.scheduler.Cancel(id)
		if err := c.flush(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// entry returns the buffer for a region, creating it. Caller holds mu.
func (c *Coordinator) entry(regionID string) *entry {
	e, ok := c.entries[regionID]
	if !ok {
		e = &entry{}
		c.entries[regionID] = e
	}
	return e
}

// fire is the timer callback
func (c *Coordinator) fire(regionID string) {
	c.mu.Lock()
	e, ok := c.entries[regionID]
	if !ok || e.pending.IsEmpty() {
		c.mu.Unlock()
		return
	}
	if e.inFlight || c.backend.IsBusy() {
		c.mu.Unlock()
		c.scheduler.Schedule(regionID, c.cfg.Backoff, func() { c.fire(regionID) })
		return
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.WriteTimeout)
	defer cancel()
	if err := c.flush(ctx, regionID); err != nil {
		log.Printf("Outbox: %v", err)
	}
}

// flush sends the buffered patch of a region and reports the outcome
func (c *Coordinator) flush(ctx context.Context, regionID string) error {
	c.mu.Lock()
	e, ok := c.entries[regionID]
	if !ok || e.inFlight || e.pending.IsEmpty() {
		c.mu.Unlock()
		return nil
	}
	patch := e.pending
	e.pending = models.RegionPatch{}
	e.sending = patch
	e.inFlight = true
	c.mu.Unlock()

	written, err := c.backend.Write(ctx, regionID, patch)

	c.mu.Lock()
	e.sending = models.RegionPatch{}
	e.inFlight = false
	if err != nil {
		// edits made during the flight are newer than the failed patch
		e.pending = patch.Merge(e.pending)
		e.failed = true
		c.mu.Unlock()

		wrapped := apperrors.WriteFailedError(regionID, patch.Fields(), err)
		if c.listener != nil {
			c.listener.WriteFailed(regionID, wrapped)
		}
		return wrapped
	}
	if e.pending.IsEmpty() && !e.failed {
		delete(c.entries, regionID)
	}
	c.mu.Unlock()

	if c.listener != nil {
		c.listener.WriteCommitted(regionID, written)
	}
	return nil
}
