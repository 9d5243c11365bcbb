// Package merger applies remote region snapshots to the local table.
package merger

import (
	"log"
	"sync"

	"github.com/killallgit/transcript-sync/internal/models"
	"github.com/killallgit/transcript-sync/internal/services/reconcile"
	"github.com/killallgit/transcript-sync/internal/services/reindex"
)

// Store is the region table the merger writes to
type Store interface {
	Get(id string) (models.Region, bool)
	Put(r models.Region)
	Delete(id string) bool
	List() []models.Region
	SetPositions(positions map[string]models.Position) []string
}

// PendingSource exposes local edits the server has not confirmed yet,
// including a write that is still in flight
type PendingSource interface {
	Pending(regionID string) (models.RegionPatch, bool)
}

// Outcome is what happened to one incoming item
type Outcome string

const (
	OutcomeInserted   Outcome = "inserted"
	OutcomeUpdated    Outcome = "updated"
	OutcomeRemoved    Outcome = "removed"
	OutcomeStale      Outcome = "stale"      // at or below the high-water mark
	OutcomeEcho       Outcome = "echo"       // our own write coming back
	OutcomeSuperseded Outcome = "superseded" // local copy is already as new
	OutcomeMissing    Outcome = "missing"    // tombstone for a region we never had
)

// Report summarises one snapshot delivery
type Report struct {
	Outcomes   map[string]Outcome
	Reconciled []string // regions the reconciler ran on
	Reindexed  []string // regions whose index or display index moved
}

// Changed lists the regions that were inserted, updated or removed
func (r Report) Changed() []string {
	var ids []string
	for id, o := range r.Outcomes {
		switch o {
		case OutcomeInserted, OutcomeUpdated, OutcomeRemoved:
			ids = append(ids, id)
		}
	}
	return ids
}

// Merger filters echoes and stale updates and applies the rest
type Merger struct {
	mu        sync.Mutex
	store     Store
	pending   PendingSource
	localUser string
	highWater int64
}

// New creates a merger for the given local user. pending may be nil.
func New(store Store, localUser string, pending PendingSource) *Merger {
	return &Merger{store: store, localUser: localUser, pending: pending}
}

// HighWaterMark returns the timestamp of the newest applied remote update
func (m *Merger) HighWaterMark() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.highWater
}

// Init raises the high-water mark to ts, typically the newest timestamp of the
// initial load. The mark never moves backwards.
func (m *Merger) Init(ts int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ts > m.highWater {
		m.highWater = ts
	}
}

// OnRemoteSnapshot applies a delivery of remote items in order
func (m *Merger) OnRemoteSnapshot(items []models.RemoteRegion) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := Report{Outcomes: make(map[string]Outcome, len(items))}
	needsReindex := false

	for _, item := range items {
		outcome, reconciled, moved := m.apply(item)
		report.Outcomes[item.ID] = outcome
		if reconciled {
			report.Reconciled = append(report.Reconciled, item.ID)
		}
		needsReindex = needsReindex || moved
	}

	if needsReindex {
		report.Reindexed = m.store.SetPositions(reindex.Compute(m.store.List()))
	}
	return report
}

// apply handles one item. Caller holds mu.
func (m *Merger) apply(item models.RemoteRegion) (outcome Outcome, reconciled, moved bool) {
	if item.DateLastUpdated <= m.highWater {
		log.Printf("Merger: dropped stale update for region %s (ts %d <= high-water %d)", item.ID, item.DateLastUpdated, m.highWater)
		return OutcomeStale, false, false
	}
	if item.UserLastUpdated == m.localUser {
		log.Printf("Merger: dropped echo of own write for region %s (ts %d)", item.ID, item.DateLastUpdated)
		return OutcomeEcho, false, false
	}
	m.highWater = item.DateLastUpdated

	local, exists := m.store.Get(item.ID)

	if item.Deleted {
		if !exists {
			log.Printf("Merger: tombstone for unknown region %s", item.ID)
			return OutcomeMissing, false, false
		}
		m.store.Delete(item.ID)
		return OutcomeRemoved, false, true
	}

	incoming := item.Region.Clone()

	if !exists {
		incoming.Index, incoming.DisplayIndex = 0, 0
		incoming.Text, incoming.Issues = reconcile.Reconcile(incoming.Text, incoming.Issues)
		m.store.Put(incoming)
		return OutcomeInserted, true, true
	}

	if local.DateLastUpdated >= incoming.DateLastUpdated {
		log.Printf("Merger: local region %s already at ts %d, ignoring ts %d", item.ID, local.DateLastUpdated, incoming.DateLastUpdated)
		return OutcomeSuperseded, false, false
	}

	// ordering fields are computed locally
	incoming.Index, incoming.DisplayIndex = local.Index, local.DisplayIndex

	// unconfirmed local edits stay on top of the remote state
	if m.pending != nil {
		if patch, ok := m.pending.Pending(item.ID); ok {
			incoming = patch.ApplyTo(incoming)
		}
	}

	if !models.SegmentsEqual(local.Text, incoming.Text) || !models.IssuesEqual(local.Issues, incoming.Issues) {
		text, issues := reconcile.Reconcile(incoming.Text, incoming.Issues)
		reconciled = true
		incoming.Text, incoming.Issues = text, issues
	}

	m.store.Put(incoming)
	return OutcomeUpdated, reconciled, reindex.NeedsReindex(local, incoming)
}
