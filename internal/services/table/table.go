// Package table holds the in-memory region table shared by local edits and
// remote merges.
package table

import (
	"sync"

	"github.com/killallgit/transcript-sync/internal/models"
)

// Table stores regions by id and remembers insertion order, which breaks
// ties when regions are ordered by start time.
type Table struct {
	mu      sync.RWMutex
	regions map[string]models.Region
	order   []string
}

// New creates an empty table
func New() *Table {
	return &Table{regions: make(map[string]models.Region)}
}

// Get returns a copy of the region with the given id
func (t *Table) Get(id string) (models.Region, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.regions[id]
	if !ok {
		return models.Region{}, false
	}
	return r.Clone(), true
}

// Put inserts or replaces a region
func (t *Table) Put(r models.Region) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.regions[r.ID]; !ok {
		t.order = append(t.order, r.ID)
	}
	t.regions[r.ID] = r.Clone()
}

// Delete removes a region, reporting whether it was present
func (t *Table) Delete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.regions[id]; !ok {
		return false
	}
	delete(t.regions, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns copies of all regions in insertion order
func (t *Table) List() []models.Region {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.Region, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.regions[id].Clone())
	}
	return out
}

// Len returns the number of regions
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.regions)
}

// SetPositions writes derived ordering fields, returning the ids whose
// values changed.
func (t *Table) SetPositions(positions map[string]models.Position) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var changed []string
	for _, id := range t.order {
		p, ok := positions[id]
		if !ok {
			continue
		}
		r := t.regions[id]
		if r.Index == p.Index && r.DisplayIndex == p.DisplayIndex {
			continue
		}
		r.Index = p.Index
		r.DisplayIndex = p.DisplayIndex
		t.regions[id] = r
		changed = append(changed, id)
	}
	return changed
}
