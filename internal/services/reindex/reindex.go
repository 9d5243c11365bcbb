// Package reindex assigns the derived ordering fields of transcript regions.
package reindex

import (
	"sort"

	"github.com/killallgit/transcript-sync/internal/models"
)

// Compute returns the position of every region keyed by id. Regions are
// ordered by Start with a stable sort, so ties keep their input order.
//
// Index counts every region. DisplayIndex starts at 1 and is incremented after
// each non-note region; a note takes the current value without incrementing.
func Compute(regions []models.Region) map[string]models.Position {
	order := make([]int, len(regions))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return regions[order[a]].Start < regions[order[b]].Start
	})

	positions := make(map[string]models.Position, len(regions))
	display := 1
	for idx, i := range order {
		r := regions[i]
		positions[r.ID] = models.Position{Index: idx, DisplayIndex: display}
		if !r.IsNote {
			display++
		}
	}
	return positions
}

// Reindex returns copies of regions sorted by Start with positions assigned.
// The input slice is not modified.
func Reindex(regions []models.Region) []models.Region {
	positions := Compute(regions)
	out := make([]models.Region, len(regions))
	for _, r := range regions {
		p := positions[r.ID]
		r.Index = p.Index
		r.DisplayIndex = p.DisplayIndex
		out[p.Index] = r
	}
	return out
}

// NeedsReindex reports whether an update from before to after moves the
// region or changes its note flag. Text and issue edits never do.
func NeedsReindex(before, after models.Region) bool {
	return before.Start != after.Start || before.End != after.End || before.IsNote != after.IsNote
}
