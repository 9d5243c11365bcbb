package outbox

import (
	"context"

	"github.com/killallgit/transcript-sync/internal/models"
)

// Backend is the single-writer persistence service the coordinator flushes to
type Backend interface {
	// Write applies patch to the region and returns the stored result
	Write(ctx context.Context, regionID string, patch models.RegionPatch) (*models.Region, error)

	// IsBusy reports whether a previous write has not been acknowledged yet.
	// It is one signal for the whole backend, not per region.
	IsBusy() bool
}

// Listener receives the outcome of every flush
type Listener interface {
	WriteCommitted(regionID string, written *models.Region)
	WriteFailed(regionID string, err error)
}

// State describes where a region's buffered edits are
type State string

const (
	StateIdle     State = "idle"
	StateQueued   State = "queued"
	StateInFlight State = "in_flight"
	StateUnsynced State = "unsynced"
)
