package regions

import (
	"context"

	"github.com/killallgit/transcript-sync/internal/models"
)

// Repository defines the interface for region data access
type Repository interface {
	// Create operations
	CreateRegion(ctx context.Context, record *models.RegionRecord) error

	// Read operations
	GetRegionByID(ctx context.Context, id string) (*models.RegionRecord, error)
	GetRegionsByTranscriptID(ctx context.Context, transcriptID string) ([]models.RegionRecord, error)
	GetRegionsChangedSince(ctx context.Context, transcriptID string, since int64) ([]models.RegionRecord, error)
	GetLatestTimestamp(ctx context.Context) (int64, error)

	// Update operations
	UpdateRegion(ctx context.Context, record *models.RegionRecord) error

	// Delete operations
	DeleteTombstonesBefore(ctx context.Context, before int64) (int64, error)
}

// Service defines the interface for the single-writer persistence service
type Service interface {
	// Create stores a new region, assigning an id and timestamp when missing
	Create(ctx context.Context, region models.Region, userID string) (*models.Region, error)

	// Get returns one live region
	Get(ctx context.Context, id string) (*models.Region, error)

	// ListByTranscript returns every live region of a transcript
	ListByTranscript(ctx context.Context, transcriptID string) ([]models.Region, error)

	// ListSince returns regions and tombstones written after the timestamp
	ListSince(ctx context.Context, transcriptID string, since int64) ([]models.RemoteRegion, error)

	// Write applies a field patch and stamps the writer and a new timestamp
	Write(ctx context.Context, id string, patch models.RegionPatch, userID string) (*models.Region, error)

	// Delete tombstones a region
	Delete(ctx context.Context, id string, userID string) error

	// PurgeTombstones removes tombstones written before the timestamp and
	// returns how many were removed
	PurgeTombstones(ctx context.Context, before int64) (int64, error)

	// IsBusy reports whether a write is being applied
	IsBusy() bool
}
