package regions

import (
	"context"
	"errors"
	"fmt"

	"github.com/killallgit/transcript-sync/internal/models"
	"gorm.io/gorm"
)

// RepositoryImpl implements the Repository interface
type RepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new region repository
func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

// CreateRegion inserts a new region record
func (r *RepositoryImpl) CreateRegion(ctx context.Context, record *models.RegionRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRegionExists
		}
		return fmt.Errorf("creating region: %w", err)
	}
	return nil
}

// GetRegionByID retrieves a region record, including tombstones
func (r *RepositoryImpl) GetRegionByID(ctx context.Context, id string) (*models.RegionRecord, error) {
	var record models.RegionRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegionNotFound
		}
		return nil, fmt.Errorf("getting region: %w", err)
	}
	return &record, nil
}

// GetRegionsByTranscriptID retrieves the live regions of a transcript in
// start order
func (r *RepositoryImpl) GetRegionsByTranscriptID(ctx context.Context, transcriptID string) ([]models.RegionRecord, error) {
	var records []models.RegionRecord
	if err := r.db.WithContext(ctx).
		Where("transcript_id = ? AND deleted = ?", transcriptID, false).
		Order("start_time ASC").
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("getting regions for transcript: %w", err)
	}
	return records, nil
}

// GetRegionsChangedSince retrieves records of a transcript, tombstones
// included, written after the given timestamp in write order
func (r *RepositoryImpl) GetRegionsChangedSince(ctx context.Context, transcriptID string, since int64) ([]models.RegionRecord, error) {
	var records []models.RegionRecord
	if err := r.db.WithContext(ctx).
		Where("transcript_id = ? AND date_last_updated > ?", transcriptID, since).
		Order("date_last_updated ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("getting changed regions: %w", err)
	}
	return records, nil
}

// GetLatestTimestamp returns the largest timestamp stored, zero when empty
func (r *RepositoryImpl) GetLatestTimestamp(ctx context.Context) (int64, error) {
	var latest int64
	if err := r.db.WithContext(ctx).Model(&models.RegionRecord{}).
		Select("COALESCE(MAX(date_last_updated), 0)").
		Scan(&latest).Error; err != nil {
		return 0, fmt.Errorf("getting latest timestamp: %w", err)
	}
	return latest, nil
}

// UpdateRegion saves every field of an existing record
func (r *RepositoryImpl) UpdateRegion(ctx context.Context, record *models.RegionRecord) error {
	result := r.db.WithContext(ctx).Model(record).Select("*").Omit("created_at").Updates(record)
	if result.Error != nil {
		return fmt.Errorf("updating region: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRegionNotFound
	}
	return nil
}

// DeleteTombstonesBefore hard-deletes tombstoned records last written before
// the given timestamp
func (r *RepositoryImpl) DeleteTombstonesBefore(ctx context.Context, before int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("deleted = ? AND date_last_updated < ?", true, before).
		Delete(&models.RegionRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting tombstones: %w", result.Error)
	}
	return result.RowsAffected, nil
}
