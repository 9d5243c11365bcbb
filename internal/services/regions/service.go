package regions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/killallgit/transcript-sync/internal/models"
)

// Publisher receives a snapshot event after every committed mutation
type Publisher interface {
	Publish(ctx context.Context, event models.SnapshotEvent) error
}

var _ Service = (*ServiceImpl)(nil)

// ServiceImpl implements the Service interface. Writes are applied one at a
// time, each stamped with a strictly increasing logical timestamp.
type ServiceImpl struct {
	repository Repository
	publisher  Publisher
	now        func() time.Time

	mu       sync.Mutex
	lastTS   int64
	clockSet bool
	inFlight atomic.Int32
}

// NewService creates a new region service. publisher may be nil.
func NewService(repository Repository, publisher Publisher) *ServiceImpl {
	return &ServiceImpl{
		repository: repository,
		publisher:  publisher,
		now:        time.Now,
	}
}

// Create stores a new region
func (s *ServiceImpl) Create(ctx context.Context, region models.Region, userID string) (*models.Region, error) {
	if region.TranscriptID == "" {
		return nil, fmt.Errorf("%w: transcript id is required", ErrInvalidInput)
	}
	if err := validateBounds(region.Start, region.End); err != nil {
		return nil, err
	}
	if region.ID == "" {
		region.ID = uuid.New().String()
	}

	s.begin()
	defer s.end()

	if _, err := s.repository.GetRegionByID(ctx, region.ID); err == nil {
		return nil, ErrRegionExists
	} else if !errors.Is(err, ErrRegionNotFound) {
		return nil, err
	}

	ts, err := s.nextTimestamp(ctx)
	if err != nil {
		return nil, err
	}
	region.Index, region.DisplayIndex = 0, 0
	region.UserLastUpdated = userID
	region.DateLastUpdated = ts

	if err := s.repository.CreateRegion(ctx, models.NewRegionRecord(region)); err != nil {
		return nil, err
	}

	s.publish(ctx, region.TranscriptID, models.RemoteRegion{Region: region})
	return &region, nil
}

// Get returns a live region
func (s *ServiceImpl) Get(ctx context.Context, id string) (*models.Region, error) {
	rec, err := s.repository.GetRegionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Deleted {
		return nil, ErrRegionNotFound
	}
	region := rec.Region()
	return &region, nil
}

// ListByTranscript returns every live region of a transcript
func (s *ServiceImpl) ListByTranscript(ctx context.Context, transcriptID string) ([]models.Region, error) {
	records, err := s.repository.GetRegionsByTranscriptID(ctx, transcriptID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Region, len(records))
	for i := range records {
		out[i] = records[i].Region()
	}
	return out, nil
}

// ListSince returns every change after since, tombstones included
func (s *ServiceImpl) ListSince(ctx context.Context, transcriptID string, since int64) ([]models.RemoteRegion, error) {
	records, err := s.repository.GetRegionsChangedSince(ctx, transcriptID, since)
	if err != nil {
		return nil, err
	}
	out := make([]models.RemoteRegion, len(records))
	for i := range records {
		out[i] = records[i].Remote()
	}
	return out, nil
}

// Write applies a patch to a live region
func (s *ServiceImpl) Write(ctx context.Context, id string, patch models.RegionPatch, userID string) (*models.Region, error) {
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: empty patch", ErrInvalidInput)
	}

	s.begin()
	defer s.end()

	rec, err := s.repository.GetRegionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Deleted {
		return nil, ErrRegionNotFound
	}

	updated := patch.ApplyTo(rec.Region())
	if err := validateBounds(updated.Start, updated.End); err != nil {
		return nil, err
	}

	ts, err := s.nextTimestamp(ctx)
	if err != nil {
		return nil, err
	}
	updated.UserLastUpdated = userID
	updated.DateLastUpdated = ts

	next := models.NewRegionRecord(updated)
	next.CreatedAt = rec.CreatedAt
	if err := s.repository.UpdateRegion(ctx, next); err != nil {
		return nil, err
	}

	s.publish(ctx, updated.TranscriptID, models.RemoteRegion{Region: updated})
	return &updated, nil
}

// Delete tombstones a region so subscribers and since queries see the removal
func (s *ServiceImpl) Delete(ctx context.Context, id string, userID string) error {
	s.begin()
	defer s.end()

	rec, err := s.repository.GetRegionByID(ctx, id)
	if err != nil {
		return err
	}
	if rec.Deleted {
		return ErrRegionNotFound
	}

	ts, err := s.nextTimestamp(ctx)
	if err != nil {
		return err
	}
	rec.Deleted = true
	rec.UserLastUpdated = userID
	rec.DateLastUpdated = ts
	if err := s.repository.UpdateRegion(ctx, rec); err != nil {
		return err
	}

	s.publish(ctx, rec.TranscriptID, rec.Remote())
	return nil
}

// PurgeTombstones removes tombstones older than before. Clients whose
// high-water mark is behind before must reload rather than rely on ListSince.
func (s *ServiceImpl) PurgeTombstones(ctx context.Context, before int64) (int64, error) {
	s.begin()
	defer s.end()

	n, err := s.repository.DeleteTombstonesBefore(ctx, before)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("Regions: purged %d tombstones written before %d", n, before)
	}
	return n, nil
}

// IsBusy reports whether a mutation is being applied
func (s *ServiceImpl) IsBusy() bool {
	return s.inFlight.Load() > 0
}

func (s *ServiceImpl) begin() {
	s.inFlight.Add(1)
	s.mu.Lock()
}

func (s *ServiceImpl) end() {
	s.mu.Unlock()
	s.inFlight.Add(-1)
}

// nextTimestamp returns max(previous+1, wall clock in ms). Caller holds mu.
func (s *ServiceImpl) nextTimestamp(ctx context.Context) (int64, error) {
	if !s.clockSet {
		latest, err := s.repository.GetLatestTimestamp(ctx)
		if err != nil {
			return 0, err
		}
		s.lastTS = latest
		s.clockSet = true
	}
	ts := s.now().UnixMilli()
	if ts <= s.lastTS {
		ts = s.lastTS + 1
	}
	s.lastTS = ts
	return ts, nil
}

// publish fans a committed change out. Failures are logged only: the write
// is durable and subscribers catch up with a since query.
func (s *ServiceImpl) publish(ctx context.Context, transcriptID string, item models.RemoteRegion) {
	if s.publisher == nil {
		return
	}
	event := models.SnapshotEvent{TranscriptID: transcriptID, Items: []models.RemoteRegion{item}}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("Regions: failed to publish change of region %s: %v", item.ID, err)
	}
}

func validateBounds(start, end float64) error {
	if start < 0 {
		return fmt.Errorf("%w: start must not be negative", ErrInvalidInput)
	}
	if end <= start {
		return fmt.Errorf("%w: end must be after start", ErrInvalidInput)
	}
	return nil
}
