package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/killallgit/transcript-sync/internal/models"
	"github.com/killallgit/transcript-sync/internal/services/merger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSource is a mock implementation of ChangeSource and StreamSource
type MockSource struct {
	mock.Mock
}

func (m *MockSource) ListSince(ctx context.Context, transcriptID string, since int64) ([]models.RemoteRegion, error) {
	args := m.Called(ctx, transcriptID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RemoteRegion), args.Error(1)
}

func (m *MockSource) Subscribe(ctx context.Context, transcriptID string, since int64) (<-chan models.SnapshotEvent, error) {
	args := m.Called(ctx, transcriptID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan models.SnapshotEvent), args.Error(1)
}

// recordingSink advances its high-water mark like the merger does
type recordingSink struct {
	mu      sync.Mutex
	hwm     int64
	batches [][]models.RemoteRegion
}

func (s *recordingSink) HighWaterMark() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hwm
}

func (s *recordingSink) ApplyRemote(items []models.RemoteRegion) merger.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, items)
	report := merger.Report{Outcomes: map[string]merger.Outcome{}}
	for _, it := range items {
		if it.DateLastUpdated > s.hwm {
			s.hwm = it.DateLastUpdated
		}
		report.Outcomes[it.ID] = merger.OutcomeUpdated
	}
	return report
}

func (s *recordingSink) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func remote(id string, ts int64) models.RemoteRegion {
	return models.RemoteRegion{Region: models.Region{ID: id, TranscriptID: "t1", DateLastUpdated: ts}}
}

func TestPoller_PollOnce(t *testing.T) {
	source := new(MockSource)
	sink := &recordingSink{hwm: 10}
	var reports []merger.Report
	p := NewPoller("test", "t1", source, sink, time.Minute, func(r merger.Report) { reports = append(reports, r) })
	ctx := context.Background()

	source.On("ListSince", ctx, "t1", int64(10)).Return([]models.RemoteRegion{remote("a", 11), remote("b", 12)}, nil).Once()
	source.On("ListSince", ctx, "t1", int64(12)).Return([]models.RemoteRegion{}, nil).Once()
	source.On("ListSince", ctx, "t1", int64(12)).Return(nil, errors.New("connection refused")).Once()

	report, err := p.PollOnce(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Outcomes, 2)
	assert.Equal(t, int64(12), sink.HighWaterMark())

	// nothing new: the sink is not called
	_, err = p.PollOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sink.batchCount())

	_, err = p.PollOnce(ctx)
	assert.Error(t, err)
	assert.Len(t, reports, 1)
	source.AssertExpectations(t)
}

func TestPoller_StartStop(t *testing.T) {
	source := new(MockSource)
	sink := &recordingSink{}
	source.On("ListSince", mock.Anything, "t1", int64(0)).Return([]models.RemoteRegion{remote("a", 5)}, nil).Once()
	source.On("ListSince", mock.Anything, "t1", int64(5)).Return([]models.RemoteRegion{}, nil)

	p := NewPoller("test", "t1", source, sink, 10*time.Millisecond, nil)
	p.Start(context.Background())

	assert.Eventually(t, func() bool { return sink.HighWaterMark() == 5 }, time.Second, 5*time.Millisecond)
	p.Stop()
	p.Stop()
	assert.Equal(t, 1, sink.batchCount())
}

func TestStreamer_AppliesEventsAndCatchesUp(t *testing.T) {
	source := new(MockSource)
	sink := &recordingSink{hwm: 1}

	first := make(chan models.SnapshotEvent, 2)
	first <- models.SnapshotEvent{TranscriptID: "t1", Items: []models.RemoteRegion{remote("a", 2)}}
	first <- models.SnapshotEvent{TranscriptID: "t1"}
	close(first)
	second := make(chan models.SnapshotEvent)

	source.On("Subscribe", mock.Anything, "t1", int64(1)).Return((<-chan models.SnapshotEvent)(first), nil).Once()
	source.On("ListSince", mock.Anything, "t1", int64(2)).Return([]models.RemoteRegion{remote("b", 3)}, nil).Once()
	resubscribed := make(chan struct{})
	source.On("Subscribe", mock.Anything, "t1", int64(3)).Return((<-chan models.SnapshotEvent)(second), nil).Once().
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			go func() {
				<-ctx.Done()
				close(second)
			}()
			close(resubscribed)
		})

	var mu sync.Mutex
	var seen []string
	s := NewStreamer("test", "t1", source, source, sink, 10*time.Millisecond, func(r merger.Report) {
		mu.Lock()
		defer mu.Unlock()
		for id := range r.Outcomes {
			seen = append(seen, id)
		}
	})
	s.Start(context.Background())

	assert.Eventually(t, func() bool { return sink.HighWaterMark() == 3 }, time.Second, 5*time.Millisecond)
	select {
	case <-resubscribed:
	case <-time.After(time.Second):
		t.Fatal("streamer did not resubscribe")
	}
	s.Stop()
	source.AssertExpectations(t)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Equal(t, 2, sink.batchCount())
}
