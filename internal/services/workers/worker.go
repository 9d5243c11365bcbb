package workers

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/killallgit/transcript-sync/internal/models"
	"github.com/killallgit/transcript-sync/internal/services/merger"
)

// ChangeSource lists the changes of a transcript written after a timestamp
type ChangeSource interface {
	ListSince(ctx context.Context, transcriptID string, since int64) ([]models.RemoteRegion, error)
}

// StreamSource opens a push subscription of a transcript's snapshots
type StreamSource interface {
	Subscribe(ctx context.Context, transcriptID string, since int64) (<-chan models.SnapshotEvent, error)
}

// Sink is the local view remote changes are merged into
type Sink interface {
	HighWaterMark() int64
	ApplyRemote(items []models.RemoteRegion) merger.Report
}

// ReportFunc observes the outcome of every merged batch
type ReportFunc func(merger.Report)

// Poller pulls remote changes on a fixed interval and merges them
type Poller struct {
	id           string
	transcriptID string
	source       ChangeSource
	sink         Sink
	onReport     ReportFunc
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	pollInterval time.Duration
}

// NewPoller creates a new poller. onReport may be nil.
func NewPoller(id, transcriptID string, source ChangeSource, sink Sink, pollInterval time.Duration, onReport ReportFunc) *Poller {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Poller{
		id:           id,
		transcriptID: transcriptID,
		source:       source,
		sink:         sink,
		onReport:     onReport,
		stopChan:     make(chan struct{}),
		pollInterval: pollInterval,
	}
}

// Start starts the poller in a goroutine
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.run(ctx)
}

// Stop stops the poller gracefully
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	p.wg.Wait()
}

// run is the main poll loop
func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	log.Printf("Poller %s starting for transcript %s", p.id, p.transcriptID)
	defer log.Printf("Poller %s stopped", p.id)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			if _, err := p.PollOnce(ctx); err != nil {
				log.Printf("Poller %s: %v", p.id, err)
			}
		}
	}
}

// PollOnce fetches the changes after the sink's high-water mark and merges
// them. An empty batch is not merged.
func (p *Poller) PollOnce(ctx context.Context) (merger.Report, error) {
	items, err := p.source.ListSince(ctx, p.transcriptID, p.sink.HighWaterMark())
	if err != nil {
		return merger.Report{}, fmt.Errorf("listing changes: %w", err)
	}
	if len(items) == 0 {
		return merger.Report{}, nil
	}
	return apply(p.sink, items, p.onReport), nil
}

// Streamer merges pushed snapshots as they arrive. When the subscription
// fails or ends it catches up with one poll and resubscribes after the
// retry interval.
type Streamer struct {
	id            string
	transcriptID  string
	stream        StreamSource
	poller        *Poller
	sink          Sink
	onReport      ReportFunc
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
	retryInterval time.Duration
}

// NewStreamer creates a streamer. source is used to catch up after the
// subscription drops.
func NewStreamer(id, transcriptID string, stream StreamSource, source ChangeSource, sink Sink, retryInterval time.Duration, onReport ReportFunc) *Streamer {
	if retryInterval <= 0 {
		retryInterval = 5 * time.Second
	}
	return &Streamer{
		id:            id,
		transcriptID:  transcriptID,
		stream:        stream,
		poller:        NewPoller(id, transcriptID, source, sink, retryInterval, onReport),
		sink:          sink,
		onReport:      onReport,
		stopChan:      make(chan struct{}),
		retryInterval: retryInterval,
	}
}

// Start starts the streamer in a goroutine
func (s *Streamer) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the streamer gracefully
func (s *Streamer) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

func (s *Streamer) run(ctx context.Context) {
	defer s.wg.Done()

	log.Printf("Streamer %s starting for transcript %s", s.id, s.transcriptID)
	defer log.Printf("Streamer %s stopped", s.id)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		if err := s.consume(ctx); err != nil {
			log.Printf("Streamer %s: %v", s.id, err)
		}
		if ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retryInterval):
		}

		if _, err := s.poller.PollOnce(ctx); err != nil {
			log.Printf("Streamer %s: catch-up poll failed: %v", s.id, err)
		}
	}
}

// consume subscribes from the sink's high-water mark and merges events until
// the subscription ends
func (s *Streamer) consume(ctx context.Context) error {
	events, err := s.stream.Subscribe(ctx, s.transcriptID, s.sink.HighWaterMark())
	if err != nil {
		return fmt.Errorf("subscribing: %w", err)
	}
	for event := range events {
		if len(event.Items) == 0 {
			continue
		}
		apply(s.sink, event.Items, s.onReport)
	}
	if ctx.Err() == nil {
		return fmt.Errorf("subscription of transcript %s ended", s.transcriptID)
	}
	return nil
}

func apply(sink Sink, items []models.RemoteRegion, onReport ReportFunc) merger.Report {
	report := sink.ApplyRemote(items)
	if onReport != nil {
		onReport(report)
	}
	return report
}
