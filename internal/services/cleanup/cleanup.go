package cleanup

import (
	"context"
	"log"
	"sync"
	"time"
)

// Purger removes tombstones written before a logical timestamp
type Purger interface {
	PurgeTombstones(ctx context.Context, before int64) (int64, error)
}

// Service periodically purges region tombstones past their retention
type Service struct {
	purger    Purger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewService creates a new cleanup service
func NewService(purger Purger, retention, interval time.Duration) *Service {
	return &Service{
		purger:    purger,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

// Start runs one purge, then keeps purging every interval until ctx ends or
// Stop is called
func (s *Service) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.Purge(ctx)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Purge(ctx)
			case <-ctx.Done():
				log.Println("Cleanup: service stopped")
				return
			}
		}
	}()

	log.Printf("Cleanup: service started (interval: %v, retention: %v)", s.interval, s.retention)
}

// Stop stops the service and waits for the loop to exit
func (s *Service) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
	})
}

// Purge removes tombstones older than the retention. Timestamps are
// milliseconds, so the wall clock gives the cutoff.
func (s *Service) Purge(ctx context.Context) int64 {
	cutoff := s.now().Add(-s.retention).UnixMilli()
	n, err := s.purger.PurgeTombstones(ctx, cutoff)
	if err != nil {
		log.Printf("Cleanup: failed to purge tombstones: %v", err)
		return 0
	}
	return n
}
