package snapshots

import (
	"context"
	"log"
	"sync"

	"github.com/killallgit/transcript-sync/internal/models"
)

// MemoryBroker is an in-process Broker for a single server
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan models.SnapshotEvent
	nextID int
	closed bool
}

// NewMemoryBroker creates an empty in-process broker
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[int]chan models.SnapshotEvent)}
}

// Publish delivers the event without blocking. Subscribers whose buffer is
// full miss the event and must catch up through a since query.
func (b *MemoryBroker) Publish(ctx context.Context, event models.SnapshotEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs[event.TranscriptID] {
		select {
		case ch <- event:
		default:
			log.Printf("Snapshots: subscriber %d of transcript %s is full, dropping event", id, event.TranscriptID)
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx is done
func (b *MemoryBroker) Subscribe(ctx context.Context, transcriptID string) (<-chan models.SnapshotEvent, error) {
	ch := make(chan models.SnapshotEvent, BufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, nil
	}
	id := b.nextID
	b.nextID++
	if b.subs[transcriptID] == nil {
		b.subs[transcriptID] = make(map[int]chan models.SnapshotEvent)
	}
	b.subs[transcriptID][id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(transcriptID, id)
	}()
	return ch, nil
}

// Subscribers returns how many subscribers a transcript has
func (b *MemoryBroker) Subscribers(transcriptID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[transcriptID])
}

// Ping fails once the broker is closed
func (b *MemoryBroker) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

// Close disconnects every subscriber
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subs = make(map[string]map[int]chan models.SnapshotEvent)
	return nil
}

func (b *MemoryBroker) remove(transcriptID string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.subs[transcriptID][id]
	if !ok {
		return
	}
	delete(b.subs[transcriptID], id)
	if len(b.subs[transcriptID]) == 0 {
		delete(b.subs, transcriptID)
	}
	close(ch)
}
