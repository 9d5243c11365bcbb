package snapshots

import (
	"context"
	"errors"

	"github.com/killallgit/transcript-sync/internal/models"
)

// Broker fans snapshot events out to every subscriber of a transcript
type Broker interface {
	// Publish delivers an event to the subscribers of its transcript
	Publish(ctx context.Context, event models.SnapshotEvent) error

	// Subscribe returns a channel of events for a transcript. The channel is
	// closed when ctx is cancelled or the broker is closed.
	Subscribe(ctx context.Context, transcriptID string) (<-chan models.SnapshotEvent, error)

	// Ping reports whether events can still be delivered
	Ping(ctx context.Context) error

	// Close releases the broker's resources
	Close() error
}

// ErrClosed is returned by Ping once a broker has been closed
var ErrClosed = errors.New("broker closed")

// BufferSize is the per-subscriber channel capacity
const BufferSize = 64
