package snapshots

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/killallgit/transcript-sync/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultChannelPrefix namespaces the pub/sub channels
const DefaultChannelPrefix = "tsync:snapshots:"

// RedisBroker shares snapshot events between server instances through
// redis pub/sub
type RedisBroker struct {
	client *redis.Client
	prefix string
}

// ConnectRedis creates a broker and checks the connection
func ConnectRedis(ctx context.Context, addr, password string, db int, prefix string) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisBroker(client, prefix), nil
}

// NewRedisBroker wraps an existing client
func NewRedisBroker(client *redis.Client, prefix string) *RedisBroker {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisBroker{client: client, prefix: prefix}
}

func (b *RedisBroker) channel(transcriptID string) string {
	return b.prefix + transcriptID
}

// Publish encodes the event as JSON on the transcript's channel
func (b *RedisBroker) Publish(ctx context.Context, event models.SnapshotEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel(event.TranscriptID), payload).Err(); err != nil {
		return fmt.Errorf("error publishing snapshot event: %w", err)
	}
	return nil
}

// Subscribe listens on the transcript's channel until ctx is done
func (b *RedisBroker) Subscribe(ctx context.Context, transcriptID string) (<-chan models.SnapshotEvent, error) {
	pubsub := b.client.Subscribe(ctx, b.channel(transcriptID))

	// wait for the subscription to be confirmed so no publish is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("error subscribing to snapshots: %w", err)
	}

	out := make(chan models.SnapshotEvent, BufferSize)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event models.SnapshotEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("Snapshots: skipping malformed event on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Ping checks the redis connection
func (b *RedisBroker) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the redis connection
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
