package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

const eventsChannel = "realtime:events"

// RedisBroker implements Publisher and Subscriber on a Redis pub/sub channel
// shared by every gateway process.
type RedisBroker struct {
	client *redis.Client
	sub    *redis.PubSub
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

var (
	_ Publisher  = (*RedisBroker)(nil)
	_ Subscriber = (*RedisBroker)(nil)
)

func (b *RedisBroker) Publish(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("pubsub: marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, eventsChannel, data).Err(); err != nil {
		return fmt.Errorf("pubsub: publish: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, handler Handler) error {
	b.sub = b.client.Subscribe(ctx, eventsChannel)

	// Confirm the subscription before the hub starts relying on fan-out.
	if _, err := b.sub.Receive(ctx); err != nil {
		return fmt.Errorf("pubsub: subscribe: %w", err)
	}

	go func() {
		for msg := range b.sub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("pubsub: drop malformed event: %v", err)
				continue
			}
			handler(&event)
		}
	}()

	return nil
}

func (b *RedisBroker) Close() error {
	if b.sub != nil {
		return b.sub.Close()
	}
	return nil
}
