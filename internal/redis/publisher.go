package redis

import (
	"context"

	"sentinal-social/internal/events"

	"github.com/redis/go-redis/v9"
)

var _ events.Publisher = (*Publisher)(nil)

// Publisher sends fan-out envelopes to the per-user channels so every API
// instance can deliver them to its own websocket clients.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}
