package websocket

import (
	"context"

	"sentinal-social/internal/events"
)

// RedisBridge delivers events published on the per-user channels to the
// connections held by this instance.
type RedisBridge struct {
	subscriber events.Subscriber
	hub        *Hub
}

func NewRedisBridge(subscriber events.Subscriber, hub *Hub) *RedisBridge {
	return &RedisBridge{subscriber: subscriber, hub: hub}
}

func (b *RedisBridge) Run(ctx context.Context) error {
	return b.subscriber.Subscribe(ctx, []string{events.UserChannelPattern}, b.deliver)
}

func (b *RedisBridge) deliver(channel string, payload []byte) {
	if userID, ok := events.UserFromChannel(channel); ok {
		b.hub.BroadcastToUser(userID, payload)
	}
}

// LocalPublisher hands events straight to the hub. It serves single instance
// deployments that run without Redis.
type LocalPublisher struct {
	hub *Hub
}

var _ events.Publisher = (*LocalPublisher)(nil)

func NewLocalPublisher(hub *Hub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	if userID, ok := events.UserFromChannel(channel); ok {
		p.hub.BroadcastToUser(userID, payload)
	}
	return nil
}
