package websocket

import (
	"context"
	"testing"
	"time"

	"sentinal-social/internal/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func TestHubDeliversToEveryConnectionOfUser(t *testing.T) {
	hub, _ := runHub(t)
	userID := uuid.New()
	phone := NewClient(nil, userID, 4)
	laptop := NewClient(nil, userID, 4)
	stranger := NewClient(nil, uuid.New(), 4)

	hub.Register(phone)
	hub.Register(laptop)
	hub.Register(stranger)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, hub.IsOnline(userID))

	hub.BroadcastToUser(userID, []byte(`{"event_type":"message.created"}`))

	assert.Len(t, phone.Send, 1)
	assert.Len(t, laptop.Send, 1)
	assert.Empty(t, stranger.Send)
}

func TestHubAppliesRegisterBeforeQueuedUnregister(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	client := NewClient(nil, userID, 4)

	// Both operations are queued before the loop starts.
	hub.Register(client)
	hub.Unregister(client)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	select {
	case _, open := <-client.Send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
	assert.Zero(t, hub.GetClientCount())
	assert.False(t, hub.IsOnline(userID))
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub, _ := runHub(t)
	userID := uuid.New()
	client := NewClient(nil, userID, 4)

	hub.Register(client)
	require.Eventually(t, func() bool { return hub.IsOnline(userID) }, time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return !hub.IsOnline(userID) }, time.Second, 5*time.Millisecond)

	_, open := <-client.Send
	assert.False(t, open)

	// A second unregister is a no-op.
	hub.Unregister(client)
	hub.BroadcastToUser(userID, []byte("late"))
	assert.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestClientDropsWhenBufferFull(t *testing.T) {
	client := NewClient(nil, uuid.New(), 1)
	client.SendMessage([]byte("first"))
	client.SendMessage([]byte("second"))

	require.Len(t, client.Send, 1)
	assert.Equal(t, []byte("first"), <-client.Send)
}

func TestHubShutdownClosesConnections(t *testing.T) {
	hub, cancel := runHub(t)
	client := NewClient(nil, uuid.New(), 1)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-client.Send
	assert.False(t, open)
}

type fakeSubscriber struct {
	frames map[string][]byte
}

func (s *fakeSubscriber) Subscribe(_ context.Context, _ []string, handler func(channel string, payload []byte)) error {
	for channel, payload := range s.frames {
		handler(channel, payload)
	}
	return nil
}

func TestRedisBridgeRoutesByChannel(t *testing.T) {
	hub, _ := runHub(t)
	userID := uuid.New()
	client := NewClient(nil, userID, 4)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.IsOnline(userID) }, time.Second, 5*time.Millisecond)

	sub := &fakeSubscriber{frames: map[string][]byte{
		events.UserChannel(userID): []byte("for user"),
		"channel:other":            []byte("ignored"),
	}}
	require.NoError(t, NewRedisBridge(sub, hub).Run(context.Background()))

	require.Len(t, client.Send, 1)
	assert.Equal(t, []byte("for user"), <-client.Send)

	require.NoError(t, NewLocalPublisher(hub).Publish(context.Background(), events.UserChannel(userID), []byte("local")))
	assert.Equal(t, []byte("local"), <-client.Send)
}
