package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"sentinal-social/internal/events"
	"sentinal-social/internal/repository/memory"
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type published struct {
	UserID   uuid.UUID
	Envelope events.Envelope
}

// recordingPublisher captures every envelope pushed to a user channel.
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	userID, ok := events.UserFromChannel(channel)
	if !ok {
		return nil
	}
	var env events.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{UserID: userID, Envelope: env})
	return nil
}

// recipients lists who received eventType, in publish order.
func (p *recordingPublisher) recipients(eventType string) []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []uuid.UUID
	for _, e := range p.events {
		if e.Envelope.EventType == eventType {
			out = append(out, e.UserID)
		}
	}
	return out
}

func (p *recordingPublisher) count(eventType string) int {
	return len(p.recipients(eventType))
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type testEnv struct {
	store         *memory.Store
	follows       *memory.FollowSet
	directory     *memory.Directory
	publisher     *recordingPublisher
	fanout        *FanoutService
	conversations *ConversationService
	messages      *MessageService
	requests      *RequestService
	invites       *InviteService
	clock         *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances one millisecond per call so creation order is stable.
func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	l := logger.NewNop()
	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}

	env := &testEnv{
		store:     memory.NewStore(),
		follows:   memory.NewFollowSet(),
		directory: memory.NewDirectory(),
		publisher: &recordingPublisher{},
		clock:     clock,
	}
	env.fanout = NewFanoutService(env.publisher, nil, l)
	env.conversations = NewConversationService(env.store, env.directory, env.fanout, l)
	env.messages = NewMessageService(env.store, env.conversations, env.fanout, l)
	env.requests = NewRequestService(env.store, env.follows, env.conversations, env.messages, env.fanout, l)
	env.invites = NewInviteService(env.store, env.conversations, env.fanout, l)

	env.fanout.now = clock.Now
	env.conversations.now = clock.Now
	env.messages.now = clock.Now
	env.requests.now = clock.Now
	env.invites.now = clock.Now
	return env
}

func (e *testEnv) mutualFollow(a, b uuid.UUID) {
	e.follows.Follow(a, b)
	e.follows.Follow(b, a)
}

func (e *testEnv) group(t *testing.T, admin uuid.UUID, members ...uuid.UUID) uuid.UUID {
	t.Helper()
	conv, err := e.conversations.CreateGroup(context.Background(), admin, members, "team")
	require.NoError(t, err)
	return conv.ID
}
