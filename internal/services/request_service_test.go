package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"sentinal-social/internal/domain/message"
	"sentinal-social/internal/domain/request"
	"sentinal-social/internal/events"
	"sentinal-social/internal/services/mocks"
	sentinal_errors "sentinal-social/pkg/errors"
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSendMessageBetweenMutualFollowers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	env.mutualFollow(a, b)

	res, err := env.requests.SendMessage(ctx, a, b, message.ContentText, "hey")
	require.NoError(t, err)
	require.NotNil(t, res.Conversation)
	assert.Nil(t, res.Request)
	assert.True(t, res.Message.IsRouted())

	// The shared conversation keeps them connected after an unfollow.
	env.follows.Unfollow(b, a)
	res2, err := env.requests.SendMessage(ctx, b, a, message.ContentText, "still here")
	require.NoError(t, err)
	require.NotNil(t, res2.Conversation)
	assert.Equal(t, res.Conversation.ID, res2.Conversation.ID)
}

func TestSendMessageToStrangerKeepsOnePendingRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	var held []uuid.UUID
	var requestID uuid.UUID
	for i := 0; i < 3; i++ {
		res, err := env.requests.SendMessage(ctx, a, b, message.ContentText, "hello?")
		require.NoError(t, err)
		require.NotNil(t, res.Request)
		assert.Nil(t, res.Conversation)
		assert.False(t, res.Message.IsRouted())
		if i == 0 {
			requestID = res.Request.ID
		}
		assert.Equal(t, requestID, res.Request.ID)
		held = append(held, res.Message.ID)
	}

	incoming, err := env.requests.ListIncoming(ctx, b)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, held, incoming[0].MessageIDs)

	outgoing, err := env.requests.ListOutgoing(ctx, a)
	require.NoError(t, err)
	assert.Len(t, outgoing, 1)

	assert.Equal(t, 2, env.publisher.count(events.EventTypeRequestCreated))
	assert.Equal(t, 4, env.publisher.count(events.EventTypeRequestUpdated))

	preview, err := env.requests.PreviewMessages(ctx, requestID, b)
	require.NoError(t, err)
	assert.Len(t, preview, 3)
	_, err = env.requests.PreviewMessages(ctx, requestID, uuid.New())
	assert.ErrorIs(t, err, sentinal_errors.ErrForbidden)
}

func TestSendMessageToSelf(t *testing.T) {
	env := newTestEnv(t)
	a := uuid.New()
	_, err := env.requests.SendMessage(context.Background(), a, a, message.ContentText, "me")
	assert.ErrorIs(t, err, sentinal_errors.ErrInvalidOperation)
}

func TestReplyToRequestAutoAccepts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	first, err := env.requests.SendMessage(ctx, a, b, message.ContentText, "one")
	require.NoError(t, err)
	_, err = env.requests.SendMessage(ctx, a, b, message.ContentText, "two")
	require.NoError(t, err)

	reply, err := env.requests.SendMessage(ctx, b, a, message.ContentText, "hi back")
	require.NoError(t, err)
	require.NotNil(t, reply.Conversation)
	assert.Nil(t, reply.Request)

	req, err := env.store.Requests().GetByID(ctx, first.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusAccepted, req.Status)
	assert.Empty(t, req.MessageIDs)

	history, total, err := env.messages.List(ctx, reply.Conversation.ID, a, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total, "held messages migrate exactly once")
	for _, m := range history {
		convID, ok := m.ConversationID()
		require.True(t, ok)
		assert.Equal(t, reply.Conversation.ID, convID)
	}

	unread, err := env.messages.UnreadCount(ctx, reply.Conversation.ID, b)
	require.NoError(t, err)
	assert.Zero(t, unread, "replying reads the migrated messages")

	pending, err := env.requests.ListIncoming(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAcceptMigratesAndIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	sent, err := env.requests.SendMessage(ctx, a, b, message.ContentText, "hello")
	require.NoError(t, err)
	reqID := sent.Request.ID

	_, _, err = env.requests.Accept(ctx, reqID, a)
	assert.ErrorIs(t, err, sentinal_errors.ErrForbidden, "only the receiver may accept")

	req, conv, err := env.requests.Accept(ctx, reqID, b)
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, request.StatusAccepted, req.Status)
	assert.True(t, req.RespondedAt.Valid)

	migrated, err := env.store.Messages().GetByID(ctx, sent.Message.ID)
	require.NoError(t, err)
	convID, ok := migrated.ConversationID()
	require.True(t, ok)
	assert.Equal(t, conv.ID, convID)

	stored, err := env.store.Conversations().GetByID(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastMessage)
	assert.Equal(t, sent.Message.ID, stored.LastMessage.MessageID)

	again, conv2, err := env.requests.Accept(ctx, reqID, b)
	require.NoError(t, err)
	require.NotNil(t, conv2)
	assert.Equal(t, conv.ID, conv2.ID)
	assert.Equal(t, req.RespondedAt, again.RespondedAt)

	assert.ElementsMatch(t, []uuid.UUID{a, b}, env.publisher.recipients(events.EventTypeRequestResolved))
	assert.ElementsMatch(t, []uuid.UUID{a, b}, env.publisher.recipients(events.EventTypeConversationCreated))
}

func TestAcceptResolvesCrossingRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	fromA, err := env.requests.SendMessage(ctx, a, b, message.ContentText, "from a")
	require.NoError(t, err)

	// A request in the other direction can only appear through a race with
	// the auto-accept path, so plant it directly.
	crossMsg := &message.Message{
		ID:        uuid.New(),
		Route:     message.Unrouted{SenderID: b, ReceiverID: a},
		SenderID:  b,
		Type:      message.ContentText,
		Content:   "from b",
		CreatedAt: env.clock.Now(),
	}
	require.NoError(t, env.store.Messages().Create(ctx, crossMsg))
	crossing := &request.MessageRequest{
		ID:         uuid.New(),
		SenderID:   b,
		ReceiverID: a,
		Status:     request.StatusPending,
		MessageIDs: []uuid.UUID{crossMsg.ID},
		CreatedAt:  env.clock.Now(),
	}
	require.NoError(t, env.store.Requests().Create(ctx, crossing))

	_, conv, err := env.requests.Accept(ctx, fromA.Request.ID, b)
	require.NoError(t, err)
	require.NotNil(t, conv)

	other, err := env.store.Requests().GetByID(ctx, crossing.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusAccepted, other.Status)

	_, total, err := env.messages.List(ctx, conv.ID, a, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestRejectAndIgnore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	fromA, err := env.requests.SendMessage(ctx, a, b, message.ContentText, "hi b")
	require.NoError(t, err)
	fromC, err := env.requests.SendMessage(ctx, c, b, message.ContentText, "hi b")
	require.NoError(t, err)
	env.publisher.reset()

	rejected, err := env.requests.Reject(ctx, fromA.Request.ID, b)
	require.NoError(t, err)
	assert.Equal(t, request.StatusRejected, rejected.Status)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, env.publisher.recipients(events.EventTypeRequestResolved))

	env.publisher.reset()
	ignored, err := env.requests.Ignore(ctx, fromC.Request.ID, b)
	require.NoError(t, err)
	assert.Equal(t, request.StatusIgnored, ignored.Status)
	assert.Equal(t, []uuid.UUID{b}, env.publisher.recipients(events.EventTypeRequestResolved), "the sender is not told")

	// Responding again is a no-op.
	again, conv, err := env.requests.Accept(ctx, fromA.Request.ID, b)
	require.NoError(t, err)
	assert.Equal(t, request.StatusRejected, again.Status)
	assert.Nil(t, conv, "a rejected request opens no conversation")

	held, err := env.store.Messages().GetByID(ctx, fromA.Message.ID)
	require.NoError(t, err)
	assert.False(t, held.IsRouted(), "rejected messages stay unrouted")

	next, err := env.requests.SendMessage(ctx, a, b, message.ContentText, "please?")
	require.NoError(t, err)
	require.NotNil(t, next.Request)
	assert.NotEqual(t, fromA.Request.ID, next.Request.ID)
}

func TestMarkReadOnHeldMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	first, err := env.requests.SendMessage(ctx, a, b, message.ContentText, "one")
	require.NoError(t, err)
	second, err := env.requests.SendMessage(ctx, a, b, message.ContentText, "two")
	require.NoError(t, err)

	marked, err := env.messages.MarkRead(ctx, first.Message.ID, b)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first.Message.ID, second.Message.ID}, marked)
	assert.Equal(t, []uuid.UUID{a}, env.publisher.recipients(events.EventTypeReceiptRead))

	_, err = env.messages.MarkRead(ctx, first.Message.ID, uuid.New())
	assert.ErrorIs(t, err, sentinal_errors.ErrForbidden)
}

func TestAreConnectedTreatsFollowErrorsAsStrangers(t *testing.T) {
	ctrl := gomock.NewController(t)
	follows := mocks.NewMockFollowGraph(ctrl)
	env := newTestEnv(t)
	svc := NewRequestService(env.store, follows, env.conversations, env.messages, env.fanout, logger.NewNop())

	a, b := uuid.New(), uuid.New()
	follows.EXPECT().IsMutualFollow(gomock.Any(), a, b).Return(false, errors.New("follow service down"))

	connected, err := svc.AreConnected(context.Background(), a, b)
	require.NoError(t, err)
	assert.False(t, connected)
}

func TestAreConnectedSkipsFollowGraphForExistingConversation(t *testing.T) {
	ctrl := gomock.NewController(t)
	follows := mocks.NewMockFollowGraph(ctrl)
	env := newTestEnv(t)
	svc := NewRequestService(env.store, follows, env.conversations, env.messages, env.fanout, logger.NewNop())

	a, b := uuid.New(), uuid.New()
	_, err := env.conversations.FindOrCreateDirect(context.Background(), a, b)
	require.NoError(t, err)

	follows.EXPECT().IsMutualFollow(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	connected, err := svc.AreConnected(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, connected)
}
