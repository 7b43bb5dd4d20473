package services

import (
	"context"
	"strings"
	"testing"

	"sentinal-social/internal/domain/message"
	"sentinal-social/internal/events"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendValidatesContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	conv, err := env.conversations.FindOrCreateDirect(ctx, a, b)
	require.NoError(t, err)

	tests := []struct {
		name        string
		contentType message.ContentType
		content     string
	}{
		{"blank", message.ContentText, "   "},
		{"too long", message.ContentText, strings.Repeat("x", maxContentLen+1)},
		{"unknown type", message.ContentType("STICKER"), "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.messages.Send(ctx, conv.ID, a, tt.contentType, tt.content)
			assert.ErrorIs(t, err, sentinal_errors.ErrInvalidInput)
		})
	}
}

func TestSendRequiresActiveMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, member := uuid.New(), uuid.New()
	convID := env.group(t, admin, member)

	_, err := env.messages.Send(ctx, convID, uuid.New(), message.ContentText, "hi")
	assert.ErrorIs(t, err, sentinal_errors.ErrForbidden)

	require.NoError(t, env.conversations.LeaveGroup(ctx, convID, member))
	_, err = env.messages.Send(ctx, convID, member, message.ContentText, "hi")
	assert.ErrorIs(t, err, sentinal_errors.ErrForbidden)
}

func TestSendDirectEchoesSender(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	conv, err := env.conversations.FindOrCreateDirect(ctx, a, b)
	require.NoError(t, err)

	m, err := env.messages.Send(ctx, conv.ID, a, message.ContentText, "hello")
	require.NoError(t, err)
	assert.Equal(t, uuid.NullUUID{UUID: b, Valid: true}, m.ReceiverID)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, env.publisher.recipients(events.EventTypeMessageCreated))

	stored, err := env.store.Conversations().GetByID(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastMessage)
	assert.Equal(t, m.ID, stored.LastMessage.MessageID)
	assert.Equal(t, "hello", stored.LastMessage.Preview)
}

func TestMarkReadCoversWholeConversation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, m1, m2 := uuid.New(), uuid.New(), uuid.New()
	convID := env.group(t, admin, m1, m2)

	var sent []uuid.UUID
	for i := 0; i < 3; i++ {
		m, err := env.messages.Send(ctx, convID, admin, message.ContentText, "hi")
		require.NoError(t, err)
		sent = append(sent, m.ID)
	}
	own, err := env.messages.Send(ctx, convID, m1, message.ContentText, "mine")
	require.NoError(t, err)

	marked, err := env.messages.MarkRead(ctx, sent[0], m1)
	require.NoError(t, err)
	assert.Equal(t, sent, marked, "own messages are never marked")

	again, err := env.messages.MarkRead(ctx, own.ID, m1)
	require.NoError(t, err)
	assert.Empty(t, again)

	assert.ElementsMatch(t, []uuid.UUID{admin, m1, m2}, env.publisher.recipients(events.EventTypeReceiptRead))

	unread, err := env.messages.UnreadCount(ctx, convID, m2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), unread)
}

func TestMarkReadRejectsOutsiders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, member := uuid.New(), uuid.New()
	convID := env.group(t, admin, member)
	m, err := env.messages.Send(ctx, convID, admin, message.ContentText, "hi")
	require.NoError(t, err)

	_, err = env.messages.MarkRead(ctx, m.ID, uuid.New())
	assert.ErrorIs(t, err, sentinal_errors.ErrForbidden)

	_, err = env.messages.MarkRead(ctx, uuid.New(), member)
	assert.ErrorIs(t, err, sentinal_errors.ErrNotFound)
}

func TestUnreadCountActiveMembersOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, member, other := uuid.New(), uuid.New(), uuid.New()
	convID := env.group(t, admin, member, other)
	_, err := env.messages.Send(ctx, convID, admin, message.ContentText, "hi")
	require.NoError(t, err)

	unread, err := env.messages.UnreadCount(ctx, convID, member)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	_, err = env.messages.UnreadCount(ctx, convID, uuid.New())
	assert.ErrorIs(t, err, sentinal_errors.ErrForbidden)

	require.NoError(t, env.conversations.LeaveGroup(ctx, convID, member))
	_, err = env.messages.UnreadCount(ctx, convID, member)
	assert.ErrorIs(t, err, sentinal_errors.ErrForbidden)
}

func TestReplyMarksSenderRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	conv, err := env.conversations.FindOrCreateDirect(ctx, a, b)
	require.NoError(t, err)

	first, err := env.messages.Send(ctx, conv.ID, a, message.ContentText, "question")
	require.NoError(t, err)
	_, err = env.messages.Send(ctx, conv.ID, a, message.ContentText, "another")
	require.NoError(t, err)

	reply, err := env.messages.Reply(ctx, conv.ID, b, first.ID, "answer")
	require.NoError(t, err)
	assert.Equal(t, uuid.NullUUID{UUID: first.ID, Valid: true}, reply.ReplyToID)

	unread, err := env.messages.UnreadCount(ctx, conv.ID, b)
	require.NoError(t, err)
	assert.Zero(t, unread)
	assert.Equal(t, []uuid.UUID{a}, env.publisher.recipients(events.EventTypeReceiptRead))
}

func TestReplyTargetMustShareConversation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	ab, err := env.conversations.FindOrCreateDirect(ctx, a, b)
	require.NoError(t, err)
	ac, err := env.conversations.FindOrCreateDirect(ctx, a, c)
	require.NoError(t, err)

	elsewhere, err := env.messages.Send(ctx, ac.ID, a, message.ContentText, "hi c")
	require.NoError(t, err)

	_, err = env.messages.Reply(ctx, ab.ID, b, elsewhere.ID, "hmm")
	assert.ErrorIs(t, err, sentinal_errors.ErrInvalidInput)
}

func TestSoftDeleteIsPerUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	conv, err := env.conversations.FindOrCreateDirect(ctx, a, b)
	require.NoError(t, err)
	m, err := env.messages.Send(ctx, conv.ID, a, message.ContentText, "oops")
	require.NoError(t, err)

	require.NoError(t, env.messages.SoftDelete(ctx, m.ID, a))

	forA, total, err := env.messages.List(ctx, conv.ID, a, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, forA)
	assert.Zero(t, total)

	forB, _, err := env.messages.List(ctx, conv.ID, b, 1, 10)
	require.NoError(t, err)
	require.Len(t, forB, 1)
	assert.Equal(t, m.ID, forB[0].ID)

	assert.ErrorIs(t, env.messages.SoftDelete(ctx, m.ID, uuid.New()), sentinal_errors.ErrForbidden)
}

func TestSoftDeleteConversationReappearsOnActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	conv, err := env.conversations.FindOrCreateDirect(ctx, a, b)
	require.NoError(t, err)
	_, err = env.messages.Send(ctx, conv.ID, b, message.ContentText, "old")
	require.NoError(t, err)

	require.NoError(t, env.messages.SoftDeleteConversation(ctx, conv.ID, a))

	listA, err := env.conversations.ListForUser(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, listA)
	listB, err := env.conversations.ListForUser(ctx, b)
	require.NoError(t, err)
	assert.Len(t, listB, 1)

	fresh, err := env.messages.Send(ctx, conv.ID, b, message.ContentText, "new")
	require.NoError(t, err)

	listA, err = env.conversations.ListForUser(ctx, a)
	require.NoError(t, err)
	assert.Len(t, listA, 1)

	history, _, err := env.messages.List(ctx, conv.ID, a, 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 1, "history before the delete stays hidden")
	assert.Equal(t, fresh.ID, history[0].ID)
}

func TestFormerMemberKeepsHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, member := uuid.New(), uuid.New()
	convID := env.group(t, admin, member)
	_, err := env.messages.Send(ctx, convID, admin, message.ContentText, "hi")
	require.NoError(t, err)
	require.NoError(t, env.conversations.LeaveGroup(ctx, convID, member))

	history, _, err := env.messages.List(ctx, convID, member, 0, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, _, err = env.messages.List(ctx, convID, uuid.New(), 1, 10)
	assert.ErrorIs(t, err, sentinal_errors.ErrForbidden)
}

func TestNormalizePage(t *testing.T) {
	page, limit := NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, defaultPageSize, limit)

	_, limit = NormalizePage(2, 1000)
	assert.Equal(t, maxPageSize, limit)
}
