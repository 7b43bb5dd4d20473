package services

import (
	"context"
	"errors"
	"testing"

	"sentinal-social/internal/domain/conversation"
	"sentinal-social/internal/domain/message"
	"sentinal-social/internal/domain/request"
	"sentinal-social/internal/events"
	"sentinal-social/internal/services/mocks"
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func members(ids ...uuid.UUID) []conversation.Member {
	out := make([]conversation.Member, 0, len(ids))
	for _, id := range ids {
		out = append(out, conversation.Member{UserID: id, Role: conversation.RoleMember})
	}
	return out
}

func TestRecipientRules(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	direct := &conversation.Conversation{ID: uuid.New(), Type: conversation.TypeDirect, Members: members(a, b)}
	group := &conversation.Conversation{ID: uuid.New(), Type: conversation.TypeGroup, Members: members(a, b, c)}

	assert.ElementsMatch(t, []uuid.UUID{a, b}, MessageRecipients(direct, a), "sender gets an echo")
	assert.ElementsMatch(t, []uuid.UUID{a, b, c}, MessageRecipients(group, a))

	assert.Equal(t, []uuid.UUID{b}, ReadReceiptRecipients(direct, a))
	assert.ElementsMatch(t, []uuid.UUID{a, b, c}, ReadReceiptRecipients(group, a))
}

func TestFanoutDeduplicatesRecipients(t *testing.T) {
	pub := &recordingPublisher{}
	f := NewFanoutService(pub, nil, logger.NewNop())
	a := uuid.New()

	f.PushConversationUpdate(context.Background(), events.EventTypeConversationUpdated,
		events.ConversationUpdatePayload{ConversationID: uuid.New(), ActorID: a},
		[]uuid.UUID{a, a, a})

	assert.Equal(t, 1, pub.count(events.EventTypeConversationUpdated))
}

func TestFanoutResolvesMediaURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	media := mocks.NewMockMediaResolver(ctrl)
	pub := &recordingPublisher{}
	f := NewFanoutService(pub, media, logger.NewNop())

	a, b := uuid.New(), uuid.New()
	m := message.Message{
		ID:       uuid.New(),
		Route:    message.Unrouted{SenderID: a, ReceiverID: b},
		SenderID: a,
		Type:     message.ContentImage,
		Content:  "uploads/cat.png",
	}
	media.EXPECT().Resolve(gomock.Any(), "uploads/cat.png").Return("https://cdn.example.com/uploads/cat.png", nil)

	f.PushUnroutedMessage(context.Background(), m)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, pub.recipients(events.EventTypeMessageCreated))
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, string, []byte) error {
	p.calls++
	return errors.New("broker unavailable")
}

func TestFanoutSwallowsPublishErrors(t *testing.T) {
	pub := &failingPublisher{}
	f := NewFanoutService(pub, nil, logger.NewNop())
	req := request.MessageRequest{ID: uuid.New(), SenderID: uuid.New(), ReceiverID: uuid.New(), Status: request.StatusPending}

	assert.NotPanics(t, func() {
		f.PushRequestUpdate(context.Background(), events.EventTypeRequestCreated, req, uuid.NullUUID{})
	})
	assert.Equal(t, 2, pub.calls, "a failed recipient does not stop the rest")

	var nilFanout *FanoutService
	assert.NotPanics(t, func() {
		nilFanout.PushMessage(context.Background(), &conversation.Conversation{}, message.Message{})
	})
}
