package services

import (
	"context"
	"encoding/json"
	"time"

	"sentinal-social/internal/domain/conversation"
	"sentinal-social/internal/domain/message"
	"sentinal-social/internal/domain/request"
	"sentinal-social/internal/events"
	"sentinal-social/internal/metrics"
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const fanoutTimeout = 3 * time.Second

// FanoutService pushes state changes to the per-user real-time channels.
// Every method is best-effort: failures are logged and counted, never returned.
type FanoutService struct {
	publisher events.Publisher
	media     MediaResolver
	log       *logger.Logger
	now       func() time.Time
}

func NewFanoutService(publisher events.Publisher, media MediaResolver, log *logger.Logger) *FanoutService {
	return &FanoutService{publisher: publisher, media: media, log: log, now: time.Now}
}

// MessageRecipients is every active group member, or both sides of a direct
// conversation so the sender gets an echo.
func MessageRecipients(conv *conversation.Conversation, senderID uuid.UUID) []uuid.UUID {
	if conv.IsGroup() {
		return conv.MemberIDs()
	}
	out := []uuid.UUID{senderID}
	if other, ok := conv.OtherMember(senderID); ok {
		out = append(out, other)
	}
	return out
}

// ReadReceiptRecipients is the other side of a direct conversation, or every
// group member.
func ReadReceiptRecipients(conv *conversation.Conversation, readerID uuid.UUID) []uuid.UUID {
	if conv.IsGroup() {
		return conv.MemberIDs()
	}
	if other, ok := conv.OtherMember(readerID); ok {
		return []uuid.UUID{other}
	}
	return nil
}

func (f *FanoutService) PushMessage(ctx context.Context, conv *conversation.Conversation, m message.Message) {
	if f == nil {
		return
	}
	payload := f.messagePayload(ctx, m)
	f.publish(ctx, events.EventTypeMessageCreated, events.AggregateMessage, m.ID, payload, MessageRecipients(conv, m.SenderID))
}

// PushUnroutedMessage delivers a message still held by a message request to
// its receiver's request inbox and echoes it to the sender.
func (f *FanoutService) PushUnroutedMessage(ctx context.Context, m message.Message) {
	u, ok := m.Route.(message.Unrouted)
	if f == nil || !ok {
		return
	}
	payload := f.messagePayload(ctx, m)
	f.publish(ctx, events.EventTypeMessageCreated, events.AggregateMessage, m.ID, payload, []uuid.UUID{u.SenderID, u.ReceiverID})
}

func (f *FanoutService) PushReadReceipt(ctx context.Context, conv *conversation.Conversation, readerID uuid.UUID, messageIDs []uuid.UUID, readAt time.Time) {
	if len(messageIDs) == 0 {
		return
	}
	payload := events.ReadReceiptPayload{
		ConversationID: uuid.NullUUID{UUID: conv.ID, Valid: true},
		ReaderID:       readerID,
		MessageIDs:     messageIDs,
		ReadAt:         readAt,
	}
	f.publish(ctx, events.EventTypeReceiptRead, events.AggregateConversation, conv.ID, payload, ReadReceiptRecipients(conv, readerID))
}

// PushPairReadReceipt notifies senderID that readerID read its unrouted messages.
func (f *FanoutService) PushPairReadReceipt(ctx context.Context, senderID, readerID uuid.UUID, messageIDs []uuid.UUID, readAt time.Time) {
	if len(messageIDs) == 0 {
		return
	}
	payload := events.ReadReceiptPayload{
		ReaderID:   readerID,
		MessageIDs: messageIDs,
		ReadAt:     readAt,
	}
	f.publish(ctx, events.EventTypeReceiptRead, events.AggregateMessage, messageIDs[0], payload, []uuid.UUID{senderID})
}

func (f *FanoutService) PushTypingIndicator(ctx context.Context, conversationID, userID uuid.UUID, typing bool, recipients []uuid.UUID) {
	eventType := events.EventTypeTypingStopped
	if typing {
		eventType = events.EventTypeTypingStarted
	}
	payload := events.TypingPayload{ConversationID: conversationID, UserID: userID, Typing: typing}
	f.publish(ctx, eventType, events.AggregateConversation, conversationID, payload, recipients)
}

func (f *FanoutService) PushConversationUpdate(ctx context.Context, eventType string, payload events.ConversationUpdatePayload, recipients []uuid.UUID) {
	f.publish(ctx, eventType, events.AggregateConversation, payload.ConversationID, payload, recipients)
}

// PushRequestUpdate notifies both parties of a message request.
func (f *FanoutService) PushRequestUpdate(ctx context.Context, eventType string, req request.MessageRequest, conversationID uuid.NullUUID) {
	f.PushRequestUpdateTo(ctx, eventType, req, conversationID, []uuid.UUID{req.SenderID, req.ReceiverID})
}

func (f *FanoutService) PushRequestUpdateTo(ctx context.Context, eventType string, req request.MessageRequest, conversationID uuid.NullUUID, recipients []uuid.UUID) {
	payload := events.RequestPayload{
		RequestID:      req.ID,
		SenderID:       req.SenderID,
		ReceiverID:     req.ReceiverID,
		Status:         string(req.Status),
		ConversationID: conversationID,
	}
	f.publish(ctx, eventType, events.AggregateRequest, req.ID, payload, recipients)
}

func (f *FanoutService) messagePayload(ctx context.Context, m message.Message) events.MessagePayload {
	payload := events.MessagePayload{
		MessageID:  m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Type:       string(m.Type),
		Content:    m.Content,
		ReplyToID:  m.ReplyToID,
		CreatedAt:  m.CreatedAt,
	}
	if id, ok := m.ConversationID(); ok {
		payload.ConversationID = uuid.NullUUID{UUID: id, Valid: true}
	}
	if m.Type.IsMedia() && f.media != nil {
		if url, err := f.media.Resolve(ctx, m.Content); err == nil && url != "" {
			payload.MediaURL = &url
		}
	}
	return payload
}

func (f *FanoutService) publish(ctx context.Context, eventType, aggregateType string, aggregateID uuid.UUID, payload interface{}, recipients []uuid.UUID) {
	if f == nil || f.publisher == nil || len(recipients) == 0 {
		return
	}

	// Delivery must not be cut short by the request that triggered it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fanoutTimeout)
	defer cancel()

	env, err := events.NewEnvelope(eventType, aggregateType, aggregateID, f.now(), payload)
	if err != nil {
		f.fail(ctx, eventType, err)
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		f.fail(ctx, eventType, err)
		return
	}

	seen := make(map[uuid.UUID]struct{}, len(recipients))
	for _, userID := range recipients {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		if err := f.publisher.Publish(ctx, events.UserChannel(userID), data); err != nil {
			f.fail(ctx, eventType, err, zap.String("recipient", userID.String()))
			continue
		}
		metrics.FanoutPublished.WithLabelValues(eventType).Inc()
	}
}

func (f *FanoutService) fail(ctx context.Context, eventType string, err error, fields ...zap.Field) {
	metrics.FanoutFailed.WithLabelValues(eventType).Inc()
	fields = append(fields, zap.String("event_type", eventType), zap.Error(err))
	f.log.Ctx(ctx).Warn("fan-out publish failed", fields...)
}
