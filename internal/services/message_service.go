package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sentinal-social/internal/domain/conversation"
	"sentinal-social/internal/domain/message"
	"sentinal-social/internal/metrics"
	"sentinal-social/internal/repository"
	sentinal_errors "sentinal-social/pkg/errors"
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
	maxContentLen   = 4000
)

type MessageService struct {
	store         repository.Store
	conversations *ConversationService
	fanout        *FanoutService
	log           *logger.Logger
	now           func() time.Time
}

func NewMessageService(store repository.Store, conversations *ConversationService, fanout *FanoutService, log *logger.Logger) *MessageService {
	return &MessageService{store: store, conversations: conversations, fanout: fanout, log: log, now: time.Now}
}

func validateContent(contentType message.ContentType, content string) error {
	if !contentType.Valid() {
		return fmt.Errorf("%w: unknown content type %q", sentinal_errors.ErrInvalidInput, contentType)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content is required", sentinal_errors.ErrInvalidInput)
	}
	if len([]rune(content)) > maxContentLen {
		return fmt.Errorf("%w: content is too long", sentinal_errors.ErrInvalidInput)
	}
	return nil
}

func (s *MessageService) Send(ctx context.Context, conversationID, senderID uuid.UUID, contentType message.ContentType, content string) (message.Message, error) {
	if err := validateContent(contentType, content); err != nil {
		return message.Message{}, err
	}
	conv, err := s.conversations.Get(ctx, conversationID, senderID)
	if err != nil {
		return message.Message{}, err
	}

	m := s.newRouted(&conv, senderID, contentType, content)
	if err := s.deliver(ctx, &conv, m); err != nil {
		return message.Message{}, err
	}
	return m, nil
}

// Reply sends a text reply and marks the sender's unread messages in the
// conversation as read.
func (s *MessageService) Reply(ctx context.Context, conversationID, senderID, replyToID uuid.UUID, content string) (message.Message, error) {
	if err := validateContent(message.ContentText, content); err != nil {
		return message.Message{}, err
	}
	conv, err := s.conversations.Get(ctx, conversationID, senderID)
	if err != nil {
		return message.Message{}, err
	}
	target, err := s.store.Messages().GetByID(ctx, replyToID)
	if err != nil {
		return message.Message{}, err
	}
	if targetConv, ok := target.ConversationID(); !ok || targetConv != conversationID {
		return message.Message{}, fmt.Errorf("%w: reply target belongs to another conversation", sentinal_errors.ErrInvalidInput)
	}

	m := s.newRouted(&conv, senderID, message.ContentText, content)
	m.ReplyToID = uuid.NullUUID{UUID: replyToID, Valid: true}
	if err := s.deliver(ctx, &conv, m); err != nil {
		return message.Message{}, err
	}

	readAt := s.now()
	marked, err := s.store.Messages().MarkConversationRead(ctx, conversationID, senderID, readAt)
	if err != nil {
		s.log.Ctx(ctx).Warn("read on reply failed", zap.String("conversation_id", conversationID.String()), zap.Error(err))
		return m, nil
	}
	s.fanout.PushReadReceipt(ctx, &conv, senderID, marked, readAt)
	return m, nil
}

func (s *MessageService) newRouted(conv *conversation.Conversation, senderID uuid.UUID, contentType message.ContentType, content string) message.Message {
	m := message.Message{
		ID:        uuid.New(),
		Route:     message.Routed{ConversationID: conv.ID},
		SenderID:  senderID,
		Type:      contentType,
		Content:   content,
		CreatedAt: s.now(),
	}
	if other, ok := conv.OtherMember(senderID); ok {
		m.ReceiverID = uuid.NullUUID{UUID: other, Valid: true}
	}
	return m
}

// deliver persists a routed message and runs the follow-up steps every send
// shares. Only the insert can fail the send.
func (s *MessageService) deliver(ctx context.Context, conv *conversation.Conversation, m message.Message) error {
	if err := s.store.Messages().Create(ctx, &m); err != nil {
		return err
	}
	metrics.MessagesSent.WithLabelValues("routed").Inc()

	// New activity brings the conversation back for users who hid it.
	if len(conv.DeletedFor) > 0 {
		if err := s.store.Conversations().ClearDeletions(ctx, conv.ID); err != nil {
			s.log.Ctx(ctx).Warn("clear conversation deletions failed", zap.String("conversation_id", conv.ID.String()), zap.Error(err))
		}
	}
	s.conversations.UpdateLastMessage(ctx, s.store.Conversations(), conv.ID, m)
	s.fanout.PushMessage(ctx, conv, m)
	return nil
}

// MarkRead marks every unread message sharing the target's conversation, or
// its sender and receiver when unrouted, as read by readerID. The reader's own
// messages are never marked. It returns the ids newly marked.
func (s *MessageService) MarkRead(ctx context.Context, messageID, readerID uuid.UUID) ([]uuid.UUID, error) {
	m, err := s.store.Messages().GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	readAt := s.now()

	switch route := m.Route.(type) {
	case message.Routed:
		conv, err := s.conversations.Get(ctx, route.ConversationID, readerID)
		if err != nil {
			return nil, err
		}
		marked, err := s.store.Messages().MarkConversationRead(ctx, conv.ID, readerID, readAt)
		if err != nil {
			return nil, err
		}
		s.fanout.PushReadReceipt(ctx, &conv, readerID, marked, readAt)
		return marked, nil

	case message.Unrouted:
		var counterpart uuid.UUID
		switch readerID {
		case route.ReceiverID:
			counterpart = route.SenderID
		case route.SenderID:
			counterpart = route.ReceiverID
		default:
			return nil, fmt.Errorf("%w: not a party to this message", sentinal_errors.ErrForbidden)
		}
		marked, err := s.store.Messages().MarkPairRead(ctx, counterpart, readerID, readAt)
		if err != nil {
			return nil, err
		}
		s.fanout.PushPairReadReceipt(ctx, counterpart, readerID, marked, readAt)
		return marked, nil
	}
	return nil, fmt.Errorf("%w: message has no route", sentinal_errors.ErrInvalidOperation)
}

// SoftDelete hides one message from userID only.
func (s *MessageService) SoftDelete(ctx context.Context, messageID, userID uuid.UUID) error {
	m, err := s.store.Messages().GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if err := s.requireVisible(ctx, &m, userID); err != nil {
		return err
	}
	return s.store.Messages().SoftDelete(ctx, messageID, userID, s.now())
}

// SoftDeleteConversation hides the conversation and its current history from
// userID. Later messages make it reappear.
func (s *MessageService) SoftDeleteConversation(ctx context.Context, conversationID, userID uuid.UUID) error {
	conv, err := s.store.Conversations().GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !wasMember(&conv, userID) {
		return fmt.Errorf("%w: not a member of this conversation", sentinal_errors.ErrForbidden)
	}
	now := s.now()
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Conversations().SoftDeleteForUser(ctx, conversationID, userID, now); err != nil {
			return err
		}
		return tx.Messages().SoftDeleteConversation(ctx, conversationID, userID, now)
	})
}

// List returns a page of the conversation's messages, newest first, without
// the ones userID deleted.
func (s *MessageService) List(ctx context.Context, conversationID, userID uuid.UUID, page, limit int) ([]message.Message, int64, error) {
	conv, err := s.store.Conversations().GetByID(ctx, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if !wasMember(&conv, userID) {
		return nil, 0, fmt.Errorf("%w: not a member of this conversation", sentinal_errors.ErrForbidden)
	}
	page, limit = NormalizePage(page, limit)
	return s.store.Messages().ListForConversation(ctx, conversationID, userID, page, limit)
}

// UnreadCount is only answered for active members.
func (s *MessageService) UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	ok, err := s.conversations.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: not a member of this conversation", sentinal_errors.ErrForbidden)
	}
	return s.store.Messages().UnreadCount(ctx, conversationID, userID)
}

func (s *MessageService) requireVisible(ctx context.Context, m *message.Message, userID uuid.UUID) error {
	switch route := m.Route.(type) {
	case message.Routed:
		if m.SenderID == userID {
			return nil
		}
		conv, err := s.store.Conversations().GetByID(ctx, route.ConversationID)
		if err != nil {
			return err
		}
		if wasMember(&conv, userID) {
			return nil
		}
	case message.Unrouted:
		if route.SenderID == userID || route.ReceiverID == userID {
			return nil
		}
	}
	return fmt.Errorf("%w: message is not visible to this user", sentinal_errors.ErrForbidden)
}

// wasMember reports whether userID is or has been a member of conv.
func wasMember(conv *conversation.Conversation, userID uuid.UUID) bool {
	if conv.IsActiveMember(userID) {
		return true
	}
	for _, l := range conv.LeftMembers {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

// NormalizePage clamps paging arguments to the defaults and the maximum page
// size.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}
