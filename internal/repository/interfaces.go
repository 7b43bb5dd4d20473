package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"sentinal-social/internal/domain/conversation"
	"sentinal-social/internal/domain/invite"
	"sentinal-social/internal/domain/message"
	"sentinal-social/internal/domain/request"
)

// Store groups the four record collections and the transaction boundary that
// spans them. Repositories obtained from the Store passed to fn all run inside
// the same transaction.
type Store interface {
	Conversations() ConversationRepository
	Messages() MessageRepository
	Requests() RequestRepository
	Invites() InviteRepository
	WithinTx(ctx context.Context, fn func(Store) error) error
}

type ConversationRepository interface {
	// FindOrCreateDirect stores c unless a direct conversation with the same
	// DirectKey already exists. It returns the stored conversation and whether
	// this call created it.
	FindOrCreateDirect(ctx context.Context, c *conversation.Conversation) (conversation.Conversation, bool, error)
	CreateGroup(ctx context.Context, c *conversation.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error)
	GetDirectByKey(ctx context.Context, directKey string) (conversation.Conversation, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]conversation.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	// LockForUpdate serializes writers of one conversation until the
	// surrounding transaction ends.
	LockForUpdate(ctx context.Context, conversationID uuid.UUID) error

	AddMember(ctx context.Context, m *conversation.Member) error
	RemoveMember(ctx context.Context, conversationID, userID uuid.UUID, leftAt time.Time) error
	UpdateMemberRole(ctx context.Context, conversationID, userID uuid.UUID, role conversation.Role) error

	UpdateInfo(ctx context.Context, conversationID uuid.UUID, name, avatarRef sql.NullString, updatedAt time.Time) error
	UpdateLastMessage(ctx context.Context, conversationID uuid.UUID, last conversation.LastMessage) error

	SoftDeleteForUser(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error
	ClearDeletions(ctx context.Context, conversationID uuid.UUID) error
}

type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]message.Message, error)
	ListForConversation(ctx context.Context, conversationID, viewerID uuid.UUID, page, limit int) ([]message.Message, int64, error)
	// ListUnroutedBetween returns messages in either direction between a and b
	// that have no conversation yet, oldest first.
	ListUnroutedBetween(ctx context.Context, a, b uuid.UUID) ([]message.Message, error)
	// AttachToConversation routes the given messages. Messages that already
	// carry a conversation are left untouched.
	AttachToConversation(ctx context.Context, ids []uuid.UUID, conversationID uuid.UUID) (int64, error)

	// MarkConversationRead records readerID on every message of the
	// conversation sent by someone else and returns the ids newly marked.
	MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID, at time.Time) ([]uuid.UUID, error)
	// MarkPairRead does the same for unrouted messages from senderID to readerID.
	MarkPairRead(ctx context.Context, senderID, readerID uuid.UUID, at time.Time) ([]uuid.UUID, error)
	UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int64, error)

	SoftDelete(ctx context.Context, messageID, userID uuid.UUID, at time.Time) error
	SoftDeleteConversation(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error
}

type RequestRepository interface {
	// Create returns sentinal_errors.ErrAlreadyExists when the ordered pair
	// already has a pending request.
	Create(ctx context.Context, r *request.MessageRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (request.MessageRequest, error)
	FindPending(ctx context.Context, senderID, receiverID uuid.UUID) (request.MessageRequest, error)
	AppendMessage(ctx context.Context, requestID, messageID uuid.UUID) error
	// UpdateStatus moves a pending request to status. It reports false when
	// the request was no longer pending.
	UpdateStatus(ctx context.Context, id uuid.UUID, status request.Status, respondedAt time.Time) (bool, error)
	ClearMessages(ctx context.Context, requestID uuid.UUID) error
	ListIncoming(ctx context.Context, receiverID uuid.UUID) ([]request.MessageRequest, error)
	ListOutgoing(ctx context.Context, senderID uuid.UUID) ([]request.MessageRequest, error)
}

type InviteRepository interface {
	Create(ctx context.Context, l *invite.Link) error
	RevokeActive(ctx context.Context, conversationID, revokedBy uuid.UUID, at time.Time) (int64, error)
	GetLatest(ctx context.Context, conversationID uuid.UUID) (invite.Link, error)
	GetByToken(ctx context.Context, token string) (invite.Link, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool, actorID uuid.UUID, at time.Time) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	// IncrementUse counts one join while the link is active and below its
	// maximum, deactivating it when the maximum is reached. ok is false when
	// the link could not be used.
	IncrementUse(ctx context.Context, id uuid.UUID) (invite.Link, bool, error)
}
