package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"sentinal-social/internal/domain/conversation"
	"sentinal-social/internal/domain/invite"
	"sentinal-social/internal/events"
	"sentinal-social/internal/metrics"
	"sentinal-social/internal/repository"
	sentinal_errors "sentinal-social/pkg/errors"
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const inviteTokenBytes = 24

type InviteService struct {
	store         repository.Store
	conversations *ConversationService
	fanout        *FanoutService
	log           *logger.Logger
	now           func() time.Time
}

func NewInviteService(store repository.Store, conversations *ConversationService, fanout *FanoutService, log *logger.Logger) *InviteService {
	return &InviteService{store: store, conversations: conversations, fanout: fanout, log: log, now: time.Now}
}

func newInviteToken() (string, error) {
	b := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CreateOrRotate revokes the group's active link, if any, and issues a new one.
func (s *InviteService) CreateOrRotate(ctx context.Context, conversationID, actorID uuid.UUID, maxUses *int, expiresAt *time.Time) (invite.Link, error) {
	now := s.now()
	if maxUses != nil && *maxUses < 1 {
		return invite.Link{}, fmt.Errorf("%w: max uses must be positive", sentinal_errors.ErrInvalidInput)
	}
	if expiresAt != nil && !expiresAt.After(now) {
		return invite.Link{}, fmt.Errorf("%w: expiry must be in the future", sentinal_errors.ErrInvalidInput)
	}

	token, err := newInviteToken()
	if err != nil {
		return invite.Link{}, err
	}
	link := invite.Link{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Token:          token,
		CreatedBy:      actorID,
		CreatedAt:      now,
		Active:         true,
	}
	if maxUses != nil {
		link.MaxUses = sql.NullInt32{Int32: int32(*maxUses), Valid: true}
	}
	if expiresAt != nil {
		link.ExpiresAt = sql.NullTime{Time: *expiresAt, Valid: true}
	}

	var (
		recipients []uuid.UUID
		revoked    int64
	)
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		conv, err := lockInviteTarget(ctx, tx, conversationID, actorID)
		if err != nil {
			return err
		}
		if revoked, err = tx.Invites().RevokeActive(ctx, conversationID, actorID, now); err != nil {
			return err
		}
		if err := tx.Invites().Create(ctx, &link); err != nil {
			return err
		}
		recipients = conv.MemberIDs()
		return nil
	})
	if err != nil {
		return invite.Link{}, err
	}

	s.log.Ctx(ctx).Info("invite link issued",
		zap.String("conversation_id", conversationID.String()),
		zap.Int64("revoked", revoked))
	s.fanout.PushConversationUpdate(ctx, events.EventTypeConversationInviteLinkCreated, events.ConversationUpdatePayload{
		ConversationID: conversationID,
		ActorID:        actorID,
	}, recipients)
	return link, nil
}

// GetActive returns the most recently issued link whether or not it is still
// active, or nil when the group never had one.
func (s *InviteService) GetActive(ctx context.Context, conversationID, actorID uuid.UUID) (*invite.Link, error) {
	if _, err := s.conversations.Get(ctx, conversationID, actorID); err != nil {
		return nil, err
	}
	link, err := s.store.Invites().GetLatest(ctx, conversationID)
	if err != nil {
		if errors.Is(err, sentinal_errors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// SetActive turns the latest link on or off without issuing a new token.
func (s *InviteService) SetActive(ctx context.Context, conversationID, actorID uuid.UUID, active bool) (invite.Link, error) {
	var (
		link       invite.Link
		recipients []uuid.UUID
		changed    bool
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		conv, err := lockInviteTarget(ctx, tx, conversationID, actorID)
		if err != nil {
			return err
		}
		if link, err = tx.Invites().GetLatest(ctx, conversationID); err != nil {
			return err
		}
		if link.Active == active {
			return nil
		}
		if err := tx.Invites().SetActive(ctx, link.ID, active, actorID, s.now()); err != nil {
			return err
		}
		if link, err = tx.Invites().GetLatest(ctx, conversationID); err != nil {
			return err
		}
		recipients, changed = conv.MemberIDs(), true
		return nil
	})
	if err != nil {
		return invite.Link{}, err
	}

	if changed {
		s.fanout.PushConversationUpdate(ctx, events.EventTypeConversationInviteLinkUpdated, events.ConversationUpdatePayload{
			ConversationID: conversationID,
			ActorID:        actorID,
		}, recipients)
	}
	return link, nil
}

func lockInviteTarget(ctx context.Context, tx repository.Store, conversationID, actorID uuid.UUID) (conversation.Conversation, error) {
	if err := tx.Conversations().LockForUpdate(ctx, conversationID); err != nil {
		return conversation.Conversation{}, err
	}
	conv, err := tx.Conversations().GetByID(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if !conv.IsGroup() {
		return conversation.Conversation{}, fmt.Errorf("%w: invite links are only for groups", sentinal_errors.ErrInvalidOperation)
	}
	if !conv.IsActiveMember(actorID) {
		return conversation.Conversation{}, fmt.Errorf("%w: not a member of this conversation", sentinal_errors.ErrForbidden)
	}
	return conv, nil
}

// JoinByToken adds userID to the group behind token. Joining a group the user
// already belongs to returns it unchanged and does not use the link.
func (s *InviteService) JoinByToken(ctx context.Context, token string, userID uuid.UUID) (conversation.Conversation, error) {
	link, err := s.store.Invites().GetByToken(ctx, token)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if err := s.checkUsable(ctx, &link); err != nil {
		metrics.InviteJoins.WithLabelValues(joinOutcome(err)).Inc()
		return conversation.Conversation{}, err
	}

	conv, err := s.store.Conversations().GetByID(ctx, link.ConversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if conv.IsActiveMember(userID) {
		metrics.InviteJoins.WithLabelValues("already_member").Inc()
		return conv, nil
	}

	member := s.conversations.newMember(ctx, conv.ID, userID, conversation.RoleMember, s.now())
	alreadyMember := false
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Conversations().AddMember(ctx, &member); err != nil {
			if errors.Is(err, sentinal_errors.ErrAlreadyExists) {
				alreadyMember = true
				return nil
			}
			return err
		}
		_, ok, err := tx.Invites().IncrementUse(ctx, link.ID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		// The link changed since it was checked; report its current state.
		current, err := tx.Invites().GetByToken(ctx, token)
		if err != nil {
			return err
		}
		if err := s.rejection(&current); err != nil {
			return err
		}
		return fmt.Errorf("%w: invite link has no uses left", sentinal_errors.ErrLimitReached)
	})
	if err != nil {
		metrics.InviteJoins.WithLabelValues(joinOutcome(err)).Inc()
		return conversation.Conversation{}, err
	}

	updated, err := s.store.Conversations().GetByID(ctx, conv.ID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if alreadyMember {
		metrics.InviteJoins.WithLabelValues("already_member").Inc()
		return updated, nil
	}

	metrics.InviteJoins.WithLabelValues("joined").Inc()
	s.fanout.PushConversationUpdate(ctx, events.EventTypeParticipantAdded, events.ConversationUpdatePayload{
		ConversationID: conv.ID,
		ActorID:        userID,
		TargetID:       uuid.NullUUID{UUID: userID, Valid: true},
	}, updated.MemberIDs())
	return updated, nil
}

// checkUsable validates link in order: active, not expired, below its maximum.
// Expired and exhausted links are deactivated on the way out.
func (s *InviteService) checkUsable(ctx context.Context, link *invite.Link) error {
	err := s.rejection(link)
	if err != nil && link.Active {
		s.deactivate(ctx, link)
	}
	return err
}

// rejection classifies why link cannot be used, or returns nil when it can.
func (s *InviteService) rejection(link *invite.Link) error {
	switch {
	case !link.Active && link.IsExhausted():
		return fmt.Errorf("%w: invite link has no uses left", sentinal_errors.ErrLimitReached)
	case !link.Active:
		return fmt.Errorf("%w: invite link is no longer active", sentinal_errors.ErrExpired)
	case link.IsExpired(s.now()):
		return fmt.Errorf("%w: invite link has expired", sentinal_errors.ErrExpired)
	case link.IsExhausted():
		return fmt.Errorf("%w: invite link has no uses left", sentinal_errors.ErrLimitReached)
	}
	return nil
}

func (s *InviteService) deactivate(ctx context.Context, link *invite.Link) {
	if err := s.store.Invites().Deactivate(ctx, link.ID); err != nil {
		s.log.Ctx(ctx).Warn("invite link deactivation failed", zap.String("link_id", link.ID.String()), zap.Error(err))
		return
	}
	link.Active = false
}

func joinOutcome(err error) string {
	switch {
	case errors.Is(err, sentinal_errors.ErrExpired):
		return "expired"
	case errors.Is(err, sentinal_errors.ErrLimitReached):
		return "limit_reached"
	}
	return "error"
}
