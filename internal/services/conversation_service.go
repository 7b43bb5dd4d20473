package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sentinal-social/internal/domain/conversation"
	"sentinal-social/internal/domain/message"
	"sentinal-social/internal/events"
	"sentinal-social/internal/repository"
	sentinal_errors "sentinal-social/pkg/errors"
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ConversationService struct {
	store     repository.Store
	directory UserDirectory
	fanout    *FanoutService
	log       *logger.Logger
	now       func() time.Time
}

func NewConversationService(store repository.Store, directory UserDirectory, fanout *FanoutService, log *logger.Logger) *ConversationService {
	return &ConversationService{store: store, directory: directory, fanout: fanout, log: log, now: time.Now}
}

// FindOrCreateDirect returns the single direct conversation between a and b,
// creating it on first contact.
func (s *ConversationService) FindOrCreateDirect(ctx context.Context, a, b uuid.UUID) (conversation.Conversation, error) {
	conv, created, err := s.findOrCreateDirect(ctx, s.store.Conversations(), a, b)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if created {
		s.pushCreated(ctx, &conv, a)
	}
	return conv, nil
}

func (s *ConversationService) findOrCreateDirect(ctx context.Context, repo repository.ConversationRepository, a, b uuid.UUID) (conversation.Conversation, bool, error) {
	if a == b {
		return conversation.Conversation{}, false, fmt.Errorf("%w: cannot start a conversation with yourself", sentinal_errors.ErrInvalidOperation)
	}

	key := conversation.DirectKey(a, b)
	if existing, err := repo.GetDirectByKey(ctx, key); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, sentinal_errors.ErrNotFound) {
		return conversation.Conversation{}, false, err
	}

	now := s.now()
	conv := conversation.Conversation{
		ID:        uuid.New(),
		Type:      conversation.TypeDirect,
		DirectKey: sql.NullString{String: key, Valid: true},
		CreatedBy: a,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, id := range []uuid.UUID{a, b} {
		conv.Members = append(conv.Members, s.newMember(ctx, conv.ID, id, conversation.RoleMember, now))
	}
	return repo.FindOrCreateDirect(ctx, &conv)
}

func (s *ConversationService) CreateGroup(ctx context.Context, creatorID uuid.UUID, participantIDs []uuid.UUID, name string) (conversation.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return conversation.Conversation{}, fmt.Errorf("%w: group name is required", sentinal_errors.ErrInvalidInput)
	}

	ids := []uuid.UUID{creatorID}
	seen := map[uuid.UUID]bool{creatorID: true}
	for _, id := range participantIDs {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) < 2 {
		return conversation.Conversation{}, fmt.Errorf("%w: a group needs at least two participants", sentinal_errors.ErrInvalidInput)
	}

	now := s.now()
	conv := conversation.Conversation{
		ID:        uuid.New(),
		Type:      conversation.TypeGroup,
		Name:      sql.NullString{String: name, Valid: true},
		CreatedBy: creatorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, id := range ids {
		role := conversation.RoleMember
		if id == creatorID {
			role = conversation.RoleAdmin
		}
		conv.Members = append(conv.Members, s.newMember(ctx, conv.ID, id, role, now))
	}

	if err := s.store.Conversations().CreateGroup(ctx, &conv); err != nil {
		return conversation.Conversation{}, err
	}
	s.pushCreated(ctx, &conv, creatorID)
	return conv, nil
}

func (s *ConversationService) AddMember(ctx context.Context, conversationID, actorID, userID uuid.UUID) (conversation.Conversation, error) {
	conv, err := s.store.Conversations().GetByID(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if err := requireGroupAdmin(&conv, actorID); err != nil {
		return conversation.Conversation{}, err
	}
	if conv.IsActiveMember(userID) {
		return conversation.Conversation{}, fmt.Errorf("%w: user is already a member", sentinal_errors.ErrConflict)
	}

	m := s.newMember(ctx, conv.ID, userID, conversation.RoleMember, s.now())
	if err := s.store.Conversations().AddMember(ctx, &m); err != nil {
		if errors.Is(err, sentinal_errors.ErrAlreadyExists) {
			return conversation.Conversation{}, fmt.Errorf("%w: user is already a member", sentinal_errors.ErrConflict)
		}
		return conversation.Conversation{}, err
	}

	updated, err := s.store.Conversations().GetByID(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	s.fanout.PushConversationUpdate(ctx, events.EventTypeParticipantAdded, events.ConversationUpdatePayload{
		ConversationID: conversationID,
		ActorID:        actorID,
		TargetID:       uuid.NullUUID{UUID: userID, Valid: true},
	}, updated.MemberIDs())
	return updated, nil
}

func (s *ConversationService) RemoveMember(ctx context.Context, conversationID, actorID, userID uuid.UUID) error {
	if actorID == userID {
		return fmt.Errorf("%w: use leave to exit a group", sentinal_errors.ErrForbidden)
	}
	conv, err := s.store.Conversations().GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := requireGroupAdmin(&conv, actorID); err != nil {
		return err
	}
	if !conv.IsActiveMember(userID) {
		return fmt.Errorf("%w: user is not a member", sentinal_errors.ErrNotFound)
	}

	if err := s.store.Conversations().RemoveMember(ctx, conversationID, userID, s.now()); err != nil {
		return err
	}

	s.fanout.PushConversationUpdate(ctx, events.EventTypeParticipantRemoved, events.ConversationUpdatePayload{
		ConversationID: conversationID,
		ActorID:        actorID,
		TargetID:       uuid.NullUUID{UUID: userID, Valid: true},
	}, conv.MemberIDs())
	return nil
}

// LeaveGroup removes userID from a group. When the leaver is the last admin the
// longest standing remaining member is promoted first.
func (s *ConversationService) LeaveGroup(ctx context.Context, conversationID, userID uuid.UUID) error {
	var (
		recipients []uuid.UUID
		promoted   uuid.UUID
		didPromote bool
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		repo := tx.Conversations()
		if err := repo.LockForUpdate(ctx, conversationID); err != nil {
			return err
		}
		conv, err := repo.GetByID(ctx, conversationID)
		if err != nil {
			return err
		}
		if !conv.IsGroup() {
			return fmt.Errorf("%w: cannot leave a direct conversation", sentinal_errors.ErrInvalidOperation)
		}
		if !conv.IsActiveMember(userID) {
			return fmt.Errorf("%w: not a member of this conversation", sentinal_errors.ErrForbidden)
		}

		if successor, ok := conv.SuccessorAdmin(userID); ok {
			if err := repo.UpdateMemberRole(ctx, conversationID, successor, conversation.RoleAdmin); err != nil {
				return err
			}
			promoted, didPromote = successor, true
		}
		if err := repo.RemoveMember(ctx, conversationID, userID, s.now()); err != nil {
			return err
		}
		recipients = conv.MemberIDs()
		return nil
	})
	if err != nil {
		return err
	}

	if didPromote {
		s.log.Ctx(ctx).Info("promoted successor admin",
			zap.String("conversation_id", conversationID.String()),
			zap.String("user_id", promoted.String()))
		s.fanout.PushConversationUpdate(ctx, events.EventTypeParticipantRoleChanged, events.ConversationUpdatePayload{
			ConversationID: conversationID,
			ActorID:        userID,
			TargetID:       uuid.NullUUID{UUID: promoted, Valid: true},
			Role:           string(conversation.RoleAdmin),
		}, recipients)
	}
	s.fanout.PushConversationUpdate(ctx, events.EventTypeParticipantLeft, events.ConversationUpdatePayload{
		ConversationID: conversationID,
		ActorID:        userID,
		TargetID:       uuid.NullUUID{UUID: userID, Valid: true},
	}, recipients)
	return nil
}

func (s *ConversationService) Promote(ctx context.Context, conversationID, actorID, userID uuid.UUID) error {
	return s.setRole(ctx, conversationID, actorID, userID, conversation.RoleAdmin)
}

// Demote refuses to strip a group of its last admin.
func (s *ConversationService) Demote(ctx context.Context, conversationID, actorID, userID uuid.UUID) error {
	return s.setRole(ctx, conversationID, actorID, userID, conversation.RoleMember)
}

func (s *ConversationService) setRole(ctx context.Context, conversationID, actorID, userID uuid.UUID, role conversation.Role) error {
	var (
		recipients []uuid.UUID
		changed    bool
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		repo := tx.Conversations()
		if err := repo.LockForUpdate(ctx, conversationID); err != nil {
			return err
		}
		conv, err := repo.GetByID(ctx, conversationID)
		if err != nil {
			return err
		}
		if err := requireGroupAdmin(&conv, actorID); err != nil {
			return err
		}
		target, ok := conv.Member(userID)
		if !ok {
			return fmt.Errorf("%w: user is not a member", sentinal_errors.ErrNotFound)
		}
		if target.Role == role {
			return nil
		}
		if role == conversation.RoleMember && len(conv.AdminIDs()) == 1 {
			return fmt.Errorf("%w: a group must keep at least one admin", sentinal_errors.ErrInvalidOperation)
		}
		if err := repo.UpdateMemberRole(ctx, conversationID, userID, role); err != nil {
			return err
		}
		recipients, changed = conv.MemberIDs(), true
		return nil
	})
	if err != nil || !changed {
		return err
	}

	s.fanout.PushConversationUpdate(ctx, events.EventTypeParticipantRoleChanged, events.ConversationUpdatePayload{
		ConversationID: conversationID,
		ActorID:        actorID,
		TargetID:       uuid.NullUUID{UUID: userID, Valid: true},
		Role:           string(role),
	}, recipients)
	return nil
}

// UpdateGroupInfo changes the name and avatar of a group. A nil argument leaves
// the field unchanged; an avatar equal to conversation.AvatarClear removes it.
func (s *ConversationService) UpdateGroupInfo(ctx context.Context, conversationID, actorID uuid.UUID, name, avatar *string) (conversation.Conversation, error) {
	conv, err := s.store.Conversations().GetByID(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if err := requireGroupAdmin(&conv, actorID); err != nil {
		return conversation.Conversation{}, err
	}

	newName := conv.Name
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return conversation.Conversation{}, fmt.Errorf("%w: group name cannot be blank", sentinal_errors.ErrInvalidInput)
		}
		newName = sql.NullString{String: trimmed, Valid: true}
	}
	newAvatar := conv.AvatarRef
	if avatar != nil {
		if *avatar == conversation.AvatarClear {
			newAvatar = sql.NullString{}
		} else {
			newAvatar = sql.NullString{String: *avatar, Valid: true}
		}
	}

	now := s.now()
	if err := s.store.Conversations().UpdateInfo(ctx, conversationID, newName, newAvatar, now); err != nil {
		return conversation.Conversation{}, err
	}
	conv.Name, conv.AvatarRef, conv.UpdatedAt = newName, newAvatar, now

	payload := events.ConversationUpdatePayload{ConversationID: conversationID, ActorID: actorID}
	if newName.Valid {
		payload.Name = &newName.String
	}
	if newAvatar.Valid {
		payload.AvatarRef = &newAvatar.String
	} else {
		cleared := conversation.AvatarClear
		payload.AvatarRef = &cleared
	}
	s.fanout.PushConversationUpdate(ctx, events.EventTypeConversationUpdated, payload, conv.MemberIDs())
	return conv, nil
}

// UpdateLastMessage refreshes the cached summary. Failures are logged and
// never surface to the send that triggered it.
func (s *ConversationService) UpdateLastMessage(ctx context.Context, repo repository.ConversationRepository, conversationID uuid.UUID, m message.Message) {
	err := repo.UpdateLastMessage(ctx, conversationID, conversation.LastMessage{
		MessageID: m.ID,
		Preview:   m.Preview(),
		SenderID:  m.SenderID,
		SentAt:    m.CreatedAt,
	})
	if err != nil {
		s.log.Ctx(ctx).Warn("last message cache update failed",
			zap.String("conversation_id", conversationID.String()),
			zap.String("message_id", m.ID.String()),
			zap.Error(err))
	}
}

func (s *ConversationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]conversation.Conversation, error) {
	return s.store.Conversations().ListForUser(ctx, userID)
}

func (s *ConversationService) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	return s.store.Conversations().IsParticipant(ctx, conversationID, userID)
}

// Get returns a conversation to one of its active members.
func (s *ConversationService) Get(ctx context.Context, conversationID, userID uuid.UUID) (conversation.Conversation, error) {
	conv, err := s.store.Conversations().GetByID(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if !conv.IsActiveMember(userID) {
		return conversation.Conversation{}, fmt.Errorf("%w: not a member of this conversation", sentinal_errors.ErrForbidden)
	}
	return conv, nil
}

// Typing relays a typing signal to the other members of the conversation.
func (s *ConversationService) Typing(ctx context.Context, conversationID, userID uuid.UUID, typing bool) error {
	conv, err := s.Get(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	recipients := make([]uuid.UUID, 0, len(conv.Members))
	for _, id := range conv.MemberIDs() {
		if id != userID {
			recipients = append(recipients, id)
		}
	}
	s.fanout.PushTypingIndicator(ctx, conversationID, userID, typing, recipients)
	return nil
}

func (s *ConversationService) pushCreated(ctx context.Context, conv *conversation.Conversation, actorID uuid.UUID) {
	payload := events.ConversationUpdatePayload{ConversationID: conv.ID, ActorID: actorID}
	if conv.Name.Valid {
		payload.Name = &conv.Name.String
	}
	s.fanout.PushConversationUpdate(ctx, events.EventTypeConversationCreated, payload, conv.MemberIDs())
}

// newMember snapshots the member's display data. A directory failure leaves
// the snapshot empty; it is refreshed on read.
func (s *ConversationService) newMember(ctx context.Context, conversationID, userID uuid.UUID, role conversation.Role, joinedAt time.Time) conversation.Member {
	m := conversation.Member{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           role,
		JoinedAt:       joinedAt,
	}
	if s.directory == nil {
		return m
	}
	lookupCtx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
	defer cancel()
	p, err := s.directory.Get(lookupCtx, userID)
	if err != nil {
		s.log.Ctx(ctx).Debug("member snapshot lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
		return m
	}
	m.Username = p.Username
	m.AvatarRef = p.AvatarRef
	return m
}

func requireGroupAdmin(conv *conversation.Conversation, actorID uuid.UUID) error {
	if !conv.IsGroup() {
		return fmt.Errorf("%w: only group conversations support this", sentinal_errors.ErrInvalidOperation)
	}
	if !conv.IsAdmin(actorID) {
		return fmt.Errorf("%w: admin role required", sentinal_errors.ErrForbidden)
	}
	return nil
}
