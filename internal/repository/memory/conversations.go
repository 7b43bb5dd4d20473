package memory

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"sentinal-social/internal/domain/conversation"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

type conversationRepository struct {
	s *Store
}

func (r *conversationRepository) FindOrCreateDirect(_ context.Context, c *conversation.Conversation) (conversation.Conversation, bool, error) {
	defer r.s.lock()()
	st := r.s.st
	if id, ok := st.directKeys[c.DirectKey.String]; ok {
		return cloneConversation(st.conversations[id]), false, nil
	}
	stored := cloneConversation(c)
	st.conversations[c.ID] = &stored
	st.directKeys[c.DirectKey.String] = c.ID
	return cloneConversation(&stored), true, nil
}

func (r *conversationRepository) CreateGroup(_ context.Context, c *conversation.Conversation) error {
	defer r.s.lock()()
	if _, ok := r.s.st.conversations[c.ID]; ok {
		return sentinal_errors.ErrAlreadyExists
	}
	stored := cloneConversation(c)
	r.s.st.conversations[c.ID] = &stored
	return nil
}

func (r *conversationRepository) GetByID(_ context.Context, id uuid.UUID) (conversation.Conversation, error) {
	defer r.s.lock()()
	c, ok := r.s.st.conversations[id]
	if !ok {
		return conversation.Conversation{}, sentinal_errors.ErrNotFound
	}
	return cloneConversation(c), nil
}

func (r *conversationRepository) GetDirectByKey(_ context.Context, directKey string) (conversation.Conversation, error) {
	defer r.s.lock()()
	id, ok := r.s.st.directKeys[directKey]
	if !ok {
		return conversation.Conversation{}, sentinal_errors.ErrNotFound
	}
	return cloneConversation(r.s.st.conversations[id]), nil
}

func (r *conversationRepository) ListForUser(_ context.Context, userID uuid.UUID) ([]conversation.Conversation, error) {
	defer r.s.lock()()
	var out []conversation.Conversation
	for _, c := range r.s.st.conversations {
		if c.IsActiveMember(userID) && !c.IsDeletedFor(userID) {
			out = append(out, cloneConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].LastActivity(), out[j].LastActivity()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *conversationRepository) IsParticipant(_ context.Context, conversationID, userID uuid.UUID) (bool, error) {
	defer r.s.lock()()
	c, ok := r.s.st.conversations[conversationID]
	if !ok {
		return false, nil
	}
	return c.IsActiveMember(userID), nil
}

// LockForUpdate only checks existence; transactions already exclude each other.
func (r *conversationRepository) LockForUpdate(_ context.Context, conversationID uuid.UUID) error {
	defer r.s.lock()()
	if _, ok := r.s.st.conversations[conversationID]; !ok {
		return sentinal_errors.ErrNotFound
	}
	return nil
}

func (r *conversationRepository) AddMember(_ context.Context, m *conversation.Member) error {
	defer r.s.lock()()
	c, ok := r.s.st.conversations[m.ConversationID]
	if !ok {
		return sentinal_errors.ErrNotFound
	}
	if c.IsActiveMember(m.UserID) {
		return sentinal_errors.ErrAlreadyExists
	}
	c.Members = append(c.Members, *m)
	return nil
}

func (r *conversationRepository) RemoveMember(_ context.Context, conversationID, userID uuid.UUID, leftAt time.Time) error {
	defer r.s.lock()()
	c, ok := r.s.st.conversations[conversationID]
	if !ok {
		return sentinal_errors.ErrNotFound
	}
	for i, m := range c.Members {
		if m.UserID != userID {
			continue
		}
		c.Members = append(c.Members[:i:i], c.Members[i+1:]...)
		c.LeftMembers = append(c.LeftMembers, conversation.LeftMember{
			ConversationID: conversationID,
			UserID:         userID,
			Role:           m.Role,
			JoinedAt:       m.JoinedAt,
			LeftAt:         leftAt,
		})
		return nil
	}
	return sentinal_errors.ErrNotFound
}

func (r *conversationRepository) UpdateMemberRole(_ context.Context, conversationID, userID uuid.UUID, role conversation.Role) error {
	defer r.s.lock()()
	c, ok := r.s.st.conversations[conversationID]
	if !ok {
		return sentinal_errors.ErrNotFound
	}
	for i := range c.Members {
		if c.Members[i].UserID == userID {
			c.Members[i].Role = role
			return nil
		}
	}
	return sentinal_errors.ErrNotFound
}

func (r *conversationRepository) UpdateInfo(_ context.Context, conversationID uuid.UUID, name, avatarRef sql.NullString, updatedAt time.Time) error {
	defer r.s.lock()()
	c, ok := r.s.st.conversations[conversationID]
	if !ok {
		return sentinal_errors.ErrNotFound
	}
	c.Name = name
	c.AvatarRef = avatarRef
	c.UpdatedAt = updatedAt
	return nil
}

func (r *conversationRepository) UpdateLastMessage(_ context.Context, conversationID uuid.UUID, last conversation.LastMessage) error {
	defer r.s.lock()()
	c, ok := r.s.st.conversations[conversationID]
	if !ok {
		return nil
	}
	if c.LastMessage != nil && c.LastMessage.SentAt.After(last.SentAt) {
		return nil
	}
	c.LastMessage = &last
	return nil
}

func (r *conversationRepository) SoftDeleteForUser(_ context.Context, conversationID, userID uuid.UUID, _ time.Time) error {
	defer r.s.lock()()
	c, ok := r.s.st.conversations[conversationID]
	if !ok {
		return sentinal_errors.ErrNotFound
	}
	if !c.IsDeletedFor(userID) {
		c.DeletedFor = append(c.DeletedFor, userID)
	}
	return nil
}

func (r *conversationRepository) ClearDeletions(_ context.Context, conversationID uuid.UUID) error {
	defer r.s.lock()()
	if c, ok := r.s.st.conversations[conversationID]; ok {
		c.DeletedFor = nil
	}
	return nil
}
