package memory

import (
	"context"
	"database/sql"
	"time"

	"sentinal-social/internal/domain/invite"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

type inviteRepository struct {
	s *Store
}

func (r *inviteRepository) Create(_ context.Context, l *invite.Link) error {
	defer r.s.lock()()
	st := r.s.st
	for _, sl := range st.invites {
		if sl.link.Token == l.Token {
			return sentinal_errors.ErrAlreadyExists
		}
		if l.Active && sl.link.Active && sl.link.ConversationID == l.ConversationID {
			return sentinal_errors.ErrAlreadyExists
		}
	}
	st.invites[l.ID] = &storedLink{link: *l, seq: st.next()}
	return nil
}

func (r *inviteRepository) RevokeActive(_ context.Context, conversationID, revokedBy uuid.UUID, at time.Time) (int64, error) {
	defer r.s.lock()()
	var n int64
	for _, sl := range r.s.st.invites {
		if sl.link.ConversationID != conversationID || !sl.link.Active {
			continue
		}
		sl.link.Active = false
		sl.link.RevokedBy = uuid.NullUUID{UUID: revokedBy, Valid: true}
		sl.link.RevokedAt = sql.NullTime{Time: at, Valid: true}
		n++
	}
	return n, nil
}

func (r *inviteRepository) GetLatest(_ context.Context, conversationID uuid.UUID) (invite.Link, error) {
	defer r.s.lock()()
	sl := r.latest(conversationID)
	if sl == nil {
		return invite.Link{}, sentinal_errors.ErrNotFound
	}
	return sl.link, nil
}

func (r *inviteRepository) latest(conversationID uuid.UUID) *storedLink {
	var best *storedLink
	for _, sl := range r.s.st.invites {
		if sl.link.ConversationID != conversationID {
			continue
		}
		if best == nil ||
			sl.link.CreatedAt.After(best.link.CreatedAt) ||
			(sl.link.CreatedAt.Equal(best.link.CreatedAt) && sl.seq > best.seq) {
			best = sl
		}
	}
	return best
}

func (r *inviteRepository) GetByToken(_ context.Context, token string) (invite.Link, error) {
	defer r.s.lock()()
	for _, sl := range r.s.st.invites {
		if sl.link.Token == token {
			return sl.link, nil
		}
	}
	return invite.Link{}, sentinal_errors.ErrNotFound
}

func (r *inviteRepository) SetActive(_ context.Context, id uuid.UUID, active bool, actorID uuid.UUID, at time.Time) error {
	defer r.s.lock()()
	sl, ok := r.s.st.invites[id]
	if !ok {
		return sentinal_errors.ErrNotFound
	}
	if active {
		for otherID, other := range r.s.st.invites {
			if otherID != id && other.link.Active && other.link.ConversationID == sl.link.ConversationID {
				return sentinal_errors.ErrConflict
			}
		}
		sl.link.Active = true
		sl.link.RevokedBy = uuid.NullUUID{}
		sl.link.RevokedAt = sql.NullTime{}
		return nil
	}
	sl.link.Active = false
	sl.link.RevokedBy = uuid.NullUUID{UUID: actorID, Valid: true}
	sl.link.RevokedAt = sql.NullTime{Time: at, Valid: true}
	return nil
}

func (r *inviteRepository) Deactivate(_ context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	if sl, ok := r.s.st.invites[id]; ok {
		sl.link.Active = false
	}
	return nil
}

func (r *inviteRepository) IncrementUse(_ context.Context, id uuid.UUID) (invite.Link, bool, error) {
	defer r.s.lock()()
	sl, ok := r.s.st.invites[id]
	if !ok || !sl.link.Active || sl.link.IsExhausted() {
		return invite.Link{}, false, nil
	}
	sl.link.UseCount++
	if sl.link.IsExhausted() {
		sl.link.Active = false
	}
	return sl.link, true, nil
}
