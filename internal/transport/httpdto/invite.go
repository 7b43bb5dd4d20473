package httpdto

import (
	"time"

	"sentinal-social/internal/domain/invite"
)

type CreateInviteRequest struct {
	MaxUses   *int       `json:"max_uses"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type SetInviteActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type InviteDTO struct {
	ID             string  `json:"id"`
	ConversationID string  `json:"conversation_id"`
	Token          string  `json:"token"`
	CreatedBy      string  `json:"created_by"`
	CreatedAt      string  `json:"created_at"`
	ExpiresAt      *string `json:"expires_at,omitempty"`
	MaxUses        *int    `json:"max_uses,omitempty"`
	UseCount       int     `json:"use_count"`
	Active         bool    `json:"active"`
	RevokedBy      *string `json:"revoked_by,omitempty"`
	RevokedAt      *string `json:"revoked_at,omitempty"`
}

func FromInvite(l invite.Link) InviteDTO {
	dto := InviteDTO{
		ID:             l.ID.String(),
		ConversationID: l.ConversationID.String(),
		Token:          l.Token,
		CreatedBy:      l.CreatedBy.String(),
		CreatedAt:      l.CreatedAt.Format(time.RFC3339),
		UseCount:       l.UseCount,
		Active:         l.Active,
	}
	if l.ExpiresAt.Valid {
		s := l.ExpiresAt.Time.Format(time.RFC3339)
		dto.ExpiresAt = &s
	}
	if l.MaxUses.Valid {
		n := int(l.MaxUses.Int32)
		dto.MaxUses = &n
	}
	if l.RevokedBy.Valid {
		s := l.RevokedBy.UUID.String()
		dto.RevokedBy = &s
	}
	if l.RevokedAt.Valid {
		s := l.RevokedAt.Time.Format(time.RFC3339)
		dto.RevokedAt = &s
	}
	return dto
}
