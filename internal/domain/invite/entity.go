package invite

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Link represents conversation_invite_links
type Link struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Token          string
	CreatedBy      uuid.UUID
	CreatedAt      time.Time
	ExpiresAt      sql.NullTime
	MaxUses        sql.NullInt32
	UseCount       int
	Active         bool
	RevokedBy      uuid.NullUUID
	RevokedAt      sql.NullTime
}

func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt.Valid && !now.Before(l.ExpiresAt.Time)
}

func (l *Link) IsExhausted() bool {
	return l.MaxUses.Valid && l.UseCount >= int(l.MaxUses.Int32)
}

// Usable reports whether a join through this link may proceed.
func (l *Link) Usable(now time.Time) bool {
	return l.Active && !l.IsExpired(now) && !l.IsExhausted()
}
