package conversation

import (
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeDirect Type = "DIRECT"
	TypeGroup  Type = "GROUP"
)

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// AvatarClear passed as a group avatar update removes the avatar, while a nil
// update leaves it untouched.
const AvatarClear = ""

// Conversation represents the conversations table
type Conversation struct {
	ID          uuid.UUID
	Type        Type
	Name        sql.NullString
	AvatarRef   sql.NullString
	DirectKey   sql.NullString
	CreatedBy   uuid.UUID
	LastMessage *LastMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Relationships
	Members     []Member // active members, ordered by join time
	LeftMembers []LeftMember
	DeletedFor  []uuid.UUID
}

// Member represents an active row of conversation_members
type Member struct {
	ConversationID uuid.UUID
	UserID         uuid.UUID
	Role           Role
	Username       string
	AvatarRef      sql.NullString
	JoinedAt       time.Time
	LeftAt         sql.NullTime
}

// LeftMember represents conversation_left_members
type LeftMember struct {
	ConversationID uuid.UUID
	UserID         uuid.UUID
	Role           Role
	JoinedAt       time.Time
	LeftAt         time.Time
}

type LastMessage struct {
	MessageID uuid.UUID
	Preview   string
	SenderID  uuid.UUID
	SentAt    time.Time
}

// DirectKey is the canonical uniqueness key of the direct conversation between
// two users; it does not depend on argument order.
func DirectKey(a, b uuid.UUID) string {
	ids := []string{a.String(), b.String()}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

func (c *Conversation) IsGroup() bool {
	return c.Type == TypeGroup
}

func (c *Conversation) IsDirect() bool {
	return c.Type == TypeDirect
}

func (c *Conversation) Member(userID uuid.UUID) (Member, bool) {
	for _, m := range c.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

func (c *Conversation) IsActiveMember(userID uuid.UUID) bool {
	_, ok := c.Member(userID)
	return ok
}

func (c *Conversation) IsAdmin(userID uuid.UUID) bool {
	m, ok := c.Member(userID)
	return ok && m.Role == RoleAdmin
}

func (c *Conversation) MemberIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Members))
	for _, m := range c.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// AdminIDs is always a subset of MemberIDs.
func (c *Conversation) AdminIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, m := range c.Members {
		if m.Role == RoleAdmin {
			ids = append(ids, m.UserID)
		}
	}
	return ids
}

// OtherMember returns the counterpart of userID in a direct conversation.
func (c *Conversation) OtherMember(userID uuid.UUID) (uuid.UUID, bool) {
	if !c.IsDirect() {
		return uuid.Nil, false
	}
	for _, m := range c.Members {
		if m.UserID != userID {
			return m.UserID, true
		}
	}
	return uuid.Nil, false
}

func (c *Conversation) IsDeletedFor(userID uuid.UUID) bool {
	for _, id := range c.DeletedFor {
		if id == userID {
			return true
		}
	}
	return false
}

// SuccessorAdmin picks the member promoted when leaving is the last admin: the
// longest standing non-admin. ok is false when leaving does not strip the group
// of its last admin or nobody is left to promote.
func (c *Conversation) SuccessorAdmin(leaving uuid.UUID) (uuid.UUID, bool) {
	if !c.IsAdmin(leaving) {
		return uuid.Nil, false
	}
	for _, id := range c.AdminIDs() {
		if id != leaving {
			return uuid.Nil, false
		}
	}

	var candidate *Member
	for i := range c.Members {
		m := &c.Members[i]
		if m.UserID == leaving || m.Role == RoleAdmin {
			continue
		}
		if candidate == nil || m.JoinedAt.Before(candidate.JoinedAt) {
			candidate = m
		}
	}
	if candidate == nil {
		return uuid.Nil, false
	}
	return candidate.UserID, true
}

// LastActivity is the ordering key used by conversation lists.
func (c *Conversation) LastActivity() time.Time {
	if c.LastMessage != nil && c.LastMessage.SentAt.After(c.UpdatedAt) {
		return c.LastMessage.SentAt
	}
	return c.UpdatedAt
}
