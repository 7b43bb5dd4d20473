package httpdto

import (
	"time"

	"sentinal-social/internal/services"
)

type CreateDirectRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type CreateGroupRequest struct {
	Name         string   `json:"name" binding:"required"`
	Participants []string `json:"participants" binding:"required"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// UpdateGroupRequest leaves omitted fields unchanged. An empty avatar_ref
// clears the avatar.
type UpdateGroupRequest struct {
	Name      *string `json:"name"`
	AvatarRef *string `json:"avatar_ref"`
}

type UserDTO struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
	Verified  bool    `json:"verified"`
}

type MemberDTO struct {
	UserDTO
	Role     string `json:"role"`
	JoinedAt string `json:"joined_at"`
}

type LastMessageDTO struct {
	MessageID string `json:"message_id"`
	Preview   string `json:"preview"`
	SenderID  string `json:"sender_id"`
	SentAt    string `json:"sent_at"`
}

type ConversationDTO struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Name        *string         `json:"name,omitempty"`
	AvatarURL   *string         `json:"avatar_url,omitempty"`
	CreatedBy   string          `json:"created_by"`
	Members     []MemberDTO     `json:"members"`
	Admins      []string        `json:"admins,omitempty"`
	LastMessage *LastMessageDTO `json:"last_message,omitempty"`
	UnreadCount int64           `json:"unread_count"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

type ListConversationsResponse struct {
	Conversations []ConversationDTO `json:"conversations"`
}

func FromUserView(v services.UserView) UserDTO {
	return UserDTO{
		ID:        v.ID.String(),
		Username:  v.Username,
		AvatarURL: v.AvatarURL,
		Verified:  v.Verified,
	}
}

func FromConversationView(v services.ConversationView) ConversationDTO {
	c := v.Conversation
	dto := ConversationDTO{
		ID:          c.ID.String(),
		Type:        string(c.Type),
		AvatarURL:   v.AvatarURL,
		CreatedBy:   c.CreatedBy.String(),
		Members:     make([]MemberDTO, 0, len(v.Members)),
		UnreadCount: v.UnreadCount,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.Format(time.RFC3339),
	}
	if c.Name.Valid {
		name := c.Name.String
		dto.Name = &name
	}
	for _, m := range v.Members {
		dto.Members = append(dto.Members, MemberDTO{
			UserDTO:  FromUserView(m.UserView),
			Role:     string(m.Role),
			JoinedAt: m.JoinedAt.Format(time.RFC3339),
		})
	}
	if c.IsGroup() {
		for _, id := range c.AdminIDs() {
			dto.Admins = append(dto.Admins, id.String())
		}
	}
	if c.LastMessage != nil {
		dto.LastMessage = &LastMessageDTO{
			MessageID: c.LastMessage.MessageID.String(),
			Preview:   c.LastMessage.Preview,
			SenderID:  c.LastMessage.SenderID.String(),
			SentAt:    c.LastMessage.SentAt.Format(time.RFC3339),
		}
	}
	return dto
}

func FromConversationViews(views []services.ConversationView) []ConversationDTO {
	out := make([]ConversationDTO, 0, len(views))
	for _, v := range views {
		out = append(out, FromConversationView(v))
	}
	return out
}
