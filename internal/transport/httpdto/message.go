package httpdto

import (
	"time"

	"sentinal-social/internal/services"
)

type SendMessageRequest struct {
	Type    string `json:"type"`
	Content string `json:"content" binding:"required"`
}

type ReplyRequest struct {
	ReplyToID string `json:"reply_to_id" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

// SendDirectRequest addresses a user rather than a conversation and goes
// through the message request gate.
type SendDirectRequest struct {
	ReceiverID string `json:"receiver_id" binding:"required"`
	Type       string `json:"type"`
	Content    string `json:"content" binding:"required"`
}

type MessageDTO struct {
	ID             string   `json:"id"`
	ConversationID *string  `json:"conversation_id"`
	SenderID       string   `json:"sender_id"`
	ReceiverID     *string  `json:"receiver_id,omitempty"`
	Type           string   `json:"type"`
	Content        string   `json:"content"`
	MediaURL       *string  `json:"media_url,omitempty"`
	ReplyToID      *string  `json:"reply_to_id,omitempty"`
	ReadBy         []string `json:"read_by"`
	CreatedAt      string   `json:"created_at"`
}

type ListMessagesResponse struct {
	Messages []MessageDTO `json:"messages"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	Limit    int          `json:"limit"`
}

type SendDirectResponse struct {
	Message      MessageDTO       `json:"message"`
	Conversation *ConversationDTO `json:"conversation,omitempty"`
	Request      *RequestDTO      `json:"request,omitempty"`
}

type MarkReadResponse struct {
	MessageIDs []string `json:"message_ids"`
}

func FromMessageView(v services.MessageView) MessageDTO {
	m := v.Message
	dto := MessageDTO{
		ID:        m.ID.String(),
		SenderID:  m.SenderID.String(),
		Type:      string(m.Type),
		Content:   m.Content,
		MediaURL:  v.MediaURL,
		ReadBy:    make([]string, 0, len(m.ReadBy)),
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
	if id, ok := m.ConversationID(); ok {
		s := id.String()
		dto.ConversationID = &s
	}
	if m.ReceiverID.Valid {
		s := m.ReceiverID.UUID.String()
		dto.ReceiverID = &s
	}
	if m.ReplyToID.Valid {
		s := m.ReplyToID.UUID.String()
		dto.ReplyToID = &s
	}
	for _, r := range m.ReadBy {
		dto.ReadBy = append(dto.ReadBy, r.UserID.String())
	}
	return dto
}

func FromMessageViews(views []services.MessageView) []MessageDTO {
	out := make([]MessageDTO, 0, len(views))
	for _, v := range views {
		out = append(out, FromMessageView(v))
	}
	return out
}
