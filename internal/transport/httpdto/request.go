package httpdto

import (
	"time"

	"sentinal-social/internal/services"
)

type RequestDTO struct {
	ID           string  `json:"id"`
	Sender       UserDTO `json:"sender"`
	Receiver     UserDTO `json:"receiver"`
	Status       string  `json:"status"`
	MessageCount int     `json:"message_count"`
	CreatedAt    string  `json:"created_at"`
	RespondedAt  *string `json:"responded_at,omitempty"`
}

type ListRequestsResponse struct {
	Requests []RequestDTO `json:"requests"`
}

type AcceptRequestResponse struct {
	Request      RequestDTO       `json:"request"`
	Conversation *ConversationDTO `json:"conversation,omitempty"`
}

func FromRequestView(v services.RequestView) RequestDTO {
	r := v.Request
	dto := RequestDTO{
		ID:           r.ID.String(),
		Sender:       FromUserView(v.Sender),
		Receiver:     FromUserView(v.Receiver),
		Status:       string(r.Status),
		MessageCount: len(r.MessageIDs),
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
	if r.RespondedAt.Valid {
		s := r.RespondedAt.Time.Format(time.RFC3339)
		dto.RespondedAt = &s
	}
	return dto
}

func FromRequestViews(views []services.RequestView) []RequestDTO {
	out := make([]RequestDTO, 0, len(views))
	for _, v := range views {
		out = append(out, FromRequestView(v))
	}
	return out
}
