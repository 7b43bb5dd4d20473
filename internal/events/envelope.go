package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Envelope struct {
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(eventType, aggregateType string, aggregateID uuid.UUID, occurredAt time.Time, payload interface{}) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID.String(),
		OccurredAt:    occurredAt,
		Payload:       raw,
	}, nil
}

type MessagePayload struct {
	MessageID      uuid.UUID     `json:"message_id"`
	ConversationID uuid.NullUUID `json:"conversation_id"`
	SenderID       uuid.UUID     `json:"sender_id"`
	ReceiverID     uuid.NullUUID `json:"receiver_id"`
	Type           string        `json:"type"`
	Content        string        `json:"content"`
	MediaURL       *string       `json:"media_url,omitempty"`
	ReplyToID      uuid.NullUUID `json:"reply_to_id"`
	CreatedAt      time.Time     `json:"created_at"`
}

type ReadReceiptPayload struct {
	ConversationID uuid.NullUUID `json:"conversation_id"`
	ReaderID       uuid.UUID     `json:"reader_id"`
	MessageIDs     []uuid.UUID   `json:"message_ids"`
	ReadAt         time.Time     `json:"read_at"`
}

type TypingPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	Typing         bool      `json:"typing"`
}

type ConversationUpdatePayload struct {
	ConversationID uuid.UUID     `json:"conversation_id"`
	ActorID        uuid.UUID     `json:"actor_id"`
	TargetID       uuid.NullUUID `json:"target_id"`
	Name           *string       `json:"name,omitempty"`
	AvatarRef      *string       `json:"avatar_ref,omitempty"`
	Role           string        `json:"role,omitempty"`
}

type RequestPayload struct {
	RequestID      uuid.UUID     `json:"request_id"`
	SenderID       uuid.UUID     `json:"sender_id"`
	ReceiverID     uuid.UUID     `json:"receiver_id"`
	Status         string        `json:"status"`
	ConversationID uuid.NullUUID `json:"conversation_id"`
}
