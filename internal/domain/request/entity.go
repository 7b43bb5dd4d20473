package request

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
	StatusIgnored  Status = "IGNORED"
)

func (s Status) IsTerminal() bool {
	return s != StatusPending
}

// MessageRequest gates first contact between two users who are not connected.
type MessageRequest struct {
	ID          uuid.UUID
	SenderID    uuid.UUID
	ReceiverID  uuid.UUID
	Status      Status
	MessageIDs  []uuid.UUID // unrouted messages awaiting migration, in send order
	CreatedAt   time.Time
	RespondedAt sql.NullTime
}

func (r *MessageRequest) IsPending() bool {
	return r.Status == StatusPending
}

// IsParty reports whether userID is either end of the request.
func (r *MessageRequest) IsParty(userID uuid.UUID) bool {
	return r.SenderID == userID || r.ReceiverID == userID
}
