package message

import (
	"time"

	"github.com/google/uuid"
)

type ContentType string

const (
	ContentText      ContentType = "TEXT"
	ContentImage     ContentType = "IMAGE"
	ContentVideo     ContentType = "VIDEO"
	ContentAudio     ContentType = "AUDIO"
	ContentPostShare ContentType = "POST_SHARE"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContentText, ContentImage, ContentVideo, ContentAudio, ContentPostShare:
		return true
	}
	return false
}

// IsMedia reports whether the content is an opaque media reference.
func (t ContentType) IsMedia() bool {
	return t == ContentImage || t == ContentVideo || t == ContentAudio
}

// Route tells where a message lives: inside a conversation, or held between a
// sender and receiver until a message request is accepted.
type Route interface {
	isRoute()
}

type Routed struct {
	ConversationID uuid.UUID
}

type Unrouted struct {
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
}

func (Routed) isRoute()   {}
func (Unrouted) isRoute() {}

// Message represents the messages table
type Message struct {
	ID         uuid.UUID
	Route      Route
	SenderID   uuid.UUID
	ReceiverID uuid.NullUUID // direct messages only
	Type       ContentType
	Content    string
	ReplyToID  uuid.NullUUID
	ReadBy     []Receipt
	DeletedBy  []Deletion
	CreatedAt  time.Time
}

// Receipt represents message_reads
type Receipt struct {
	UserID uuid.UUID
	ReadAt time.Time
}

// Deletion represents message_deletions
type Deletion struct {
	UserID    uuid.UUID
	DeletedAt time.Time
}

// ConversationID returns the conversation the message is routed to.
func (m *Message) ConversationID() (uuid.UUID, bool) {
	if r, ok := m.Route.(Routed); ok {
		return r.ConversationID, true
	}
	return uuid.Nil, false
}

func (m *Message) IsRouted() bool {
	_, ok := m.ConversationID()
	return ok
}

// IsReadBy treats the sender as having always read their own message.
func (m *Message) IsReadBy(userID uuid.UUID) bool {
	if m.SenderID == userID {
		return true
	}
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

func (m *Message) IsDeletedFor(userID uuid.UUID) bool {
	for _, d := range m.DeletedBy {
		if d.UserID == userID {
			return true
		}
	}
	return false
}

// Preview is the text cached as a conversation's last message summary.
func (m *Message) Preview() string {
	switch m.Type {
	case ContentText:
		const max = 120
		runes := []rune(m.Content)
		if len(runes) > max {
			return string(runes[:max])
		}
		return m.Content
	case ContentImage:
		return "Sent a photo"
	case ContentVideo:
		return "Sent a video"
	case ContentAudio:
		return "Sent a voice message"
	case ContentPostShare:
		return "Shared a post"
	}
	return ""
}
