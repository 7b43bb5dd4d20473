package memory

import (
	"context"
	"sort"
	"time"

	"sentinal-social/internal/domain/message"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

type messageRepository struct {
	s *Store
}

func (r *messageRepository) Create(_ context.Context, m *message.Message) error {
	defer r.s.lock()()
	st := r.s.st
	if _, ok := st.messages[m.ID]; ok {
		return sentinal_errors.ErrAlreadyExists
	}
	stored := cloneMessage(m)
	if u, ok := stored.Route.(message.Unrouted); ok {
		stored.ReceiverID = uuid.NullUUID{UUID: u.ReceiverID, Valid: true}
	}
	st.messages[m.ID] = &storedMessage{msg: stored, seq: st.next()}
	return nil
}

func (r *messageRepository) GetByID(_ context.Context, id uuid.UUID) (message.Message, error) {
	defer r.s.lock()()
	m, ok := r.s.st.messages[id]
	if !ok {
		return message.Message{}, sentinal_errors.ErrNotFound
	}
	return cloneMessage(&m.msg), nil
}

func (r *messageRepository) ListByIDs(_ context.Context, ids []uuid.UUID) ([]message.Message, error) {
	defer r.s.lock()()
	var found []*storedMessage
	for _, id := range ids {
		if m, ok := r.s.st.messages[id]; ok {
			found = append(found, m)
		}
	}
	return collect(found, true), nil
}

func (r *messageRepository) ListForConversation(_ context.Context, conversationID, viewerID uuid.UUID, page, limit int) ([]message.Message, int64, error) {
	defer r.s.lock()()
	found := r.filter(func(m *message.Message) bool {
		cid, ok := m.ConversationID()
		return ok && cid == conversationID && !m.IsDeletedFor(viewerID)
	})
	all := collect(found, false)
	total := int64(len(all))

	start := (page - 1) * limit
	if start >= len(all) {
		return []message.Message{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *messageRepository) ListUnroutedBetween(_ context.Context, a, b uuid.UUID) ([]message.Message, error) {
	defer r.s.lock()()
	found := r.filter(func(m *message.Message) bool {
		u, ok := m.Route.(message.Unrouted)
		if !ok {
			return false
		}
		return (u.SenderID == a && u.ReceiverID == b) || (u.SenderID == b && u.ReceiverID == a)
	})
	return collect(found, true), nil
}

func (r *messageRepository) AttachToConversation(_ context.Context, ids []uuid.UUID, conversationID uuid.UUID) (int64, error) {
	defer r.s.lock()()
	var n int64
	for _, id := range ids {
		m, ok := r.s.st.messages[id]
		if !ok || m.msg.IsRouted() {
			continue
		}
		m.msg.Route = message.Routed{ConversationID: conversationID}
		n++
	}
	return n, nil
}

func (r *messageRepository) MarkConversationRead(_ context.Context, conversationID, readerID uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	defer r.s.lock()()
	found := r.filter(func(m *message.Message) bool {
		cid, ok := m.ConversationID()
		return ok && cid == conversationID
	})
	return markRead(found, readerID, at), nil
}

func (r *messageRepository) MarkPairRead(_ context.Context, senderID, readerID uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	defer r.s.lock()()
	found := r.filter(func(m *message.Message) bool {
		u, ok := m.Route.(message.Unrouted)
		return ok && u.SenderID == senderID && u.ReceiverID == readerID
	})
	return markRead(found, readerID, at), nil
}

func markRead(found []*storedMessage, readerID uuid.UUID, at time.Time) []uuid.UUID {
	sortBySeq(found, true)
	var marked []uuid.UUID
	for _, m := range found {
		if m.msg.IsReadBy(readerID) {
			continue
		}
		m.msg.ReadBy = append(m.msg.ReadBy, message.Receipt{UserID: readerID, ReadAt: at})
		marked = append(marked, m.msg.ID)
	}
	return marked
}

func (r *messageRepository) UnreadCount(_ context.Context, conversationID, userID uuid.UUID) (int64, error) {
	defer r.s.lock()()
	found := r.filter(func(m *message.Message) bool {
		cid, ok := m.ConversationID()
		return ok && cid == conversationID && !m.IsReadBy(userID) && !m.IsDeletedFor(userID)
	})
	return int64(len(found)), nil
}

func (r *messageRepository) SoftDelete(_ context.Context, messageID, userID uuid.UUID, at time.Time) error {
	defer r.s.lock()()
	m, ok := r.s.st.messages[messageID]
	if !ok {
		return sentinal_errors.ErrNotFound
	}
	if !m.msg.IsDeletedFor(userID) {
		m.msg.DeletedBy = append(m.msg.DeletedBy, message.Deletion{UserID: userID, DeletedAt: at})
	}
	return nil
}

func (r *messageRepository) SoftDeleteConversation(_ context.Context, conversationID, userID uuid.UUID, at time.Time) error {
	defer r.s.lock()()
	found := r.filter(func(m *message.Message) bool {
		cid, ok := m.ConversationID()
		return ok && cid == conversationID && !m.IsDeletedFor(userID)
	})
	for _, m := range found {
		m.msg.DeletedBy = append(m.msg.DeletedBy, message.Deletion{UserID: userID, DeletedAt: at})
	}
	return nil
}

func (r *messageRepository) filter(keep func(*message.Message) bool) []*storedMessage {
	var out []*storedMessage
	for _, m := range r.s.st.messages {
		if keep(&m.msg) {
			out = append(out, m)
		}
	}
	return out
}

// sortBySeq orders by creation time, falling back to insertion order.
func sortBySeq(msgs []*storedMessage, ascending bool) {
	sort.Slice(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		if !a.msg.CreatedAt.Equal(b.msg.CreatedAt) {
			return a.msg.CreatedAt.Before(b.msg.CreatedAt) == ascending
		}
		return (a.seq < b.seq) == ascending
	})
}

func collect(found []*storedMessage, ascending bool) []message.Message {
	sortBySeq(found, ascending)
	out := make([]message.Message, 0, len(found))
	for _, m := range found {
		out = append(out, cloneMessage(&m.msg))
	}
	return out
}
