package repository

import (
	"context"
	"time"

	"sentinal-social/internal/domain/message"

	"github.com/google/uuid"
)

type messageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) MessageRepository {
	return &messageRepository{db: db}
}

const messageColumns = `m.id, m.conversation_id, m.sender_id, m.receiver_id, m.type, m.content, m.reply_to_id, m.created_at`

func scanMessage(row rowScanner) (message.Message, error) {
	var (
		m       message.Message
		convID  uuid.NullUUID
		msgType string
	)
	if err := row.Scan(
		&m.ID,
		&convID,
		&m.SenderID,
		&m.ReceiverID,
		&msgType,
		&m.Content,
		&m.ReplyToID,
		&m.CreatedAt,
	); err != nil {
		return message.Message{}, err
	}
	m.Type = message.ContentType(msgType)
	if convID.Valid {
		m.Route = message.Routed{ConversationID: convID.UUID}
	} else {
		m.Route = message.Unrouted{SenderID: m.SenderID, ReceiverID: m.ReceiverID.UUID}
	}
	return m, nil
}

func (r *messageRepository) Create(ctx context.Context, m *message.Message) error {
	var convID uuid.NullUUID
	receiverID := m.ReceiverID
	switch route := m.Route.(type) {
	case message.Routed:
		convID = uuid.NullUUID{UUID: route.ConversationID, Valid: true}
	case message.Unrouted:
		receiverID = uuid.NullUUID{UUID: route.ReceiverID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO messages (id, conversation_id, sender_id, receiver_id, type, content, reply_to_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    `,
		m.ID,
		convID,
		m.SenderID,
		receiverID,
		string(m.Type),
		m.Content,
		m.ReplyToID,
		m.CreatedAt,
	)
	return err
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages m WHERE m.id = $1`, id)
	m, err := scanMessage(row)
	if err != nil {
		return message.Message{}, notFoundIfNoRows(err)
	}
	msgs := []message.Message{m}
	if err := r.loadState(ctx, msgs, true); err != nil {
		return message.Message{}, err
	}
	return msgs[0], nil
}

func (r *messageRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]message.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, `
        SELECT `+messageColumns+` FROM messages m
        WHERE m.id IN (`+buildPlaceholders(1, len(ids))+`)
        ORDER BY m.created_at ASC, m.id ASC
    `, uuidArgs(ids)...)
}

func (r *messageRepository) ListForConversation(ctx context.Context, conversationID, viewerID uuid.UUID, page, limit int) ([]message.Message, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM messages m
        WHERE m.conversation_id = $1
          AND NOT EXISTS (SELECT 1 FROM message_deletions d WHERE d.message_id = m.id AND d.user_id = $2)
    `, conversationID, viewerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	msgs, err := r.query(ctx, `
        SELECT `+messageColumns+` FROM messages m
        WHERE m.conversation_id = $1
          AND NOT EXISTS (SELECT 1 FROM message_deletions d WHERE d.message_id = m.id AND d.user_id = $2)
        ORDER BY m.created_at DESC, m.id DESC
        LIMIT $3 OFFSET $4
    `, conversationID, viewerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

func (r *messageRepository) ListUnroutedBetween(ctx context.Context, a, b uuid.UUID) ([]message.Message, error) {
	return r.query(ctx, `
        SELECT `+messageColumns+` FROM messages m
        WHERE m.conversation_id IS NULL
          AND ((m.sender_id = $1 AND m.receiver_id = $2) OR (m.sender_id = $2 AND m.receiver_id = $1))
        ORDER BY m.created_at ASC, m.id ASC
    `, a, b)
}

func (r *messageRepository) query(ctx context.Context, q string, args ...interface{}) ([]message.Message, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []message.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadState(ctx, msgs, false); err != nil {
		return nil, err
	}
	return msgs, nil
}

// loadState attaches read receipts and, when deletions is set, the deleted-by
// set to msgs in place.
func (r *messageRepository) loadState(ctx context.Context, msgs []message.Message, deletions bool) error {
	if len(msgs) == 0 {
		return nil
	}
	index := make(map[uuid.UUID]int, len(msgs))
	ids := make([]uuid.UUID, len(msgs))
	for i := range msgs {
		index[msgs[i].ID] = i
		ids[i] = msgs[i].ID
	}
	in := buildPlaceholders(1, len(ids))

	rows, err := r.db.QueryContext(ctx, `
        SELECT message_id, user_id, read_at FROM message_reads
        WHERE message_id IN (`+in+`)
        ORDER BY read_at ASC
    `, uuidArgs(ids)...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			msgID uuid.UUID
			rc    message.Receipt
		)
		if err := rows.Scan(&msgID, &rc.UserID, &rc.ReadAt); err != nil {
			rows.Close()
			return err
		}
		m := &msgs[index[msgID]]
		m.ReadBy = append(m.ReadBy, rc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if !deletions {
		return nil
	}

	rows, err = r.db.QueryContext(ctx, `
        SELECT message_id, user_id, deleted_at FROM message_deletions
        WHERE message_id IN (`+in+`)
    `, uuidArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			msgID uuid.UUID
			d     message.Deletion
		)
		if err := rows.Scan(&msgID, &d.UserID, &d.DeletedAt); err != nil {
			return err
		}
		m := &msgs[index[msgID]]
		m.DeletedBy = append(m.DeletedBy, d)
	}
	return rows.Err()
}

func (r *messageRepository) AttachToConversation(ctx context.Context, ids []uuid.UUID, conversationID uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := append([]interface{}{conversationID}, uuidArgs(ids)...)
	res, err := r.db.ExecContext(ctx, `
        UPDATE messages SET conversation_id = $1
        WHERE conversation_id IS NULL AND id IN (`+buildPlaceholders(2, len(ids))+`)
    `, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *messageRepository) MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	return r.markRead(ctx, `
        INSERT INTO message_reads (message_id, user_id, read_at)
        SELECT m.id, $2, $3 FROM messages m
        WHERE m.conversation_id = $1 AND m.sender_id <> $2
        ON CONFLICT (message_id, user_id) DO NOTHING
        RETURNING message_id
    `, conversationID, readerID, at)
}

func (r *messageRepository) MarkPairRead(ctx context.Context, senderID, readerID uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	return r.markRead(ctx, `
        INSERT INTO message_reads (message_id, user_id, read_at)
        SELECT m.id, $2, $3 FROM messages m
        WHERE m.conversation_id IS NULL AND m.sender_id = $1 AND m.receiver_id = $2
        ON CONFLICT (message_id, user_id) DO NOTHING
        RETURNING message_id
    `, senderID, readerID, at)
}

func (r *messageRepository) markRead(ctx context.Context, q string, args ...interface{}) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *messageRepository) UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM messages m
        WHERE m.conversation_id = $1 AND m.sender_id <> $2
          AND NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id = m.id AND r.user_id = $2)
          AND NOT EXISTS (SELECT 1 FROM message_deletions d WHERE d.message_id = m.id AND d.user_id = $2)
    `, conversationID, userID).Scan(&n)
	return n, err
}

func (r *messageRepository) SoftDelete(ctx context.Context, messageID, userID uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO message_deletions (message_id, user_id, deleted_at)
        VALUES ($1,$2,$3)
        ON CONFLICT (message_id, user_id) DO NOTHING
    `, messageID, userID, at)
	return err
}

func (r *messageRepository) SoftDeleteConversation(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO message_deletions (message_id, user_id, deleted_at)
        SELECT m.id, $2, $3 FROM messages m WHERE m.conversation_id = $1
        ON CONFLICT (message_id, user_id) DO NOTHING
    `, conversationID, userID, at)
	return err
}
