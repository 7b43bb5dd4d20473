package repository

import (
	"context"
	"database/sql"
	"time"

	"sentinal-social/internal/domain/conversation"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

type conversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) ConversationRepository {
	return &conversationRepository{db: db}
}

const conversationColumns = `c.id, c.type, c.name, c.avatar_ref, c.direct_key, c.created_by,
        c.last_message_id, c.last_message_preview, c.last_message_sender, c.last_message_at,
        c.created_at, c.updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConversation(row rowScanner) (conversation.Conversation, error) {
	var (
		c        conversation.Conversation
		convType string
		lastID   uuid.NullUUID
		preview  sql.NullString
		lastBy   uuid.NullUUID
		lastAt   sql.NullTime
	)
	if err := row.Scan(
		&c.ID,
		&convType,
		&c.Name,
		&c.AvatarRef,
		&c.DirectKey,
		&c.CreatedBy,
		&lastID,
		&preview,
		&lastBy,
		&lastAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return conversation.Conversation{}, err
	}
	c.Type = conversation.Type(convType)
	if lastID.Valid {
		c.LastMessage = &conversation.LastMessage{
			MessageID: lastID.UUID,
			Preview:   preview.String,
			SenderID:  lastBy.UUID,
			SentAt:    lastAt.Time,
		}
	}
	return c, nil
}

func (r *conversationRepository) FindOrCreateDirect(ctx context.Context, c *conversation.Conversation) (conversation.Conversation, bool, error) {
	created := false
	err := WithTx(ctx, r.db, func(tx DBTX) error {
		res, err := tx.ExecContext(ctx, `
            INSERT INTO conversations (id, type, direct_key, created_by, created_at, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6)
            ON CONFLICT (direct_key) WHERE type = 'DIRECT' DO NOTHING
        `, c.ID, string(conversation.TypeDirect), c.DirectKey, c.CreatedBy, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		created = true
		for i := range c.Members {
			if err := insertMember(ctx, tx, &c.Members[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && !isUniqueViolation(err) {
		return conversation.Conversation{}, false, err
	}

	// The winner of a concurrent creation is visible once its insert commits.
	existing, err := r.GetDirectByKey(ctx, c.DirectKey.String)
	if err != nil {
		return conversation.Conversation{}, false, err
	}
	return existing, created, nil
}

func (r *conversationRepository) CreateGroup(ctx context.Context, c *conversation.Conversation) error {
	return WithTx(ctx, r.db, func(tx DBTX) error {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO conversations (id, type, name, avatar_ref, created_by, created_at, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7)
        `, c.ID, string(conversation.TypeGroup), c.Name, c.AvatarRef, c.CreatedBy, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return err
		}
		for i := range c.Members {
			if err := insertMember(ctx, tx, &c.Members[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertMember(ctx context.Context, db DBTX, m *conversation.Member) error {
	_, err := db.ExecContext(ctx, `
        INSERT INTO conversation_members (conversation_id, user_id, role, username, avatar_ref, joined_at)
        VALUES ($1,$2,$3,$4,$5,$6)
    `, m.ConversationID, m.UserID, string(m.Role), m.Username, m.AvatarRef, m.JoinedAt)
	return err
}

func (r *conversationRepository) GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations c WHERE c.id = $1`, id)
	c, err := scanConversation(row)
	if err != nil {
		return conversation.Conversation{}, notFoundIfNoRows(err)
	}
	if err := r.loadRelations(ctx, []*conversation.Conversation{&c}, true); err != nil {
		return conversation.Conversation{}, err
	}
	return c, nil
}

func (r *conversationRepository) GetDirectByKey(ctx context.Context, directKey string) (conversation.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+conversationColumns+` FROM conversations c
        WHERE c.type = 'DIRECT' AND c.direct_key = $1
    `, directKey)
	c, err := scanConversation(row)
	if err != nil {
		return conversation.Conversation{}, notFoundIfNoRows(err)
	}
	if err := r.loadRelations(ctx, []*conversation.Conversation{&c}, true); err != nil {
		return conversation.Conversation{}, err
	}
	return c, nil
}

func (r *conversationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]conversation.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+conversationColumns+`
        FROM conversations c
        JOIN conversation_members m ON m.conversation_id = c.id AND m.user_id = $1
        WHERE NOT EXISTS (
            SELECT 1 FROM conversation_deletions d
            WHERE d.conversation_id = c.id AND d.user_id = $1
        )
        ORDER BY GREATEST(c.updated_at, COALESCE(c.last_message_at, c.updated_at)) DESC, c.id
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []conversation.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ptrs := make([]*conversation.Conversation, len(out))
	for i := range out {
		ptrs[i] = &out[i]
	}
	if err := r.loadRelations(ctx, ptrs, false); err != nil {
		return nil, err
	}
	return out, nil
}

// loadRelations fills active members and, when history is set, the left
// members log and the per-user deletions.
func (r *conversationRepository) loadRelations(ctx context.Context, convs []*conversation.Conversation, history bool) error {
	if len(convs) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*conversation.Conversation, len(convs))
	ids := make([]uuid.UUID, 0, len(convs))
	for _, c := range convs {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}
	in := buildPlaceholders(1, len(ids))

	rows, err := r.db.QueryContext(ctx, `
        SELECT conversation_id, user_id, role, username, avatar_ref, joined_at
        FROM conversation_members
        WHERE conversation_id IN (`+in+`)
        ORDER BY joined_at ASC, user_id ASC
    `, uuidArgs(ids)...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			m    conversation.Member
			role string
		)
		if err := rows.Scan(&m.ConversationID, &m.UserID, &role, &m.Username, &m.AvatarRef, &m.JoinedAt); err != nil {
			rows.Close()
			return err
		}
		m.Role = conversation.Role(role)
		c := byID[m.ConversationID]
		c.Members = append(c.Members, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if !history {
		return nil
	}

	rows, err = r.db.QueryContext(ctx, `
        SELECT conversation_id, user_id, role, joined_at, left_at
        FROM conversation_left_members
        WHERE conversation_id IN (`+in+`)
        ORDER BY left_at ASC
    `, uuidArgs(ids)...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			l    conversation.LeftMember
			role string
		)
		if err := rows.Scan(&l.ConversationID, &l.UserID, &role, &l.JoinedAt, &l.LeftAt); err != nil {
			rows.Close()
			return err
		}
		l.Role = conversation.Role(role)
		c := byID[l.ConversationID]
		c.LeftMembers = append(c.LeftMembers, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx, `
        SELECT conversation_id, user_id FROM conversation_deletions
        WHERE conversation_id IN (`+in+`)
    `, uuidArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var convID, userID uuid.UUID
		if err := rows.Scan(&convID, &userID); err != nil {
			return err
		}
		c := byID[convID]
		c.DeletedFor = append(c.DeletedFor, userID)
	}
	return rows.Err()
}

func (r *conversationRepository) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM conversation_members WHERE conversation_id = $1 AND user_id = $2
        )
    `, conversationID, userID).Scan(&ok)
	return ok, err
}

func (r *conversationRepository) LockForUpdate(ctx context.Context, conversationID uuid.UUID) error {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, `SELECT id FROM conversations WHERE id = $1 FOR UPDATE`, conversationID).Scan(&id)
	return notFoundIfNoRows(err)
}

func (r *conversationRepository) AddMember(ctx context.Context, m *conversation.Member) error {
	res, err := r.db.ExecContext(ctx, `
        INSERT INTO conversation_members (conversation_id, user_id, role, username, avatar_ref, joined_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (conversation_id, user_id) DO NOTHING
    `, m.ConversationID, m.UserID, string(m.Role), m.Username, m.AvatarRef, m.JoinedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return sentinal_errors.ErrAlreadyExists
	}
	return nil
}

// RemoveMember moves the active row into the left members log in a single
// statement so a concurrent remove and leave cannot both succeed.
func (r *conversationRepository) RemoveMember(ctx context.Context, conversationID, userID uuid.UUID, leftAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
        WITH removed AS (
            DELETE FROM conversation_members
            WHERE conversation_id = $1 AND user_id = $2
            RETURNING conversation_id, user_id, role, joined_at
        )
        INSERT INTO conversation_left_members (conversation_id, user_id, role, joined_at, left_at)
        SELECT conversation_id, user_id, role, joined_at, $3 FROM removed
    `, conversationID, userID, leftAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return sentinal_errors.ErrNotFound
	}
	return nil
}

func (r *conversationRepository) UpdateMemberRole(ctx context.Context, conversationID, userID uuid.UUID, role conversation.Role) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE conversation_members SET role = $3
        WHERE conversation_id = $1 AND user_id = $2
    `, conversationID, userID, string(role))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return sentinal_errors.ErrNotFound
	}
	return nil
}

func (r *conversationRepository) UpdateInfo(ctx context.Context, conversationID uuid.UUID, name, avatarRef sql.NullString, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE conversations SET name = $2, avatar_ref = $3, updated_at = $4
        WHERE id = $1
    `, conversationID, name, avatarRef, updatedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return sentinal_errors.ErrNotFound
	}
	return nil
}

// UpdateLastMessage never moves the cached summary backwards in time, so
// replaying it is harmless.
func (r *conversationRepository) UpdateLastMessage(ctx context.Context, conversationID uuid.UUID, last conversation.LastMessage) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE conversations
        SET last_message_id = $2, last_message_preview = $3, last_message_sender = $4, last_message_at = $5
        WHERE id = $1 AND (last_message_at IS NULL OR last_message_at <= $5)
    `, conversationID, last.MessageID, last.Preview, last.SenderID, last.SentAt)
	return err
}

func (r *conversationRepository) SoftDeleteForUser(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO conversation_deletions (conversation_id, user_id, deleted_at)
        VALUES ($1,$2,$3)
        ON CONFLICT (conversation_id, user_id) DO NOTHING
    `, conversationID, userID, at)
	return err
}

func (r *conversationRepository) ClearDeletions(ctx context.Context, conversationID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversation_deletions WHERE conversation_id = $1`, conversationID)
	return err
}
