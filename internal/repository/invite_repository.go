package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sentinal-social/internal/domain/invite"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

type inviteRepository struct {
	db DBTX
}

func NewInviteRepository(db DBTX) InviteRepository {
	return &inviteRepository{db: db}
}

const inviteColumns = `id, conversation_id, token, created_by, created_at, expires_at, max_uses, use_count, active, revoked_by, revoked_at`

func scanInvite(row rowScanner) (invite.Link, error) {
	var l invite.Link
	err := row.Scan(
		&l.ID,
		&l.ConversationID,
		&l.Token,
		&l.CreatedBy,
		&l.CreatedAt,
		&l.ExpiresAt,
		&l.MaxUses,
		&l.UseCount,
		&l.Active,
		&l.RevokedBy,
		&l.RevokedAt,
	)
	return l, err
}

func (r *inviteRepository) Create(ctx context.Context, l *invite.Link) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO conversation_invite_links (id, conversation_id, token, created_by, created_at, expires_at, max_uses, use_count, active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `,
		l.ID,
		l.ConversationID,
		l.Token,
		l.CreatedBy,
		l.CreatedAt,
		l.ExpiresAt,
		l.MaxUses,
		l.UseCount,
		l.Active,
	)
	if isUniqueViolation(err) {
		return sentinal_errors.ErrAlreadyExists
	}
	return err
}

func (r *inviteRepository) RevokeActive(ctx context.Context, conversationID, revokedBy uuid.UUID, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE conversation_invite_links
        SET active = FALSE, revoked_by = $2, revoked_at = $3
        WHERE conversation_id = $1 AND active
    `, conversationID, revokedBy, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *inviteRepository) GetLatest(ctx context.Context, conversationID uuid.UUID) (invite.Link, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+inviteColumns+` FROM conversation_invite_links
        WHERE conversation_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT 1
    `, conversationID)
	l, err := scanInvite(row)
	if err != nil {
		return invite.Link{}, notFoundIfNoRows(err)
	}
	return l, nil
}

func (r *inviteRepository) GetByToken(ctx context.Context, token string) (invite.Link, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+inviteColumns+` FROM conversation_invite_links WHERE token = $1`, token)
	l, err := scanInvite(row)
	if err != nil {
		return invite.Link{}, notFoundIfNoRows(err)
	}
	return l, nil
}

func (r *inviteRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, actorID uuid.UUID, at time.Time) error {
	var q string
	var args []interface{}
	if active {
		q = `UPDATE conversation_invite_links SET active = TRUE, revoked_by = NULL, revoked_at = NULL WHERE id = $1`
		args = []interface{}{id}
	} else {
		q = `UPDATE conversation_invite_links SET active = FALSE, revoked_by = $2, revoked_at = $3 WHERE id = $1`
		args = []interface{}{id, actorID, at}
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinal_errors.ErrConflict
		}
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return sentinal_errors.ErrNotFound
	}
	return nil
}

func (r *inviteRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE conversation_invite_links SET active = FALSE WHERE id = $1`, id)
	return err
}

func (r *inviteRepository) IncrementUse(ctx context.Context, id uuid.UUID) (invite.Link, bool, error) {
	row := r.db.QueryRowContext(ctx, `
        UPDATE conversation_invite_links
        SET use_count = use_count + 1,
            active = CASE WHEN max_uses IS NOT NULL AND use_count + 1 >= max_uses THEN FALSE ELSE active END
        WHERE id = $1 AND active AND (max_uses IS NULL OR use_count < max_uses)
        RETURNING `+inviteColumns, id)
	l, err := scanInvite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return invite.Link{}, false, nil
		}
		return invite.Link{}, false, err
	}
	return l, true, nil
}
