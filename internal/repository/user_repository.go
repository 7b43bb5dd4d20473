package repository

import (
	"context"

	"sentinal-social/internal/domain/user"

	"github.com/google/uuid"
)

// The users and follows tables belong to the profile and follow subsystems.
// Messaging only reads them.

type PostgresUserDirectory struct {
	db DBTX
}

func NewUserDirectory(db DBTX) *PostgresUserDirectory {
	return &PostgresUserDirectory{db: db}
}

func (r *PostgresUserDirectory) Get(ctx context.Context, id uuid.UUID) (user.Profile, error) {
	var p user.Profile
	err := r.db.QueryRowContext(ctx, `
        SELECT id, username, avatar_ref, verified FROM users WHERE id = $1
    `, id).Scan(&p.ID, &p.Username, &p.AvatarRef, &p.Verified)
	if err != nil {
		return user.Profile{}, notFoundIfNoRows(err)
	}
	return p, nil
}

type PostgresFollowGraph struct {
	db DBTX
}

func NewFollowGraph(db DBTX) *PostgresFollowGraph {
	return &PostgresFollowGraph{db: db}
}

// IsMutualFollow reports whether a follows b and b follows a.
func (r *PostgresFollowGraph) IsMutualFollow(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM follows
        WHERE (follower_id = $1 AND followee_id = $2)
           OR (follower_id = $2 AND followee_id = $1)
    `, a, b).Scan(&n)
	if err != nil {
		return false, err
	}
	return n == 2, nil
}
