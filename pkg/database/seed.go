package database

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// The users and follows tables are owned by the profile and follow services.
// Development databases get minimal stand-ins so messaging can run alone.
const devCollaboratorSchema = `
CREATE TABLE IF NOT EXISTS users (
    id         UUID PRIMARY KEY,
    username   TEXT NOT NULL UNIQUE,
    avatar_ref TEXT,
    verified   BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS follows (
    follower_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    followee_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    PRIMARY KEY (follower_id, followee_id)
);
`

type SeedConfig struct {
	UserCount int
	// MutualPairs makes user i and user i+1 follow each other for the first
	// MutualPairs users. The rest are strangers who go through requests.
	MutualPairs int
}

func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{UserCount: 6, MutualPairs: 2}
}

type SeedResult struct {
	Users   []uuid.UUID
	Follows int
}

// SeedDevelopment creates the collaborator stand-in tables and fills them
// with test users named dev_user_N.
func SeedDevelopment(ctx context.Context, cfg *SeedConfig) (*SeedResult, error) {
	if cfg == nil {
		cfg = DefaultSeedConfig()
	}
	if _, err := DB.ExecContext(ctx, devCollaboratorSchema); err != nil {
		return nil, fmt.Errorf("failed to create collaborator tables: %w", err)
	}

	result := &SeedResult{}
	for i := 1; i <= cfg.UserCount; i++ {
		id := uuid.New()
		username := fmt.Sprintf("dev_user_%d", i)
		err := DB.QueryRowContext(ctx, `
            INSERT INTO users (id, username, verified)
            VALUES ($1, $2, $3)
            ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
            RETURNING id
        `, id, username, i == 1).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to seed user %s: %w", username, err)
		}
		result.Users = append(result.Users, id)
	}

	for i := 0; i < cfg.MutualPairs && 2*i+1 < len(result.Users); i++ {
		a, b := result.Users[2*i], result.Users[2*i+1]
		for _, pair := range [][2]uuid.UUID{{a, b}, {b, a}} {
			res, err := DB.ExecContext(ctx, `
                INSERT INTO follows (follower_id, followee_id) VALUES ($1, $2)
                ON CONFLICT DO NOTHING
            `, pair[0], pair[1])
			if err != nil {
				return nil, fmt.Errorf("failed to seed follow: %w", err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				result.Follows++
			}
		}
	}

	log.Printf("Seeded %d users and %d follows", len(result.Users), result.Follows)
	return result, nil
}
