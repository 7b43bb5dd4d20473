package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sentinal-social/internal/domain/conversation"
	"sentinal-social/internal/domain/user"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Cache key patterns:
// - user:{user_id} - profile snapshot from the user directory
// - follow:mutual:{direct_key} - mutual follow answer for an unordered pair

type CacheConfig struct {
	UserTTL   time.Duration
	FollowTTL time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		UserTTL:   5 * time.Minute,
		FollowTTL: time.Minute,
	}
}

// CacheStore caches answers from the collaborator subsystems. Misses are
// reported as a nil result with a nil error.
type CacheStore struct {
	client *goredis.Client
	config CacheConfig
}

func NewCacheStore(client *goredis.Client, config CacheConfig) *CacheStore {
	return &CacheStore{
		client: client,
		config: config,
	}
}

type profileCache struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarRef *string   `json:"avatar_ref,omitempty"`
	Verified  bool      `json:"verified"`
}

func userKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id)
}

func mutualFollowKey(a, b uuid.UUID) string {
	return "follow:mutual:" + conversation.DirectKey(a, b)
}

func (c *CacheStore) GetProfile(ctx context.Context, id uuid.UUID) (*user.Profile, error) {
	data, err := c.client.Get(ctx, userKey(id)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cached profileCache
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	p := user.Profile{ID: cached.ID, Username: cached.Username, Verified: cached.Verified}
	if cached.AvatarRef != nil {
		p.AvatarRef.String, p.AvatarRef.Valid = *cached.AvatarRef, true
	}
	return &p, nil
}

func (c *CacheStore) SetProfile(ctx context.Context, p user.Profile) error {
	cached := profileCache{ID: p.ID, Username: p.Username, Verified: p.Verified}
	if p.AvatarRef.Valid {
		cached.AvatarRef = &p.AvatarRef.String
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, userKey(p.ID), data, c.config.UserTTL).Err()
}

func (c *CacheStore) InvalidateProfile(ctx context.Context, id uuid.UUID) error {
	return c.client.Del(ctx, userKey(id)).Err()
}

func (c *CacheStore) GetMutualFollow(ctx context.Context, a, b uuid.UUID) (*bool, error) {
	v, err := c.client.Get(ctx, mutualFollowKey(a, b)).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	mutual := v == "1"
	return &mutual, nil
}

func (c *CacheStore) SetMutualFollow(ctx context.Context, a, b uuid.UUID, mutual bool) error {
	v := "0"
	if mutual {
		v = "1"
	}
	return c.client.Set(ctx, mutualFollowKey(a, b), v, c.config.FollowTTL).Err()
}

// Ping checks if Redis is available
func (c *CacheStore) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
