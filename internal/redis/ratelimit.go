package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Rate limiting key patterns:
// - ratelimit:{user_id}:messages - per-window message sends
// - ratelimit:{user_id}:joins - per-window invite link joins

type RateLimitConfig struct {
	MessageLimit  int
	MessageWindow time.Duration
	JoinLimit     int
	JoinWindow    time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MessageLimit:  60,
		MessageWindow: 60 * time.Second,
		JoinLimit:     10,
		JoinWindow:    60 * time.Second,
	}
}

// WithOverrides replaces every field of c that o sets to a positive value.
func (c RateLimitConfig) WithOverrides(o RateLimitConfig) RateLimitConfig {
	if o.MessageLimit > 0 {
		c.MessageLimit = o.MessageLimit
	}
	if o.MessageWindow > 0 {
		c.MessageWindow = o.MessageWindow
	}
	if o.JoinLimit > 0 {
		c.JoinLimit = o.JoinLimit
	}
	if o.JoinWindow > 0 {
		c.JoinWindow = o.JoinWindow
	}
	return c
}

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	client *goredis.Client
	config RateLimitConfig
}

type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

func NewRateLimiter(client *goredis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client: client,
		config: config,
	}
}

// AllowMessage checks if a user can send a message
func (r *RateLimiter) AllowMessage(ctx context.Context, userID uuid.UUID) (*RateLimitResult, error) {
	return r.checkLimit(ctx, messageKey(userID), r.config.MessageLimit, r.config.MessageWindow)
}

// AllowJoin checks if a user can redeem another invite link
func (r *RateLimiter) AllowJoin(ctx context.Context, userID uuid.UUID) (*RateLimitResult, error) {
	return r.checkLimit(ctx, joinKey(userID), r.config.JoinLimit, r.config.JoinWindow)
}

func messageKey(userID uuid.UUID) string {
	return fmt.Sprintf("ratelimit:%s:messages", userID)
}

func joinKey(userID uuid.UUID) string {
	return fmt.Sprintf("ratelimit:%s:joins", userID)
}

var limitScript = goredis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = tonumber(redis.call('GET', key) or '0')
	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end

	if current < limit then
		redis.call('INCR', key)
		if ttl == window then
			redis.call('EXPIRE', key, window)
		end
		return {1, limit - current - 1, ttl}
	end
	return {0, 0, ttl}
`)

// checkLimit increments and checks a fixed window counter atomically
func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	result, err := limitScript.Run(ctx, r.client, []string{key}, limit, int(window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}
	allowed, _ := values[0].(int64)
	remaining, _ := values[1].(int64)
	resetIn, _ := values[2].(int64)

	return &RateLimitResult{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetIn:   time.Duration(resetIn) * time.Second,
		Limit:     limit,
	}, nil
}
