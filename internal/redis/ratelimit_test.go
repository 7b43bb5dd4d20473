package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitConfigWithOverrides(t *testing.T) {
	defaults := DefaultRateLimitConfig()

	assert.Equal(t, defaults, defaults.WithOverrides(RateLimitConfig{}))

	got := defaults.WithOverrides(RateLimitConfig{
		MessageLimit: 5,
		JoinWindow:   5 * time.Minute,
		JoinLimit:    -1,
	})
	assert.Equal(t, 5, got.MessageLimit)
	assert.Equal(t, defaults.MessageWindow, got.MessageWindow)
	assert.Equal(t, defaults.JoinLimit, got.JoinLimit)
	assert.Equal(t, 5*time.Minute, got.JoinWindow)
}
