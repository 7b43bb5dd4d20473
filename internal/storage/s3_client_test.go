package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/media/a.jpg", publicURL("https://cdn.example.com/", "/media/a.jpg"))
	assert.Equal(t, "https://cdn.example.com/media/a.jpg", publicURL("https://cdn.example.com", "media/a.jpg"))
	assert.Empty(t, publicURL("", "media/a.jpg"))
	assert.Empty(t, publicURL("https://cdn.example.com", ""))
}

func TestStaticResolver(t *testing.T) {
	r := StaticResolver{Base: "https://cdn.example.com"}

	url, err := r.Resolve(context.Background(), "avatars/u1.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/u1.png", url)

	url, err = r.Resolve(context.Background(), "https://elsewhere.example.com/x.png")
	require.NoError(t, err)
	assert.Equal(t, "https://elsewhere.example.com/x.png", url)
}

func TestClient_ResolveUsesPublicBase(t *testing.T) {
	c := &Client{cfg: S3Config{Bucket: "media", PublicBase: "https://cdn.example.com"}}

	url, err := c.Resolve(context.Background(), "posts/p1.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/posts/p1.mp4", url)
}

func TestNewClient_RequiresBucket(t *testing.T) {
	_, err := NewClient(context.Background(), S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}
