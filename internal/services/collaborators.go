package services

//go:generate mockgen -source=collaborators.go -destination=mocks/collaborators_mock.go -package=mocks

import (
	"context"
	"time"

	"sentinal-social/internal/domain/user"
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FollowGraph answers whether two users follow each other.
type FollowGraph interface {
	IsMutualFollow(ctx context.Context, a, b uuid.UUID) (bool, error)
}

// UserDirectory reads user profiles owned by the profile subsystem.
type UserDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (user.Profile, error)
}

// MediaResolver turns an opaque media reference into a servable URL.
type MediaResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// CollaboratorCache is a read-through cache in front of the collaborators.
// Misses are reported as a nil result with a nil error.
type CollaboratorCache interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*user.Profile, error)
	SetProfile(ctx context.Context, p user.Profile) error
	GetMutualFollow(ctx context.Context, a, b uuid.UUID) (*bool, error)
	SetMutualFollow(ctx context.Context, a, b uuid.UUID, mutual bool) error
}

const collaboratorTimeout = 2 * time.Second

type cachedDirectory struct {
	next  UserDirectory
	cache CollaboratorCache
	log   *logger.Logger
}

func NewCachedUserDirectory(next UserDirectory, cache CollaboratorCache, log *logger.Logger) UserDirectory {
	return &cachedDirectory{next: next, cache: cache, log: log}
}

func (d *cachedDirectory) Get(ctx context.Context, id uuid.UUID) (user.Profile, error) {
	if p, err := d.cache.GetProfile(ctx, id); err != nil {
		d.log.Ctx(ctx).Warn("profile cache read failed", zap.String("user_id", id.String()), zap.Error(err))
	} else if p != nil {
		return *p, nil
	}

	p, err := d.next.Get(ctx, id)
	if err != nil {
		return user.Profile{}, err
	}
	if err := d.cache.SetProfile(ctx, p); err != nil {
		d.log.Ctx(ctx).Warn("profile cache write failed", zap.String("user_id", id.String()), zap.Error(err))
	}
	return p, nil
}

type cachedFollowGraph struct {
	next  FollowGraph
	cache CollaboratorCache
	log   *logger.Logger
}

func NewCachedFollowGraph(next FollowGraph, cache CollaboratorCache, log *logger.Logger) FollowGraph {
	return &cachedFollowGraph{next: next, cache: cache, log: log}
}

func (g *cachedFollowGraph) IsMutualFollow(ctx context.Context, a, b uuid.UUID) (bool, error) {
	if v, err := g.cache.GetMutualFollow(ctx, a, b); err != nil {
		g.log.Ctx(ctx).Warn("follow cache read failed", zap.Error(err))
	} else if v != nil {
		return *v, nil
	}

	mutual, err := g.next.IsMutualFollow(ctx, a, b)
	if err != nil {
		return false, err
	}
	if err := g.cache.SetMutualFollow(ctx, a, b, mutual); err != nil {
		g.log.Ctx(ctx).Warn("follow cache write failed", zap.Error(err))
	}
	return mutual, nil
}
