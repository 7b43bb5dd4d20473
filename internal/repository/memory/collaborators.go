package memory

import (
	"context"
	"sync"

	"sentinal-social/internal/domain/user"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

// FollowSet is an in-process follow graph.
type FollowSet struct {
	mu    sync.RWMutex
	edges map[[2]uuid.UUID]struct{}
}

func NewFollowSet() *FollowSet {
	return &FollowSet{edges: make(map[[2]uuid.UUID]struct{})}
}

func (f *FollowSet) Follow(follower, followee uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edges[[2]uuid.UUID{follower, followee}] = struct{}{}
}

func (f *FollowSet) Unfollow(follower, followee uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.edges, [2]uuid.UUID{follower, followee})
}

func (f *FollowSet) IsMutualFollow(_ context.Context, a, b uuid.UUID) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ab := f.edges[[2]uuid.UUID{a, b}]
	_, ba := f.edges[[2]uuid.UUID{b, a}]
	return ab && ba, nil
}

// Directory is an in-process user directory. Unknown ids resolve to a profile
// named after the id so local runs need no seeding.
type Directory struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]user.Profile
	strict   bool
}

func NewDirectory() *Directory {
	return &Directory{profiles: make(map[uuid.UUID]user.Profile)}
}

// NewStrictDirectory returns a Directory that fails with ErrNotFound for
// unknown ids.
func NewStrictDirectory() *Directory {
	d := NewDirectory()
	d.strict = true
	return d
}

func (d *Directory) Put(p user.Profile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[p.ID] = p
}

func (d *Directory) Get(_ context.Context, id uuid.UUID) (user.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if p, ok := d.profiles[id]; ok {
		return p, nil
	}
	if d.strict {
		return user.Profile{}, sentinal_errors.ErrNotFound
	}
	return user.Profile{ID: id, Username: id.String()[:8]}, nil
}
