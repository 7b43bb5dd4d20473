package services

import (
	"context"
	"testing"
	"time"

	"sentinal-social/internal/domain/invite"
	"sentinal-social/internal/events"
	"sentinal-social/internal/repository"
	"sentinal-social/pkg/logger"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestInviteSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := uuid.New()
	convID := env.group(t, admin, uuid.New())

	link, err := env.invites.CreateOrRotate(ctx, convID, admin, intPtr(1), nil)
	require.NoError(t, err)
	assert.True(t, link.Active)
	assert.NotEmpty(t, link.Token)

	first := uuid.New()
	conv, err := env.invites.JoinByToken(ctx, link.Token, first)
	require.NoError(t, err)
	assert.True(t, conv.IsActiveMember(first))
	assert.Contains(t, env.publisher.recipients(events.EventTypeParticipantAdded), first)

	_, err = env.invites.JoinByToken(ctx, link.Token, uuid.New())
	assert.ErrorIs(t, err, sentinal_errors.ErrLimitReached)

	latest, err := env.invites.GetActive(ctx, convID, admin)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.False(t, latest.Active)
	assert.Equal(t, 1, latest.UseCount)
}

func TestInviteRotationRevokesOldToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := uuid.New()
	convID := env.group(t, admin, uuid.New())

	old, err := env.invites.CreateOrRotate(ctx, convID, admin, nil, nil)
	require.NoError(t, err)
	rotated, err := env.invites.CreateOrRotate(ctx, convID, admin, nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, old.Token, rotated.Token)

	_, err = env.invites.JoinByToken(ctx, old.Token, uuid.New())
	assert.ErrorIs(t, err, sentinal_errors.ErrExpired)

	_, err = env.invites.JoinByToken(ctx, rotated.Token, uuid.New())
	assert.NoError(t, err)

	_, err = env.invites.JoinByToken(ctx, "no-such-token", uuid.New())
	assert.ErrorIs(t, err, sentinal_errors.ErrNotFound)
}

// rotatingStore revokes the active links of a conversation inside the join
// transaction, right before the use is counted.
type rotatingStore struct {
	repository.Store
	conversationID uuid.UUID
	admin          uuid.UUID
}

func (s *rotatingStore) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(&rotatingTx{Store: tx, parent: s})
	})
}

type rotatingTx struct {
	repository.Store
	parent *rotatingStore
}

func (tx *rotatingTx) Invites() repository.InviteRepository {
	return &rotatingInvites{InviteRepository: tx.Store.Invites(), parent: tx.parent}
}

type rotatingInvites struct {
	repository.InviteRepository
	parent *rotatingStore
}

func (r *rotatingInvites) IncrementUse(ctx context.Context, id uuid.UUID) (invite.Link, bool, error) {
	if _, err := r.RevokeActive(ctx, r.parent.conversationID, r.parent.admin, time.Now()); err != nil {
		return invite.Link{}, false, err
	}
	return r.InviteRepository.IncrementUse(ctx, id)
}

func TestInviteJoinRacingRevocationReportsExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := uuid.New()
	convID := env.group(t, admin, uuid.New())

	link, err := env.invites.CreateOrRotate(ctx, convID, admin, intPtr(5), nil)
	require.NoError(t, err)

	racing := NewInviteService(&rotatingStore{Store: env.store, conversationID: convID, admin: admin}, env.conversations, env.fanout, logger.NewNop())
	racing.now = env.clock.Now

	joiner := uuid.New()
	_, err = racing.JoinByToken(ctx, link.Token, joiner)
	assert.ErrorIs(t, err, sentinal_errors.ErrExpired)
	assert.NotErrorIs(t, err, sentinal_errors.ErrLimitReached)

	conv, err := env.store.Conversations().GetByID(ctx, convID)
	require.NoError(t, err)
	assert.False(t, conv.IsActiveMember(joiner), "the failed join is rolled back")
}

func TestInviteExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := uuid.New()
	convID := env.group(t, admin, uuid.New())

	expires := env.clock.Now().Add(time.Hour)
	link, err := env.invites.CreateOrRotate(ctx, convID, admin, nil, &expires)
	require.NoError(t, err)

	env.clock.Advance(2 * time.Hour)
	_, err = env.invites.JoinByToken(ctx, link.Token, uuid.New())
	assert.ErrorIs(t, err, sentinal_errors.ErrExpired)

	latest, err := env.invites.GetActive(ctx, convID, admin)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.False(t, latest.Active, "expired links are deactivated")
}

func TestInviteJoinByExistingMemberUsesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, member := uuid.New(), uuid.New()
	convID := env.group(t, admin, member)

	link, err := env.invites.CreateOrRotate(ctx, convID, admin, intPtr(1), nil)
	require.NoError(t, err)
	env.publisher.reset()

	conv, err := env.invites.JoinByToken(ctx, link.Token, member)
	require.NoError(t, err)
	assert.Equal(t, convID, conv.ID)
	assert.Zero(t, env.publisher.count(events.EventTypeParticipantAdded))

	latest, err := env.invites.GetActive(ctx, convID, admin)
	require.NoError(t, err)
	assert.Equal(t, 0, latest.UseCount)
	assert.True(t, latest.Active)
}

func TestInviteCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, member, outsider := uuid.New(), uuid.New(), uuid.New()
	convID := env.group(t, admin, member)

	past := env.clock.Now().Add(-time.Minute)
	tests := []struct {
		name    string
		actor   uuid.UUID
		maxUses *int
		expires *time.Time
		wantErr error
	}{
		{name: "zero max uses", actor: admin, maxUses: intPtr(0), wantErr: sentinal_errors.ErrInvalidInput},
		{name: "expiry in the past", actor: admin, expires: &past, wantErr: sentinal_errors.ErrInvalidInput},
		{name: "outsider", actor: outsider, wantErr: sentinal_errors.ErrForbidden},
		{name: "plain member", actor: member},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.invites.CreateOrRotate(ctx, convID, tt.actor, tt.maxUses, tt.expires)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	direct, err := env.conversations.FindOrCreateDirect(ctx, admin, member)
	require.NoError(t, err)
	_, err = env.invites.CreateOrRotate(ctx, direct.ID, admin, nil, nil)
	assert.ErrorIs(t, err, sentinal_errors.ErrInvalidOperation)
}

func TestInviteSetActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := uuid.New()
	convID := env.group(t, admin, uuid.New())

	none, err := env.invites.GetActive(ctx, convID, admin)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = env.invites.SetActive(ctx, convID, admin, false)
	assert.ErrorIs(t, err, sentinal_errors.ErrNotFound)

	link, err := env.invites.CreateOrRotate(ctx, convID, admin, nil, nil)
	require.NoError(t, err)

	off, err := env.invites.SetActive(ctx, convID, admin, false)
	require.NoError(t, err)
	assert.False(t, off.Active)
	_, err = env.invites.JoinByToken(ctx, link.Token, uuid.New())
	assert.ErrorIs(t, err, sentinal_errors.ErrExpired)

	on, err := env.invites.SetActive(ctx, convID, admin, true)
	require.NoError(t, err)
	assert.True(t, on.Active)
	assert.Equal(t, link.Token, on.Token)
	_, err = env.invites.JoinByToken(ctx, link.Token, uuid.New())
	assert.NoError(t, err)
}
