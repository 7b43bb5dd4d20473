package services

import (
	"context"
	"sync"
	"testing"

	"sentinal-social/internal/domain/conversation"
	"sentinal-social/internal/events"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrCreateDirectIsUnique(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	const workers = 16
	ids := make([]uuid.UUID, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x, y := a, b
			if i%2 == 0 {
				x, y = b, a
			}
			conv, err := env.conversations.FindOrCreateDirect(ctx, x, y)
			if assert.NoError(t, err) {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 2, env.publisher.count(events.EventTypeConversationCreated), "created is pushed once, to both members")
}

func TestFindOrCreateDirectWithSelf(t *testing.T) {
	env := newTestEnv(t)
	a := uuid.New()
	_, err := env.conversations.FindOrCreateDirect(context.Background(), a, a)
	assert.ErrorIs(t, err, sentinal_errors.ErrInvalidOperation)
}

func TestCreateGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, m1 := uuid.New(), uuid.New()

	t.Run("creator is the only admin", func(t *testing.T) {
		conv, err := env.conversations.CreateGroup(ctx, admin, []uuid.UUID{m1, m1, admin}, "  team  ")
		require.NoError(t, err)
		assert.Equal(t, "team", conv.Name.String)
		assert.Len(t, conv.Members, 2)
		assert.Equal(t, []uuid.UUID{admin}, conv.AdminIDs())
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := env.conversations.CreateGroup(ctx, admin, []uuid.UUID{m1}, " ")
		assert.ErrorIs(t, err, sentinal_errors.ErrInvalidInput)
	})

	t.Run("needs a second participant", func(t *testing.T) {
		_, err := env.conversations.CreateGroup(ctx, admin, nil, "solo")
		assert.ErrorIs(t, err, sentinal_errors.ErrInvalidInput)
	})
}

func TestMemberManagementRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, member, outsider := uuid.New(), uuid.New(), uuid.New()
	convID := env.group(t, admin, member)

	_, err := env.conversations.AddMember(ctx, convID, member, outsider)
	assert.ErrorIs(t, err, sentinal_errors.ErrForbidden)

	_, err = env.conversations.AddMember(ctx, convID, admin, member)
	assert.ErrorIs(t, err, sentinal_errors.ErrConflict)

	conv, err := env.conversations.AddMember(ctx, convID, admin, outsider)
	require.NoError(t, err)
	assert.True(t, conv.IsActiveMember(outsider))

	assert.ErrorIs(t, env.conversations.RemoveMember(ctx, convID, member, outsider), sentinal_errors.ErrForbidden)
	assert.ErrorIs(t, env.conversations.RemoveMember(ctx, convID, admin, admin), sentinal_errors.ErrForbidden)
	require.NoError(t, env.conversations.RemoveMember(ctx, convID, admin, outsider))

	removed := env.publisher.recipients(events.EventTypeParticipantRemoved)
	assert.Contains(t, removed, outsider, "the removed member is told")
}

func TestLeaveGroupPromotesSuccessor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, first, second := uuid.New(), uuid.New(), uuid.New()
	convID := env.group(t, admin, first)
	_, err := env.conversations.AddMember(ctx, convID, admin, second)
	require.NoError(t, err)

	require.NoError(t, env.conversations.LeaveGroup(ctx, convID, admin))

	conv, err := env.store.Conversations().GetByID(ctx, convID)
	require.NoError(t, err)
	assert.False(t, conv.IsActiveMember(admin))
	assert.Equal(t, []uuid.UUID{first}, conv.AdminIDs())
	require.Len(t, conv.LeftMembers, 1)
	assert.Equal(t, admin, conv.LeftMembers[0].UserID)
	assert.Equal(t, 3, env.publisher.count(events.EventTypeParticipantRoleChanged))
}

func TestLeaveGroupMemberKeepsAdmins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, member := uuid.New(), uuid.New()
	convID := env.group(t, admin, member)

	require.NoError(t, env.conversations.LeaveGroup(ctx, convID, member))

	conv, err := env.store.Conversations().GetByID(ctx, convID)
	require.NoError(t, err)
	assert.False(t, conv.IsActiveMember(member))
	assert.Equal(t, []uuid.UUID{admin}, conv.AdminIDs())
	assert.Zero(t, env.publisher.count(events.EventTypeParticipantRoleChanged))
}

func TestLeaveGroupLastMemberLeavesNoAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, member := uuid.New(), uuid.New()
	convID := env.group(t, admin, member)

	require.NoError(t, env.conversations.LeaveGroup(ctx, convID, member))
	require.NoError(t, env.conversations.LeaveGroup(ctx, convID, admin))

	conv, err := env.store.Conversations().GetByID(ctx, convID)
	require.NoError(t, err)
	assert.Empty(t, conv.AdminIDs())
	assert.Empty(t, conv.MemberIDs())
	assert.Len(t, conv.LeftMembers, 2)
	assert.Zero(t, env.publisher.count(events.EventTypeParticipantRoleChanged))
}

func TestLeaveDirectConversation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	conv, err := env.conversations.FindOrCreateDirect(ctx, a, b)
	require.NoError(t, err)

	assert.ErrorIs(t, env.conversations.LeaveGroup(ctx, conv.ID, a), sentinal_errors.ErrInvalidOperation)
}

func TestDemoteKeepsOneAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, member := uuid.New(), uuid.New()
	convID := env.group(t, admin, member)

	assert.ErrorIs(t, env.conversations.Demote(ctx, convID, admin, admin), sentinal_errors.ErrInvalidOperation)

	require.NoError(t, env.conversations.Promote(ctx, convID, admin, member))
	require.NoError(t, env.conversations.Demote(ctx, convID, member, admin))

	conv, err := env.store.Conversations().GetByID(ctx, convID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{member}, conv.AdminIDs())
}

func TestUpdateGroupInfo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, member := uuid.New(), uuid.New()
	convID := env.group(t, admin, member)

	name, avatar := "renamed", "avatars/g.png"
	conv, err := env.conversations.UpdateGroupInfo(ctx, convID, admin, &name, &avatar)
	require.NoError(t, err)
	assert.Equal(t, "renamed", conv.Name.String)
	assert.Equal(t, "avatars/g.png", conv.AvatarRef.String)

	cleared := conversation.AvatarClear
	conv, err = env.conversations.UpdateGroupInfo(ctx, convID, admin, nil, &cleared)
	require.NoError(t, err)
	assert.Equal(t, "renamed", conv.Name.String)
	assert.False(t, conv.AvatarRef.Valid)

	_, err = env.conversations.UpdateGroupInfo(ctx, convID, member, &name, nil)
	assert.ErrorIs(t, err, sentinal_errors.ErrForbidden)
}

func TestTypingSkipsTypist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin, member := uuid.New(), uuid.New()
	convID := env.group(t, admin, member)

	require.NoError(t, env.conversations.Typing(ctx, convID, admin, true))
	assert.Equal(t, []uuid.UUID{member}, env.publisher.recipients(events.EventTypeTypingStarted))

	assert.ErrorIs(t, env.conversations.Typing(ctx, convID, uuid.New(), true), sentinal_errors.ErrForbidden)
}
