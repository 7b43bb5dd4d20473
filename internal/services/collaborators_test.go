package services

import (
	"context"
	"errors"
	"testing"

	"sentinal-social/internal/domain/user"
	"sentinal-social/internal/services/mocks"
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCachedUserDirectory(t *testing.T) {
	id := uuid.New()
	profile := user.Profile{ID: id, Username: "ada", Verified: true}

	t.Run("hit skips the directory", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockCollaboratorCache(ctrl)
		next := mocks.NewMockUserDirectory(ctrl)

		cache.EXPECT().GetProfile(gomock.Any(), id).Return(&profile, nil)
		next.EXPECT().Get(gomock.Any(), gomock.Any()).Times(0)

		got, err := NewCachedUserDirectory(next, cache, logger.NewNop()).Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, profile, got)
	})

	t.Run("miss fills the cache", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockCollaboratorCache(ctrl)
		next := mocks.NewMockUserDirectory(ctrl)

		gomock.InOrder(
			cache.EXPECT().GetProfile(gomock.Any(), id).Return(nil, nil),
			next.EXPECT().Get(gomock.Any(), id).Return(profile, nil),
			cache.EXPECT().SetProfile(gomock.Any(), profile).Return(nil),
		)

		got, err := NewCachedUserDirectory(next, cache, logger.NewNop()).Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, profile, got)
	})

	t.Run("cache failures fall through", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockCollaboratorCache(ctrl)
		next := mocks.NewMockUserDirectory(ctrl)

		cache.EXPECT().GetProfile(gomock.Any(), id).Return(nil, errors.New("redis down"))
		next.EXPECT().Get(gomock.Any(), id).Return(profile, nil)
		cache.EXPECT().SetProfile(gomock.Any(), profile).Return(errors.New("redis down"))

		got, err := NewCachedUserDirectory(next, cache, logger.NewNop()).Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "ada", got.Username)
	})

	t.Run("directory errors are not cached", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockCollaboratorCache(ctrl)
		next := mocks.NewMockUserDirectory(ctrl)

		cache.EXPECT().GetProfile(gomock.Any(), id).Return(nil, nil)
		next.EXPECT().Get(gomock.Any(), id).Return(user.Profile{}, errors.New("timeout"))

		_, err := NewCachedUserDirectory(next, cache, logger.NewNop()).Get(context.Background(), id)
		assert.Error(t, err)
	})
}

func TestCachedFollowGraph(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	yes := true

	t.Run("hit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockCollaboratorCache(ctrl)
		next := mocks.NewMockFollowGraph(ctrl)

		cache.EXPECT().GetMutualFollow(gomock.Any(), a, b).Return(&yes, nil)

		mutual, err := NewCachedFollowGraph(next, cache, logger.NewNop()).IsMutualFollow(context.Background(), a, b)
		require.NoError(t, err)
		assert.True(t, mutual)
	})

	t.Run("miss stores negative answers too", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockCollaboratorCache(ctrl)
		next := mocks.NewMockFollowGraph(ctrl)

		cache.EXPECT().GetMutualFollow(gomock.Any(), a, b).Return(nil, nil)
		next.EXPECT().IsMutualFollow(gomock.Any(), a, b).Return(false, nil)
		cache.EXPECT().SetMutualFollow(gomock.Any(), a, b, false).Return(nil)

		mutual, err := NewCachedFollowGraph(next, cache, logger.NewNop()).IsMutualFollow(context.Background(), a, b)
		require.NoError(t, err)
		assert.False(t, mutual)
	})

	t.Run("graph error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cache := mocks.NewMockCollaboratorCache(ctrl)
		next := mocks.NewMockFollowGraph(ctrl)

		cache.EXPECT().GetMutualFollow(gomock.Any(), a, b).Return(nil, errors.New("redis down"))
		next.EXPECT().IsMutualFollow(gomock.Any(), a, b).Return(false, errors.New("follow service down"))

		_, err := NewCachedFollowGraph(next, cache, logger.NewNop()).IsMutualFollow(context.Background(), a, b)
		assert.Error(t, err)
	})
}
