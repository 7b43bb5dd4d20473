package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"sentinal-social/internal/domain/conversation"
	"sentinal-social/internal/domain/message"
	"sentinal-social/internal/domain/request"
	"sentinal-social/internal/domain/user"
	"sentinal-social/internal/repository/memory"
	"sentinal-social/internal/services/mocks"
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestPresenterRefreshesDisplayData(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	env.directory.Put(user.Profile{ID: a, Username: "ada"})
	env.directory.Put(user.Profile{ID: b, Username: "bob"})

	conv, err := env.conversations.FindOrCreateDirect(ctx, a, b)
	require.NoError(t, err)

	// Profiles change after the snapshot was taken.
	env.directory.Put(user.Profile{ID: b, Username: "robert", Verified: true})

	view := NewPresenter(env.store, env.directory, nil, logger.NewNop()).Conversation(ctx, a, conv)
	require.Len(t, view.Members, 2)
	names := map[uuid.UUID]string{}
	for _, m := range view.Members {
		names[m.ID] = m.Username
		if m.ID == b {
			assert.True(t, m.Verified)
		}
	}
	assert.Equal(t, "robert", names[b])
	assert.Equal(t, "ada", names[a])
}

func TestPresenterFallsBackToSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	env.directory.Put(user.Profile{ID: a, Username: "ada"})
	env.directory.Put(user.Profile{ID: b, Username: "bob"})

	conv, err := env.conversations.FindOrCreateDirect(ctx, a, b)
	require.NoError(t, err)
	_, err = env.messages.Send(ctx, conv.ID, b, message.ContentText, "hi")
	require.NoError(t, err)

	p := NewPresenter(env.store, memory.NewStrictDirectory(), nil, logger.NewNop())
	view := p.Conversation(ctx, a, conv)
	for _, m := range view.Members {
		assert.NotEmpty(t, m.Username)
		assert.Nil(t, m.AvatarURL)
	}
	assert.Equal(t, int64(1), view.UnreadCount)

	views := p.Conversations(ctx, b, []conversation.Conversation{conv})
	require.Len(t, views, 1)
	assert.Zero(t, views[0].UnreadCount, "own messages are never unread")
}

func TestPresenterMediaResolution(t *testing.T) {
	ctrl := gomock.NewController(t)
	media := mocks.NewMockMediaResolver(ctrl)
	env := newTestEnv(t)
	ctx := context.Background()
	p := NewPresenter(env.store, env.directory, media, logger.NewNop())

	image := message.Message{ID: uuid.New(), Type: message.ContentImage, Content: "img/1.png"}
	broken := message.Message{ID: uuid.New(), Type: message.ContentVideo, Content: "vid/1.mp4"}
	post := message.Message{ID: uuid.New(), Type: message.ContentPostShare, Content: "post:42"}

	media.EXPECT().Resolve(gomock.Any(), "img/1.png").Return("https://cdn.example.com/img/1.png", nil)
	media.EXPECT().Resolve(gomock.Any(), "vid/1.mp4").Return("", errors.New("signing failed"))

	views := p.Messages(ctx, []message.Message{image, broken, post})
	require.Len(t, views, 3)
	require.NotNil(t, views[0].MediaURL)
	assert.Equal(t, "https://cdn.example.com/img/1.png", *views[0].MediaURL)
	assert.Nil(t, views[1].MediaURL)
	assert.Nil(t, views[2].MediaURL)
	assert.Equal(t, "post:42", views[2].Message.Content)
}

func TestPresenterRequests(t *testing.T) {
	ctrl := gomock.NewController(t)
	media := mocks.NewMockMediaResolver(ctrl)
	dir := memory.NewStrictDirectory()
	sender, receiver := uuid.New(), uuid.New()
	dir.Put(user.Profile{ID: sender, Username: "sam", AvatarRef: sql.NullString{String: "avatars/sam.png", Valid: true}})

	media.EXPECT().Resolve(gomock.Any(), "avatars/sam.png").Return("https://cdn.example.com/avatars/sam.png", nil)

	p := NewPresenter(memory.NewStore(), dir, media, logger.NewNop())
	view := p.Request(context.Background(), request.MessageRequest{ID: uuid.New(), SenderID: sender, ReceiverID: receiver})

	assert.Equal(t, "sam", view.Sender.Username)
	require.NotNil(t, view.Sender.AvatarURL)
	assert.Equal(t, receiver, view.Receiver.ID)
	assert.Empty(t, view.Receiver.Username)
}
