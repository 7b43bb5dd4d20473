package services

import (
	"context"
	"sync"
	"time"

	"sentinal-social/internal/domain/conversation"
	"sentinal-social/internal/domain/message"
	"sentinal-social/internal/domain/request"
	"sentinal-social/internal/domain/user"
	"sentinal-social/internal/repository"
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const presenterLookupLimit = 8

type UserView struct {
	ID        uuid.UUID
	Username  string
	AvatarURL *string
	Verified  bool
}

type MemberView struct {
	UserView
	Role     conversation.Role
	JoinedAt time.Time
}

type ConversationView struct {
	Conversation conversation.Conversation
	Members      []MemberView
	AvatarURL    *string
	UnreadCount  int64
}

type MessageView struct {
	Message  message.Message
	MediaURL *string
}

type RequestView struct {
	Request  request.MessageRequest
	Sender   UserView
	Receiver UserView
}

// Presenter turns stored records into client views. Display data is refreshed
// from the user directory; any collaborator failure falls back to the stored
// snapshot and unresolved media to nil.
type Presenter struct {
	store     repository.Store
	directory UserDirectory
	media     MediaResolver
	log       *logger.Logger
}

func NewPresenter(store repository.Store, directory UserDirectory, media MediaResolver, log *logger.Logger) *Presenter {
	return &Presenter{store: store, directory: directory, media: media, log: log}
}

func (p *Presenter) Conversations(ctx context.Context, viewerID uuid.UUID, convs []conversation.Conversation) []ConversationView {
	var ids []uuid.UUID
	for i := range convs {
		ids = append(ids, convs[i].MemberIDs()...)
	}
	profiles := p.profiles(ctx, ids)

	out := make([]ConversationView, 0, len(convs))
	for i := range convs {
		out = append(out, p.conversation(ctx, viewerID, &convs[i], profiles))
	}
	return out
}

func (p *Presenter) Conversation(ctx context.Context, viewerID uuid.UUID, conv conversation.Conversation) ConversationView {
	return p.conversation(ctx, viewerID, &conv, p.profiles(ctx, conv.MemberIDs()))
}

func (p *Presenter) conversation(ctx context.Context, viewerID uuid.UUID, conv *conversation.Conversation, profiles map[uuid.UUID]user.Profile) ConversationView {
	view := ConversationView{Conversation: *conv}
	for _, m := range conv.Members {
		mv := MemberView{
			UserView: UserView{ID: m.UserID, Username: m.Username},
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		}
		avatar := m.AvatarRef
		if prof, ok := profiles[m.UserID]; ok {
			mv.Username = prof.Username
			mv.Verified = prof.Verified
			avatar = prof.AvatarRef
		}
		if avatar.Valid {
			mv.AvatarURL = p.resolve(ctx, avatar.String)
		}
		view.Members = append(view.Members, mv)
	}
	if conv.AvatarRef.Valid {
		view.AvatarURL = p.resolve(ctx, conv.AvatarRef.String)
	}

	unread, err := p.store.Messages().UnreadCount(ctx, conv.ID, viewerID)
	if err != nil {
		p.log.Ctx(ctx).Warn("unread count failed", zap.String("conversation_id", conv.ID.String()), zap.Error(err))
	}
	view.UnreadCount = unread
	return view
}

func (p *Presenter) Messages(ctx context.Context, msgs []message.Message) []MessageView {
	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, p.Message(ctx, m))
	}
	return out
}

// Message resolves media references. Shared post references pass through as
// content.
func (p *Presenter) Message(ctx context.Context, m message.Message) MessageView {
	view := MessageView{Message: m}
	if m.Type.IsMedia() {
		view.MediaURL = p.resolve(ctx, m.Content)
	}
	return view
}

func (p *Presenter) Requests(ctx context.Context, reqs []request.MessageRequest) []RequestView {
	var ids []uuid.UUID
	for _, r := range reqs {
		ids = append(ids, r.SenderID, r.ReceiverID)
	}
	profiles := p.profiles(ctx, ids)

	out := make([]RequestView, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, RequestView{
			Request:  r,
			Sender:   p.userView(ctx, r.SenderID, profiles),
			Receiver: p.userView(ctx, r.ReceiverID, profiles),
		})
	}
	return out
}

func (p *Presenter) Request(ctx context.Context, r request.MessageRequest) RequestView {
	return p.Requests(ctx, []request.MessageRequest{r})[0]
}

func (p *Presenter) userView(ctx context.Context, id uuid.UUID, profiles map[uuid.UUID]user.Profile) UserView {
	v := UserView{ID: id}
	if prof, ok := profiles[id]; ok {
		v.Username = prof.Username
		v.Verified = prof.Verified
		if prof.AvatarRef.Valid {
			v.AvatarURL = p.resolve(ctx, prof.AvatarRef.String)
		}
	}
	return v
}

// profiles looks up every distinct id concurrently. Ids the directory fails
// on are missing from the result.
func (p *Presenter) profiles(ctx context.Context, ids []uuid.UUID) map[uuid.UUID]user.Profile {
	out := make(map[uuid.UUID]user.Profile, len(ids))
	if p.directory == nil || len(ids) == 0 {
		return out
	}

	var (
		mu   sync.Mutex
		seen = make(map[uuid.UUID]bool, len(ids))
		g    errgroup.Group
	)
	g.SetLimit(presenterLookupLimit)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		id := id
		g.Go(func() error {
			lookupCtx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
			defer cancel()
			prof, err := p.directory.Get(lookupCtx, id)
			if err != nil {
				p.log.Ctx(ctx).Debug("profile lookup failed", zap.String("user_id", id.String()), zap.Error(err))
				return nil
			}
			mu.Lock()
			out[id] = prof
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (p *Presenter) resolve(ctx context.Context, ref string) *string {
	if p.media == nil || ref == "" {
		return nil
	}
	lookupCtx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
	defer cancel()
	url, err := p.media.Resolve(lookupCtx, ref)
	if err != nil || url == "" {
		if err != nil {
			p.log.Ctx(ctx).Debug("media resolve failed", zap.String("ref", ref), zap.Error(err))
		}
		return nil
	}
	return &url
}
