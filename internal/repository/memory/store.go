// Package memory implements repository.Store in process memory. It backs the
// service tests and the STORE_DRIVER=memory mode.
package memory

import (
	"context"
	"sync"

	"sentinal-social/internal/domain/conversation"
	"sentinal-social/internal/domain/invite"
	"sentinal-social/internal/domain/message"
	"sentinal-social/internal/domain/request"
	"sentinal-social/internal/repository"

	"github.com/google/uuid"
)

type storedMessage struct {
	msg message.Message
	seq int64
}

type storedRequest struct {
	req request.MessageRequest
	seq int64
}

type storedLink struct {
	link invite.Link
	seq  int64
}

type state struct {
	seq           int64
	conversations map[uuid.UUID]*conversation.Conversation
	directKeys    map[string]uuid.UUID
	messages      map[uuid.UUID]*storedMessage
	requests      map[uuid.UUID]*storedRequest
	invites       map[uuid.UUID]*storedLink
}

func newState() *state {
	return &state{
		conversations: make(map[uuid.UUID]*conversation.Conversation),
		directKeys:    make(map[string]uuid.UUID),
		messages:      make(map[uuid.UUID]*storedMessage),
		requests:      make(map[uuid.UUID]*storedRequest),
		invites:       make(map[uuid.UUID]*storedLink),
	}
}

func (s *state) next() int64 {
	s.seq++
	return s.seq
}

func (s *state) clone() *state {
	out := newState()
	out.seq = s.seq
	for id, c := range s.conversations {
		cp := cloneConversation(c)
		out.conversations[id] = &cp
	}
	for k, v := range s.directKeys {
		out.directKeys[k] = v
	}
	for id, m := range s.messages {
		out.messages[id] = &storedMessage{msg: cloneMessage(&m.msg), seq: m.seq}
	}
	for id, r := range s.requests {
		out.requests[id] = &storedRequest{req: cloneRequest(&r.req), seq: r.seq}
	}
	for id, l := range s.invites {
		out.invites[id] = &storedLink{link: l.link, seq: l.seq}
	}
	return out
}

func cloneConversation(c *conversation.Conversation) conversation.Conversation {
	out := *c
	out.Members = append([]conversation.Member(nil), c.Members...)
	out.LeftMembers = append([]conversation.LeftMember(nil), c.LeftMembers...)
	out.DeletedFor = append([]uuid.UUID(nil), c.DeletedFor...)
	if c.LastMessage != nil {
		last := *c.LastMessage
		out.LastMessage = &last
	}
	return out
}

func cloneMessage(m *message.Message) message.Message {
	out := *m
	out.ReadBy = append([]message.Receipt(nil), m.ReadBy...)
	out.DeletedBy = append([]message.Deletion(nil), m.DeletedBy...)
	return out
}

func cloneRequest(r *request.MessageRequest) request.MessageRequest {
	out := *r
	out.MessageIDs = append([]uuid.UUID(nil), r.MessageIDs...)
	return out
}

// Store guards all collections with one mutex. A transaction holds it for its
// whole duration and restores a snapshot when fn fails.
type Store struct {
	mu   *sync.Mutex
	st   *state
	inTx bool
}

func NewStore() *Store {
	return &Store{mu: &sync.Mutex{}, st: newState()}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Conversations() repository.ConversationRepository {
	return &conversationRepository{s: s}
}

func (s *Store) Messages() repository.MessageRepository {
	return &messageRepository{s: s}
}

func (s *Store) Requests() repository.RequestRepository {
	return &requestRepository{s: s}
}

func (s *Store) Invites() repository.InviteRepository {
	return &inviteRepository{s: s}
}

func (s *Store) WithinTx(_ context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	tx := &Store{mu: s.mu, st: s.st, inTx: true}
	if err := fn(tx); err != nil {
		*s.st = *snapshot
		return err
	}
	return nil
}
