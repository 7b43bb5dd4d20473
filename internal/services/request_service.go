package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentinal-social/internal/domain/conversation"
	"sentinal-social/internal/domain/message"
	"sentinal-social/internal/domain/request"
	"sentinal-social/internal/events"
	"sentinal-social/internal/metrics"
	"sentinal-social/internal/repository"
	sentinal_errors "sentinal-social/pkg/errors"
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestService gates first contact between users who are not connected.
type RequestService struct {
	store         repository.Store
	follows       FollowGraph
	conversations *ConversationService
	messages      *MessageService
	fanout        *FanoutService
	log           *logger.Logger
	now           func() time.Time
}

func NewRequestService(store repository.Store, follows FollowGraph, conversations *ConversationService, messages *MessageService, fanout *FanoutService, log *logger.Logger) *RequestService {
	return &RequestService{
		store:         store,
		follows:       follows,
		conversations: conversations,
		messages:      messages,
		fanout:        fanout,
		log:           log,
		now:           time.Now,
	}
}

// SendResult tells where a message sent through the gate ended up. Exactly one
// of Conversation and Request is set.
type SendResult struct {
	Message      message.Message
	Conversation *conversation.Conversation
	Request      *request.MessageRequest
}

// AreConnected reports whether a and b may message each other freely: they
// follow each other or already share a direct conversation. A follow graph
// failure counts as not connected.
func (s *RequestService) AreConnected(ctx context.Context, a, b uuid.UUID) (bool, error) {
	_, err := s.store.Conversations().GetDirectByKey(ctx, conversation.DirectKey(a, b))
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sentinal_errors.ErrNotFound) {
		return false, err
	}
	if s.follows == nil {
		return false, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
	defer cancel()
	mutual, err := s.follows.IsMutualFollow(lookupCtx, a, b)
	if err != nil {
		s.log.Ctx(ctx).Warn("follow graph lookup failed",
			zap.String("user_a", a.String()),
			zap.String("user_b", b.String()),
			zap.Error(err))
		return false, nil
	}
	return mutual, nil
}

// SendMessage delivers a message from senderID to receiverID. Precedence:
// connected users get the direct conversation; a pending request from the
// receiver is auto-accepted and the message routed as its reply; a pending
// request from the sender collects the message; otherwise a new request is
// opened.
func (s *RequestService) SendMessage(ctx context.Context, senderID, receiverID uuid.UUID, contentType message.ContentType, content string) (SendResult, error) {
	if senderID == receiverID {
		return SendResult{}, fmt.Errorf("%w: cannot message yourself", sentinal_errors.ErrInvalidOperation)
	}
	if err := validateContent(contentType, content); err != nil {
		return SendResult{}, err
	}

	connected, err := s.AreConnected(ctx, senderID, receiverID)
	if err != nil {
		return SendResult{}, err
	}
	if connected {
		conv, err := s.conversations.FindOrCreateDirect(ctx, senderID, receiverID)
		if err != nil {
			return SendResult{}, err
		}
		return s.route(ctx, &conv, senderID, contentType, content, false)
	}

	reciprocal, err := s.store.Requests().FindPending(ctx, receiverID, senderID)
	switch {
	case err == nil:
		conv, accepted, err := s.accept(ctx, reciprocal)
		if err != nil {
			return SendResult{}, err
		}
		if accepted {
			return s.route(ctx, &conv, senderID, contentType, content, true)
		}
		// Resolved concurrently; fall through to the request path.
	case !errors.Is(err, sentinal_errors.ErrNotFound):
		return SendResult{}, err
	}

	return s.hold(ctx, senderID, receiverID, contentType, content)
}

func (s *RequestService) route(ctx context.Context, conv *conversation.Conversation, senderID uuid.UUID, contentType message.ContentType, content string, asReply bool) (SendResult, error) {
	m := s.messages.newRouted(conv, senderID, contentType, content)
	if err := s.messages.deliver(ctx, conv, m); err != nil {
		return SendResult{}, err
	}
	if asReply {
		readAt := s.now()
		marked, err := s.store.Messages().MarkConversationRead(ctx, conv.ID, senderID, readAt)
		if err != nil {
			s.log.Ctx(ctx).Warn("read on reply failed", zap.String("conversation_id", conv.ID.String()), zap.Error(err))
		} else {
			s.fanout.PushReadReceipt(ctx, conv, senderID, marked, readAt)
		}
	}
	return SendResult{Message: m, Conversation: conv}, nil
}

// hold stores the message unrouted and attaches it to the sender's pending
// request, opening one if needed.
func (s *RequestService) hold(ctx context.Context, senderID, receiverID uuid.UUID, contentType message.ContentType, content string) (SendResult, error) {
	now := s.now()
	m := message.Message{
		ID:         uuid.New(),
		Route:      message.Unrouted{SenderID: senderID, ReceiverID: receiverID},
		SenderID:   senderID,
		ReceiverID: uuid.NullUUID{UUID: receiverID, Valid: true},
		Type:       contentType,
		Content:    content,
		CreatedAt:  now,
	}

	var (
		req     request.MessageRequest
		created bool
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Messages().Create(ctx, &m); err != nil {
			return err
		}

		existing, err := tx.Requests().FindPending(ctx, senderID, receiverID)
		if err == nil {
			req = existing
			return s.appendHeld(ctx, tx, &req, m.ID)
		}
		if !errors.Is(err, sentinal_errors.ErrNotFound) {
			return err
		}

		req = request.MessageRequest{
			ID:         uuid.New(),
			SenderID:   senderID,
			ReceiverID: receiverID,
			Status:     request.StatusPending,
			MessageIDs: []uuid.UUID{m.ID},
			CreatedAt:  now,
		}
		err = tx.Requests().Create(ctx, &req)
		if errors.Is(err, sentinal_errors.ErrAlreadyExists) {
			// Another send from the same sender opened it first.
			if req, err = tx.Requests().FindPending(ctx, senderID, receiverID); err != nil {
				return err
			}
			return s.appendHeld(ctx, tx, &req, m.ID)
		}
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return SendResult{}, err
	}

	metrics.MessagesSent.WithLabelValues("unrouted").Inc()
	s.fanout.PushUnroutedMessage(ctx, m)
	if created {
		metrics.RequestTransitions.WithLabelValues(string(request.StatusPending)).Inc()
		s.fanout.PushRequestUpdate(ctx, events.EventTypeRequestCreated, req, uuid.NullUUID{})
	} else {
		s.fanout.PushRequestUpdate(ctx, events.EventTypeRequestUpdated, req, uuid.NullUUID{})
	}
	return SendResult{Message: m, Request: &req}, nil
}

func (s *RequestService) appendHeld(ctx context.Context, tx repository.Store, req *request.MessageRequest, messageID uuid.UUID) error {
	if err := tx.Requests().AppendMessage(ctx, req.ID, messageID); err != nil {
		return err
	}
	req.MessageIDs = append(req.MessageIDs, messageID)
	return nil
}

// Accept resolves a pending request addressed to actorID and moves its
// messages into the direct conversation. Accepting a request that is already
// resolved changes nothing.
func (s *RequestService) Accept(ctx context.Context, requestID, actorID uuid.UUID) (request.MessageRequest, *conversation.Conversation, error) {
	req, err := s.receiverRequest(ctx, requestID, actorID)
	if err != nil {
		return request.MessageRequest{}, nil, err
	}
	if req.IsPending() {
		conv, accepted, err := s.accept(ctx, req)
		if err != nil {
			return request.MessageRequest{}, nil, err
		}
		if accepted {
			updated, err := s.store.Requests().GetByID(ctx, requestID)
			if err != nil {
				return request.MessageRequest{}, nil, err
			}
			return updated, &conv, nil
		}
		if req, err = s.store.Requests().GetByID(ctx, requestID); err != nil {
			return request.MessageRequest{}, nil, err
		}
	}

	if req.Status != request.StatusAccepted {
		return req, nil, nil
	}
	conv, err := s.store.Conversations().GetDirectByKey(ctx, conversation.DirectKey(req.SenderID, req.ReceiverID))
	if err != nil {
		if errors.Is(err, sentinal_errors.ErrNotFound) {
			return req, nil, nil
		}
		return request.MessageRequest{}, nil, err
	}
	return req, &conv, nil
}

// accept performs the accept transition and message migration atomically.
// accepted is false when req was no longer pending.
func (s *RequestService) accept(ctx context.Context, req request.MessageRequest) (conversation.Conversation, bool, error) {
	now := s.now()
	var (
		conv     conversation.Conversation
		created  bool
		resolved []request.MessageRequest
		latest   *message.Message
		moved    int64
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		resolved = resolved[:0]
		latest = nil

		ok, err := tx.Requests().UpdateStatus(ctx, req.ID, request.StatusAccepted, now)
		if err != nil || !ok {
			return err
		}
		resolved = append(resolved, req)

		// A crossing request in the other direction is settled by the same
		// migration.
		crossing, err := tx.Requests().FindPending(ctx, req.ReceiverID, req.SenderID)
		switch {
		case err == nil:
			if _, err := tx.Requests().UpdateStatus(ctx, crossing.ID, request.StatusAccepted, now); err != nil {
				return err
			}
			if err := tx.Requests().ClearMessages(ctx, crossing.ID); err != nil {
				return err
			}
			resolved = append(resolved, crossing)
		case !errors.Is(err, sentinal_errors.ErrNotFound):
			return err
		}

		conv, created, err = s.conversations.findOrCreateDirect(ctx, tx.Conversations(), req.SenderID, req.ReceiverID)
		if err != nil {
			return err
		}

		unrouted, err := tx.Messages().ListUnroutedBetween(ctx, req.SenderID, req.ReceiverID)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(req.MessageIDs)+len(unrouted))
		seen := make(map[uuid.UUID]bool, cap(ids))
		for _, id := range req.MessageIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		for i := range unrouted {
			if !seen[unrouted[i].ID] {
				seen[unrouted[i].ID] = true
				ids = append(ids, unrouted[i].ID)
			}
			if latest == nil || !unrouted[i].CreatedAt.Before(latest.CreatedAt) {
				latest = &unrouted[i]
			}
		}

		if moved, err = tx.Messages().AttachToConversation(ctx, ids, conv.ID); err != nil {
			return err
		}
		return tx.Requests().ClearMessages(ctx, req.ID)
	})
	if err != nil {
		return conversation.Conversation{}, false, err
	}
	if len(resolved) == 0 {
		return conversation.Conversation{}, false, nil
	}

	s.log.Ctx(ctx).Info("message request accepted",
		zap.String("request_id", req.ID.String()),
		zap.String("conversation_id", conv.ID.String()),
		zap.Int64("migrated", moved))

	if latest != nil {
		latest.Route = message.Routed{ConversationID: conv.ID}
		s.conversations.UpdateLastMessage(ctx, s.store.Conversations(), conv.ID, *latest)
	}
	if created {
		s.conversations.pushCreated(ctx, &conv, req.ReceiverID)
	}
	convID := uuid.NullUUID{UUID: conv.ID, Valid: true}
	for _, r := range resolved {
		r.Status = request.StatusAccepted
		r.RespondedAt.Time, r.RespondedAt.Valid = now, true
		r.MessageIDs = nil
		metrics.RequestTransitions.WithLabelValues(string(request.StatusAccepted)).Inc()
		s.fanout.PushRequestUpdate(ctx, events.EventTypeRequestResolved, r, convID)
	}
	return conv, true, nil
}

// Reject declines a request. Its messages stay unrouted and hidden.
func (s *RequestService) Reject(ctx context.Context, requestID, actorID uuid.UUID) (request.MessageRequest, error) {
	return s.decline(ctx, requestID, actorID, request.StatusRejected)
}

// Ignore resolves a request without telling the sender it was declined.
func (s *RequestService) Ignore(ctx context.Context, requestID, actorID uuid.UUID) (request.MessageRequest, error) {
	return s.decline(ctx, requestID, actorID, request.StatusIgnored)
}

func (s *RequestService) decline(ctx context.Context, requestID, actorID uuid.UUID, status request.Status) (request.MessageRequest, error) {
	req, err := s.receiverRequest(ctx, requestID, actorID)
	if err != nil {
		return request.MessageRequest{}, err
	}
	if !req.IsPending() {
		return req, nil
	}

	now := s.now()
	changed, err := s.store.Requests().UpdateStatus(ctx, requestID, status, now)
	if err != nil {
		return request.MessageRequest{}, err
	}
	if !changed {
		return s.store.Requests().GetByID(ctx, requestID)
	}
	req.Status = status
	req.RespondedAt.Time, req.RespondedAt.Valid = now, true

	metrics.RequestTransitions.WithLabelValues(string(status)).Inc()
	if status == request.StatusIgnored {
		s.fanout.PushRequestUpdateTo(ctx, events.EventTypeRequestResolved, req, uuid.NullUUID{}, []uuid.UUID{req.ReceiverID})
	} else {
		s.fanout.PushRequestUpdate(ctx, events.EventTypeRequestResolved, req, uuid.NullUUID{})
	}
	return req, nil
}

func (s *RequestService) receiverRequest(ctx context.Context, requestID, actorID uuid.UUID) (request.MessageRequest, error) {
	req, err := s.store.Requests().GetByID(ctx, requestID)
	if err != nil {
		return request.MessageRequest{}, err
	}
	if req.ReceiverID != actorID {
		return request.MessageRequest{}, fmt.Errorf("%w: only the receiver can respond to a request", sentinal_errors.ErrForbidden)
	}
	return req, nil
}

// ListIncoming returns the pending requests addressed to userID.
func (s *RequestService) ListIncoming(ctx context.Context, userID uuid.UUID) ([]request.MessageRequest, error) {
	return s.store.Requests().ListIncoming(ctx, userID)
}

func (s *RequestService) ListOutgoing(ctx context.Context, userID uuid.UUID) ([]request.MessageRequest, error) {
	return s.store.Requests().ListOutgoing(ctx, userID)
}

// PreviewMessages returns the messages a pending request is holding, to either
// party of the request.
func (s *RequestService) PreviewMessages(ctx context.Context, requestID, userID uuid.UUID) ([]message.Message, error) {
	req, err := s.store.Requests().GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsParty(userID) {
		return nil, fmt.Errorf("%w: not a party to this request", sentinal_errors.ErrForbidden)
	}
	if len(req.MessageIDs) == 0 {
		return []message.Message{}, nil
	}
	return s.store.Messages().ListByIDs(ctx, req.MessageIDs)
}
