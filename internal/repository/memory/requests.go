package memory

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"sentinal-social/internal/domain/request"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

type requestRepository struct {
	s *Store
}

func (r *requestRepository) Create(_ context.Context, req *request.MessageRequest) error {
	defer r.s.lock()()
	st := r.s.st
	if _, ok := r.pending(req.SenderID, req.ReceiverID); ok {
		return sentinal_errors.ErrAlreadyExists
	}
	st.requests[req.ID] = &storedRequest{req: cloneRequest(req), seq: st.next()}
	return nil
}

func (r *requestRepository) pending(senderID, receiverID uuid.UUID) (*storedRequest, bool) {
	for _, sr := range r.s.st.requests {
		if sr.req.SenderID == senderID && sr.req.ReceiverID == receiverID && sr.req.IsPending() {
			return sr, true
		}
	}
	return nil, false
}

func (r *requestRepository) GetByID(_ context.Context, id uuid.UUID) (request.MessageRequest, error) {
	defer r.s.lock()()
	sr, ok := r.s.st.requests[id]
	if !ok {
		return request.MessageRequest{}, sentinal_errors.ErrNotFound
	}
	return cloneRequest(&sr.req), nil
}

func (r *requestRepository) FindPending(_ context.Context, senderID, receiverID uuid.UUID) (request.MessageRequest, error) {
	defer r.s.lock()()
	sr, ok := r.pending(senderID, receiverID)
	if !ok {
		return request.MessageRequest{}, sentinal_errors.ErrNotFound
	}
	return cloneRequest(&sr.req), nil
}

func (r *requestRepository) AppendMessage(_ context.Context, requestID, messageID uuid.UUID) error {
	defer r.s.lock()()
	sr, ok := r.s.st.requests[requestID]
	if !ok {
		return sentinal_errors.ErrNotFound
	}
	for _, id := range sr.req.MessageIDs {
		if id == messageID {
			return nil
		}
	}
	sr.req.MessageIDs = append(sr.req.MessageIDs, messageID)
	return nil
}

func (r *requestRepository) UpdateStatus(_ context.Context, id uuid.UUID, status request.Status, respondedAt time.Time) (bool, error) {
	defer r.s.lock()()
	sr, ok := r.s.st.requests[id]
	if !ok || !sr.req.IsPending() {
		return false, nil
	}
	sr.req.Status = status
	sr.req.RespondedAt = sql.NullTime{Time: respondedAt, Valid: true}
	return true, nil
}

func (r *requestRepository) ClearMessages(_ context.Context, requestID uuid.UUID) error {
	defer r.s.lock()()
	if sr, ok := r.s.st.requests[requestID]; ok {
		sr.req.MessageIDs = nil
	}
	return nil
}

func (r *requestRepository) ListIncoming(_ context.Context, receiverID uuid.UUID) ([]request.MessageRequest, error) {
	defer r.s.lock()()
	return r.list(func(req *request.MessageRequest) bool {
		return req.ReceiverID == receiverID && req.IsPending()
	}), nil
}

func (r *requestRepository) ListOutgoing(_ context.Context, senderID uuid.UUID) ([]request.MessageRequest, error) {
	defer r.s.lock()()
	return r.list(func(req *request.MessageRequest) bool {
		return req.SenderID == senderID
	}), nil
}

// list returns matching requests, newest first.
func (r *requestRepository) list(keep func(*request.MessageRequest) bool) []request.MessageRequest {
	var found []*storedRequest
	for _, sr := range r.s.st.requests {
		if keep(&sr.req) {
			found = append(found, sr)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if !a.req.CreatedAt.Equal(b.req.CreatedAt) {
			return a.req.CreatedAt.After(b.req.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]request.MessageRequest, 0, len(found))
	for _, sr := range found {
		out = append(out, cloneRequest(&sr.req))
	}
	return out
}
