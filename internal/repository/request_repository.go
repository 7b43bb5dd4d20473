package repository

import (
	"context"
	"time"

	"sentinal-social/internal/domain/request"
	sentinal_errors "sentinal-social/pkg/errors"

	"github.com/google/uuid"
)

type requestRepository struct {
	db DBTX
}

func NewRequestRepository(db DBTX) RequestRepository {
	return &requestRepository{db: db}
}

const requestColumns = `id, sender_id, receiver_id, status, created_at, responded_at`

func scanRequest(row rowScanner) (request.MessageRequest, error) {
	var (
		req    request.MessageRequest
		status string
	)
	if err := row.Scan(&req.ID, &req.SenderID, &req.ReceiverID, &status, &req.CreatedAt, &req.RespondedAt); err != nil {
		return request.MessageRequest{}, err
	}
	req.Status = request.Status(status)
	return req, nil
}

// Create relies on the partial unique index over pending pairs. ON CONFLICT
// keeps an enclosing transaction usable when the pair already has one.
func (r *requestRepository) Create(ctx context.Context, req *request.MessageRequest) error {
	return WithTx(ctx, r.db, func(tx DBTX) error {
		res, err := tx.ExecContext(ctx, `
            INSERT INTO message_requests (id, sender_id, receiver_id, status, created_at)
            VALUES ($1,$2,$3,$4,$5)
            ON CONFLICT (sender_id, receiver_id) WHERE status = 'PENDING' DO NOTHING
        `, req.ID, req.SenderID, req.ReceiverID, string(req.Status), req.CreatedAt)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sentinal_errors.ErrAlreadyExists
		}
		for _, msgID := range req.MessageIDs {
			if err := appendItem(ctx, tx, req.ID, msgID); err != nil {
				return err
			}
		}
		return nil
	})
}

func appendItem(ctx context.Context, db DBTX, requestID, messageID uuid.UUID) error {
	_, err := db.ExecContext(ctx, `
        INSERT INTO message_request_items (request_id, message_id)
        VALUES ($1,$2)
        ON CONFLICT (request_id, message_id) DO NOTHING
    `, requestID, messageID)
	return err
}

func (r *requestRepository) GetByID(ctx context.Context, id uuid.UUID) (request.MessageRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM message_requests WHERE id = $1`, id)
	return r.one(ctx, row)
}

func (r *requestRepository) FindPending(ctx context.Context, senderID, receiverID uuid.UUID) (request.MessageRequest, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+requestColumns+` FROM message_requests
        WHERE sender_id = $1 AND receiver_id = $2 AND status = 'PENDING'
    `, senderID, receiverID)
	return r.one(ctx, row)
}

func (r *requestRepository) one(ctx context.Context, row rowScanner) (request.MessageRequest, error) {
	req, err := scanRequest(row)
	if err != nil {
		return request.MessageRequest{}, notFoundIfNoRows(err)
	}
	reqs := []request.MessageRequest{req}
	if err := r.loadItems(ctx, reqs); err != nil {
		return request.MessageRequest{}, err
	}
	return reqs[0], nil
}

func (r *requestRepository) AppendMessage(ctx context.Context, requestID, messageID uuid.UUID) error {
	return appendItem(ctx, r.db, requestID, messageID)
}

func (r *requestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status request.Status, respondedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE message_requests SET status = $2, responded_at = $3
        WHERE id = $1 AND status = 'PENDING'
    `, id, string(status), respondedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *requestRepository) ClearMessages(ctx context.Context, requestID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM message_request_items WHERE request_id = $1`, requestID)
	return err
}

func (r *requestRepository) ListIncoming(ctx context.Context, receiverID uuid.UUID) ([]request.MessageRequest, error) {
	return r.list(ctx, `
        SELECT `+requestColumns+` FROM message_requests
        WHERE receiver_id = $1 AND status = 'PENDING'
        ORDER BY created_at DESC
    `, receiverID)
}

func (r *requestRepository) ListOutgoing(ctx context.Context, senderID uuid.UUID) ([]request.MessageRequest, error) {
	return r.list(ctx, `
        SELECT `+requestColumns+` FROM message_requests
        WHERE sender_id = $1
        ORDER BY created_at DESC
    `, senderID)
}

func (r *requestRepository) list(ctx context.Context, q string, args ...interface{}) ([]request.MessageRequest, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []request.MessageRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *requestRepository) loadItems(ctx context.Context, reqs []request.MessageRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	index := make(map[uuid.UUID]int, len(reqs))
	ids := make([]uuid.UUID, len(reqs))
	for i := range reqs {
		index[reqs[i].ID] = i
		ids[i] = reqs[i].ID
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT request_id, message_id FROM message_request_items
        WHERE request_id IN (`+buildPlaceholders(1, len(ids))+`)
        ORDER BY position ASC
    `, uuidArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var reqID, msgID uuid.UUID
		if err := rows.Scan(&reqID, &msgID); err != nil {
			return err
		}
		req := &reqs[index[reqID]]
		req.MessageIDs = append(req.MessageIDs, msgID)
	}
	return rows.Err()
}
