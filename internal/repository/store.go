package repository

import (
	"context"
)

type postgresStore struct {
	db DBTX
}

// NewPostgresStore builds a Store over db. When db is a *sql.Tx every
// repository shares that transaction.
func NewPostgresStore(db DBTX) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) Conversations() ConversationRepository {
	return NewConversationRepository(s.db)
}

func (s *postgresStore) Messages() MessageRepository {
	return NewMessageRepository(s.db)
}

func (s *postgresStore) Requests() RequestRepository {
	return NewRequestRepository(s.db)
}

func (s *postgresStore) Invites() InviteRepository {
	return NewInviteRepository(s.db)
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	return WithTx(ctx, s.db, func(tx DBTX) error {
		return fn(NewPostgresStore(tx))
	})
}
