package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"feed_poster/internal/domain"
)

// UserStore holds the tracked source accounts, keyed by provider kind.
type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Add(ctx context.Context, userID string, kind domain.SourceKind) error {
	query := `
		INSERT INTO tracked_users (user_id, kind)
		VALUES ($1, $2)
		ON CONFLICT (user_id, kind) DO NOTHING`

	_, err := s.db.ExecContext(ctx, query, userID, string(kind))
	return err
}

func (s *UserStore) Remove(ctx context.Context, userIDs []string, kind domain.SourceKind) error {
	if len(userIDs) == 0 {
		return nil
	}

	query := "DELETE FROM tracked_users WHERE user_id = ANY($1) AND kind = $2"

	_, err := s.db.ExecContext(ctx, query, pq.Array(userIDs), string(kind))
	return err
}

func (s *UserStore) List(ctx context.Context, kind domain.SourceKind) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		"SELECT user_id FROM tracked_users WHERE kind = $1 ORDER BY user_id", string(kind))
	return ids, err
}

func (s *UserStore) Exists(ctx context.Context, userID string, kind domain.SourceKind) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM tracked_users WHERE user_id = $1 AND kind = $2)",
		userID, string(kind))
	return exists, err
}
