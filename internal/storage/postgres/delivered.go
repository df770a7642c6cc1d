package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// DeliveredStore is the append-mostly set of already-delivered entry
// identifiers, each optionally carrying the channel message link it landed as.
type DeliveredStore struct {
	db *sqlx.DB
}

func NewDeliveredStore(db *sqlx.DB) *DeliveredStore {
	return &DeliveredStore{db: db}
}

// Add records a delivered guid. Inserting an existing guid is a no-op.
func (s *DeliveredStore) Add(ctx context.Context, guid string) error {
	query := `
		INSERT INTO delivered_entries (guid)
		VALUES ($1)
		ON CONFLICT (guid) DO NOTHING`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, guid)
	return err
}

func (s *DeliveredStore) IsDelivered(ctx context.Context, guid string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM delivered_entries WHERE guid = $1)", guid)
	return exists, err
}

func (s *DeliveredStore) List(ctx context.Context) ([]string, error) {
	var guids []string
	err := s.db.SelectContext(ctx, &guids, "SELECT guid FROM delivered_entries")
	return guids, err
}

func (s *DeliveredStore) Remove(ctx context.Context, guid string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM delivered_entries WHERE guid = $1", guid)
	return err
}

func (s *DeliveredStore) UpdateMessageLink(ctx context.Context, guid, link string) error {
	query := "UPDATE delivered_entries SET message_link = $1 WHERE guid = $2"

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, link, guid)
	return err
}

func (s *DeliveredStore) GetMessageLink(ctx context.Context, guid string) (string, bool, error) {
	var link sql.NullString
	err := s.db.GetContext(ctx, &link,
		"SELECT message_link FROM delivered_entries WHERE guid = $1", guid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return link.String, link.Valid, nil
}
