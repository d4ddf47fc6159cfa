package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/playperu/scavengerbot/internal/hunt"
)

// DocStore keeps each sender's progress as a JSONB document in the
// conversation_progress table created by the migrations package.
type DocStore struct {
	db *sql.DB
}

func NewDocStore(db *sql.DB) *DocStore {
	return &DocStore{db: db}
}

func (s *DocStore) Get(ctx context.Context, senderID string) (hunt.Progress, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM conversation_progress WHERE sender_id = ?`, senderID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return hunt.Progress{}, nil
	}
	if err != nil {
		return hunt.Progress{}, fmt.Errorf("loading progress for %s: %w", senderID, err)
	}

	var p hunt.Progress
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return hunt.Progress{}, fmt.Errorf("decoding progress for %s: %w", senderID, err)
	}
	return p, nil
}

func (s *DocStore) Put(ctx context.Context, senderID string, p hunt.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversation_progress (sender_id, data, updated_at)
		VALUES (?, jsonb(?), strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT(sender_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, senderID, string(data))
	if err != nil {
		return fmt.Errorf("saving progress for %s: %w", senderID, err)
	}
	return nil
}

func (s *DocStore) Reset(ctx context.Context, senderID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM conversation_progress WHERE sender_id = ?`, senderID,
	); err != nil {
		return fmt.Errorf("resetting progress for %s: %w", senderID, err)
	}
	return nil
}

func (s *DocStore) Check(ctx context.Context) error { return s.db.PingContext(ctx) }
