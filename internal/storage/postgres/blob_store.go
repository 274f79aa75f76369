package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/foliotrack/backend/internal/storage"
)

type blobStore struct {
	db *sql.DB
}

// NewBlobStore creates a BlobStore on the same Postgres engine as the event
// store.
func NewBlobStore(db *sql.DB) storage.BlobStore {
	return &blobStore{db: db}
}

func (s *blobStore) Get(ctx context.Context, key string, dest any) error {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM blobs WHERE key = $1", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: blob %q", storage.ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("failed to load blob %q: %w", key, err)
	}
	if err := json.Unmarshal(value, dest); err != nil {
		return fmt.Errorf("failed to decode blob %q: %w", key, err)
	}
	return nil
}

func (s *blobStore) Save(ctx context.Context, key string, value any) error {
	if value == nil {
		return fmt.Errorf("blob store: nil value for key %q", key)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode blob %q: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO blobs (key, value, updated_at) VALUES ($1, $2, NOW()) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()",
		key, payload)
	if err != nil {
		return fmt.Errorf("failed to save blob %q: %w", key, err)
	}
	return nil
}
