package postgres

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

// InitDB opens a Postgres connection and applies the schema.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("Database connected and migrated")
	return db, nil
}

func migrateDB(db *sql.DB) error {
	// The unique index on (entity_type, owner_id, aggregate_id, version) is
	// the compare-and-swap that rejects concurrent writers; seq preserves
	// append order across all of an owner's aggregates.
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			aggregate_id TEXT NOT NULL,
			version INT NOT NULL,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS events_stream_version
			ON events (entity_type, owner_id, aggregate_id, version);

		CREATE TABLE IF NOT EXISTS blobs (
			key TEXT PRIMARY KEY,
			value JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS outbox (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			aggregate_id TEXT NOT NULL,
			version INT NOT NULL,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS outbox_pending
			ON outbox (next_attempt_at) WHERE status = 'pending';
	`)
	return err
}
