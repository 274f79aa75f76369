package outbox

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/foliotrack/backend/internal/domain"
)

// Postgres is a durable outbox: AddEvents writes one row per event using the
// caller's transaction, so the outbox entry commits atomically with the
// append that produced it. A Dispatcher drains the table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates an outbox over the given database. The outbox table is
// created by the storage migration.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (o *Postgres) AddEvents(ctx context.Context, tx *sql.Tx, recs []domain.StoredEvent) error {
	if len(recs) == 0 {
		return nil
	}
	var execer interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	} = o.db
	if tx != nil {
		execer = tx
	}
	for _, rec := range recs {
		_, err := execer.ExecContext(ctx,
			"INSERT INTO outbox (id, entity_type, owner_id, aggregate_id, version, event_type, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
			rec.ID, rec.EntityType, rec.OwnerID, rec.AggregateID, rec.Version, rec.EventType, rec.Payload, rec.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert outbox entry %s: %w", rec.ID, err)
		}
	}
	return nil
}
