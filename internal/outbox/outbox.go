// Package outbox guarantees that events appended to the aggregate store are
// delivered to downstream consumers at least once. Delivery failures degrade
// to retry and then dead-letter; they never unwind the save that produced
// the events, and they never silently drop a batch.
package outbox

import (
	"context"
	"database/sql"

	"github.com/foliotrack/backend/internal/domain"
)

// Outbox receives newly appended events at commit time. For transactional
// backends tx carries the append's own transaction so the outbox write
// commits or rolls back with it; non-transactional backends pass nil.
type Outbox interface {
	AddEvents(ctx context.Context, tx *sql.Tx, recs []domain.StoredEvent) error
}

// Handler consumes batches of stored events. Delivery is at-least-once, so
// handlers must be idempotent, keyed by the stable event id.
type Handler interface {
	HandleEvents(ctx context.Context, recs []domain.StoredEvent) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, recs []domain.StoredEvent) error

func (f HandlerFunc) HandleEvents(ctx context.Context, recs []domain.StoredEvent) error {
	return f(ctx, recs)
}
