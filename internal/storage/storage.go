package storage

import (
	"context"
	"errors"

	"github.com/foliotrack/backend/internal/domain"
)

var (
	// ErrNotFound is returned by single-key lookups when nothing is stored
	// under the key. A missing aggregate is a normal state, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when an append races another writer to
	// the same aggregate version. Callers retry the load-mutate-save cycle.
	ErrVersionConflict = errors.New("aggregate version conflict")

	// ErrBackendUnavailable is returned when the backing store cannot be
	// reached. It is fatal to the current operation; retry policy belongs
	// to the caller.
	ErrBackendUnavailable = errors.New("storage backend unavailable")
)

// AggregateStore persists and retrieves ordered event streams keyed by
// (entity type, owner, aggregate id). Appends are strictly append-only;
// committed events are never modified, only whole streams are deleted.
type AggregateStore interface {
	// GetEvents returns every event across all aggregates of entityType
	// owned by ownerID, in append order. Callers group by aggregate id to
	// reconstruct individual instances.
	GetEvents(ctx context.Context, entityType domain.EntityType, ownerID string) ([]domain.Event, error)

	// GetStoredEvents is GetEvents with version and timestamp metadata
	// exposed, for diagnostics and migrations.
	GetStoredEvents(ctx context.Context, entityType domain.EntityType, ownerID string) ([]domain.StoredEvent, error)

	// SaveEvents appends the aggregate's uncommitted events, assigning each
	// the next contiguous version, then hands the new records to the
	// outbox. Saving an aggregate with no new events is a no-op that never
	// reaches the outbox. A concurrent append at the same version fails
	// with ErrVersionConflict.
	SaveEvents(ctx context.Context, agg domain.Aggregate, entityType domain.EntityType, ownerID string) error

	// DeleteAggregate removes every stored event for one aggregate within
	// an owner's stream.
	DeleteAggregate(ctx context.Context, entityType domain.EntityType, aggregateID, ownerID string) error

	// DeleteAggregates removes an owner's entire stream for an entity type.
	DeleteAggregates(ctx context.Context, entityType domain.EntityType, ownerID string) error

	// HealthCheck performs a trivial read and fails if the store is
	// unreachable.
	HealthCheck(ctx context.Context) error
}

// BlobStore is a flat key/value store for precomputed view models and other
// artifacts that are not event-sourced.
type BlobStore interface {
	// Get decodes the value stored under key into dest. Returns ErrNotFound
	// when the key is absent.
	Get(ctx context.Context, key string, dest any) error

	// Save upserts the value under key. A nil value is a programming error,
	// not a delete signal.
	Save(ctx context.Context, key string, value any) error
}

// ListStore keeps simple per-owner append-only lists, used for login logs.
type ListStore interface {
	Append(ctx context.Context, ownerID string, entry any) error
	// List decodes up to limit most-recent entries into dest, which must be
	// a pointer to a slice.
	List(ctx context.Context, ownerID string, limit int64, dest any) error
}
