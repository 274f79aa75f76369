package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/foliotrack/backend/internal/domain"
	"github.com/foliotrack/backend/internal/outbox"
	"github.com/foliotrack/backend/internal/storage"
)

type eventStore struct {
	db     *sql.DB
	outbox outbox.Outbox
}

// NewEventStore creates an AggregateStore backed by Postgres. The outbox is
// written inside the same transaction as the append, so an event is never
// durable without its outbox entry and never published without being
// durable. It may be nil.
func NewEventStore(db *sql.DB, ob outbox.Outbox) storage.AggregateStore {
	return &eventStore{db: db, outbox: ob}
}

func (s *eventStore) SaveEvents(ctx context.Context, agg domain.Aggregate, entityType domain.EntityType, ownerID string) error {
	changes := agg.Changes()
	if len(changes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Cheap pre-check; the unique index is what actually decides the race.
	var current int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM events WHERE entity_type = $1 AND owner_id = $2 AND aggregate_id = $3",
		entityType, ownerID, agg.GetAggregateID()).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to get current stream version: %w", err)
	}
	if current != agg.GetVersion() {
		return fmt.Errorf("%w: aggregate %s at version %d, expected %d",
			storage.ErrVersionConflict, agg.GetAggregateID(), current, agg.GetVersion())
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO events (id, entity_type, owner_id, aggregate_id, version, event_type, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	version := agg.GetVersion()
	now := time.Now().UTC()
	recs := make([]domain.StoredEvent, 0, len(changes))

	for _, ev := range changes {
		payload, err := domain.EncodeEvent(ev)
		if err != nil {
			return err
		}
		version++
		rec := domain.StoredEvent{
			ID:          uuid.NewString(),
			EntityType:  entityType,
			OwnerID:     ownerID,
			AggregateID: agg.GetAggregateID(),
			Version:     version,
			EventType:   ev.Kind(),
			Payload:     payload,
			CreatedAt:   now,
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.EntityType, rec.OwnerID, rec.AggregateID, rec.Version, rec.EventType, rec.Payload, rec.CreatedAt); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: aggregate %s version %d already written",
					storage.ErrVersionConflict, rec.AggregateID, rec.Version)
			}
			return fmt.Errorf("failed to insert event %s: %w", rec.EventType, err)
		}
		recs = append(recs, rec)
	}

	if s.outbox != nil {
		if err := s.outbox.AddEvents(ctx, tx, recs); err != nil {
			return fmt.Errorf("failed to write outbox entries: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: aggregate %s lost the append race",
				storage.ErrVersionConflict, agg.GetAggregateID())
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	agg.MarkCommitted()
	return nil
}

func (s *eventStore) GetEvents(ctx context.Context, entityType domain.EntityType, ownerID string) ([]domain.Event, error) {
	recs, err := s.GetStoredEvents(ctx, entityType, ownerID)
	if err != nil {
		return nil, err
	}
	events := make([]domain.Event, 0, len(recs))
	for _, rec := range recs {
		ev, err := domain.DecodeEvent(rec.EventType, rec.Payload)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *eventStore) GetStoredEvents(ctx context.Context, entityType domain.EntityType, ownerID string) ([]domain.StoredEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, entity_type, owner_id, aggregate_id, version, event_type, payload, created_at FROM events WHERE entity_type = $1 AND owner_id = $2 ORDER BY seq ASC",
		entityType, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	var recs []domain.StoredEvent
	for rows.Next() {
		var rec domain.StoredEvent
		if err := rows.Scan(&rec.ID, &rec.EntityType, &rec.OwnerID, &rec.AggregateID, &rec.Version, &rec.EventType, &rec.Payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return recs, nil
}

func (s *eventStore) DeleteAggregate(ctx context.Context, entityType domain.EntityType, aggregateID, ownerID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM events WHERE entity_type = $1 AND owner_id = $2 AND aggregate_id = $3",
		entityType, ownerID, aggregateID)
	if err != nil {
		return fmt.Errorf("failed to delete aggregate %s: %w", aggregateID, err)
	}
	return nil
}

func (s *eventStore) DeleteAggregates(ctx context.Context, entityType domain.EntityType, ownerID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM events WHERE entity_type = $1 AND owner_id = $2",
		entityType, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete %s aggregates for owner %s: %w", entityType, ownerID, err)
	}
	return nil
}

func (s *eventStore) HealthCheck(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrBackendUnavailable, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
