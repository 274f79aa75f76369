// Package memory provides an in-memory AggregateStore with the same
// contract as the durable implementation, including version-conflict
// detection. Intended for tests and local development; construct a fresh
// instance per test so nothing leaks across contexts.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foliotrack/backend/internal/domain"
	"github.com/foliotrack/backend/internal/outbox"
	"github.com/foliotrack/backend/internal/storage"
)

type streamKey struct {
	entityType domain.EntityType
	ownerID    string
}

// Store keeps event streams in process memory.
type Store struct {
	mu      sync.Mutex
	streams map[streamKey][]domain.StoredEvent
	outbox  outbox.Outbox
}

// NewStore creates an empty store. The outbox may be nil, in which case
// appended events are not propagated anywhere.
func NewStore(ob outbox.Outbox) *Store {
	return &Store{
		streams: make(map[streamKey][]domain.StoredEvent),
		outbox:  ob,
	}
}

func (s *Store) GetEvents(ctx context.Context, entityType domain.EntityType, ownerID string) ([]domain.Event, error) {
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

func (s *Store) GetStoredEvents(ctx context.Context, entityType domain.EntityType, ownerID string) ([]domain.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stream := s.streams[streamKey{entityType, ownerID}]
	out := make([]domain.StoredEvent, len(stream))
	copy(out, stream)
	return out, nil
}

func (s *Store) SaveEvents(ctx context.Context, agg domain.Aggregate, entityType domain.EntityType, ownerID string) error {
	changes := agg.Changes()
	if len(changes) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	key := streamKey{entityType, ownerID}
	current := 0
	for _, rec := range s.streams[key] {
		if rec.AggregateID == agg.GetAggregateID() {
			current++
		}
	}
	if current != agg.GetVersion() {
		s.mu.Unlock()
		return fmt.Errorf("%w: aggregate %s at version %d, expected %d",
			storage.ErrVersionConflict, agg.GetAggregateID(), current, agg.GetVersion())
	}

	now := time.Now().UTC()
	recs := make([]domain.StoredEvent, 0, len(changes))
	version := agg.GetVersion()
	for _, ev := range changes {
		payload, err := domain.EncodeEvent(ev)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		version++
		recs = append(recs, domain.StoredEvent{
			ID:          uuid.NewString(),
			EntityType:  entityType,
			OwnerID:     ownerID,
			AggregateID: agg.GetAggregateID(),
			Version:     version,
			EventType:   ev.Kind(),
			Payload:     payload,
			CreatedAt:   now,
		})
	}
	s.streams[key] = append(s.streams[key], recs...)
	s.mu.Unlock()

	agg.MarkCommitted()

	if s.outbox != nil {
		// The append already happened; outbox failures have their own
		// retry and dead-letter path and never unwind the save.
		if err := s.outbox.AddEvents(ctx, nil, recs); err != nil {
			slog.Error("failed to hand events to outbox", "owner", ownerID, "err", err)
		}
	}
	return nil
}

func (s *Store) DeleteAggregate(ctx context.Context, entityType domain.EntityType, aggregateID, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := streamKey{entityType, ownerID}
	stream := s.streams[key]
	kept := stream[:0]
	for _, rec := range stream {
		if rec.AggregateID != aggregateID {
			kept = append(kept, rec)
		}
	}
	if len(kept) == 0 {
		delete(s.streams, key)
		return nil
	}
	s.streams[key] = kept
	return nil
}

func (s *Store) DeleteAggregates(ctx context.Context, entityType domain.EntityType, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.streams, streamKey{entityType, ownerID})
	return nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}
