package messaging

import (
	"context"
	"fmt"

	"github.com/foliotrack/backend/internal/domain"
)

// EventPublisher bridges the outbox to a message broker: each stored event
// becomes one message on a per-entity-type topic, keyed by owner and
// aggregate so one aggregate's events stay ordered within a partition.
// Consumers dedupe on the stable event id.
type EventPublisher struct {
	pub         Publisher
	topicPrefix string
}

// NewEventPublisher creates the bridge. Topics are named
// "<prefix>.<entity_type>".
func NewEventPublisher(pub Publisher, topicPrefix string) *EventPublisher {
	return &EventPublisher{pub: pub, topicPrefix: topicPrefix}
}

// HandleEvents publishes a batch, stopping at the first failure so the
// outbox retries the whole batch.
func (p *EventPublisher) HandleEvents(ctx context.Context, recs []domain.StoredEvent) error {
	for _, rec := range recs {
		topic := fmt.Sprintf("%s.%s", p.topicPrefix, rec.EntityType)
		key := fmt.Sprintf("%s/%s", rec.OwnerID, rec.AggregateID)
		if err := p.pub.PublishEvent(ctx, topic, key, rec); err != nil {
			return fmt.Errorf("failed to publish event %s: %w", rec.ID, err)
		}
	}
	return nil
}
