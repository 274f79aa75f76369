// Package messaging connects the storage core to the message broker: the
// outbox dispatcher pushes stored events out through Publisher, and
// Subscriber feeds external observations, such as price ticks, back into
// the services.
package messaging

import "context"

// Publisher publishes one keyed message to a topic.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// Subscriber consumes a topic as part of a consumer group, invoking the
// handler once per message. Blocks until ctx is cancelled.
type Subscriber interface {
	Consume(ctx context.Context, topic string, groupID string, handler func(ctx context.Context, payload []byte) error)
}
