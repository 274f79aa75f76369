package domain

import "time"

// EntityType partitions event streams by the kind of aggregate they belong to.
type EntityType string

const (
	EntityStock   EntityType = "stock"
	EntityOption  EntityType = "option"
	EntityCrypto  EntityType = "crypto"
	EntityAlert   EntityType = "alert"
	EntityAccount EntityType = "account"
)

// EntityTypes lists every stream partition, in the order full account
// deletion walks them.
var EntityTypes = []EntityType{EntityStock, EntityOption, EntityCrypto, EntityAlert, EntityAccount}

// EventKind is the stable discriminator stored next to each serialized
// payload. Kinds are part of the on-disk contract: they never encode a Go
// type name, and renaming a kind requires a legacy alias (see codec.go) so
// old streams stay readable.
type EventKind string

// Event is an immutable fact about one aggregate instance. Events are
// created in memory when an aggregate is mutated and become durable, with a
// version number, only when the aggregate is saved.
type Event interface {
	Kind() EventKind
	AggregateID() string
}

// StoredEvent is the persisted form of an Event: the serialized payload plus
// the stream metadata assigned at append time.
type StoredEvent struct {
	ID          string     `json:"id"`
	EntityType  EntityType `json:"entity_type"`
	OwnerID     string     `json:"owner_id"`
	AggregateID string     `json:"aggregate_id"`
	Version     int        `json:"version"`
	EventType   EventKind  `json:"event_type"`
	Payload     []byte     `json:"payload"`
	CreatedAt   time.Time  `json:"created_at"`
}
