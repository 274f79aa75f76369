package domain

// Aggregate is a domain object whose state is derived entirely by replaying
// its ordered event history. Version counts the events already persisted;
// Changes returns the events recorded since the last save.
type Aggregate interface {
	GetAggregateID() string
	GetVersion() int
	Changes() []Event
	MarkCommitted()
}

// AggregateBase provides the event list and version bookkeeping shared by
// every aggregate.
type AggregateBase struct {
	ID      string
	Version int

	events []Event
}

func (a *AggregateBase) GetAggregateID() string { return a.ID }

func (a *AggregateBase) GetVersion() int { return a.Version }

// Events returns the full in-memory history, persisted and pending.
func (a *AggregateBase) Events() []Event { return a.events }

// Changes returns the events recorded since the aggregate was loaded.
func (a *AggregateBase) Changes() []Event { return a.events[a.Version:] }

// MarkCommitted records that every in-memory event is now persisted. Called
// by the aggregate store after a successful append.
func (a *AggregateBase) MarkCommitted() { a.Version = len(a.events) }

func (a *AggregateBase) record(e Event) { a.events = append(a.events, e) }
