package outbox

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/foliotrack/backend/internal/domain"
)

// Memory is an in-process outbox. Batches are delivered asynchronously so a
// slow handler never blocks the append path; each handler is retried with
// exponential backoff and batches that exhaust their retries are parked as
// dead letters instead of being dropped.
//
// Construct one per store (or per test); there is no package-level instance.
type Memory struct {
	// MaxTries bounds delivery attempts per handler before a batch is
	// dead-lettered. Set before first use.
	MaxTries uint
	// InitialInterval seeds the retry backoff. Set before first use.
	InitialInterval time.Duration

	mu       sync.Mutex
	handlers []Handler
	dead     []domain.StoredEvent
	wg       sync.WaitGroup
}

// NewMemory creates an empty in-process outbox.
func NewMemory(handlers ...Handler) *Memory {
	return &Memory{
		MaxTries:        5,
		InitialInterval: 100 * time.Millisecond,
		handlers:        handlers,
	}
}

// Register adds a downstream handler. Not safe to call concurrently with
// AddEvents.
func (o *Memory) Register(h Handler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers = append(o.handlers, h)
}

// AddEvents queues a batch for asynchronous delivery. tx is ignored; the
// in-memory store has no transactions. Never returns an error: delivery
// outcomes are decoupled from the caller by design.
func (o *Memory) AddEvents(ctx context.Context, tx *sql.Tx, recs []domain.StoredEvent) error {
	if len(recs) == 0 {
		return nil
	}
	o.mu.Lock()
	handlers := make([]Handler, len(o.handlers))
	copy(handlers, o.handlers)
	o.mu.Unlock()

	o.wg.Add(1)
	go o.deliver(handlers, recs)
	return nil
}

func (o *Memory) deliver(handlers []Handler, recs []domain.StoredEvent) {
	defer o.wg.Done()
	for _, h := range handlers {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = o.InitialInterval

		operation := func() (struct{}, error) {
			return struct{}{}, h.HandleEvents(context.Background(), recs)
		}
		_, err := backoff.Retry(context.Background(), operation,
			backoff.WithBackOff(bo),
			backoff.WithMaxTries(o.MaxTries),
		)
		if err != nil {
			slog.Error("outbox handler exhausted retries, dead-lettering batch",
				"events", len(recs), "err", err)
			o.mu.Lock()
			o.dead = append(o.dead, recs...)
			o.mu.Unlock()
		}
	}
}

// Wait blocks until every queued batch has been delivered or dead-lettered.
func (o *Memory) Wait() { o.wg.Wait() }

// DeadLetters returns the events whose delivery exhausted all retries.
func (o *Memory) DeadLetters() []domain.StoredEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.StoredEvent, len(o.dead))
	copy(out, o.dead)
	return out
}
