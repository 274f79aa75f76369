package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/foliotrack/backend/internal/domain"
)

// DispatcherConfig tunes the polling publisher.
type DispatcherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	// BaseDelay seeds the exponential retry schedule: a failed entry is
	// retried after BaseDelay << attempts.
	BaseDelay time.Duration
}

// nextRetry decides the fate of an entry whose delivery just failed, given
// its attempt count including the failure: dead when the attempts are
// exhausted, otherwise the delay before the next attempt.
func (c DispatcherConfig) nextRetry(attempts int) (delay time.Duration, dead bool) {
	if attempts >= c.MaxAttempts {
		return 0, true
	}
	return c.BaseDelay << attempts, false
}

// Dispatcher drains the durable outbox table and delivers pending entries to
// the registered handlers at least once. Entries whose delivery keeps
// failing are retried on an exponential schedule and marked dead after
// MaxAttempts; they stay in the table for inspection, never silently
// dropped. FOR UPDATE SKIP LOCKED makes concurrent dispatchers safe.
type Dispatcher struct {
	db       *sql.DB
	handlers []Handler
	cfg      DispatcherConfig
}

// NewDispatcher creates a dispatcher over the outbox table.
func NewDispatcher(db *sql.DB, cfg DispatcherConfig, handlers ...Handler) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	return &Dispatcher{db: db, handlers: handlers, cfg: cfg}
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	slog.Info("Outbox dispatcher started", "poll_interval", d.cfg.PollInterval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox dispatcher shutting down")
			return
		case <-ticker.C:
			if err := d.Drain(ctx); err != nil {
				slog.Error("Outbox drain failed", "err", err)
			}
		}
	}
}

// Drain claims one batch of due entries and delivers it. Exposed separately
// so operators and tests can force a pass without waiting for the ticker.
func (d *Dispatcher) Drain(ctx context.Context) error {
	for {
		n, err := d.drainBatch(ctx)
		if err != nil || n == 0 {
			return err
		}
	}
}

func (d *Dispatcher) drainBatch(ctx context.Context) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin outbox transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT seq, id, entity_type, owner_id, aggregate_id, version, event_type, payload, attempts, created_at
		FROM outbox
		WHERE status = 'pending' AND next_attempt_at <= NOW()
		ORDER BY seq ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, d.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim outbox batch: %w", err)
	}

	type entry struct {
		seq      int64
		attempts int
		rec      domain.StoredEvent
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.seq, &e.rec.ID, &e.rec.EntityType, &e.rec.OwnerID, &e.rec.AggregateID, &e.rec.Version, &e.rec.EventType, &e.rec.Payload, &e.attempts, &e.rec.CreatedAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating outbox rows: %w", err)
	}
	if len(entries) == 0 {
		return 0, tx.Commit()
	}

	recs := make([]domain.StoredEvent, len(entries))
	for i, e := range entries {
		recs[i] = e.rec
	}

	if deliverErr := d.deliver(ctx, recs); deliverErr != nil {
		for _, e := range entries {
			attempts := e.attempts + 1
			delay, dead := d.cfg.nextRetry(attempts)
			if dead {
				if _, err := tx.ExecContext(ctx,
					"UPDATE outbox SET status = 'dead', attempts = $1 WHERE seq = $2",
					attempts, e.seq); err != nil {
					return 0, fmt.Errorf("failed to dead-letter outbox entry: %w", err)
				}
				slog.Error("Outbox entry dead-lettered",
					"event_id", e.rec.ID, "event_type", e.rec.EventType, "attempts", attempts)
				continue
			}
			if _, err := tx.ExecContext(ctx,
				"UPDATE outbox SET attempts = $1, next_attempt_at = NOW() + $2 * INTERVAL '1 millisecond' WHERE seq = $3",
				attempts, delay.Milliseconds(), e.seq); err != nil {
				return 0, fmt.Errorf("failed to reschedule outbox entry: %w", err)
			}
		}
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("failed to commit outbox retry state: %w", err)
		}
		slog.Warn("Outbox delivery failed, batch rescheduled", "events", len(entries), "err", deliverErr)
		return 0, nil
	}

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			"UPDATE outbox SET status = 'published', attempts = attempts + 1 WHERE seq = $1",
			e.seq); err != nil {
			return 0, fmt.Errorf("failed to mark outbox entry published: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit outbox batch: %w", err)
	}
	return len(entries), nil
}

func (d *Dispatcher) deliver(ctx context.Context, recs []domain.StoredEvent) error {
	for _, h := range d.handlers {
		if err := h.HandleEvents(ctx, recs); err != nil {
			return err
		}
	}
	return nil
}
