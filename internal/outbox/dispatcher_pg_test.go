package outbox_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliotrack/backend/internal/domain"
	"github.com/foliotrack/backend/internal/outbox"
	"github.com/foliotrack/backend/internal/storage/postgres"
)

// countingHandler fails its first failFor calls, then accepts everything.
type countingHandler struct {
	failFor int
	calls   int
}

func (h *countingHandler) HandleEvents(ctx context.Context, recs []domain.StoredEvent) error {
	h.calls++
	if h.calls <= h.failFor {
		return errors.New("downstream unavailable")
	}
	return nil
}

// outboxDB connects to the database named by TEST_DATABASE_URL and starts
// from an empty outbox table. Skipped when the variable is unset.
func outboxDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := postgres.InitDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec("DELETE FROM outbox")
	require.NoError(t, err)
	return db
}

func seedEntry(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	err := outbox.NewPostgres(db).AddEvents(context.Background(), nil, []domain.StoredEvent{{
		ID:          id,
		EntityType:  domain.EntityStock,
		OwnerID:     "u1",
		AggregateID: "AMD",
		Version:     1,
		EventType:   domain.KindStockPurchased,
		Payload:     []byte(`{}`),
		CreatedAt:   time.Now().UTC(),
	}})
	require.NoError(t, err)
}

func entryState(t *testing.T, db *sql.DB, id string) (status string, attempts int) {
	t.Helper()
	err := db.QueryRow("SELECT status, attempts FROM outbox WHERE id = $1", id).Scan(&status, &attempts)
	require.NoError(t, err)
	return status, attempts
}

func TestDispatcher_PublishesPendingEntries(t *testing.T) {
	db := outboxDB(t)
	seedEntry(t, db, "e1")

	handler := &countingHandler{}
	d := outbox.NewDispatcher(db, outbox.DispatcherConfig{BaseDelay: time.Millisecond}, handler)
	require.NoError(t, d.Drain(context.Background()))

	status, attempts := entryState(t, db, "e1")
	assert.Equal(t, "published", status)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, handler.calls)
}

func TestDispatcher_ReschedulesFailedEntriesThenDelivers(t *testing.T) {
	db := outboxDB(t)
	seedEntry(t, db, "e1")

	handler := &countingHandler{failFor: 1}
	d := outbox.NewDispatcher(db, outbox.DispatcherConfig{BaseDelay: time.Millisecond}, handler)

	require.NoError(t, d.Drain(context.Background()))
	status, attempts := entryState(t, db, "e1")
	assert.Equal(t, "pending", status, "failed entry stays pending")
	assert.Equal(t, 1, attempts)

	// A second pass before the entry is due finds nothing to claim.
	_, err := db.Exec("UPDATE outbox SET next_attempt_at = NOW() + INTERVAL '1 hour' WHERE id = $1", "e1")
	require.NoError(t, err)
	require.NoError(t, d.Drain(context.Background()))
	assert.Equal(t, 1, handler.calls, "entry not due is not redelivered")

	// Once due, the entry is delivered and marked published.
	_, err = db.Exec("UPDATE outbox SET next_attempt_at = NOW() WHERE id = $1", "e1")
	require.NoError(t, err)
	require.NoError(t, d.Drain(context.Background()))

	status, attempts = entryState(t, db, "e1")
	assert.Equal(t, "published", status)
	assert.Equal(t, 2, attempts)
}

func TestDispatcher_DeadLettersAfterMaxAttempts(t *testing.T) {
	db := outboxDB(t)
	seedEntry(t, db, "e1")

	handler := &countingHandler{failFor: 100}
	d := outbox.NewDispatcher(db, outbox.DispatcherConfig{MaxAttempts: 1, BaseDelay: time.Millisecond}, handler)
	require.NoError(t, d.Drain(context.Background()))

	status, attempts := entryState(t, db, "e1")
	assert.Equal(t, "dead", status)
	assert.Equal(t, 1, attempts)

	// Dead entries are parked, never claimed again.
	require.NoError(t, d.Drain(context.Background()))
	assert.Equal(t, 1, handler.calls)
}
