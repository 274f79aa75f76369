package repository

import (
	"context"
	"time"

	"github.com/foliotrack/backend/internal/domain"
	"github.com/foliotrack/backend/internal/storage"
)

// LoginRecord is one entry in an owner's login log. Login logs are plain
// per-user lists, not event-sourced history.
type LoginRecord struct {
	At        time.Time `json:"at"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
}

// AccountStorage wraps the aggregate store for user accounts and the list
// store for login logs.
type AccountStorage struct {
	store storage.AggregateStore
	logs  storage.ListStore
}

// NewAccountStorage creates an account repository. logs may be nil when
// login logging is not wired.
func NewAccountStorage(store storage.AggregateStore, logs storage.ListStore) *AccountStorage {
	return &AccountStorage{store: store, logs: logs}
}

// GetAccount replays the owner's account stream. Returns nil when the owner
// has no account yet.
func (r *AccountStorage) GetAccount(ctx context.Context, ownerID string) (*domain.Account, error) {
	events, err := r.store.GetEvents(ctx, domain.EntityAccount, ownerID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return domain.NewAccountFromEvents(ownerID, events)
}

// Save appends the account's uncommitted events.
func (r *AccountStorage) Save(ctx context.Context, a *domain.Account, ownerID string) error {
	return r.store.SaveEvents(ctx, a, domain.EntityAccount, ownerID)
}

// Delete removes every stream the owner has, across all entity types. Used
// for full account deletion.
func (r *AccountStorage) Delete(ctx context.Context, ownerID string) error {
	for _, entityType := range domain.EntityTypes {
		if err := r.store.DeleteAggregates(ctx, entityType, ownerID); err != nil {
			return err
		}
	}
	return nil
}

// RecordLogin appends an entry to the owner's login log.
func (r *AccountStorage) RecordLogin(ctx context.Context, ownerID string, rec LoginRecord) error {
	if r.logs == nil {
		return nil
	}
	return r.logs.Append(ctx, ownerID, rec)
}

// RecentLogins returns up to limit most-recent login entries.
func (r *AccountStorage) RecentLogins(ctx context.Context, ownerID string, limit int64) ([]LoginRecord, error) {
	if r.logs == nil {
		return nil, nil
	}
	var recs []LoginRecord
	if err := r.logs.List(ctx, ownerID, limit, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}
