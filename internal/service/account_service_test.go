package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliotrack/backend/internal/repository"
	"github.com/foliotrack/backend/internal/storage"
	"github.com/foliotrack/backend/internal/storage/memory"
)

// fakeListStore keeps per-owner lists in memory, newest first, mirroring the
// LPUSH/LRANGE contract of the real list store.
type fakeListStore struct {
	lists map[string][]json.RawMessage
}

func newFakeListStore() *fakeListStore {
	return &fakeListStore{lists: make(map[string][]json.RawMessage)}
}

func (f *fakeListStore) Append(ctx context.Context, ownerID string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.lists[ownerID] = append([]json.RawMessage{raw}, f.lists[ownerID]...)
	return nil
}

func (f *fakeListStore) List(ctx context.Context, ownerID string, limit int64, dest any) error {
	entries := f.lists[ownerID]
	if limit > 0 && int64(len(entries)) > limit {
		entries = entries[:limit]
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func newAccountService(logs storage.ListStore) (*AccountService, *memory.Store) {
	store := memory.NewStore(nil)
	return NewAccountService(repository.NewAccountStorage(store, logs)), store
}

func TestAccountService_CreateIsIdempotent(t *testing.T) {
	svc, _ := newAccountService(nil)
	ctx := context.Background()

	first, err := svc.CreateAccount(ctx, "u1", "me@example.com")
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", first.Email)

	second, err := svc.CreateAccount(ctx, "u1", "other@example.com")
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", second.Email, "repeat creation returns the existing account")
	assert.Equal(t, 1, second.GetVersion())
}

func TestAccountService_GetUnknownAccountIsNotFound(t *testing.T) {
	svc, _ := newAccountService(nil)

	_, err := svc.GetAccount(context.Background(), "u1")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAccountService_ChangeEmail(t *testing.T) {
	svc, _ := newAccountService(nil)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, "u1", "me@example.com")
	require.NoError(t, err)

	changed, err := svc.ChangeEmail(ctx, "u1", "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", changed.Email)

	// Changing to the current address records nothing new.
	same, err := svc.ChangeEmail(ctx, "u1", "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, changed.GetVersion(), same.GetVersion())
}

func TestAccountService_LoginLogRoundTrip(t *testing.T) {
	svc, _ := newAccountService(newFakeListStore())
	ctx := context.Background()

	require.NoError(t, svc.RecordLogin(ctx, "u1", "10.0.0.1", "curl/8.0"))
	require.NoError(t, svc.RecordLogin(ctx, "u1", "10.0.0.2", "firefox"))

	logins, err := svc.RecentLogins(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, logins, 2)
	assert.Equal(t, "10.0.0.2", logins[0].IP, "newest entry first")
	assert.Equal(t, "10.0.0.1", logins[1].IP)

	capped, err := svc.RecentLogins(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Len(t, capped, 1)
}

func TestAccountService_DeleteRemovesEveryStream(t *testing.T) {
	svc, store := newAccountService(nil)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, "u1", "me@example.com")
	require.NoError(t, err)

	// The owner also holds positions in other entity types.
	portfolio := NewPortfolioService(repository.NewPortfolioStorage(store))
	_, err = portfolio.BuyStock(ctx, "u1", "AMD", decimal.NewFromInt(10), decimal.NewFromInt(2), tradeDay, "")
	require.NoError(t, err)
	_, err = portfolio.BuyCrypto(ctx, "u1", "BTC", decimal.NewFromInt(1), decimal.NewFromInt(100), tradeDay)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, "u1"))

	_, err = svc.GetAccount(ctx, "u1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	stocks, err := portfolio.GetStocks(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, stocks)
	cryptos, err := portfolio.GetCryptos(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cryptos)
}

func TestAccountService_DeleteUnknownAccountIsNotFound(t *testing.T) {
	svc, _ := newAccountService(nil)

	err := svc.DeleteAccount(context.Background(), "u1")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
