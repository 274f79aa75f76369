package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliotrack/backend/internal/domain"
	"github.com/foliotrack/backend/internal/repository"
	"github.com/foliotrack/backend/internal/storage"
	"github.com/foliotrack/backend/internal/storage/memory"
)

var tradeDay = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newPortfolioService() *PortfolioService {
	return NewPortfolioService(repository.NewPortfolioStorage(memory.NewStore(nil)))
}

func TestPortfolioService_BuyThenSellStock(t *testing.T) {
	svc := newPortfolioService()
	ctx := context.Background()

	pos, err := svc.BuyStock(ctx, "u1", "AMD", decimal.NewFromInt(10), decimal.RequireFromString("2.10"), tradeDay, "")
	require.NoError(t, err)
	assert.True(t, pos.SharesOwned.Equal(decimal.NewFromInt(10)))

	pos, err = svc.SellStock(ctx, "u1", "AMD", decimal.NewFromInt(4), decimal.NewFromInt(3), tradeDay.AddDate(0, 0, 1), "")
	require.NoError(t, err)
	assert.True(t, pos.SharesOwned.Equal(decimal.NewFromInt(6)))

	stocks, err := svc.GetStocks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	assert.Equal(t, 2, stocks[0].GetVersion())
}

func TestPortfolioService_SellUnknownStockIsNotFound(t *testing.T) {
	svc := newPortfolioService()

	_, err := svc.SellStock(context.Background(), "u1", "AMD", decimal.NewFromInt(1), decimal.NewFromInt(3), tradeDay, "")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPortfolioService_BuyStockDefaultsTimestamp(t *testing.T) {
	svc := newPortfolioService()

	pos, err := svc.BuyStock(context.Background(), "u1", "AMD", decimal.NewFromInt(1), decimal.NewFromInt(2), time.Time{}, "")
	require.NoError(t, err)
	assert.False(t, pos.FirstBuy.IsZero(), "a zero trade date falls back to now")
}

func TestPortfolioService_DeleteStockRemovesPosition(t *testing.T) {
	svc := newPortfolioService()
	ctx := context.Background()

	_, err := svc.BuyStock(ctx, "u1", "AMD", decimal.NewFromInt(10), decimal.NewFromInt(2), tradeDay, "")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteStock(ctx, "u1", "AMD"))

	stocks, err := svc.GetStocks(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, stocks)
}

func TestPortfolioService_OptionLifecycle(t *testing.T) {
	svc := newPortfolioService()
	ctx := context.Background()

	opened, err := svc.OpenOption(ctx, "u1", "AMD", "put", "sell", decimal.NewFromInt(90), decimal.RequireFromString("1.50"), 2, tradeDay.AddDate(0, 1, 0), tradeDay)
	require.NoError(t, err)
	require.NotEmpty(t, opened.ID)
	assert.True(t, opened.IsOpen())

	closed, err := svc.CloseOption(ctx, "u1", opened.ID, decimal.RequireFromString("0.30"), tradeDay.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, domain.OptionStatusClosed, closed.Status)

	// A closed contract cannot be expired.
	_, err = svc.ExpireOption(ctx, "u1", opened.ID, tradeDay.AddDate(0, 1, 0))
	require.Error(t, err)
}

func TestPortfolioService_MutateUnknownOptionIsNotFound(t *testing.T) {
	svc := newPortfolioService()

	_, err := svc.CloseOption(context.Background(), "u1", "missing", decimal.NewFromInt(1), tradeDay)
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = svc.AssignOption(context.Background(), "u1", "missing", tradeDay)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPortfolioService_BuyThenSellCrypto(t *testing.T) {
	svc := newPortfolioService()
	ctx := context.Background()

	pos, err := svc.BuyCrypto(ctx, "u1", "BTC", decimal.RequireFromString("0.5"), decimal.NewFromInt(20000), tradeDay)
	require.NoError(t, err)
	assert.True(t, pos.Quantity.Equal(decimal.RequireFromString("0.5")))

	pos, err = svc.SellCrypto(ctx, "u1", "BTC", decimal.RequireFromString("0.2"), decimal.NewFromInt(9000), tradeDay.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, pos.Quantity.Equal(decimal.RequireFromString("0.3")))

	_, err = svc.SellCrypto(ctx, "u1", "ETH", decimal.NewFromInt(1), decimal.NewFromInt(100), tradeDay)
	require.ErrorIs(t, err, storage.ErrNotFound)
}
