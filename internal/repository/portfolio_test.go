package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliotrack/backend/internal/domain"
	"github.com/foliotrack/backend/internal/storage/memory"
)

var day = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func seedStock(t *testing.T, repo *PortfolioStorage, owner, ticker string, shares int64, price string) {
	t.Helper()
	pos, err := repo.GetStock(context.Background(), ticker, owner)
	require.NoError(t, err)
	if pos == nil {
		pos = domain.NewStockPosition(ticker)
	}
	require.NoError(t, pos.Purchase(decimal.NewFromInt(shares), decimal.RequireFromString(price), day, ""))
	require.NoError(t, repo.SaveStock(context.Background(), pos, owner))
}

func TestPortfolioStorage_GetStockRoundTrip(t *testing.T) {
	repo := NewPortfolioStorage(memory.NewStore(nil))

	seedStock(t, repo, "u1", "AMD", 10, "2.10")

	pos, err := repo.GetStock(context.Background(), "AMD", "u1")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.True(t, pos.SharesOwned.Equal(decimal.NewFromInt(10)))
	assert.True(t, pos.CostBasis.Equal(decimal.RequireFromString("21.00")))
	assert.Equal(t, 1, pos.GetVersion())

	seedStock(t, repo, "u1", "AMD", 5, "2.00")

	pos, err = repo.GetStock(context.Background(), "AMD", "u1")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.True(t, pos.SharesOwned.Equal(decimal.NewFromInt(15)))
	assert.True(t, pos.CostBasis.Equal(decimal.RequireFromString("31.00")))
	assert.Equal(t, 2, pos.GetVersion())
}

func TestPortfolioStorage_GetStockUnknownTickerIsNil(t *testing.T) {
	repo := NewPortfolioStorage(memory.NewStore(nil))

	pos, err := repo.GetStock(context.Background(), "AMD", "u1")
	require.NoError(t, err)
	assert.Nil(t, pos, "an aggregate is never built from zero events")
}

func TestPortfolioStorage_GetStocksGroupsByTicker(t *testing.T) {
	repo := NewPortfolioStorage(memory.NewStore(nil))

	seedStock(t, repo, "u1", "AMD", 10, "2.10")
	seedStock(t, repo, "u1", "NVDA", 3, "100")
	seedStock(t, repo, "u1", "AMD", 5, "2.00")

	stocks, err := repo.GetStocks(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, stocks, 2)

	byTicker := map[string]*domain.StockPosition{}
	for _, s := range stocks {
		byTicker[s.Ticker] = s
	}
	assert.True(t, byTicker["AMD"].SharesOwned.Equal(decimal.NewFromInt(15)))
	assert.True(t, byTicker["NVDA"].SharesOwned.Equal(decimal.NewFromInt(3)))
}

func TestPortfolioStorage_DeleteStockTombstonesAggregate(t *testing.T) {
	repo := NewPortfolioStorage(memory.NewStore(nil))

	seedStock(t, repo, "u1", "AMD", 10, "2.10")
	seedStock(t, repo, "u1", "NVDA", 3, "100")

	require.NoError(t, repo.DeleteStock(context.Background(), "AMD", "u1"))

	pos, err := repo.GetStock(context.Background(), "AMD", "u1")
	require.NoError(t, err)
	assert.Nil(t, pos)

	stocks, err := repo.GetStocks(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	assert.Equal(t, "NVDA", stocks[0].Ticker)
}

func TestPortfolioStorage_OwnersAreIsolated(t *testing.T) {
	repo := NewPortfolioStorage(memory.NewStore(nil))

	seedStock(t, repo, "u1", "AMD", 10, "2.10")

	pos, err := repo.GetStock(context.Background(), "AMD", "u2")
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestPortfolioStorage_OptionsLifecycle(t *testing.T) {
	repo := NewPortfolioStorage(memory.NewStore(nil))

	o := domain.NewOptionPosition("opt-1")
	require.NoError(t, o.Open("AMD", "call", "sell", decimal.NewFromInt(100), decimal.RequireFromString("2.50"), 1, day.AddDate(0, 1, 0), day))
	require.NoError(t, repo.SaveOption(context.Background(), o, "u1"))

	loaded, err := repo.GetOption(context.Background(), "opt-1", "u1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.IsOpen())
	assert.Equal(t, "AMD", loaded.Ticker)

	require.NoError(t, loaded.Close(decimal.RequireFromString("0.50"), day.AddDate(0, 0, 10)))
	require.NoError(t, repo.SaveOption(context.Background(), loaded, "u1"))

	loaded, err = repo.GetOption(context.Background(), "opt-1", "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.OptionStatusClosed, loaded.Status)
	assert.True(t, loaded.PremiumNet.Equal(decimal.NewFromInt(2)), "premium net %s", loaded.PremiumNet)
}
