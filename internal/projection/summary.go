// Package projection maintains precomputed view models fed by the outbox.
package projection

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/foliotrack/backend/internal/domain"
	"github.com/foliotrack/backend/internal/repository"
	"github.com/foliotrack/backend/internal/storage"
)

// PortfolioSummary is the cached per-owner rollup served by the read side.
type PortfolioSummary struct {
	OwnerID         string          `json:"owner_id"`
	StockPositions  int             `json:"stock_positions"`
	OpenOptions     int             `json:"open_options"`
	CryptoPositions int             `json:"crypto_positions"`
	StockCostBasis  decimal.Decimal `json:"stock_cost_basis"`
	CryptoCost      decimal.Decimal `json:"crypto_cost"`
	RealizedGain    decimal.Decimal `json:"realized_gain"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SummaryKey is the blob key for an owner's summary.
func SummaryKey(ownerID string) string { return "portfolio-summary:" + ownerID }

// SummaryProjector is an outbox handler that rebuilds an owner's summary
// whenever any of their portfolio events is delivered. Rebuilding from the
// stream rather than folding the delivered batch makes redelivery harmless,
// which is what at-least-once requires of us.
type SummaryProjector struct {
	portfolio *repository.PortfolioStorage
	blobs     storage.BlobStore
}

// NewSummaryProjector creates a projector over the portfolio repository and
// blob store.
func NewSummaryProjector(portfolio *repository.PortfolioStorage, blobs storage.BlobStore) *SummaryProjector {
	return &SummaryProjector{portfolio: portfolio, blobs: blobs}
}

func (p *SummaryProjector) HandleEvents(ctx context.Context, recs []domain.StoredEvent) error {
	owners := make(map[string]bool)
	for _, rec := range recs {
		switch rec.EntityType {
		case domain.EntityStock, domain.EntityOption, domain.EntityCrypto:
			owners[rec.OwnerID] = true
		}
	}
	for ownerID := range owners {
		if err := p.rebuild(ctx, ownerID); err != nil {
			return err
		}
	}
	return nil
}

func (p *SummaryProjector) rebuild(ctx context.Context, ownerID string) error {
	stocks, err := p.portfolio.GetStocks(ctx, ownerID)
	if err != nil {
		return err
	}
	options, err := p.portfolio.GetOptions(ctx, ownerID)
	if err != nil {
		return err
	}
	cryptos, err := p.portfolio.GetCryptos(ctx, ownerID)
	if err != nil {
		return err
	}

	summary := PortfolioSummary{
		OwnerID:   ownerID,
		UpdatedAt: time.Now().UTC(),
	}
	for _, s := range stocks {
		if s.SharesOwned.IsPositive() {
			summary.StockPositions++
		}
		summary.StockCostBasis = summary.StockCostBasis.Add(s.CostBasis)
		summary.RealizedGain = summary.RealizedGain.Add(s.RealizedGain)
	}
	for _, o := range options {
		if o.IsOpen() {
			summary.OpenOptions++
		}
	}
	for _, c := range cryptos {
		if c.Quantity.IsPositive() {
			summary.CryptoPositions++
		}
		summary.CryptoCost = summary.CryptoCost.Add(c.DollarCost)
	}

	if err := p.blobs.Save(ctx, SummaryKey(ownerID), summary); err != nil {
		return err
	}
	slog.Debug("Portfolio summary rebuilt", "owner", ownerID)
	return nil
}
