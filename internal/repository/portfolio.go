// Package repository layers entity-type-specific queries over the generic
// aggregate store. Lookups read the owner's full stream and group by
// aggregate id; this is O(owner's total event count) per lookup, which is
// fine at personal-portfolio scale. The redesign path, if it ever matters,
// is a secondary index, not a different append contract.
package repository

import (
	"context"

	"github.com/foliotrack/backend/internal/domain"
	"github.com/foliotrack/backend/internal/storage"
)

// groupByAggregate splits an owner's stream into per-aggregate histories,
// preserving both event order within each group and first-seen order of the
// groups themselves.
func groupByAggregate(events []domain.Event) ([]string, map[string][]domain.Event) {
	var ids []string
	groups := make(map[string][]domain.Event)
	for _, ev := range events {
		id := ev.AggregateID()
		if _, ok := groups[id]; !ok {
			ids = append(ids, id)
		}
		groups[id] = append(groups[id], ev)
	}
	return ids, groups
}

// PortfolioStorage wraps the aggregate store for stock, option and crypto
// positions.
type PortfolioStorage struct {
	store storage.AggregateStore
}

// NewPortfolioStorage creates a portfolio repository over the store.
func NewPortfolioStorage(store storage.AggregateStore) *PortfolioStorage {
	return &PortfolioStorage{store: store}
}

// GetStock replays one ticker's history. Returns nil when the owner has no
// events for the ticker; an aggregate is never built from zero events.
func (r *PortfolioStorage) GetStock(ctx context.Context, ticker, ownerID string) (*domain.StockPosition, error) {
	events, err := r.store.GetEvents(ctx, domain.EntityStock, ownerID)
	if err != nil {
		return nil, err
	}
	var own []domain.Event
	for _, ev := range events {
		if ev.AggregateID() == ticker {
			own = append(own, ev)
		}
	}
	if len(own) == 0 {
		return nil, nil
	}
	return domain.NewStockPositionFromEvents(ticker, own)
}

// GetStocks replays every stock position the owner holds.
func (r *PortfolioStorage) GetStocks(ctx context.Context, ownerID string) ([]*domain.StockPosition, error) {
	events, err := r.store.GetEvents(ctx, domain.EntityStock, ownerID)
	if err != nil {
		return nil, err
	}
	ids, groups := groupByAggregate(events)
	stocks := make([]*domain.StockPosition, 0, len(ids))
	for _, id := range ids {
		s, err := domain.NewStockPositionFromEvents(id, groups[id])
		if err != nil {
			return nil, err
		}
		stocks = append(stocks, s)
	}
	return stocks, nil
}

// SaveStock appends the position's uncommitted events.
func (r *PortfolioStorage) SaveStock(ctx context.Context, s *domain.StockPosition, ownerID string) error {
	return r.store.SaveEvents(ctx, s, domain.EntityStock, ownerID)
}

// DeleteStock removes the ticker's entire stream for the owner.
func (r *PortfolioStorage) DeleteStock(ctx context.Context, ticker, ownerID string) error {
	return r.store.DeleteAggregate(ctx, domain.EntityStock, ticker, ownerID)
}

// GetOption replays one option contract. Returns nil when unknown.
func (r *PortfolioStorage) GetOption(ctx context.Context, optionID, ownerID string) (*domain.OptionPosition, error) {
	events, err := r.store.GetEvents(ctx, domain.EntityOption, ownerID)
	if err != nil {
		return nil, err
	}
	var own []domain.Event
	for _, ev := range events {
		if ev.AggregateID() == optionID {
			own = append(own, ev)
		}
	}
	if len(own) == 0 {
		return nil, nil
	}
	return domain.NewOptionPositionFromEvents(optionID, own)
}

// GetOptions replays every option contract the owner holds.
func (r *PortfolioStorage) GetOptions(ctx context.Context, ownerID string) ([]*domain.OptionPosition, error) {
	events, err := r.store.GetEvents(ctx, domain.EntityOption, ownerID)
	if err != nil {
		return nil, err
	}
	ids, groups := groupByAggregate(events)
	options := make([]*domain.OptionPosition, 0, len(ids))
	for _, id := range ids {
		o, err := domain.NewOptionPositionFromEvents(id, groups[id])
		if err != nil {
			return nil, err
		}
		options = append(options, o)
	}
	return options, nil
}

// SaveOption appends the contract's uncommitted events.
func (r *PortfolioStorage) SaveOption(ctx context.Context, o *domain.OptionPosition, ownerID string) error {
	return r.store.SaveEvents(ctx, o, domain.EntityOption, ownerID)
}

// DeleteOption removes the contract's entire stream for the owner.
func (r *PortfolioStorage) DeleteOption(ctx context.Context, optionID, ownerID string) error {
	return r.store.DeleteAggregate(ctx, domain.EntityOption, optionID, ownerID)
}

// GetCrypto replays one token's history. Returns nil when unknown.
func (r *PortfolioStorage) GetCrypto(ctx context.Context, token, ownerID string) (*domain.CryptoPosition, error) {
	events, err := r.store.GetEvents(ctx, domain.EntityCrypto, ownerID)
	if err != nil {
		return nil, err
	}
	var own []domain.Event
	for _, ev := range events {
		if ev.AggregateID() == token {
			own = append(own, ev)
		}
	}
	if len(own) == 0 {
		return nil, nil
	}
	return domain.NewCryptoPositionFromEvents(token, own)
}

// GetCryptos replays every crypto position the owner holds.
func (r *PortfolioStorage) GetCryptos(ctx context.Context, ownerID string) ([]*domain.CryptoPosition, error) {
	events, err := r.store.GetEvents(ctx, domain.EntityCrypto, ownerID)
	if err != nil {
		return nil, err
	}
	ids, groups := groupByAggregate(events)
	cryptos := make([]*domain.CryptoPosition, 0, len(ids))
	for _, id := range ids {
		c, err := domain.NewCryptoPositionFromEvents(id, groups[id])
		if err != nil {
			return nil, err
		}
		cryptos = append(cryptos, c)
	}
	return cryptos, nil
}

// SaveCrypto appends the position's uncommitted events.
func (r *PortfolioStorage) SaveCrypto(ctx context.Context, c *domain.CryptoPosition, ownerID string) error {
	return r.store.SaveEvents(ctx, c, domain.EntityCrypto, ownerID)
}

// DeleteCrypto removes the token's entire stream for the owner.
func (r *PortfolioStorage) DeleteCrypto(ctx context.Context, token, ownerID string) error {
	return r.store.DeleteAggregate(ctx, domain.EntityCrypto, token, ownerID)
}
