package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// StockPosition is the aggregate for one owned ticker. Its aggregate id is
// the ticker symbol, so an owner holds at most one position per ticker.
type StockPosition struct {
	AggregateBase
	Ticker       string
	SharesOwned  decimal.Decimal
	CostBasis    decimal.Decimal
	RealizedGain decimal.Decimal
	Notes        string
	FirstBuy     time.Time
}

// NewStockPosition creates an empty position for a ticker.
func NewStockPosition(ticker string) *StockPosition {
	return &StockPosition{
		AggregateBase: AggregateBase{ID: ticker},
		Ticker:        ticker,
	}
}

// NewStockPositionFromEvents replays a stored history into a position.
func NewStockPositionFromEvents(ticker string, events []Event) (*StockPosition, error) {
	s := NewStockPosition(ticker)
	for _, e := range events {
		if err := s.apply(e); err != nil {
			return nil, fmt.Errorf("failed to replay stock %s: %w", ticker, err)
		}
		s.record(e)
	}
	s.MarkCommitted()
	return s, nil
}

// AverageCost returns the cost basis per share, zero when nothing is owned.
func (s *StockPosition) AverageCost() decimal.Decimal {
	if s.SharesOwned.IsZero() {
		return decimal.Zero
	}
	return s.CostBasis.Div(s.SharesOwned)
}

// Purchase records a buy of shares at the given price per share.
func (s *StockPosition) Purchase(shares, price decimal.Decimal, at time.Time, notes string) error {
	if !shares.IsPositive() {
		return fmt.Errorf("purchase of %s requires a positive number of shares", s.Ticker)
	}
	if price.IsNegative() {
		return fmt.Errorf("purchase of %s requires a non-negative price", s.Ticker)
	}
	return s.emit(StockPurchased{
		Ticker:      s.Ticker,
		Shares:      shares,
		Price:       price,
		PurchasedAt: at,
		Notes:       notes,
	})
}

// Sell records a sale of shares at the given price per share.
func (s *StockPosition) Sell(shares, price decimal.Decimal, at time.Time, notes string) error {
	if !shares.IsPositive() {
		return fmt.Errorf("sale of %s requires a positive number of shares", s.Ticker)
	}
	if shares.GreaterThan(s.SharesOwned) {
		return fmt.Errorf("cannot sell %s shares of %s, only %s owned", shares, s.Ticker, s.SharesOwned)
	}
	return s.emit(StockSold{
		Ticker: s.Ticker,
		Shares: shares,
		Price:  price,
		SoldAt: at,
		Notes:  notes,
	})
}

// SetNotes replaces the notes attached to the position.
func (s *StockPosition) SetNotes(notes string) error {
	if notes == s.Notes {
		return nil
	}
	return s.emit(StockNotesSet{Ticker: s.Ticker, Notes: notes})
}

func (s *StockPosition) emit(e Event) error {
	if err := s.apply(e); err != nil {
		return err
	}
	s.record(e)
	return nil
}

func (s *StockPosition) apply(ev Event) error {
	switch e := ev.(type) {
	case StockPurchased:
		if s.FirstBuy.IsZero() {
			s.FirstBuy = e.PurchasedAt
		}
		s.SharesOwned = s.SharesOwned.Add(e.Shares)
		s.CostBasis = s.CostBasis.Add(e.Shares.Mul(e.Price))
	case StockSold:
		avg := s.AverageCost()
		s.SharesOwned = s.SharesOwned.Sub(e.Shares)
		s.CostBasis = s.CostBasis.Sub(e.Shares.Mul(avg))
		s.RealizedGain = s.RealizedGain.Add(e.Shares.Mul(e.Price.Sub(avg)))
	case StockNotesSet:
		s.Notes = e.Notes
	default:
		return fmt.Errorf("unknown event type for StockPosition: %s", ev.Kind())
	}
	return nil
}
