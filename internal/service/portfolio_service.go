package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/backend/internal/domain"
	"github.com/foliotrack/backend/internal/repository"
	"github.com/foliotrack/backend/internal/storage"
)

// withConflictRetry runs one load-mutate-save cycle and repeats it once if
// the append lost a version race. fn must reload the aggregate itself.
func withConflictRetry(fn func() error) error {
	err := fn()
	if errors.Is(err, storage.ErrVersionConflict) {
		slog.Warn("Version conflict, retrying command", "err", err)
		return fn()
	}
	return err
}

// PortfolioService orchestrates stock, option and crypto commands.
type PortfolioService struct {
	portfolio *repository.PortfolioStorage
}

func NewPortfolioService(portfolio *repository.PortfolioStorage) *PortfolioService {
	return &PortfolioService{portfolio: portfolio}
}

// BuyStock records a share purchase, creating the position on first buy.
func (s *PortfolioService) BuyStock(ctx context.Context, ownerID, ticker string, shares, price decimal.Decimal, at time.Time, notes string) (*domain.StockPosition, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	var pos *domain.StockPosition
	err := withConflictRetry(func() error {
		p, err := s.portfolio.GetStock(ctx, ticker, ownerID)
		if err != nil {
			return err
		}
		if p == nil {
			p = domain.NewStockPosition(ticker)
		}
		if err := p.Purchase(shares, price, at, notes); err != nil {
			return err
		}
		if err := s.portfolio.SaveStock(ctx, p, ownerID); err != nil {
			return err
		}
		pos = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Stock purchased", "owner", ownerID, "ticker", ticker, "shares", shares)
	return pos, nil
}

// SellStock records a share sale against an existing position.
func (s *PortfolioService) SellStock(ctx context.Context, ownerID, ticker string, shares, price decimal.Decimal, at time.Time, notes string) (*domain.StockPosition, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	var pos *domain.StockPosition
	err := withConflictRetry(func() error {
		p, err := s.portfolio.GetStock(ctx, ticker, ownerID)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: stock %s", storage.ErrNotFound, ticker)
		}
		if err := p.Sell(shares, price, at, notes); err != nil {
			return err
		}
		if err := s.portfolio.SaveStock(ctx, p, ownerID); err != nil {
			return err
		}
		pos = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Stock sold", "owner", ownerID, "ticker", ticker, "shares", shares)
	return pos, nil
}

// GetStocks returns every stock position the owner holds.
func (s *PortfolioService) GetStocks(ctx context.Context, ownerID string) ([]*domain.StockPosition, error) {
	return s.portfolio.GetStocks(ctx, ownerID)
}

// DeleteStock tombstones a position by deleting its stream.
func (s *PortfolioService) DeleteStock(ctx context.Context, ownerID, ticker string) error {
	return s.portfolio.DeleteStock(ctx, ticker, ownerID)
}

// OpenOption opens a new option contract and returns its generated id.
func (s *PortfolioService) OpenOption(ctx context.Context, ownerID, ticker, optionType, position string, strike, premium decimal.Decimal, contracts int, expiration, at time.Time) (*domain.OptionPosition, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	o := domain.NewOptionPosition(uuid.NewString())
	if err := o.Open(ticker, optionType, position, strike, premium, contracts, expiration, at); err != nil {
		return nil, err
	}
	if err := s.portfolio.SaveOption(ctx, o, ownerID); err != nil {
		return nil, err
	}
	slog.Info("Option opened", "owner", ownerID, "ticker", ticker, "option_id", o.ID)
	return o, nil
}

// CloseOption closes an open contract before expiration.
func (s *PortfolioService) CloseOption(ctx context.Context, ownerID, optionID string, premium decimal.Decimal, at time.Time) (*domain.OptionPosition, error) {
	return s.mutateOption(ctx, ownerID, optionID, func(o *domain.OptionPosition) error {
		return o.Close(premium, orNow(at))
	})
}

// ExpireOption marks an open contract expired worthless.
func (s *PortfolioService) ExpireOption(ctx context.Context, ownerID, optionID string, at time.Time) (*domain.OptionPosition, error) {
	return s.mutateOption(ctx, ownerID, optionID, func(o *domain.OptionPosition) error {
		return o.Expire(orNow(at))
	})
}

// AssignOption marks an open contract as exercised against the owner.
func (s *PortfolioService) AssignOption(ctx context.Context, ownerID, optionID string, at time.Time) (*domain.OptionPosition, error) {
	return s.mutateOption(ctx, ownerID, optionID, func(o *domain.OptionPosition) error {
		return o.Assign(orNow(at))
	})
}

// GetOptions returns every option contract the owner holds.
func (s *PortfolioService) GetOptions(ctx context.Context, ownerID string) ([]*domain.OptionPosition, error) {
	return s.portfolio.GetOptions(ctx, ownerID)
}

// DeleteOption tombstones a contract by deleting its stream.
func (s *PortfolioService) DeleteOption(ctx context.Context, ownerID, optionID string) error {
	return s.portfolio.DeleteOption(ctx, optionID, ownerID)
}

func (s *PortfolioService) mutateOption(ctx context.Context, ownerID, optionID string, mutate func(*domain.OptionPosition) error) (*domain.OptionPosition, error) {
	var pos *domain.OptionPosition
	err := withConflictRetry(func() error {
		o, err := s.portfolio.GetOption(ctx, optionID, ownerID)
		if err != nil {
			return err
		}
		if o == nil {
			return fmt.Errorf("%w: option %s", storage.ErrNotFound, optionID)
		}
		if err := mutate(o); err != nil {
			return err
		}
		if err := s.portfolio.SaveOption(ctx, o, ownerID); err != nil {
			return err
		}
		pos = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// BuyCrypto records a token purchase, creating the position on first buy.
func (s *PortfolioService) BuyCrypto(ctx context.Context, ownerID, token string, quantity, dollarAmount decimal.Decimal, at time.Time) (*domain.CryptoPosition, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	var pos *domain.CryptoPosition
	err := withConflictRetry(func() error {
		c, err := s.portfolio.GetCrypto(ctx, token, ownerID)
		if err != nil {
			return err
		}
		if c == nil {
			c = domain.NewCryptoPosition(token)
		}
		if err := c.Purchase(quantity, dollarAmount, at); err != nil {
			return err
		}
		if err := s.portfolio.SaveCrypto(ctx, c, ownerID); err != nil {
			return err
		}
		pos = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Crypto purchased", "owner", ownerID, "token", token, "quantity", quantity)
	return pos, nil
}

// SellCrypto records a token sale against an existing position.
func (s *PortfolioService) SellCrypto(ctx context.Context, ownerID, token string, quantity, dollarAmount decimal.Decimal, at time.Time) (*domain.CryptoPosition, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	var pos *domain.CryptoPosition
	err := withConflictRetry(func() error {
		c, err := s.portfolio.GetCrypto(ctx, token, ownerID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("%w: crypto %s", storage.ErrNotFound, token)
		}
		if err := c.Sell(quantity, dollarAmount, at); err != nil {
			return err
		}
		if err := s.portfolio.SaveCrypto(ctx, c, ownerID); err != nil {
			return err
		}
		pos = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Crypto sold", "owner", ownerID, "token", token, "quantity", quantity)
	return pos, nil
}

// GetCryptos returns every crypto position the owner holds.
func (s *PortfolioService) GetCryptos(ctx context.Context, ownerID string) ([]*domain.CryptoPosition, error) {
	return s.portfolio.GetCryptos(ctx, ownerID)
}

// DeleteCrypto tombstones a position by deleting its stream.
func (s *PortfolioService) DeleteCrypto(ctx context.Context, ownerID, token string) error {
	return s.portfolio.DeleteCrypto(ctx, token, ownerID)
}

func orNow(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at
}
