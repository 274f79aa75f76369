package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CryptoPosition is the aggregate for one owned token, identified by its
// symbol (e.g. "BTC").
type CryptoPosition struct {
	AggregateBase
	Token      string
	Quantity   decimal.Decimal
	DollarCost decimal.Decimal
}

// NewCryptoPosition creates an empty position for a token.
func NewCryptoPosition(token string) *CryptoPosition {
	return &CryptoPosition{
		AggregateBase: AggregateBase{ID: token},
		Token:         token,
	}
}

// NewCryptoPositionFromEvents replays a stored history into a position.
func NewCryptoPositionFromEvents(token string, events []Event) (*CryptoPosition, error) {
	c := NewCryptoPosition(token)
	for _, e := range events {
		if err := c.apply(e); err != nil {
			return nil, fmt.Errorf("failed to replay crypto %s: %w", token, err)
		}
		c.record(e)
	}
	c.MarkCommitted()
	return c, nil
}

// Purchase records a buy of a token quantity for a dollar amount.
func (c *CryptoPosition) Purchase(quantity, dollarAmount decimal.Decimal, at time.Time) error {
	if !quantity.IsPositive() {
		return fmt.Errorf("purchase of %s requires a positive quantity", c.Token)
	}
	return c.emit(CryptoPurchased{
		Token:        c.Token,
		Quantity:     quantity,
		DollarAmount: dollarAmount,
		PurchasedAt:  at,
	})
}

// Sell records a sale of a token quantity for a dollar amount.
func (c *CryptoPosition) Sell(quantity, dollarAmount decimal.Decimal, at time.Time) error {
	if !quantity.IsPositive() {
		return fmt.Errorf("sale of %s requires a positive quantity", c.Token)
	}
	if quantity.GreaterThan(c.Quantity) {
		return fmt.Errorf("cannot sell %s %s, only %s owned", quantity, c.Token, c.Quantity)
	}
	return c.emit(CryptoSold{
		Token:        c.Token,
		Quantity:     quantity,
		DollarAmount: dollarAmount,
		SoldAt:       at,
	})
}

func (c *CryptoPosition) emit(e Event) error {
	if err := c.apply(e); err != nil {
		return err
	}
	c.record(e)
	return nil
}

func (c *CryptoPosition) apply(ev Event) error {
	switch e := ev.(type) {
	case CryptoPurchased:
		c.Quantity = c.Quantity.Add(e.Quantity)
		c.DollarCost = c.DollarCost.Add(e.DollarAmount)
	case CryptoSold:
		if c.Quantity.IsPositive() {
			avg := c.DollarCost.Div(c.Quantity)
			c.DollarCost = c.DollarCost.Sub(e.Quantity.Mul(avg))
		}
		c.Quantity = c.Quantity.Sub(e.Quantity)
	default:
		return fmt.Errorf("unknown event type for CryptoPosition: %s", ev.Kind())
	}
	return nil
}
