package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Option contract states derived from the event stream.
const (
	OptionStatusOpen     = "open"
	OptionStatusClosed   = "closed"
	OptionStatusExpired  = "expired"
	OptionStatusAssigned = "assigned"
)

// OptionPosition is the aggregate for one option contract, identified by a
// generated id rather than its ticker (an owner can hold several contracts
// on the same underlying).
type OptionPosition struct {
	AggregateBase
	Ticker     string
	OptionType string
	Position   string
	Strike     decimal.Decimal
	Contracts  int
	Expiration time.Time
	Status     string
	// PremiumNet is the premium collected (sold contracts) or paid (bought
	// contracts), net of the closing transaction.
	PremiumNet decimal.Decimal
}

// NewOptionPosition creates an empty option aggregate.
func NewOptionPosition(id string) *OptionPosition {
	return &OptionPosition{AggregateBase: AggregateBase{ID: id}}
}

// NewOptionPositionFromEvents replays a stored history into an option.
func NewOptionPositionFromEvents(id string, events []Event) (*OptionPosition, error) {
	o := NewOptionPosition(id)
	for _, e := range events {
		if err := o.apply(e); err != nil {
			return nil, fmt.Errorf("failed to replay option %s: %w", id, err)
		}
		o.record(e)
	}
	o.MarkCommitted()
	return o, nil
}

// IsOpen reports whether the contract is still live.
func (o *OptionPosition) IsOpen() bool { return o.Status == OptionStatusOpen }

// Open records the opening transaction. Valid only on a fresh aggregate.
func (o *OptionPosition) Open(ticker, optionType, position string, strike, premium decimal.Decimal, contracts int, expiration, at time.Time) error {
	if o.Status != "" {
		return fmt.Errorf("option %s is already %s", o.ID, o.Status)
	}
	if optionType != "call" && optionType != "put" {
		return fmt.Errorf("invalid option type %q", optionType)
	}
	if position != "buy" && position != "sell" {
		return fmt.Errorf("invalid option position %q", position)
	}
	if contracts <= 0 {
		return fmt.Errorf("option %s requires a positive number of contracts", o.ID)
	}
	return o.emit(OptionOpened{
		OptionID:   o.ID,
		Ticker:     ticker,
		OptionType: optionType,
		Position:   position,
		Strike:     strike,
		Premium:    premium,
		Contracts:  contracts,
		Expiration: expiration,
		OpenedAt:   at,
	})
}

// Close records closing the contract before expiration.
func (o *OptionPosition) Close(premium decimal.Decimal, at time.Time) error {
	if !o.IsOpen() {
		return fmt.Errorf("option %s is not open", o.ID)
	}
	return o.emit(OptionClosed{OptionID: o.ID, Premium: premium, ClosedAt: at})
}

// Expire records the contract expiring worthless.
func (o *OptionPosition) Expire(at time.Time) error {
	if !o.IsOpen() {
		return fmt.Errorf("option %s is not open", o.ID)
	}
	return o.emit(OptionExpired{OptionID: o.ID, ExpiredAt: at})
}

// Assign records the contract being exercised against the owner.
func (o *OptionPosition) Assign(at time.Time) error {
	if !o.IsOpen() {
		return fmt.Errorf("option %s is not open", o.ID)
	}
	return o.emit(OptionAssigned{OptionID: o.ID, AssignedAt: at})
}

func (o *OptionPosition) emit(e Event) error {
	if err := o.apply(e); err != nil {
		return err
	}
	o.record(e)
	return nil
}

func (o *OptionPosition) apply(ev Event) error {
	switch e := ev.(type) {
	case OptionOpened:
		o.Ticker = e.Ticker
		o.OptionType = e.OptionType
		o.Position = e.Position
		o.Strike = e.Strike
		o.Contracts = e.Contracts
		o.Expiration = e.Expiration
		o.Status = OptionStatusOpen
		if e.Position == "sell" {
			o.PremiumNet = e.Premium
		} else {
			o.PremiumNet = e.Premium.Neg()
		}
	case OptionClosed:
		o.Status = OptionStatusClosed
		if o.Position == "sell" {
			o.PremiumNet = o.PremiumNet.Sub(e.Premium)
		} else {
			o.PremiumNet = o.PremiumNet.Add(e.Premium)
		}
	case OptionExpired:
		o.Status = OptionStatusExpired
	case OptionAssigned:
		o.Status = OptionStatusAssigned
	default:
		return fmt.Errorf("unknown event type for OptionPosition: %s", ev.Kind())
	}
	return nil
}
