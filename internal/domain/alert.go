package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PriceAlert is the aggregate for one price alert, identified by a
// generated id.
type PriceAlert struct {
	AggregateBase
	Ticker    string
	Threshold decimal.Decimal
	Direction string
	Triggered bool
	LastPrice decimal.Decimal
}

// NewPriceAlert creates an empty alert aggregate.
func NewPriceAlert(id string) *PriceAlert {
	return &PriceAlert{AggregateBase: AggregateBase{ID: id}}
}

// NewPriceAlertFromEvents replays a stored history into an alert.
func NewPriceAlertFromEvents(id string, events []Event) (*PriceAlert, error) {
	a := NewPriceAlert(id)
	for _, e := range events {
		if err := a.apply(e); err != nil {
			return nil, fmt.Errorf("failed to replay alert %s: %w", id, err)
		}
		a.record(e)
	}
	a.MarkCommitted()
	return a, nil
}

// Create arms the alert. Valid only on a fresh aggregate.
func (a *PriceAlert) Create(ticker string, threshold decimal.Decimal, direction string, at time.Time) error {
	if a.Ticker != "" {
		return fmt.Errorf("alert %s already exists", a.ID)
	}
	if direction != "above" && direction != "below" {
		return fmt.Errorf("invalid alert direction %q", direction)
	}
	return a.emit(AlertCreated{
		AlertID:   a.ID,
		Ticker:    ticker,
		Threshold: threshold,
		Direction: direction,
		CreatedAt: at,
	})
}

// Trigger records the watched price crossing the threshold. Triggering an
// already-triggered alert is a no-op so price feeds can fire repeatedly.
func (a *PriceAlert) Trigger(price decimal.Decimal, at time.Time) error {
	if a.Ticker == "" {
		return fmt.Errorf("alert %s does not exist", a.ID)
	}
	if a.Triggered {
		return nil
	}
	return a.emit(AlertTriggered{AlertID: a.ID, Price: price, TriggeredAt: at})
}

// Clear re-arms a triggered alert.
func (a *PriceAlert) Clear(at time.Time) error {
	if !a.Triggered {
		return fmt.Errorf("alert %s is not triggered", a.ID)
	}
	return a.emit(AlertCleared{AlertID: a.ID, ClearedAt: at})
}

func (a *PriceAlert) emit(e Event) error {
	if err := a.apply(e); err != nil {
		return err
	}
	a.record(e)
	return nil
}

func (a *PriceAlert) apply(ev Event) error {
	switch e := ev.(type) {
	case AlertCreated:
		a.Ticker = e.Ticker
		a.Threshold = e.Threshold
		a.Direction = e.Direction
	case AlertTriggered:
		a.Triggered = true
		a.LastPrice = e.Price
	case AlertCleared:
		a.Triggered = false
	default:
		return fmt.Errorf("unknown event type for PriceAlert: %s", ev.Kind())
	}
	return nil
}
