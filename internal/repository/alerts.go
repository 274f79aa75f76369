package repository

import (
	"context"

	"github.com/foliotrack/backend/internal/domain"
	"github.com/foliotrack/backend/internal/storage"
)

// AlertsStorage wraps the aggregate store for price alerts.
type AlertsStorage struct {
	store storage.AggregateStore
}

// NewAlertsStorage creates an alerts repository over the store.
func NewAlertsStorage(store storage.AggregateStore) *AlertsStorage {
	return &AlertsStorage{store: store}
}

// GetAlert replays one alert's history. Returns nil when unknown.
func (r *AlertsStorage) GetAlert(ctx context.Context, alertID, ownerID string) (*domain.PriceAlert, error) {
	events, err := r.store.GetEvents(ctx, domain.EntityAlert, ownerID)
	if err != nil {
		return nil, err
	}
	var own []domain.Event
	for _, ev := range events {
		if ev.AggregateID() == alertID {
			own = append(own, ev)
		}
	}
	if len(own) == 0 {
		return nil, nil
	}
	return domain.NewPriceAlertFromEvents(alertID, own)
}

// GetAlerts replays every alert the owner has.
func (r *AlertsStorage) GetAlerts(ctx context.Context, ownerID string) ([]*domain.PriceAlert, error) {
	events, err := r.store.GetEvents(ctx, domain.EntityAlert, ownerID)
	if err != nil {
		return nil, err
	}
	ids, groups := groupByAggregate(events)
	alerts := make([]*domain.PriceAlert, 0, len(ids))
	for _, id := range ids {
		a, err := domain.NewPriceAlertFromEvents(id, groups[id])
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

// FindAlertsByTicker returns the owner's alerts watching a ticker.
func (r *AlertsStorage) FindAlertsByTicker(ctx context.Context, ticker, ownerID string) ([]*domain.PriceAlert, error) {
	alerts, err := r.GetAlerts(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	var matched []*domain.PriceAlert
	for _, a := range alerts {
		if a.Ticker == ticker {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

// Save appends the alert's uncommitted events.
func (r *AlertsStorage) Save(ctx context.Context, a *domain.PriceAlert, ownerID string) error {
	return r.store.SaveEvents(ctx, a, domain.EntityAlert, ownerID)
}

// Delete removes the alert's entire stream for the owner.
func (r *AlertsStorage) Delete(ctx context.Context, alertID, ownerID string) error {
	return r.store.DeleteAggregate(ctx, domain.EntityAlert, alertID, ownerID)
}
