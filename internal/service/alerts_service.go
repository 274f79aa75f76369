package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foliotrack/backend/internal/domain"
	"github.com/foliotrack/backend/internal/repository"
	"github.com/foliotrack/backend/internal/storage"
)

// AlertsService orchestrates price-alert commands.
type AlertsService struct {
	alerts *repository.AlertsStorage
}

func NewAlertsService(alerts *repository.AlertsStorage) *AlertsService {
	return &AlertsService{alerts: alerts}
}

// CreateAlert arms a new alert and returns it.
func (s *AlertsService) CreateAlert(ctx context.Context, ownerID, ticker string, threshold decimal.Decimal, direction string) (*domain.PriceAlert, error) {
	a := domain.NewPriceAlert(uuid.NewString())
	if err := a.Create(ticker, threshold, direction, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.alerts.Save(ctx, a, ownerID); err != nil {
		return nil, err
	}
	slog.Info("Alert created", "owner", ownerID, "ticker", ticker, "alert_id", a.ID)
	return a, nil
}

// GetAlerts returns every alert the owner has.
func (s *AlertsService) GetAlerts(ctx context.Context, ownerID string) ([]*domain.PriceAlert, error) {
	return s.alerts.GetAlerts(ctx, ownerID)
}

// EvaluateTicker checks a price observation against the owner's alerts for
// the ticker and triggers the ones whose threshold it crossed. Called by
// the pricing poller.
func (s *AlertsService) EvaluateTicker(ctx context.Context, ownerID, ticker string, price decimal.Decimal) ([]*domain.PriceAlert, error) {
	alerts, err := s.alerts.FindAlertsByTicker(ctx, ticker, ownerID)
	if err != nil {
		return nil, err
	}
	var triggered []*domain.PriceAlert
	for _, a := range alerts {
		if a.Triggered || !crossed(a, price) {
			continue
		}
		alertID := a.ID
		var saved *domain.PriceAlert
		err := withConflictRetry(func() error {
			cur, err := s.alerts.GetAlert(ctx, alertID, ownerID)
			if err != nil {
				return err
			}
			if cur == nil {
				// Deleted between listing and reload; nothing to report.
				saved = nil
				return nil
			}
			if err := cur.Trigger(price, time.Now().UTC()); err != nil {
				return err
			}
			if err := s.alerts.Save(ctx, cur, ownerID); err != nil {
				return err
			}
			saved = cur
			return nil
		})
		if err != nil {
			return triggered, err
		}
		if saved == nil {
			continue
		}
		slog.Info("Alert triggered", "owner", ownerID, "ticker", ticker, "alert_id", alertID, "price", price)
		triggered = append(triggered, saved)
	}
	return triggered, nil
}

// ClearAlert re-arms a triggered alert.
func (s *AlertsService) ClearAlert(ctx context.Context, ownerID, alertID string) (*domain.PriceAlert, error) {
	var alert *domain.PriceAlert
	err := withConflictRetry(func() error {
		a, err := s.alerts.GetAlert(ctx, alertID, ownerID)
		if err != nil {
			return err
		}
		if a == nil {
			return fmt.Errorf("%w: alert %s", storage.ErrNotFound, alertID)
		}
		if err := a.Clear(time.Now().UTC()); err != nil {
			return err
		}
		if err := s.alerts.Save(ctx, a, ownerID); err != nil {
			return err
		}
		alert = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return alert, nil
}

// DeleteAlert removes an alert's stream entirely.
func (s *AlertsService) DeleteAlert(ctx context.Context, ownerID, alertID string) error {
	return s.alerts.Delete(ctx, alertID, ownerID)
}

func crossed(a *domain.PriceAlert, price decimal.Decimal) bool {
	switch a.Direction {
	case "above":
		return price.GreaterThanOrEqual(a.Threshold)
	case "below":
		return price.LessThanOrEqual(a.Threshold)
	}
	return false
}
