package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/foliotrack/backend/internal/domain"
)

// PriceTick is one price observation from the market data feed. Ticks are
// per-owner: the pricing poller fans a quote out to every owner watching
// the ticker.
type PriceTick struct {
	OwnerID string          `json:"owner_id"`
	Ticker  string          `json:"ticker"`
	Price   decimal.Decimal `json:"price"`
}

// AlertEvaluator matches the price-evaluation side of the alerts service.
type AlertEvaluator interface {
	EvaluateTicker(ctx context.Context, ownerID, ticker string, price decimal.Decimal) ([]*domain.PriceAlert, error)
}

// PriceConsumer reads price ticks off the broker and runs them through the
// alert evaluator, so threshold crossings fire without any request traffic.
type PriceConsumer struct {
	sub       Subscriber
	evaluator AlertEvaluator
	topic     string
	groupID   string
}

// NewPriceConsumer creates a consumer over the given subscription.
func NewPriceConsumer(sub Subscriber, evaluator AlertEvaluator, topic, groupID string) *PriceConsumer {
	return &PriceConsumer{sub: sub, evaluator: evaluator, topic: topic, groupID: groupID}
}

// Run consumes price ticks until ctx is cancelled.
func (c *PriceConsumer) Run(ctx context.Context) {
	c.sub.Consume(ctx, c.topic, c.groupID, c.handleTick)
}

func (c *PriceConsumer) handleTick(ctx context.Context, payload []byte) error {
	var tick PriceTick
	if err := json.Unmarshal(payload, &tick); err != nil {
		return fmt.Errorf("failed to decode price tick: %w", err)
	}
	if tick.OwnerID == "" || tick.Ticker == "" {
		return fmt.Errorf("price tick missing owner or ticker: %s", payload)
	}
	triggered, err := c.evaluator.EvaluateTicker(ctx, tick.OwnerID, tick.Ticker, tick.Price)
	if err != nil {
		return fmt.Errorf("failed to evaluate price tick for %s: %w", tick.Ticker, err)
	}
	if len(triggered) > 0 {
		slog.Info("Price tick triggered alerts",
			"owner", tick.OwnerID, "ticker", tick.Ticker, "alerts", len(triggered))
	}
	return nil
}
