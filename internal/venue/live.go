package venue

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/rickgao/kalshi-trader/internal/broker"
	"github.com/rickgao/kalshi-trader/internal/model"
	"github.com/rickgao/kalshi-trader/internal/quote"
)

// LiveBroker adapts the Kalshi client to the broker capability set.
// Every capital-risking call re-checks the safety gate synchronously;
// a failed gate is an error, never a silent downgrade to paper.
type LiveBroker struct {
	client *Client
	gate   broker.Gate
	logger *slog.Logger
}

// NewLiveBroker wraps a client with the safety gate.
func NewLiveBroker(client *Client, gate broker.Gate, logger *slog.Logger) *LiveBroker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveBroker{client: client, gate: gate, logger: logger}
}

func (b *LiveBroker) Environment() string { return b.client.Environment() }

// AuthStatus verifies credentials by fetching the account balance.
// Returns the balance in cents on success.
func (b *LiveBroker) AuthStatus(ctx context.Context) (int64, error) {
	return b.client.GetBalance(ctx)
}

func (b *LiveBroker) ListMarkets(ctx context.Context, category string, window time.Duration) ([]model.MarketRef, error) {
	now := time.Now()
	markets, err := b.client.GetAllMarkets(ctx, GetMarketsOptions{
		Status:     "open",
		MinCloseTS: now.Unix(),
		MaxCloseTS: now.Add(window).Unix(),
	})
	if err != nil {
		return nil, err
	}

	refs := make([]model.MarketRef, 0, len(markets))
	for _, m := range markets {
		norm := normalizeAPIMarket(m, now)
		refs = append(refs, model.MarketRef{
			MarketID:            m.Ticker,
			Name:                m.Title,
			Category:            category,
			MinutesToResolution: norm.MinutesToResolution,
		})
	}
	return refs, nil
}

func (b *LiveBroker) GetSnapshot(ctx context.Context, marketID string) (broker.Snapshot, error) {
	m, err := b.client.GetMarket(ctx, marketID)
	if err != nil {
		return broker.Snapshot{}, err
	}

	norm := normalizeAPIMarket(*m, time.Now())
	return broker.Snapshot{
		MarketID:            marketID,
		Quote:               norm.Quote,
		Volume:              norm.Volume,
		BidDepth:            float64(m.OpenInterest),
		AskDepth:            float64(m.OpenInterest),
		MinutesToResolution: norm.MinutesToResolution,
	}, nil
}

func (b *LiveBroker) PlaceOrder(ctx context.Context, marketID string, action model.Action, side model.Side, price float64, qty int) (model.OrderResult, error) {
	if err := b.gate.Check(b.client.Environment()); err != nil {
		return model.OrderResult{}, fmt.Errorf("live gate: %w", err)
	}

	req := CreateOrderRequest{
		Ticker: marketID,
		Action: string(action),
		Side:   string(side),
		Type:   "limit",
		Count:  qty,
	}
	// Internal prices are always yes-probability; the venue wants the
	// side's own price, so no orders get the complement.
	cents := probToCents(price)
	if side == model.SideYes {
		req.YesPriceCents = cents
	} else {
		req.NoPriceCents = 100 - cents
	}

	order, err := b.client.CreateOrder(ctx, req)
	if err != nil {
		return model.OrderResult{}, err
	}

	b.logger.Info("venue order placed",
		"order_id", order.OrderID,
		"market_id", marketID,
		"status", order.Status,
		"filled", order.FilledCount,
	)

	avgFill := centsToProb(order.AvgFillPriceCents)
	if side == model.SideNo && order.AvgFillPriceCents > 0 {
		avgFill = round4(1 - avgFill)
	}
	return model.OrderResult{
		OrderID:      order.OrderID,
		Status:       mapOrderStatus(order.Status),
		FilledQty:    order.FilledCount,
		AvgFillPrice: avgFill,
	}, nil
}

func (b *LiveBroker) CancelOrder(ctx context.Context, orderID string) error {
	if err := b.gate.Check(b.client.Environment()); err != nil {
		return fmt.Errorf("live gate: %w", err)
	}
	return b.client.CancelOrder(ctx, orderID)
}

func (b *LiveBroker) OpenOrders(ctx context.Context) ([]model.Order, error) {
	orders, err := b.client.GetOrders(ctx, "resting")
	if err != nil {
		return nil, err
	}

	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, mapAPIOrder(o))
	}
	return out, nil
}

func (b *LiveBroker) Positions(ctx context.Context) ([]model.Position, error) {
	positions, err := b.client.GetPositions(ctx)
	if err != nil {
		return nil, err
	}

	var out []model.Position
	for _, p := range positions {
		if p.Position == 0 {
			continue
		}
		side := model.SideYes
		qty := p.Position
		if qty < 0 {
			side = model.SideNo
			qty = -qty
		}
		entry := 0.0
		if p.TotalTradedCents > 0 && qty > 0 {
			// Per-contract cost in the side's currency; no positions
			// convert back to yes-probability.
			cost := float64(p.TotalTradedCents) / float64(qty) / 100
			entry = cost
			if side == model.SideNo {
				entry = 1 - cost
			}
		}
		out = append(out, model.Position{
			PositionID:   "venue-" + p.Ticker,
			MarketID:     p.Ticker,
			Side:         side,
			Qty:          qty,
			EntryPrice:   round4(entry),
			CurrentPrice: round4(entry),
			Status:       model.PositionOpen,
		})
	}
	return out, nil
}

func (b *LiveBroker) Fills(ctx context.Context, since time.Time) ([]model.Fill, error) {
	fills, err := b.client.GetFills(ctx, since)
	if err != nil {
		return nil, err
	}

	out := make([]model.Fill, 0, len(fills))
	for _, f := range fills {
		ts, err := time.Parse(time.RFC3339, f.CreatedTime)
		if err != nil {
			b.logger.Warn("skipping fill with bad timestamp",
				"trade_id", f.TradeID,
				"created_time", f.CreatedTime,
			)
			continue
		}
		out = append(out, model.Fill{
			TradeID:   f.TradeID,
			OrderID:   f.OrderID,
			MarketID:  f.Ticker,
			Action:    model.Action(f.Action),
			Side:      model.Side(f.Side),
			Price:     centsToProb(f.YesPrice),
			Qty:       f.Count,
			Timestamp: ts.UTC(),
		})
	}
	return out, nil
}

// normalizeAPIMarket runs a venue market payload through the quote
// normalizer, converting cent prices to probabilities first.
func normalizeAPIMarket(m APIMarket, now time.Time) quote.Normalized {
	raw := quote.Raw{Volume: float64(m.Volume)}
	if m.YesBid > 0 {
		v := centsToProb(m.YesBid)
		raw.Bid = &v
	}
	if m.YesAsk > 0 {
		v := centsToProb(m.YesAsk)
		raw.Ask = &v
	}
	if m.LastPrice > 0 {
		v := centsToProb(m.LastPrice)
		raw.Last = &v
	}
	if closeTime, err := time.Parse(time.RFC3339, m.CloseTime); err == nil {
		ts := closeTime.Unix()
		raw.CloseTS = &ts
	}
	return quote.Normalize(raw, now)
}

// mapAPIOrder converts a venue order to the internal shape. Internal
// prices are yes-probability regardless of side.
func mapAPIOrder(o APIOrder) model.Order {
	order := model.Order{
		OrderID:  o.OrderID,
		MarketID: o.Ticker,
		Action:   model.Action(o.Action),
		Side:     model.Side(o.Side),
		Price:    centsToProb(o.YesPrice),
		Qty:      o.Count,
		Status:   mapOrderStatus(o.Status),
	}
	if ts, err := time.Parse(time.RFC3339, o.CreatedTime); err == nil {
		order.CreatedAt = ts.UTC()
	}
	if order.Status == model.OrderFilled {
		if ts, err := time.Parse(time.RFC3339, o.UpdatedTime); err == nil {
			utc := ts.UTC()
			order.FilledAt = &utc
		}
	}
	return order
}

func mapOrderStatus(status string) model.OrderStatus {
	switch status {
	case "executed":
		return model.OrderFilled
	case "canceled", "cancelled":
		return model.OrderCancelled
	default: // resting, pending
		return model.OrderOpen
	}
}

func probToCents(p float64) int {
	return int(math.Round(p * 100))
}

func centsToProb(c int) float64 {
	return round4(float64(c) / 100)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
