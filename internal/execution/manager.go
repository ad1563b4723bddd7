package execution

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/rickgao/kalshi-trader/internal/broker"
	"github.com/rickgao/kalshi-trader/internal/config"
	"github.com/rickgao/kalshi-trader/internal/model"
	"github.com/rickgao/kalshi-trader/internal/store"
)

// Manager executes order protocols against one broker.
type Manager struct {
	broker broker.Broker
	store  store.Store
	entry  config.Entry
	exit   config.Exit
	logger *slog.Logger

	// sleep is replaceable so tests run the TTL protocol instantly.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewManager creates an execution manager.
func NewManager(b broker.Broker, s store.Store, entry config.Entry, exit config.Exit, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		broker: b,
		store:  s,
		entry:  entry,
		exit:   exit,
		logger: logger,
		sleep:  sleepCtx,
		now:    time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// PlaceWithTTL submits a limit order and babysits it: if unfilled after
// the TTL it is cancelled and replaced at a refreshed price, up to
// MaxReplacements replacements. Returns the aggregate result; a partial
// fill on exhaustion is reported, never silently discarded.
func (m *Manager) PlaceWithTTL(ctx context.Context, marketID string, action model.Action, side model.Side, price float64, qty int) (model.OrderResult, error) {
	attempts := m.entry.MaxReplacements + 1
	agg := &fillAggregate{}
	remaining := qty

	for attempt := 0; attempt < attempts && remaining > 0; attempt++ {
		limit := m.refreshLimit(ctx, marketID, action, side, price)

		done, err := m.runAttempt(ctx, marketID, action, side, limit, remaining, agg)
		if err != nil {
			return agg.result(), err
		}
		remaining = qty - agg.qty
		if done {
			break
		}

		m.logger.Info("order unfilled after ttl, replacing",
			"market_id", marketID,
			"attempt", attempt+1,
			"max_attempts", attempts,
			"remaining", remaining,
		)
	}

	return agg.result(), nil
}

// CloseWithLimit closes a position with a limit price that walks toward
// the far side of the book on each requote. Yes positions walk down
// from the bid, no positions walk up from the ask; each step concedes
// CloseSlippagePct of the base price.
func (m *Manager) CloseWithLimit(ctx context.Context, pos model.Position, q model.Quote) (model.OrderResult, error) {
	attempts := m.exit.MaxCloseRequotes + 1
	agg := &fillAggregate{}
	remaining := pos.Qty

	base := q.Bid
	if pos.Side == model.SideNo {
		base = q.Ask
	}

	for attempt := 0; attempt < attempts && remaining > 0; attempt++ {
		step := base * m.exit.CloseSlippagePct / 100 * float64(attempt)
		limit := base - step
		if pos.Side == model.SideNo {
			limit = base + step
		}
		limit = clampPrice(limit)

		done, err := m.runAttempt(ctx, pos.MarketID, model.ActionSell, pos.Side, limit, remaining, agg)
		if err != nil {
			return agg.result(), err
		}
		remaining = pos.Qty - agg.qty
		if done {
			break
		}

		m.logger.Info("close unfilled after ttl, requoting",
			"market_id", pos.MarketID,
			"position_id", pos.PositionID,
			"attempt", attempt+1,
			"max_attempts", attempts,
			"remaining", remaining,
		)
	}

	if remaining > 0 {
		m.logger.Warn("close protocol exhausted with quantity remaining",
			"market_id", pos.MarketID,
			"position_id", pos.PositionID,
			"remaining", remaining,
		)
	}

	return agg.result(), nil
}

// runAttempt places one order, persists it, waits out the TTL, and
// cancels if still resting. Reports done=true when nothing remains to
// fill. Venue placement errors count as a no-fill attempt.
func (m *Manager) runAttempt(ctx context.Context, marketID string, action model.Action, side model.Side, limit float64, qty int, agg *fillAggregate) (bool, error) {
	res, err := m.broker.PlaceOrder(ctx, marketID, action, side, limit, qty)
	if err != nil {
		m.logger.Error("order placement failed",
			"market_id", marketID,
			"action", action,
			"side", side,
			"price", limit,
			"error", err,
		)
		return false, nil
	}

	now := m.now().UTC()
	order := model.Order{
		OrderID:   res.OrderID,
		MarketID:  marketID,
		Action:    action,
		Side:      side,
		Price:     limit,
		Qty:       qty,
		Status:    res.Status,
		CreatedAt: now,
	}
	if res.Status == model.OrderFilled {
		order.FilledAt = &now
	}
	if err := m.store.UpsertOrder(ctx, order); err != nil {
		return false, fmt.Errorf("persist order %s: %w", res.OrderID, err)
	}

	if res.FilledQty > 0 {
		fillPrice := res.AvgFillPrice
		if fillPrice == 0 {
			fillPrice = limit
		}
		if err := m.recordFill(ctx, order, "imm-"+res.OrderID, fillPrice, res.FilledQty, now); err != nil {
			return false, err
		}
		agg.add(res.OrderID, fillPrice, res.FilledQty)
	}
	if res.Status == model.OrderFilled && res.FilledQty >= qty {
		return true, nil
	}
	if res.Status == model.OrderCancelled {
		return false, nil
	}

	// Resting: give it the TTL to fill.
	if err := m.sleep(ctx, m.entry.OrderTTL); err != nil {
		m.cancel(ctx, order)
		return false, err
	}

	stillOpen, err := m.isOpen(ctx, res.OrderID)
	if err != nil {
		m.logger.Warn("open order check failed, cancelling defensively",
			"order_id", res.OrderID,
			"error", err,
		)
		stillOpen = true
	}

	if !stillOpen {
		// Filled while resting at the limit price. Only the quantity the
		// venue did not already report on placement is booked here.
		rested := qty - res.FilledQty
		filledAt := m.now().UTC()
		order.Status = model.OrderFilled
		order.FilledAt = &filledAt
		if err := m.store.UpsertOrder(ctx, order); err != nil {
			return false, fmt.Errorf("persist filled order %s: %w", res.OrderID, err)
		}
		if rested > 0 {
			if err := m.recordFill(ctx, order, "ttl-"+res.OrderID, limit, rested, filledAt); err != nil {
				return false, err
			}
			agg.add(res.OrderID, limit, rested)
		}
		return true, nil
	}

	m.cancel(ctx, order)
	return false, nil
}

func (m *Manager) recordFill(ctx context.Context, order model.Order, tradeID string, price float64, qty int, ts time.Time) error {
	fill := model.Fill{
		TradeID:   tradeID,
		OrderID:   order.OrderID,
		MarketID:  order.MarketID,
		Action:    order.Action,
		Side:      order.Side,
		Price:     round4(price),
		Qty:       qty,
		Timestamp: ts,
	}
	if err := m.store.AppendFill(ctx, fill); err != nil {
		return fmt.Errorf("persist fill for order %s: %w", order.OrderID, err)
	}
	return nil
}

func (m *Manager) cancel(ctx context.Context, order model.Order) {
	if err := m.broker.CancelOrder(ctx, order.OrderID); err != nil {
		m.logger.Warn("order cancel failed",
			"order_id", order.OrderID,
			"error", err,
		)
	}
	order.Status = model.OrderCancelled
	if err := m.store.UpsertOrder(ctx, order); err != nil {
		m.logger.Error("persist cancelled order failed",
			"order_id", order.OrderID,
			"error", err,
		)
	}
}

func (m *Manager) isOpen(ctx context.Context, orderID string) (bool, error) {
	open, err := m.broker.OpenOrders(ctx)
	if err != nil {
		return false, err
	}
	for _, o := range open {
		if o.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

// refreshLimit re-reads the quote and clamps the desired price so the
// order never crosses the touch: orders that lift toward the ask cap at
// the ask, orders that hit toward the bid floor at the bid.
func (m *Manager) refreshLimit(ctx context.Context, marketID string, action model.Action, side model.Side, desired float64) float64 {
	snap, err := m.broker.GetSnapshot(ctx, marketID)
	if err != nil || !snap.Quote.Valid {
		if err != nil {
			m.logger.Warn("quote refresh failed, keeping requested price",
				"market_id", marketID,
				"error", err,
			)
		}
		return clampPrice(desired)
	}

	liftsAsk := (action == model.ActionBuy && side == model.SideYes) ||
		(action == model.ActionSell && side == model.SideNo)
	if liftsAsk {
		return clampPrice(math.Min(desired, snap.Quote.Ask))
	}
	return clampPrice(math.Max(desired, snap.Quote.Bid))
}

// fillAggregate accumulates fills across protocol attempts.
type fillAggregate struct {
	orderID  string
	qty      int
	notional float64
}

func (a *fillAggregate) add(orderID string, price float64, qty int) {
	a.orderID = orderID
	a.qty += qty
	a.notional += price * float64(qty)
}

func (a *fillAggregate) result() model.OrderResult {
	res := model.OrderResult{
		OrderID:   a.orderID,
		Status:    model.OrderCancelled,
		FilledQty: a.qty,
	}
	if a.qty > 0 {
		res.Status = model.OrderFilled
		res.AvgFillPrice = round4(a.notional / float64(a.qty))
	}
	return res
}

func clampPrice(p float64) float64 {
	return math.Min(0.99, math.Max(0.01, p))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
