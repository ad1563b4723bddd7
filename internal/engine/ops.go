package engine

import (
	"context"
	"fmt"

	"github.com/rickgao/kalshi-trader/internal/model"
	"github.com/rickgao/kalshi-trader/internal/strategy"
)

// manualExit marks closes requested through the control surface rather
// than decided by the exit rules.
const manualExit = "MANUAL_EXIT"

// DryRun performs one scan-and-decide pass without submitting orders
// or writing audit records.
func (e *Engine) DryRun(ctx context.Context) model.DryRunResult {
	cfg := e.Config()
	scan := e.scan(ctx)
	canTrade, riskReason := e.governor.CanTrade()
	fingerprint := strategy.ConfigFingerprint(cfg)
	now := e.now().UTC()

	open, err := e.store.OpenPositions(ctx)
	if err != nil {
		e.logger.Error("dry run: open positions read failed", "error", err)
	}
	held := make(map[string]bool, len(open))
	for _, p := range open {
		held[p.MarketID] = true
	}

	var decisions []model.DecisionRecord
	considered := 0
	for _, m := range scan.Markets {
		if considered >= maxEntryCandidates {
			break
		}
		if held[m.MarketID] {
			continue
		}
		considered++

		snap, _ := e.cache.lastSnapshot(m.MarketID)
		dec := strategy.DecideEntry(strategy.EntryInput{
			Prices:              e.cache.prices(m.MarketID),
			Quote:               snap.Quote,
			Qualifies:           m.Qualifies,
			QualifyWhy:          m.Rationale,
			RiskAllows:          canTrade,
			RiskReason:          riskReason,
			InCooldown:          e.cache.inCooldown(m.MarketID, now),
			ExpectedEdgeCostPct: m.SpreadPct + cfg.Entry.FeePct,
		}, cfg.Entry)

		decisions = append(decisions, model.DecisionRecord{
			Timestamp:  now,
			MarketID:   m.MarketID,
			Action:     "entry",
			ReasonCode: dec.ReasonCode,
			Qualifies:  m.Qualifies,
			Scores: map[string]float64{
				"volatility_pct":    m.VolatilityPct,
				"spread_pct":        m.SpreadPct,
				"liquidity_score":   m.LiquidityScore,
				"overall_score":     m.OverallScore,
				"expected_edge_pct": dec.ExpectedEdgePct,
			},
			Rationale:         dec.Rationale,
			ConfigFingerprint: fingerprint,
		})
	}

	return model.DryRunResult{Scan: scan, Decisions: decisions}
}

// ClosePositionByID closes one open position at the current quote.
func (e *Engine) ClosePositionByID(ctx context.Context, positionID string) (model.OrderResult, error) {
	open, err := e.store.OpenPositions(ctx)
	if err != nil {
		return model.OrderResult{}, fmt.Errorf("list open positions: %w", err)
	}

	for _, pos := range open {
		if pos.PositionID != positionID {
			continue
		}
		snap, ok := e.cache.lastSnapshot(pos.MarketID)
		if !ok || !snap.Quote.Valid {
			fresh, err := e.broker.GetSnapshot(ctx, pos.MarketID)
			if err != nil {
				return model.OrderResult{}, fmt.Errorf("quote for %s: %w", pos.MarketID, err)
			}
			snap = fresh
		}
		pos.CurrentPrice = snap.Quote.Mid
		pos.PnLPct = strategy.PnLPct(pos.EntryPrice, pos.CurrentPrice, pos.Side)
		return e.closePosition(ctx, pos, snap.Quote, manualExit, "Manual close requested"), nil
	}

	return model.OrderResult{}, fmt.Errorf("no open position %q", positionID)
}

// CloseAll closes every open position. Individual failures are logged
// and the sweep continues; the first error is returned after the pass.
func (e *Engine) CloseAll(ctx context.Context) ([]model.OrderResult, error) {
	open, err := e.store.OpenPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open positions: %w", err)
	}

	var results []model.OrderResult
	var firstErr error
	for _, pos := range open {
		res, err := e.ClosePositionByID(ctx, pos.PositionID)
		if err != nil {
			e.logger.Error("close all: position close failed", "position_id", pos.PositionID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results = append(results, res)
	}
	return results, firstErr
}

// PlaceManualOrder submits an operator-requested order through the TTL
// protocol. Only allowed against the paper environment; manual orders
// never reach the live venue.
func (e *Engine) PlaceManualOrder(ctx context.Context, marketID string, action model.Action, side model.Side, price float64, qty int) (model.OrderResult, error) {
	if e.broker.Environment() != "paper" {
		return model.OrderResult{}, fmt.Errorf("manual orders are paper-only, environment is %q", e.broker.Environment())
	}
	if qty <= 0 {
		return model.OrderResult{}, fmt.Errorf("qty must be positive")
	}
	if price < 0.01 || price > 0.99 {
		return model.OrderResult{}, fmt.Errorf("price %v outside [0.01, 0.99]", price)
	}

	res, err := e.exec.PlaceWithTTL(ctx, marketID, action, side, price, qty)
	if err != nil {
		return res, err
	}

	if action == model.ActionBuy && res.FilledQty > 0 {
		cfg := e.Config()
		now := e.now().UTC()
		pos := model.Position{
			PositionID:                   "pos-" + res.OrderID,
			MarketID:                     marketID,
			Side:                         side,
			Qty:                          res.FilledQty,
			EntryPrice:                   res.AvgFillPrice,
			CurrentPrice:                 res.AvgFillPrice,
			TakeProfitPct:                cfg.Exit.TakeProfitPct,
			StopLossPct:                  cfg.Exit.StopLossPct,
			MaxHoldSeconds:               cfg.Exit.MaxHoldSeconds,
			CloseBeforeResolutionMinutes: cfg.Exit.CloseBeforeResolutionMinutes,
			OpenedAt:                     now,
			Status:                       model.PositionOpen,
		}
		if err := e.store.UpsertPosition(ctx, pos); err != nil {
			e.logger.Error("manual position write failed", "position_id", pos.PositionID, "error", err)
		}
		e.record(fmt.Sprintf("Manual order opened %s %s x%d at %.4f", marketID, side, pos.Qty, pos.EntryPrice), "manual")
	}
	return res, nil
}
