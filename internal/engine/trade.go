package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rickgao/kalshi-trader/internal/advisor"
	"github.com/rickgao/kalshi-trader/internal/config"
	"github.com/rickgao/kalshi-trader/internal/model"
	"github.com/rickgao/kalshi-trader/internal/strategy"
)

// reasonAdvisorVeto marks an entry blocked by a confident advisory veto.
const reasonAdvisorVeto = "SKIP_ADVISOR"

// maxEntryCandidates bounds how many qualifying markets one tick
// evaluates for entry.
const maxEntryCandidates = 2

// manageExits evaluates every open position and runs the close
// protocol where an exit triggers. Exits always run before entries so
// freed risk capacity is visible to the entry pass.
func (e *Engine) manageExits(ctx context.Context, _ model.ScanSnapshot) {
	open, err := e.store.OpenPositions(ctx)
	if err != nil {
		e.logger.Error("open positions read failed", "error", err)
		return
	}
	cfg := e.Config()

	for _, pos := range open {
		snap, ok := e.cache.lastSnapshot(pos.MarketID)
		if !ok {
			fresh, err := e.broker.GetSnapshot(ctx, pos.MarketID)
			if err != nil {
				e.logger.Warn("exit check skipped, no quote", "market_id", pos.MarketID, "error", err)
				continue
			}
			snap = fresh
		}
		if !snap.Quote.Valid {
			continue
		}

		pos.CurrentPrice = snap.Quote.Mid
		dec := strategy.DecideExit(pos, snap.Quote, snap.MinutesToResolution, e.now().UTC(), cfg.Exit)
		pos.PnLPct = dec.PnLPct
		pos.PeakPnLPct = dec.PeakPnLPct
		pos.TrailStopPct = dec.TrailStopPct

		if dec.Action == strategy.ExitHold {
			if err := e.store.UpsertPosition(ctx, pos); err != nil {
				e.logger.Error("position update failed", "position_id", pos.PositionID, "error", err)
			}
			continue
		}

		e.closePosition(ctx, pos, snap.Quote, dec.Action, dec.Rationale)
	}
}

// closePosition runs the close protocol for one position and settles
// the outcome: a full close realizes PnL exactly once, a partial close
// shrinks the position and leaves it open.
func (e *Engine) closePosition(ctx context.Context, pos model.Position, q model.Quote, action, rationale string) model.OrderResult {
	res, err := e.exec.CloseWithLimit(ctx, pos, q)
	if err != nil {
		e.logger.Error("close protocol failed", "position_id", pos.PositionID, "error", err)
	}

	rec := model.DecisionRecord{
		Timestamp:         e.now().UTC(),
		MarketID:          pos.MarketID,
		Action:            action,
		ReasonCode:        action,
		Qualifies:         true,
		Scores:            map[string]float64{"pnl_pct": pos.PnLPct, "peak_pnl_pct": pos.PeakPnLPct},
		Rationale:         rationale,
		ConfigFingerprint: strategy.ConfigFingerprint(e.Config()),
	}
	if res.OrderID != "" {
		rec.OrderIDs = []string{res.OrderID}
	}
	if err := e.store.AppendDecision(ctx, rec); err != nil {
		e.logger.Error("decision write failed", "market_id", pos.MarketID, "error", err)
	}

	switch {
	case res.FilledQty >= pos.Qty && res.FilledQty > 0:
		realized := strategy.PnLPct(pos.EntryPrice, res.AvgFillPrice, pos.Side)
		closedAt := e.now().UTC()
		pos.Status = model.PositionClosed
		pos.CurrentPrice = res.AvgFillPrice
		pos.PnLPct = realized
		pos.ClosedAt = &closedAt

		// Exactly one risk update per realized close.
		e.governor.RecordTrade(realized)

		e.record(fmt.Sprintf("Closed %s %s x%d at %.4f (%+.2f%%): %s",
			pos.MarketID, pos.Side, res.FilledQty, res.AvgFillPrice, realized, rationale), "trade")
		e.logger.Info("position closed",
			"position_id", pos.PositionID,
			"market_id", pos.MarketID,
			"action", action,
			"pnl_pct", realized,
		)

	case res.FilledQty > 0:
		pos.Qty -= res.FilledQty
		e.record(fmt.Sprintf("Partially closed %s %s, %d remaining", pos.MarketID, pos.Side, pos.Qty), "trade")
		e.logger.Warn("partial close, position remains open",
			"position_id", pos.PositionID,
			"remaining", pos.Qty,
		)

	default:
		e.logger.Warn("close produced no fill", "position_id", pos.PositionID, "action", action)
	}

	if err := e.store.UpsertPosition(ctx, pos); err != nil {
		e.logger.Error("position update failed", "position_id", pos.PositionID, "error", err)
	}
	e.emit("position", pos)
	return res
}

// evaluateEntries considers the top qualifying markets for a new
// position. At most one entry fills per tick.
func (e *Engine) evaluateEntries(ctx context.Context, scan model.ScanSnapshot) {
	cfg := e.Config()

	open, err := e.store.OpenPositions(ctx)
	if err != nil {
		e.logger.Error("open positions read failed", "error", err)
		return
	}

	var contracts int
	var dollars float64
	held := make(map[string]bool, len(open))
	for _, p := range open {
		contracts += p.Qty
		dollars += p.EntryPrice * float64(p.Qty)
		held[p.MarketID] = true
	}
	e.governor.UpdateExposure(contracts, dollars, len(open))

	e.mu.RLock()
	eventEntries := e.entriesThisEvent
	e.mu.RUnlock()
	if cfg.RiskLimits.MaxTradesPerEvent > 0 && eventEntries >= cfg.RiskLimits.MaxTradesPerEvent {
		e.logger.Debug("entry pass skipped, event trade budget spent", "entries", eventEntries)
		return
	}

	canTrade, riskReason := e.governor.CanTrade()
	fingerprint := strategy.ConfigFingerprint(cfg)
	now := e.now().UTC()

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

		rec := model.DecisionRecord{
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
		}

		if !dec.Enter {
			e.appendDecision(ctx, rec)
			continue
		}

		opinion := e.advisor.Consult(ctx, advisor.Request{
			MarketID:        m.MarketID,
			MarketName:      m.Name,
			Side:            dec.Side,
			Price:           dec.Price,
			Qty:             cfg.Sizing.OrderSize,
			ExpectedEdgePct: dec.ExpectedEdgePct,
			OverallScore:    m.OverallScore,
		})
		rec.Advisory = opinion
		if opinion != nil && opinion.Veto && opinion.Confidence > cfg.Advisor.VetoThreshold {
			rec.ReasonCode = reasonAdvisorVeto
			rec.Rationale = "Advisor veto: " + opinion.Notes
			e.appendDecision(ctx, rec)
			e.record(fmt.Sprintf("Advisor vetoed entry on %s", m.MarketID), "advisor")
			continue
		}

		res, err := e.exec.PlaceWithTTL(ctx, m.MarketID, model.ActionBuy, dec.Side, dec.Price, cfg.Sizing.OrderSize)
		if err != nil {
			e.logger.Error("entry protocol failed", "market_id", m.MarketID, "error", err)
			e.appendDecision(ctx, rec)
			continue
		}
		if res.OrderID != "" {
			rec.OrderIDs = []string{res.OrderID}
		}
		e.appendDecision(ctx, rec)

		if res.FilledQty == 0 {
			e.logger.Info("entry unfilled", "market_id", m.MarketID, "reason_code", dec.ReasonCode)
			continue
		}

		pos := e.openPosition(ctx, m, dec, res, cfg, now)
		e.record(fmt.Sprintf("Opened %s %s x%d at %.4f (%s)",
			pos.MarketID, pos.Side, pos.Qty, pos.EntryPrice, dec.ReasonCode), "trade")
		e.emit("position", pos)

		// One fill per tick: re-evaluate the rest next cadence.
		break
	}
}

func (e *Engine) openPosition(ctx context.Context, m model.MarketSnapshot, dec strategy.EntryDecision, res model.OrderResult, cfg *config.Config, now time.Time) model.Position {
	pos := model.Position{
		PositionID:                   "pos-" + res.OrderID,
		MarketID:                     m.MarketID,
		MarketName:                   m.Name,
		Side:                         dec.Side,
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
		e.logger.Error("position write failed", "position_id", pos.PositionID, "error", err)
	}

	e.cache.setCooldown(m.MarketID, now.Add(cfg.RiskLimits.CooldownAfterTrade))

	e.mu.Lock()
	e.tradesExecuted++
	e.entriesThisEvent++
	e.mu.Unlock()

	e.logger.Info("position opened",
		"position_id", pos.PositionID,
		"market_id", pos.MarketID,
		"side", pos.Side,
		"qty", pos.Qty,
		"entry_price", pos.EntryPrice,
	)
	return pos
}

func (e *Engine) appendDecision(ctx context.Context, rec model.DecisionRecord) {
	if err := e.store.AppendDecision(ctx, rec); err != nil {
		e.logger.Error("decision write failed", "market_id", rec.MarketID, "error", err)
	}
	e.emit("decision", rec)
}
