package engine

import (
	"context"
	"sort"
	"time"

	"github.com/rickgao/kalshi-trader/internal/model"
	"github.com/rickgao/kalshi-trader/internal/scoring"
)

// scan lists candidate markets, refreshes the rolling state for each,
// and scores them. Best score first.
func (e *Engine) scan(ctx context.Context) model.ScanSnapshot {
	cfg := e.Config()
	window := time.Duration(cfg.MarketFilters.TimeWindowHours) * time.Hour

	refs, err := e.broker.ListMarkets(ctx, cfg.MarketFilters.Category, window)
	if err != nil {
		e.logger.Error("market listing failed", "error", err)
		return e.LastScan()
	}

	cadenceSeconds := cfg.Engine.Cadence.Seconds()
	markets := make([]model.MarketSnapshot, 0, len(refs))

	for _, ref := range refs {
		snap, err := e.broker.GetSnapshot(ctx, ref.MarketID)
		if err != nil {
			e.logger.Warn("snapshot failed", "market_id", ref.MarketID, "error", err)
			continue
		}
		e.cache.observe(ref, snap)

		metrics := scoring.Compute(scoring.Input{
			Prices:              e.cache.prices(ref.MarketID),
			Bid:                 snap.Quote.Bid,
			Ask:                 snap.Quote.Ask,
			Volume:              snap.Volume,
			BidDepth:            snap.BidDepth,
			AskDepth:            snap.AskDepth,
			UpdateRate:          e.cache.takeUpdateRate(ref.MarketID, cadenceSeconds),
			MinutesToResolution: snap.MinutesToResolution,
		}, cfg.Scoring, float64(cfg.Exit.CloseBeforeResolutionMinutes))

		markets = append(markets, model.MarketSnapshot{
			MarketID:            ref.MarketID,
			Name:                ref.Name,
			Category:            ref.Category,
			MidPrice:            snap.Quote.Mid,
			Bid:                 snap.Quote.Bid,
			Ask:                 snap.Quote.Ask,
			LastPrice:           snap.Quote.Last,
			Volume:              snap.Volume,
			BidDepth:            snap.BidDepth,
			AskDepth:            snap.AskDepth,
			VolatilityPct:       metrics.VolatilityPct,
			SpreadPct:           metrics.SpreadPct,
			LiquidityScore:      metrics.LiquidityScore,
			OverallScore:        metrics.OverallScore,
			Qualifies:           metrics.Qualifies,
			Rationale:           metrics.Rationale,
			MinutesToResolution: snap.MinutesToResolution,
		})
	}

	sort.SliceStable(markets, func(i, j int) bool {
		return markets[i].OverallScore > markets[j].OverallScore
	})

	snapshot := model.ScanSnapshot{Timestamp: e.now().UTC(), Markets: markets}

	e.mu.Lock()
	e.lastScan = snapshot
	e.mu.Unlock()

	e.emit("scan", snapshot)
	return snapshot
}
