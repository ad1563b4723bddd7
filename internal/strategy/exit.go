package strategy

import (
	"math"
	"time"

	"github.com/rickgao/kalshi-trader/internal/config"
	"github.com/rickgao/kalshi-trader/internal/model"
)

// Exit actions, in priority order. The first match wins.
const (
	ExitTakeProfit = "TAKE_PROFIT"
	ExitStopLoss   = "STOP_LOSS"
	ExitTime       = "TIME_EXIT"
	ExitLate       = "LATE_EXIT"
	ExitTrailStop  = "TRAIL_STOP"
	ExitHold       = "HOLD"
)

// ExitDecision is the outcome of evaluating an open position, together
// with the carried trailing state. PeakPnLPct is monotonically
// non-decreasing for the life of a position.
type ExitDecision struct {
	Action       string
	Price        float64
	Rationale    string
	PnLPct       float64
	PeakPnLPct   float64
	TrailStopPct *float64
}

// PnLPct is the signed percentage gain of a position at the current
// price. Yes positions gain when price rises, no positions when it falls.
func PnLPct(entryPrice, currentPrice float64, side model.Side) float64 {
	if entryPrice <= 0 {
		return 0
	}
	raw := (currentPrice - entryPrice) / entryPrice * 100
	if side == model.SideNo {
		return -raw
	}
	return raw
}

// DecideExit evaluates an open position against the current quote.
// Must be called every tick even while holding: peak PnL and the
// trailing stop are carried state only this function updates.
func DecideExit(pos model.Position, q model.Quote, minutesToResolution float64, now time.Time, cfg config.Exit) ExitDecision {
	pnlPct := PnLPct(pos.EntryPrice, pos.CurrentPrice, pos.Side)
	newPeak := math.Max(pos.PeakPnLPct, pnlPct)
	trailStop := pos.TrailStopPct

	// Passive exit price: bid if long, ask if short.
	exitPrice := q.Bid
	if pos.Side == model.SideNo {
		exitPrice = q.Ask
	}
	exitPrice = round4(exitPrice)

	decision := func(action, why string) ExitDecision {
		return ExitDecision{
			Action:       action,
			Price:        exitPrice,
			Rationale:    why,
			PnLPct:       pnlPct,
			PeakPnLPct:   newPeak,
			TrailStopPct: trailStop,
		}
	}

	if pnlPct >= pos.TakeProfitPct {
		return decision(ExitTakeProfit, "Target met")
	}
	if pnlPct <= -pos.StopLossPct {
		return decision(ExitStopLoss, "Stop loss hit")
	}
	if now.Sub(pos.OpenedAt) >= time.Duration(pos.MaxHoldSeconds)*time.Second {
		return decision(ExitTime, "Max hold time reached")
	}
	if minutesToResolution <= float64(pos.CloseBeforeResolutionMinutes) {
		return decision(ExitLate, "Approaching resolution")
	}

	// Trailing arms once peak PnL has ever reached the start threshold,
	// and stays armed even if the current PnL slips back below it.
	if newPeak >= cfg.TrailStartPct {
		prev := -100.0
		if trailStop != nil {
			prev = *trailStop
		}
		stop := math.Max(prev, newPeak-cfg.TrailGapPct)
		trailStop = &stop
		if pnlPct <= stop {
			return decision(ExitTrailStop, "Trailing stop hit")
		}
	}

	d := decision(ExitHold, "Position healthy")
	d.Price = 0
	return d
}
