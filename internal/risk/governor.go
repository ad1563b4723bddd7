// Package risk enforces the hard trading limits: exposure caps, loss
// streaks, event and session drawdown, and the post-trade cooldown.
package risk

import (
	"math"
	"sync"
	"time"

	"github.com/rickgao/kalshi-trader/internal/config"
)

// State is a snapshot of the governor's accumulators.
type State struct {
	ConsecutiveLosses int       `json:"consecutive_losses"`
	EventPnLPct       float64   `json:"event_pnl_pct"`
	SessionPnLPct     float64   `json:"session_pnl_pct"`
	ExposureContracts int       `json:"exposure_contracts"`
	ExposureDollars   float64   `json:"exposure_dollars"`
	ActivePositions   int       `json:"active_positions"`
	LastTradeTime     time.Time `json:"last_trade_time"`
}

// Governor gates every entry and is updated after every realized trade.
// The session accumulator never resets; the event accumulator resets
// only through ResetEvent, a boundary the caller controls.
type Governor struct {
	mu     sync.Mutex
	limits config.RiskLimits
	state  State
	now    func() time.Time
}

// New creates a Governor with the given limits.
func New(limits config.RiskLimits) *Governor {
	return &Governor{limits: limits, now: time.Now}
}

// SetLimits replaces the limits, preserving accumulated state.
func (g *Governor) SetLimits(limits config.RiskLimits) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limits = limits
}

// RecordTrade registers one realized trade. Must be called exactly once
// per realized close, never on partial progress.
func (g *Governor) RecordTrade(pnlPct float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.SessionPnLPct += pnlPct
	g.state.EventPnLPct += pnlPct
	if pnlPct < 0 {
		g.state.ConsecutiveLosses++
	} else {
		g.state.ConsecutiveLosses = 0
	}
	g.state.LastTradeTime = g.now()
}

// UpdateExposure refreshes the running exposure totals.
func (g *Governor) UpdateExposure(contracts int, dollars float64, activePositions int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.ExposureContracts = contracts
	g.state.ExposureDollars = dollars
	g.state.ActivePositions = activePositions
}

// ResetEvent clears the event-scoped accumulators at an event boundary.
func (g *Governor) ResetEvent() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.EventPnLPct = 0
	g.state.ConsecutiveLosses = 0
}

// InCooldown reports whether the post-trade cooldown window is open.
func (g *Governor) InCooldown() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inCooldownLocked()
}

func (g *Governor) inCooldownLocked() bool {
	if g.state.LastTradeTime.IsZero() {
		return false
	}
	return g.now().Sub(g.state.LastTradeTime) < g.limits.CooldownAfterTrade
}

// CanTrade evaluates the limits in a fixed order and returns the first
// failing reason, or true with "Ok".
func (g *Governor) CanTrade() (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case g.limits.KillSwitch:
		return false, "Kill switch active"
	case g.state.ExposureContracts >= g.limits.MaxExposureContracts:
		return false, "Exposure contracts limit reached"
	case g.state.ExposureDollars >= g.limits.MaxExposureDollars:
		return false, "Exposure dollars limit reached"
	case g.state.ActivePositions >= g.limits.MaxConcurrentPositions:
		return false, "Max concurrent positions reached"
	case g.state.ConsecutiveLosses >= g.limits.MaxConsecutiveLosses:
		return false, "Loss streak limit reached"
	case math.Abs(g.state.EventPnLPct) >= g.limits.MaxEventLossPct:
		return false, "Event loss cap reached"
	case math.Abs(g.state.SessionPnLPct) >= g.limits.MaxSessionLossPct:
		return false, "Session loss cap reached"
	case g.inCooldownLocked():
		return false, "Cooldown active"
	}
	return true, "Ok"
}

// Mode labels the governor's posture for status displays.
func (g *Governor) Mode() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.limits.KillSwitch:
		return "Kill-switch"
	case g.state.ConsecutiveLosses > 0:
		return "Cautious"
	default:
		return "Conservative"
	}
}

// Snapshot returns a copy of the current state.
func (g *Governor) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}
