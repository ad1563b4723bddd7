package engine

import (
	"sync"
	"time"

	"github.com/rickgao/kalshi-trader/internal/broker"
	"github.com/rickgao/kalshi-trader/internal/model"
)

// marketState is the rolling per-market history the scorer and the
// entry evaluator consume.
type marketState struct {
	name          string
	prices        []float64 // trailing mids, oldest first, bounded
	spreads       []float64
	updates       int // quote updates since the rate was last read
	cooldownUntil time.Time
	last          broker.Snapshot
}

// stateCache holds per-market rolling state between ticks.
type stateCache struct {
	mu     sync.Mutex
	window int
	states map[string]*marketState
}

func newStateCache(window int) *stateCache {
	if window <= 0 {
		window = 20
	}
	return &stateCache{
		window: window,
		states: make(map[string]*marketState),
	}
}

// observe appends one snapshot to a market's rolling history, evicting
// the oldest sample once the window is full.
func (c *stateCache) observe(ref model.MarketRef, snap broker.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.states[ref.MarketID]
	if st == nil {
		st = &marketState{}
		c.states[ref.MarketID] = st
	}
	st.name = ref.Name
	st.last = snap
	st.updates++

	if snap.Quote.Valid {
		st.prices = append(st.prices, snap.Quote.Mid)
		st.spreads = append(st.spreads, snap.Quote.SpreadPct)
		if len(st.prices) > c.window {
			st.prices = st.prices[1:]
			st.spreads = st.spreads[1:]
		}
	}
}

// prices returns a copy of a market's rolling mid history.
func (c *stateCache) prices(marketID string) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.states[marketID]
	if st == nil {
		return nil
	}
	out := make([]float64, len(st.prices))
	copy(out, st.prices)
	return out
}

// lastSnapshot returns the most recent snapshot observed for a market.
func (c *stateCache) lastSnapshot(marketID string) (broker.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.states[marketID]
	if st == nil {
		return broker.Snapshot{}, false
	}
	return st.last, true
}

// takeUpdateRate reports updates per second over the cadence window and
// resets the counter. Floors at 0.1 so a quiet market scores low
// rather than zeroing out the liquidity blend.
func (c *stateCache) takeUpdateRate(marketID string, cadenceSeconds float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.states[marketID]
	if st == nil || cadenceSeconds <= 0 {
		return 0.1
	}
	rate := float64(st.updates) / cadenceSeconds
	st.updates = 0
	if rate < 0.1 {
		rate = 0.1
	}
	return rate
}

// setCooldown stamps a per-market re-entry cooldown.
func (c *stateCache) setCooldown(marketID string, until time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.states[marketID]
	if st == nil {
		st = &marketState{}
		c.states[marketID] = st
	}
	st.cooldownUntil = until
}

func (c *stateCache) inCooldown(marketID string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.states[marketID]
	return st != nil && now.Before(st.cooldownUntil)
}
