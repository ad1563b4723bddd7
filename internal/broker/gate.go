package broker

import (
	"fmt"

	"github.com/rickgao/kalshi-trader/internal/config"
)

// Gate holds the three independent switches that together permit live
// trading. Any single switch being off forces all trading through the
// paper broker; a live request that fails the gate is rejected
// synchronously, never silently downgraded.
type Gate struct {
	safety config.Safety
}

// NewGate builds a gate from the safety config.
func NewGate(safety config.Safety) Gate {
	return Gate{safety: safety}
}

// Check returns nil only when every switch permits live trading against
// the given venue environment.
func (g Gate) Check(venueEnvironment string) error {
	if g.safety.TradingMode != "live" {
		return fmt.Errorf("trading mode is %q, not live", g.safety.TradingMode)
	}
	if !g.safety.LiveTradingEnabled {
		return fmt.Errorf("live trading is not enabled")
	}
	if g.safety.LiveConfirm != config.LiveConfirmPhrase {
		return fmt.Errorf("live confirmation phrase not provided")
	}
	if venueEnvironment != "live" {
		return fmt.Errorf("venue environment is %q, not live", venueEnvironment)
	}
	return nil
}

// Select picks the broker for this configuration: live only when the
// gate passes against the live broker's self-reported environment,
// paper otherwise. The error reports why live was refused; callers that
// asked for paper can ignore it.
func Select(gate Gate, paper, live Broker) (Broker, error) {
	if live == nil {
		return paper, fmt.Errorf("no live broker configured")
	}
	if err := gate.Check(live.Environment()); err != nil {
		return paper, err
	}
	return live, nil
}
