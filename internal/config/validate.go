package config

import (
	"errors"
	"fmt"
	"math"
)

// LiveConfirmPhrase is the exact confirmation string required before any
// live, capital-risking call is permitted.
const LiveConfirmPhrase = "ENABLE LIVE TRADING"

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.MarketFilters.TimeWindowHours < 1 {
		return errors.New("market_filters.time_window_hours must be >= 1")
	}

	if err := c.Scoring.validate(); err != nil {
		return err
	}

	if c.Entry.MomentumWindow < 2 {
		return errors.New("entry.momentum_window must be >= 2")
	}
	if c.Entry.MaxReplacements < 0 {
		return errors.New("entry.max_replacements must be >= 0")
	}

	if c.Exit.TakeProfitPct <= 0 {
		return errors.New("exit.take_profit_pct must be positive")
	}
	if c.Exit.StopLossPct <= 0 {
		return errors.New("exit.stop_loss_pct must be positive")
	}
	if c.Exit.TrailGapPct <= 0 {
		return errors.New("exit.trail_gap_pct must be positive")
	}

	if c.RiskLimits.MaxExposureContracts < 1 {
		return errors.New("risk_limits.max_exposure_contracts must be >= 1")
	}
	if c.RiskLimits.MaxExposureDollars <= 0 {
		return errors.New("risk_limits.max_exposure_dollars must be positive")
	}
	if c.RiskLimits.MaxConcurrentPositions < 1 {
		return errors.New("risk_limits.max_concurrent_positions must be >= 1")
	}

	if c.Sizing.OrderSize < 1 {
		return errors.New("sizing.order_size must be >= 1")
	}

	if c.Engine.Cadence <= 0 {
		return errors.New("engine.cadence must be positive")
	}

	switch c.Safety.TradingMode {
	case "paper", "live":
	default:
		return fmt.Errorf("safety.trading_mode must be \"paper\" or \"live\", got %q", c.Safety.TradingMode)
	}
	if c.Safety.TradingMode == "live" {
		if c.Venue.APIKey == "" || c.Venue.PrivateKeyPath == "" {
			return errors.New("live trading requires venue.api_key and venue.private_key_path")
		}
	}

	if c.Advisor.Enabled && c.Advisor.URL == "" {
		return errors.New("advisor.url is required when advisor.enabled")
	}

	if c.Database.Host != "" {
		if err := c.Database.validate(); err != nil {
			return err
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	return nil
}

func (s *Scoring) validate() error {
	if s.VolWindow < 2 {
		return errors.New("scoring.vol_window must be >= 2")
	}
	if s.MaxSpreadPct <= 0 {
		return errors.New("scoring.max_spread_pct must be positive")
	}
	sum := s.Weights.Volatility + s.Weights.Spread + s.Weights.Liquidity + s.Weights.Resolution
	if sum <= 0 || math.Abs(sum-1.0) > 0.25 {
		return fmt.Errorf("scoring.weights must roughly sum to 1.0, got %.2f", sum)
	}
	return nil
}

func (db *Database) validate() error {
	if db.Name == "" {
		return errors.New("database.name is required")
	}
	if db.User == "" {
		return errors.New("database.user is required")
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("database.min_conns (%d) cannot exceed max_conns (%d)", db.MinConns, db.MaxConns)
	}
	return nil
}
