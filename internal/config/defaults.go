package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultCategory        = "sports"
	DefaultTimeWindowHours = 24

	DefaultVolWindow            = 20
	DefaultVolThreshold         = 1.5
	DefaultMaxSpreadPct         = 6.0
	DefaultMinLiquidityScore    = 45.0
	DefaultLiquidityVolumeRef   = 200.0
	DefaultLiquidityDepthRef    = 250.0
	DefaultLiquidityUpdateRef   = 1.0
	DefaultResolutionMinutesRef = 720.0

	DefaultMomentumWindow       = 6
	DefaultMomentumThresholdPct = 0.6
	DefaultEntryEdgePct         = 0.3
	DefaultFeePct               = 0.1
	DefaultOrderTTL             = 30 * time.Second
	DefaultMaxReplacements      = 2

	DefaultTakeProfitPct                = 4.0
	DefaultStopLossPct                  = 3.0
	DefaultMaxHoldSeconds               = 900
	DefaultCloseBeforeResolutionMinutes = 60
	DefaultTrailStartPct                = 2.0
	DefaultTrailGapPct                  = 1.0
	DefaultCloseSlippagePct             = 0.4
	DefaultMaxCloseRequotes             = 2

	DefaultMaxExposureContracts   = 4
	DefaultMaxExposureDollars     = 400.0
	DefaultMaxConcurrentPositions = 2
	DefaultMaxTradesPerEvent      = 6
	DefaultMaxConsecutiveLosses   = 2
	DefaultMaxEventLossPct        = 5.0
	DefaultMaxSessionLossPct      = 8.0
	DefaultCooldownAfterTrade     = 20 * time.Second

	DefaultOrderSize = 1

	DefaultAdvisorVetoThreshold = 0.7
	DefaultAdvisorTimeout       = 10 * time.Second

	DefaultCadence            = 30 * time.Second
	DefaultReconcileInterval  = 60 * time.Second
	DefaultActivityBufferSize = 50

	DefaultVenueEnvironment = "demo"
	DefaultDemoRestURL      = "https://demo-api.kalshi.co/trade-api/v2"
	DefaultLiveRestURL      = "https://api.elections.kalshi.com/trade-api/v2"
	DefaultVenueTimeout     = 30 * time.Second
	DefaultVenueMaxRetries  = 3
	DefaultVenueBackoff     = time.Second

	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2

	DefaultServerPort = 8080
)

func (c *Config) applyDefaults() {
	if c.MarketFilters.Category == "" {
		c.MarketFilters.Category = DefaultCategory
	}
	if c.MarketFilters.TimeWindowHours == 0 {
		c.MarketFilters.TimeWindowHours = DefaultTimeWindowHours
	}

	applyScoringDefaults(&c.Scoring)
	applyEntryDefaults(&c.Entry)
	applyExitDefaults(&c.Exit)
	applyRiskDefaults(&c.RiskLimits)

	if c.Sizing.OrderSize == 0 {
		c.Sizing.OrderSize = DefaultOrderSize
	}

	if c.Advisor.VetoThreshold == 0 {
		c.Advisor.VetoThreshold = DefaultAdvisorVetoThreshold
	}
	if c.Advisor.Timeout == 0 {
		c.Advisor.Timeout = DefaultAdvisorTimeout
	}

	if c.Engine.Cadence == 0 {
		c.Engine.Cadence = DefaultCadence
	}
	if c.Engine.ReconcileInterval == 0 {
		c.Engine.ReconcileInterval = DefaultReconcileInterval
	}
	if c.Engine.ActivityBufferSize == 0 {
		c.Engine.ActivityBufferSize = DefaultActivityBufferSize
	}

	if c.Safety.TradingMode == "" {
		c.Safety.TradingMode = "paper"
	}

	applyVenueDefaults(&c.Venue)
	applyDBDefaults(&c.Database)

	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
}

func applyScoringDefaults(s *Scoring) {
	if s.VolWindow == 0 {
		s.VolWindow = DefaultVolWindow
	}
	if s.VolThreshold == 0 {
		s.VolThreshold = DefaultVolThreshold
	}
	if s.MaxSpreadPct == 0 {
		s.MaxSpreadPct = DefaultMaxSpreadPct
	}
	if s.MinLiquidityScore == 0 {
		s.MinLiquidityScore = DefaultMinLiquidityScore
	}
	if s.LiquidityVolumeRef == 0 {
		s.LiquidityVolumeRef = DefaultLiquidityVolumeRef
	}
	if s.LiquidityDepthRef == 0 {
		s.LiquidityDepthRef = DefaultLiquidityDepthRef
	}
	if s.LiquidityUpdateRef == 0 {
		s.LiquidityUpdateRef = DefaultLiquidityUpdateRef
	}
	if s.ResolutionMinutesRef == 0 {
		s.ResolutionMinutesRef = DefaultResolutionMinutesRef
	}
	if s.Weights == (Weights{}) {
		s.Weights = Weights{Volatility: 0.45, Spread: 0.25, Liquidity: 0.3, Resolution: 0.1}
	}
}

func applyEntryDefaults(e *Entry) {
	if e.MomentumWindow == 0 {
		e.MomentumWindow = DefaultMomentumWindow
	}
	if e.MomentumThresholdPct == 0 {
		e.MomentumThresholdPct = DefaultMomentumThresholdPct
	}
	if e.EntryEdgePct == 0 {
		e.EntryEdgePct = DefaultEntryEdgePct
	}
	if e.FeePct == 0 {
		e.FeePct = DefaultFeePct
	}
	if e.OrderTTL == 0 {
		e.OrderTTL = DefaultOrderTTL
	}
	if e.MaxReplacements == 0 {
		e.MaxReplacements = DefaultMaxReplacements
	}
}

func applyExitDefaults(e *Exit) {
	if e.TakeProfitPct == 0 {
		e.TakeProfitPct = DefaultTakeProfitPct
	}
	if e.StopLossPct == 0 {
		e.StopLossPct = DefaultStopLossPct
	}
	if e.MaxHoldSeconds == 0 {
		e.MaxHoldSeconds = DefaultMaxHoldSeconds
	}
	if e.CloseBeforeResolutionMinutes == 0 {
		e.CloseBeforeResolutionMinutes = DefaultCloseBeforeResolutionMinutes
	}
	if e.TrailStartPct == 0 {
		e.TrailStartPct = DefaultTrailStartPct
	}
	if e.TrailGapPct == 0 {
		e.TrailGapPct = DefaultTrailGapPct
	}
	if e.CloseSlippagePct == 0 {
		e.CloseSlippagePct = DefaultCloseSlippagePct
	}
	if e.MaxCloseRequotes == 0 {
		e.MaxCloseRequotes = DefaultMaxCloseRequotes
	}
}

func applyRiskDefaults(r *RiskLimits) {
	if r.MaxExposureContracts == 0 {
		r.MaxExposureContracts = DefaultMaxExposureContracts
	}
	if r.MaxExposureDollars == 0 {
		r.MaxExposureDollars = DefaultMaxExposureDollars
	}
	if r.MaxConcurrentPositions == 0 {
		r.MaxConcurrentPositions = DefaultMaxConcurrentPositions
	}
	if r.MaxTradesPerEvent == 0 {
		r.MaxTradesPerEvent = DefaultMaxTradesPerEvent
	}
	if r.MaxConsecutiveLosses == 0 {
		r.MaxConsecutiveLosses = DefaultMaxConsecutiveLosses
	}
	if r.MaxEventLossPct == 0 {
		r.MaxEventLossPct = DefaultMaxEventLossPct
	}
	if r.MaxSessionLossPct == 0 {
		r.MaxSessionLossPct = DefaultMaxSessionLossPct
	}
	if r.CooldownAfterTrade == 0 {
		r.CooldownAfterTrade = DefaultCooldownAfterTrade
	}
}

func applyVenueDefaults(v *Venue) {
	if v.Environment == "" {
		v.Environment = DefaultVenueEnvironment
	}
	if v.RestURL == "" {
		if v.Environment == "live" {
			v.RestURL = DefaultLiveRestURL
		} else {
			v.RestURL = DefaultDemoRestURL
		}
	}
	if v.Timeout == 0 {
		v.Timeout = DefaultVenueTimeout
	}
	if v.MaxRetries == 0 {
		v.MaxRetries = DefaultVenueMaxRetries
	}
	if v.RetryBackoff == 0 {
		v.RetryBackoff = DefaultVenueBackoff
	}
}

func applyDBDefaults(db *Database) {
	if db.Host == "" {
		return // in-memory store, nothing to default
	}
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
