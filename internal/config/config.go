package config

import "time"

// Config is the root configuration for a trader instance.
type Config struct {
	MarketFilters MarketFilters `yaml:"market_filters"`
	Scoring       Scoring       `yaml:"scoring"`
	Entry         Entry         `yaml:"entry"`
	Exit          Exit          `yaml:"exit"`
	RiskLimits    RiskLimits    `yaml:"risk_limits"`
	Sizing        Sizing        `yaml:"sizing"`
	Advisor       Advisor       `yaml:"advisor"`
	Safety        Safety        `yaml:"safety"`
	Engine        Engine        `yaml:"engine"`
	Venue         Venue         `yaml:"venue"`
	Database      Database      `yaml:"database"`
	Server        Server        `yaml:"server"`
}

// MarketFilters narrows which markets are scanned.
type MarketFilters struct {
	Category        string `yaml:"category"`
	TimeWindowHours int    `yaml:"time_window_hours"`
}

// Weights blend the component scores into the overall market score.
type Weights struct {
	Volatility float64 `yaml:"volatility"`
	Spread     float64 `yaml:"spread"`
	Liquidity  float64 `yaml:"liquidity"`
	Resolution float64 `yaml:"resolution"`
}

// Scoring holds market qualification thresholds and score shaping.
type Scoring struct {
	VolWindow            int     `yaml:"vol_window"`
	VolThreshold         float64 `yaml:"vol_threshold"`
	MaxSpreadPct         float64 `yaml:"max_spread_pct"`
	MinLiquidityScore    float64 `yaml:"min_liquidity_score"`
	LiquidityVolumeRef   float64 `yaml:"liquidity_volume_ref"`
	LiquidityDepthRef    float64 `yaml:"liquidity_depth_ref"`
	LiquidityUpdateRef   float64 `yaml:"liquidity_update_ref"`
	ResolutionMinutesRef float64 `yaml:"resolution_minutes_ref"`
	Weights              Weights `yaml:"weights"`
}

// Entry holds the entry decision and open-order protocol settings.
type Entry struct {
	MomentumWindow       int           `yaml:"momentum_window"`
	MomentumThresholdPct float64       `yaml:"momentum_threshold_pct"`
	EntryEdgePct         float64       `yaml:"entry_edge_pct"`
	FeePct               float64       `yaml:"fee_pct"`
	OrderTTL             time.Duration `yaml:"order_ttl"`
	MaxReplacements      int           `yaml:"max_replacements"`
}

// Exit holds the exit decision and close-order protocol settings.
type Exit struct {
	TakeProfitPct                float64 `yaml:"take_profit_pct"`
	StopLossPct                  float64 `yaml:"stop_loss_pct"`
	MaxHoldSeconds               int     `yaml:"max_hold_seconds"`
	CloseBeforeResolutionMinutes int     `yaml:"close_before_resolution_minutes"`
	TrailStartPct                float64 `yaml:"trail_start_pct"`
	TrailGapPct                  float64 `yaml:"trail_gap_pct"`
	CloseSlippagePct             float64 `yaml:"close_slippage_pct"`
	MaxCloseRequotes             int     `yaml:"max_close_requotes"`
}

// RiskLimits are the hard caps enforced by the risk governor.
type RiskLimits struct {
	MaxExposureContracts   int           `yaml:"max_exposure_contracts"`
	MaxExposureDollars     float64       `yaml:"max_exposure_dollars"`
	MaxConcurrentPositions int           `yaml:"max_concurrent_positions"`
	MaxTradesPerEvent      int           `yaml:"max_trades_per_event"`
	MaxConsecutiveLosses   int           `yaml:"max_consecutive_losses"`
	MaxEventLossPct        float64       `yaml:"max_event_loss_pct"`
	MaxSessionLossPct      float64       `yaml:"max_session_loss_pct"`
	CooldownAfterTrade     time.Duration `yaml:"cooldown_after_trade"`
	KillSwitch             bool          `yaml:"kill_switch"`
}

// Sizing controls order quantity.
type Sizing struct {
	OrderSize int `yaml:"order_size"`
}

// Advisor configures the optional advisory service.
type Advisor struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url"`
	VetoThreshold float64       `yaml:"veto_threshold"`
	Timeout       time.Duration `yaml:"timeout"`
}

// Safety holds the independent switches that together gate live trading.
// All three must pass, and the venue must self-report as live, before a
// capital-risking call reaches the live venue.
type Safety struct {
	TradingMode        string `yaml:"trading_mode"` // "paper" or "live"
	LiveTradingEnabled bool   `yaml:"live_trading_enabled"`
	LiveConfirm        string `yaml:"live_confirm"`
}

// Engine holds the scheduler cadence.
type Engine struct {
	Cadence            time.Duration `yaml:"cadence"`
	ReconcileInterval  time.Duration `yaml:"reconcile_interval"`
	ActivityBufferSize int           `yaml:"activity_buffer_size"`
}

// Venue holds Kalshi API settings.
type Venue struct {
	Environment    string        `yaml:"environment"` // "demo" or "live"
	RestURL        string        `yaml:"rest_url"`
	APIKey         string        `yaml:"api_key"`          // API key ID (KALSHI-ACCESS-KEY header)
	PrivateKeyPath string        `yaml:"private_key_path"` // RSA private key PEM file
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`
}

// Database holds the audit store connection. When Host is empty the
// trader falls back to the in-memory store (paper sessions, tests).
type Database struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Server holds the control surface listener settings.
type Server struct {
	Port int `yaml:"port"`
}
