package model

import "time"

// Side is the outcome a position is exposed to.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Action is the order direction.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderOpen      OrderStatus = "open"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
)

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// TradingMode selects which broker handles capital-risking calls.
type TradingMode string

const (
	ModePaper TradingMode = "paper"
	ModeLive  TradingMode = "live"
)

// Quote is a canonical point-in-time view of a market's prices.
// Consumers must never act on a quote with Valid=false.
type Quote struct {
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Mid       float64 `json:"mid"`
	Last      float64 `json:"last"`
	SpreadPct float64 `json:"spread_pct"`
	Valid     bool    `json:"valid"`
	Reason    string  `json:"reason,omitempty"`
}

// MarketRef identifies a discoverable market.
type MarketRef struct {
	MarketID            string  `json:"market_id"`
	Name                string  `json:"name"`
	Category            string  `json:"category"`
	MinutesToResolution float64 `json:"minutes_to_resolution"`
}

// MarketSnapshot is a scored view of one market for one tick.
type MarketSnapshot struct {
	MarketID            string  `json:"market_id"`
	Name                string  `json:"name"`
	Category            string  `json:"category"`
	MidPrice            float64 `json:"mid_price"`
	Bid                 float64 `json:"bid"`
	Ask                 float64 `json:"ask"`
	LastPrice           float64 `json:"last_price"`
	Volume              float64 `json:"volume"`
	BidDepth            float64 `json:"bid_depth"`
	AskDepth            float64 `json:"ask_depth"`
	VolatilityPct       float64 `json:"volatility_pct"`
	SpreadPct           float64 `json:"spread_pct"`
	LiquidityScore      float64 `json:"liquidity_score"`
	OverallScore        float64 `json:"overall_score"`
	Qualifies           bool    `json:"qualifies"`
	Rationale           string  `json:"rationale"`
	MinutesToResolution float64 `json:"minutes_to_resolution"`
}

// ScanSnapshot is the full result of one market scan, best score first.
type ScanSnapshot struct {
	Timestamp time.Time        `json:"timestamp"`
	Markets   []MarketSnapshot `json:"markets"`
}

// Position is an open or closed holding in a single market.
// Qty never increases after creation; it is only reduced by closing fills.
type Position struct {
	PositionID                   string         `json:"position_id"`
	MarketID                     string         `json:"market_id"`
	MarketName                   string         `json:"market_name"`
	Side                         Side           `json:"side"`
	Qty                          int            `json:"qty"`
	EntryPrice                   float64        `json:"entry_price"`
	CurrentPrice                 float64        `json:"current_price"`
	TakeProfitPct                float64        `json:"take_profit_pct"`
	StopLossPct                  float64        `json:"stop_loss_pct"`
	MaxHoldSeconds               int            `json:"max_hold_seconds"`
	CloseBeforeResolutionMinutes int            `json:"close_before_resolution_minutes"`
	OpenedAt                     time.Time      `json:"opened_at"`
	Status                       PositionStatus `json:"status"`
	PnLPct                       float64        `json:"pnl_pct"`
	PeakPnLPct                   float64        `json:"peak_pnl_pct"`
	TrailStopPct                 *float64       `json:"trail_stop_pct,omitempty"`
	ClosedAt                     *time.Time     `json:"closed_at,omitempty"`
}

// Order is a tracked order. Identity is the venue-assigned order id;
// rows are updated in place as status changes, never deleted.
type Order struct {
	OrderID   string      `json:"order_id"`
	MarketID  string      `json:"market_id"`
	Action    Action      `json:"action"`
	Side      Side        `json:"side"`
	Price     float64     `json:"price"`
	Qty       int         `json:"qty"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	FilledAt  *time.Time  `json:"filled_at,omitempty"`
}

// Fill is one partial or full execution. Append-only; the ground truth
// for realized PnL. TradeID is the execution's identity: stores drop a
// fill whose TradeID they have already recorded.
type Fill struct {
	TradeID   string    `json:"trade_id,omitempty"`
	OrderID   string    `json:"order_id"`
	MarketID  string    `json:"market_id"`
	Action    Action    `json:"action"`
	Side      Side      `json:"side"`
	Price     float64   `json:"price"`
	Qty       int       `json:"qty"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderResult is the outcome of an order submission or a full
// place/replace protocol run.
type OrderResult struct {
	OrderID      string      `json:"order_id"`
	Status       OrderStatus `json:"status"`
	FilledQty    int         `json:"filled_qty"`
	AvgFillPrice float64     `json:"avg_fill_price,omitempty"`
}

// DecisionRecord is an immutable audit entry, written once per decision.
type DecisionRecord struct {
	Timestamp         time.Time          `json:"timestamp"`
	MarketID          string             `json:"market_id"`
	Action            string             `json:"action"`
	ReasonCode        string             `json:"reason_code"`
	Qualifies         bool               `json:"qualifies"`
	Scores            map[string]float64 `json:"scores"`
	Rationale         string             `json:"rationale"`
	ConfigFingerprint string             `json:"config_fingerprint"`
	OrderIDs          []string           `json:"order_ids,omitempty"`
	Advisory          *AdvisorOpinion    `json:"advisory,omitempty"`
}

// ActivityEntry is a human-readable event for the activity feed.
type ActivityEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Category  string    `json:"category"`
}

// AdvisorOpinion is the advisory service's view of a proposed trade.
// A veto with sufficient confidence blocks an entry; it never causes one.
type AdvisorOpinion struct {
	Sentiment  float64 `json:"sentiment"`
	Confidence float64 `json:"confidence"`
	Notes      string  `json:"notes"`
	Veto       bool    `json:"veto"`
}

// StatusSnapshot is the engine's externally visible state.
type StatusSnapshot struct {
	Status         string      `json:"status"`
	TradesExecuted int         `json:"trades_executed"`
	OpenPositions  int         `json:"open_positions"`
	EventPnLPct    float64     `json:"event_pnl_pct"`
	RiskMode       string      `json:"risk_mode"`
	TradingMode    TradingMode `json:"trading_mode"`
	NextAction     string      `json:"next_action"`
}

// DryRunResult carries the decisions a live tick would have made,
// without any orders having been submitted.
type DryRunResult struct {
	Scan      ScanSnapshot     `json:"scan"`
	Decisions []DecisionRecord `json:"decisions"`
}
