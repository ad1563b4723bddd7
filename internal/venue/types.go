package venue

// MarketsResponse from GET /markets
type MarketsResponse struct {
	Markets []APIMarket `json:"markets"`
	Cursor  string      `json:"cursor"`
}

// SingleMarketResponse from GET /markets/{ticker}
type SingleMarketResponse struct {
	Market APIMarket `json:"market"`
}

// APIMarket represents a market from the Kalshi API.
type APIMarket struct {
	Ticker      string `json:"ticker"`
	EventTicker string `json:"event_ticker"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Status      string `json:"status"`
	MarketType  string `json:"market_type"`
	Result      string `json:"result"`

	// Prices in cents
	YesBid    int `json:"yes_bid"`
	YesAsk    int `json:"yes_ask"`
	NoBid     int `json:"no_bid"`
	NoAsk     int `json:"no_ask"`
	LastPrice int `json:"last_price"`

	// Volume
	Volume       int64 `json:"volume"`
	Volume24h    int64 `json:"volume_24h"`
	OpenInterest int64 `json:"open_interest"`

	// Timestamps (ISO 8601)
	OpenTime       string `json:"open_time"`
	CloseTime      string `json:"close_time"`
	ExpirationTime string `json:"expiration_time"`
}

// BalanceResponse from GET /portfolio/balance
type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

// CreateOrderRequest for POST /portfolio/orders
type CreateOrderRequest struct {
	Ticker        string `json:"ticker"`
	Action        string `json:"action"` // "buy" or "sell"
	Side          string `json:"side"`   // "yes" or "no"
	Type          string `json:"type"`   // "limit"
	Count         int    `json:"count"`
	YesPriceCents int    `json:"yes_price,omitempty"`
	NoPriceCents  int    `json:"no_price,omitempty"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// APIOrder represents an order from the Kalshi API.
type APIOrder struct {
	OrderID           string `json:"order_id"`
	Ticker            string `json:"ticker"`
	Action            string `json:"action"`
	Side              string `json:"side"`
	Type              string `json:"type"`
	YesPrice          int    `json:"yes_price"`
	NoPrice           int    `json:"no_price"`
	Count             int    `json:"count"`
	FilledCount       int    `json:"filled_count"`
	RemainingCount    int    `json:"remaining_count"`
	AvgFillPriceCents int    `json:"avg_fill_price"`
	Status            string `json:"status"` // resting, canceled, executed, pending
	CreatedTime       string `json:"created_time"`
	UpdatedTime       string `json:"updated_time"`
}

// OrderResponse wraps a single order.
type OrderResponse struct {
	Order APIOrder `json:"order"`
}

// OrdersResponse from GET /portfolio/orders
type OrdersResponse struct {
	Orders []APIOrder `json:"orders"`
	Cursor string     `json:"cursor"`
}

// APIPosition represents a market position from the Kalshi API.
type APIPosition struct {
	Ticker           string `json:"ticker"`
	Position         int    `json:"position"` // signed: >0 yes, <0 no
	MarketExposure   int64  `json:"market_exposure"`
	RealizedPnl      int64  `json:"realized_pnl"`
	TotalTradedCents int64  `json:"total_traded"`
}

// PositionsResponse from GET /portfolio/positions
type PositionsResponse struct {
	MarketPositions []APIPosition `json:"market_positions"`
	Cursor          string        `json:"cursor"`
}

// APIFill represents one execution from the Kalshi API.
type APIFill struct {
	TradeID     string `json:"trade_id"`
	OrderID     string `json:"order_id"`
	Ticker      string `json:"ticker"`
	Side        string `json:"side"`
	Action      string `json:"action"`
	YesPrice    int    `json:"yes_price"`
	NoPrice     int    `json:"no_price"`
	Count       int    `json:"count"`
	IsTaker     bool   `json:"is_taker"`
	CreatedTime string `json:"created_time"`
}

// FillsResponse from GET /portfolio/fills
type FillsResponse struct {
	Fills  []APIFill `json:"fills"`
	Cursor string    `json:"cursor"`
}
