package venue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rickgao/kalshi-trader/internal/broker"
	"github.com/rickgao/kalshi-trader/internal/config"
	"github.com/rickgao/kalshi-trader/internal/model"
)

func openGate() broker.Gate {
	return broker.NewGate(config.Safety{
		TradingMode:        "live",
		LiveTradingEnabled: true,
		LiveConfirm:        config.LiveConfirmPhrase,
	})
}

func newLiveTest(t *testing.T, handler http.Handler) *LiveBroker {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "live", nil, WithRetries(0, time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	return NewLiveBroker(c, openGate(), nil)
}

func TestPlaceOrderSendsComplementForNoSide(t *testing.T) {
	var got CreateOrderRequest
	lb := newLiveTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(`{"order": {"order_id": "ord-1", "status": "resting"}}`))
	}))

	// Internal price 0.42 in yes-probability: the no side trades at 58c.
	_, err := lb.PlaceOrder(context.Background(), "MKT-A", model.ActionBuy, model.SideNo, 0.42, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.NoPriceCents != 58 || got.YesPriceCents != 0 {
		t.Errorf("no=%d yes=%d, want no=58", got.NoPriceCents, got.YesPriceCents)
	}
	if got.Side != "no" || got.Type != "limit" {
		t.Errorf("side=%q type=%q", got.Side, got.Type)
	}
}

func TestPlaceOrderYesSideAndFillMapping(t *testing.T) {
	lb := newLiveTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req CreateOrderRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.YesPriceCents != 55 || req.NoPriceCents != 0 {
			t.Errorf("yes=%d no=%d, want yes=55", req.YesPriceCents, req.NoPriceCents)
		}
		w.Write([]byte(`{"order": {"order_id": "ord-2", "status": "executed", "filled_count": 2, "avg_fill_price": 55}}`))
	}))

	res, err := lb.PlaceOrder(context.Background(), "MKT-A", model.ActionBuy, model.SideYes, 0.55, 2)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != model.OrderFilled || res.FilledQty != 2 || res.AvgFillPrice != 0.55 {
		t.Errorf("result = %+v", res)
	}
}

func TestPlaceOrderNoSideFillConvertsBack(t *testing.T) {
	lb := newLiveTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"order": {"order_id": "ord-3", "status": "executed", "filled_count": 1, "avg_fill_price": 58}}`))
	}))

	res, err := lb.PlaceOrder(context.Background(), "MKT-A", model.ActionBuy, model.SideNo, 0.42, 1)
	if err != nil {
		t.Fatal(err)
	}
	// 58c in no currency is 0.42 yes-probability.
	if res.AvgFillPrice != 0.42 {
		t.Errorf("avg fill = %v, want 0.42", res.AvgFillPrice)
	}
}

func TestPlaceOrderRejectedByGate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("gated order reached the venue")
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "demo", nil)
	if err != nil {
		t.Fatal(err)
	}
	lb := NewLiveBroker(c, openGate(), nil)

	// Gate requires a live venue; this client reports demo.
	if _, err := lb.PlaceOrder(context.Background(), "MKT-A", model.ActionBuy, model.SideYes, 0.5, 1); err == nil {
		t.Fatal("expected gate rejection")
	}
}

func TestPositionsMapping(t *testing.T) {
	lb := newLiveTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"market_positions": [
			{"ticker": "MKT-Y", "position": 2, "total_traded": 110},
			{"ticker": "MKT-N", "position": -3, "total_traded": 165},
			{"ticker": "MKT-FLAT", "position": 0, "total_traded": 50}
		], "cursor": ""}`))
	}))

	positions, err := lb.Positions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(positions) != 2 {
		t.Fatalf("positions = %d, want 2 (flat excluded)", len(positions))
	}

	y := positions[0]
	if y.Side != model.SideYes || y.Qty != 2 || y.EntryPrice != 0.55 {
		t.Errorf("yes position = %+v", y)
	}

	// 55c per contract in no currency is 0.45 yes-probability.
	n := positions[1]
	if n.Side != model.SideNo || n.Qty != 3 || n.EntryPrice != 0.45 {
		t.Errorf("no position = %+v", n)
	}
	if n.PositionID != "venue-MKT-N" {
		t.Errorf("position id = %q", n.PositionID)
	}
}

func TestFillsMapping(t *testing.T) {
	lb := newLiveTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fills": [
			{"trade_id": "t1", "order_id": "o1", "ticker": "MKT-A", "side": "no", "action": "buy",
			 "yes_price": 42, "no_price": 58, "count": 1, "created_time": "2026-03-01T12:00:00Z"},
			{"trade_id": "t2", "order_id": "o2", "ticker": "MKT-A", "side": "yes", "action": "sell",
			 "yes_price": 50, "count": 1, "created_time": "not-a-time"}
		], "cursor": ""}`))
	}))

	fills, err := lb.Fills(context.Background(), time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(fills) != 1 {
		t.Fatalf("fills = %d, want 1 (bad timestamp skipped)", len(fills))
	}
	// Fill price is always yes-probability, even for no-side fills.
	f := fills[0]
	if f.Price != 0.42 || f.Side != model.SideNo {
		t.Errorf("fill = %+v", f)
	}
	if !f.Timestamp.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", f.Timestamp)
	}
}

func TestOpenOrdersMapping(t *testing.T) {
	lb := newLiveTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("status"); got != "resting" {
			t.Errorf("status = %q, want resting", got)
		}
		w.Write([]byte(`{"orders": [
			{"order_id": "o1", "ticker": "MKT-A", "action": "buy", "side": "no",
			 "yes_price": 42, "no_price": 58, "count": 1, "status": "resting",
			 "created_time": "2026-03-01T12:00:00Z"}
		], "cursor": ""}`))
	}))

	orders, err := lb.OpenOrders(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 {
		t.Fatalf("orders = %d", len(orders))
	}
	o := orders[0]
	if o.Status != model.OrderOpen || o.Price != 0.42 {
		t.Errorf("order = %+v, want open at yes-probability price", o)
	}
}

func TestMapOrderStatus(t *testing.T) {
	tests := []struct {
		in   string
		want model.OrderStatus
	}{
		{"executed", model.OrderFilled},
		{"canceled", model.OrderCancelled},
		{"cancelled", model.OrderCancelled},
		{"resting", model.OrderOpen},
		{"pending", model.OrderOpen},
	}
	for _, tt := range tests {
		if got := mapOrderStatus(tt.in); got != tt.want {
			t.Errorf("mapOrderStatus(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
