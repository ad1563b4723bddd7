package reconcile

import (
	"testing"
	"time"

	"github.com/rickgao/kalshi-trader/internal/model"
)

func fill(action model.Action, side model.Side, price float64, qty int, offset time.Duration) model.Fill {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return model.Fill{
		OrderID:   "ord",
		MarketID:  "MKT-A",
		Action:    action,
		Side:      side,
		Price:     price,
		Qty:       qty,
		Timestamp: base.Add(offset),
	}
}

func TestRealizedPnLPctRoundTrip(t *testing.T) {
	fills := []model.Fill{
		fill(model.ActionBuy, model.SideYes, 0.40, 2, 0),
		fill(model.ActionSell, model.SideYes, 0.50, 2, time.Minute),
	}
	if got := RealizedPnLPct(fills); got != 25.0 {
		t.Errorf("RealizedPnLPct = %v, want 25.0", got)
	}
}

func TestRealizedPnLPctAverageCost(t *testing.T) {
	// Two buys at different prices average to 0.45; selling at 0.45
	// realizes nothing.
	fills := []model.Fill{
		fill(model.ActionBuy, model.SideYes, 0.40, 1, 0),
		fill(model.ActionBuy, model.SideYes, 0.50, 1, time.Second),
		fill(model.ActionSell, model.SideYes, 0.45, 2, time.Minute),
	}
	if got := RealizedPnLPct(fills); got != 0 {
		t.Errorf("RealizedPnLPct = %v, want 0", got)
	}
}

func TestRealizedPnLPctNoSideGainsOnDecline(t *testing.T) {
	fills := []model.Fill{
		fill(model.ActionBuy, model.SideNo, 0.60, 2, 0),
		fill(model.ActionSell, model.SideNo, 0.48, 2, time.Minute),
	}
	// Price fell 0.12 from a 0.60 basis: +20% for the no holder.
	if got := RealizedPnLPct(fills); got != 20.0 {
		t.Errorf("RealizedPnLPct = %v, want 20.0", got)
	}
}

func TestRealizedPnLPctOversellResets(t *testing.T) {
	fills := []model.Fill{
		fill(model.ActionBuy, model.SideYes, 0.40, 1, 0),
		// Sells 3 against an inventory of 1: only the held contract
		// realizes, the excess resets the book.
		fill(model.ActionSell, model.SideYes, 0.50, 3, time.Minute),
		fill(model.ActionBuy, model.SideYes, 0.50, 1, 2*time.Minute),
		fill(model.ActionSell, model.SideYes, 0.50, 1, 3*time.Minute),
	}
	// First match: (0.50-0.40)/0.40 on one contract. Second round is
	// flat. Closed basis = 0.40 + 0.50.
	want := round2(0.10 / 0.90 * 100)
	if got := RealizedPnLPct(fills); got != want {
		t.Errorf("RealizedPnLPct = %v, want %v", got, want)
	}
}

func TestRealizedPnLPctEmpty(t *testing.T) {
	if got := RealizedPnLPct(nil); got != 0 {
		t.Errorf("RealizedPnLPct(nil) = %v, want 0", got)
	}
}

func TestUnrealizedPnLPct(t *testing.T) {
	positions := []model.Position{
		{MarketID: "MKT-A", Side: model.SideYes, Qty: 2, EntryPrice: 0.40, CurrentPrice: 0.44, Status: model.PositionOpen},
		{MarketID: "MKT-B", Side: model.SideNo, Qty: 1, EntryPrice: 0.50, CurrentPrice: 0.55, Status: model.PositionOpen},
		{MarketID: "MKT-C", Side: model.SideYes, Qty: 5, EntryPrice: 0.30, CurrentPrice: 0.90, Status: model.PositionClosed},
	}
	// (0.04*2 - 0.05*1) / (0.40*2 + 0.50*1) * 100 = 0.03/1.30*100
	want := round2(0.03 / 1.30 * 100)
	if got := UnrealizedPnLPct(positions); got != want {
		t.Errorf("UnrealizedPnLPct = %v, want %v", got, want)
	}
}

func TestEventPnLPctCombines(t *testing.T) {
	fills := []model.Fill{
		fill(model.ActionBuy, model.SideYes, 0.40, 2, 0),
		fill(model.ActionSell, model.SideYes, 0.50, 2, time.Minute),
	}
	positions := []model.Position{
		{MarketID: "MKT-B", Side: model.SideYes, Qty: 1, EntryPrice: 0.50, CurrentPrice: 0.45, Status: model.PositionOpen},
	}
	want := round2(25.0 + (-10.0))
	if got := EventPnLPct(fills, positions); got != want {
		t.Errorf("EventPnLPct = %v, want %v", got, want)
	}
}
