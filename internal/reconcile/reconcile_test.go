package reconcile

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/rickgao/kalshi-trader/internal/broker"
	"github.com/rickgao/kalshi-trader/internal/model"
	"github.com/rickgao/kalshi-trader/internal/store"
)

// venueFake serves canned venue state and records the fill cursor it
// was queried with.
type venueFake struct {
	orders    []model.Order
	positions []model.Position
	fills     []model.Fill
	askedFrom []time.Time
}

func (v *venueFake) Environment() string { return "paper" }

func (v *venueFake) ListMarkets(context.Context, string, time.Duration) ([]model.MarketRef, error) {
	return nil, nil
}

func (v *venueFake) GetSnapshot(context.Context, string) (broker.Snapshot, error) {
	return broker.Snapshot{}, nil
}

func (v *venueFake) PlaceOrder(context.Context, string, model.Action, model.Side, float64, int) (model.OrderResult, error) {
	return model.OrderResult{}, nil
}

func (v *venueFake) CancelOrder(context.Context, string) error { return nil }

func (v *venueFake) OpenOrders(context.Context) ([]model.Order, error) { return v.orders, nil }

func (v *venueFake) Positions(context.Context) ([]model.Position, error) { return v.positions, nil }

func (v *venueFake) Fills(_ context.Context, since time.Time) ([]model.Fill, error) {
	v.askedFrom = append(v.askedFrom, since)
	var out []model.Fill
	for _, f := range v.fills {
		if !f.Timestamp.Before(since) {
			out = append(out, f)
		}
	}
	return out, nil
}

func TestSyncAdvancesCursorMonotonically(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	venue := &venueFake{
		fills: []model.Fill{
			{OrderID: "o1", MarketID: "MKT-A", Action: model.ActionBuy, Side: model.SideYes, Price: 0.40, Qty: 1, Timestamp: base.Add(time.Minute)},
			{OrderID: "o2", MarketID: "MKT-A", Action: model.ActionBuy, Side: model.SideYes, Price: 0.41, Qty: 1, Timestamp: base.Add(2 * time.Minute)},
		},
	}
	s := store.NewMemory()
	r := New(venue, s, slog.Default())
	r.cursor = base
	r.now = func() time.Time { return base }

	if err := r.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	first := r.Cursor()
	if !first.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("cursor = %v, want advanced to latest fill", first)
	}

	// A second sync with no new fills must not move the cursor back.
	if err := r.Sync(ctx); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if r.Cursor().Before(first) {
		t.Errorf("cursor regressed from %v to %v", first, r.Cursor())
	}

	fills, err := s.RecentFills(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(fills) != 2 {
		t.Errorf("expected exactly both fills persisted, got %d", len(fills))
	}
}

func TestSyncIngestsEachFillOnce(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// The venue reports fills at or after the requested time, so the
	// fill sitting exactly at the cursor comes back on every sync.
	venue := &venueFake{
		fills: []model.Fill{
			{TradeID: "t-1", OrderID: "o1", MarketID: "MKT-A", Action: model.ActionBuy, Side: model.SideYes, Price: 0.40, Qty: 1, Timestamp: base.Add(time.Minute)},
		},
	}
	s := store.NewMemory()
	r := New(venue, s, slog.Default())
	r.cursor = base
	r.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		if err := r.Sync(ctx); err != nil {
			t.Fatalf("sync %d: %v", i+1, err)
		}
	}

	fills, err := s.RecentFills(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(fills) != 1 {
		t.Fatalf("fill records = %d, want 1 after three syncs", len(fills))
	}
	if !r.Cursor().Equal(base.Add(time.Minute)) {
		t.Errorf("cursor = %v, want %v", r.Cursor(), base.Add(time.Minute))
	}
}

func TestSyncSkipsLocallyBookedFills(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := store.NewMemory()
	// The execution manager already booked this execution under its own
	// identity, with its own timestamp.
	if err := s.AppendFill(ctx, model.Fill{
		TradeID: "imm-o1", OrderID: "o1", MarketID: "MKT-A",
		Action: model.ActionBuy, Side: model.SideYes,
		Price: 0.40, Qty: 2, Timestamp: base.Add(30 * time.Second),
	}); err != nil {
		t.Fatal(err)
	}

	// The venue reports the same execution under its trade id.
	venue := &venueFake{
		fills: []model.Fill{
			{TradeID: "t-99", OrderID: "o1", MarketID: "MKT-A", Action: model.ActionBuy, Side: model.SideYes, Price: 0.40, Qty: 2, Timestamp: base.Add(time.Minute)},
		},
	}
	r := New(venue, s, slog.Default())
	r.cursor = base
	r.now = func() time.Time { return base }

	if err := r.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}

	fills, err := s.RecentFills(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(fills) != 1 {
		t.Fatalf("fill records = %d, want 1 (venue copy of a local fill skipped)", len(fills))
	}
	if fills[0].TradeID != "imm-o1" {
		t.Errorf("surviving fill = %q, want the locally booked one", fills[0].TradeID)
	}
	if !r.Cursor().Equal(base.Add(time.Minute)) {
		t.Errorf("cursor = %v, want advanced past the skipped fill", r.Cursor())
	}
}

func TestSyncSynthesizesUnknownPositions(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	venue := &venueFake{
		positions: []model.Position{
			{PositionID: "venue-MKT-X", MarketID: "MKT-X", Side: model.SideYes, Qty: 3, EntryPrice: 0.55, CurrentPrice: 0.55},
		},
	}
	s := store.NewMemory()

	// A locally tracked position on another market must survive untouched.
	local := model.Position{PositionID: "pos-1", MarketID: "MKT-A", Side: model.SideYes, Qty: 1, EntryPrice: 0.40, Status: model.PositionOpen, PeakPnLPct: 7.5}
	if err := s.UpsertPosition(ctx, local); err != nil {
		t.Fatal(err)
	}

	r := New(venue, s, slog.Default())
	r.now = func() time.Time { return base }

	if err := r.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}

	open, err := s.OpenPositions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 2 {
		t.Fatalf("open positions = %d, want 2", len(open))
	}

	var synthesized *model.Position
	for i := range open {
		if open[i].MarketID == "MKT-X" {
			synthesized = &open[i]
		}
		if open[i].PositionID == "pos-1" && open[i].PeakPnLPct != 7.5 {
			t.Errorf("local position state was overwritten: %+v", open[i])
		}
	}
	if synthesized == nil {
		t.Fatal("venue position was not synthesized locally")
	}
	if synthesized.Status != model.PositionOpen || !synthesized.OpenedAt.Equal(base) {
		t.Errorf("synthesized position = %+v", synthesized)
	}
}

func TestSyncDoesNotDuplicateKnownPositions(t *testing.T) {
	ctx := context.Background()
	venue := &venueFake{
		positions: []model.Position{
			{PositionID: "venue-MKT-A", MarketID: "MKT-A", Side: model.SideYes, Qty: 2, EntryPrice: 0.40},
		},
	}
	s := store.NewMemory()
	if err := s.UpsertPosition(ctx, model.Position{
		PositionID: "pos-1", MarketID: "MKT-A", Side: model.SideYes, Qty: 2, EntryPrice: 0.40, Status: model.PositionOpen,
	}); err != nil {
		t.Fatal(err)
	}

	r := New(venue, s, slog.Default())
	if err := r.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}

	open, err := s.OpenPositions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 {
		t.Errorf("open positions = %d, want 1 (no duplicate)", len(open))
	}
}
