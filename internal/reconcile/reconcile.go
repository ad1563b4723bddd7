package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rickgao/kalshi-trader/internal/broker"
	"github.com/rickgao/kalshi-trader/internal/model"
	"github.com/rickgao/kalshi-trader/internal/store"
)

// Reconciler pulls venue state into the local store.
type Reconciler struct {
	broker broker.Broker
	store  store.Store
	logger *slog.Logger

	mu     sync.Mutex
	cursor time.Time
	now    func() time.Time
}

// New creates a reconciler with its fill cursor at the start of the
// current session.
func New(b broker.Broker, s store.Store, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		broker: b,
		store:  s,
		logger: logger,
		cursor: time.Now().UTC(),
		now:    time.Now,
	}
}

// Cursor returns the timestamp the next fill sync starts from.
func (r *Reconciler) Cursor() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

// Sync pulls open orders, positions, and new fills from the venue and
// writes them through the store. Fill writes are idempotent, so a
// cursor that re-covers a fill cannot double-count it. The cursor only
// ever advances.
func (r *Reconciler) Sync(ctx context.Context) error {
	if err := r.syncOrders(ctx); err != nil {
		return err
	}
	if err := r.syncPositions(ctx); err != nil {
		return err
	}
	return r.syncFills(ctx)
}

func (r *Reconciler) syncOrders(ctx context.Context) error {
	orders, err := r.broker.OpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("sync orders: %w", err)
	}
	for _, o := range orders {
		if err := r.store.UpsertOrder(ctx, o); err != nil {
			return fmt.Errorf("sync orders: %w", err)
		}
	}
	return nil
}

// syncPositions upserts venue positions, synthesizing records for any
// the trader has no local knowledge of (manual trades, recovery after
// a crash). Locally tracked positions are never overwritten: their
// trailing state belongs to the exit evaluator.
func (r *Reconciler) syncPositions(ctx context.Context) error {
	venuePositions, err := r.broker.Positions(ctx)
	if err != nil {
		return fmt.Errorf("sync positions: %w", err)
	}
	if len(venuePositions) == 0 {
		return nil
	}

	local, err := r.store.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("sync positions: %w", err)
	}
	known := make(map[string]bool, len(local))
	for _, p := range local {
		known[p.MarketID+"|"+string(p.Side)] = true
	}

	for _, p := range venuePositions {
		if known[p.MarketID+"|"+string(p.Side)] {
			continue
		}
		p.OpenedAt = r.now().UTC()
		p.Status = model.PositionOpen
		if err := r.store.UpsertPosition(ctx, p); err != nil {
			return fmt.Errorf("sync positions: %w", err)
		}
		r.logger.Warn("synthesized position from venue state",
			"position_id", p.PositionID,
			"market_id", p.MarketID,
			"side", p.Side,
			"qty", p.Qty,
		)
	}
	return nil
}

// syncFills ingests venue fills past the cursor. The venue reports
// fills at or after the requested time, so the fill sitting exactly at
// the cursor comes back on every sync and is dropped here. Venue fills
// for orders the execution manager already booked locally are skipped
// up to the booked quantity, so one execution never lands twice under
// two identities.
func (r *Reconciler) syncFills(ctx context.Context) error {
	r.mu.Lock()
	since := r.cursor
	r.mu.Unlock()

	fills, err := r.broker.Fills(ctx, since)
	if err != nil {
		return fmt.Errorf("sync fills: %w", err)
	}
	sort.Slice(fills, func(i, j int) bool { return fills[i].Timestamp.Before(fills[j].Timestamp) })

	covered := make(map[string]int)
	latest := since
	appended := 0
	for _, f := range fills {
		if !f.Timestamp.After(since) {
			continue
		}
		if f.Timestamp.After(latest) {
			latest = f.Timestamp
		}

		if _, ok := covered[f.OrderID]; !ok {
			local, err := r.store.FillsByOrder(ctx, f.OrderID)
			if err != nil {
				return fmt.Errorf("sync fills: %w", err)
			}
			qty := 0
			for _, lf := range local {
				qty += lf.Qty
			}
			covered[f.OrderID] = qty
		}
		if covered[f.OrderID] >= f.Qty {
			covered[f.OrderID] -= f.Qty
			continue
		}
		covered[f.OrderID] = 0

		if err := r.store.AppendFill(ctx, f); err != nil {
			return fmt.Errorf("sync fills: %w", err)
		}
		appended++
	}

	r.mu.Lock()
	if latest.After(r.cursor) {
		r.cursor = latest
	}
	r.mu.Unlock()

	if appended > 0 {
		r.logger.Debug("synced fills", "count", appended, "cursor", latest)
	}
	return nil
}
