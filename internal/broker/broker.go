// Package broker defines the venue capability set consumed by the
// engine, and the paper variant that simulates it.
//
// Exactly one Broker is selected per configuration change; call sites
// never branch on which variant they hold. The live variant only
// becomes selectable when every safety switch passes.
package broker

import (
	"context"
	"time"

	"github.com/rickgao/kalshi-trader/internal/model"
)

// Snapshot is one market's quote plus the metadata needed for scoring.
type Snapshot struct {
	MarketID            string
	Quote               model.Quote
	Volume              float64
	BidDepth            float64
	AskDepth            float64
	MinutesToResolution float64
}

// Broker is the capability set of an execution venue. All calls are
// fallible; the venue is the source of truth for fills and positions.
type Broker interface {
	// ListMarkets returns candidate markets in the category resolving
	// within the time window.
	ListMarkets(ctx context.Context, category string, window time.Duration) ([]model.MarketRef, error)

	// GetSnapshot returns the current quote and metadata for one market.
	GetSnapshot(ctx context.Context, marketID string) (Snapshot, error)

	// PlaceOrder submits a limit order and reports any immediate fill.
	PlaceOrder(ctx context.Context, marketID string, action model.Action, side model.Side, price float64, qty int) (model.OrderResult, error)

	// CancelOrder cancels a resting order.
	CancelOrder(ctx context.Context, orderID string) error

	// OpenOrders lists the venue's resting orders.
	OpenOrders(ctx context.Context) ([]model.Order, error)

	// Positions lists the venue's view of current positions.
	Positions(ctx context.Context) ([]model.Position, error)

	// Fills lists executions at or after since.
	Fills(ctx context.Context, since time.Time) ([]model.Fill, error)

	// Environment reports which venue environment backs this broker:
	// "paper", "demo", or "live".
	Environment() string
}
