package store

import (
	"context"
	"time"

	"github.com/rickgao/kalshi-trader/internal/model"
)

// Store is the persistence surface the engine writes through. Every
// mutation lands durably before the engine takes its next
// order-affecting action.
type Store interface {
	// UpsertOrder inserts or updates an order by its venue-assigned id.
	UpsertOrder(ctx context.Context, order model.Order) error

	// UpsertPosition inserts or updates a position by its id.
	UpsertPosition(ctx context.Context, pos model.Position) error

	// AppendFill records one execution. Idempotent: a fill whose
	// identity is already recorded is dropped, never duplicated.
	AppendFill(ctx context.Context, fill model.Fill) error

	// AppendDecision records one immutable decision audit entry.
	AppendDecision(ctx context.Context, dec model.DecisionRecord) error

	// AppendActivity records one activity feed entry.
	AppendActivity(ctx context.Context, entry model.ActivityEntry) error

	// OpenPositions returns all positions with status open.
	OpenPositions(ctx context.Context) ([]model.Position, error)

	// Positions returns up to limit positions, most recently opened first.
	Positions(ctx context.Context, limit int) ([]model.Position, error)

	// RecentOrders returns up to limit orders, newest first.
	RecentOrders(ctx context.Context, limit int) ([]model.Order, error)

	// RecentFills returns up to limit fills, newest first.
	RecentFills(ctx context.Context, limit int) ([]model.Fill, error)

	// FillsByOrder returns every recorded fill for one order, oldest first.
	FillsByOrder(ctx context.Context, orderID string) ([]model.Fill, error)

	// FillsSince returns fills at or after since, oldest first.
	FillsSince(ctx context.Context, since time.Time) ([]model.Fill, error)

	// RecentDecisions returns up to limit decisions, newest first.
	RecentDecisions(ctx context.Context, limit int) ([]model.DecisionRecord, error)

	// RecentActivity returns up to limit activity entries, newest first.
	RecentActivity(ctx context.Context, limit int) ([]model.ActivityEntry, error)

	// Close releases any underlying resources.
	Close()
}
