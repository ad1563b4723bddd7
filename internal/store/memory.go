package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rickgao/kalshi-trader/internal/model"
)

// Memory is an in-process Store for paper sessions and tests.
type Memory struct {
	mu sync.RWMutex

	orders    map[string]model.Order
	orderSeq  []string
	positions map[string]model.Position
	posSeq    []string
	fills     []model.Fill
	fillSeen  map[string]bool
	decisions []model.DecisionRecord
	activity  []model.ActivityEntry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		orders:    make(map[string]model.Order),
		positions: make(map[string]model.Position),
		fillSeen:  make(map[string]bool),
	}
}

func (m *Memory) UpsertOrder(_ context.Context, order model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.OrderID]; !ok {
		m.orderSeq = append(m.orderSeq, order.OrderID)
	}
	m.orders[order.OrderID] = order
	return nil
}

func (m *Memory) UpsertPosition(_ context.Context, pos model.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[pos.PositionID]; !ok {
		m.posSeq = append(m.posSeq, pos.PositionID)
	}
	m.positions[pos.PositionID] = pos
	return nil
}

func (m *Memory) AppendFill(_ context.Context, fill model.Fill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fill.TradeID
	if key == "" {
		key = fmt.Sprintf("%s|%d|%g|%d", fill.OrderID, fill.Timestamp.UnixNano(), fill.Price, fill.Qty)
	}
	if m.fillSeen[key] {
		return nil
	}
	m.fillSeen[key] = true
	m.fills = append(m.fills, fill)
	return nil
}

func (m *Memory) AppendDecision(_ context.Context, dec model.DecisionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, dec)
	return nil
}

func (m *Memory) AppendActivity(_ context.Context, entry model.ActivityEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity = append(m.activity, entry)
	return nil
}

func (m *Memory) OpenPositions(_ context.Context) ([]model.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Position
	for _, id := range m.posSeq {
		if p := m.positions[id]; p.Status == model.PositionOpen {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) Positions(_ context.Context, limit int) ([]model.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Position
	for i := len(m.posSeq) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.positions[m.posSeq[i]])
	}
	return out, nil
}

func (m *Memory) RecentOrders(_ context.Context, limit int) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Order
	for i := len(m.orderSeq) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.orders[m.orderSeq[i]])
	}
	return out, nil
}

func (m *Memory) RecentFills(_ context.Context, limit int) ([]model.Fill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lastN(m.fills, limit), nil
}

func (m *Memory) FillsByOrder(_ context.Context, orderID string) ([]model.Fill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Fill
	for _, f := range m.fills {
		if f.OrderID == orderID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *Memory) FillsSince(_ context.Context, since time.Time) ([]model.Fill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Fill
	for _, f := range m.fills {
		if !f.Timestamp.Before(since) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *Memory) RecentDecisions(_ context.Context, limit int) ([]model.DecisionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lastN(m.decisions, limit), nil
}

func (m *Memory) RecentActivity(_ context.Context, limit int) ([]model.ActivityEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lastN(m.activity, limit), nil
}

func (m *Memory) Close() {}

// lastN returns the last n elements of s, newest first.
func lastN[T any](s []T, n int) []T {
	var out []T
	for i := len(s) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s[i])
	}
	return out
}
