package broker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/kalshi-trader/internal/model"
)

// demoMarket is a synthetic market with deterministic price motion.
type demoMarket struct {
	MarketID            string
	Name                string
	Category            string
	BasePrice           float64
	Sensitivity         float64
	MinutesToResolution float64
}

var demoMarkets = []demoMarket{
	{"NBA-LAL-GSW", "Lakers vs Warriors - Winner", "sports", 0.56, 0.11, 18 * 60},
	{"ELECT-2024", "Election result - Margin", "politics", 0.42, 0.14, 96 * 60},
	{"FED-RATE", "Fed rate hike", "finance", 0.38, 0.09, 40 * 60},
	{"EARN-NVDA", "NVIDIA earnings beat", "company", 0.63, 0.12, 12 * 60},
	{"OIL-PRICE", "Oil above $90", "finance", 0.29, 0.16, 55 * 60},
	{"NBA-PTS", "Total points over 215.5", "sports", 0.51, 0.08, 8 * 60},
}

// Paper simulates the venue capability set in memory. Orders fill
// immediately at the requested price, which makes it safe to exercise
// the full engine without risking capital.
type Paper struct {
	mu     sync.Mutex
	orders map[string]model.Order
	fills  []model.Fill
	now    func() time.Time
}

// NewPaper creates an empty paper broker.
func NewPaper() *Paper {
	return &Paper{
		orders: make(map[string]model.Order),
		now:    time.Now,
	}
}

func (p *Paper) Environment() string { return "paper" }

func (p *Paper) ListMarkets(_ context.Context, category string, _ time.Duration) ([]model.MarketRef, error) {
	var refs []model.MarketRef
	for _, m := range demoMarkets {
		if m.Category != category {
			continue
		}
		refs = append(refs, model.MarketRef{
			MarketID:            m.MarketID,
			Name:                m.Name,
			Category:            m.Category,
			MinutesToResolution: m.MinutesToResolution,
		})
	}
	return refs, nil
}

// midPrice derives a deterministic oscillating mid from the clock, so
// repeated runs over the same seconds produce the same prices.
func (m demoMarket) midPrice(ts time.Time) float64 {
	seconds := float64(ts.Unix())
	pulse := math.Sin(seconds/60+m.BasePrice*10) * m.Sensitivity
	drift := math.Cos(seconds/300) * m.Sensitivity * 0.4
	price := math.Min(0.98, math.Max(0.02, m.BasePrice+pulse+drift))
	return math.Round(price*10000) / 10000
}

func (m demoMarket) spread(mid float64) float64 {
	return math.Round(math.Max(0.002, mid*0.01)*10000) / 10000
}

func (p *Paper) GetSnapshot(_ context.Context, marketID string) (Snapshot, error) {
	var found *demoMarket
	for i := range demoMarkets {
		if demoMarkets[i].MarketID == marketID {
			found = &demoMarkets[i]
			break
		}
	}
	if found == nil {
		return Snapshot{}, fmt.Errorf("unknown paper market %q", marketID)
	}

	mid := found.midPrice(p.now())
	half := found.spread(mid) / 2
	return Snapshot{
		MarketID: marketID,
		Quote: model.Quote{
			Bid:       round4(mid - half),
			Ask:       round4(mid + half),
			Mid:       mid,
			Last:      mid,
			SpreadPct: round4(2 * half / mid * 100),
			Valid:     true,
		},
		Volume:              200,
		BidDepth:            200,
		AskDepth:            200,
		MinutesToResolution: found.MinutesToResolution,
	}, nil
}

func (p *Paper) PlaceOrder(_ context.Context, marketID string, action model.Action, side model.Side, price float64, qty int) (model.OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now().UTC()
	orderID := "paper-" + uuid.NewString()
	order := model.Order{
		OrderID:   orderID,
		MarketID:  marketID,
		Action:    action,
		Side:      side,
		Price:     round4(price),
		Qty:       qty,
		Status:    model.OrderFilled,
		CreatedAt: now,
		FilledAt:  &now,
	}
	p.orders[orderID] = order
	p.fills = append(p.fills, model.Fill{
		TradeID:   "trade-" + uuid.NewString(),
		OrderID:   orderID,
		MarketID:  marketID,
		Action:    action,
		Side:      side,
		Price:     order.Price,
		Qty:       qty,
		Timestamp: now,
	})

	return model.OrderResult{
		OrderID:      orderID,
		Status:       model.OrderFilled,
		FilledQty:    qty,
		AvgFillPrice: order.Price,
	}, nil
}

func (p *Paper) CancelOrder(_ context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	order, ok := p.orders[orderID]
	if !ok {
		return fmt.Errorf("unknown paper order %q", orderID)
	}
	if order.Status == model.OrderOpen {
		order.Status = model.OrderCancelled
		p.orders[orderID] = order
	}
	return nil
}

func (p *Paper) OpenOrders(_ context.Context) ([]model.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var open []model.Order
	for _, order := range p.orders {
		if order.Status == model.OrderOpen {
			open = append(open, order)
		}
	}
	return open, nil
}

func (p *Paper) Positions(_ context.Context) ([]model.Position, error) {
	// Paper positions live in the engine; the simulated venue has none.
	return nil, nil
}

func (p *Paper) Fills(_ context.Context, since time.Time) ([]model.Fill, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.Fill
	for _, f := range p.fills {
		if f.Timestamp.Before(since) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
