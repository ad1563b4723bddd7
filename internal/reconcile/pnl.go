package reconcile

import (
	"math"
	"sort"

	"github.com/rickgao/kalshi-trader/internal/model"
)

// inventory is the running average-cost book for one (market, side).
type inventory struct {
	qty     int
	avgCost float64
}

// RealizedPnLPct computes the realized gain across a fill stream as a
// percentage of the cost basis that was closed. Buys build the
// average-cost inventory per (market, side); sells match against it.
// A sell with no matching inventory resets the book to the fill price
// rather than fabricating a gain.
func RealizedPnLPct(fills []model.Fill) float64 {
	ordered := make([]model.Fill, len(fills))
	copy(ordered, fills)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	books := make(map[string]*inventory)
	var profit, closedCost float64

	for _, f := range ordered {
		key := f.MarketID + "|" + string(f.Side)
		book := books[key]
		if book == nil {
			book = &inventory{}
			books[key] = book
		}

		switch f.Action {
		case model.ActionBuy:
			total := book.avgCost*float64(book.qty) + f.Price*float64(f.Qty)
			book.qty += f.Qty
			book.avgCost = total / float64(book.qty)

		case model.ActionSell:
			matched := f.Qty
			if matched > book.qty {
				matched = book.qty
			}
			if matched > 0 {
				delta := f.Price - book.avgCost
				if f.Side == model.SideNo {
					delta = -delta
				}
				profit += delta * float64(matched)
				closedCost += book.avgCost * float64(matched)
				book.qty -= matched
			}
			if f.Qty > matched {
				// Oversell: the book is out of sync with the venue.
				book.qty = 0
				book.avgCost = f.Price
			}
		}
	}

	if closedCost == 0 {
		return 0
	}
	return round2(profit / closedCost * 100)
}

// UnrealizedPnLPct computes the mark-to-market gain of open positions
// as a percentage of their combined cost basis.
func UnrealizedPnLPct(positions []model.Position) float64 {
	var profit, cost float64
	for _, p := range positions {
		if p.Status != model.PositionOpen || p.EntryPrice <= 0 {
			continue
		}
		delta := p.CurrentPrice - p.EntryPrice
		if p.Side == model.SideNo {
			delta = -delta
		}
		profit += delta * float64(p.Qty)
		cost += p.EntryPrice * float64(p.Qty)
	}
	if cost == 0 {
		return 0
	}
	return round2(profit / cost * 100)
}

// EventPnLPct is the combined realized and unrealized event result.
func EventPnLPct(fills []model.Fill, positions []model.Position) float64 {
	return round2(RealizedPnLPct(fills) + UnrealizedPnLPct(positions))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
