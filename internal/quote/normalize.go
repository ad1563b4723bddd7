// Package quote turns heterogeneous venue market payloads into a
// canonical bid/ask/mid quote with an explicit validity flag.
package quote

import (
	"math"
	"time"

	"github.com/rickgao/kalshi-trader/internal/model"
)

// Raw carries the price fields a venue payload may or may not provide.
// Pointer fields distinguish "absent" from zero.
type Raw struct {
	Bid     *float64
	Ask     *float64
	Last    *float64
	Mid     *float64
	Volume  float64
	CloseTS *int64 // unix seconds (or milliseconds, normalized here)
}

// Normalized is a canonical quote plus the market metadata derived
// alongside it.
type Normalized struct {
	Quote               model.Quote
	Volume              float64
	MinutesToResolution float64
}

// Normalize builds a canonical quote from a raw venue payload.
// The quote is marked invalid, with a reason, when required price fields
// are missing or the spread is inverted; callers must never trade on an
// invalid quote.
func Normalize(raw Raw, now time.Time) Normalized {
	out := Normalized{MinutesToResolution: 60.0}

	bid, ask, last := raw.Bid, raw.Ask, raw.Last

	var mid float64
	switch {
	case bid != nil && ask != nil:
		mid = (*bid + *ask) / 2
	case raw.Mid != nil:
		mid = *raw.Mid
	case last != nil:
		mid = *last
	default:
		mid = 0.5
	}

	// Backfill one-sided books from the other side.
	if bid == nil && ask != nil {
		bid = ask
	}
	if ask == nil && bid != nil {
		ask = bid
	}

	if bid == nil || ask == nil {
		out.Quote = model.Quote{Valid: false, Reason: "missing price fields"}
		return out
	}

	q := model.Quote{
		Bid: round4(*bid),
		Ask: round4(*ask),
		Mid: round4(mid),
	}
	if last != nil {
		q.Last = round4(*last)
	} else {
		q.Last = q.Mid
	}

	switch {
	case q.Ask < q.Bid:
		q.Valid = false
		q.Reason = "inverted spread"
	case q.Mid <= 0:
		q.Valid = false
		q.Reason = "non-positive mid"
	default:
		q.Valid = true
		q.SpreadPct = round4((q.Ask - q.Bid) / max(q.Mid, 0.0001) * 100)
	}

	out.Quote = q
	out.Volume = raw.Volume
	if raw.CloseTS != nil {
		closeTS := normalizeTimestamp(*raw.CloseTS)
		out.MinutesToResolution = max(float64(closeTS-now.Unix())/60, 0)
	}
	return out
}

// normalizeTimestamp accepts seconds or milliseconds since epoch.
func normalizeTimestamp(ts int64) int64 {
	if ts > 1e12 {
		return ts / 1000
	}
	return ts
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
