// Package scoring computes per-market volatility, spread, and liquidity
// metrics and decides whether a market qualifies for trading.
package scoring

import (
	"math"

	"github.com/rickgao/kalshi-trader/internal/config"
)

// Metrics is the scored view of one market. Rationale is for audit
// output only, never control flow.
type Metrics struct {
	VolatilityPct  float64
	SpreadPct      float64
	LiquidityScore float64
	OverallScore   float64
	Qualifies      bool
	Rationale      string
}

// Input carries everything Compute needs for one market.
type Input struct {
	Prices              []float64 // trailing mid prices, oldest first
	Bid                 float64
	Ask                 float64
	Volume              float64
	BidDepth            float64
	AskDepth            float64
	UpdateRate          float64 // observed quote updates per second
	MinutesToResolution float64
}

// LogReturns computes log returns over consecutive price pairs,
// skipping non-positive prices.
func LogReturns(prices []float64) []float64 {
	var returns []float64
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if prev <= 0 || cur <= 0 {
			continue
		}
		returns = append(returns, math.Log(cur/prev))
	}
	return returns
}

// pstdev is the population standard deviation.
func pstdev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// Compute scores one market against the configured thresholds.
// closeBufferMinutes is the exit config's close-before-resolution window;
// proximity to resolution always disqualifies regardless of other scores.
func Compute(in Input, cfg config.Scoring, closeBufferMinutes float64) Metrics {
	returns := LogReturns(in.Prices)
	volatilityPct := 0.0
	if len(returns) >= 2 {
		volatilityPct = pstdev(returns) * 100
	}

	mid := math.Max((in.Bid+in.Ask)/2, 0.001)
	spreadPct := (in.Ask - in.Bid) / mid * 100

	depth := in.Volume
	if in.BidDepth+in.AskDepth > 0 {
		depth = (in.BidDepth + in.AskDepth) / 2
	}
	volumeScore := math.Min(in.Volume/cfg.LiquidityVolumeRef, 1.0)
	depthScore := math.Min(depth/cfg.LiquidityDepthRef, 1.0)
	updateScore := math.Min(in.UpdateRate/cfg.LiquidityUpdateRef, 1.0)
	tightness := math.Max(0, 1-spreadPct/math.Max(cfg.MaxSpreadPct, 0.1))
	liquidityScore := (volumeScore*0.5 + depthScore*0.3 + updateScore*0.2) * tightness * 100

	volScore := math.Min(volatilityPct/math.Max(cfg.VolThreshold, 0.1), 2.0) * 50
	spreadScore := math.Max(0, 100-spreadPct/math.Max(cfg.MaxSpreadPct, 0.1)*100)
	resolutionScore := math.Min(in.MinutesToResolution/math.Max(cfg.ResolutionMinutesRef, 1.0), 1.0) * 100

	overall := cfg.Weights.Volatility*volScore +
		cfg.Weights.Spread*spreadScore +
		cfg.Weights.Liquidity*liquidityScore +
		cfg.Weights.Resolution*resolutionScore
	overall = math.Max(0, math.Min(100, overall))

	qualifies := volatilityPct >= cfg.VolThreshold &&
		spreadPct <= cfg.MaxSpreadPct &&
		liquidityScore >= cfg.MinLiquidityScore
	rationale := "Failed thresholds"
	if qualifies {
		rationale = "Qualified"
	}
	if in.MinutesToResolution <= closeBufferMinutes {
		rationale = "Too close to resolution"
		qualifies = false
	}

	return Metrics{
		VolatilityPct:  round(volatilityPct, 4),
		SpreadPct:      round(spreadPct, 4),
		LiquidityScore: round(liquidityScore, 2),
		OverallScore:   round(overall, 2),
		Qualifies:      qualifies,
		Rationale:      rationale,
	}
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
