package strategy

import (
	"fmt"
	"math"

	"github.com/rickgao/kalshi-trader/internal/config"
	"github.com/rickgao/kalshi-trader/internal/model"
)

// Entry decision reason codes. The first failing check wins.
const (
	ReasonNotQualified = "SKIP_NOT_QUALIFIED"
	ReasonCooldown     = "SKIP_COOLDOWN"
	ReasonRisk         = "SKIP_RISK"
	ReasonHistory      = "SKIP_HISTORY"
	ReasonMomentum     = "SKIP_MOMENTUM"
	ReasonEdge         = "SKIP_EDGE"
	ReasonNoQuote      = "SKIP_NO_QUOTE"
	ReasonEnterLong    = "ENTER_LONG"
	ReasonEnterShort   = "ENTER_SHORT"
)

// EntryDecision is the outcome of evaluating one market for entry.
type EntryDecision struct {
	Enter           bool
	Side            model.Side
	Price           float64
	ExpectedEdgePct float64
	ReasonCode      string
	Rationale       string
}

// EntryInput carries everything DecideEntry consumes.
type EntryInput struct {
	Prices     []float64 // rolling mid history, oldest first
	Quote      model.Quote
	Qualifies  bool
	QualifyWhy string
	RiskAllows bool
	RiskReason string
	InCooldown bool
	// ExpectedEdgeCostPct is the cost a trade must beat: spread% + fee%.
	ExpectedEdgeCostPct float64
}

func skip(code, why string) EntryDecision {
	return EntryDecision{ReasonCode: code, Rationale: why}
}

// DecideEntry evaluates one market for entry. Checks short-circuit in a
// fixed order: qualification, quote validity, cooldown, risk, history,
// momentum, edge. Side follows short-window momentum; the limit price is
// offset from mid by the configured edge and clamped to the passive side
// of the quoted spread within [0.01, 0.99].
func DecideEntry(in EntryInput, cfg config.Entry) EntryDecision {
	if !in.Qualifies {
		return skip(ReasonNotQualified, in.QualifyWhy)
	}
	if !in.Quote.Valid {
		return skip(ReasonNoQuote, in.Quote.Reason)
	}
	if in.InCooldown {
		return skip(ReasonCooldown, "Cooldown active")
	}
	if !in.RiskAllows {
		return skip(ReasonRisk, in.RiskReason)
	}
	if len(in.Prices) < cfg.MomentumWindow {
		return skip(ReasonHistory, "Not enough price history")
	}

	recent := in.Prices[len(in.Prices)-cfg.MomentumWindow:]
	var sum float64
	for _, p := range recent {
		sum += p
	}
	avg := sum / float64(len(recent))
	midNow := recent[len(recent)-1]
	momentumPct := (midNow - avg) / math.Max(avg, 0.001) * 100

	if math.Abs(momentumPct) <= cfg.MomentumThresholdPct {
		return skip(ReasonMomentum, "Momentum below threshold")
	}

	side := model.SideYes
	code := ReasonEnterLong
	if momentumPct < 0 {
		side = model.SideNo
		code = ReasonEnterShort
	}

	expectedEdgePct := math.Abs(momentumPct) - in.ExpectedEdgeCostPct
	if expectedEdgePct <= 0 {
		return EntryDecision{
			ReasonCode:      ReasonEdge,
			ExpectedEdgePct: expectedEdgePct,
			Rationale:       "Edge negative after costs",
		}
	}

	edge := midNow * cfg.EntryEdgePct / 100
	var price float64
	if side == model.SideYes {
		price = math.Min(in.Quote.Ask, midNow-edge)
	} else {
		price = math.Max(in.Quote.Bid, midNow+edge)
	}
	price = clampPrice(price)

	return EntryDecision{
		Enter:           true,
		Side:            side,
		Price:           round4(price),
		ExpectedEdgePct: expectedEdgePct,
		ReasonCode:      code,
		Rationale:       fmt.Sprintf("Momentum %.2f%% with edge %.2f%%", momentumPct, expectedEdgePct),
	}
}

// clampPrice keeps a limit price inside the valid probability domain.
func clampPrice(p float64) float64 {
	return math.Min(0.99, math.Max(0.01, p))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
