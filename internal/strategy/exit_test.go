package strategy

import (
	"testing"
	"time"

	"github.com/rickgao/kalshi-trader/internal/config"
	"github.com/rickgao/kalshi-trader/internal/model"
)

func exitConfig() config.Exit {
	return config.Exit{
		TakeProfitPct:                4.0,
		StopLossPct:                  3.0,
		MaxHoldSeconds:               900,
		CloseBeforeResolutionMinutes: 60,
		TrailStartPct:                2.0,
		TrailGapPct:                  1.0,
	}
}

var exitNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openPos(entry, current float64) model.Position {
	return model.Position{
		PositionID:                   "pos-1",
		MarketID:                     "MKT-A",
		Side:                         model.SideYes,
		Qty:                          1,
		EntryPrice:                   entry,
		CurrentPrice:                 current,
		TakeProfitPct:                4.0,
		StopLossPct:                  3.0,
		MaxHoldSeconds:               900,
		CloseBeforeResolutionMinutes: 60,
		OpenedAt:                     exitNow.Add(-time.Minute),
		Status:                       model.PositionOpen,
	}
}

func quoteAt(mid float64) model.Quote {
	return model.Quote{Bid: mid - 0.005, Ask: mid + 0.005, Mid: mid, Valid: true}
}

func TestPnLPct(t *testing.T) {
	if got := PnLPct(0.50, 0.55, model.SideYes); got != 10.0 {
		t.Errorf("yes pnl = %v, want 10", got)
	}
	if got := PnLPct(0.50, 0.55, model.SideNo); got != -10.0 {
		t.Errorf("no pnl = %v, want -10", got)
	}
	if got := PnLPct(0, 0.55, model.SideYes); got != 0 {
		t.Errorf("zero entry pnl = %v, want 0", got)
	}
}

func TestDecideExitPriority(t *testing.T) {
	cfg := exitConfig()

	t.Run("take profit", func(t *testing.T) {
		dec := DecideExit(openPos(0.50, 0.53), quoteAt(0.53), 600, exitNow, cfg)
		if dec.Action != ExitTakeProfit {
			t.Errorf("action = %s, want TAKE_PROFIT", dec.Action)
		}
		if dec.Price != quoteAt(0.53).Bid {
			t.Errorf("exit price = %v, want bid", dec.Price)
		}
	})

	t.Run("stop loss", func(t *testing.T) {
		dec := DecideExit(openPos(0.50, 0.48), quoteAt(0.48), 600, exitNow, cfg)
		if dec.Action != ExitStopLoss {
			t.Errorf("action = %s, want STOP_LOSS", dec.Action)
		}
	})

	t.Run("take profit beats stop on huge gain", func(t *testing.T) {
		// Both thresholds can't be true at once for a yes position, but
		// priority is fixed: TP is evaluated first.
		dec := DecideExit(openPos(0.50, 0.60), quoteAt(0.60), 600, exitNow, cfg)
		if dec.Action != ExitTakeProfit {
			t.Errorf("action = %s, want TAKE_PROFIT", dec.Action)
		}
	})

	t.Run("time exit", func(t *testing.T) {
		pos := openPos(0.50, 0.505)
		pos.OpenedAt = exitNow.Add(-16 * time.Minute)
		dec := DecideExit(pos, quoteAt(0.505), 600, exitNow, cfg)
		if dec.Action != ExitTime {
			t.Errorf("action = %s, want TIME_EXIT", dec.Action)
		}
	})

	t.Run("late exit near resolution", func(t *testing.T) {
		dec := DecideExit(openPos(0.50, 0.505), quoteAt(0.505), 45, exitNow, cfg)
		if dec.Action != ExitLate {
			t.Errorf("action = %s, want LATE_EXIT", dec.Action)
		}
	})

	t.Run("hold has no price", func(t *testing.T) {
		dec := DecideExit(openPos(0.50, 0.505), quoteAt(0.505), 600, exitNow, cfg)
		if dec.Action != ExitHold {
			t.Errorf("action = %s, want HOLD", dec.Action)
		}
		if dec.Price != 0 {
			t.Errorf("hold price = %v, want 0", dec.Price)
		}
	})

	t.Run("no side exits at ask", func(t *testing.T) {
		pos := openPos(0.50, 0.48)
		pos.Side = model.SideNo
		dec := DecideExit(pos, quoteAt(0.48), 600, exitNow, cfg)
		if dec.Action != ExitTakeProfit {
			t.Errorf("action = %s, want TAKE_PROFIT on falling price", dec.Action)
		}
		if dec.Price != quoteAt(0.48).Ask {
			t.Errorf("exit price = %v, want ask", dec.Price)
		}
	})
}

func TestDecideExitPeakMonotonic(t *testing.T) {
	cfg := exitConfig()
	pos := openPos(0.50, 0.515) // +3%, below TP

	dec := DecideExit(pos, quoteAt(0.515), 600, exitNow, cfg)
	if dec.PeakPnLPct != 3.0 {
		t.Fatalf("peak = %v, want 3.0", dec.PeakPnLPct)
	}

	// Price slips back: the peak must not retreat.
	pos.PeakPnLPct = dec.PeakPnLPct
	pos.TrailStopPct = dec.TrailStopPct
	pos.CurrentPrice = 0.505
	dec = DecideExit(pos, quoteAt(0.505), 600, exitNow, cfg)
	if dec.PeakPnLPct != 3.0 {
		t.Errorf("peak regressed to %v", dec.PeakPnLPct)
	}
}

func TestDecideExitTrailing(t *testing.T) {
	cfg := exitConfig()

	// Gain reaches +3%: trailing arms at peak - gap = 2%.
	pos := openPos(0.50, 0.515)
	dec := DecideExit(pos, quoteAt(0.515), 600, exitNow, cfg)
	if dec.Action != ExitHold {
		t.Fatalf("action = %s, want HOLD while above the stop", dec.Action)
	}
	if dec.TrailStopPct == nil || *dec.TrailStopPct != 2.0 {
		t.Fatalf("trail stop = %v, want 2.0", dec.TrailStopPct)
	}

	// PnL falls to +1.5%, below the armed stop: trail fires even though
	// current PnL is under the arming threshold.
	pos.PeakPnLPct = dec.PeakPnLPct
	pos.TrailStopPct = dec.TrailStopPct
	pos.CurrentPrice = 0.5075
	dec = DecideExit(pos, quoteAt(0.5075), 600, exitNow, cfg)
	if dec.Action != ExitTrailStop {
		t.Errorf("action = %s, want TRAIL_STOP", dec.Action)
	}
}

func TestDecideExitTrailNeverLoosens(t *testing.T) {
	cfg := exitConfig()
	pos := openPos(0.50, 0.515)
	high := 2.5
	pos.PeakPnLPct = 3.5
	pos.TrailStopPct = &high

	// pnl 3.0 is above the stop, so we hold; the carried stop must stay
	// at max(2.5, 3.5-1) = 2.5 rather than retreating with the peak math.
	dec := DecideExit(pos, quoteAt(0.515), 600, exitNow, cfg)
	if dec.Action != ExitHold {
		t.Fatalf("action = %s, want HOLD", dec.Action)
	}
	if dec.TrailStopPct == nil || *dec.TrailStopPct != 2.5 {
		t.Errorf("trail stop = %v, want 2.5", dec.TrailStopPct)
	}
}

func TestConfigFingerprintStable(t *testing.T) {
	cfg := config.Default()
	a := ConfigFingerprint(cfg)
	b := ConfigFingerprint(cfg)
	if a != b || len(a) != 12 {
		t.Errorf("fingerprint unstable or wrong length: %q vs %q", a, b)
	}

	cfg.Exit.TakeProfitPct = 9.9
	if c := ConfigFingerprint(cfg); c == a {
		t.Error("fingerprint unchanged after config change")
	}
}
