package risk

import (
	"testing"
	"time"

	"github.com/rickgao/kalshi-trader/internal/config"
)

func testLimits() config.RiskLimits {
	return config.RiskLimits{
		MaxExposureContracts:   4,
		MaxExposureDollars:     400,
		MaxConcurrentPositions: 2,
		MaxTradesPerEvent:      6,
		MaxConsecutiveLosses:   2,
		MaxEventLossPct:        5.0,
		MaxSessionLossPct:      8.0,
		CooldownAfterTrade:     20 * time.Second,
	}
}

func TestCanTradeFreshGovernor(t *testing.T) {
	g := New(testLimits())
	ok, reason := g.CanTrade()
	if !ok || reason != "Ok" {
		t.Errorf("CanTrade = %v %q, want true Ok", ok, reason)
	}
}

func TestCanTradeFailureOrder(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*Governor)
		reason string
	}{
		{"kill switch wins over everything", func(g *Governor) {
			limits := testLimits()
			limits.KillSwitch = true
			g.SetLimits(limits)
			g.UpdateExposure(10, 1000, 5)
		}, "Kill switch active"},
		{"contract exposure before dollar exposure", func(g *Governor) {
			g.UpdateExposure(4, 1000, 5)
		}, "Exposure contracts limit reached"},
		{"dollar exposure", func(g *Governor) {
			g.UpdateExposure(0, 400, 5)
		}, "Exposure dollars limit reached"},
		{"concurrent positions", func(g *Governor) {
			g.UpdateExposure(0, 0, 2)
		}, "Max concurrent positions reached"},
		{"loss streak", func(g *Governor) {
			g.RecordTrade(-1)
			g.RecordTrade(-1)
		}, "Loss streak limit reached"},
		{"event loss cap", func(g *Governor) {
			g.RecordTrade(-3)
			g.RecordTrade(2) // resets the streak, event pnl now -1
			g.RecordTrade(-4.5)
		}, "Event loss cap reached"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(testLimits())
			g.now = func() time.Time { return time.Time{} } // disable cooldown
			tt.setup(g)
			ok, reason := g.CanTrade()
			if ok {
				t.Fatal("CanTrade allowed a blocked entry")
			}
			if reason != tt.reason {
				t.Errorf("reason = %q, want %q", reason, tt.reason)
			}
		})
	}
}

func TestSessionCapSurvivesEventReset(t *testing.T) {
	g := New(testLimits())
	g.now = func() time.Time { return time.Time{} }

	g.RecordTrade(-4)
	g.ResetEvent()
	g.RecordTrade(-4.5)

	ok, reason := g.CanTrade()
	if ok {
		t.Fatal("CanTrade allowed past the session cap")
	}
	// Event pnl is only -4.5 after the reset; the session total -8.5 trips.
	if reason != "Session loss cap reached" {
		t.Errorf("reason = %q", reason)
	}

	s := g.Snapshot()
	if s.EventPnLPct != -4.5 || s.SessionPnLPct != -8.5 {
		t.Errorf("event=%v session=%v", s.EventPnLPct, s.SessionPnLPct)
	}
}

func TestLossStreakAndReset(t *testing.T) {
	g := New(testLimits())
	g.now = func() time.Time { return time.Time{} }

	g.RecordTrade(-0.5)
	g.RecordTrade(-0.5)
	if ok, reason := g.CanTrade(); ok || reason != "Loss streak limit reached" {
		t.Fatalf("after two losses: %v %q", ok, reason)
	}

	// A winner clears the streak.
	g.RecordTrade(1.0)
	if ok, _ := g.CanTrade(); !ok {
		t.Error("winner should clear the loss streak")
	}

	g.RecordTrade(-0.5)
	g.RecordTrade(-0.5)
	g.ResetEvent()
	if ok, _ := g.CanTrade(); !ok {
		t.Error("ResetEvent should clear the loss streak")
	}
}

func TestCooldown(t *testing.T) {
	g := New(testLimits())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	g.now = func() time.Time { return clock }

	g.RecordTrade(1.0)

	clock = base.Add(10 * time.Second)
	if ok, reason := g.CanTrade(); ok || reason != "Cooldown active" {
		t.Errorf("inside window: %v %q", ok, reason)
	}
	if !g.InCooldown() {
		t.Error("InCooldown = false inside window")
	}

	clock = base.Add(25 * time.Second)
	if ok, _ := g.CanTrade(); !ok {
		t.Error("cooldown should have expired")
	}
}

func TestMode(t *testing.T) {
	g := New(testLimits())
	if got := g.Mode(); got != "Conservative" {
		t.Errorf("mode = %q", got)
	}

	g.RecordTrade(-1)
	if got := g.Mode(); got != "Cautious" {
		t.Errorf("mode after loss = %q", got)
	}

	limits := testLimits()
	limits.KillSwitch = true
	g.SetLimits(limits)
	if got := g.Mode(); got != "Kill-switch" {
		t.Errorf("mode with kill switch = %q", got)
	}
}
