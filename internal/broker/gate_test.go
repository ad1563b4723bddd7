package broker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rickgao/kalshi-trader/internal/config"
	"github.com/rickgao/kalshi-trader/internal/model"
)

func liveSafety() config.Safety {
	return config.Safety{
		TradingMode:        "live",
		LiveTradingEnabled: true,
		LiveConfirm:        config.LiveConfirmPhrase,
	}
}

func TestGateCheck(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Safety)
		env    string
		want   string // "" means pass
	}{
		{"all switches on", nil, "live", ""},
		{"paper mode", func(s *config.Safety) { s.TradingMode = "paper" }, "live", "trading mode"},
		{"live trading disabled", func(s *config.Safety) { s.LiveTradingEnabled = false }, "live", "not enabled"},
		{"wrong phrase", func(s *config.Safety) { s.LiveConfirm = "enable live trading" }, "live", "confirmation phrase"},
		{"empty phrase", func(s *config.Safety) { s.LiveConfirm = "" }, "live", "confirmation phrase"},
		{"demo venue", nil, "demo", "venue environment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			safety := liveSafety()
			if tt.mutate != nil {
				tt.mutate(&safety)
			}
			err := NewGate(safety).Check(tt.env)
			if tt.want == "" {
				if err != nil {
					t.Errorf("Check = %v, want pass", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Check passed, want rejection")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want mention of %q", err, tt.want)
			}
		})
	}
}

// envBroker is a Broker stub that only reports an environment.
type envBroker struct {
	Broker
	env string
}

func (e envBroker) Environment() string { return e.env }

func TestSelect(t *testing.T) {
	paper := NewPaper()

	t.Run("no live broker falls back to paper", func(t *testing.T) {
		b, err := Select(NewGate(liveSafety()), paper, nil)
		if b != Broker(paper) || err == nil {
			t.Errorf("Select = %T %v", b, err)
		}
	})

	t.Run("gate failure falls back to paper", func(t *testing.T) {
		safety := liveSafety()
		safety.LiveTradingEnabled = false
		b, err := Select(NewGate(safety), paper, envBroker{env: "live"})
		if b != Broker(paper) || err == nil {
			t.Errorf("Select = %T %v", b, err)
		}
	})

	t.Run("gate pass selects live", func(t *testing.T) {
		live := envBroker{env: "live"}
		b, err := Select(NewGate(liveSafety()), paper, live)
		if err != nil {
			t.Fatalf("Select refused live: %v", err)
		}
		if b.Environment() != "live" {
			t.Errorf("selected %q broker", b.Environment())
		}
	})
}

func TestPaperFillsImmediately(t *testing.T) {
	p := NewPaper()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return base }

	res, err := p.PlaceOrder(context.Background(), "NBA-PTS", model.ActionBuy, model.SideYes, 0.51, 2)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != model.OrderFilled || res.FilledQty != 2 || res.AvgFillPrice != 0.51 {
		t.Errorf("result = %+v", res)
	}

	open, err := p.OpenOrders(context.Background())
	if err != nil || len(open) != 0 {
		t.Errorf("open orders = %v %v, want none", open, err)
	}

	fills, err := p.Fills(context.Background(), base.Add(-time.Minute))
	if err != nil || len(fills) != 1 {
		t.Fatalf("fills = %v %v", fills, err)
	}
	if fills[0].OrderID != res.OrderID {
		t.Errorf("fill order id = %q", fills[0].OrderID)
	}

	// Fills before the cursor are excluded.
	fills, _ = p.Fills(context.Background(), base.Add(time.Minute))
	if len(fills) != 0 {
		t.Errorf("fills after cursor = %d, want 0", len(fills))
	}
}

func TestPaperSnapshotDeterministic(t *testing.T) {
	p := NewPaper()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return base }

	a, err := p.GetSnapshot(context.Background(), "NBA-PTS")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := p.GetSnapshot(context.Background(), "NBA-PTS")
	if a.Quote != b.Quote {
		t.Errorf("same clock produced different quotes: %+v vs %+v", a.Quote, b.Quote)
	}
	if !a.Quote.Valid || a.Quote.Bid >= a.Quote.Ask {
		t.Errorf("quote = %+v", a.Quote)
	}

	if _, err := p.GetSnapshot(context.Background(), "NO-SUCH"); err == nil {
		t.Error("unknown market should error")
	}
}
