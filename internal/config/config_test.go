package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Safety.TradingMode != "paper" {
		t.Errorf("trading_mode = %q, want paper", cfg.Safety.TradingMode)
	}
	if cfg.MarketFilters.Category != "sports" {
		t.Errorf("category = %q", cfg.MarketFilters.Category)
	}
	if cfg.Engine.Cadence != 30*time.Second {
		t.Errorf("cadence = %v", cfg.Engine.Cadence)
	}
	if cfg.Venue.Environment != "demo" {
		t.Errorf("venue environment = %q", cfg.Venue.Environment)
	}
	if cfg.Venue.RestURL != DefaultDemoRestURL {
		t.Errorf("rest_url = %q", cfg.Venue.RestURL)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults fail validation: %v", err)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Exit.TakeProfitPct = 7.5
	cfg.Venue.Environment = "live"
	cfg.applyDefaults()

	if cfg.Exit.TakeProfitPct != 7.5 {
		t.Errorf("take_profit_pct overwritten: %v", cfg.Exit.TakeProfitPct)
	}
	if cfg.Exit.StopLossPct != DefaultStopLossPct {
		t.Errorf("stop_loss_pct = %v, want default", cfg.Exit.StopLossPct)
	}
	// A live environment with no explicit URL defaults to the live host.
	if cfg.Venue.RestURL != DefaultLiveRestURL {
		t.Errorf("rest_url = %q", cfg.Venue.RestURL)
	}
}

func TestApplyDefaultsSkipsDatabaseWhenUnset(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	if cfg.Database.Port != 0 {
		t.Errorf("db port defaulted with no host: %d", cfg.Database.Port)
	}

	cfg = &Config{}
	cfg.Database.Host = "localhost"
	cfg.applyDefaults()
	if cfg.Database.Port != 5432 || cfg.Database.SSLMode != "prefer" {
		t.Errorf("db defaults = %d %q", cfg.Database.Port, cfg.Database.SSLMode)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad trading mode", func(c *Config) {
			c.Safety.TradingMode = "yolo"
		}, "safety.trading_mode"},
		{"live without credentials", func(c *Config) {
			c.Safety.TradingMode = "live"
		}, "live trading requires"},
		{"advisor enabled without url", func(c *Config) {
			c.Advisor.Enabled = true
		}, "advisor.url"},
		{"non-positive take profit", func(c *Config) {
			c.Exit.TakeProfitPct = -1
		}, "take_profit_pct"},
		{"weights far from one", func(c *Config) {
			c.Scoring.Weights = Weights{Volatility: 2, Spread: 2, Liquidity: 2, Resolution: 2}
		}, "weights"},
		{"db name missing", func(c *Config) {
			c.Database.Host = "localhost"
			c.Database.User = "trader"
			c.Database.MaxConns = 10
		}, "database.name"},
		{"min conns above max", func(c *Config) {
			c.Database.Host = "localhost"
			c.Database.Name = "trader"
			c.Database.User = "trader"
			c.Database.MinConns = 20
			c.Database.MaxConns = 10
		}, "min_conns"},
		{"port out of range", func(c *Config) {
			c.Server.Port = 70000
		}, "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("validation passed")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestValidateLiveWithCredentials(t *testing.T) {
	cfg := Default()
	cfg.Safety.TradingMode = "live"
	cfg.Venue.APIKey = "key-id"
	cfg.Venue.PrivateKeyPath = "/tmp/key.pem"
	if err := cfg.Validate(); err != nil {
		t.Errorf("live config with credentials rejected: %v", err)
	}
}

func TestLoadExpandsEnvAndRoundTrips(t *testing.T) {
	t.Setenv("TEST_TRADER_DB_PASSWORD", "hunter2")

	dir := t.TempDir()
	path := filepath.Join(dir, "trader.yaml")
	raw := `
market_filters:
  category: politics
database:
  host: localhost
  name: trader
  user: trader
  password: ${TEST_TRADER_DB_PASSWORD}
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MarketFilters.Category != "politics" {
		t.Errorf("category = %q", cfg.MarketFilters.Category)
	}
	if cfg.Database.Password != "hunter2" {
		t.Errorf("password = %q, want expanded env var", cfg.Database.Password)
	}
	// Unset sections still get defaults.
	if cfg.Entry.OrderTTL != DefaultOrderTTL {
		t.Errorf("order_ttl = %v", cfg.Entry.OrderTTL)
	}

	out := filepath.Join(dir, "saved.yaml")
	if err := Save(cfg, out); err != nil {
		t.Fatalf("save: %v", err)
	}
	again, err := Load(out)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.MarketFilters.Category != "politics" || again.Database.Password != "hunter2" {
		t.Errorf("round trip lost fields: %+v", again.MarketFilters)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadAndValidate(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error does not unwrap to not-exist: %v", err)
	}
}
