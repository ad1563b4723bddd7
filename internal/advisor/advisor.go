// Package advisor consults an optional external service before an
// entry is submitted. The advisor can veto a trade but never cause
// one, and any failure to reach it is treated as no opinion.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/rickgao/kalshi-trader/internal/config"
	"github.com/rickgao/kalshi-trader/internal/model"
)

// Request describes the trade the engine proposes to make.
type Request struct {
	MarketID        string     `json:"market_id"`
	MarketName      string     `json:"market_name"`
	Side            model.Side `json:"side"`
	Price           float64    `json:"price"`
	Qty             int        `json:"qty"`
	ExpectedEdgePct float64    `json:"expected_edge_pct"`
	OverallScore    float64    `json:"overall_score"`
}

// Advisor produces an opinion on a proposed trade. A nil opinion means
// no advice is available and the trade proceeds on its own merits.
type Advisor interface {
	Consult(ctx context.Context, req Request) *model.AdvisorOpinion
}

// Disabled is the no-op advisor used when none is configured.
type Disabled struct{}

func (Disabled) Consult(context.Context, Request) *model.AdvisorOpinion { return nil }

// HTTP consults an advisory service over a single POST. Errors are
// logged and swallowed: advice is best-effort, trading is not.
type HTTP struct {
	cfg    config.Advisor
	client *http.Client
	logger *slog.Logger
}

// NewHTTP builds an HTTP advisor from config.
func NewHTTP(cfg config.Advisor, logger *slog.Logger) *HTTP {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTP{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (a *HTTP) Consult(ctx context.Context, req Request) *model.AdvisorOpinion {
	payload, err := json.Marshal(req)
	if err != nil {
		a.logger.Warn("advisor request marshal failed", "error", err)
		return nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		a.logger.Warn("advisor request build failed", "error", err)
		return nil
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		a.logger.Warn("advisor unreachable", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Warn("advisor returned non-200", "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		a.logger.Warn("advisor response read failed", "error", err)
		return nil
	}

	var opinion model.AdvisorOpinion
	if err := json.Unmarshal(body, &opinion); err != nil {
		a.logger.Warn("advisor response malformed", "error", err)
		return nil
	}
	return &opinion
}

// Select returns the configured advisor: HTTP when enabled with a URL,
// the no-op otherwise.
func Select(cfg config.Advisor, logger *slog.Logger) (Advisor, error) {
	if !cfg.Enabled {
		return Disabled{}, nil
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("advisor enabled without a url")
	}
	return NewHTTP(cfg, logger), nil
}
