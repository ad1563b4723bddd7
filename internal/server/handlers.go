package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/rickgao/kalshi-trader/internal/model"
	"github.com/rickgao/kalshi-trader/internal/version"
)

const defaultListLimit = 50

var errMissingPosition = errors.New("position_id required")

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func limitParam(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return defaultListLimit
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"version":     version.Version,
		"environment": s.engine.Environment(),
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.engine.Config()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(data)
}

// handleSetConfig overlays a YAML document onto the active config,
// validates the result, and swaps it in between ticks.
func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	updated := *s.engine.Config()
	if err := yaml.Unmarshal(body, &updated); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := updated.Validate(); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	s.engine.SetConfig(&updated)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.LastScan())
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("status") == "open" {
		positions, err := s.store.OpenPositions(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.writeJSON(w, http.StatusOK, positions)
		return
	}
	positions, err := s.store.Positions(r.Context(), limitParam(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.store.RecentOrders(r.Context(), limitParam(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleFills(w http.ResponseWriter, r *http.Request) {
	fills, err := s.store.RecentFills(r.Context(), limitParam(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, fills)
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	decisions, err := s.store.RecentDecisions(r.Context(), limitParam(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, decisions)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Activity())
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"environment":   s.engine.Environment(),
		"authenticated": false,
	}
	if s.auth != nil {
		balance, err := s.auth.AuthStatus(r.Context())
		if err != nil {
			resp["error"] = err.Error()
		} else {
			resp["authenticated"] = true
			resp["balance_cents"] = balance
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBotStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Status(r.Context()))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	// Detach from the request context: the loop outlives the request.
	if err := s.engine.Start(context.Background()); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Stop(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleKill(w http.ResponseWriter, r *http.Request) {
	s.engine.Kill(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "killed"})
}

func (s *Server) handleDryRun(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.DryRun(r.Context()))
}

func (s *Server) handleResetEvent(w http.ResponseWriter, r *http.Request) {
	s.engine.ResetEvent()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

type closeRequest struct {
	PositionID string `json:"position_id"`
	All        bool   `json:"all"`
}

func (s *Server) handleClosePositions(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if req.All {
		results, err := s.engine.CloseAll(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.writeJSON(w, http.StatusOK, results)
		return
	}

	if req.PositionID == "" {
		s.writeError(w, http.StatusBadRequest, errMissingPosition)
		return
	}
	res, err := s.engine.ClosePositionByID(r.Context(), req.PositionID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

type paperOrderRequest struct {
	MarketID string  `json:"market_id"`
	Action   string  `json:"action"`
	Side     string  `json:"side"`
	Price    float64 `json:"price"`
	Qty      int     `json:"qty"`
}

func (s *Server) handlePaperOrder(w http.ResponseWriter, r *http.Request) {
	var req paperOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.engine.PlaceManualOrder(r.Context(), req.MarketID,
		model.Action(req.Action), model.Side(req.Side), req.Price, req.Qty)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}
