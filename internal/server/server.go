package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/kalshi-trader/internal/config"
	"github.com/rickgao/kalshi-trader/internal/engine"
	"github.com/rickgao/kalshi-trader/internal/store"
	"github.com/rickgao/kalshi-trader/internal/version"
)

// AuthReporter verifies venue credentials. Nil when running paper.
type AuthReporter interface {
	AuthStatus(ctx context.Context) (balanceCents int64, err error)
}

// Server is the HTTP control surface.
type Server struct {
	engine *engine.Engine
	store  store.Store
	hub    *Hub
	auth   AuthReporter
	logger *slog.Logger
	srv    *http.Server
}

// New creates a server listening on the configured port.
func New(cfg config.Server, eng *engine.Engine, st store.Store, hub *Hub, auth AuthReporter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine: eng,
		store:  st,
		hub:    hub,
		auth:   auth,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /config", s.handleGetConfig)
	mux.HandleFunc("POST /config", s.handleSetConfig)
	mux.HandleFunc("GET /markets/scan", s.handleScan)
	mux.HandleFunc("GET /positions", s.handlePositions)
	mux.HandleFunc("GET /orders", s.handleOrders)
	mux.HandleFunc("GET /fills", s.handleFills)
	mux.HandleFunc("GET /decisions", s.handleDecisions)
	mux.HandleFunc("GET /activity", s.handleActivity)
	mux.HandleFunc("GET /auth/status", s.handleAuthStatus)
	mux.HandleFunc("GET /bot/status", s.handleBotStatus)
	mux.HandleFunc("POST /bot/start", s.handleStart)
	mux.HandleFunc("POST /bot/stop", s.handleStop)
	mux.HandleFunc("POST /bot/kill", s.handleKill)
	mux.HandleFunc("POST /bot/dry-run", s.handleDryRun)
	mux.HandleFunc("POST /bot/reset-event", s.handleResetEvent)
	mux.HandleFunc("POST /positions/close", s.handleClosePositions)
	mux.HandleFunc("POST /orders/paper", s.handlePaperOrder)
	mux.HandleFunc("GET /ws", hub.ServeWS)

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.logRequests(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins serving. Blocks until the listener fails or Stop runs.
func (s *Server) Start() error {
	s.logger.Info("control server listening",
		"addr", s.srv.Addr,
		"version", version.Version,
	)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Stop drains the listener and disconnects websocket subscribers.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Close()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("control server stopped")
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
