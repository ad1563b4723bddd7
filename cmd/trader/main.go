package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rickgao/kalshi-trader/internal/advisor"
	"github.com/rickgao/kalshi-trader/internal/broker"
	"github.com/rickgao/kalshi-trader/internal/config"
	"github.com/rickgao/kalshi-trader/internal/engine"
	"github.com/rickgao/kalshi-trader/internal/server"
	"github.com/rickgao/kalshi-trader/internal/store"
	"github.com/rickgao/kalshi-trader/internal/venue"
	"github.com/rickgao/kalshi-trader/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/trader.yaml", "path to config file")
	autostart := flag.Bool("autostart", true, "start the trading loop immediately")
	flag.Parse()

	// Secrets from .env, if present. Config references them as ${VAR}.
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env")
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting trader",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration. A missing file means a default paper session.
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("no config file, using paper defaults", "path", *configPath)
			cfg = config.Default()
		} else {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("configuration loaded",
		"trading_mode", cfg.Safety.TradingMode,
		"category", cfg.MarketFilters.Category,
		"cadence", cfg.Engine.Cadence,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Audit store: Postgres when configured, memory otherwise.
	var st store.Store
	if cfg.Database.Host != "" {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pg, err := store.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		st = pg
		logger.Info("database connected")
	} else {
		st = store.NewMemory()
		logger.Info("using in-memory store")
	}
	defer st.Close()

	// Brokers. The live venue client only exists when credentials are
	// configured; the gate decides whether it is ever used.
	gate := broker.NewGate(cfg.Safety)
	paper := broker.NewPaper()

	var live broker.Broker
	var auth server.AuthReporter
	if cfg.Venue.APIKey != "" && cfg.Venue.PrivateKeyPath != "" {
		signer, err := venue.NewSigner(cfg.Venue.APIKey, cfg.Venue.PrivateKeyPath)
		if err != nil {
			logger.Error("failed to load venue credentials", "error", err)
			os.Exit(1)
		}
		client, err := venue.NewClient(cfg.Venue.RestURL, cfg.Venue.Environment, signer,
			venue.WithLogger(logger),
			venue.WithTimeout(cfg.Venue.Timeout),
			venue.WithRetries(cfg.Venue.MaxRetries, cfg.Venue.RetryBackoff),
		)
		if err != nil {
			logger.Error("failed to build venue client", "error", err)
			os.Exit(1)
		}
		lb := venue.NewLiveBroker(client, gate, logger)
		live = lb
		auth = lb
	}

	active, err := broker.Select(gate, paper, live)
	if err != nil {
		logger.Info("trading through paper broker", "reason", err)
	} else {
		logger.Warn("LIVE TRADING ENABLED", "environment", active.Environment())
	}

	adv, err := advisor.Select(cfg.Advisor, logger)
	if err != nil {
		logger.Error("advisor configuration invalid", "error", err)
		os.Exit(1)
	}

	hub := server.NewHub(logger)
	eng := engine.New(cfg, active, st, adv, logger, hub.Publish)

	srv := server.New(cfg.Server, eng, st, hub, auth, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("control server failed", "error", err)
			cancel()
		}
	}()

	if *autostart {
		if err := eng.Start(ctx); err != nil {
			logger.Error("failed to start engine", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("trader running",
		"environment", active.Environment(),
		"control_url", "http://localhost",
		"port", cfg.Server.Port,
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := eng.Stop(shutdownCtx); err != nil {
		logger.Error("engine stop failed", "error", err)
	}
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("server stop failed", "error", err)
	}

	logger.Info("trader stopped")
}
