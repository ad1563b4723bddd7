package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/kalshi-trader/internal/advisor"
	"github.com/rickgao/kalshi-trader/internal/broker"
	"github.com/rickgao/kalshi-trader/internal/config"
	"github.com/rickgao/kalshi-trader/internal/execution"
	"github.com/rickgao/kalshi-trader/internal/model"
	"github.com/rickgao/kalshi-trader/internal/reconcile"
	"github.com/rickgao/kalshi-trader/internal/risk"
	"github.com/rickgao/kalshi-trader/internal/store"
)

// Publisher pushes an event to whatever transport is listening. A nil
// publisher is valid and drops everything.
type Publisher func(event string, payload any)

// Engine is the trading loop. All order-affecting work happens inside
// one tick goroutine; the read-side accessors only copy state.
type Engine struct {
	broker   broker.Broker
	store    store.Store
	exec     *execution.Manager
	recon    *reconcile.Reconciler
	governor *risk.Governor
	advisor  advisor.Advisor
	logger   *slog.Logger
	publish  Publisher
	cache    *stateCache

	cfgMu sync.RWMutex
	cfg   *config.Config

	mu               sync.RWMutex
	running          bool
	killed           bool
	lastScan         model.ScanSnapshot
	tradesExecuted   int
	entriesThisEvent int
	nextAction       string
	activity         []model.ActivityEntry
	eventStart       time.Time
	markedEventPnL   float64
	lastReconcile    time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// New wires an engine from its collaborators.
func New(cfg *config.Config, b broker.Broker, s store.Store, adv advisor.Advisor, logger *slog.Logger, publish Publisher) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if adv == nil {
		adv = advisor.Disabled{}
	}
	return &Engine{
		broker:     b,
		store:      s,
		exec:       execution.NewManager(b, s, cfg.Entry, cfg.Exit, logger),
		recon:      reconcile.New(b, s, logger),
		governor:   risk.New(cfg.RiskLimits),
		advisor:    adv,
		logger:     logger,
		publish:    publish,
		cache:      newStateCache(cfg.Scoring.VolWindow),
		cfg:        cfg,
		nextAction: "idle",
		eventStart: time.Now().UTC(),
		now:        time.Now,
	}
}

// Environment reports which venue environment backs the engine.
func (e *Engine) Environment() string { return e.broker.Environment() }

// Config returns the active configuration.
func (e *Engine) Config() *config.Config {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg
}

// SetConfig swaps the configuration between ticks. Risk limits take
// effect immediately; accumulated risk state is preserved.
func (e *Engine) SetConfig(cfg *config.Config) {
	e.cfgMu.Lock()
	e.cfg = cfg
	e.cfgMu.Unlock()
	e.governor.SetLimits(cfg.RiskLimits)
	e.exec = execution.NewManager(e.broker, e.store, cfg.Entry, cfg.Exit, e.logger)
	e.logger.Info("configuration updated")
}

// Start launches the tick loop. Returns immediately; the loop runs
// until Stop or Kill.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = true
	e.killed = false
	e.mu.Unlock()

	e.ctx, e.cancel = context.WithCancel(ctx)
	e.wg.Add(1)
	go e.run()

	e.logger.Info("engine started",
		"cadence", e.Config().Engine.Cadence,
		"trading_mode", e.Config().Safety.TradingMode,
		"environment", e.broker.Environment(),
	)
	e.record("Engine started", "lifecycle")
	return nil
}

// Stop halts the tick loop, waiting up to the context deadline.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("engine stopped")
	case <-ctx.Done():
		e.logger.Warn("engine stop timed out")
	}
	e.record("Engine stopped", "lifecycle")
	return nil
}

// Kill halts trading and best-effort cancels every resting order. The
// engine stays killed until Start is called again.
func (e *Engine) Kill(ctx context.Context) {
	e.mu.Lock()
	e.killed = true
	e.running = false
	e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}

	open, err := e.broker.OpenOrders(ctx)
	if err != nil {
		e.logger.Error("kill: listing open orders failed", "error", err)
	}
	for _, o := range open {
		if err := e.broker.CancelOrder(ctx, o.OrderID); err != nil {
			e.logger.Error("kill: cancel failed", "order_id", o.OrderID, "error", err)
		}
	}

	e.logger.Warn("kill switch engaged", "orders_cancelled", len(open))
	e.record("Kill switch engaged", "risk")
}

// ResetEvent clears event-scoped risk accumulators at an event boundary.
func (e *Engine) ResetEvent() {
	e.governor.ResetEvent()
	e.mu.Lock()
	e.entriesThisEvent = 0
	e.eventStart = e.now().UTC()
	e.markedEventPnL = 0
	e.mu.Unlock()
	e.record("Event accumulators reset", "risk")
}

func (e *Engine) run() {
	defer e.wg.Done()

	cadence := e.Config().Engine.Cadence
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

	// First tick immediately rather than waiting a full cadence.
	e.tick(e.ctx)

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.tick(e.ctx)
		}
	}
}

// tick is one full pass: reconcile, scan, manage exits, then entries.
// Serialized by construction; nothing else submits orders.
func (e *Engine) tick(ctx context.Context) {
	e.mu.RLock()
	killed := e.killed
	e.mu.RUnlock()
	if killed {
		return
	}

	e.maybeReconcile(ctx)

	e.setNextAction("scanning")
	scan := e.scan(ctx)

	e.setNextAction("managing exits")
	e.manageExits(ctx, scan)

	e.setNextAction("evaluating entries")
	e.evaluateEntries(ctx, scan)

	e.markEventPnL(ctx)

	e.setNextAction("waiting")
	e.emit("status", e.Status(ctx))
}

// maybeReconcile runs a venue sync when the reconcile interval has
// elapsed. Reconciliation is on its own clock, not the tick cadence.
func (e *Engine) maybeReconcile(ctx context.Context) {
	interval := e.Config().Engine.ReconcileInterval
	now := e.now()

	e.mu.Lock()
	due := e.lastReconcile.IsZero() || now.Sub(e.lastReconcile) >= interval
	if due {
		e.lastReconcile = now
	}
	e.mu.Unlock()
	if !due {
		return
	}

	if err := e.recon.Sync(ctx); err != nil {
		e.logger.Error("reconcile failed", "error", err)
	}
}

// markEventPnL recomputes the event result from the fill stream plus
// the mark-to-market value of whatever is still open.
func (e *Engine) markEventPnL(ctx context.Context) {
	e.mu.RLock()
	start := e.eventStart
	e.mu.RUnlock()

	fills, err := e.store.FillsSince(ctx, start)
	if err != nil {
		e.logger.Error("event pnl: fills read failed", "error", err)
		return
	}
	open, err := e.store.OpenPositions(ctx)
	if err != nil {
		e.logger.Error("event pnl: open positions read failed", "error", err)
		return
	}

	pnl := reconcile.EventPnLPct(fills, open)
	e.mu.Lock()
	e.markedEventPnL = pnl
	e.mu.Unlock()
}

func (e *Engine) setNextAction(action string) {
	e.mu.Lock()
	e.nextAction = action
	e.mu.Unlock()
}

func (e *Engine) emit(event string, payload any) {
	if e.publish != nil {
		e.publish(event, payload)
	}
}

// record appends to both the durable activity log and the in-memory
// ring the control surface serves.
func (e *Engine) record(message, category string) {
	entry := model.ActivityEntry{
		Timestamp: e.now().UTC(),
		Message:   message,
		Category:  category,
	}
	if err := e.store.AppendActivity(context.Background(), entry); err != nil {
		e.logger.Error("activity write failed", "error", err)
	}

	size := e.Config().Engine.ActivityBufferSize
	e.mu.Lock()
	e.activity = append(e.activity, entry)
	if size > 0 && len(e.activity) > size {
		e.activity = e.activity[len(e.activity)-size:]
	}
	e.mu.Unlock()

	e.emit("activity", entry)
}

// Activity returns the in-memory activity ring, oldest first.
func (e *Engine) Activity() []model.ActivityEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.ActivityEntry, len(e.activity))
	copy(out, e.activity)
	return out
}

// LastScan returns the most recent scan snapshot.
func (e *Engine) LastScan() model.ScanSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastScan
}

// Status summarizes the engine for the control surface.
func (e *Engine) Status(ctx context.Context) model.StatusSnapshot {
	e.mu.RLock()
	status := "stopped"
	if e.killed {
		status = "killed"
	} else if e.running {
		status = "running"
	}
	trades := e.tradesExecuted
	next := e.nextAction
	eventPnL := e.markedEventPnL
	e.mu.RUnlock()

	open, err := e.store.OpenPositions(ctx)
	if err != nil {
		e.logger.Error("status: open positions read failed", "error", err)
	}

	mode := model.TradingMode(e.Config().Safety.TradingMode)
	return model.StatusSnapshot{
		Status:         status,
		TradesExecuted: trades,
		OpenPositions:  len(open),
		EventPnLPct:    eventPnL,
		RiskMode:       e.governor.Mode(),
		TradingMode:    mode,
		NextAction:     next,
	}
}
