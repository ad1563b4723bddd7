package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/kalshi-trader/internal/config"
	"github.com/rickgao/kalshi-trader/internal/model"
)

// Postgres is the durable Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.Database) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}

// NewPostgres connects, verifies the connection, and ensures the schema.
func NewPostgres(ctx context.Context, cfg config.Database) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Postgres{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

func (s *Postgres) Close() {
	s.pool.Close()
}

// Ping verifies the connection is healthy.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Postgres) ensureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			order_id   TEXT PRIMARY KEY,
			market_id  TEXT NOT NULL,
			action     TEXT NOT NULL,
			side       TEXT NOT NULL,
			price      DOUBLE PRECISION NOT NULL,
			qty        INTEGER NOT NULL,
			status     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			filled_at  TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS positions (
			position_id     TEXT PRIMARY KEY,
			market_id       TEXT NOT NULL,
			market_name     TEXT NOT NULL DEFAULT '',
			side            TEXT NOT NULL,
			qty             INTEGER NOT NULL,
			entry_price     DOUBLE PRECISION NOT NULL,
			current_price   DOUBLE PRECISION NOT NULL,
			take_profit_pct DOUBLE PRECISION NOT NULL,
			stop_loss_pct   DOUBLE PRECISION NOT NULL,
			max_hold_secs   INTEGER NOT NULL,
			close_before_m  INTEGER NOT NULL,
			opened_at       TIMESTAMPTZ NOT NULL,
			status          TEXT NOT NULL,
			pnl_pct         DOUBLE PRECISION NOT NULL DEFAULT 0,
			peak_pnl_pct    DOUBLE PRECISION NOT NULL DEFAULT 0,
			trail_stop_pct  DOUBLE PRECISION,
			closed_at       TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS fills (
			id        BIGSERIAL PRIMARY KEY,
			trade_id  TEXT NOT NULL DEFAULT '',
			order_id  TEXT NOT NULL,
			market_id TEXT NOT NULL,
			action    TEXT NOT NULL,
			side      TEXT NOT NULL,
			price     DOUBLE PRECISION NOT NULL,
			qty       INTEGER NOT NULL,
			ts        TIMESTAMPTZ NOT NULL,
			UNIQUE (order_id, ts, price, qty)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS fills_trade_id_key
			ON fills (trade_id) WHERE trade_id <> ''`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id                 BIGSERIAL PRIMARY KEY,
			ts                 TIMESTAMPTZ NOT NULL,
			market_id          TEXT NOT NULL,
			action             TEXT NOT NULL,
			reason_code        TEXT NOT NULL,
			qualifies          BOOLEAN NOT NULL,
			scores             JSONB,
			rationale          TEXT NOT NULL DEFAULT '',
			config_fingerprint TEXT NOT NULL DEFAULT '',
			order_ids          JSONB,
			advisory           JSONB
		)`,
		`CREATE TABLE IF NOT EXISTS activity (
			id       BIGSERIAL PRIMARY KEY,
			ts       TIMESTAMPTZ NOT NULL,
			message  TEXT NOT NULL,
			category TEXT NOT NULL
		)`,
	}

	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) UpsertOrder(ctx context.Context, order model.Order) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO orders (order_id, market_id, action, side, price, qty, status, created_at, filled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (order_id) DO UPDATE SET
			status    = EXCLUDED.status,
			filled_at = EXCLUDED.filled_at
	`, order.OrderID, order.MarketID, order.Action, order.Side, order.Price, order.Qty, order.Status, order.CreatedAt, order.FilledAt)
	if err != nil {
		return fmt.Errorf("upsert order %s: %w", order.OrderID, err)
	}
	return nil
}

func (s *Postgres) UpsertPosition(ctx context.Context, pos model.Position) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO positions (position_id, market_id, market_name, side, qty, entry_price, current_price,
			take_profit_pct, stop_loss_pct, max_hold_secs, close_before_m, opened_at, status,
			pnl_pct, peak_pnl_pct, trail_stop_pct, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (position_id) DO UPDATE SET
			qty            = EXCLUDED.qty,
			current_price  = EXCLUDED.current_price,
			status         = EXCLUDED.status,
			pnl_pct        = EXCLUDED.pnl_pct,
			peak_pnl_pct   = EXCLUDED.peak_pnl_pct,
			trail_stop_pct = EXCLUDED.trail_stop_pct,
			closed_at      = EXCLUDED.closed_at
	`, pos.PositionID, pos.MarketID, pos.MarketName, pos.Side, pos.Qty, pos.EntryPrice, pos.CurrentPrice,
		pos.TakeProfitPct, pos.StopLossPct, pos.MaxHoldSeconds, pos.CloseBeforeResolutionMinutes, pos.OpenedAt, pos.Status,
		pos.PnLPct, pos.PeakPnLPct, pos.TrailStopPct, pos.ClosedAt)
	if err != nil {
		return fmt.Errorf("upsert position %s: %w", pos.PositionID, err)
	}
	return nil
}

func (s *Postgres) AppendFill(ctx context.Context, fill model.Fill) error {
	// Idempotent: a re-synced fill hits the trade-id index (or the
	// composite constraint when no trade id is known) and is dropped
	// rather than double-counted.
	_, err := s.pool.Exec(ctx, `
		INSERT INTO fills (trade_id, order_id, market_id, action, side, price, qty, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING
	`, fill.TradeID, fill.OrderID, fill.MarketID, fill.Action, fill.Side, fill.Price, fill.Qty, fill.Timestamp)
	if err != nil {
		return fmt.Errorf("append fill for order %s: %w", fill.OrderID, err)
	}
	return nil
}

func (s *Postgres) AppendDecision(ctx context.Context, dec model.DecisionRecord) error {
	scores, err := json.Marshal(dec.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	orderIDs, err := json.Marshal(dec.OrderIDs)
	if err != nil {
		return fmt.Errorf("marshal order ids: %w", err)
	}
	var advisory []byte
	if dec.Advisory != nil {
		advisory, err = json.Marshal(dec.Advisory)
		if err != nil {
			return fmt.Errorf("marshal advisory: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO decisions (ts, market_id, action, reason_code, qualifies, scores, rationale, config_fingerprint, order_ids, advisory)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, dec.Timestamp, dec.MarketID, dec.Action, dec.ReasonCode, dec.Qualifies, scores, dec.Rationale, dec.ConfigFingerprint, orderIDs, advisory)
	if err != nil {
		return fmt.Errorf("append decision for %s: %w", dec.MarketID, err)
	}
	return nil
}

func (s *Postgres) AppendActivity(ctx context.Context, entry model.ActivityEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO activity (ts, message, category)
		VALUES ($1, $2, $3)
	`, entry.Timestamp, entry.Message, entry.Category)
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

func (s *Postgres) OpenPositions(ctx context.Context) ([]model.Position, error) {
	return s.queryPositions(ctx, `
		SELECT position_id, market_id, market_name, side, qty, entry_price, current_price,
			take_profit_pct, stop_loss_pct, max_hold_secs, close_before_m, opened_at, status,
			pnl_pct, peak_pnl_pct, trail_stop_pct, closed_at
		FROM positions WHERE status = 'open' ORDER BY opened_at
	`)
}

func (s *Postgres) Positions(ctx context.Context, limit int) ([]model.Position, error) {
	return s.queryPositions(ctx, `
		SELECT position_id, market_id, market_name, side, qty, entry_price, current_price,
			take_profit_pct, stop_loss_pct, max_hold_secs, close_before_m, opened_at, status,
			pnl_pct, peak_pnl_pct, trail_stop_pct, closed_at
		FROM positions ORDER BY opened_at DESC LIMIT $1
	`, limit)
}

func (s *Postgres) queryPositions(ctx context.Context, sql string, args ...any) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var out []model.Position
	for rows.Next() {
		var p model.Position
		if err := rows.Scan(&p.PositionID, &p.MarketID, &p.MarketName, &p.Side, &p.Qty, &p.EntryPrice, &p.CurrentPrice,
			&p.TakeProfitPct, &p.StopLossPct, &p.MaxHoldSeconds, &p.CloseBeforeResolutionMinutes, &p.OpenedAt, &p.Status,
			&p.PnLPct, &p.PeakPnLPct, &p.TrailStopPct, &p.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Postgres) RecentOrders(ctx context.Context, limit int) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT order_id, market_id, action, side, price, qty, status, created_at, filled_at
		FROM orders ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.OrderID, &o.MarketID, &o.Action, &o.Side, &o.Price, &o.Qty, &o.Status, &o.CreatedAt, &o.FilledAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Postgres) RecentFills(ctx context.Context, limit int) ([]model.Fill, error) {
	return s.queryFills(ctx, `
		SELECT trade_id, order_id, market_id, action, side, price, qty, ts
		FROM fills ORDER BY id DESC LIMIT $1
	`, limit)
}

func (s *Postgres) FillsByOrder(ctx context.Context, orderID string) ([]model.Fill, error) {
	return s.queryFills(ctx, `
		SELECT trade_id, order_id, market_id, action, side, price, qty, ts
		FROM fills WHERE order_id = $1 ORDER BY id
	`, orderID)
}

func (s *Postgres) FillsSince(ctx context.Context, since time.Time) ([]model.Fill, error) {
	return s.queryFills(ctx, `
		SELECT trade_id, order_id, market_id, action, side, price, qty, ts
		FROM fills WHERE ts >= $1 ORDER BY id
	`, since)
}

func (s *Postgres) queryFills(ctx context.Context, sql string, args ...any) ([]model.Fill, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query fills: %w", err)
	}
	defer rows.Close()

	var out []model.Fill
	for rows.Next() {
		var f model.Fill
		if err := rows.Scan(&f.TradeID, &f.OrderID, &f.MarketID, &f.Action, &f.Side, &f.Price, &f.Qty, &f.Timestamp); err != nil {
			return nil, fmt.Errorf("scan fill: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Postgres) RecentDecisions(ctx context.Context, limit int) ([]model.DecisionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ts, market_id, action, reason_code, qualifies, scores, rationale, config_fingerprint, order_ids, advisory
		FROM decisions ORDER BY id DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []model.DecisionRecord
	for rows.Next() {
		var d model.DecisionRecord
		var scores, orderIDs, advisory []byte
		if err := rows.Scan(&d.Timestamp, &d.MarketID, &d.Action, &d.ReasonCode, &d.Qualifies, &scores, &d.Rationale, &d.ConfigFingerprint, &orderIDs, &advisory); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if len(scores) > 0 {
			if err := json.Unmarshal(scores, &d.Scores); err != nil {
				return nil, fmt.Errorf("unmarshal scores: %w", err)
			}
		}
		if len(orderIDs) > 0 {
			if err := json.Unmarshal(orderIDs, &d.OrderIDs); err != nil {
				return nil, fmt.Errorf("unmarshal order ids: %w", err)
			}
		}
		if len(advisory) > 0 {
			d.Advisory = &model.AdvisorOpinion{}
			if err := json.Unmarshal(advisory, d.Advisory); err != nil {
				return nil, fmt.Errorf("unmarshal advisory: %w", err)
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Postgres) RecentActivity(ctx context.Context, limit int) ([]model.ActivityEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ts, message, category
		FROM activity ORDER BY id DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var out []model.ActivityEntry
	for rows.Next() {
		var e model.ActivityEntry
		if err := rows.Scan(&e.Timestamp, &e.Message, &e.Category); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
