// Package db provides a pgxpool-based connection pool with prepared statement
// registration, schema bootstrap and health checking for delivery history.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/gagwatch/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// schema is idempotent; it runs once at startup before statements are used.
const schema = `
CREATE TABLE IF NOT EXISTS notification_log (
	id         uuid PRIMARY KEY,
	cycle_id   uuid NULL,
	kind       text NOT NULL,
	channel    text NOT NULL,
	title      text NOT NULL,
	status     text NOT NULL,
	error      text NOT NULL DEFAULT '',
	created_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS notification_log_created_at_idx
	ON notification_log (created_at DESC);
`

// Statements maps prepared statement names to SQL. Exported so the names
// used by notifications.PGHistory can be checked in tests.
var Statements = map[string]string{
	// Health
	"health_check": "SELECT 1",

	// Delivery history
	"insert_delivery": `INSERT INTO notification_log
		(id, cycle_id, kind, channel, title, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"recent_deliveries": `SELECT id::text, COALESCE(cycle_id::text, ''), kind, channel, title, status, error, created_at
		FROM notification_log ORDER BY created_at DESC LIMIT $1`,
	"purge_deliveries": "DELETE FROM notification_log WHERE created_at < $1",
}

// New creates and validates a new connection pool, then ensures the schema.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// The table must exist before AfterConnect prepares statements against it,
	// so bootstrap on a plain connection and only then enable preparation.
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	pool.Close()

	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}
	pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers every statement the history layer uses.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	for name, sql := range Statements {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
