package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"signal-engine/internal/lifecycle"
)

// PostgresConfig names the connection parameters for PostgresWriter.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// PostgresWriter is the reference DurableWriter: an append-only
// signal_events table with a unique constraint on the idempotency key,
// relying on ON CONFLICT DO NOTHING rather than an in-process seen-set so
// idempotency survives a process restart.
type PostgresWriter struct {
	pool *pgxpool.Pool
}

// NewPostgresWriter opens a pool against cfg, pings it, and ensures the
// signal_events table exists.
func NewPostgresWriter(ctx context.Context, cfg PostgresConfig) (*PostgresWriter, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	w := &PostgresWriter{pool: pool}
	if err := w.migrate(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return w, nil
}

func (w *PostgresWriter) migrate(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS signal_events (
			id SERIAL PRIMARY KEY,
			idempotency_key VARCHAR(256) NOT NULL UNIQUE,
			kind VARCHAR(10) NOT NULL,
			symbol VARCHAR(20) NOT NULL,
			direction VARCHAR(5) NOT NULL,
			market VARCHAR(20) NOT NULL,
			timeframe VARCHAR(10) NOT NULL,
			entry DECIMAL(20, 8) NOT NULL,
			stop_loss DECIMAL(20, 8) NOT NULL,
			take_profit DECIMAL(20, 8) NOT NULL,
			confidence DECIMAL(6, 4) NOT NULL,
			conditions_met JSONB,
			reason VARCHAR(32),
			event_ts TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`
	if _, err := w.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("signal_events migration failed: %w", err)
	}
	const idx = `CREATE INDEX IF NOT EXISTS idx_signal_events_symbol ON signal_events(symbol, market)`
	if _, err := w.pool.Exec(ctx, idx); err != nil {
		return fmt.Errorf("signal_events index failed: %w", err)
	}
	return nil
}

// Write inserts ev, relying on the unique idempotency_key constraint to
// make retried writes no-ops rather than duplicates.
func (w *PostgresWriter) Write(ctx context.Context, ev lifecycle.Event) error {
	conditions, err := json.Marshal(ev.Signal.ConditionsMet)
	if err != nil {
		return fmt.Errorf("marshal conditions_met: %w", err)
	}

	const stmt = `
		INSERT INTO signal_events
			(idempotency_key, kind, symbol, direction, market, timeframe,
			 entry, stop_loss, take_profit, confidence, conditions_met, reason, event_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (idempotency_key) DO NOTHING`

	_, err = w.pool.Exec(ctx, stmt,
		idempotencyKey(ev), string(ev.Kind), ev.Signal.Symbol, string(ev.Signal.Direction),
		string(ev.Signal.Market), string(ev.Signal.Timeframe),
		ev.Signal.Entry, ev.Signal.SL, ev.Signal.TP, ev.Signal.Confidence,
		conditions, ev.Reason, ev.Ts,
	)
	if err != nil {
		return fmt.Errorf("insert signal_event: %w", err)
	}
	return nil
}

// Name identifies this writer to the scheduler's health_check job.
func (w *PostgresWriter) Name() string { return "postgres_event_store" }

// HealthCheck reports whether the pool can still reach the database.
func (w *PostgresWriter) HealthCheck(ctx context.Context) error {
	return w.pool.Ping(ctx)
}

// Close releases the connection pool.
func (w *PostgresWriter) Close() {
	w.pool.Close()
}
