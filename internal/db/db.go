package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTxConflict is returned when a serializable transaction keeps failing.
var ErrTxConflict = errors.New("transaction conflict, try again")

type DB struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

// Ping checks the connection for health endpoints.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// RunMigrations creates the trading tables if they do not exist.
func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			pokecash BIGINT NOT NULL DEFAULT 0 CHECK (pokecash >= 0),
			shards BIGINT NOT NULL DEFAULT 0 CHECK (shards >= 0),
			redeems BIGINT NOT NULL DEFAULT 0 CHECK (redeems >= 0),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS users_pokemon (
			user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			pokemon_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			nickname TEXT NOT NULL DEFAULT '',
			level INTEGER NOT NULL DEFAULT 1,
			xp INTEGER NOT NULL DEFAULT 0,
			iv_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
			hp_iv INTEGER NOT NULL DEFAULT 0,
			attack_iv INTEGER NOT NULL DEFAULT 0,
			defense_iv INTEGER NOT NULL DEFAULT 0,
			spatk_iv INTEGER NOT NULL DEFAULT 0,
			spdef_iv INTEGER NOT NULL DEFAULT 0,
			speed_iv INTEGER NOT NULL DEFAULT 0,
			shiny BOOLEAN NOT NULL DEFAULT FALSE,
			fusionable BOOLEAN NOT NULL DEFAULT FALSE,
			selected BOOLEAN NOT NULL DEFAULT FALSE,
			favorite BOOLEAN NOT NULL DEFAULT FALSE,
			caught BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, pokemon_id)
		);

		CREATE TABLE IF NOT EXISTS user_preferences (
			user_id TEXT PRIMARY KEY,
			sort_order TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS trade_history (
			id UUID PRIMARY KEY,
			user_a TEXT NOT NULL,
			user_b TEXT NOT NULL,
			mode TEXT NOT NULL,
			aborted BOOLEAN NOT NULL DEFAULT FALSE,
			delivered JSONB NOT NULL DEFAULT '[]'::jsonb,
			lost JSONB NOT NULL DEFAULT '[]'::jsonb,
			finalized_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_trade_history_user_a ON trade_history(user_a, finalized_at DESC);
		CREATE INDEX IF NOT EXISTS idx_trade_history_user_b ON trade_history(user_b, finalized_at DESC);
	`)
	return err
}

// withTx runs fn in a serializable transaction, retrying on serialization failures.
func (db *DB) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	const maxAttempts = 4
	retryDelay := 50 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := db.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isSerializationError(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			break
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		retryDelay *= 2
	}
	return ErrTxConflict
}

func (db *DB) runTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
