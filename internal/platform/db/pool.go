package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolSettings tunes the shared connection pool. Zero lifetime values fall
// back to defaults sized for request-scoped transactions: every workflow
// request checks a connection out for the length of one cascade, so
// connections cycle often and idle ones are cheap to drop.
type PoolSettings struct {
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

const (
	defaultConnMaxLifetime = time.Hour
	defaultConnMaxIdleTime = 15 * time.Minute
)

// NewPool builds the pgx pool the whole service shares and verifies the
// database is reachable before returning it.
func NewPool(ctx context.Context, databaseURL string, s PoolSettings) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = s.MaxConns
	cfg.MinConns = s.MinConns
	cfg.MaxConnLifetime = s.ConnMaxLifetime
	if cfg.MaxConnLifetime == 0 {
		cfg.MaxConnLifetime = defaultConnMaxLifetime
	}
	cfg.MaxConnIdleTime = s.ConnMaxIdleTime
	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = defaultConnMaxIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
