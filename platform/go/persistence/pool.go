package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig tunes the pgx pool shared by every store. Zero values keep pgx defaults.
type PoolConfig struct {
	ConnString string
	// ApplicationName shows up in pg_stat_activity; it overrides one set in ConnString.
	ApplicationName string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// ConnectAttempts pings before NewPool gives up (default 1). The API sets more so it
	// can start alongside its database container.
	ConnectAttempts int
	ConnectBackoff  time.Duration
}

// NewPool parses cfg, opens the pool and waits until Postgres answers a ping.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.ConnString == "" {
		return nil, errors.New("database connection string is required")
	}
	pc, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.ApplicationName != "" {
		pc.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := waitReady(ctx, pool, max(cfg.ConnectAttempts, 1), cfg.ConnectBackoff); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func waitReady(ctx context.Context, pool *pgxpool.Pool, attempts int, backoff time.Duration) error {
	if backoff <= 0 {
		backoff = time.Second
	}
	t := time.NewTimer(0)
	defer t.Stop()

	var err error
	for i := range attempts {
		if i > 0 {
			t.Reset(backoff)
			select {
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			case <-t.C:
			}
		}
		if err = pool.Ping(ctx); err == nil {
			return nil
		}
	}
	return err
}

// ClosePool accepts nil so callers can defer it unconditionally.
func ClosePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}
