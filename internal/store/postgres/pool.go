package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// DefaultApplicationName is reported to PostgreSQL in pg_stat_activity.
const DefaultApplicationName = "tradejournal"

// PoolConfig configures the pool shared by the user, session and audit stores.
// Zero values take the defaults noted on each field.
type PoolConfig struct {
	// ConnString is a postgres:// URL or key/value DSN.
	ConnString string

	// ApplicationName is sent unless ConnString sets application_name. Default: tradejournal
	ApplicationName string

	MaxConns int32 // Default: 10
	MinConns int32 // Default: 1

	MaxConnLifetime   time.Duration // Default: 1h
	MaxConnIdleTime   time.Duration // Default: 30m
	HealthCheckPeriod time.Duration // Default: 1m
	ConnectTimeout    time.Duration // Default: 10s
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.ApplicationName == "" {
		c.ApplicationName = DefaultApplicationName
	}
	if c.MaxConns <= 0 {
		c.MaxConns = 10
	}
	if c.MinConns <= 0 {
		c.MinConns = 1
	}
	c.MinConns = min(c.MinConns, c.MaxConns)
	if c.MaxConnLifetime <= 0 {
		c.MaxConnLifetime = time.Hour
	}
	if c.MaxConnIdleTime <= 0 {
		c.MaxConnIdleTime = 30 * time.Minute
	}
	if c.HealthCheckPeriod <= 0 {
		c.HealthCheckPeriod = time.Minute
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	return c
}

// pgxConfig parses the connection string and applies the pool settings.
func (c PoolConfig) pgxConfig() (*pgxpool.Config, error) {
	if c.ConnString == "" {
		return nil, errors.New("connection string is required")
	}
	c = c.withDefaults()

	cfg, err := pgxpool.ParseConfig(c.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	cfg.MaxConns = c.MaxConns
	cfg.MinConns = c.MinConns
	cfg.MaxConnLifetime = c.MaxConnLifetime
	cfg.MaxConnIdleTime = c.MaxConnIdleTime
	cfg.HealthCheckPeriod = c.HealthCheckPeriod
	cfg.ConnConfig.ConnectTimeout = c.ConnectTimeout
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = c.ApplicationName
	}

	return cfg, nil
}

// NewPool opens the pool and pings the server before returning it.
func NewPool(ctx context.Context, c PoolConfig) (*pgxpool.Pool, error) {
	cfg, err := c.pgxConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid pool config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.ConnConfig.Host).
		Str("database", cfg.ConnConfig.Database).
		Int32("max_conns", cfg.MaxConns).
		Msg("Connected to PostgreSQL")

	return pool, nil
}
