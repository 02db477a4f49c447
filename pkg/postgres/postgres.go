// Package postgres opens pooled PostgreSQL connections through the pgx driver,
// applies schema migrations and classifies driver errors.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const driverName = "pgx"

// PoolConfig holds the connection pool settings. Zero values fall back to DefaultPoolConfig.
type PoolConfig struct {
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	MaxIdleConns    int
	MaxOpenConns    int
}

// DefaultPoolConfig is applied to every field left unset in PoolConfig.
var DefaultPoolConfig = PoolConfig{
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.ConnMaxIdleTime <= 0 {
		c.ConnMaxIdleTime = DefaultPoolConfig.ConnMaxIdleTime
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = DefaultPoolConfig.ConnMaxLifetime
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = DefaultPoolConfig.MaxIdleConns
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = DefaultPoolConfig.MaxOpenConns
	}
	return c
}

// New connects to the database identified by dsn and configures its pool.
func New(ctx context.Context, dsn string, pool PoolConfig) (*sqlx.DB, error) {
	const op = "postgres.New"

	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	pool = pool.withDefaults()

	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetMaxOpenConns(pool.MaxOpenConns)

	return db, nil
}
