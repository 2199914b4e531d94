// Package database bootstraps the SQL-backed persistence layer: a pure-Go
// SQLite connection by default, or PostgreSQL for production multi-process
// deployments, with golang-migrate applying embedded migrations on
// startup. Client is the shared *sql.DB handle behind the repository
// implementations in task_repository.go, spend_store.go, and
// consensus_store.go.
package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver
	_ "modernc.org/sqlite"             // registers "sqlite" driver
)

// Client wraps the shared database connection pool.
type Client struct {
	db     *sql.DB
	driver Driver
}

// DB returns the underlying connection pool, for health checks and
// direct queries.
func (c *Client) DB() *sql.DB { return c.db }

// Close releases the underlying connection pool.
func (c *Client) Close() error { return c.db.Close() }

// NewClient opens cfg's backend, configures the connection pool, and
// applies pending migrations.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	db, err := sql.Open(cfg.driverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db, cfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Client{db: db, driver: cfg.Driver}, nil
}

// NewClientFromDB wraps an already-open *sql.DB, for tests.
func NewClientFromDB(db *sql.DB, driver Driver) *Client {
	return &Client{db: db, driver: driver}
}
