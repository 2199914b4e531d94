package database

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Driver selects which backend Client opens: the pure-Go embedded
// default, or PostgreSQL for production multi-process deployments.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Config holds database connection configuration for either backend.
type Config struct {
	Driver Driver

	// SQLite
	Path string // file path, or "file::memory:?cache=shared" for ephemeral

	// Postgres
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN returns the connection string for cfg.Driver.
func (c Config) DSN() string {
	if c.Driver == DriverPostgres {
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
		)
	}
	return c.Path
}

// driverName returns the database/sql driver name registered for
// cfg.Driver (matching the blank import in client.go).
func (c Config) driverName() string {
	if c.Driver == DriverPostgres {
		return "pgx"
	}
	return "sqlite"
}

// LoadConfigFromEnv loads database configuration from environment
// variables. DB_DRIVER selects the backend ("sqlite" default,
// "postgres"); SQLite defaults to an embedded file, Postgres requires
// DB_PASSWORD.
func LoadConfigFromEnv() (Config, error) {
	driver := Driver(getEnvOrDefault("DB_DRIVER", string(DriverSQLite)))

	maxOpen, _ := strconv.Atoi(getEnvOrDefault("DB_MAX_OPEN_CONNS", "25"))
	maxIdle, _ := strconv.Atoi(getEnvOrDefault("DB_MAX_IDLE_CONNS", "10"))

	maxLifetime, err := time.ParseDuration(getEnvOrDefault("DB_CONN_MAX_LIFETIME", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}
	maxIdleTime, err := time.ParseDuration(getEnvOrDefault("DB_CONN_MAX_IDLE_TIME", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_IDLE_TIME: %w", err)
	}

	cfg := Config{
		Driver:          driver,
		Path:            getEnvOrDefault("DB_SQLITE_PATH", "swarmd.db"),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: maxLifetime,
		ConnMaxIdleTime: maxIdleTime,
	}

	if driver == DriverPostgres {
		port, err := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
		if err != nil {
			return Config{}, fmt.Errorf("invalid DB_PORT: %w", err)
		}
		cfg.Host = getEnvOrDefault("DB_HOST", "localhost")
		cfg.Port = port
		cfg.User = getEnvOrDefault("DB_USER", "swarmd")
		cfg.Password = os.Getenv("DB_PASSWORD")
		cfg.Database = getEnvOrDefault("DB_NAME", "swarmd")
		cfg.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg for the fields required by its Driver.
func (c Config) Validate() error {
	if c.Driver != DriverSQLite && c.Driver != DriverPostgres {
		return fmt.Errorf("unknown DB_DRIVER %q", c.Driver)
	}
	if c.Driver == DriverPostgres && c.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required for postgres")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("DB_MAX_IDLE_CONNS (%d) cannot exceed DB_MAX_OPEN_CONNS (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1")
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("DB_MAX_IDLE_CONNS cannot be negative")
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
