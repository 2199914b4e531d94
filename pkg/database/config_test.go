package database

import (
	"os"
	"testing"
)

func clearDBEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DB_DRIVER", "DB_SQLITE_PATH", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
		"DB_CONN_MAX_LIFETIME", "DB_CONN_MAX_IDLE_TIME", "DB_HOST", "DB_PORT",
		"DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	} {
		os.Unsetenv(k)
	}
}

func TestLoadConfigFromEnv_DefaultsToSQLite(t *testing.T) {
	clearDBEnv(t)
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.Driver != DriverSQLite {
		t.Fatalf("Driver = %q, want sqlite", cfg.Driver)
	}
	if cfg.Path != "swarmd.db" {
		t.Fatalf("Path = %q", cfg.Path)
	}
	if cfg.driverName() != "sqlite" {
		t.Fatalf("driverName() = %q", cfg.driverName())
	}
}

func TestLoadConfigFromEnv_PostgresRequiresPassword(t *testing.T) {
	clearDBEnv(t)
	os.Setenv("DB_DRIVER", "postgres")
	defer clearDBEnv(t)

	if _, err := LoadConfigFromEnv(); err == nil {
		t.Fatal("expected error for missing DB_PASSWORD")
	}

	os.Setenv("DB_PASSWORD", "secret")
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.driverName() != "pgx" {
		t.Fatalf("driverName() = %q, want pgx", cfg.driverName())
	}
	if cfg.DSN() == "" {
		t.Fatal("expected non-empty Postgres DSN")
	}
}

func TestConfig_Validate_RejectsIdleExceedingOpen(t *testing.T) {
	cfg := Config{Driver: DriverSQLite, MaxOpenConns: 1, MaxIdleConns: 5}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when MaxIdleConns exceeds MaxOpenConns")
	}
}

func TestConfig_Validate_RejectsUnknownDriver(t *testing.T) {
	cfg := Config{Driver: "mysql", MaxOpenConns: 1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
