package database

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres migrations/sqlite
var migrationsFS embed.FS

// runMigrations applies every pending migration for cfg.Driver.
// Postgres uses golang-migrate's postgres driver directly against the
// already-open *sql.DB. SQLite uses a minimal hand-rolled runner
// instead of golang-migrate's sqlite3 driver package, because that
// package type-asserts its connection to *mattn/go-sqlite3.SQLiteConn
// — a cgo driver this module does not depend on (modernc.org/sqlite is
// pure Go) — so wiring it would pull in an unrelated cgo dependency
// just to reach the same embedded .up.sql files applySQLiteMigrations
// already runs directly.
func runMigrations(db *sql.DB, cfg Config) error {
	if cfg.Driver == DriverPostgres {
		return runPostgresMigrations(db, cfg)
	}
	return applySQLiteMigrations(db)
}

func runPostgresMigrations(db *sql.DB, cfg Config) error {
	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	defer sourceDriver.Close()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, string(cfg.Driver), dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

const sqliteMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TEXT NOT NULL DEFAULT (datetime('now'))
)`

// applySQLiteMigrations runs every migrations/sqlite/*.up.sql file not
// yet recorded in schema_migrations, in filename order, each in its own
// transaction.
func applySQLiteMigrations(db *sql.DB) error {
	if _, err := db.Exec(sqliteMigrationsTable); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations/sqlite")
	if err != nil {
		return fmt.Errorf("failed to read embedded sqlite migrations: %w", err)
	}

	var versions []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			versions = append(versions, e.Name())
		}
	}
	sort.Strings(versions)

	for _, name := range versions {
		version := strings.TrimSuffix(name, ".up.sql")

		var exists int
		err := db.QueryRow(`SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration %s: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		contents, err := migrationsFS.ReadFile(path.Join("migrations/sqlite", name))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %s: %w", version, err)
		}
		if _, err := tx.Exec(string(contents)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", version, err)
		}
	}
	return nil
}
