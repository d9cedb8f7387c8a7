// Package migrate applies ordered, idempotent schema upgrades to the
// local cache database.
//
// Each migration has a monotonically increasing version that is never
// reused. Applied versions are recorded in the schema_migrations table,
// so re-running the runner against an up-to-date database applies
// nothing. Each migration runs inside its own transaction together with
// the version record; a failure aborts the run and leaves earlier
// migrations in place.
package migrate

import (
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// Migration is a single schema upgrade step. Up must be safe to re-run
// against a database where its DDL partially applied (CREATE IF NOT
// EXISTS, DROP IF EXISTS); the version gate is the only thing that
// prevents double application.
type Migration struct {
	Version int
	Name    string
	Up      func(tx *sql.Tx) error
	// Down is defined for tooling only; it is never run in the normal
	// startup flow.
	Down func(tx *sql.Tx) error
}

// MigrationError reports a failed migration. Migration failures are
// fatal: the schema cannot proceed and the error surfaces to startup.
type MigrationError struct {
	Version int
	Name    string
	Err     error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %d (%s) failed: %v", e.Version, e.Name, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// registry holds all known migrations, kept sorted by version.
var registry []Migration

// Register adds a migration to the registry. Called from init in
// migrations.go; exported so tests can register throwaway migrations.
func Register(m Migration) {
	registry = append(registry, m)
	sort.Slice(registry, func(i, j int) bool {
		return registry[i].Version < registry[j].Version
	})
}

// Migrations returns the registered migrations in version order.
func Migrations() []Migration {
	out := make([]Migration, len(registry))
	copy(out, registry)
	return out
}

// Run applies all pending migrations to db in version order.
// It is safe to call on every startup.
func Run(db *sql.DB) error {
	return run(db, registry)
}

// run applies the given migrations; split out so tests can drive a
// private migration list.
func run(db *sql.DB, migrations []Migration) error {
	if err := ensureVersionTable(db); err != nil {
		return err
	}

	current, err := CurrentVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		if err := apply(db, m); err != nil {
			return err
		}
	}

	return nil
}

func apply(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return &MigrationError{Version: m.Version, Name: m.Name, Err: err}
	}
	defer tx.Rollback()

	if err := m.Up(tx); err != nil {
		return &MigrationError{Version: m.Version, Name: m.Name, Err: err}
	}

	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
		m.Version, m.Name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return &MigrationError{Version: m.Version, Name: m.Name, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &MigrationError{Version: m.Version, Name: m.Name, Err: err}
	}

	return nil
}

// Rollback reverts a single migration by version using its Down step.
// Intended for tooling; returns an error if the migration is unknown or
// has no Down step.
func Rollback(db *sql.DB, version int) error {
	var target *Migration
	for i := range registry {
		if registry[i].Version == version {
			target = &registry[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("unknown migration version %d", version)
	}
	if target.Down == nil {
		return fmt.Errorf("migration %d (%s) has no down step", version, target.Name)
	}

	tx, err := db.Begin()
	if err != nil {
		return &MigrationError{Version: version, Name: target.Name, Err: err}
	}
	defer tx.Rollback()

	if err := target.Down(tx); err != nil {
		return &MigrationError{Version: version, Name: target.Name, Err: err}
	}
	if _, err := tx.Exec("DELETE FROM schema_migrations WHERE version = ?", version); err != nil {
		return &MigrationError{Version: version, Name: target.Name, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &MigrationError{Version: version, Name: target.Name, Err: err}
	}

	return nil
}

// CurrentVersion returns the highest applied migration version, or 0
// for a fresh database.
func CurrentVersion(db *sql.DB) (int, error) {
	if err := ensureVersionTable(db); err != nil {
		return 0, err
	}

	var version sql.NullInt64
	err := db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

func ensureVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}
