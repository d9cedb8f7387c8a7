// Package store provides the embedded SQLite cache that mirrors a
// subset of remote state for offline viewing.
//
// The database is opened once per process lifetime in WAL mode. Rows in
// the users and families tables are a subset view of remote truth: any
// row present locally existed remotely as of the last successful sync,
// and rows marked deleted remotely are hard-deleted here. The
// familyMembers and locations tables are append-only.
//
// Every mutation fires a broad change notification consumed by the
// livequery package. There is no per-table dependency tracking; the
// per-device dataset is small enough that re-running every mounted
// query is cheap.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/kinpoint/kinpoint/internal/store/migrate"
)

// Store wraps the local cache database connection.
type Store struct {
	conn *sql.DB
	path string

	mu      sync.Mutex
	nextSub int
	subs    map[int]chan struct{}
}

// Open creates the cache database at path, applying pragmas for WAL
// mode and foreign keys. The caller must Close when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{
		conn: conn,
		path: path,
		subs: make(map[int]chan struct{}),
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := s.conn.Exec(pragma); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return s, nil
}

// Migrate applies pending schema migrations. Called once at startup;
// a failure here is fatal to the app.
func (s *Store) Migrate() error {
	return migrate.Run(s.conn)
}

// RawDB returns the underlying sql.DB connection.
func (s *Store) RawDB() *sql.DB {
	return s.conn
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}

// Subscribe returns a channel that receives a signal after every
// mutation, plus a cancel func that releases the subscription. The
// channel is buffered with one slot; coalesced notifications are fine
// because subscribers re-run whole queries.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++

	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
	return ch, cancel
}

// notify signals every subscriber that the database changed.
func (s *Store) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Size returns the database file size in bytes as reported by SQLite.
func (s *Store) Size() (int64, error) {
	var size int64
	err := s.conn.QueryRow(`
	SELECT page_count * page_size
	FROM pragma_page_count(), pragma_page_size()
	`).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("failed to get database size: %w", err)
	}
	return size, nil
}

// Purge deletes every row from every mirrored table in one
// transaction. Child tables go first so foreign keys never trip.
func (s *Store) Purge() error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin purge: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"locations", "familyMembers", "families", "users"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to purge %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit purge: %w", err)
	}

	s.notify()
	return nil
}

// nullIfEmpty converts an optional string to a nullable SQL value.
func nullIfEmpty(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
