// Package secrets provides a durable string key-value store for small
// device secrets: the API host, the session token, the sync watermark.
//
// Values are persisted as a JSON object in a single file and survive
// process restarts. Writes are atomic (temp file + rename) so a crash
// mid-write never leaves a torn store behind.
package secrets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Well-known keys used across the app.
const (
	KeyAPIURL         = "API_URL"
	KeySessionToken   = "SESSION_TOKEN"
	KeyMyUserID       = "MY_USER_ID"
	KeyLastSyncedAt   = "LAST_SYNCED_AT"
	KeySelectedFamily = "SELECTED_FAMILY"
	KeyTrackingActive = "TRACKING_ACTIVE"
)

// Store is a file-backed secret store. Safe for concurrent use within
// one process. Cross-process access is expected to be sequential, never
// overlapping.
type Store struct {
	mu   sync.Mutex
	path string
}

// Open returns a store backed by the file at path. The file is created
// lazily on the first Set; a missing file reads as an empty store.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create secrets directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the location of the backing file. The tracker daemon
// watches this file to observe sign-out from another process.
func (s *Store) Path() string {
	return s.path
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false
	}
	v, ok := values[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Delete removes key from the store. Deleting a missing key is a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

func (s *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}

	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse secrets file: %w", err)
	}
	return values, nil
}

func (s *Store) save(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace secrets file: %w", err)
	}
	return nil
}
