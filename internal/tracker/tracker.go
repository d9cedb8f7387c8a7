// Package tracker captures the device's position in the background and
// pushes it to the remote store.
//
// The tracker:
// 1. Requests foreground then background location permission, failing
//    closed if either is denied
// 2. Watches the platform location stream and pushes the newest sample
//    of each delivered batch
// 3. Watches the secret-store file and stops itself when the session
//    token disappears (sign-out from another process)
// 4. Handles graceful shutdown
//
// Pushes are fire-and-forget: a failed push is logged and discarded,
// never queued or retried. The next cadence tick carries a fresher
// position anyway.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kinpoint/kinpoint/internal/schema"
	"github.com/kinpoint/kinpoint/internal/secrets"
)

// ErrPermissionDenied is returned by StartBackground when the user
// declines a location permission.
var ErrPermissionDenied = errors.New("location permission denied")

// Pusher is the remote-side surface the tracker pushes samples to.
type Pusher interface {
	CreateLocation(ctx context.Context, lat, lon float64) (*schema.Location, error)
}

// Config holds configuration for the tracker.
type Config struct {
	// Interval is the background capture cadence.
	Interval time.Duration

	// Distance is the minimum movement in meters between samples.
	Distance float64

	// Accuracy is the fix quality for the background session.
	Accuracy Accuracy

	// Logger for tracker activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Interval: 15 * time.Minute,
		Distance: 500,
		Accuracy: AccuracyBalanced,
		Logger:   log.New(os.Stderr, "[tracker] ", log.LstdFlags),
	}
}

// Tracker runs the background location capture loop.
type Tracker struct {
	provider Provider
	pusher   Pusher
	secrets  *secrets.Store
	config   *Config

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Tracker. If config is nil, defaults are used.
func New(provider Provider, pusher Pusher, store *secrets.Store, config *Config) (*Tracker, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	if pusher == nil {
		return nil, fmt.Errorf("pusher cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("secrets store cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[tracker] ", log.LstdFlags)
	}

	return &Tracker{
		provider: provider,
		pusher:   pusher,
		secrets:  store,
		config:   config,
	}, nil
}

// Active reports whether the background loop is running.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// StartBackground begins background capture. Both permissions must be
// granted or nothing starts. Calling while already active is a no-op.
func (t *Tracker) StartBackground(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active {
		return nil
	}

	granted, err := t.provider.RequestForegroundPermission(ctx)
	if err != nil {
		return fmt.Errorf("failed to request foreground permission: %w", err)
	}
	if !granted {
		return ErrPermissionDenied
	}

	granted, err = t.provider.RequestBackgroundPermission(ctx)
	if err != nil {
		return fmt.Errorf("failed to request background permission: %w", err)
	}
	if !granted {
		return ErrPermissionDenied
	}

	runCtx, cancel := context.WithCancel(context.Background())

	samples, err := t.provider.Watch(runCtx, WatchOptions{
		Interval: t.config.Interval,
		Distance: t.config.Distance,
		Accuracy: t.config.Accuracy,
	})
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start location watch: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// The secret store replaces its file by rename, so a watch on the
	// file itself would be dropped after the first write. Watch the
	// directory and filter.
	if err := watcher.Add(filepath.Dir(t.secrets.Path())); err != nil {
		watcher.Close()
		cancel()
		return fmt.Errorf("failed to watch secrets directory: %w", err)
	}

	if err := t.secrets.Set(secrets.KeyTrackingActive, "true"); err != nil {
		watcher.Close()
		cancel()
		return fmt.Errorf("failed to persist tracking state: %w", err)
	}

	t.cancel = cancel
	t.active = true

	t.wg.Add(2)
	go t.pushLoop(runCtx, samples)
	go t.watchSignOut(runCtx, watcher)

	t.config.Logger.Printf("Background tracking started (interval=%s distance=%.0fm)",
		t.config.Interval, t.config.Distance)
	return nil
}

// StopBackground stops the capture loop and clears the persisted
// tracking flag. Calling while inactive is a no-op.
func (t *Tracker) StopBackground() error {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return nil
	}
	t.active = false
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	cancel()
	t.wg.Wait()

	if err := t.secrets.Delete(secrets.KeyTrackingActive); err != nil {
		return fmt.Errorf("failed to clear tracking state: %w", err)
	}

	t.config.Logger.Println("Background tracking stopped")
	return nil
}

// Nudge obtains one cheap fix and pushes it. Every failure, including a
// denied permission, is swallowed: a nudge must never fail the caller.
func (t *Tracker) Nudge(ctx context.Context) {
	granted, err := t.provider.RequestForegroundPermission(ctx)
	if err != nil || !granted {
		t.config.Logger.Println("Nudge skipped: no foreground permission")
		return
	}

	sample, err := t.provider.Current(ctx, AccuracyLowest)
	if err != nil {
		t.config.Logger.Printf("Nudge skipped: %v", err)
		return
	}

	t.push(ctx, sample)
}

// pushLoop consumes sample batches until the session ends.
func (t *Tracker) pushLoop(ctx context.Context, samples <-chan []Sample) {
	defer t.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case batch, ok := <-samples:
			if !ok {
				return
			}
			if len(batch) == 0 {
				continue
			}

			// Only the newest sample matters; a queued backlog of
			// stale positions has nothing to add.
			newest := batch[0]
			for _, s := range batch[1:] {
				if s.RecordedAt.After(newest.RecordedAt) {
					newest = s
				}
			}

			// Re-check auth from durable storage: another process may
			// have signed out since the batch was queued.
			if _, ok := t.secrets.Get(secrets.KeySessionToken); !ok {
				t.config.Logger.Println("Skipping push: no session")
				continue
			}

			t.push(ctx, newest)
		}
	}
}

// push sends one sample to the remote. Failures are logged and dropped.
func (t *Tracker) push(ctx context.Context, sample Sample) {
	_, err := t.pusher.CreateLocation(ctx, sample.Coordinates.Lat, sample.Coordinates.Lon)
	if err != nil {
		t.config.Logger.Printf("Failed to push location: %v", err)
		return
	}
	t.config.Logger.Printf("Pushed location (%.5f, %.5f)",
		sample.Coordinates.Lat, sample.Coordinates.Lon)
}

// watchSignOut stops the tracker when the session token disappears from
// the secret store.
func (t *Tracker) watchSignOut(ctx context.Context, watcher *fsnotify.Watcher) {
	defer t.wg.Done()
	defer watcher.Close()

	file := filepath.Base(t.secrets.Path())

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != file {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			if _, ok := t.secrets.Get(secrets.KeySessionToken); !ok {
				t.config.Logger.Println("Session token removed, stopping tracker")
				// StopBackground waits for this goroutine, so it must
				// run outside it.
				go t.StopBackground()
				return
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			t.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}
