package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/kinpoint/kinpoint/internal/schema"
	"github.com/kinpoint/kinpoint/internal/secrets"
)

// ErrNotAuthenticated is returned by Sync when no valid session
// exists. No network call is made in that case.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrSyncInFlight is returned when a pass is already running.
// Concurrent passes are rejected, never queued.
var ErrSyncInFlight = errors.New("sync already in flight")

// engine implements the Engine interface.
type engine struct {
	remote  Remote
	local   Local
	secrets *secrets.Store
	nudger  Nudger
	logger  *log.Logger

	inFlight atomic.Bool

	// lastSyncedAt holds the watermark as Unix milliseconds.
	lastSyncedAt atomic.Int64
}

// New creates an Engine. The watermark is restored from the secret
// store; a missing or unparsable value reads as the epoch. nudger may
// be nil. If logger is nil, a default logger writing to stderr is used.
func New(remote Remote, local Local, store *secrets.Store, nudger Nudger, logger *log.Logger) Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}

	e := &engine{
		remote:  remote,
		local:   local,
		secrets: store,
		nudger:  nudger,
		logger:  logger,
	}
	e.lastSyncedAt.Store(loadWatermark(store).UnixMilli())
	return e
}

func loadWatermark(store *secrets.Store) time.Time {
	raw, ok := store.Get(secrets.KeyLastSyncedAt)
	if !ok {
		return time.Unix(0, 0)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Unix(0, 0)
	}
	return t
}

// LastSyncedAt implements Engine.LastSyncedAt.
func (e *engine) LastSyncedAt() time.Time {
	return time.UnixMilli(e.lastSyncedAt.Load()).UTC()
}

// Reset implements Engine.Reset.
func (e *engine) Reset() error {
	if err := e.secrets.Delete(secrets.KeyLastSyncedAt); err != nil {
		return fmt.Errorf("failed to clear watermark: %w", err)
	}
	e.lastSyncedAt.Store(0)
	e.logger.Printf("Watermark reset; next pass pulls full history")
	return nil
}

// Sync implements Engine.Sync.
func (e *engine) Sync(ctx context.Context) error {
	if !e.remote.IsSignedIn() {
		return ErrNotAuthenticated
	}

	if !e.inFlight.CompareAndSwap(false, true) {
		return ErrSyncInFlight
	}
	defer e.inFlight.Store(false)

	// Captured before anything else happens so the persisted watermark
	// is a strict lower bound on everything this pass observed.
	started := time.Now().UTC()

	// The nudge is best-effort: the periodic tracker is the
	// authoritative push path, this only freshens our own sample when
	// the user actively opens the app.
	if e.nudger != nil {
		e.nudger.Nudge(ctx)
	}

	after := e.LastSyncedAt()

	data, err := e.remote.GetSyncData(ctx, after)
	if err != nil {
		return fmt.Errorf("failed to pull sync data: %w", err)
	}

	if err := e.applyUsers(ctx, data.Users); err != nil {
		return err
	}
	if err := e.applyFamilies(ctx, data.Families); err != nil {
		return err
	}
	if err := e.local.InsertFamilyMembers(ctx, data.FamilyMembers); err != nil {
		return fmt.Errorf("failed to apply family members: %w", err)
	}
	if err := e.local.InsertLocations(ctx, data.Locations); err != nil {
		return fmt.Errorf("failed to apply locations: %w", err)
	}

	// The watermark advances to the pass start time, not the server's
	// clock, and only after every batch applied.
	if err := e.secrets.Set(secrets.KeyLastSyncedAt, started.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to persist watermark: %w", err)
	}
	e.lastSyncedAt.Store(started.UnixMilli())

	e.logger.Printf("Synced since %s: users=%d families=%d members=%d locations=%d",
		after.Format(time.RFC3339),
		len(data.Users), len(data.Families), len(data.FamilyMembers), len(data.Locations))
	return nil
}

// applyUsers partitions one response's users by the soft-delete flag
// and applies deletes before upserts. Both batches come from the same
// response, so any given id appears in exactly one of them; delete
// first is the conservative order if that ever stops holding.
func (e *engine) applyUsers(ctx context.Context, users []schema.RemoteUser) error {
	var deleted []string
	var updated []schema.User

	for _, u := range users {
		if u.IsDeleted {
			deleted = append(deleted, u.ID)
		} else {
			updated = append(updated, u.User)
		}
	}

	if err := e.local.DeleteUsers(ctx, deleted); err != nil {
		return fmt.Errorf("failed to delete users: %w", err)
	}
	if err := e.local.UpsertUsers(ctx, updated); err != nil {
		return fmt.Errorf("failed to upsert users: %w", err)
	}
	return nil
}

func (e *engine) applyFamilies(ctx context.Context, families []schema.RemoteFamily) error {
	var deleted []string
	var updated []schema.Family

	for _, f := range families {
		if f.IsDeleted {
			deleted = append(deleted, f.ID)
		} else {
			updated = append(updated, f.Family)
		}
	}

	if err := e.local.DeleteFamilies(ctx, deleted); err != nil {
		return fmt.Errorf("failed to delete families: %w", err)
	}
	if err := e.local.UpsertFamilies(ctx, updated); err != nil {
		return fmt.Errorf("failed to upsert families: %w", err)
	}
	return nil
}
