package sync

import (
	"context"
	"time"

	"github.com/kinpoint/kinpoint/internal/schema"
)

// Engine drives sync passes and owns the watermark.
//
// The engine is constructed once at process start and shared; it is
// safe to call Sync from multiple goroutines, but only one pass runs at
// a time.
type Engine interface {
	// Sync runs one pass: pull the delta since the watermark, apply
	// it to the local cache, advance the watermark.
	//
	// Returns ErrNotAuthenticated without any network call when no
	// valid session exists, and ErrSyncInFlight when another pass is
	// already running. Any other error means the pass aborted and the
	// watermark was left untouched.
	Sync(ctx context.Context) error

	// Reset rewinds the watermark to the epoch and clears its
	// persisted value, forcing the next pass to re-pull full history.
	Reset() error

	// LastSyncedAt returns the current watermark. The zero watermark
	// is the Unix epoch.
	LastSyncedAt() time.Time
}

// Remote is the slice of the API client the engine pulls from.
type Remote interface {
	IsSignedIn() bool
	GetSyncData(ctx context.Context, after time.Time) (*schema.SyncData, error)
}

// Local is the slice of the cache store the engine applies deltas to.
type Local interface {
	UpsertUsers(ctx context.Context, users []schema.User) error
	DeleteUsers(ctx context.Context, ids []string) error
	UpsertFamilies(ctx context.Context, families []schema.Family) error
	DeleteFamilies(ctx context.Context, ids []string) error
	InsertFamilyMembers(ctx context.Context, members []schema.FamilyMember) error
	InsertLocations(ctx context.Context, locations []schema.Location) error
}

// Nudger pushes one fresh location sample at the start of a pass. It
// exists only as a foreground freshness nudge; the periodic tracker is
// the authoritative push path, so a nil Nudger is fine.
type Nudger interface {
	Nudge(ctx context.Context)
}
