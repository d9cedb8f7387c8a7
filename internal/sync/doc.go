// Package sync reconciles the remote record store with the local cache
// database.
//
// Overview
//
// The engine pulls incremental remote changes since a persisted
// watermark, applies soft-delete/upsert reconciliation into the local
// cache, and advances the watermark only after the whole pass
// succeeds.
//
//	Remote (authoritative)
//	     └── GET /mobile/sync?after=<watermark>
//	                  ↓
//	               Engine
//	                  ↓
//	           Local cache (SQLite)
//	                  ↓
//	           Live queries → UI
//
// One pass
//
//	1. Fail fast unless a valid session exists.
//	2. Best-effort foreground location nudge (failures swallowed).
//	3. Pull the delta since the watermark.
//	4. Users: delete soft-deleted ids, then upsert the rest.
//	5. Families: same partition, delete then upsert.
//	6. FamilyMembers and Locations: append, ignoring duplicate ids.
//	7. Persist watermark = pass start time.
//
// Any failure in steps 3-6 aborts the pass without touching the
// watermark, so the next attempt re-pulls the same window. The pull is
// idempotent by construction: soft-delete partitioning plus
// upsert/ignore-on-conflict make replays safe.
//
// Concurrency
//
// At most one pass is in flight at a time. A concurrent Sync call is
// rejected with ErrSyncInFlight rather than queued; callers simply wait
// for the next scheduled trigger.
package sync
