package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kinpoint/kinpoint/internal/schema"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(); err != nil {
		t.Fatalf("failed to migrate test store: %v", err)
	}
	return s
}

func testUser(id, email string) schema.User {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return schema.User{
		ID:        id,
		Email:     email,
		FirstName: "ann",
		LastName:  "lee",
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestUpsertUsersInsertAndUpdate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := testUser("u1", "a@x.com")
	if err := s.UpsertUsers(ctx, []schema.User{u}); err != nil {
		t.Fatalf("UpsertUsers failed: %v", err)
	}

	// Re-upsert with changed profile fields and changed email. Email
	// and createdAt must stay as first inserted.
	changed := u
	changed.FirstName = "anne"
	changed.Email = "changed@x.com"
	changed.UpdatedAt = u.UpdatedAt.Add(time.Hour)
	if err := s.UpsertUsers(ctx, []schema.User{changed}); err != nil {
		t.Fatalf("second UpsertUsers failed: %v", err)
	}

	got, err := s.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.FirstName != "anne" {
		t.Errorf("expected firstName anne, got %q", got.FirstName)
	}
	if got.Email != "a@x.com" {
		t.Errorf("email must be immutable, got %q", got.Email)
	}
	if !got.CreatedAt.Equal(u.CreatedAt) {
		t.Errorf("createdAt must be immutable, got %v", got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(changed.UpdatedAt) {
		t.Errorf("expected updatedAt to advance, got %v", got.UpdatedAt)
	}
}

func TestDeleteUsers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.UpsertUsers(ctx, []schema.User{testUser("u1", "a@x.com"), testUser("u2", "b@x.com")}); err != nil {
		t.Fatalf("UpsertUsers failed: %v", err)
	}

	if err := s.DeleteUsers(ctx, []string{"u1", "missing"}); err != nil {
		t.Fatalf("DeleteUsers failed: %v", err)
	}

	if _, err := s.GetUser(ctx, "u1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected u1 gone, got %v", err)
	}
	if _, err := s.GetUser(ctx, "u2"); err != nil {
		t.Errorf("expected u2 to survive: %v", err)
	}
}

func TestInsertFamilyMembersIgnoresDuplicates(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.UpsertUsers(ctx, []schema.User{testUser("u1", "a@x.com")}); err != nil {
		t.Fatalf("UpsertUsers failed: %v", err)
	}
	if err := s.UpsertFamilies(ctx, []schema.Family{{
		ID: "f1", Name: "lees", CreatedBy: "u1",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}}); err != nil {
		t.Fatalf("UpsertFamilies failed: %v", err)
	}

	member := schema.FamilyMember{ID: "fm1", User: "u1", Family: "f1", CreatedAt: time.Now()}
	if err := s.InsertFamilyMembers(ctx, []schema.FamilyMember{member}); err != nil {
		t.Fatalf("InsertFamilyMembers failed: %v", err)
	}
	if err := s.InsertFamilyMembers(ctx, []schema.FamilyMember{member}); err != nil {
		t.Fatalf("re-delivered member must not error: %v", err)
	}

	count, err := s.CountFamilyMembers(ctx)
	if err != nil {
		t.Fatalf("CountFamilyMembers failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 member, got %d", count)
	}
}

func TestInsertLocationsIgnoresDuplicates(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.UpsertUsers(ctx, []schema.User{testUser("u1", "a@x.com")}); err != nil {
		t.Fatalf("UpsertUsers failed: %v", err)
	}

	loc := schema.Location{
		ID:          "l1",
		User:        "u1",
		Coordinates: schema.Coordinates{Lat: 40.0, Lon: -111.9},
		CreatedAt:   time.Now(),
	}
	if err := s.InsertLocations(ctx, []schema.Location{loc}); err != nil {
		t.Fatalf("InsertLocations failed: %v", err)
	}
	if err := s.InsertLocations(ctx, []schema.Location{loc}); err != nil {
		t.Fatalf("re-delivered location must not error: %v", err)
	}

	count, err := s.CountLocations(ctx)
	if err != nil {
		t.Fatalf("CountLocations failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 location, got %d", count)
	}
}

func TestUserLocationsReturnsLatestPerUser(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.UpsertUsers(ctx, []schema.User{testUser("u1", "a@x.com"), testUser("u2", "b@x.com")}); err != nil {
		t.Fatalf("UpsertUsers failed: %v", err)
	}

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	locs := []schema.Location{
		{ID: "l1", User: "u1", Coordinates: schema.Coordinates{Lat: 1, Lon: 1}, CreatedAt: base},
		{ID: "l2", User: "u1", Coordinates: schema.Coordinates{Lat: 2, Lon: 2}, CreatedAt: base.Add(time.Hour)},
		{ID: "l3", User: "u2", Coordinates: schema.Coordinates{Lat: 3, Lon: 3}, CreatedAt: base.Add(30 * time.Minute)},
	}
	if err := s.InsertLocations(ctx, locs); err != nil {
		t.Fatalf("InsertLocations failed: %v", err)
	}

	got, err := s.UserLocations(ctx)
	if err != nil {
		t.Fatalf("UserLocations failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}

	// Most recent first: u1's second sample, then u2's only sample.
	if got[0].UserID != "u1" || got[0].Coordinates.Lat != 2 {
		t.Errorf("expected u1 latest sample first, got %+v", got[0])
	}
	if got[1].UserID != "u2" {
		t.Errorf("expected u2 second, got %+v", got[1])
	}
}

func TestFamilyMembersJoin(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	joined := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := s.UpsertUsers(ctx, []schema.User{testUser("u1", "a@x.com")}); err != nil {
		t.Fatalf("UpsertUsers failed: %v", err)
	}
	if err := s.UpsertFamilies(ctx, []schema.Family{{
		ID: "f1", Name: "lees", CreatedBy: "u1",
		CreatedAt: joined, UpdatedAt: joined,
	}}); err != nil {
		t.Fatalf("UpsertFamilies failed: %v", err)
	}
	if err := s.InsertFamilyMember(ctx, schema.FamilyMember{
		ID: "fm1", User: "u1", Family: "f1", CreatedAt: joined,
	}); err != nil {
		t.Fatalf("InsertFamilyMember failed: %v", err)
	}

	members, err := s.FamilyMembers(ctx, "f1")
	if err != nil {
		t.Fatalf("FamilyMembers failed: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(members))
	}
	if members[0].ID != "u1" || !members[0].JoinedAt.Equal(joined) {
		t.Errorf("unexpected member row: %+v", members[0])
	}
}

func TestPurgeClearsEverything(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.UpsertUsers(ctx, []schema.User{testUser("u1", "a@x.com")}); err != nil {
		t.Fatalf("UpsertUsers failed: %v", err)
	}
	if err := s.UpsertFamilies(ctx, []schema.Family{{
		ID: "f1", Name: "lees", CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}}); err != nil {
		t.Fatalf("UpsertFamilies failed: %v", err)
	}
	if err := s.InsertFamilyMember(ctx, schema.FamilyMember{
		ID: "fm1", User: "u1", Family: "f1", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("InsertFamilyMember failed: %v", err)
	}
	if err := s.InsertLocations(ctx, []schema.Location{{
		ID: "l1", User: "u1", CreatedAt: time.Now(),
	}}); err != nil {
		t.Fatalf("InsertLocations failed: %v", err)
	}

	if err := s.Purge(); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}

	users, _ := s.CountUsers(ctx)
	members, _ := s.CountFamilyMembers(ctx)
	locations, _ := s.CountLocations(ctx)
	families, err := s.Families(ctx)
	if err != nil {
		t.Fatalf("Families failed: %v", err)
	}
	if users != 0 || members != 0 || locations != 0 || len(families) != 0 {
		t.Errorf("expected empty store after purge: users=%d members=%d locations=%d families=%d",
			users, members, locations, len(families))
	}
}

func TestSubscribeReceivesChangeNotification(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ch, cancel := s.Subscribe()
	defer cancel()

	if err := s.UpsertUsers(ctx, []schema.User{testUser("u1", "a@x.com")}); err != nil {
		t.Fatalf("UpsertUsers failed: %v", err)
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Error("expected a change notification after a mutation")
	}
}

func TestSize(t *testing.T) {
	s := setupTestStore(t)

	size, err := s.Size()
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size <= 0 {
		t.Errorf("expected positive database size, got %d", size)
	}
}
