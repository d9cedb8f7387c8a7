package store

import (
	"context"
	"fmt"
	"time"

	"github.com/kinpoint/kinpoint/internal/schema"
)

// InsertFamilyMembers appends membership rows. Memberships are
// immutable once created, so a re-delivered record hits the primary key
// and is ignored rather than erroring.
func (s *Store) InsertFamilyMembers(ctx context.Context, members []schema.FamilyMember) error {
	if len(members) == 0 {
		return nil
	}

	query := `
	INSERT INTO familyMembers (id, user, family, createdAt)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (id) DO NOTHING
	`

	for _, m := range members {
		if m.ID == "" {
			return fmt.Errorf("invalid family member: id is required")
		}

		_, err := s.conn.ExecContext(ctx, query,
			m.ID,
			m.User,
			m.Family,
			m.CreatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to insert family member %s: %w", m.ID, err)
		}
	}

	s.notify()
	return nil
}

// InsertFamilyMember appends a single membership row; used to mirror
// the membership returned by a remote family create.
func (s *Store) InsertFamilyMember(ctx context.Context, m schema.FamilyMember) error {
	return s.InsertFamilyMembers(ctx, []schema.FamilyMember{m})
}

// CountFamilyMembers returns the number of cached membership rows.
func (s *Store) CountFamilyMembers(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM familyMembers").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count family members: %w", err)
	}
	return count, nil
}
