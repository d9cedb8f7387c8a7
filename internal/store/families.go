package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kinpoint/kinpoint/internal/schema"
)

// InsertFamily mirrors a newly created family into the cache right
// after the remote create succeeds, so the family list never shows a
// transient gap before the next sync pass. The next pass reconciles it
// idempotently through the usual upsert.
func (s *Store) InsertFamily(ctx context.Context, f schema.Family) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("invalid family: %w", err)
	}

	_, err := s.conn.ExecContext(ctx, `
	INSERT INTO families (id, name, createdBy, createdAt, updatedAt)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (id) DO NOTHING
	`,
		f.ID,
		f.Name,
		nullIfEmpty(f.CreatedBy),
		f.CreatedAt.Format(time.RFC3339),
		f.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert family %s: %w", f.ID, err)
	}

	s.notify()
	return nil
}

// UpsertFamilies inserts or updates families by id. Name, createdBy
// and updatedAt are the only fields overwritten on conflict.
func (s *Store) UpsertFamilies(ctx context.Context, families []schema.Family) error {
	if len(families) == 0 {
		return nil
	}

	query := `
	INSERT INTO families (id, name, createdBy, createdAt, updatedAt)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		name = excluded.name,
		createdBy = excluded.createdBy,
		updatedAt = excluded.updatedAt
	`

	for _, f := range families {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("invalid family: %w", err)
		}

		_, err := s.conn.ExecContext(ctx, query,
			f.ID,
			f.Name,
			nullIfEmpty(f.CreatedBy),
			f.CreatedAt.Format(time.RFC3339),
			f.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert family %s: %w", f.ID, err)
		}
	}

	s.notify()
	return nil
}

// DeleteFamilies removes families by id. Member rows cascade.
func (s *Store) DeleteFamilies(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	for _, id := range ids {
		if _, err := s.conn.ExecContext(ctx, "DELETE FROM families WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete family %s: %w", id, err)
		}
	}

	s.notify()
	return nil
}

// Families returns every cached family.
func (s *Store) Families(ctx context.Context) ([]schema.Family, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, name, createdBy, createdAt, updatedAt
	FROM families
	ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	families := []schema.Family{}
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, err
		}
		families = append(families, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating families: %w", err)
	}
	return families, nil
}

// GetFamily retrieves a single family by id. Returns sql.ErrNoRows
// when the family is not cached locally.
func (s *Store) GetFamily(ctx context.Context, id string) (*schema.Family, error) {
	row := s.conn.QueryRowContext(ctx, `
	SELECT id, name, createdBy, createdAt, updatedAt
	FROM families
	WHERE id = ?
	`, id)

	var f schema.Family
	var createdBy sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&f.ID, &f.Name, &createdBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	f.CreatedBy = createdBy.String
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return &f, nil
}

// FamilyMemberUser is a member of a family joined with their profile.
// JoinedAt comes from the membership row's createdAt.
type FamilyMemberUser struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Avatar    string
	JoinedAt  time.Time
}

// FamilyMembers returns the members of a family with their join time.
func (s *Store) FamilyMembers(ctx context.Context, familyID string) ([]FamilyMemberUser, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT u.id, u.email, u.firstName, u.lastName, u.avatar, fm.createdAt
	FROM families f
	JOIN familyMembers fm ON f.id = fm.family
	JOIN users u ON fm.user = u.id
	WHERE f.id = ?
	ORDER BY fm.createdAt ASC
	`, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	members := []FamilyMemberUser{}
	for rows.Next() {
		var m FamilyMemberUser
		var avatar sql.NullString
		var joinedAt string

		if err := rows.Scan(&m.ID, &m.Email, &m.FirstName, &m.LastName, &avatar, &joinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}

		m.Avatar = avatar.String
		m.JoinedAt = parseTime(joinedAt)
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating family members: %w", err)
	}
	return members, nil
}

func scanFamily(rows *sql.Rows) (schema.Family, error) {
	var f schema.Family
	var createdBy sql.NullString
	var createdAt, updatedAt string

	if err := rows.Scan(&f.ID, &f.Name, &createdBy, &createdAt, &updatedAt); err != nil {
		return schema.Family{}, fmt.Errorf("failed to scan family: %w", err)
	}

	f.CreatedBy = createdBy.String
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return f, nil
}
