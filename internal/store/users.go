package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kinpoint/kinpoint/internal/schema"
)

// UpsertUsers inserts or updates users by id. Email and createdAt are
// immutable after first insert; only the mutable profile fields and
// updatedAt are overwritten on conflict.
func (s *Store) UpsertUsers(ctx context.Context, users []schema.User) error {
	if len(users) == 0 {
		return nil
	}

	query := `
	INSERT INTO users (id, email, firstName, lastName, avatar, createdAt, updatedAt)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		firstName = excluded.firstName,
		lastName = excluded.lastName,
		avatar = excluded.avatar,
		updatedAt = excluded.updatedAt
	`

	for _, u := range users {
		if err := u.Validate(); err != nil {
			return fmt.Errorf("invalid user: %w", err)
		}

		_, err := s.conn.ExecContext(ctx, query,
			u.ID,
			u.Email,
			u.FirstName,
			u.LastName,
			nullIfEmpty(u.Avatar),
			u.CreatedAt.Format(time.RFC3339),
			u.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert user %s: %w", u.ID, err)
		}
	}

	s.notify()
	return nil
}

// DeleteUsers removes users by id. Missing ids are ignored.
func (s *Store) DeleteUsers(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	for _, id := range ids {
		if _, err := s.conn.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete user %s: %w", id, err)
		}
	}

	s.notify()
	return nil
}

// GetUser retrieves a single user by id. Returns sql.ErrNoRows when
// the user is not cached locally.
func (s *Store) GetUser(ctx context.Context, id string) (*schema.User, error) {
	row := s.conn.QueryRowContext(ctx, `
	SELECT id, email, firstName, lastName, avatar, createdAt, updatedAt
	FROM users
	WHERE id = ?
	`, id)

	return scanUser(row)
}

// UpdateUser overwrites the mutable profile fields of a cached user.
// Empty fields keep their current value. Used to mirror a successful
// remote profile update without waiting for the next sync pass.
func (s *Store) UpdateUser(ctx context.Context, id string, firstName, lastName, avatar string) error {
	res, err := s.conn.ExecContext(ctx, `
	UPDATE users
	SET firstName = ifnull(nullif(?, ''), firstName),
		lastName = ifnull(nullif(?, ''), lastName),
		avatar = ifnull(nullif(?, ''), avatar),
		updatedAt = ?
	WHERE id = ?
	`, firstName, lastName, avatar, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", id, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	s.notify()
	return nil
}

// CountUsers returns the number of cached users.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// UserLocations returns the last-known position for every user with at
// least one cached location, most recent first.
func (s *Store) UserLocations(ctx context.Context) ([]schema.MemberLocation, error) {
	rows, err := s.conn.QueryContext(ctx, `
	WITH latest_locations AS (
		SELECT user, coordinates, MAX(createdAt) AS createdAt
		FROM locations
		GROUP BY user
	)
	SELECT u.id, u.firstName, u.lastName, ll.coordinates, ll.createdAt
	FROM latest_locations ll
	JOIN users u ON ll.user = u.id
	ORDER BY ll.createdAt DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query user locations: %w", err)
	}
	defer rows.Close()

	locations := []schema.MemberLocation{}
	for rows.Next() {
		var ml schema.MemberLocation
		var coords, recordedAt string

		if err := rows.Scan(&ml.UserID, &ml.FirstName, &ml.LastName, &coords, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user location: %w", err)
		}

		if err := json.Unmarshal([]byte(coords), &ml.Coordinates); err != nil {
			return nil, fmt.Errorf("failed to parse coordinates: %w", err)
		}
		ml.RecordedAt = parseTime(recordedAt)

		locations = append(locations, ml)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user locations: %w", err)
	}
	return locations, nil
}

func scanUser(row *sql.Row) (*schema.User, error) {
	var u schema.User
	var avatar sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &avatar, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	u.Avatar = avatar.String
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return &u, nil
}
