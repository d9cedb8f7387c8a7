package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kinpoint/kinpoint/internal/schema"
)

// InsertLocations appends location samples. Locations are append-only
// and immutable, so duplicate ids from a re-delivered record are
// ignored rather than erroring.
func (s *Store) InsertLocations(ctx context.Context, locations []schema.Location) error {
	if len(locations) == 0 {
		return nil
	}

	query := `
	INSERT INTO locations (id, user, coordinates, createdAt)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (id) DO NOTHING
	`

	for _, l := range locations {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("invalid location: %w", err)
		}

		coords, err := json.Marshal(l.Coordinates)
		if err != nil {
			return fmt.Errorf("failed to marshal coordinates: %w", err)
		}

		_, err = s.conn.ExecContext(ctx, query,
			l.ID,
			l.User,
			string(coords),
			l.CreatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to insert location %s: %w", l.ID, err)
		}
	}

	s.notify()
	return nil
}

// CountLocations returns the number of cached location samples.
func (s *Store) CountLocations(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM locations").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count locations: %w", err)
	}
	return count, nil
}

// LatestLocation returns the most recent cached sample for a user, or
// nil when none exists.
func (s *Store) LatestLocation(ctx context.Context, userID string) (*schema.Location, error) {
	row := s.conn.QueryRowContext(ctx, `
	SELECT id, user, coordinates, createdAt
	FROM locations
	WHERE user = ?
	ORDER BY createdAt DESC
	LIMIT 1
	`, userID)

	var l schema.Location
	var coords, createdAt string

	err := row.Scan(&l.ID, &l.User, &coords, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest location: %w", err)
	}

	if err := json.Unmarshal([]byte(coords), &l.Coordinates); err != nil {
		return nil, fmt.Errorf("failed to parse coordinates: %w", err)
	}
	l.CreatedAt = parseTime(createdAt)
	return &l, nil
}
