package remote

import (
	"context"
	"net/http"

	"github.com/kinpoint/kinpoint/internal/schema"
)

// CreateLocation pushes one position sample for the signed-in user.
// The created row is remote-authoritative: it only enters the local
// cache once a later sync pass pulls it back down.
func (c *Client) CreateLocation(ctx context.Context, lat, lon float64) (*schema.Location, error) {
	user, err := c.UserID()
	if err != nil {
		return nil, err
	}

	var created schema.Location
	err = c.send(ctx, http.MethodPost, "/api/collections/locations/records", nil, map[string]any{
		"user": user,
		"coordinates": schema.Coordinates{
			Lat: lat,
			Lon: lon,
		},
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}
