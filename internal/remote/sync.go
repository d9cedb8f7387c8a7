package remote

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/kinpoint/kinpoint/internal/schema"
)

// GetSyncData pulls every remote entity changed after the given
// watermark, soft-deleted records included. This is the sole
// incremental-pull primitive: the server is trusted to return the
// complete delta for the window, there is no pagination cursor.
func (c *Client) GetSyncData(ctx context.Context, after time.Time) (*schema.SyncData, error) {
	query := url.Values{}
	query.Set("after", after.UTC().Format(time.RFC3339))

	var data schema.SyncData
	if err := c.send(ctx, http.MethodGet, "/mobile/sync", query, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
