package tracker

import (
	"context"
	"time"

	"github.com/kinpoint/kinpoint/internal/schema"
)

// Accuracy selects how much power the platform may spend on a fix.
type Accuracy int

const (
	// AccuracyLowest is a coarse fix, cheapest to obtain. Used for the
	// opportunistic push during a sync pass.
	AccuracyLowest Accuracy = iota

	// AccuracyBalanced trades precision for battery. The background
	// loop runs at this level.
	AccuracyBalanced

	// AccuracyHighest is a full-precision fix.
	AccuracyHighest
)

// Sample is one position fix delivered by a provider.
type Sample struct {
	Coordinates schema.Coordinates
	RecordedAt  time.Time
}

// WatchOptions tunes a background watch session.
type WatchOptions struct {
	// Interval is the target cadence between deliveries.
	Interval time.Duration

	// Distance is the minimum movement in meters before a new sample
	// is worth delivering.
	Distance float64

	// Accuracy is the fix quality for the session.
	Accuracy Accuracy
}

// Provider abstracts the platform geolocation service. Permissions are
// requested explicitly; a false grant is a user decision, not an error.
type Provider interface {
	// RequestForegroundPermission asks for while-in-use access.
	RequestForegroundPermission(ctx context.Context) (bool, error)

	// RequestBackgroundPermission asks for always-on access. Callers
	// must hold the foreground grant first.
	RequestBackgroundPermission(ctx context.Context) (bool, error)

	// Current obtains a single fix at the given accuracy.
	Current(ctx context.Context, accuracy Accuracy) (Sample, error)

	// Watch starts a background session and returns a channel of
	// sample batches. The platform may deliver several queued samples
	// at once. The channel closes when ctx is canceled.
	Watch(ctx context.Context, opts WatchOptions) (<-chan []Sample, error)
}
