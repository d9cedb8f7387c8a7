package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/kinpoint/kinpoint/internal/schema"
)

// SimProvider is a Provider backed by a manually set position instead
// of real hardware. It grants every permission and delivers the current
// position on each watch tick. Useful for the CLI daemon and tests.
type SimProvider struct {
	mu  sync.Mutex
	pos schema.Coordinates
}

// NewSimProvider returns a provider reporting the given position.
func NewSimProvider(lat, lon float64) *SimProvider {
	return &SimProvider{pos: schema.Coordinates{Lat: lat, Lon: lon}}
}

// Move updates the reported position.
func (p *SimProvider) Move(lat, lon float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = schema.Coordinates{Lat: lat, Lon: lon}
}

func (p *SimProvider) RequestForegroundPermission(ctx context.Context) (bool, error) {
	return true, nil
}

func (p *SimProvider) RequestBackgroundPermission(ctx context.Context) (bool, error) {
	return true, nil
}

func (p *SimProvider) Current(ctx context.Context, accuracy Accuracy) (Sample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Sample{Coordinates: p.pos, RecordedAt: time.Now().UTC()}, nil
}

func (p *SimProvider) Watch(ctx context.Context, opts WatchOptions) (<-chan []Sample, error) {
	out := make(chan []Sample)

	go func() {
		defer close(out)

		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sample, _ := p.Current(ctx, opts.Accuracy)
				select {
				case out <- []Sample{sample}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
