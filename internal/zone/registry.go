package zone

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/music-gateway/internal/gateway"
)

// ErrZoneNotFound is returned for zone ids outside 1..Count.
var ErrZoneNotFound = errors.New("zone: not found")

// Registry owns the fixed set of zones, numbered 1..n.
type Registry struct {
	zones []*Zone
}

// NewRegistry creates n zones sharing caller and opts.
func NewRegistry(n int, caller gateway.Caller, opts Options) *Registry {
	r := &Registry{zones: make([]*Zone, n)}
	for i := range r.zones {
		r.zones[i] = New(i+1, caller, opts)
	}
	return r
}

// Get returns zone id.
func (r *Registry) Get(id int) (*Zone, error) {
	if id < 1 || id > len(r.zones) {
		return nil, fmt.Errorf("%w: %d", ErrZoneNotFound, id)
	}
	return r.zones[id-1], nil
}

// All returns the zones in id order.
func (r *Registry) All() []*Zone {
	out := make([]*Zone, len(r.zones))
	copy(out, r.zones)
	return out
}

// Count returns the number of zones.
func (r *Registry) Count() int {
	return len(r.zones)
}

// SyncAll refreshes every zone from the backend with at most limit fetches
// in flight. Individual failures do not stop the others; the joined error
// lists every zone that could not be fetched.
func (r *Registry) SyncAll(ctx context.Context, limit int) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	errs := make([]error, len(r.zones))
	for i, z := range r.zones {
		g.Go(func() error {
			errs[i] = z.Refresh(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// Close stops every zone's timers.
func (r *Registry) Close() {
	for _, z := range r.zones {
		z.Close()
	}
}
