package autocomplete

import (
	"context"
	"sync"
	"time"

	"github.com/ewjdev/anyclick/internal/model"
)

// DefaultDebounce is the reference keystroke debounce interval.
const DefaultDebounce = 300 * time.Millisecond

// Debounced wraps a Resolver with keystroke debouncing and supersede
// tracking: a search is only executed after the interval passes without
// a newer one, and a slow result that arrives after a newer search has
// been issued is discarded instead of overwriting fresher state.
type Debounced struct {
	resolver *Resolver
	interval time.Duration

	mu    sync.Mutex
	timer *time.Timer
	seq   uint64
}

// NewDebounced creates a debounced search wrapper. A non-positive
// interval falls back to DefaultDebounce.
func NewDebounced(r *Resolver, interval time.Duration) *Debounced {
	if interval <= 0 {
		interval = DefaultDebounce
	}
	return &Debounced{resolver: r, interval: interval}
}

// Search schedules a resolution for the query, replacing any pending
// one. deliver is invoked from a background goroutine with the
// candidates, and only if no newer Search has been issued in the
// meantime.
func (d *Debounced) Search(
	ctx context.Context,
	field model.FieldModel,
	query string,
	deliver func([]model.Candidate),
) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	seq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		candidates := d.resolver.Resolve(ctx, field, query)

		d.mu.Lock()
		superseded := seq != d.seq
		d.mu.Unlock()
		if superseded || ctx.Err() != nil {
			return
		}
		deliver(candidates)
	})
}

// Cancel drops any pending search. In-flight resolutions finish but
// their results are discarded.
func (d *Debounced) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
