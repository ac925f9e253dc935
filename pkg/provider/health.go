package provider

import (
	"context"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/async"
)

const defaultProbeTimeout = 5 * time.Second

// RefreshAvailability probes every registered provider concurrently and
// records the results, independent of delivery traffic. Disabled providers
// are probed too so a toggle back on starts from fresh data.
func (r *Registry) RefreshAvailability(ctx context.Context, probeTimeout time.Duration) {
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}

	r.mu.RLock()
	all := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e)
	}
	r.mu.RUnlock()

	futures := make([]*async.Future[struct{}], 0, len(all))
	for _, e := range all {
		futures = append(futures, async.Async(ctx, e, func(ctx context.Context, e *entry) (struct{}, error) {
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()

			e.setAvailability(e.provider.Available(probeCtx))
			return struct{}{}, nil
		}))
	}
	_, _ = async.WaitAll(futures...)
}

// RunHealthRefresh probes availability on a fixed interval until the context
// is cancelled. It performs one refresh immediately on start.
func (r *Registry) RunHealthRefresh(ctx context.Context, interval, probeTimeout time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	r.RefreshAvailability(ctx, probeTimeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshAvailability(ctx, probeTimeout)
		}
	}
}
