package listing

import (
	"context"

	"github.com/baulhq/baul/internal/events"
	"github.com/baulhq/baul/internal/logging"
)

// Bridge connects bucket mutations to the listing cache. The transfer
// executor calls Invalidate directly after a successful upload; CLI commands
// that delete, rename, or create objects publish bucket-mutated events on
// the bus, and Run forwards those into the cache as well.
type Bridge struct {
	cache  *Cache
	bus    *events.Bus
	logger *logging.Logger
}

// NewBridge wires the cache to the bus.
func NewBridge(cache *Cache, bus *events.Bus) *Bridge {
	return &Bridge{
		cache:  cache,
		bus:    bus,
		logger: logging.NewLogger("invalidation"),
	}
}

// Invalidate discards the cached listings of the bucket. Safe to call from
// any goroutine.
func (b *Bridge) Invalidate(connectionID, bucket string) {
	b.cache.Invalidate(connectionID, bucket)
}

// Run consumes bucket-mutated events until the context is cancelled or the
// bus closes. Meant to run in its own goroutine.
func (b *Bridge) Run(ctx context.Context) {
	ch := b.bus.Subscribe(events.EventBucketMutated)
	defer b.bus.Unsubscribe(events.EventBucketMutated, ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			mutated, ok := ev.(*events.BucketMutatedEvent)
			if !ok {
				continue
			}
			b.logger.Debug().
				Str("connection", mutated.ConnectionID).
				Str("bucket", mutated.Bucket).
				Msg("Bucket mutated")
			b.cache.Invalidate(mutated.ConnectionID, mutated.Bucket)
		}
	}
}
