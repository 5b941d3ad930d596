package enrichment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// CachedResolver is a read-through cache in front of another Resolver.
// Entries are keyed by activity reference, each costs 1, and expire after
// ttl. Failed lookups are not cached. Concurrent misses for the same
// reference share one upstream call.
type CachedResolver struct {
	next  Resolver
	cache *ristretto.Cache[string, domain.ActivityDetails]
	ttl   time.Duration
	group singleflight.Group
}

// NewCachedResolver wraps next with a cache holding at most size entries.
// Call Close when done to stop the cache's background goroutines.
func NewCachedResolver(next Resolver, size int64, ttl time.Duration) (*CachedResolver, error) {
	if size <= 0 {
		return nil, errors.New("enrichment.NewCachedResolver: size must be positive")
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, domain.ActivityDetails]{
		NumCounters: size * 10,
		MaxCost:     size,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("enrichment.NewCachedResolver: %w", err)
	}
	return &CachedResolver{next: next, cache: cache, ttl: ttl}, nil
}

// Resolve returns cached details for ref, or fetches and caches them.
// The shared upstream call is detached from the cancellation of whichever
// caller started it; each caller still stops waiting when its own ctx ends.
func (c *CachedResolver) Resolve(ctx context.Context, ref string) (domain.ActivityDetails, error) {
	if d, ok := c.cache.Get(ref); ok {
		return d, nil
	}

	ch := c.group.DoChan(ref, func() (any, error) {
		d, err := c.next.Resolve(context.WithoutCancel(ctx), ref)
		if err != nil {
			return domain.ActivityDetails{}, err
		}
		c.cache.SetWithTTL(ref, d, 1, c.ttl)
		return d, nil
	})
	select {
	case <-ctx.Done():
		return domain.ActivityDetails{}, fmt.Errorf("enrichment.CachedResolver.Resolve: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return domain.ActivityDetails{}, res.Err
		}
		return res.Val.(domain.ActivityDetails), nil
	}
}

// Wait blocks until pending cache writes are applied.
func (c *CachedResolver) Wait() {
	c.cache.Wait()
}

// Close releases the cache.
func (c *CachedResolver) Close() {
	c.cache.Close()
}
