package cache

import (
	"context"
	"time"

	"github.com/maypok86/otter"

	"github.com/rafaeljc/heimdall-sdk/internal/observability"
)

// MemoryCache is a bounded in-process cache backed by otter (S3-FIFO).
// Reads are contention-free, which keeps it safe on the decision hot path.
type MemoryCache[K comparable, V any] struct {
	name  string
	store otter.Cache[K, V]
}

// NewMemoryCache builds a cache holding at most capacity items.
// name labels the cache metrics. A ttl of zero disables expiry.
func NewMemoryCache[K comparable, V any](name string, capacity int, ttl time.Duration) (*MemoryCache[K, V], error) {
	builder, err := otter.NewBuilder[K, V](capacity)
	if err != nil {
		return nil, err
	}
	builder = builder.CollectStats()

	var store otter.Cache[K, V]
	if ttl > 0 {
		store, err = builder.WithTTL(ttl).Build()
	} else {
		store, err = builder.Build()
	}
	if err != nil {
		return nil, err
	}

	return &MemoryCache[K, V]{name: name, store: store}, nil
}

// Get returns the cached value and whether it was present.
func (c *MemoryCache[K, V]) Get(key K) (V, bool) {
	v, ok := c.store.Get(key)
	if ok {
		observability.CacheHits.WithLabelValues(c.name).Inc()
	} else {
		observability.CacheMisses.WithLabelValues(c.name).Inc()
	}
	return v, ok
}

// Set stores value under key. Otter may reject the write under heavy contention.
func (c *MemoryCache[K, V]) Set(key K, value V) {
	c.store.Set(key, value)
}

// Del removes key.
func (c *MemoryCache[K, V]) Del(key K) {
	c.store.Delete(key)
}

// Len returns the current number of items.
func (c *MemoryCache[K, V]) Len() int {
	return c.store.Size()
}

// RunMetricsCollector samples size and eviction stats until ctx is done.
func (c *MemoryCache[K, V]) RunMetricsCollector(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := c.store.Stats()
			observability.CacheItems.WithLabelValues(c.name).Set(float64(c.store.Size()))
			observability.CacheEvictions.WithLabelValues(c.name).Set(float64(stats.EvictedCount()))
		}
	}
}

// Close stops otter's background goroutines.
func (c *MemoryCache[K, V]) Close() {
	c.store.Close()
}
