package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/heimdall-sdk/internal/cache"
	"github.com/rafaeljc/heimdall-sdk/internal/testsupport"
)

func TestMemoryCache_Metrics(t *testing.T) {
	// A small capacity makes evictions easy to provoke.
	c, err := cache.NewMemoryCache[string, []int]("semver-test", 10, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	labels := map[string]string{"cache": "semver-test"}

	t.Run("Should count a lookup of an unknown version as a miss", func(t *testing.T) {
		testsupport.AssertMetricDelta(t, "heimdall_cache_misses_total", labels, 1, func() {
			_, found := c.Get("9.9.9")
			assert.False(t, found)
		})
	})

	t.Run("Should count a cached version as a hit", func(t *testing.T) {
		c.Set("1.2.3", []int{1, 2, 3})
		require.Eventually(t, func() bool {
			_, ok := c.Get("1.2.3")
			return ok
		}, time.Second, 10*time.Millisecond)

		testsupport.AssertMetricDelta(t, "heimdall_cache_hits_total", labels, 1, func() {
			parts, found := c.Get("1.2.3")
			assert.True(t, found)
			assert.Equal(t, []int{1, 2, 3}, parts)
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.RunMetricsCollector(ctx, 10*time.Millisecond)

	t.Run("Should publish the item count from the collector", func(t *testing.T) {
		for minor := range 5 {
			c.Set(fmt.Sprintf("2.%d.0", minor), []int{2, minor, 0})
		}

		require.Eventually(t, func() bool {
			return testsupport.GetMetricValue(t, "heimdall_cache_items_count", labels) >= 5
		}, 2*time.Second, 50*time.Millisecond)
	})

	t.Run("Should publish evictions once capacity is exceeded", func(t *testing.T) {
		for patch := range 100 {
			c.Set(fmt.Sprintf("3.0.%d", patch), []int{3, 0, patch})
		}

		require.Eventually(t, func() bool {
			return testsupport.GetMetricValue(t, "heimdall_cache_evictions", labels) > 0
		}, 2*time.Second, 50*time.Millisecond)
	})
}
