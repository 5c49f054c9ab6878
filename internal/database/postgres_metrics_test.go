//go:build integration

package database_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/heimdall-sdk/internal/config"
	"github.com/rafaeljc/heimdall-sdk/internal/database"
	"github.com/rafaeljc/heimdall-sdk/internal/event"
	"github.com/rafaeljc/heimdall-sdk/internal/model"
	"github.com/rafaeljc/heimdall-sdk/internal/store"
	"github.com/rafaeljc/heimdall-sdk/internal/testsupport"
)

// TestPostgresPoolMonitor_Integration archives event batches through a small
// pool and checks that the monitor publishes the pool statistics.
func TestPostgresPoolMonitor_Integration(t *testing.T) {
	ctx := context.Background()
	pgCtr, err := testsupport.StartPostgresContainer(ctx, "../../migrations")
	require.NoError(t, err)
	defer pgCtr.Terminate(ctx)

	pool, err := database.NewPostgresPool(ctx, &config.DatabaseConfig{
		URL:            pgCtr.ConnectionString,
		MaxConns:       3,
		MinConns:       1,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	defer pool.Close()

	monitorCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go database.RunPoolMonitor(monitorCtx, pool, 10*time.Millisecond)

	archive := store.NewEventArchive(pool, "user_events")
	batch := func(prefix string, n int) []event.UserEvent {
		events := make([]event.UserEvent, 0, n)
		for i := range n {
			events = append(events, &event.Track{
				Common:    event.Common{InsertID: fmt.Sprintf("%s-%d", prefix, i), Timestamp: int64(i)},
				EventType: model.EventType{ID: 1, Key: "purchase"},
			})
		}
		return events
	}

	t.Run("Should report the configured maximum", func(t *testing.T) {
		require.Eventually(t, func() bool {
			return testsupport.GetMetricValue(t, "heimdall_database_pool_connections", map[string]string{"state": "max"}) == 3
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("Should count acquisitions made by the archive", func(t *testing.T) {
		initial := testsupport.GetMetricValue(t, "heimdall_database_pool_acquire_count_total", nil)

		for i := range 4 {
			require.NoError(t, archive.Send(ctx, batch(fmt.Sprintf("acquire-%d", i), 5)))
		}

		require.Eventually(t, func() bool {
			return testsupport.GetMetricValue(t, "heimdall_database_pool_acquire_count_total", nil) >= initial+4
		}, 2*time.Second, 10*time.Millisecond, "every COPY should acquire a connection")
		assert.Greater(t, testsupport.GetMetricValue(t, "heimdall_database_pool_acquire_duration_seconds_total", nil), 0.0)
	})

	t.Run("Should track in-use connections", func(t *testing.T) {
		conn, err := pool.Acquire(ctx)
		require.NoError(t, err)
		defer conn.Release()

		require.Eventually(t, func() bool {
			inUse := testsupport.GetMetricValue(t, "heimdall_database_pool_connections", map[string]string{"state": "in_use"})
			total := testsupport.GetMetricValue(t, "heimdall_database_pool_connections", map[string]string{"state": "total"})
			return inUse >= 1 && inUse <= total
		}, 2*time.Second, 10*time.Millisecond, "in_use gauge failed to update")
	})

	t.Run("Should count waits when the archive saturates the pool", func(t *testing.T) {
		held := make([]*pgxpool.Conn, 0, 3)
		for range 3 {
			c, err := pool.Acquire(ctx)
			require.NoError(t, err)
			held = append(held, c)
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, archive.Send(ctx, batch("wait", 1)))
		}()

		// Let the archive block on Acquire before freeing a slot.
		time.Sleep(50 * time.Millisecond)
		for _, c := range held {
			c.Release()
		}
		wg.Wait()

		require.Eventually(t, func() bool {
			return testsupport.GetMetricValue(t, "heimdall_database_pool_wait_count_total", nil) >= 1
		}, 2*time.Second, 10*time.Millisecond, "wait_count should increment on pool exhaustion")
	})
}
