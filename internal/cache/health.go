package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/rafaeljc/heimdall-sdk/internal/observability"
)

// HealthCheck reports the snapshot store's Redis under the "redis" component.
// The store is optional for serving, but a configured and unreachable Redis
// still marks the relay as not ready.
func HealthCheck(client redis.UniversalClient) observability.Checker {
	return observability.NewCheckFunc("redis", func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis client is nil")
		}
		return client.Ping(ctx).Err()
	})
}
