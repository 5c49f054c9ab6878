package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafaeljc/heimdall-sdk/internal/observability"
)

// HealthCheck pings the event archive pool.
func HealthCheck(pool *pgxpool.Pool) observability.Checker {
	return observability.NewCheckFunc("postgres", func(ctx context.Context) error {
		if pool == nil {
			return errors.New("database pool is nil")
		}
		return pool.Ping(ctx)
	})
}
