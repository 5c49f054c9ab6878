package testsupport

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rafaeljc/heimdall-sdk/internal/config"
	"github.com/rafaeljc/heimdall-sdk/internal/database"
	"github.com/rafaeljc/heimdall-sdk/internal/store"
)

// PostgresContainer is an ephemeral PostgreSQL with the archive schema applied.
type PostgresContainer struct {
	Container        testcontainers.Container
	DB               *pgxpool.Pool
	ConnectionString string
}

// Terminate closes the pool and removes the container.
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	c.DB.Close()
	return c.Container.Terminate(ctx)
}

// Truncate empties table so scenarios sharing a container start clean.
func (c *PostgresContainer) Truncate(ctx context.Context, table string) error {
	_, err := c.DB.Exec(ctx, "TRUNCATE "+pgx.Identifier{table}.Sanitize())
	if err != nil {
		return fmt.Errorf("failed to truncate %s: %w", table, err)
	}
	return nil
}

// StartPostgresContainer runs postgres:15-alpine with every .sql file of
// migrationsDir applied as an init script, in name order. The pool comes from
// database.NewPostgresPool, the same factory the relay uses.
func StartPostgresContainer(ctx context.Context, migrationsDir string) (*PostgresContainer, error) {
	migrations, err := migrationFiles(migrationsDir)
	if err != nil {
		return nil, err
	}

	ctr, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("heimdall_test"),
		postgres.WithUsername("relay"),
		postgres.WithPassword("relay-test-password"),
		postgres.WithInitScripts(migrations...),
		testcontainers.WithWaitStrategy(
			// Postgres restarts once after running the init scripts.
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	pg, err := connectArchive(ctx, ctr)
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, err
	}
	return pg, nil
}

func connectArchive(ctx context.Context, ctr *postgres.PostgresContainer) (*PostgresContainer, error) {
	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, &config.DatabaseConfig{
		URL:            connStr,
		MaxConns:       5,
		MinConns:       1,
		ConnectTimeout: 5 * time.Second,
		ArchiveTable:   store.DefaultArchiveTable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	return &PostgresContainer{Container: ctr, DB: pool, ConnectionString: connStr}, nil
}

// migrationFiles returns the absolute, sorted paths of dir's .sql files.
func migrationFiles(dir string) ([]string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve migrations path: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(abs, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no migration files found in %s", abs)
	}
	slices.Sort(files)
	return files, nil
}
