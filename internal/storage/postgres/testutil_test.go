package postgres

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// runSchema is the run store schema relative to this package. The
// migrations package imports this one, so tests read the file directly.
var runSchema = filepath.Join("..", "migrations", "postgres", "001_scenario_runs.sql")

// setupTestDB starts a PostgreSQL container with the run store schema.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("coinlab_test"),
		postgres.WithUsername("coinlab"),
		postgres.WithPassword("coinlab"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	schema, err := os.ReadFile(runSchema)
	require.NoError(t, err, "failed to read run schema")
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err, "failed to apply run schema")

	return pool, func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
}
