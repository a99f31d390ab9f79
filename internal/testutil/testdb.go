package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/josh-kwaku/civitas/internal/repository"
)

// SetupSQLite returns a migrated database backed by a file in t.TempDir().
// A file is used rather than :memory: so every pooled connection sees the
// same data.
func SetupSQLite(t *testing.T) *repository.DB {
	t.Helper()
	ctx := context.Background()

	pool, err := repository.OpenSQLite(ctx, filepath.Join(t.TempDir(), "civitas.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	db := repository.NewDB(pool, repository.DialectSQLite).WithConflictRetries(10)
	if err := repository.Migrate(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db
}

// SetupPostgres starts a throwaway Postgres container. The test is skipped
// when no container runtime is reachable.
func SetupPostgres(t *testing.T) *repository.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("civitas_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	pool, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	db := repository.NewDB(pool, repository.DialectPostgres).WithConflictRetries(10)
	if err := repository.Migrate(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db
}
