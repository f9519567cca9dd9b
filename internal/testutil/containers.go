// Package testutil starts the Postgres and S3 containers used by integration
// and e2e tests. Containers are removed when the test finishes.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cloo-solutions/buscador/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage = "postgres:17-alpine"
	rustfsImage   = "rustfs/rustfs:latest"

	pgCredential = "buscador"

	// RustFSAccessKey and RustFSSecretKey are the static credentials of the
	// S3 test container.
	RustFSAccessKey = "rustfsadmin"
	RustFSSecretKey = "rustfsadmin"
)

func start(ctx context.Context, t testing.TB, image, port string, env map[string]string, waitFor wait.Strategy) (testcontainers.Container, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	container, err := testcontainers.Run(ctx, image,
		testcontainers.WithExposedPorts(port+"/tcp"),
		testcontainers.WithEnv(env),
		testcontainers.WithWaitStrategy(waitFor),
	)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Fatalf("failed to start %s: %v", image, err)
	}

	// one port is exposed, so Endpoint resolves to it
	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to resolve %s endpoint: %v", image, err)
	}
	return container, endpoint
}

type PostgresContainer struct {
	Container testcontainers.Container
	// Addr is host:port of the mapped Postgres port.
	Addr string
}

func NewPostgresContainer(ctx context.Context, t testing.TB) *PostgresContainer {
	container, addr := start(ctx, t, postgresImage, "5432",
		map[string]string{
			"POSTGRES_USER":     pgCredential,
			"POSTGRES_PASSWORD": pgCredential,
			"POSTGRES_DB":       pgCredential,
		},
		wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(60*time.Second),
	)
	return &PostgresContainer{Container: container, Addr: addr}
}

func (pc *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", pgCredential, pgCredential, pc.Addr, pgCredential)
}

type RustFSContainer struct {
	Container testcontainers.Container
	endpoint  string
}

func NewRustFSContainer(ctx context.Context, t testing.TB) *RustFSContainer {
	container, endpoint := start(ctx, t, rustfsImage, "9000",
		map[string]string{
			"RUSTFS_ACCESS_KEY": RustFSAccessKey,
			"RUSTFS_SECRET_KEY": RustFSSecretKey,
		},
		wait.ForListeningPort("9000/tcp").WithStartupTimeout(30*time.Second),
	)
	return &RustFSContainer{Container: container, endpoint: "http://" + endpoint}
}

// Endpoint is the S3 API base URL.
func (rc *RustFSContainer) Endpoint() string {
	return rc.endpoint
}

// NewTestPool migrates the container database and returns a pool closed at
// test cleanup. Connecting is retried while Postgres finishes starting.
func NewTestPool(ctx context.Context, t testing.TB, pc *PostgresContainer) *pgxpool.Pool {
	t.Helper()

	var pool *pgxpool.Pool
	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = database.NewPool(ctx, database.Config{
			URL:            pc.ConnectionString(),
			ConnectTimeout: 5 * time.Second,
		})
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := database.Migrate(pc.ConnectionString()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return pool
}

// ResetSearchLogs empties the search log between tests sharing a database.
func ResetSearchLogs(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, "TRUNCATE TABLE search_logs"); err != nil {
		return fmt.Errorf("failed to truncate search_logs: %w", err)
	}
	return nil
}
