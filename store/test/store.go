package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/jamilsonokay/iam-ai-chatbot/internal/profile"
	"github.com/jamilsonokay/iam-ai-chatbot/store"
	"github.com/jamilsonokay/iam-ai-chatbot/store/db"
)

const testDatabase = "flightdesk"

// NewTestingStore opens a migrated store for the driver named by the DRIVER env var.
// sqlite (the default) lives in a temp dir; mysql and postgres run in containers.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	profile := getTestingProfile(ctx, t)
	dbDriver, err := db.NewDBDriver(profile)
	if err != nil {
		t.Fatalf("failed to create db driver, error: %+v", err)
	}

	store := store.New(dbDriver, profile)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db, error: %+v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func getTestingProfile(ctx context.Context, t *testing.T) *profile.Profile {
	dir := t.TempDir()
	driver := getDriverFromEnv()
	var dsn string
	switch driver {
	case "mysql":
		dsn = startMySQL(ctx, t)
	case "postgres":
		dsn = startPostgres(ctx, t)
	default:
		driver = "sqlite"
		dsn = filepath.Join(dir, "flightdesk_test.db")
	}
	return &profile.Profile{
		Mode:     "prod",
		Data:     dir,
		DSN:      dsn,
		Driver:   driver,
		Version:  "test",
		Secret:   "test-secret",
		MaxSteps: profile.DefaultMaxSteps,
	}
}

func getDriverFromEnv() string {
	driver := os.Getenv("DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}

func startMySQL(ctx context.Context, t *testing.T) string {
	container, err := mysql.Run(ctx, "mysql:8.4",
		mysql.WithDatabase(testDatabase),
		mysql.WithUsername("root"),
		mysql.WithPassword("flightdesk"),
	)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Fatalf("failed to start mysql container: %v", err)
	}
	dsn, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get mysql dsn: %v", err)
	}
	return dsn
}

func startPostgres(ctx context.Context, t *testing.T) string {
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername("flightdesk"),
		postgres.WithPassword("flightdesk"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres dsn: %v", err)
	}
	return dsn
}

// Ptr returns a pointer to v, for building Find/Update filters inline.
func Ptr[T any](v T) *T {
	return &v
}
