// Package pgtest starts disposable PostgreSQL containers with the service schema applied.
// It is meant to be used from integration tests only.
package pgtest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vadimbarashkov/shortlinks/pkg/postgres"
)

const (
	pgUser     = "test"
	pgPassword = "test"
	pgDB       = "shortlinks"
)

// MigrationsPath returns the golang-migrate source URL of the repository migrations directory.
func MigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(file), "..", "..", "..")
	return "file://" + filepath.ToSlash(filepath.Join(root, "migrations"))
}

// Start runs a postgres container, applies migrations and returns a connection to it together with its DSN.
// The container is terminated when the test finishes.
func Start(t testing.TB) (*sqlx.DB, string) {
	t.Helper()

	ctx := context.Background()

	pgCont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDB,
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgCont.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate postgres container: %v", err)
		}
	})

	host, err := pgCont.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get postgres container host: %v", err)
	}

	port, err := pgCont.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get postgres container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", pgUser, pgPassword, host, port.Int(), pgDB)

	if err := postgres.RunMigrations(MigrationsPath(), dsn, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	db, err := postgres.New(ctx, dsn, postgres.DefaultPoolConfig)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	return db, dsn
}

// Truncate removes every url mapping and resets the id sequence.
func Truncate(t testing.TB, db *sqlx.DB) {
	t.Helper()

	if _, err := db.Exec(`TRUNCATE TABLE url_mappings RESTART IDENTITY`); err != nil {
		t.Fatalf("Failed to clean url_mappings table: %v", err)
	}
}
