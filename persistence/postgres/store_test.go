package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/KennethAtchon/Loctelli-sub005/persistence"
	"github.com/KennethAtchon/Loctelli-sub005/persistence/postgres"
)

// databaseURL returns DATABASE_URL when set, otherwise starts a Postgres
// container for the test.
func databaseURL(t *testing.T) string {
	t.Helper()
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	ctx := context.Background()
	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("jobs_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
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
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}
	return connStr
}

// newTestStore connects to Postgres and applies the migrations.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	ctx := context.Background()
	s, err := postgres.New(ctx, databaseURL(t))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestStore_SaveExportAndCleanup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exportID, err := s.SaveExport(ctx, persistence.ExportArtifact{
		Entity:      "leads",
		Format:      "csv",
		ContentType: "text/csv",
		Data:        []byte("a,b\n1,2\n"),
		RowCount:    1,
		Filters:     map[string]any{"status": "open"},
	})
	if err != nil {
		t.Fatalf("SaveExport: %v", err)
	}
	if exportID == "" {
		t.Fatal("empty export id")
	}

	// Nothing is older than an hour ago.
	n, err := s.DeleteOlderThan(ctx, "data_exports", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if n < 0 {
		t.Errorf("deleted = %d", n)
	}

	n, err = s.DeleteOlderThan(ctx, "data_exports", time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if n < 1 {
		t.Errorf("deleted = %d, want at least 1", n)
	}
}

func TestStore_UnknownTable(t *testing.T) {
	s := newTestStore(t)

	_, err := s.DeleteOlderThan(context.Background(), "users", time.Now())
	if !errors.Is(err, persistence.ErrUnknownTable) {
		t.Errorf("err = %v, want ErrUnknownTable", err)
	}
}
