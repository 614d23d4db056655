//go:build e2e

package e2e

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	msql "toggl-timewax/internal/adapter/mysql"
	"toggl-timewax/internal/domain"
	"toggl-timewax/internal/migrate"
)

func startMySQL(t *testing.T, ctx context.Context) string {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_DATABASE":      "testdb",
			"MYSQL_ROOT_PASSWORD": "secret",
			"MYSQL_USER":          "test",
			"MYSQL_PASSWORD":      "pass",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start mysql container: %v", err)
	}
	t.Cleanup(func() { _ = mysqlC.Terminate(context.Background()) })

	host, err := mysqlC.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := mysqlC.MappedPort(ctx, "3306/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true", "test", "pass", host, port.Port(), "testdb")
}

func TestAuditSink_RecordsRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	ctx := context.Background()
	dsn := startMySQL(t, ctx)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := migrate.Run(ctx, dsn, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sink, err := msql.NewClient(ctx, dsn, logger)
	if err != nil {
		t.Fatalf("mysql client: %v", err)
	}
	t.Cleanup(func() { _ = sink.Close() })

	// Hierarchy sync audit
	if err := sink.RecordNodeCreations(ctx, "run-1", []string{"1234567 - Acme", "7000001 - Development"}); err != nil {
		t.Fatalf("record node creations: %v", err)
	}

	// Reconcile audit
	start := time.Date(2025, 8, 13, 9, 0, 0, 0, time.UTC)
	stop := start.Add(time.Hour)
	entries := []domain.TimeEntry{
		{GUID: "7001", Description: "dev work", DurationSec: 3600, Start: start, Stop: &stop, Project: "1234567", Breakdown: "7000001"},
		{GUID: "7002", Description: "compensation", DurationSec: -600, Start: start, Project: "1234567", Breakdown: "7000001"},
	}
	if err := sink.RecordSubmissions(ctx, "run-2", entries); err != nil {
		t.Fatalf("record submissions: %v", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("sql open: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM node_creations WHERE run_id = 'run-1'").Scan(&count); err != nil {
		t.Fatalf("count node_creations: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 node creations, got %d", count)
	}

	var duration int64
	if err := db.QueryRowContext(ctx, "SELECT duration_sec FROM entry_submissions WHERE guid = '7002'").Scan(&duration); err != nil {
		t.Fatalf("select submission: %v", err)
	}
	if duration != -600 {
		t.Fatalf("expected duration -600, got %d", duration)
	}

	// The audit log is append-only: a rerun adds rows instead of failing.
	if err := sink.RecordSubmissions(ctx, "run-3", entries[:1]); err != nil {
		t.Fatalf("record submissions rerun: %v", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entry_submissions WHERE guid = '7001'").Scan(&count); err != nil {
		t.Fatalf("count submissions: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows for guid 7001, got %d", count)
	}
}
