package store_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"plexconverter/internal/store"
)

func openTestDB(t *testing.T) (*store.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "queue.db")
	db, err := store.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, path
}

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	db, path := openTestDB(t)
	ctx := context.Background()

	health, err := db.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.Healthy() {
		t.Fatalf("expected healthy database, got %+v", health)
	}
	if health.SchemaVersion != store.SchemaVersion {
		t.Fatalf("unexpected schema version %d", health.SchemaVersion)
	}

	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	reopened, err := store.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	var count int
	if err := reopened.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		t.Fatalf("count schema_version: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one schema_version row, got %d", count)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	db, path := openTestDB(t)
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "UPDATE schema_version SET version = ?", store.SchemaVersion+1); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	_, err := store.Open(ctx, path)
	if !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO worker_info (worker_id, hostname, ip_address, last_checkin, created_at) VALUES ('w1', 'host', '10.0.0.2', 'now', 'now')`,
		); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM worker_info").Scan(&count); err != nil {
		t.Fatalf("count workers: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback to discard insert, found %d rows", count)
	}
}

func TestSchemaEnforcesStatusAndPosition(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()
	insert := `INSERT INTO conversion_queue (file_path, original_size, job_status, queue_position, creation_date, modification_date)
		VALUES (?, 100, ?, ?, 'now', 'now')`

	if _, err := db.ExecContext(ctx, insert, "/a.mkv", "archived", nil); err == nil {
		t.Fatal("expected CHECK failure for unknown status")
	}
	if _, err := db.ExecContext(ctx, insert, "/b.mkv", "queued", 0); err == nil {
		t.Fatal("expected CHECK failure for zero position")
	}
	if _, err := db.ExecContext(ctx, insert, "/c.mkv", "queued", 1); err != nil {
		t.Fatalf("valid insert failed: %v", err)
	}
	if _, err := db.ExecContext(ctx, insert, "/c.mkv", "pending", nil); err == nil {
		t.Fatal("expected UNIQUE failure for duplicate file_path")
	}
}

func TestDSNCarriesPragmas(t *testing.T) {
	dsn := store.DSN("/tmp/queue.db")
	for _, want := range []string{"file:/tmp/queue.db?", "busy_timeout", "journal_mode", "_txlock=immediate"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("expected %q in dsn %q", want, dsn)
		}
	}
	if !strings.Contains(store.ReadOnlyDSN("/tmp/catalog.db"), "mode=ro") {
		t.Fatal("expected read-only dsn to set mode=ro")
	}
}

func TestIsBusy(t *testing.T) {
	if store.IsBusy(nil) {
		t.Fatal("nil is not busy")
	}
	if !store.IsBusy(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Fatal("expected busy detection from message")
	}
	if store.IsBusy(errors.New("no such table")) {
		t.Fatal("unexpected busy detection")
	}
}

func TestPlaceholdersAndTimes(t *testing.T) {
	if got := store.Placeholders(3); got != "?, ?, ?" {
		t.Fatalf("Placeholders(3) = %q", got)
	}
	if got := store.Placeholders(0); got != "" {
		t.Fatalf("Placeholders(0) = %q", got)
	}
	if store.ParseTime("2024-05-01 10:11:12").IsZero() {
		t.Fatal("expected sqlite timestamp to parse")
	}
	if !store.ParseTime("garbage").IsZero() {
		t.Fatal("expected zero time for garbage")
	}
}
