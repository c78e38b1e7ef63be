package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/ply2splat/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_AppliesPragmasAndMigrations(t *testing.T) {
	db := setupTestDB(t)

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected journal_mode 'wal', got %q", journalMode)
	}

	version, dirty, err := db.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion failed: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("expected version 1 clean, got %d dirty=%t", version, dirty)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	if _, err := db.RecordRun(context.Background(), Run{Input: "a.ply", Output: "a.splat"}); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer db.Close()

	runs, err := db.Runs(context.Background(), 0)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run after reopen, got %d", len(runs))
	}
}

func TestRecordRun_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	in := Run{
		ID:        uuid.New(),
		Input:     "scene.ply",
		Output:    "out/scene.splat",
		Points:    1234,
		Sorted:    true,
		Read:      1500 * time.Millisecond,
		Process:   250 * time.Millisecond,
		Write:     40 * time.Millisecond,
		Total:     1790 * time.Millisecond,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	stored, err := db.RecordRun(ctx, in)
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	got, err := db.Run(ctx, in.ID)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got != stored {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, stored)
	}
}

func TestRecordRun_FillsDefaults(t *testing.T) {
	db := setupTestDB(t)

	r, err := db.RecordRun(context.Background(), Run{Input: "x.ply", Output: "x.splat"})
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if r.ID == uuid.Nil {
		t.Error("expected a generated run ID")
	}
	if r.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestRuns_MostRecentFirst(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"first", "second", "third"} {
		_, err := db.RecordRun(ctx, Run{Input: name + ".ply", Output: name + ".splat", CreatedAt: base.Add(time.Duration(i) * time.Hour)})
		if err != nil {
			t.Fatalf("RecordRun %s failed: %v", name, err)
		}
	}

	runs, err := db.Runs(ctx, 2)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Input != "third.ply" || runs[1].Input != "second.ply" {
		t.Errorf("unexpected order: %s, %s", runs[0].Input, runs[1].Input)
	}

	all, err := db.Runs(ctx, 0)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 runs, got %d", len(all))
	}
}

func TestRun_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Run(context.Background(), uuid.New())
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRecordRun_DuplicateID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	r := Run{ID: uuid.New(), Input: "a.ply", Output: "a.splat"}

	if _, err := db.RecordRun(ctx, r); err != nil {
		t.Fatalf("first RecordRun failed: %v", err)
	}
	if _, err := db.RecordRun(ctx, r); err == nil {
		t.Error("expected error inserting duplicate run_id")
	}
}
