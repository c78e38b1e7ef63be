// Package db keeps a SQLite history of conversion runs.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/ply2splat/internal/monitoring"
)

// ErrRunNotFound is returned by Run when no row has the requested ID.
var ErrRunNotFound = errors.New("run not found")

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
}

type DB struct {
	*sql.DB
}

// Run is one recorded conversion.
type Run struct {
	ID        uuid.UUID
	Input     string
	Output    string
	Points    int
	Sorted    bool
	Read      time.Duration
	Process   time.Duration
	Write     time.Duration
	Total     time.Duration
	CreatedAt time.Time
}

// Open opens (creating if needed) the history database at path and
// migrates it to the latest schema.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", p, err)
		}
	}

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	monitoring.Logf("opened run history %s", path)
	return db, nil
}

// RecordRun inserts r. A nil ID is replaced with a fresh UUID and a zero
// CreatedAt with the current time; the stored run is returned.
func (db *DB) RecordRun(ctx context.Context, r Run) (Run, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.CreatedAt = r.CreatedAt.UTC().Truncate(time.Millisecond)

	_, err := db.ExecContext(ctx,
		`INSERT INTO conversion_runs (
			run_id, input_path, output_path, point_count, sorted,
			read_ms, process_ms, write_ms, total_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.Input, r.Output, r.Points, r.Sorted,
		r.Read.Milliseconds(), r.Process.Milliseconds(), r.Write.Milliseconds(), r.Total.Milliseconds(),
		r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return Run{}, fmt.Errorf("failed to insert run: %w", err)
	}
	return r, nil
}

const selectRuns = `SELECT run_id, input_path, output_path, point_count, sorted,
	read_ms, process_ms, write_ms, total_ms, created_at FROM conversion_runs`

// Runs returns up to limit runs, most recent first. limit <= 0 returns all.
func (db *DB) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, selectRuns+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Run returns the run with the given ID, or ErrRunNotFound.
func (db *DB) Run(ctx context.Context, id uuid.UUID) (Run, error) {
	r, err := scanRun(db.QueryRowContext(ctx, selectRuns+` WHERE run_id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r                              Run
		id                             string
		readMs, procMs, writeMs, totMs int64
		createdMs                      int64
	)
	if err := s.Scan(&id, &r.Input, &r.Output, &r.Points, &r.Sorted,
		&readMs, &procMs, &writeMs, &totMs, &createdMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("invalid run_id %q: %w", id, err)
	}
	r.ID = parsed
	r.Read = time.Duration(readMs) * time.Millisecond
	r.Process = time.Duration(procMs) * time.Millisecond
	r.Write = time.Duration(writeMs) * time.Millisecond
	r.Total = time.Duration(totMs) * time.Millisecond
	r.CreatedAt = time.UnixMilli(createdMs).UTC()
	return r, nil
}
