package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/ply2splat/internal/db"
	"github.com/banshee-data/ply2splat/internal/splat"
	"github.com/banshee-data/ply2splat/internal/testutil"
)

func writeScene(t *testing.T, dir string, n int) string {
	t.Helper()
	path := filepath.Join(dir, "scene.ply")
	if err := os.WriteFile(path, testutil.ASCIIPLY(testutil.RandomRows(n, 11)...), 0644); err != nil {
		t.Fatalf("failed to write scene: %v", err)
	}
	return path
}

func TestRun_Convert(t *testing.T) {
	dir := t.TempDir()
	in := writeScene(t, dir, 50)
	out := filepath.Join(dir, "out", "scene.splat")

	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"-input", in, "-output", out}, &stdout); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	records, err := splat.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(records) != 50 {
		t.Errorf("expected 50 records, got %d", len(records))
	}

	got := stdout.String()
	for _, want := range []string{"Reading PLY file", "Loaded 50 vertices in", "Processing and sorting...", "Processed in", "Written to", "Total time:"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRun_NoSort(t *testing.T) {
	dir := t.TempDir()
	in := writeScene(t, dir, 5)
	out := filepath.Join(dir, "scene.splat")

	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"-input", in, "-output", out, "-no-sort"}, &stdout); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "Processing (sorting disabled)...") {
		t.Errorf("expected sorting-disabled message, got:\n%s", stdout.String())
	}
}

func TestRun_Quiet(t *testing.T) {
	dir := t.TempDir()
	in := writeScene(t, dir, 3)

	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"-quiet", "-input", in, "-output", filepath.Join(dir, "q.splat")}, &stdout); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("expected no output with -quiet, got %q", stdout.String())
	}
}

func TestRun_HistoryAndReport(t *testing.T) {
	dir := t.TempDir()
	in := writeScene(t, dir, 20)
	dbPath := filepath.Join(dir, "history.db")
	report := filepath.Join(dir, "volume.html")

	args := []string{"-quiet", "-input", in, "-output", filepath.Join(dir, "s.splat"), "-db", dbPath, "-report", report}
	if err := run(context.Background(), args, &bytes.Buffer{}); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	history, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("db.Open failed: %v", err)
	}
	defer history.Close()
	runs, err := history.Runs(context.Background(), 10)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Points != 20 || !runs[0].Sorted {
		t.Errorf("unexpected history: %+v", runs)
	}

	html, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !bytes.Contains(html, []byte("Splat volume")) {
		t.Error("report missing title")
	}
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	in := writeScene(t, dir, 2)

	tests := []struct {
		name string
		args []string
	}{
		{"missing flags", []string{}},
		{"missing output", []string{"-input", in}},
		{"missing input file", []string{"-input", filepath.Join(dir, "nope.ply"), "-output", filepath.Join(dir, "x.splat")}},
		{"bad report type", []string{"-quiet", "-input", in, "-output", filepath.Join(dir, "y.splat"), "-report", filepath.Join(dir, "r.txt")}},
		{"bad config", []string{"-config", filepath.Join(dir, "missing.json"), "-input", in, "-output", filepath.Join(dir, "z.splat")}},
		{"unknown flag", []string{"-bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(context.Background(), tt.args, &bytes.Buffer{}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRun_MissingFlagsError(t *testing.T) {
	err := run(context.Background(), nil, &bytes.Buffer{})
	if !errors.Is(err, errUsage) {
		t.Errorf("expected errUsage, got %v", err)
	}
}

func TestRun_Version(t *testing.T) {
	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"-version"}, &stdout); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "ply2splat ") {
		t.Errorf("unexpected version output %q", stdout.String())
	}
}
