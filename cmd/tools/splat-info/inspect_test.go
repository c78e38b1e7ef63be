package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/ply2splat/internal/splat"
	"github.com/banshee-data/ply2splat/internal/testutil"
)

func TestInspect_Splat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.splat")
	points := []splat.PackedPoint{
		{Position: [3]float32{-1, 0, 2}, Scale: [3]float32{1, 1, 1}, Color: [4]uint8{0, 0, 0, 255}},
		{Position: [3]float32{3, 4, 5}, Scale: [3]float32{2, 2, 2}, Color: [4]uint8{0, 0, 0, 0}},
	}
	if err := splat.WriteFile(path, points); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	var out bytes.Buffer
	if err := inspect(path, &out); err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	got := out.String()
	for _, want := range []string{"2 records (64 bytes)", "bounds min: (-1, 0, 2)", "bounds max: (3, 4, 5)", "alpha mean: 0.5000"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestInspect_EmptySplat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.splat")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := inspect(path, &out); err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if !strings.Contains(out.String(), "0 records") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestInspect_BadSplat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.splat")
	if err := os.WriteFile(path, make([]byte, 33), 0644); err != nil {
		t.Fatal(err)
	}
	err := inspect(path, &bytes.Buffer{})
	if !errors.Is(err, splat.ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestInspect_PLY(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.ply")
	rows := []testutil.Row{{1.5, 2, 3}, {4, 5, 6}}
	if err := os.WriteFile(path, testutil.ASCIIPLY(rows...), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := inspect(path, &out); err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	want := "Loaded 2 gaussians\nFirst gaussian pos: (1.5, 2, 3)\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}
