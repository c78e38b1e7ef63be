package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/ply2splat/internal/ply"
	"github.com/banshee-data/ply2splat/internal/splat"
	"github.com/banshee-data/ply2splat/internal/stats"
)

func inspect(path string, w io.Writer) error {
	if strings.EqualFold(filepath.Ext(path), ".ply") {
		return inspectPLY(path, w)
	}
	return inspectSplat(path, w)
}

func inspectPLY(path string, w io.Writer) error {
	points, err := ply.LoadFile(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Loaded %d gaussians\n", len(points))
	if len(points) > 0 {
		p := points[0]
		fmt.Fprintf(w, "First gaussian pos: (%v, %v, %v)\n", p.X, p.Y, p.Z)
	}
	return nil
}

func inspectSplat(path string, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	n, err := splat.Count(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	points, err := splat.Deserialize(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	s := stats.Summarize(points)
	fmt.Fprintf(w, "%s: %d records (%d bytes)\n", path, n, len(data))
	if n == 0 {
		return nil
	}
	fmt.Fprintf(w, "  bounds min: (%.4g, %.4g, %.4g)\n", s.Min[0], s.Min[1], s.Min[2])
	fmt.Fprintf(w, "  bounds max: (%.4g, %.4g, %.4g)\n", s.Max[0], s.Max[1], s.Max[2])
	fmt.Fprintf(w, "  alpha mean: %.4f stddev: %.4f\n", s.AlphaMean, s.AlphaStdDev)
	fmt.Fprintf(w, "  scale mean: (%.4g, %.4g, %.4g)\n", s.ScaleMean[0], s.ScaleMean[1], s.ScaleMean[2])
	fmt.Fprintf(w, "  volume p50: %.4g p90: %.4g\n", s.VolumeP50, s.VolumeP90)
	return nil
}
