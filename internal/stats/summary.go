// Package stats summarises converted scenes and renders histogram reports.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/ply2splat/internal/splat"
)

// Summary describes a set of packed points. Non-finite values are skipped
// for every statistic; Count is the number of records.
type Summary struct {
	Count int

	Min [3]float64
	Max [3]float64

	AlphaMean   float64
	AlphaStdDev float64

	ScaleMean [3]float64

	VolumeP50 float64
	VolumeP90 float64
}

// Summarize computes a Summary. An empty slice yields the zero Summary.
func Summarize(points []splat.PackedPoint) Summary {
	s := Summary{Count: len(points)}
	if len(points) == 0 {
		return s
	}

	for axis := 0; axis < 3; axis++ {
		pos := finite(points, func(p splat.PackedPoint) float64 { return float64(p.Position[axis]) })
		if len(pos) > 0 {
			s.Min[axis] = floats.Min(pos)
			s.Max[axis] = floats.Max(pos)
		}
		scale := finite(points, func(p splat.PackedPoint) float64 { return float64(p.Scale[axis]) })
		if len(scale) > 0 {
			s.ScaleMean[axis] = stat.Mean(scale, nil)
		}
	}

	alpha := Alphas(points)
	if len(alpha) > 1 {
		s.AlphaMean, s.AlphaStdDev = stat.MeanStdDev(alpha, nil)
	} else {
		s.AlphaMean = alpha[0]
	}

	vol := Volumes(points)
	if len(vol) > 0 {
		sort.Float64s(vol)
		s.VolumeP50 = stat.Quantile(0.5, stat.Empirical, vol, nil)
		s.VolumeP90 = stat.Quantile(0.9, stat.Empirical, vol, nil)
	}
	return s
}

// Alphas returns each record's opacity scaled to [0, 1].
func Alphas(points []splat.PackedPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = float64(p.Color[3]) / 255
	}
	return out
}

// Volumes returns the finite scale products of the records.
func Volumes(points []splat.PackedPoint) []float64 {
	return finite(points, func(p splat.PackedPoint) float64 {
		return float64(p.Scale[0]) * float64(p.Scale[1]) * float64(p.Scale[2])
	})
}

func finite(points []splat.PackedPoint, f func(splat.PackedPoint) float64) []float64 {
	out := make([]float64, 0, len(points))
	for _, p := range points {
		if v := f(p); !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
