package main

import (
	"math"
	"math/rand"

	"github.com/banshee-data/ply2splat/internal/splat"
)

// generate places n gaussians on a noisy unit sphere with random colour,
// opacity, log-scale and rotation. The same seed yields the same scene.
func generate(n int, seed int64) []splat.RawPoint {
	rng := rand.New(rand.NewSource(seed))
	points := make([]splat.RawPoint, n)
	for i := range points {
		theta := rng.Float64() * 2 * math.Pi
		z := rng.Float64()*2 - 1
		r := 1 + rng.NormFloat64()*0.05
		s := math.Sqrt(1 - z*z)

		points[i] = splat.RawPoint{
			X:       float32(r * s * math.Cos(theta)),
			Y:       float32(r * s * math.Sin(theta)),
			Z:       float32(r * z),
			FDC0:    float32(rng.NormFloat64()),
			FDC1:    float32(rng.NormFloat64()),
			FDC2:    float32(rng.NormFloat64()),
			Opacity: float32(rng.NormFloat64() * 3),
			Scale0:  float32(-5 + rng.Float64()*2),
			Scale1:  float32(-5 + rng.Float64()*2),
			Scale2:  float32(-5 + rng.Float64()*2),
			Rot0:    float32(rng.NormFloat64()),
			Rot1:    float32(rng.NormFloat64()),
			Rot2:    float32(rng.NormFloat64()),
			Rot3:    float32(rng.NormFloat64()),
		}
	}
	return points
}
