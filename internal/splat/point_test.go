package splat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func identityRaw() RawPoint {
	return RawPoint{Rot0: 1}
}

func TestFromRaw_Identity(t *testing.T) {
	p, key := FromRaw(identityRaw())

	assert.Contains(t, []uint8{127, 128}, p.Color[3], "sigmoid(0) should quantize to 127 or 128")
	assert.Equal(t, [3]float32{1, 1, 1}, p.Scale)
	assert.Equal(t, [4]uint8{255, 128, 128, 128}, p.Rotation)
	assert.Equal(t, [3]uint8{127, 127, 127}, [3]uint8{p.Color[0], p.Color[1], p.Color[2]})
	assert.Equal(t, float32(-0.5), key)
}

func TestFromRaw_OpacityExtremes(t *testing.T) {
	p, key := FromRaw(RawPoint{Opacity: 100})
	assert.Equal(t, uint8(255), p.Color[3])
	assert.Equal(t, float32(-1), key)

	p, key = FromRaw(RawPoint{Opacity: -100})
	assert.Equal(t, uint8(0), p.Color[3])
	assert.Equal(t, float32(0), float32(math.Abs(float64(key))))
}

func TestFromRaw_Color(t *testing.T) {
	tests := []struct {
		name string
		dc   float32
		want uint8
	}{
		{"zero", 0, 127},
		{"saturates high", 10, 255},
		{"saturates low", -10, 0},
		// 0.5 + 0.2820948 = 0.7820948 -> 199.43
		{"one", 1, 199},
		// 0.5 - 0.2820948 = 0.2179052 -> 55.57, truncated not rounded
		{"minus one", -1, 55},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := FromRaw(RawPoint{FDC0: tt.dc, FDC1: tt.dc, FDC2: tt.dc})
			assert.Equal(t, [3]uint8{tt.want, tt.want, tt.want}, [3]uint8{p.Color[0], p.Color[1], p.Color[2]})
		})
	}
}

func TestFromRaw_ScaleAndVolume(t *testing.T) {
	p, key := FromRaw(RawPoint{Scale0: 1, Scale1: -1, Scale2: 2, Opacity: 100})

	assert.InDelta(t, math.E, p.Scale[0], 1e-6)
	assert.InDelta(t, 1/math.E, p.Scale[1], 1e-6)
	assert.InDelta(t, math.E*math.E, p.Scale[2], 1e-5)
	// volume = exp(1 - 1 + 2), alpha = 1
	assert.InDelta(t, -math.E*math.E, key, 1e-5)
}

func TestFromRaw_Rotation(t *testing.T) {
	tests := []struct {
		name string
		q    [4]float32
		want [4]uint8
	}{
		{"identity", [4]float32{1, 0, 0, 0}, [4]uint8{255, 128, 128, 128}},
		{"unnormalized identity", [4]float32{4, 0, 0, 0}, [4]uint8{255, 128, 128, 128}},
		{"zero length", [4]float32{0, 0, 0, 0}, [4]uint8{255, 128, 128, 128}},
		{"negative axis", [4]float32{0, -2, 0, 0}, [4]uint8{128, 0, 128, 128}},
		// each component 0.5 -> 192
		{"half", [4]float32{1, 1, 1, 1}, [4]uint8{192, 192, 192, 192}},
		{"nan", [4]float32{float32(math.NaN()), 0, 0, 0}, [4]uint8{255, 128, 128, 128}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := FromRaw(RawPoint{Rot0: tt.q[0], Rot1: tt.q[1], Rot2: tt.q[2], Rot3: tt.q[3]})
			assert.Equal(t, tt.want, p.Rotation)
		})
	}
}

func TestFromRaw_PositionPassthrough(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	p, _ := FromRaw(RawPoint{X: 1.5, Y: nan, Z: -inf})

	assert.Equal(t, float32(1.5), p.Position[0])
	assert.True(t, math.IsNaN(float64(p.Position[1])))
	assert.True(t, math.IsInf(float64(p.Position[2]), -1))
}

func TestFromRaw_Deterministic(t *testing.T) {
	raw := RawPoint{X: 0.1, Y: 0.2, Z: 0.3, FDC0: 0.4, FDC1: -0.5, FDC2: 0.6, Opacity: 1.7,
		Scale0: -3, Scale1: -2.5, Scale2: -4, Rot0: 0.3, Rot1: 0.1, Rot2: -0.7, Rot3: 0.2}

	p1, k1 := FromRaw(raw)
	p2, k2 := FromRaw(raw)
	assert.Equal(t, Serialize([]PackedPoint{p1}), Serialize([]PackedPoint{p2}))
	assert.Equal(t, math.Float32bits(k1), math.Float32bits(k2))
}

func TestFromRaw_NonFiniteNeverPanics(t *testing.T) {
	specials := []float32{
		0, -0.0, 1, -1,
		float32(math.NaN()), float32(math.Inf(1)), float32(math.Inf(-1)),
		math.MaxFloat32, -math.MaxFloat32, math.SmallestNonzeroFloat32,
	}
	for _, a := range specials {
		for _, b := range specials {
			raw := RawPoint{a, b, a, a, b, a, b, a, b, a, a, b, a, b}
			assert.NotPanics(t, func() { FromRaw(raw) })
		}
	}
}

func TestFromRaw_NaNOpacity(t *testing.T) {
	p, key := FromRaw(RawPoint{Opacity: float32(math.NaN())})
	assert.Equal(t, uint8(0), p.Color[3])
	assert.True(t, math.IsNaN(float64(key)))
}

func TestToByte(t *testing.T) {
	tests := []struct {
		in   float32
		want uint8
	}{
		{0, 0},
		{0.99, 0},
		{1, 1},
		{127.5, 127},
		{254.999, 254},
		{255, 255},
		{256, 255},
		{-3, 0},
		{float32(math.NaN()), 0},
		{float32(math.Inf(1)), 255},
		{float32(math.Inf(-1)), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, toByte(tt.in), "toByte(%v)", tt.in)
	}
}
