// Package splat converts decoded Gaussian-splat scene points into the
// fixed 32-byte SPLAT record used by web and GPU renderers.
//
// A record is laid out as
//
//	offset  size  field
//	0       12    position   3 x float32
//	12      12    scale      3 x float32 (linear, exp of log-scale)
//	24      4     color      R, G, B, A as uint8
//	28      4     rotation   normalized quaternion, 4 x uint8
//
// with floats stored little-endian. The layout has no padding, so a
// contiguous run of records can be uploaded to a vertex buffer as-is.
package splat

import "math"

// RecordSize is the encoded size of one PackedPoint in bytes.
const RecordSize = 32

// shC0 is the zeroth-order spherical harmonic basis constant used to turn
// a DC coefficient into a colour channel.
const shC0 float32 = 0.2820948

// RawPoint holds the per-vertex properties of a Gaussian-splat PLY file,
// exactly as stored: log-scale, logit opacity and an unnormalized
// quaternion. Field order matches the PLY property names.
type RawPoint struct {
	X, Y, Z                float32
	FDC0, FDC1, FDC2       float32
	Opacity                float32
	Scale0, Scale1, Scale2 float32
	Rot0, Rot1, Rot2, Rot3 float32
}

// PackedPoint is one SPLAT record.
type PackedPoint struct {
	Position [3]float32
	Scale    [3]float32
	Color    [4]uint8 // R, G, B, A
	Rotation [4]uint8
}

// FromRaw activates and quantizes a raw point. The second return value is
// the importance sort key, -(volume * alpha); larger, more opaque splats
// get more negative keys and therefore sort first.
//
// FromRaw never panics. NaN and infinite inputs produce well-defined bytes
// (NaN channels quantize to 0) and may produce a NaN key.
func FromRaw(p RawPoint) (PackedPoint, float32) {
	var out PackedPoint

	out.Position = [3]float32{p.X, p.Y, p.Z}

	out.Color[0] = unitToByte(dcToColor(p.FDC0))
	out.Color[1] = unitToByte(dcToColor(p.FDC1))
	out.Color[2] = unitToByte(dcToColor(p.FDC2))

	alpha := clamp(sigmoid(p.Opacity), 0, 1)
	out.Color[3] = unitToByte(alpha)

	out.Scale = [3]float32{exp32(p.Scale0), exp32(p.Scale1), exp32(p.Scale2)}

	out.Rotation = packRotation(p.Rot0, p.Rot1, p.Rot2, p.Rot3)

	volume := exp32(float32(float32(p.Scale0+p.Scale1) + p.Scale2))
	key := -float32(volume * alpha)

	return out, key
}

// dcToColor maps a DC coefficient to a [0,1] colour value. The explicit
// float32 conversion stops the compiler fusing the multiply-add, which
// would change rounding on some architectures.
func dcToColor(c float32) float32 {
	return clamp(0.5+float32(shC0*c), 0, 1)
}

func sigmoid(logit float32) float32 {
	return 1 / (1 + exp32(-logit))
}

// packRotation normalizes q and maps each component from [-1,1] to a byte
// centred on 128. A zero (or NaN) length quaternion becomes the identity.
func packRotation(r0, r1, r2, r3 float32) [4]uint8 {
	sq := float32(float32(float32(r0*r0)+float32(r1*r1))+float32(r2*r2)) + float32(r3*r3)
	n := float32(math.Sqrt(float64(sq)))

	q := [4]float32{1, 0, 0, 0}
	if n > 0 {
		q = [4]float32{r0 / n, r1 / n, r2 / n, r3 / n}
	}

	var out [4]uint8
	for i, c := range q {
		out[i] = toByte(clamp(float32(c*128)+128, 0, 255))
	}
	return out
}

func unitToByte(v float32) uint8 {
	return toByte(float32(v * 255))
}

// toByte truncates toward zero and saturates, so NaN and negative values
// become 0 and anything at or above 255 becomes 255. Go leaves
// out-of-range float to integer conversions implementation-defined, so
// the bounds are checked first.
func toByte(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// clamp bounds v to [lo, hi]; NaN is returned unchanged.
func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func exp32(v float32) float32 {
	return float32(math.Exp(float64(v)))
}
