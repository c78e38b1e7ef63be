package ply

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/banshee-data/ply2splat/internal/splat"
)

// VertexProperties lists the recognized vertex properties in the order
// Encode writes them.
var VertexProperties = []string{
	"x", "y", "z",
	"f_dc_0", "f_dc_1", "f_dc_2",
	"opacity",
	"scale_0", "scale_1", "scale_2",
	"rot_0", "rot_1", "rot_2", "rot_3",
}

func rawFields(p *splat.RawPoint) [14]float32 {
	return [14]float32{
		p.X, p.Y, p.Z,
		p.FDC0, p.FDC1, p.FDC2,
		p.Opacity,
		p.Scale0, p.Scale1, p.Scale2,
		p.Rot0, p.Rot1, p.Rot2, p.Rot3,
	}
}

// Encode writes points as a PLY document with a single vertex element of
// float properties named as in VertexProperties.
func Encode(w io.Writer, format Format, points []splat.RawPoint, comments ...string) error {
	var order binary.ByteOrder
	switch format {
	case FormatASCII:
	case FormatBinaryLittleEndian:
		order = binary.LittleEndian
	case FormatBinaryBigEndian:
		order = binary.BigEndian
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ply\nformat %s 1.0\n", format)
	for _, c := range comments {
		fmt.Fprintf(bw, "comment %s\n", c)
	}
	fmt.Fprintf(bw, "element vertex %d\n", len(points))
	for _, name := range VertexProperties {
		fmt.Fprintf(bw, "property float %s\n", name)
	}
	bw.WriteString("end_header\n")

	var rec [14 * 4]byte
	for i := range points {
		fields := rawFields(&points[i])
		if order == nil {
			for j, v := range fields {
				if j > 0 {
					bw.WriteByte(' ')
				}
				bw.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
			}
			bw.WriteByte('\n')
			continue
		}
		for j, v := range fields {
			order.PutUint32(rec[4*j:], math.Float32bits(v))
		}
		bw.Write(rec[:])
	}
	return bw.Flush()
}
