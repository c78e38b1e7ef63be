// Package testutil provides shared test helpers and PLY fixtures.
//
// Fixtures are built from plain rows of the 14 Gaussian-splat vertex
// properties (x y z f_dc_0..2 opacity scale_0..2 rot_0..3) so that any
// package can use them without an import cycle.
package testutil

import (
	"bytes"
	"fmt"
	"math/rand"
	"strconv"
	"testing"
)

// Row holds one vertex in PLY property order.
type Row [14]float32

// VertexHeader is the property block shared by the fixtures.
const VertexHeader = `property float x
property float y
property float z
property float f_dc_0
property float f_dc_1
property float f_dc_2
property float opacity
property float scale_0
property float scale_1
property float scale_2
property float rot_0
property float rot_1
property float rot_2
property float rot_3
`

// ASCIIPLY renders rows as an ascii PLY document.
func ASCIIPLY(rows ...Row) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "ply\nformat ascii 1.0\nelement vertex %d\n", len(rows))
	b.WriteString(VertexHeader)
	b.WriteString("end_header\n")
	for _, r := range rows {
		for i, v := range r {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
		}
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// RandomRows returns n reproducible rows with plausible scene values.
func RandomRows(n int, seed int64) []Row {
	rng := rand.New(rand.NewSource(seed))
	rows := make([]Row, n)
	for i := range rows {
		r := &rows[i]
		for j := 0; j < 3; j++ {
			r[j] = float32(rng.NormFloat64() * 5)
		}
		for j := 3; j < 6; j++ {
			r[j] = float32(rng.NormFloat64())
		}
		r[6] = float32(rng.NormFloat64() * 3)
		for j := 7; j < 10; j++ {
			r[j] = float32(rng.Float64()*6 - 7)
		}
		for j := 10; j < 14; j++ {
			r[j] = float32(rng.NormFloat64())
		}
	}
	return rows
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
