package splat

import (
	"math"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is the number of points each worker converts per task.
const DefaultChunkSize = 64 * 1024

// Transformer converts raw points to SPLAT records on a fixed-size worker
// pool. The zero value uses one worker per CPU and DefaultChunkSize.
type Transformer struct {
	Workers   int
	ChunkSize int
}

// keyed pairs a record with its importance key for sorting.
type keyed struct {
	point PackedPoint
	key   float32
}

// TransformAll converts points with the default Transformer.
func TransformAll(points []RawPoint, sort bool) []PackedPoint {
	return Transformer{}.Transform(points, sort)
}

// Transform converts every point with FromRaw. With sort false the output
// order matches the input order. With sort true the output is ordered by
// ascending key, then ascending position x, y and z, compared with a
// total order that places NaN consistently. Points that compare equal keep
// their input order, so the output is fully determined by the input.
func (t Transformer) Transform(points []RawPoint, sort bool) []PackedPoint {
	workers := t.workers()
	chunk := t.chunkSize()

	items := make([]keyed, len(points))
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for start := 0; start < len(points); start += chunk {
		end := min(start+chunk, len(points))
		g.Go(func() error {
			for i := start; i < end; i++ {
				p, k := FromRaw(points[i])
				items[i] = keyed{point: p, key: k}
			}
			return nil
		})
	}
	// Workers never fail; Wait is the join barrier before sorting.
	_ = g.Wait()

	if sort {
		parallelStableSort(items, workers)
	}

	out := make([]PackedPoint, len(items))
	for i := range items {
		out[i] = items[i].point
	}
	return out
}

func (t Transformer) workers() int {
	if t.Workers > 0 {
		return t.Workers
	}
	return max(runtime.NumCPU(), 1)
}

func (t Transformer) chunkSize() int {
	if t.ChunkSize > 0 {
		return t.ChunkSize
	}
	return DefaultChunkSize
}

// compareKeyed orders by key, then x, y, z.
func compareKeyed(a, b keyed) int {
	if c := TotalCompare(a.key, b.key); c != 0 {
		return c
	}
	for i := 0; i < 3; i++ {
		if c := TotalCompare(a.point.Position[i], b.point.Position[i]); c != 0 {
			return c
		}
	}
	return 0
}

// TotalCompare compares two float32 values using the IEEE 754 totalOrder
// predicate: -NaN < -Inf < ... < -0 < +0 < ... < +Inf < +NaN. Unlike <,
// it is a total order, so sorts over NaN data stay deterministic.
func TotalCompare(a, b float32) int {
	x, y := totalKey(a), totalKey(b)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// totalKey maps float bits to a signed integer whose ordering matches
// totalOrder: negative floats have their magnitude bits flipped.
func totalKey(f float32) int32 {
	b := int32(math.Float32bits(f))
	return b ^ int32(uint32(b>>31)>>1)
}

// parallelStableSort sorts runs of items concurrently and merges them
// pairwise. Each run is sorted stably and merges take from the left run on
// ties, so the result equals a sequential stable sort.
func parallelStableSort(items []keyed, workers int) {
	n := len(items)
	if n < 2 {
		return
	}
	runs := workers
	if n < runs*minRunLen {
		runs = max(n/minRunLen, 1)
	}
	if runs == 1 {
		slices.SortStableFunc(items, compareKeyed)
		return
	}

	size := (n + runs - 1) / runs
	g := new(errgroup.Group)
	for start := 0; start < n; start += size {
		run := items[start:min(start+size, n)]
		g.Go(func() error {
			slices.SortStableFunc(run, compareKeyed)
			return nil
		})
	}
	_ = g.Wait()

	src, dst := items, make([]keyed, n)
	for ; size < n; size *= 2 {
		g := new(errgroup.Group)
		g.SetLimit(workers)
		for lo := 0; lo < n; lo += 2 * size {
			mid := min(lo+size, n)
			hi := min(lo+2*size, n)
			g.Go(func() error {
				mergeRuns(dst[lo:hi], src[lo:mid], src[mid:hi])
				return nil
			})
		}
		_ = g.Wait()
		src, dst = dst, src
	}
	if &src[0] != &items[0] {
		copy(items, src)
	}
}

// minRunLen keeps tiny inputs on the sequential path.
const minRunLen = 4096

func mergeRuns(dst, left, right []keyed) {
	i, j, k := 0, 0, 0
	for i < len(left) && j < len(right) {
		if compareKeyed(right[j], left[i]) < 0 {
			dst[k] = right[j]
			j++
		} else {
			dst[k] = left[i]
			i++
		}
		k++
	}
	k += copy(dst[k:], left[i:])
	copy(dst[k:], right[j:])
}
