// Command gen-ply writes a synthetic Gaussian-splat PLY scene for
// benchmarking and testing the converter.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/banshee-data/ply2splat/internal/ply"
)

func main() {
	output := flag.String("o", "synthetic.ply", "output path")
	count := flag.Int("n", 100000, "number of gaussians")
	seed := flag.Int64("seed", 1, "random seed")
	format := flag.String("format", "binary_little_endian", "ascii, binary_little_endian or binary_big_endian")
	flag.Parse()

	f, err := ply.ParseFormat(*format)
	if err != nil {
		log.Fatalf("gen-ply: %v", err)
	}

	fh, err := os.Create(*output)
	if err != nil {
		log.Fatalf("gen-ply: %v", err)
	}
	points := generate(*count, *seed)
	if err := ply.Encode(fh, f, points, "generated by gen-ply"); err != nil {
		fh.Close()
		log.Fatalf("gen-ply: %v", err)
	}
	if err := fh.Close(); err != nil {
		log.Fatalf("gen-ply: %v", err)
	}
	log.Printf("Created %s: %d gaussians (%s)", *output, len(points), f)
}
