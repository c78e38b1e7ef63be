// Command splat-info validates a .splat file and prints a summary. Given a
// .ply file it prints the vertex count and first position instead.
package main

import (
	"flag"
	"log"
	"os"
)

func main() {
	flag.Usage = func() {
		log.Printf("usage: splat-info <file.splat|file.ply>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := inspect(flag.Arg(0), os.Stdout); err != nil {
		log.Fatalf("splat-info: %v", err)
	}
}
