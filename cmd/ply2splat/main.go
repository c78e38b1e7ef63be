// Command ply2splat converts a Gaussian-splat PLY file into the 32-byte
// SPLAT record format.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("ply2splat: %v", err)
	}
}
