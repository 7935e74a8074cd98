// Command atlasctl is the operator CLI for the GidroAtlas registry: browse,
// filter and chart water objects, and, with an expert account, edit objects
// and their priority records.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
