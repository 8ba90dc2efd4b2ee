// Command elotune imports, rates, tunes and replays historical schedules.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/mrelo/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
