package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tcgprice/internal/jobs"
)

// Exit codes. Only lock contention exits 1 so a cron wrapper can tell a
// skipped run from a failed one.
const (
	exitOK         = 0
	exitJobRunning = 1
	exitFailure    = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
	}
	if code := exitCode(err); code != exitOK {
		stop()
		os.Exit(code)
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, jobs.ErrJobRunning):
		return exitJobRunning
	default:
		return exitFailure
	}
}
