package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/ydl/internal/shared"
)

func main() {
	logger := shared.NewLogger(os.Stderr)
	shared.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runner := NewRunner(RunnerOpts{Logger: logger})

	err := runner.app().Run(ctx, os.Args)
	stop()
	if err != nil {
		logger.Error("ydl failed", "error", err)
		os.Exit(exitCode(err))
	}
}
