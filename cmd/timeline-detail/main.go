package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"timeline/internal/platform/logger"
)

func main() {
	logger.Init(logger.FromEnv())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		rootCmd.PrintErrf("Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
