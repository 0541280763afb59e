package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"prdkit/internal/config"
	"prdkit/internal/util"
	"prdkit/services/drafts/app"
)

func main() {
	cfg, err := config.Load(os.Getenv("PRDKIT_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := util.InitLogger(cfg.LogLevel)

	a, err := app.New(cfg)
	if err != nil {
		logger.Error("failed to init drafts service", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.Run(ctx); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
