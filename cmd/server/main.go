// Package main is the plain server entry point. It loads configuration, runs
// the app until SIGINT/SIGTERM and exits with the code the app reports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dharsanguruparan/booktracker/internal/app"
	"github.com/dharsanguruparan/booktracker/internal/config"
	"github.com/dharsanguruparan/booktracker/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outcome := app.New(cfg, log).Run(ctx)
	stop()
	os.Exit(outcome.Code)
}
