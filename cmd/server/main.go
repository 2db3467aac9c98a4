// Package main implements the entry point for the scry task server, which
// runs registered tasks in the background on behalf of isolated clients and
// streams their progress.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/phrazzld/scry-tasks/internal/config"
	"github.com/phrazzld/scry-tasks/internal/platform/logger"
)

func main() {
	if err := runServer(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// runServer loads configuration, builds the application and blocks until it stops.
func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("Server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Int("worker_count", cfg.Task.WorkerCount))

	app, err := newApplication(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
