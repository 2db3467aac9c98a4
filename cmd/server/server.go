package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/oklog/run"
)

// Run starts the workers, the HTTP server and the session janitor, and blocks
// until a termination signal arrives, ctx is cancelled or one of them fails.
func (app *application) Run(ctx context.Context) error {
	return app.runGroup(ctx, app.setupRouter())
}

func (app *application) runGroup(ctx context.Context, router http.Handler) error {
	app.supervisor.Start()
	defer app.cleanup()

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				app.logger.Info("Shutting down server...")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// HTTP server.
	{
		server := &http.Server{
			Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
			Handler: router,
		}

		g.Add(
			func() error {
				app.logger.Info("Starting server", "port", app.config.Server.Port)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			},
			func(_ error) {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout())
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					app.logger.Error("Server shutdown failed", "error", err)
				}
			},
		)
	}

	// Idle session eviction.
	{
		janitorCtx, janitorCancel := context.WithCancel(ctx)
		defer janitorCancel()

		g.Add(
			func() error {
				return app.store.RunJanitor(janitorCtx, app.config.Session.SweepInterval())
			},
			func(_ error) {
				janitorCancel()
			},
		)
	}

	err := g.Run()
	app.logger.Info("Server shutdown completed")
	return err
}
