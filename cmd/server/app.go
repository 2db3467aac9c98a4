package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-tasks/internal/auth"
	"github.com/phrazzld/scry-tasks/internal/config"
	"github.com/phrazzld/scry-tasks/internal/events"
	"github.com/phrazzld/scry-tasks/internal/notify"
	"github.com/phrazzld/scry-tasks/internal/task"
	"github.com/phrazzld/scry-tasks/internal/tasks/examples"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	tokens auth.TokenService

	registry   *task.Registry
	store      *task.Store
	supervisor *task.Supervisor
	query      *task.QueryService

	// Change events fan out to the stream hub
	eventEmitter *events.InMemoryEventEmitter
	hub          *notify.Hub
}

// newApplication creates a new application instance with all dependencies initialized.
// The supervisor is created but its workers are started by Run.
func newApplication(cfg *config.Config, logger *slog.Logger, groups ...task.Group) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.tokens, err = auth.NewTokenService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	logger.Info("Client token service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	if len(groups) == 0 {
		groups = []task.Group{examples.NewGroup()}
	}
	app.registry, err = task.NewRegistry(groups...)
	if err != nil {
		return nil, fmt.Errorf("failed to build task registry: %w", err)
	}
	logger.Info("Task registry built", "task_count", app.registry.Len())

	app.store = task.NewStore(task.StoreConfig{
		TTL:        cfg.Session.TTL(),
		IDAttempts: cfg.Task.IDAttempts,
	}, logger)
	app.query = task.NewQueryService(app.store)

	app.hub = notify.NewHub(app.store, notify.Config{
		PollInterval: cfg.Stream.PollInterval(),
	}, logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(app.hub)

	app.supervisor = task.NewSupervisor(app.registry, app.store, app.eventEmitter, task.SupervisorConfig{
		WorkerCount: cfg.Task.WorkerCount,
		QueueSize:   cfg.Task.QueueSize,
		Timeout:     cfg.Task.Timeout(),
	}, logger)

	logger.Info("Application initialized successfully")
	return app, nil
}

// cleanup stops the supervisor, giving running bodies the configured
// shutdown window to observe cancellation.
func (app *application) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout())
	defer cancel()

	if err := app.supervisor.Stop(ctx); err != nil {
		app.logger.Error("Error stopping task supervisor", "error", err)
	}
}
