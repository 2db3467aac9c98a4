package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-tasks/internal/api"
	apiMiddleware "github.com/phrazzld/scry-tasks/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	lifetime := app.config.Auth.TokenLifetime()
	api.RegisterRoutes(r, api.Handlers{
		Tasks:       api.NewTaskHandler(app.registry, app.supervisor, app.query, app.logger),
		Streams:     api.NewStreamHandler(app.hub, app.logger),
		Sessions:    api.NewSessionHandler(app.tokens, lifetime),
		ClientToken: apiMiddleware.NewClientTokenMiddleware(app.tokens, lifetime).Handle,
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
