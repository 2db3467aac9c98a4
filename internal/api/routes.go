package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handlers groups the handlers mounted under /api.
type Handlers struct {
	Tasks    *TaskHandler
	Streams  *StreamHandler
	Sessions *SessionHandler

	// ClientToken resolves the caller's client id for every task route
	ClientToken func(http.Handler) http.Handler
}

// RegisterRoutes mounts the task API on r.
func RegisterRoutes(r chi.Router, h Handlers) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/session", h.Sessions.CreateSession)

		r.Group(func(r chi.Router) {
			r.Use(h.ClientToken)

			r.Get("/functions", h.Tasks.ListFunctions)
			r.Post("/functions/{name}", h.Tasks.StartTask)

			r.Get("/tasks", h.Tasks.GetAllStatus)
			r.Get("/tasks/ws", h.Streams.ServeWebSocket)
			r.Get("/tasks/stream", h.Streams.ServeSSE)
			r.Get("/tasks/{taskID}", h.Tasks.GetStatus)
			r.Get("/tasks/{taskID}/result", h.Tasks.GetResult)
			r.Post("/tasks/{taskID}/cancel", h.Tasks.CancelTask)
		})
	})
}
