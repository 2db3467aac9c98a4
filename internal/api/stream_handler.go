package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phrazzld/scry-tasks/internal/api/middleware"
	"github.com/phrazzld/scry-tasks/internal/api/shared"
	"github.com/phrazzld/scry-tasks/internal/notify"
	"github.com/phrazzld/scry-tasks/internal/platform/logger"
	"github.com/phrazzld/scry-tasks/internal/redact"
	"github.com/phrazzld/scry-tasks/internal/task"
)

const (
	// writeWait bounds a single frame write
	writeWait = 10 * time.Second

	// pongWait is how long a WebSocket peer may stay silent
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait
	pingPeriod = (pongWait * 9) / 10
)

// StreamHandler serves live task snapshots over WebSocket and Server-Sent
// Events. Both endpoints take an optional task_id query parameter; without
// it the whole session is streamed.
type StreamHandler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewStreamHandler creates a new StreamHandler
func NewStreamHandler(hub *notify.Hub, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Access is scoped by the client token, not by origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.With("component", "stream_handler"),
	}
}

// ServeWebSocket handles GET /api/tasks/ws requests
func (h *StreamHandler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	taskID := r.URL.Query().Get("task_id")
	log := logger.FromContextOrDefault(r.Context(), h.logger).With("task_id", taskID)

	conn, err := h.upgrader.Upgrade(w, r, handshakeHeader(w))
	if err != nil {
		// Upgrade has already written an HTTP error
		log.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sink := newWebSocketSink(conn)
	go sink.readPump()
	go sink.pingLoop()
	defer sink.close()

	err = h.hub.Serve(r.Context(), clientID, taskID, sink)
	h.logStreamEnd(log, "websocket", err)
	sink.closeNormally()
}

// handshakeHeader carries a client token issued by the middleware into the
// upgrade response, which the upgrader writes without consulting w.Header().
func handshakeHeader(w http.ResponseWriter) http.Header {
	header := http.Header{}
	for _, key := range []string{"Set-Cookie", middleware.ClientTokenHeader} {
		for _, v := range w.Header().Values(key) {
			header.Add(key, v)
		}
	}
	return header
}

// ServeSSE handles GET /api/tasks/stream requests
func (h *StreamHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	taskID := r.URL.Query().Get("task_id")
	log := logger.FromContextOrDefault(r.Context(), h.logger).With("task_id", taskID)

	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := &sseSink{w: w, flusher: flusher, done: r.Context().Done()}
	err := h.hub.Serve(r.Context(), clientID, taskID, sink)
	h.logStreamEnd(log, "sse", err)
}

func (h *StreamHandler) logStreamEnd(log *slog.Logger, transport string, err error) {
	switch {
	case err == nil:
		log.Debug("stream ended", "transport", transport)
	case errors.Is(err, task.ErrNotFound):
		log.Debug("stream for unknown task", "transport", transport)
	default:
		log.Debug("stream aborted", "transport", transport, "error", redact.Error(err))
	}
}
