package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/scry-tasks/internal/api/shared"
	"github.com/phrazzld/scry-tasks/internal/platform/logger"
	"github.com/phrazzld/scry-tasks/internal/task"
)

// ListFunctionsResponse is the body of GET /api/functions.
type ListFunctionsResponse struct {
	Functions []task.FunctionInfo `json:"functions"`
}

// StartTaskResponse is the body of an accepted start or cancel request.
type StartTaskResponse struct {
	TaskID string `json:"task_id"`
}

// AllTasksResponse is the body of GET /api/tasks.
type AllTasksResponse struct {
	AllTasks map[string]task.Record `json:"all_tasks"`
}

// ResultResponse is the body of GET /api/tasks/{taskID}/result.
type ResultResponse struct {
	Result any `json:"result"`
}

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	registry   *task.Registry
	supervisor *task.Supervisor
	query      *task.QueryService
	logger     *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(
	registry *task.Registry,
	supervisor *task.Supervisor,
	query *task.QueryService,
	logger *slog.Logger,
) *TaskHandler {
	return &TaskHandler{
		registry:   registry,
		supervisor: supervisor,
		query:      query,
		logger:     logger.With("component", "task_handler"),
	}
}

// ListFunctions handles GET /api/functions requests
func (h *TaskHandler) ListFunctions(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, ListFunctionsResponse{
		Functions: h.registry.ListTaskFunctions(),
	})
}

// StartTask handles POST /api/functions/{name} requests. The body is the
// raw argument value.
func (h *TaskHandler) StartTask(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")

	raw, err := shared.ReadJSONBody(w, r)
	if err != nil {
		respondWithTaskError(w, r, err)
		return
	}

	taskID, err := h.supervisor.StartTask(r.Context(), clientID, name, raw)
	if err != nil {
		respondWithTaskError(w, r, err)
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("task started",
		"task_id", taskID,
		"task_name", name)

	// 202 Accepted since the body runs in the background
	shared.RespondWithJSON(w, r, http.StatusAccepted, StartTaskResponse{TaskID: taskID})
}

// GetAllStatus handles GET /api/tasks requests
func (h *TaskHandler) GetAllStatus(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, AllTasksResponse{
		AllTasks: h.query.GetAllStatus(clientID),
	})
}

// GetStatus handles GET /api/tasks/{taskID} requests
func (h *TaskHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}

	rec, err := h.query.GetStatus(clientID, chi.URLParam(r, "taskID"))
	if err != nil {
		respondWithTaskError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, rec)
}

// GetResult handles GET /api/tasks/{taskID}/result requests
func (h *TaskHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}

	result, err := h.query.GetResult(clientID, chi.URLParam(r, "taskID"))
	if err != nil {
		respondWithTaskError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ResultResponse{Result: result})
}

// CancelTask handles POST /api/tasks/{taskID}/cancel requests
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	clientID, ok := requireClientID(w, r)
	if !ok {
		return
	}

	taskID := chi.URLParam(r, "taskID")
	if err := h.supervisor.Cancel(r.Context(), clientID, taskID); err != nil {
		respondWithTaskError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, StartTaskResponse{TaskID: taskID})
}

// requireClientID reads the client id placed in the context by the client
// token middleware.
func requireClientID(w http.ResponseWriter, r *http.Request) (string, bool) {
	clientID, ok := shared.GetClientID(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Client token required")
		return "", false
	}
	return clientID, true
}
