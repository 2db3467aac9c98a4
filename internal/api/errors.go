package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/scry-tasks/internal/api/shared"
	"github.com/phrazzld/scry-tasks/internal/auth"
	"github.com/phrazzld/scry-tasks/internal/task"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return http.StatusUnauthorized

	case errors.Is(err, task.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, task.ErrInvalidParameters),
		errors.Is(err, task.ErrNotCompleted),
		errors.Is(err, shared.ErrInvalidJSON):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrTerminal):
		return http.StatusConflict

	case errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrQueueClosed),
		errors.Is(err, task.ErrIDSpaceExhausted):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. Argument validation details are safe to echo;
// everything else is reduced to a fixed message.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var notFound *task.NotFoundError
	var invalid *task.InvalidParametersError

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Client token expired"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid client token"

	case errors.As(err, &notFound) && notFound.Kind == task.KindTaskName:
		return "Task function not found: " + notFound.Key
	case errors.Is(err, task.ErrNotFound):
		return "Task not found"

	case errors.As(err, &invalid):
		return "Invalid parameters: " + invalid.Detail
	case errors.Is(err, shared.ErrInvalidJSON):
		return "Invalid parameters: malformed JSON"
	case errors.Is(err, task.ErrNotCompleted):
		return "Task not completed"

	case errors.Is(err, task.ErrTerminal):
		return "Task already finished"

	case errors.Is(err, task.ErrQueueFull):
		return "Task queue is full, try again later"
	case errors.Is(err, task.ErrQueueClosed):
		return "Server is shutting down"
	case errors.Is(err, task.ErrIDSpaceExhausted):
		return "Could not allocate a task id, try again later"

	default:
		return "An unexpected error occurred"
	}
}

// respondWithTaskError maps err and writes the error response.
func respondWithTaskError(w http.ResponseWriter, r *http.Request, err error) {
	var opts []shared.ResponseOption
	var notCompleted *task.NotCompletedError
	if errors.As(err, &notCompleted) {
		opts = append(opts, shared.WithTaskStatus(string(notCompleted.Status)))
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err, opts...)
}
