package shared

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/scry-tasks/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusAccepted, map[string]string{"task_id": "abcd1234"})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"task_id":"abcd1234"}`, w.Body.String())
}

func TestRespondWithError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(SetTraceID(req.Context()))
	w := httptest.NewRecorder()

	RespondWithError(w, req, http.StatusNotFound, "Task not found")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Task not found", resp.Error)
	assert.Equal(t, GetTraceID(req.Context()), resp.TraceID)
	assert.Empty(t, resp.Status)
}

func TestRespondWithErrorAndLog(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		opts      []ResponseOption
		wantLevel string
	}{
		{"server error", http.StatusInternalServerError, nil, "ERROR"},
		{"client error", http.StatusBadRequest, nil, "DEBUG"},
		{"elevated client error", http.StatusUnauthorized, []ResponseOption{WithElevatedLogLevel()}, "WARN"},
		{"queue full", http.StatusServiceUnavailable, nil, "WARN"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			req := httptest.NewRequest(http.MethodPost, "/api/functions/x", nil)
			req = req.WithContext(logger.WithLogger(context.Background(), log))
			w := httptest.NewRecorder()

			secret := errors.New("connect failed password=hunter2")
			RespondWithErrorAndLog(w, req, tc.status, "Something failed", secret, tc.opts...)

			assert.Equal(t, tc.status, w.Code)
			assert.NotContains(t, w.Body.String(), "hunter2")
			assert.NotContains(t, buf.String(), "hunter2")

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tc.wantLevel, entry["level"])
			assert.Equal(t, "Something failed", entry["user_message"])
		})
	}
}

func TestRespondWithErrorAndLogTaskStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/tasks/abc/result", nil)
	w := httptest.NewRecorder()

	RespondWithErrorAndLog(w, req, http.StatusBadRequest, "Task not completed", nil, WithTaskStatus("PROCESSING"))

	assert.JSONEq(t, `{"error":"Task not completed","status":"PROCESSING"}`, w.Body.String())
}
