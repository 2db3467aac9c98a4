package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/scry-tasks/internal/api/middleware"
	"github.com/phrazzld/scry-tasks/internal/auth"
	"github.com/phrazzld/scry-tasks/internal/config"
	"github.com/phrazzld/scry-tasks/internal/events"
	"github.com/phrazzld/scry-tasks/internal/notify"
	"github.com/phrazzld/scry-tasks/internal/task"
	"github.com/phrazzld/scry-tasks/internal/tasks/examples"
	"github.com/stretchr/testify/require"
)

const testSecret = "thisisatestsecretthatislongenough32chars"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testAPI is a running server wired like the production binary.
type testAPI struct {
	server *httptest.Server
	tokens auth.TokenService
	store  *task.Store
	sup    *task.Supervisor
}

// blockingTask waits on release so tests can observe a running task.
func blockingTask(release <-chan struct{}) task.Definition {
	return task.Definition{
		Name: "blocking",
		Handler: func(ctx context.Context, _ *task.TaskContext, _ any) (any, error) {
			select {
			case <-release:
				return "done", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
}

func newTestAPI(t *testing.T, extra ...task.Definition) *testAPI {
	t.Helper()
	logger := testLogger()

	registry, err := task.NewRegistry(
		examples.Group{Step: time.Millisecond, Tick: time.Millisecond},
		task.GroupFunc(func() []task.Definition { return extra }),
	)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(config.AuthConfig{TokenSecret: testSecret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)

	store := task.NewStore(task.DefaultStoreConfig(), logger)
	hub := notify.NewHub(store, notify.Config{PollInterval: 20 * time.Millisecond}, logger)
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(hub)

	sup := task.NewSupervisor(registry, store, emitter, task.DefaultSupervisorConfig(), logger)
	sup.Start()

	r := chi.NewRouter()
	RegisterRoutes(r, Handlers{
		Tasks:       NewTaskHandler(registry, sup, task.NewQueryService(store), logger),
		Streams:     NewStreamHandler(hub, logger),
		Sessions:    NewSessionHandler(tokens, time.Hour),
		ClientToken: middleware.NewClientTokenMiddleware(tokens, time.Hour).Handle,
	})
	server := httptest.NewServer(r)

	t.Cleanup(func() {
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sup.Stop(ctx)
	})
	return &testAPI{server: server, tokens: tokens, store: store, sup: sup}
}

// newClientToken returns a signed token and the client id it carries.
func (a *testAPI) newClientToken(t *testing.T) (string, string) {
	t.Helper()
	signed, clientID, err := a.tokens.Issue(context.Background())
	require.NoError(t, err)
	return signed, clientID
}

func (a *testAPI) do(t *testing.T, method, path, token, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

// waitForTerminal polls the status endpoint until the task finishes.
func (a *testAPI) waitForTerminal(t *testing.T, token, taskID string) task.Record {
	t.Helper()
	var rec task.Record
	require.Eventually(t, func() bool {
		req, _ := http.NewRequest(http.MethodGet, a.server.URL+"/api/tasks/"+taskID, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		if json.NewDecoder(resp.Body).Decode(&rec) != nil {
			return false
		}
		return rec.Status.IsTerminal()
	}, 5*time.Second, 5*time.Millisecond)
	return rec
}
