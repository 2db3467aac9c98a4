package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/scry-tasks/internal/events"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore() *Store {
	return NewStore(DefaultStoreConfig(), testLogger())
}

func newTestRegistry(t *testing.T, defs ...Definition) *Registry {
	t.Helper()
	reg, err := NewRegistry(GroupFunc(func() []Definition { return defs }))
	require.NoError(t, err)
	return reg
}

// newTestSupervisor builds a started supervisor that is stopped at test cleanup.
func newTestSupervisor(
	t *testing.T,
	store *Store,
	emitter events.EventEmitter,
	config SupervisorConfig,
	defs ...Definition,
) *Supervisor {
	t.Helper()
	sup := NewSupervisor(newTestRegistry(t, defs...), store, emitter, config, testLogger())
	sup.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sup.Stop(ctx)
	})
	return sup
}

// waitForTerminal polls until the record reaches a terminal status.
func waitForTerminal(t *testing.T, store *Store, token, id string) Record {
	t.Helper()
	var rec Record
	require.Eventually(t, func() bool {
		var err error
		rec, err = store.Snapshot(token, id)
		return err == nil && rec.Status.IsTerminal()
	}, 5*time.Second, 5*time.Millisecond, "task %s did not finish", id)
	return rec
}

func waitForStatus(t *testing.T, store *Store, token, id string, status Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		rec, err := store.Snapshot(token, id)
		return err == nil && rec.Status == status
	}, 5*time.Second, 5*time.Millisecond, "task %s never reached %s", id, status)
}

// recordingHandler captures events for assertions.
type recordingHandler struct {
	mu     sync.Mutex
	events []events.TaskEvent
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *events.TaskEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, *event)
	return nil
}

func (h *recordingHandler) types(taskID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, e := range h.events {
		if e.TaskID == taskID {
			out = append(out, e.Type)
		}
	}
	return out
}

func sequenceIDs(ids ...string) IDGenerator {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		id := ids[i%len(ids)]
		i++
		return id
	}
}
