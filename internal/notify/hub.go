package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/scry-tasks/internal/events"
	"github.com/phrazzld/scry-tasks/internal/task"
)

// Frame types sent to subscribers.
const (
	FrameSnapshot = "snapshot"
	FrameError    = "error"
)

// Frame is one message on a subscription stream.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Sink delivers frames to one connected subscriber.
type Sink interface {
	// Send writes a frame. An error means the subscriber is gone.
	Send(ctx context.Context, frame Frame) error

	// Done is closed once the subscriber disconnects.
	Done() <-chan struct{}
}

// Source reads record snapshots. *task.Store satisfies it.
type Source interface {
	Snapshot(token, taskID string) (task.Record, error)
	SnapshotAll(token string) map[string]task.Record
}

// Config holds configuration for the Hub
type Config struct {
	// PollInterval is how often subscribers re-read state without a change event
	PollInterval time.Duration
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{PollInterval: 500 * time.Millisecond}
}

type subscriber struct {
	wake chan struct{}
	done <-chan struct{}
}

// Hub fans record changes out to subscribers, grouped by client token.
type Hub struct {
	source   Source
	interval time.Duration
	logger   *slog.Logger

	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

var _ events.EventHandler = (*Hub)(nil)

// NewHub creates a Hub reading from source.
func NewHub(source Source, config Config, logger *slog.Logger) *Hub {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	return &Hub{
		source:   source,
		interval: config.PollInterval,
		logger:   logger.With("component", "notification_hub"),
		subs:     make(map[string]map[*subscriber]struct{}),
	}
}

// Serve streams snapshots to sink until the stream ends. With a task id it
// follows that record and returns nil once it reaches COMPLETED or ERROR; an
// unknown id sends one error frame and returns an error wrapping
// task.ErrNotFound. With an empty task id it streams the whole session until
// ctx is done or the sink disconnects.
func (h *Hub) Serve(ctx context.Context, token, taskID string, sink Sink) error {
	sub := h.subscribe(token, sink.Done())
	defer h.unsubscribe(token, sub)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last []byte
	for {
		frame, terminal, err := h.read(token, taskID)
		if err != nil {
			errFrame := Frame{Type: FrameError, Data: task.ErrorPayload{Message: err.Error()}}
			if sendErr := sink.Send(ctx, errFrame); sendErr != nil {
				h.logger.Debug("failed to send error frame", "error", sendErr)
			}
			return err
		}

		encoded, err := json.Marshal(frame)
		if err != nil {
			return fmt.Errorf("failed to encode frame: %w", err)
		}
		if !bytes.Equal(encoded, last) {
			if err := sink.Send(ctx, frame); err != nil {
				return fmt.Errorf("subscriber disconnected: %w", err)
			}
			last = encoded
		}
		if terminal {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-sink.Done():
			return nil
		case <-ticker.C:
		case <-sub.wake:
		}
	}
}

func (h *Hub) read(token, taskID string) (Frame, bool, error) {
	if taskID == "" {
		return Frame{Type: FrameSnapshot, Data: h.source.SnapshotAll(token)}, false, nil
	}
	rec, err := h.source.Snapshot(token, taskID)
	if err != nil {
		return Frame{}, false, err
	}
	return Frame{Type: FrameSnapshot, Data: rec}, rec.Status.IsTerminal(), nil
}

func (h *Hub) subscribe(token string, done <-chan struct{}) *subscriber {
	sub := &subscriber{wake: make(chan struct{}, 1), done: done}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[token]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[token] = set
	}
	set[sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(token string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(token, sub)
}

func (h *Hub) removeLocked(token string, sub *subscriber) {
	set := h.subs[token]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, token)
	}
}

// Broadcast wakes every live subscriber of token. Subscribers whose sink
// has disconnected are dropped.
func (h *Hub) Broadcast(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[token] {
		select {
		case <-sub.done:
			h.removeLocked(token, sub)
			continue
		default:
		}
		select {
		case sub.wake <- struct{}{}:
		default:
			// A wake-up is already pending
		}
	}
}

// HandleEvent implements events.EventHandler.
func (h *Hub) HandleEvent(_ context.Context, event *events.TaskEvent) error {
	if event == nil {
		return errors.New("nil event")
	}
	h.Broadcast(event.ClientToken)
	return nil
}

// SubscriberCount returns the number of live subscribers of token.
func (h *Hub) SubscriberCount(token string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[token])
}
