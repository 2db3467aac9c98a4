package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phrazzld/scry-tasks/internal/notify"
)

// webSocketSink writes frames as JSON text messages. gorilla/websocket
// allows one concurrent writer, so frames and pings share writeMu.
type webSocketSink struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

var _ notify.Sink = (*webSocketSink)(nil)

func newWebSocketSink(conn *websocket.Conn) *webSocketSink {
	return &webSocketSink{conn: conn, done: make(chan struct{})}
}

func (s *webSocketSink) Send(_ context.Context, frame notify.Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(frame); err != nil {
		s.close()
		return err
	}
	return nil
}

func (s *webSocketSink) Done() <-chan struct{} { return s.done }

func (s *webSocketSink) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// readPump discards client messages and detects disconnects.
func (s *webSocketSink) readPump() {
	defer s.close()

	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *webSocketSink) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.writeMu.Unlock()
			if err != nil {
				s.close()
				return
			}
		}
	}
}

// closeNormally tells the peer the stream is over.
func (s *webSocketSink) closeNormally() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// sseSink writes frames as Server-Sent Events named after the frame type.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	done    <-chan struct{}
}

var _ notify.Sink = (*sseSink)(nil)

func (s *sseSink) Send(_ context.Context, frame notify.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", frame.Type, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseSink) Done() <-chan struct{} { return s.done }
