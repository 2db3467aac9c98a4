package task

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// StoreConfig holds configuration for the session store
type StoreConfig struct {
	// TTL is how long a session without active tasks is kept after its last access
	TTL time.Duration

	// IDAttempts bounds task id generation retries on collision
	IDAttempts int
}

// DefaultStoreConfig returns a StoreConfig with reasonable defaults
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		TTL:        time.Hour,
		IDAttempts: 16,
	}
}

// Session holds the task records of one client token. Its fields may only be
// touched inside Store.WithExclusive.
type Session struct {
	token    string
	mu       sync.Mutex
	tasks    map[string]*Record
	pending  map[string]any
	lastSeen time.Time
	evicted  bool
}

// Token returns the client token owning the session.
func (s *Session) Token() string { return s.token }

// Task returns a copy of the record with the given id.
func (s *Session) Task(id string) (Record, bool) {
	rec, ok := s.tasks[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Records returns copies of every record in the session.
func (s *Session) Records() map[string]Record {
	out := make(map[string]Record, len(s.tasks))
	for id, rec := range s.tasks {
		out[id] = *rec
	}
	return out
}

// Len returns the number of records in the session.
func (s *Session) Len() int { return len(s.tasks) }

// PendingArguments reports whether arguments are staged for id.
func (s *Session) PendingArguments(id string) bool {
	_, ok := s.pending[id]
	return ok
}

func (s *Session) activeCount() int {
	n := 0
	for _, rec := range s.tasks {
		if rec.Active {
			n++
		}
	}
	return n
}

// takeArguments removes and returns the staged arguments for id.
func (s *Session) takeArguments(id string) (any, bool) {
	args, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	return args, ok
}

// Store owns every client session. The store mutex only guards the session
// map; record access is serialized per session.
//
// Lock order is store then session. Code holding a session lock must not
// call back into the Store.
type Store struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	ttl        time.Duration
	idAttempts int
	newID      IDGenerator
	now        func() time.Time
	logger     *slog.Logger
}

// NewStore creates an empty Store.
func NewStore(config StoreConfig, logger *slog.Logger) *Store {
	if config.IDAttempts <= 0 {
		config.IDAttempts = DefaultStoreConfig().IDAttempts
	}
	if config.TTL <= 0 {
		config.TTL = DefaultStoreConfig().TTL
	}

	return &Store{
		sessions:   make(map[string]*Session),
		ttl:        config.TTL,
		idAttempts: config.IDAttempts,
		newID:      NewShortID,
		now:        time.Now,
		logger:     logger.With("component", "session_store"),
	}
}

// SetIDGenerator replaces the task id source. It must be called before the
// store is shared between goroutines.
func (s *Store) SetIDGenerator(gen IDGenerator) {
	s.newID = gen
}

// GetOrCreate returns the session for token, creating it on first reference.
func (s *Store) GetOrCreate(token string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		sess = &Session{
			token:    token,
			tasks:    make(map[string]*Record),
			pending:  make(map[string]any),
			lastSeen: s.now(),
		}
		s.sessions[token] = sess
		s.logger.Debug("session created", "session_count", len(s.sessions))
	}
	return sess
}

// WithExclusive runs fn while holding the session's exclusive region. All
// reads and writes of a session's records go through here.
func (s *Store) WithExclusive(token string, fn func(*Session) error) error {
	for {
		sess := s.GetOrCreate(token)
		sess.mu.Lock()
		if sess.evicted {
			// Swept between lookup and lock; resolve again
			sess.mu.Unlock()
			continue
		}
		sess.lastSeen = s.now()
		err := fn(sess)
		sess.mu.Unlock()
		return err
	}
}

// createTaskID picks an id not yet used in sess. The caller holds sess.mu.
func (s *Store) createTaskID(sess *Session) (string, error) {
	for attempt := 0; attempt < s.idAttempts; attempt++ {
		id := s.newID()
		if _, taken := sess.tasks[id]; !taken && id != "" {
			return id, nil
		}
		s.logger.Debug("task id collision, retrying", "attempt", attempt+1)
	}
	return "", ErrIDSpaceExhausted
}

// Snapshot returns a copy of one record.
func (s *Store) Snapshot(token, id string) (Record, error) {
	var rec Record
	err := s.WithExclusive(token, func(sess *Session) error {
		var ok bool
		rec, ok = sess.Task(id)
		if !ok {
			return taskIDNotFound(id)
		}
		return nil
	})
	return rec, err
}

// SnapshotAll returns copies of every record of the session.
func (s *Store) SnapshotAll(token string) map[string]Record {
	var all map[string]Record
	_ = s.WithExclusive(token, func(sess *Session) error {
		all = sess.Records()
		return nil
	})
	return all
}

// SessionCount returns the number of live sessions.
func (s *Store) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep evicts sessions that have been idle for longer than the TTL and have
// no active tasks. Sessions busy at the time of the sweep are skipped.
// It returns the number of evicted sessions.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for token, sess := range s.sessions {
		if !sess.mu.TryLock() {
			continue
		}
		if now.Sub(sess.lastSeen) >= s.ttl && sess.activeCount() == 0 {
			sess.evicted = true
			delete(s.sessions, token)
			evicted++
		}
		sess.mu.Unlock()
	}
	return evicted
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				s.logger.Info("evicted idle sessions",
					"evicted_count", n,
					"session_count", s.SessionCount())
			}
		}
	}
}
