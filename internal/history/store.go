package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/sweeney/walk-tracker/internal/kv"
)

// Key is the persistence key holding the serialized history.
const Key = "walk_history"

// ErrPersistence is returned by Append when the durable write fails.
// The session is still kept in memory.
var ErrPersistence = errors.New("history: persist failed")

// Store is the in-memory history backed by a kv.Store.
// Appends are serialized; each one re-persists the whole collection.
type Store struct {
	kv     kv.Store
	logger *log.Logger

	mu       sync.Mutex
	sessions []WalkSession
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for absorbed read failures.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an empty Store. Call Load to read persisted sessions.
func New(store kv.Store, opts ...Option) *Store {
	s := &Store{kv: store, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory history with the persisted one.
// Absent, unreadable, or malformed data yields an empty history.
func (s *Store) Load(ctx context.Context) {
	sessions := s.read(ctx)

	s.mu.Lock()
	s.sessions = sessions
	s.mu.Unlock()
}

func (s *Store) read(ctx context.Context) []WalkSession {
	raw, ok, err := s.kv.GetString(ctx, Key)
	if err != nil {
		s.logger.Printf("history: read failed, starting empty: %v", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	sessions, err := Unmarshal([]byte(raw))
	if err != nil {
		s.logger.Printf("history: malformed data, starting empty: %v", err)
		return nil
	}
	return sessions
}

// Append adds session to the end of the history and persists the whole
// collection before returning. On a write failure the session stays in
// memory and an error wrapping ErrPersistence is returned.
func (s *Store) Append(ctx context.Context, session WalkSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = append(s.sessions, cloneSession(session))

	data, err := Marshal(s.sessions)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistence, err)
	}
	if err := s.kv.SetString(ctx, Key, string(data)); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// All returns the sessions in recording order, most recent last.
func (s *Store) All() []WalkSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WalkSession, len(s.sessions))
	for i, session := range s.sessions {
		out[i] = cloneSession(session)
	}
	return out
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Last returns the most recent session.
func (s *Store) Last() (WalkSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) == 0 {
		return WalkSession{}, false
	}
	return cloneSession(s.sessions[len(s.sessions)-1]), true
}

func cloneSession(s WalkSession) WalkSession {
	s.Path = append(s.Path[:0:0], s.Path...)
	return s
}
