package server

import (
	"context"
	"sync"
	"time"

	"github.com/dyike/fupanxia/internal/state"
	"github.com/google/uuid"
)

// Session is one browser's in-memory state. Nothing here is persisted.
type Session struct {
	ID   string
	Ctrl *state.Controller

	mu        sync.Mutex
	startedAt time.Time
	lastSeen  time.Time
}

func (s *Session) markStarted(now time.Time) {
	s.mu.Lock()
	s.startedAt = now
	s.mu.Unlock()
}

func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// SessionStore maps session ids to sessions and forgets idle ones.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the live session for id and refreshes its idle clock.
func (st *SessionStore) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if ok {
		s.touch(st.now())
	}
	return s, ok
}

func (st *SessionStore) Create() *Session {
	now := st.now()
	s := &Session{
		ID:       uuid.NewString(),
		Ctrl:     state.NewController(),
		lastSeen: now,
	}
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops sessions idle for longer than the TTL, except those with an
// analysis in flight, and returns how many were removed.
func (st *SessionStore) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		if s.idleSince(now) > st.ttl && !s.Ctrl.IsAnalyzing() {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (st *SessionStore) RunJanitor(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}
