package register

import (
	"sync"

	"github.com/google/uuid"
)

// Sessions is the process-wide registry of open order sessions, keyed by the
// opaque session key carried in the cashier's cookie.
type Sessions struct {
	mu sync.Mutex
	m  map[uuid.UUID]*OrderSession
}

func NewSessions() *Sessions {
	return &Sessions{m: make(map[uuid.UUID]*OrderSession)}
}

// Create opens an empty session and returns its key.
func (s *Sessions) Create() uuid.UUID {
	key := uuid.New()
	s.mu.Lock()
	s.m[key] = NewOrderSession()
	s.mu.Unlock()
	return key
}

func (s *Sessions) Get(key uuid.UUID) (*OrderSession, bool) {
	s.mu.Lock()
	sess, ok := s.m[key]
	s.mu.Unlock()
	return sess, ok
}

// Pop removes and returns the session, used when an order is placed or the
// session is abandoned.
func (s *Sessions) Pop(key uuid.UUID) (*OrderSession, bool) {
	s.mu.Lock()
	sess, ok := s.m[key]
	if ok {
		delete(s.m, key)
	}
	s.mu.Unlock()
	return sess, ok
}
