package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. State is lost on restart.
// With a TTL, a session expires that long after its last save, like the
// redis store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// NewMemoryStore creates an empty in-memory store. ttl <= 0 keeps sessions
// until the process exits.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return State{}, nil
	}
	if entry.expired(s.now()) {
		delete(s.sessions, id)
		return State{}, nil
	}
	return entry.state.Clone(), nil
}

// Save stores state and drops every expired session.
func (s *MemoryStore) Save(_ context.Context, id string, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if s.ttl > 0 {
		for key, entry := range s.sessions {
			if entry.expired(now) {
				delete(s.sessions, key)
			}
		}
	}
	entry := memoryEntry{state: state.Clone()}
	if s.ttl > 0 {
		entry.expiresAt = now.Add(s.ttl)
	}
	s.sessions[id] = entry
	return nil
}

// size reports the number of stored sessions, expired ones included until
// they are evicted.
func (s *MemoryStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

var _ Store = (*MemoryStore)(nil)
