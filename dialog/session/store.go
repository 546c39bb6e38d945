package session

import (
	"sync"
	"time"
)

// Store is the injected session storage abstraction. The in-process
// implementation below is the only one today; the interface keeps flow logic
// independent of the backing so an external cache can replace it later.
type Store interface {
	Upsert(userID string, state State) *Session
	GetActive(userID string) (*Session, bool)
	Put(s *Session)
	Remove(userID string)
	Sweep() int
}

// NewMemoryStore constructs the in-memory Store used in production and tests.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// MemoryStore keeps one session per user behind an RWMutex.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// SetClock replaces the time source; used by tests to simulate expiry.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now != nil {
		m.now = now
	}
}

// Upsert replaces any existing session for the user with a fresh one in the
// given state. Override protection for in-progress bill payments is a routing
// policy enforced by the caller, not by the store.
func (m *MemoryStore) Upsert(userID string, state State) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := New(userID, state, m.now(), m.ttl)
	m.sessions[userID] = s
	return s
}

// GetActive returns the user's non-expired session if one exists. Expired
// entries encountered on the way are dropped lazily.
func (m *MemoryStore) GetActive(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, false
	}
	if s.Expired(m.now()) {
		delete(m.sessions, userID)
		return nil, false
	}
	return s, true
}

// Put stores an advanced session copy for its user, keeping the original TTL.
func (m *MemoryStore) Put(s *Session) {
	if s == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = s
}

// Remove deletes any session for the user unconditionally.
func (m *MemoryStore) Remove(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// Sweep proactively removes all expired sessions and returns how many were
// dropped. Sweeping twice in a row with no new activity is a no-op the second
// time.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for userID, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, userID)
			removed++
		}
	}
	return removed
}

// Size returns the number of stored sessions, expired or not.
func (m *MemoryStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
