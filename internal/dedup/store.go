// internal/dedup/store.go
package dedup

import (
	"sync"
	"time"

	"github.com/user/braingate/internal/types"
)

// Store is an in-memory TTL set of recently admitted event IDs. It is the
// only shared mutable state in the gateway; everything else lives in the
// remote runtime. Entries expire after the TTL, which should match the
// platform's maximum redelivery window.
type Store struct {
	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
	seen map[types.EventID]time.Time
}

// NewStore creates a Store with the given TTL.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[types.EventID]time.Time),
	}
}

// NewStoreWithClock creates a Store with an injected clock for tests.
func NewStoreWithClock(ttl time.Duration, now func() time.Time) *Store {
	s := NewStore(ttl)
	s.now = now
	return s
}

// Check atomically tests whether id was seen within the TTL and marks it
// seen. Returns true if this is a duplicate. When concurrent deliveries of
// the same event race, exactly one caller gets false.
func (s *Store) Check(id types.EventID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if at, ok := s.seen[id]; ok && now.Sub(at) < s.ttl {
		return true
	}
	s.seen[id] = now
	return false
}

// Seen reports whether id was marked within the TTL, without marking it.
func (s *Store) Seen(id types.EventID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.seen[id]
	return ok && s.now().Sub(at) < s.ttl
}

// MarkSeen records id without checking.
func (s *Store) MarkSeen(id types.EventID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[id] = s.now()
}

// Sweep evicts expired entries and returns the number removed. Expired
// entries are already treated as unseen by Check, so Sweep only bounds
// memory; it is safe to run on any schedule.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, at := range s.seen {
		if now.Sub(at) >= s.ttl {
			delete(s.seen, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
