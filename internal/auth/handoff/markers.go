package handoff

import (
	"sync"
	"time"
)

// MarkerStore tracks redeemed tokens so each can be used at most once.
type MarkerStore interface {
	// Insert records the token and reports whether it was newly recorded.
	Insert(token string, expiresAt time.Time) bool
	// Seen reports whether a live marker exists for the token.
	Seen(token string) bool
	// EvictExpired drops markers whose expiry passed.
	EvictExpired(now time.Time)
}

// MemoryMarkerStore keeps replay markers in process memory. Lookups evict
// expired entries lazily; EvictExpired sweeps the rest.
type MemoryMarkerStore struct {
	entries sync.Map
	clock   func() time.Time
}

// NewMemoryMarkerStore returns an empty in-memory marker store.
func NewMemoryMarkerStore() *MemoryMarkerStore {
	return &MemoryMarkerStore{clock: time.Now}
}

func (s *MemoryMarkerStore) Insert(token string, expiresAt time.Time) bool {
	for {
		existing, loaded := s.entries.LoadOrStore(token, expiresAt)
		if !loaded {
			return true
		}
		expiry, ok := existing.(time.Time)
		if ok && s.clock().Before(expiry) {
			return false
		}
		// Stale marker: replace it if nobody else did first.
		if s.entries.CompareAndSwap(token, existing, expiresAt) {
			return true
		}
	}
}

func (s *MemoryMarkerStore) Seen(token string) bool {
	existing, ok := s.entries.Load(token)
	if !ok {
		return false
	}
	expiry, valid := existing.(time.Time)
	if !valid || !s.clock().Before(expiry) {
		s.entries.Delete(token)
		return false
	}
	return true
}

func (s *MemoryMarkerStore) EvictExpired(now time.Time) {
	s.entries.Range(func(key, value any) bool {
		if expiry, ok := value.(time.Time); !ok || !now.Before(expiry) {
			s.entries.Delete(key)
		}
		return true
	})
}
