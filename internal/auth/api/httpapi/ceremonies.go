package httpapi

import (
	"sync"
	"time"

	"github.com/louisbranch/crossing.space/internal/auth/passkey"
	apperrors "github.com/louisbranch/crossing.space/internal/platform/errors"
	"github.com/louisbranch/crossing.space/internal/platform/id"
)

// ceremony is an in-flight WebAuthn ceremony awaiting its second request.
type ceremony struct {
	challenge passkey.Challenge
	ownerID   int64
	createdAt time.Time
}

// ceremonyStore is a thread-safe store for in-flight ceremonies. Challenges
// live only here for the duration of a ceremony; nothing is persisted.
type ceremonyStore struct {
	mu         sync.Mutex
	ceremonies map[string]ceremony
	clock      func() time.Time
}

func newCeremonyStore() *ceremonyStore {
	return &ceremonyStore{
		ceremonies: make(map[string]ceremony),
		clock:      time.Now,
	}
}

// create stores a ceremony and returns its opaque ID.
func (s *ceremonyStore) create(challenge passkey.Challenge, ownerID int64) (string, error) {
	ceremonyID, err := id.NewID()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.ceremonies[ceremonyID] = ceremony{
		challenge: challenge,
		ownerID:   ownerID,
		createdAt: s.clock(),
	}
	s.mu.Unlock()
	return ceremonyID, nil
}

// consume retrieves and removes a ceremony by ID. A missing ID and an
// expired ceremony surface as distinct errors so clients can restart
// cleanly.
func (s *ceremonyStore) consume(ceremonyID string) (ceremony, error) {
	s.mu.Lock()
	entry, ok := s.ceremonies[ceremonyID]
	if ok {
		delete(s.ceremonies, ceremonyID)
	}
	s.mu.Unlock()
	if !ok {
		return ceremony{}, apperrors.New(apperrors.CodeCeremonyNotFound, "ceremony not found")
	}
	if entry.challenge.Expired(s.clock()) {
		return ceremony{}, apperrors.New(apperrors.CodeCeremonyExpired, "ceremony challenge expired")
	}
	return entry, nil
}

// cleanupExpired drops ceremonies whose challenges can no longer validate.
func (s *ceremonyStore) cleanupExpired(now time.Time) {
	s.mu.Lock()
	for ceremonyID, entry := range s.ceremonies {
		if entry.challenge.Expired(now) {
			delete(s.ceremonies, ceremonyID)
		}
	}
	s.mu.Unlock()
}
