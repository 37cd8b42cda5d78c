package storage

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/louisbranch/crossing.space/internal/auth/user"
	"github.com/louisbranch/crossing.space/internal/platform/errors"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New(errors.CodeNotFound, "record not found")

// UserStore persists owner identity records.
type UserStore interface {
	// CreateUser inserts a user and returns it with its assigned ID.
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, userID int64) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
}

// Credential stores a WebAuthn credential bound to an owner.
//
// CredentialID holds the unpadded base64url form of the raw credential ID as
// reported by the authenticator; it is the storage key and the wire
// representation. PublicKey holds the COSE-encoded key bytes unchanged.
type Credential struct {
	CredentialID string
	OwnerID      int64
	PublicKey    []byte
	SignCount    uint32
	AAGUID       []byte
	FriendlyName string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastUsedAt   *time.Time
}

// CredentialStore persists WebAuthn credential records.
type CredentialStore interface {
	// PutCredential inserts a credential. Credential ID uniqueness is
	// enforced by the store; violations surface as a storage error.
	PutCredential(ctx context.Context, credential Credential) error
	// GetCredential fetches a credential by its stored base64url ID.
	GetCredential(ctx context.Context, credentialID string) (Credential, error)
	ListCredentialsByOwner(ctx context.Context, ownerID int64) ([]Credential, error)
	// UpdateSignCount raises the stored counter to max(signCount, stored)
	// and refreshes the last-used timestamp.
	UpdateSignCount(ctx context.Context, credentialID string, signCount uint32, usedAt time.Time) (Credential, error)
	DeleteCredential(ctx context.Context, credentialID string) error
}

// FindCredential resolves a credential ID that may arrive in a different
// encoding than the stored base64url form.
//
// Clients and legacy rows disagree on encodings: some send raw bytes, some
// padded standard base64, some the stored form verbatim. Candidates are tried
// in a fixed order and the first hit wins; only a full miss maps to
// ErrNotFound.
func FindCredential(ctx context.Context, store CredentialStore, encodedID string) (Credential, error) {
	for _, candidate := range lookupCandidates(encodedID) {
		credential, err := store.GetCredential(ctx, candidate)
		if err == nil {
			return credential, nil
		}
		if errors.GetCode(err) != errors.CodeNotFound {
			return Credential{}, err
		}
	}
	return Credential{}, ErrNotFound
}

// lookupCandidates lists stored-key encodings to try for an incoming ID:
// exact match, base64url and standard base64 re-encodings of the input
// bytes, then re-encodings of the input decoded as base64url or standard
// base64 when it parses as either.
func lookupCandidates(input string) []string {
	candidates := []string{
		input,
		base64.RawURLEncoding.EncodeToString([]byte(input)),
		base64.StdEncoding.EncodeToString([]byte(input)),
	}
	if decoded, err := decodeBase64URL(input); err == nil {
		candidates = append(candidates, base64.RawURLEncoding.EncodeToString(decoded))
	}
	if decoded, err := decodeBase64Std(input); err == nil {
		candidates = append(candidates, base64.RawURLEncoding.EncodeToString(decoded))
	}

	seen := make(map[string]struct{}, len(candidates))
	unique := candidates[:0]
	for _, candidate := range candidates {
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		unique = append(unique, candidate)
	}
	return unique
}

func decodeBase64URL(value string) ([]byte, error) {
	if decoded, err := base64.RawURLEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	return base64.URLEncoding.DecodeString(value)
}

func decodeBase64Std(value string) ([]byte, error) {
	if decoded, err := base64.RawStdEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
