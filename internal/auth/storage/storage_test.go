package storage

import (
	"context"
	"testing"
	"time"

	"github.com/louisbranch/crossing.space/internal/platform/errors"
)

type stubCredentialStore struct {
	credentials map[string]Credential
	failWith    error
}

func (s *stubCredentialStore) PutCredential(context.Context, Credential) error { return nil }

func (s *stubCredentialStore) GetCredential(_ context.Context, credentialID string) (Credential, error) {
	if s.failWith != nil {
		return Credential{}, s.failWith
	}
	credential, ok := s.credentials[credentialID]
	if !ok {
		return Credential{}, ErrNotFound
	}
	return credential, nil
}

func (s *stubCredentialStore) ListCredentialsByOwner(context.Context, int64) ([]Credential, error) {
	return nil, nil
}

func (s *stubCredentialStore) UpdateSignCount(context.Context, string, uint32, time.Time) (Credential, error) {
	return Credential{}, ErrNotFound
}

func (s *stubCredentialStore) DeleteCredential(context.Context, string) error { return nil }

func TestFindCredentialExactMatch(t *testing.T) {
	store := &stubCredentialStore{credentials: map[string]Credential{
		"YWJjZDEyMzQ": {CredentialID: "YWJjZDEyMzQ", OwnerID: 7},
	}}

	credential, err := FindCredential(context.Background(), store, "YWJjZDEyMzQ")
	if err != nil {
		t.Fatalf("FindCredential: %v", err)
	}
	if credential.OwnerID != 7 {
		t.Fatalf("owner id = %d, want 7", credential.OwnerID)
	}
}

func TestFindCredentialPaddedInput(t *testing.T) {
	store := &stubCredentialStore{credentials: map[string]Credential{
		"YWJjZDEyMzQ": {CredentialID: "YWJjZDEyMzQ", OwnerID: 7},
	}}

	credential, err := FindCredential(context.Background(), store, "YWJjZDEyMzQ=")
	if err != nil {
		t.Fatalf("FindCredential with padded input: %v", err)
	}
	if credential.CredentialID != "YWJjZDEyMzQ" {
		t.Fatalf("credential id = %q", credential.CredentialID)
	}
}

func TestFindCredentialRawBytesInput(t *testing.T) {
	store := &stubCredentialStore{credentials: map[string]Credential{
		"YWJjZDEyMzQ": {CredentialID: "YWJjZDEyMzQ", OwnerID: 7},
	}}

	credential, err := FindCredential(context.Background(), store, "abcd1234")
	if err != nil {
		t.Fatalf("FindCredential with raw input: %v", err)
	}
	if credential.CredentialID != "YWJjZDEyMzQ" {
		t.Fatalf("credential id = %q", credential.CredentialID)
	}
}

func TestFindCredentialMiss(t *testing.T) {
	store := &stubCredentialStore{credentials: map[string]Credential{}}

	_, err := FindCredential(context.Background(), store, "bWlzc2luZw")
	if errors.GetCode(err) != errors.CodeNotFound {
		t.Fatalf("error code = %q, want %q", errors.GetCode(err), errors.CodeNotFound)
	}
}

func TestFindCredentialPropagatesStoreFailure(t *testing.T) {
	storeErr := errors.New(errors.CodeStorageFailed, "disk unhappy")
	store := &stubCredentialStore{failWith: storeErr}

	_, err := FindCredential(context.Background(), store, "YWJjZDEyMzQ")
	if errors.GetCode(err) != errors.CodeStorageFailed {
		t.Fatalf("error code = %q, want %q", errors.GetCode(err), errors.CodeStorageFailed)
	}
}
