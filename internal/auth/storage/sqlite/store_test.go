package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/crossing.space/internal/auth/storage"
	"github.com/louisbranch/crossing.space/internal/auth/user"
	apperrors "github.com/louisbranch/crossing.space/internal/platform/errors"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auth.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func seedOwner(t *testing.T, store *Store) user.User {
	t.Helper()
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	created, err := store.CreateUser(context.Background(), user.User{
		Email:       "alpha@example.com",
		DisplayName: "Alpha",
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return created
}

func seedCredential(t *testing.T, store *Store, ownerID int64, credentialID string, signCount uint32) storage.Credential {
	t.Helper()
	now := time.Date(2026, 2, 1, 11, 0, 0, 0, time.UTC)
	credential := storage.Credential{
		CredentialID: credentialID,
		OwnerID:      ownerID,
		PublicKey:    []byte{0xA1, 0x01, 0x02},
		SignCount:    signCount,
		AAGUID:       []byte{0xAB, 0xCD},
		FriendlyName: "laptop",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.PutCredential(context.Background(), credential); err != nil {
		t.Fatalf("put credential: %v", err)
	}
	return credential
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestStoreDBNilSafe(t *testing.T) {
	var store *Store
	if store.DB() != nil {
		t.Fatal("expected nil DB for nil store")
	}
}

func TestCreateUserAssignsID(t *testing.T) {
	store := openTempStore(t)

	created := seedOwner(t, store)
	if created.ID <= 0 {
		t.Fatalf("id = %d, want positive", created.ID)
	}

	got, err := store.GetUser(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Email != "alpha@example.com" || got.DisplayName != "Alpha" {
		t.Fatalf("user = %+v", got)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created at = %v, want %v", got.CreatedAt, created.CreatedAt)
	}
}

func TestGetUserByEmail(t *testing.T) {
	store := openTempStore(t)
	created := seedOwner(t, store)

	got, err := store.GetUserByEmail(context.Background(), "  ALPHA@example.com ")
	if err != nil {
		t.Fatalf("get user by email: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("id = %d, want %d", got.ID, created.ID)
	}

	if _, err := store.GetUserByEmail(context.Background(), "nobody@example.com"); apperrors.GetCode(err) != apperrors.CodeNotFound {
		t.Fatalf("error code = %q, want %q", apperrors.GetCode(err), apperrors.CodeNotFound)
	}
}

func TestGetUserMissing(t *testing.T) {
	store := openTempStore(t)

	_, err := store.GetUser(context.Background(), 999)
	if apperrors.GetCode(err) != apperrors.CodeNotFound {
		t.Fatalf("error code = %q, want %q", apperrors.GetCode(err), apperrors.CodeNotFound)
	}
}

func TestPutGetCredentialRoundTrip(t *testing.T) {
	store := openTempStore(t)
	owner := seedOwner(t, store)
	credential := seedCredential(t, store, owner.ID, "YWJjZDEyMzQ", 5)

	got, err := store.GetCredential(context.Background(), credential.CredentialID)
	if err != nil {
		t.Fatalf("get credential: %v", err)
	}
	if got.OwnerID != owner.ID || got.SignCount != 5 || got.FriendlyName != "laptop" {
		t.Fatalf("credential = %+v", got)
	}
	if string(got.PublicKey) != string(credential.PublicKey) {
		t.Fatalf("public key = %x", got.PublicKey)
	}
	if got.LastUsedAt != nil {
		t.Fatalf("last used at = %v, want nil", got.LastUsedAt)
	}
}

func TestPutCredentialDuplicateID(t *testing.T) {
	store := openTempStore(t)
	owner := seedOwner(t, store)
	seedCredential(t, store, owner.ID, "ZHVwZQ", 0)

	err := store.PutCredential(context.Background(), storage.Credential{
		CredentialID: "ZHVwZQ",
		OwnerID:      owner.ID,
		PublicKey:    []byte{0xA0},
	})
	if apperrors.GetCode(err) != apperrors.CodeStorageFailed {
		t.Fatalf("error code = %q, want %q", apperrors.GetCode(err), apperrors.CodeStorageFailed)
	}
}

func TestPutCredentialValidation(t *testing.T) {
	store := openTempStore(t)
	owner := seedOwner(t, store)

	cases := []struct {
		name       string
		credential storage.Credential
	}{
		{"missing id", storage.Credential{OwnerID: owner.ID, PublicKey: []byte{0xA0}}},
		{"missing owner", storage.Credential{CredentialID: "YQ", PublicKey: []byte{0xA0}}},
		{"missing key", storage.Credential{CredentialID: "YQ", OwnerID: owner.ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.PutCredential(context.Background(), tc.credential)
			if apperrors.GetCode(err) != apperrors.CodeStorageFailed {
				t.Fatalf("error code = %q, want %q", apperrors.GetCode(err), apperrors.CodeStorageFailed)
			}
		})
	}
}

func TestListCredentialsByOwner(t *testing.T) {
	store := openTempStore(t)
	owner := seedOwner(t, store)
	seedCredential(t, store, owner.ID, "Y3JlZC0x", 0)
	seedCredential(t, store, owner.ID, "Y3JlZC0y", 0)

	credentials, err := store.ListCredentialsByOwner(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("list credentials: %v", err)
	}
	if len(credentials) != 2 {
		t.Fatalf("got %d credentials, want 2", len(credentials))
	}
}

func TestUpdateSignCountNeverDecreases(t *testing.T) {
	store := openTempStore(t)
	owner := seedOwner(t, store)
	seedCredential(t, store, owner.ID, "Y291bnRlcg", 5)
	usedAt := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

	updated, err := store.UpdateSignCount(context.Background(), "Y291bnRlcg", 3, usedAt)
	if err != nil {
		t.Fatalf("update sign count: %v", err)
	}
	if updated.SignCount != 5 {
		t.Fatalf("sign count = %d, want 5", updated.SignCount)
	}
	if updated.LastUsedAt == nil || !updated.LastUsedAt.Equal(usedAt) {
		t.Fatalf("last used at = %v, want %v", updated.LastUsedAt, usedAt)
	}

	updated, err = store.UpdateSignCount(context.Background(), "Y291bnRlcg", 9, usedAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("update sign count: %v", err)
	}
	if updated.SignCount != 9 {
		t.Fatalf("sign count = %d, want 9", updated.SignCount)
	}
}

func TestUpdateSignCountMissingCredential(t *testing.T) {
	store := openTempStore(t)

	_, err := store.UpdateSignCount(context.Background(), "bWlzc2luZw", 1, time.Now())
	if apperrors.GetCode(err) != apperrors.CodeNotFound {
		t.Fatalf("error code = %q, want %q", apperrors.GetCode(err), apperrors.CodeNotFound)
	}
}

func TestDeleteCredential(t *testing.T) {
	store := openTempStore(t)
	owner := seedOwner(t, store)
	seedCredential(t, store, owner.ID, "Z29uZQ", 0)

	if err := store.DeleteCredential(context.Background(), "Z29uZQ"); err != nil {
		t.Fatalf("delete credential: %v", err)
	}
	if _, err := store.GetCredential(context.Background(), "Z29uZQ"); apperrors.GetCode(err) != apperrors.CodeNotFound {
		t.Fatalf("error code = %q, want %q", apperrors.GetCode(err), apperrors.CodeNotFound)
	}
	if err := store.DeleteCredential(context.Background(), "Z29uZQ"); apperrors.GetCode(err) != apperrors.CodeNotFound {
		t.Fatalf("second delete code = %q, want %q", apperrors.GetCode(err), apperrors.CodeNotFound)
	}
}
