package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/crossing.space/internal/auth/storage"
	apperrors "github.com/louisbranch/crossing.space/internal/platform/errors"
)

// PutCredential inserts a passkey credential record.
//
// The credential ID primary key enforces global uniqueness; a duplicate insert
// surfaces as a storage error rather than silently overwriting an existing
// registration.
func (s *Store) PutCredential(ctx context.Context, credential storage.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ensureDB(); err != nil {
		return err
	}
	if field, err := validateCredential(credential); err != nil {
		return apperrors.WithMetadata(apperrors.CodeStorageFailed, err.Error(), map[string]string{"field": field})
	}

	lastUsed := sql.NullInt64{}
	if credential.LastUsedAt != nil {
		lastUsed = sql.NullInt64{Int64: toMillis(*credential.LastUsedAt), Valid: true}
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO passkey_credentials
		(credential_id, owner_id, public_key, sign_count, aaguid, friendly_name, created_at, updated_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		credential.CredentialID,
		credential.OwnerID,
		credential.PublicKey,
		int64(credential.SignCount),
		credential.AAGUID,
		credential.FriendlyName,
		toMillis(credential.CreatedAt),
		toMillis(credential.UpdatedAt),
		lastUsed,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.WithMetadata(apperrors.CodeStorageFailed, "credential id already registered", map[string]string{"field": "credential_id"})
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// GetCredential fetches a stored credential by its base64url ID.
func (s *Store) GetCredential(ctx context.Context, credentialID string) (storage.Credential, error) {
	if err := ctx.Err(); err != nil {
		return storage.Credential{}, err
	}
	if err := s.ensureDB(); err != nil {
		return storage.Credential{}, err
	}
	if strings.TrimSpace(credentialID) == "" {
		return storage.Credential{}, fmt.Errorf("credential id is required")
	}

	return s.scanCredential(s.sqlDB.QueryRowContext(ctx,
		credentialColumns+` WHERE credential_id = ?`, credentialID,
	))
}

// ListCredentialsByOwner returns credentials registered to an owner.
func (s *Store) ListCredentialsByOwner(ctx context.Context, ownerID int64) ([]storage.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	if ownerID <= 0 {
		return nil, fmt.Errorf("owner id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		credentialColumns+` WHERE owner_id = ? ORDER BY created_at`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	credentials := make([]storage.Credential, 0)
	for rows.Next() {
		credential, err := scanCredentialRow(rows)
		if err != nil {
			return nil, err
		}
		credentials = append(credentials, credential)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return credentials, nil
}

// UpdateSignCount raises the stored counter and refreshes last-used.
//
// The stored value never decreases: SQLite's MAX keeps the higher of the
// reported and stored counters, so replayed or unreliable authenticator
// counters cannot roll the record backwards.
func (s *Store) UpdateSignCount(ctx context.Context, credentialID string, signCount uint32, usedAt time.Time) (storage.Credential, error) {
	if err := ctx.Err(); err != nil {
		return storage.Credential{}, err
	}
	if err := s.ensureDB(); err != nil {
		return storage.Credential{}, err
	}
	if strings.TrimSpace(credentialID) == "" {
		return storage.Credential{}, fmt.Errorf("credential id is required")
	}

	millis := toMillis(usedAt)
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE passkey_credentials
		SET sign_count = MAX(sign_count, ?), updated_at = ?, last_used_at = ?
		WHERE credential_id = ?`,
		int64(signCount), millis, millis, credentialID,
	)
	if err != nil {
		return storage.Credential{}, fmt.Errorf("update sign count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.Credential{}, fmt.Errorf("update sign count: %w", err)
	}
	if affected == 0 {
		return storage.Credential{}, storage.ErrNotFound
	}

	return s.GetCredential(ctx, credentialID)
}

// DeleteCredential removes a credential registration.
func (s *Store) DeleteCredential(ctx context.Context, credentialID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ensureDB(); err != nil {
		return err
	}
	if strings.TrimSpace(credentialID) == "" {
		return fmt.Errorf("credential id is required")
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM passkey_credentials WHERE credential_id = ?`, credentialID,
	)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

const credentialColumns = `SELECT credential_id, owner_id, public_key, sign_count, aaguid, friendly_name, created_at, updated_at, last_used_at
	FROM passkey_credentials`

func validateCredential(credential storage.Credential) (string, error) {
	if strings.TrimSpace(credential.CredentialID) == "" {
		return "credential_id", fmt.Errorf("credential id is required")
	}
	if credential.OwnerID <= 0 {
		return "owner_id", fmt.Errorf("owner id is required")
	}
	if len(credential.PublicKey) == 0 {
		return "public_key", fmt.Errorf("public key is required")
	}
	return "", nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanCredential(row *sql.Row) (storage.Credential, error) {
	credential, err := scanCredentialRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Credential{}, storage.ErrNotFound
		}
		return storage.Credential{}, err
	}
	return credential, nil
}

func scanCredentialRow(row rowScanner) (storage.Credential, error) {
	var credential storage.Credential
	var signCount, createdAt, updatedAt int64
	var lastUsed sql.NullInt64
	err := row.Scan(
		&credential.CredentialID,
		&credential.OwnerID,
		&credential.PublicKey,
		&signCount,
		&credential.AAGUID,
		&credential.FriendlyName,
		&createdAt,
		&updatedAt,
		&lastUsed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Credential{}, err
		}
		return storage.Credential{}, fmt.Errorf("scan credential: %w", err)
	}
	credential.SignCount = uint32(signCount)
	credential.CreatedAt = fromMillis(createdAt)
	credential.UpdatedAt = fromMillis(updatedAt)
	if lastUsed.Valid {
		value := fromMillis(lastUsed.Int64)
		credential.LastUsedAt = &value
	}
	return credential, nil
}
