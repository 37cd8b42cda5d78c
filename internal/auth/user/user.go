// Package user provides owner identity records for passkey credentials.
package user

import (
	"regexp"
	"strings"
	"time"

	apperrors "github.com/louisbranch/crossing.space/internal/platform/errors"
)

var (
	// ErrEmptyEmail indicates a missing email address.
	ErrEmptyEmail = apperrors.New(apperrors.CodeUserEmptyEmail, "email is required")
	// ErrInvalidEmail indicates an email that does not match the required format.
	ErrInvalidEmail = apperrors.New(apperrors.CodeUserInvalidEmail, "email must be a valid address")
	// ErrEmptyDisplayName indicates a missing display name.
	ErrEmptyDisplayName = apperrors.New(apperrors.CodeUserEmptyDisplayName, "display name is required")

	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// User represents an identity that owns passkey credentials.
//
// The numeric ID doubles as the WebAuthn user handle (big-endian encoded) and
// as the handoff token subject, so it is assigned by storage and never reused.
type User struct {
	ID          int64
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateUserInput describes the metadata needed to create a user.
type CreateUserInput struct {
	Email       string
	DisplayName string
}

// ValidateEmail enforces canonical email constraints used for identity hints.
func ValidateEmail(s string) error {
	if !emailPattern.MatchString(s) {
		return ErrInvalidEmail
	}
	return nil
}

// NewUser builds an unsaved user identity from validated input.
//
// Storage assigns the ID on insert; this is the canonical point where
// untrusted signup data becomes identity state.
func NewUser(input CreateUserInput, now func() time.Time) (User, error) {
	if now == nil {
		now = time.Now
	}
	normalized, err := NormalizeCreateUserInput(input)
	if err != nil {
		return User{}, err
	}

	createdAt := now().UTC()
	return User{
		Email:       normalized.Email,
		DisplayName: normalized.DisplayName,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// NormalizeCreateUserInput trims and normalizes input before validation.
func NormalizeCreateUserInput(input CreateUserInput) (CreateUserInput, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if input.Email == "" {
		return CreateUserInput{}, ErrEmptyEmail
	}
	if err := ValidateEmail(input.Email); err != nil {
		return CreateUserInput{}, err
	}
	if input.DisplayName == "" {
		return CreateUserInput{}, ErrEmptyDisplayName
	}
	return input, nil
}
