// Package handoff issues and validates short-lived single-use tokens that
// carry an authenticated subject from the passkey ceremony to the next hop.
//
// A token is "<subject>:<unix>:<signature>" where subject and unix are
// decimal integers and the signature is the unpadded base64url HMAC-SHA256
// of "<subject>:<unix>" under a shared secret. Validation checks shape,
// then age, then signature, then replay; marking a token used is a
// separate step so multi-token flows can validate everything before
// committing.
package handoff

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/louisbranch/crossing.space/internal/platform/errors"
)

var (
	// ErrMalformed indicates the token does not have the expected shape.
	ErrMalformed = apperrors.New(apperrors.CodeTokenMalformed, "handoff token is malformed")
	// ErrExpired indicates the token is older than the allowed age.
	ErrExpired = apperrors.New(apperrors.CodeTokenExpired, "handoff token expired")
	// ErrBadSignature indicates the signature does not match.
	ErrBadSignature = apperrors.New(apperrors.CodeTokenBadSignature, "handoff token signature mismatch")
	// ErrAlreadyUsed indicates the token was redeemed before.
	ErrAlreadyUsed = apperrors.New(apperrors.CodeTokenAlreadyUsed, "handoff token already used")
)

// Issuer mints and validates handoff tokens under a shared secret.
type Issuer struct {
	secret  []byte
	maxAge  time.Duration
	markers MarkerStore
	clock   func() time.Time
}

// NewIssuer wires an issuer. The marker store tracks redeemed tokens; time
// defaults to the real clock.
func NewIssuer(cfg Config, markers MarkerStore) *Issuer {
	return &Issuer{
		secret:  []byte(cfg.Secret),
		maxAge:  cfg.MaxAge,
		markers: markers,
		clock:   time.Now,
	}
}

// Issue mints a token binding the subject to the current time.
func (i *Issuer) Issue(subjectID int64) string {
	base := strconv.FormatInt(subjectID, 10) + ":" + strconv.FormatInt(i.clock().Unix(), 10)
	return base + ":" + i.sign(base)
}

// Validate checks a token and returns its subject and issue time. The
// token stays redeemable until MarkUsed records it.
func (i *Issuer) Validate(token string) (int64, time.Time, error) {
	subjectID, issuedAt, base, signature, err := splitToken(token)
	if err != nil {
		return 0, time.Time{}, err
	}
	age := i.clock().Sub(issuedAt)
	if age < 0 || age > i.maxAge {
		return 0, time.Time{}, ErrExpired
	}
	if !hmac.Equal([]byte(signature), []byte(i.sign(base))) {
		return 0, time.Time{}, ErrBadSignature
	}
	if i.markers.Seen(markerKey(subjectID, issuedAt)) {
		return 0, time.Time{}, ErrAlreadyUsed
	}
	return subjectID, issuedAt, nil
}

// MarkUsed records a validated token as redeemed. A second call for the
// same subject and issue time reports ErrAlreadyUsed.
func (i *Issuer) MarkUsed(subjectID int64, issuedAt time.Time) error {
	if !i.markers.Insert(markerKey(subjectID, issuedAt), i.clock().Add(i.maxAge)) {
		return ErrAlreadyUsed
	}
	return nil
}

// EvictExpiredMarkers drops replay markers whose tokens can no longer
// validate by age.
func (i *Issuer) EvictExpiredMarkers() {
	i.markers.EvictExpired(i.clock())
}

func (i *Issuer) sign(base string) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(base))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func markerKey(subjectID int64, issuedAt time.Time) string {
	return strconv.FormatInt(subjectID, 10) + ":" + strconv.FormatInt(issuedAt.Unix(), 10)
}

func splitToken(token string) (subjectID int64, issuedAt time.Time, base, signature string, err error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return 0, time.Time{}, "", "", ErrMalformed
	}
	subjectID, subjectErr := strconv.ParseInt(parts[0], 10, 64)
	if subjectErr != nil {
		return 0, time.Time{}, "", "", ErrMalformed
	}
	unix, unixErr := strconv.ParseInt(parts[1], 10, 64)
	if unixErr != nil {
		return 0, time.Time{}, "", "", ErrMalformed
	}
	return subjectID, time.Unix(unix, 0), parts[0] + ":" + parts[1], parts[2], nil
}
