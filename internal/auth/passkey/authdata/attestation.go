package authdata

import (
	"github.com/fxamacker/cbor/v2"

	apperrors "github.com/louisbranch/crossing.space/internal/platform/errors"
)

// ErrUnsupportedFallbackFormat indicates a fallback extraction was attempted
// on an attestation object whose declared format is not "none".
var ErrUnsupportedFallbackFormat = apperrors.New(apperrors.CodeUnsupportedFallbackFormat, `fallback extraction requires attestation format "none"`)

// attestationObject mirrors the CBOR attestation object envelope.
type attestationObject struct {
	Format   string          `cbor:"fmt"`
	AttStmt  cbor.RawMessage `cbor:"attStmt"`
	AuthData []byte          `cbor:"authData"`
}

// ExtractNoneAttestation recovers credential material from a raw CBOR
// attestation object when the verifier reported success without returning it.
//
// Only "none"-format attestations are eligible: any format carrying a real
// attestation statement must be surfaced by the verifier itself, so a
// different declared format here is rejected rather than silently parsed.
func ExtractNoneAttestation(rawAttestationObject []byte) (Data, error) {
	var envelope attestationObject
	if err := cbor.Unmarshal(rawAttestationObject, &envelope); err != nil {
		return Data{}, apperrors.Wrap(apperrors.CodeFallbackExtractionFailed, "decode attestation object", err)
	}
	if envelope.Format != "none" {
		return Data{}, ErrUnsupportedFallbackFormat
	}

	parsed, err := Parse(envelope.AuthData)
	if err != nil {
		return Data{}, err
	}
	if !parsed.Flags.AttestedCredentialData {
		return Data{}, ErrNoAttestedCredentialData
	}
	return parsed, nil
}
