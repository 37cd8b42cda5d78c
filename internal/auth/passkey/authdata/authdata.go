// Package authdata parses the WebAuthn authenticator-data binary layout.
//
// The layout is fixed by the WebAuthn specification: a 32-byte RP ID hash,
// one flag byte, a 4-byte big-endian signature counter, and an optional
// attested-credential block of 16-byte AAGUID, 2-byte big-endian credential
// ID length, the credential ID itself, and a trailing COSE public key.
// Offsets must match the wire bit-exactly; every length is checked up front
// so malformed input surfaces as a tagged error, never a slice fault.
package authdata

import (
	"encoding/binary"

	apperrors "github.com/louisbranch/crossing.space/internal/platform/errors"
)

// Authenticator data offsets and sizes, per the WebAuthn wire layout.
const (
	rpIDHashLen  = 32
	flagsOffset  = 32
	counterStart = 33
	baseLen      = 37
	aaguidLen    = 16
	idLenBytes   = 2
)

// Flag bit indexes within the flags byte.
const (
	flagUserPresent   = 1 << 0
	flagUserVerified  = 1 << 2
	flagAttestedData  = 1 << 6
	flagExtensionData = 1 << 7
)

var (
	// ErrTooShort indicates fewer than the 37 mandatory bytes.
	ErrTooShort = apperrors.New(apperrors.CodeAuthDataTooShort, "authenticator data shorter than 37 bytes")
	// ErrTruncatedCredentialBlock indicates the attested-data flag is set but
	// the remaining bytes cannot hold AAGUID, length, and credential ID.
	ErrTruncatedCredentialBlock = apperrors.New(apperrors.CodeAuthDataTruncatedBlock, "attested credential block is truncated")
	// ErrNoAttestedCredentialData indicates a caller asked for credential
	// fields on authenticator data without an attested-credential block.
	ErrNoAttestedCredentialData = apperrors.New(apperrors.CodeAuthDataNoAttestedData, "no attested credential data present")
)

// Flags exposes the decoded authenticator flag byte.
type Flags struct {
	UserPresent            bool
	UserVerified           bool
	AttestedCredentialData bool
	ExtensionData          bool
}

// Data is the parsed authenticator data record.
//
// AAGUID, CredentialID, and PublicKey are populated only when the
// attested-credential flag is set; use AttestedCredential to access them.
type Data struct {
	RPIDHash     []byte
	Flags        Flags
	SignCount    uint32
	AAGUID       []byte
	CredentialID []byte
	PublicKey    []byte
}

// AttestedCredential returns the credential ID, COSE public key bytes, and
// AAGUID, or ErrNoAttestedCredentialData when the block is absent.
func (d Data) AttestedCredential() (credentialID, publicKey, aaguid []byte, err error) {
	if !d.Flags.AttestedCredentialData {
		return nil, nil, nil, ErrNoAttestedCredentialData
	}
	return d.CredentialID, d.PublicKey, d.AAGUID, nil
}

// Parse decodes raw authenticator data bytes.
func Parse(raw []byte) (Data, error) {
	if len(raw) < baseLen {
		return Data{}, ErrTooShort
	}

	flagByte := raw[flagsOffset]
	parsed := Data{
		RPIDHash: raw[:rpIDHashLen],
		Flags: Flags{
			UserPresent:            flagByte&flagUserPresent != 0,
			UserVerified:           flagByte&flagUserVerified != 0,
			AttestedCredentialData: flagByte&flagAttestedData != 0,
			ExtensionData:          flagByte&flagExtensionData != 0,
		},
		SignCount: binary.BigEndian.Uint32(raw[counterStart:baseLen]),
	}

	if !parsed.Flags.AttestedCredentialData {
		return parsed, nil
	}

	rest := raw[baseLen:]
	if len(rest) < aaguidLen+idLenBytes {
		return Data{}, ErrTruncatedCredentialBlock
	}
	idLen := int(binary.BigEndian.Uint16(rest[aaguidLen : aaguidLen+idLenBytes]))
	if len(rest) < aaguidLen+idLenBytes+idLen {
		return Data{}, ErrTruncatedCredentialBlock
	}

	parsed.AAGUID = rest[:aaguidLen]
	parsed.CredentialID = rest[aaguidLen+idLenBytes : aaguidLen+idLenBytes+idLen]
	parsed.PublicKey = rest[aaguidLen+idLenBytes+idLen:]
	return parsed, nil
}
