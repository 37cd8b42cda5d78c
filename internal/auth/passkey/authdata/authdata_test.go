package authdata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"

	apperrors "github.com/louisbranch/crossing.space/internal/platform/errors"
)

func baseRecord(flags byte, signCount uint32) []byte {
	record := bytes.Repeat([]byte{0x11}, 32)
	record = append(record, flags)
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], signCount)
	return append(record, count[:]...)
}

func attestedRecord(flags byte, signCount uint32, credentialID, publicKey []byte) []byte {
	record := baseRecord(flags, signCount)
	record = append(record, bytes.Repeat([]byte{0xAB}, 16)...)
	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(credentialID)))
	record = append(record, length[:]...)
	record = append(record, credentialID...)
	return append(record, publicKey...)
}

func TestParseTooShort(t *testing.T) {
	_, err := Parse(make([]byte, 36))
	if !errors.Is(err, ErrTooShort) {
		t.Fatalf("err = %v, want ErrTooShort", err)
	}
}

func TestParseMinimalRecord(t *testing.T) {
	parsed, err := Parse(baseRecord(0x05, 42))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !parsed.Flags.UserPresent || !parsed.Flags.UserVerified {
		t.Fatalf("flags = %+v", parsed.Flags)
	}
	if parsed.Flags.AttestedCredentialData || parsed.Flags.ExtensionData {
		t.Fatalf("flags = %+v", parsed.Flags)
	}
	if parsed.SignCount != 42 {
		t.Fatalf("sign count = %d, want 42", parsed.SignCount)
	}
	if len(parsed.RPIDHash) != 32 {
		t.Fatalf("rp id hash length = %d", len(parsed.RPIDHash))
	}
}

func TestParseSignCountBigEndian(t *testing.T) {
	record := baseRecord(0x01, 0)
	copy(record[33:], []byte{0x00, 0x00, 0x01, 0x00})

	parsed, err := Parse(record)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.SignCount != 256 {
		t.Fatalf("sign count = %d, want 256", parsed.SignCount)
	}
}

func TestParseAttestedCredential(t *testing.T) {
	credentialID := []byte("credential-id-bytes")
	publicKey := []byte{0xA2, 0x01, 0x02, 0x03, 0x26}

	parsed, err := Parse(attestedRecord(0x41, 7, credentialID, publicKey))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	gotID, gotKey, gotAAGUID, err := parsed.AttestedCredential()
	if err != nil {
		t.Fatalf("AttestedCredential: %v", err)
	}
	if !bytes.Equal(gotID, credentialID) {
		t.Fatalf("credential id = %x", gotID)
	}
	if !bytes.Equal(gotKey, publicKey) {
		t.Fatalf("public key = %x", gotKey)
	}
	if !bytes.Equal(gotAAGUID, bytes.Repeat([]byte{0xAB}, 16)) {
		t.Fatalf("aaguid = %x", gotAAGUID)
	}
}

func TestParseTruncatedCredentialBlock(t *testing.T) {
	record := baseRecord(0x41, 0)
	record = append(record, bytes.Repeat([]byte{0xAB}, 10)...)

	_, err := Parse(record)
	if !errors.Is(err, ErrTruncatedCredentialBlock) {
		t.Fatalf("err = %v, want ErrTruncatedCredentialBlock", err)
	}
}

func TestParseTruncatedCredentialID(t *testing.T) {
	record := baseRecord(0x41, 0)
	record = append(record, bytes.Repeat([]byte{0xAB}, 16)...)
	record = append(record, 0x00, 0x20)
	record = append(record, []byte("short")...)

	_, err := Parse(record)
	if !errors.Is(err, ErrTruncatedCredentialBlock) {
		t.Fatalf("err = %v, want ErrTruncatedCredentialBlock", err)
	}
}

func TestAttestedCredentialAbsent(t *testing.T) {
	parsed, err := Parse(baseRecord(0x01, 0))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, _, _, err := parsed.AttestedCredential(); !errors.Is(err, ErrNoAttestedCredentialData) {
		t.Fatalf("err = %v, want ErrNoAttestedCredentialData", err)
	}
}

func marshalAttestationObject(t *testing.T, format string, authData []byte) []byte {
	t.Helper()
	raw, err := cbor.Marshal(map[string]any{
		"fmt":      format,
		"attStmt":  map[string]any{},
		"authData": authData,
	})
	if err != nil {
		t.Fatalf("marshal attestation object: %v", err)
	}
	return raw
}

func TestExtractNoneAttestation(t *testing.T) {
	credentialID := []byte("extract-me")
	publicKey := []byte{0xA1, 0x01, 0x02}
	raw := marshalAttestationObject(t, "none", attestedRecord(0x41, 9, credentialID, publicKey))

	parsed, err := ExtractNoneAttestation(raw)
	if err != nil {
		t.Fatalf("ExtractNoneAttestation: %v", err)
	}
	if !bytes.Equal(parsed.CredentialID, credentialID) {
		t.Fatalf("credential id = %x", parsed.CredentialID)
	}
	if parsed.SignCount != 9 {
		t.Fatalf("sign count = %d, want 9", parsed.SignCount)
	}
}

func TestExtractRejectsOtherFormats(t *testing.T) {
	raw := marshalAttestationObject(t, "packed", attestedRecord(0x41, 0, []byte("id"), nil))

	_, err := ExtractNoneAttestation(raw)
	if !errors.Is(err, ErrUnsupportedFallbackFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFallbackFormat", err)
	}
}

func TestExtractRejectsMissingAttestedData(t *testing.T) {
	raw := marshalAttestationObject(t, "none", baseRecord(0x01, 0))

	_, err := ExtractNoneAttestation(raw)
	if !errors.Is(err, ErrNoAttestedCredentialData) {
		t.Fatalf("err = %v, want ErrNoAttestedCredentialData", err)
	}
}

func TestExtractRejectsInvalidCBOR(t *testing.T) {
	_, err := ExtractNoneAttestation([]byte{0xFF, 0x00, 0x01})
	if apperrors.GetCode(err) != apperrors.CodeFallbackExtractionFailed {
		t.Fatalf("error code = %q, want %q", apperrors.GetCode(err), apperrors.CodeFallbackExtractionFailed)
	}
}
