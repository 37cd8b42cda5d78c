package wire

import (
	"encoding/binary"
	"fmt"
)

// subjectIDLen is the fixed width of an encoded WebAuthn user handle.
const subjectIDLen = 8

// EncodeSubjectID converts an owner ID into its fixed-width user handle.
//
// The 8-byte big-endian form is injective over the full int64 range, so a
// handle returned by an authenticator maps back to exactly one owner.
func EncodeSubjectID(id int64) []byte {
	handle := make([]byte, subjectIDLen)
	binary.BigEndian.PutUint64(handle, uint64(id))
	return handle
}

// DecodeSubjectID recovers an owner ID from a user handle.
func DecodeSubjectID(handle []byte) (int64, error) {
	if len(handle) != subjectIDLen {
		return 0, fmt.Errorf("user handle must be %d bytes, got %d", subjectIDLen, len(handle))
	}
	return int64(binary.BigEndian.Uint64(handle)), nil
}
