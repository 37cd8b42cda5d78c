// Package errors provides structured error handling for the auth core.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Decode errors (malformed client payloads)
	CodeDecodeFailed       Code = "DECODE_FAILED"
	CodeInvalidJSON        Code = "DECODE_INVALID_JSON"
	CodeUnexpectedShape    Code = "DECODE_UNEXPECTED_SHAPE"
	CodeMissingField       Code = "DECODE_MISSING_FIELD"
	CodeInvalidEncoding    Code = "DECODE_INVALID_ENCODING"
	CodeInvalidPublicKey   Code = "DECODE_INVALID_PUBLIC_KEY"
	CodeUnsupportedPayload Code = "DECODE_UNSUPPORTED_PAYLOAD"

	// Authenticator data errors
	CodeAuthDataTooShort          Code = "AUTH_DATA_TOO_SHORT"
	CodeAuthDataTruncatedBlock    Code = "AUTH_DATA_TRUNCATED_CREDENTIAL_BLOCK"
	CodeAuthDataNoAttestedData    Code = "AUTH_DATA_NO_ATTESTED_CREDENTIAL_DATA"
	CodeUnsupportedFallbackFormat Code = "ATTESTATION_UNSUPPORTED_FALLBACK_FORMAT"
	CodeFallbackExtractionFailed  Code = "ATTESTATION_FALLBACK_EXTRACTION_FAILED"

	// Ceremony/flow errors
	CodeVerifierRejected   Code = "VERIFIER_REJECTED"
	CodeCredentialNotFound Code = "CREDENTIAL_NOT_FOUND"
	CodeStorageFailed      Code = "STORAGE_FAILED"
	CodeCeremonyNotFound   Code = "CEREMONY_NOT_FOUND"
	CodeCeremonyExpired    Code = "CEREMONY_EXPIRED"

	// Handoff token errors
	CodeTokenMalformed    Code = "TOKEN_MALFORMED"
	CodeTokenExpired      Code = "TOKEN_EXPIRED"
	CodeTokenBadSignature Code = "TOKEN_BAD_SIGNATURE"
	CodeTokenAlreadyUsed  Code = "TOKEN_ALREADY_USED"

	// User errors
	CodeUserEmptyEmail       Code = "USER_EMPTY_EMAIL"
	CodeUserInvalidEmail     Code = "USER_INVALID_EMAIL"
	CodeUserEmptyDisplayName Code = "USER_EMPTY_DISPLAY_NAME"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, malformed input
	case CodeDecodeFailed,
		CodeInvalidJSON,
		CodeUnexpectedShape,
		CodeMissingField,
		CodeInvalidEncoding,
		CodeInvalidPublicKey,
		CodeUnsupportedPayload,
		CodeAuthDataTooShort,
		CodeAuthDataTruncatedBlock,
		CodeAuthDataNoAttestedData,
		CodeUnsupportedFallbackFormat,
		CodeUserEmptyEmail,
		CodeUserInvalidEmail,
		CodeUserEmptyDisplayName:
		return http.StatusBadRequest

	// Unauthorized - failed cryptographic or replay checks
	case CodeVerifierRejected,
		CodeFallbackExtractionFailed,
		CodeTokenMalformed,
		CodeTokenExpired,
		CodeTokenBadSignature:
		return http.StatusUnauthorized

	// Not found
	case CodeCredentialNotFound,
		CodeCeremonyNotFound,
		CodeNotFound:
		return http.StatusNotFound

	// Gone - expired transient state
	case CodeCeremonyExpired:
		return http.StatusGone

	// Conflict - storage constraint violations and replayed tokens
	case CodeStorageFailed,
		CodeTokenAlreadyUsed:
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}
