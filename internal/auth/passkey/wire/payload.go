// Package wire decodes client credential payloads into canonical records
// and converts public keys between COSE maps and compact bytes.
package wire

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	apperrors "github.com/louisbranch/crossing.space/internal/platform/errors"
)

var (
	// ErrInvalidJSON indicates a payload that is not parseable JSON.
	ErrInvalidJSON = apperrors.New(apperrors.CodeInvalidJSON, "payload is not valid JSON")
	// ErrUnexpectedShape indicates a top-level value that is not an object.
	ErrUnexpectedShape = apperrors.New(apperrors.CodeUnexpectedShape, "payload must be a JSON object")
	// ErrUnsupportedPayload indicates an input type the codec cannot decode.
	ErrUnsupportedPayload = apperrors.New(apperrors.CodeUnsupportedPayload, "unsupported payload type")
	// ErrMissingField indicates a required subfield is absent.
	ErrMissingField = apperrors.New(apperrors.CodeMissingField, "required field is missing")
	// ErrInvalidEncoding indicates a subfield that failed base64url decoding.
	ErrInvalidEncoding = apperrors.New(apperrors.CodeInvalidEncoding, "field is not valid base64url")
)

// Attestation is the canonical registration response record.
type Attestation struct {
	RawID             []byte
	EncodedID         string
	AttestationObject []byte
	ClientDataJSON    []byte
}

// Assertion is the canonical authentication response record.
type Assertion struct {
	RawID             []byte
	EncodedID         string
	AuthenticatorData []byte
	ClientDataJSON    []byte
	Signature         []byte
	UserHandle        []byte
}

// payloadShape tags the recognized client payload layouts.
//
// Clients ship two encodings of the same ceremony result: the standard
// nested form with a response object, and a legacy flat form with every
// field at the top level. Classification is explicit so each branch is
// handled exhaustively instead of duck-typing on individual keys.
type payloadShape int

const (
	shapeInvalid payloadShape = iota
	shapeNested
	shapeFlat
)

// fields is a decoded top-level or response-level JSON object.
type fields map[string]json.RawMessage

// DecodeAttestation normalizes a client registration payload.
//
// The payload may be raw JSON bytes, a JSON string, or an already-decoded
// generic map; every other input type is rejected.
func DecodeAttestation(payload any) (*Attestation, error) {
	body, err := classify(payload)
	if err != nil {
		return nil, err
	}

	rawID, encodedID, err := credentialID(body.top)
	if err != nil {
		return nil, err
	}
	attestationObject, err := requiredBytes(body.response, "attestationObject")
	if err != nil {
		return nil, err
	}
	clientDataJSON, err := requiredBytes(body.response, "clientDataJSON")
	if err != nil {
		return nil, err
	}

	return &Attestation{
		RawID:             rawID,
		EncodedID:         encodedID,
		AttestationObject: attestationObject,
		ClientDataJSON:    clientDataJSON,
	}, nil
}

// DecodeAssertion normalizes a client authentication payload.
func DecodeAssertion(payload any) (*Assertion, error) {
	body, err := classify(payload)
	if err != nil {
		return nil, err
	}

	rawID, encodedID, err := credentialID(body.top)
	if err != nil {
		return nil, err
	}
	authenticatorData, err := requiredBytes(body.response, "authenticatorData")
	if err != nil {
		return nil, err
	}
	clientDataJSON, err := requiredBytes(body.response, "clientDataJSON")
	if err != nil {
		return nil, err
	}
	signature, err := requiredBytes(body.response, "signature")
	if err != nil {
		return nil, err
	}
	userHandle, err := optionalBytes(body.response, "userHandle")
	if err != nil {
		return nil, err
	}

	return &Assertion{
		RawID:             rawID,
		EncodedID:         encodedID,
		AuthenticatorData: authenticatorData,
		ClientDataJSON:    clientDataJSON,
		Signature:         signature,
		UserHandle:        userHandle,
	}, nil
}

// classified carries the top-level fields and the object holding the
// ceremony response fields, which is the top level itself for flat payloads.
type classified struct {
	shape    payloadShape
	top      fields
	response fields
}

func classify(payload any) (classified, error) {
	raw, err := payloadBytes(payload)
	if err != nil {
		return classified{}, err
	}

	var top fields
	if err := json.Unmarshal(raw, &top); err != nil {
		if !json.Valid(raw) {
			return classified{}, ErrInvalidJSON
		}
		return classified{}, shapeError(raw)
	}
	if top == nil {
		// JSON null unmarshals into a nil map without error.
		return classified{}, ErrUnsupportedPayload
	}

	if rawResponse, ok := top["response"]; ok {
		var response fields
		if err := json.Unmarshal(rawResponse, &response); err != nil || response == nil {
			return classified{}, ErrUnexpectedShape
		}
		return classified{shape: shapeNested, top: top, response: response}, nil
	}
	return classified{shape: shapeFlat, top: top, response: top}, nil
}

// shapeError distinguishes a string top level, which is a malformed object,
// from the value kinds the codec refuses outright.
func shapeError(raw []byte) error {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '"' {
		return ErrUnexpectedShape
	}
	return ErrUnsupportedPayload
}

// payloadBytes accepts the input encodings callers hand the codec.
func payloadBytes(payload any) ([]byte, error) {
	switch value := payload.(type) {
	case []byte:
		return value, nil
	case json.RawMessage:
		return value, nil
	case string:
		return []byte(value), nil
	case map[string]any:
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, ErrUnsupportedPayload
		}
		return raw, nil
	default:
		return nil, ErrUnsupportedPayload
	}
}

// credentialID extracts raw credential ID bytes, preferring rawId, and the
// unpadded base64url string used as the storage lookup key.
func credentialID(top fields) ([]byte, string, error) {
	encoded, err := stringField(top, "rawId")
	if err != nil {
		return nil, "", err
	}
	if encoded == "" {
		encoded, err = stringField(top, "id")
		if err != nil {
			return nil, "", err
		}
	}
	if encoded == "" {
		return nil, "", ErrMissingField
	}
	raw, err := decodeBase64URL(encoded)
	if err != nil {
		return nil, "", ErrInvalidEncoding
	}
	return raw, base64.RawURLEncoding.EncodeToString(raw), nil
}

func requiredBytes(object fields, key string) ([]byte, error) {
	encoded, err := stringField(object, key)
	if err != nil {
		return nil, err
	}
	if encoded == "" {
		return nil, ErrMissingField
	}
	decoded, err := decodeBase64URL(encoded)
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	return decoded, nil
}

func optionalBytes(object fields, key string) ([]byte, error) {
	encoded, err := stringField(object, key)
	if err != nil {
		return nil, err
	}
	if encoded == "" {
		return nil, nil
	}
	decoded, err := decodeBase64URL(encoded)
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	return decoded, nil
}

// stringField reads a string-typed key, tolerating absence and JSON null.
func stringField(object fields, key string) (string, error) {
	raw, ok := object[key]
	if !ok || string(raw) == "null" {
		return "", nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", ErrInvalidEncoding
	}
	return value, nil
}

// decodeBase64URL accepts unpadded and padded base64url.
func decodeBase64URL(value string) ([]byte, error) {
	if decoded, err := base64.RawURLEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	return base64.URLEncoding.DecodeString(value)
}
