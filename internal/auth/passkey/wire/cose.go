package wire

import (
	"github.com/fxamacker/cbor/v2"

	apperrors "github.com/louisbranch/crossing.space/internal/platform/errors"
)

// ErrInvalidPublicKeyFormat indicates a public key that is neither a COSE
// map nor raw COSE bytes.
var ErrInvalidPublicKeyFormat = apperrors.New(apperrors.CodeInvalidPublicKey, "invalid public key format")

// coseDecMode folds CBOR integers into int64 so a decoded COSE map compares
// equal to the map it was encoded from.
var coseDecMode = func() cbor.DecMode {
	mode, err := cbor.DecOptions{IntDec: cbor.IntDecConvertSigned}.DecMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// EncodePublicKey converts a COSE key map to compact CBOR bytes.
//
// Raw bytes pass through unchanged so stored keys can be re-encoded
// idempotently.
func EncodePublicKey(key any) ([]byte, error) {
	switch value := key.(type) {
	case []byte:
		return value, nil
	case map[int64]any:
		encoded, err := cbor.Marshal(value)
		if err != nil {
			return nil, ErrInvalidPublicKeyFormat
		}
		return encoded, nil
	default:
		return nil, ErrInvalidPublicKeyFormat
	}
}

// DecodePublicKey decodes COSE key bytes into a label-to-value map.
func DecodePublicKey(raw []byte) (map[int64]any, error) {
	var key map[int64]any
	if err := coseDecMode.Unmarshal(raw, &key); err != nil {
		return nil, ErrInvalidPublicKeyFormat
	}
	if key == nil {
		return nil, ErrInvalidPublicKeyFormat
	}
	return key, nil
}
