package passkey

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"
)

func TestNewNonceLength(t *testing.T) {
	nonce, err := newNonce(nil)
	if err != nil {
		t.Fatalf("newNonce: %v", err)
	}
	if len(nonce) != nonceLen {
		t.Fatalf("nonce length = %d, want %d", len(nonce), nonceLen)
	}
}

func TestNewNonceReadFailure(t *testing.T) {
	_, err := newNonce(func([]byte) (int, error) {
		return 0, errors.New("entropy exhausted")
	})
	if err == nil {
		t.Fatal("expected error from failing reader")
	}
}

func TestEncodedNonceRoundTrip(t *testing.T) {
	challenge := Challenge{Nonce: []byte{0x01, 0x02, 0xFE, 0xFF}}
	decoded, err := base64.RawURLEncoding.DecodeString(challenge.EncodedNonce())
	if err != nil {
		t.Fatalf("decode nonce: %v", err)
	}
	if len(decoded) != 4 || decoded[3] != 0xFF {
		t.Fatalf("decoded nonce = %x", decoded)
	}
}

func TestChallengeExpired(t *testing.T) {
	issued := time.Unix(1700000000, 0).UTC()
	challenge := Challenge{IssuedAt: issued, Timeout: 5 * time.Minute}

	if challenge.Expired(issued.Add(4 * time.Minute)) {
		t.Fatal("challenge should still be valid")
	}
	if challenge.Expired(issued.Add(5 * time.Minute)) {
		t.Fatal("challenge should be valid exactly at the deadline")
	}
	if !challenge.Expired(issued.Add(5*time.Minute + time.Second)) {
		t.Fatal("challenge should be expired past the deadline")
	}
}
