package passkey

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// Kind describes the ceremony a challenge was minted for.
type Kind string

const (
	KindRegistration   Kind = "registration"
	KindAuthentication Kind = "authentication"
)

const nonceLen = 32

// Challenge binds a single WebAuthn ceremony to a random nonce and the
// relying party context it was issued under.
type Challenge struct {
	Kind                 Kind
	Nonce                []byte
	RPID                 string
	Origin               string
	IssuedAt             time.Time
	Timeout              time.Duration
	AllowedCredentialIDs [][]byte
}

// EncodedNonce returns the nonce as unpadded base64url, the encoding
// clients echo back inside clientDataJSON.
func (c Challenge) EncodedNonce() string {
	return base64.RawURLEncoding.EncodeToString(c.Nonce)
}

// Expired reports whether the challenge timeout elapsed relative to now.
func (c Challenge) Expired(now time.Time) bool {
	return now.After(c.IssuedAt.Add(c.Timeout))
}

func newNonce(read func([]byte) (int, error)) ([]byte, error) {
	if read == nil {
		read = rand.Read
	}
	nonce := make([]byte, nonceLen)
	if _, err := read(nonce); err != nil {
		return nil, fmt.Errorf("generate challenge nonce: %w", err)
	}
	return nonce, nil
}

// RPEntity identifies the relying party in creation options.
type RPEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserEntity identifies the registering account in creation options.
type UserEntity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// CredentialParameter advertises an accepted signature algorithm.
type CredentialParameter struct {
	Type string `json:"type"`
	Alg  int64  `json:"alg"`
}

// AuthenticatorSelection narrows which authenticators may respond.
type AuthenticatorSelection struct {
	AuthenticatorAttachment string `json:"authenticatorAttachment,omitempty"`
	ResidentKey             string `json:"residentKey,omitempty"`
	UserVerification        string `json:"userVerification,omitempty"`
}

// CredentialDescriptor references a previously registered credential.
type CredentialDescriptor struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// CreationOptions is the client-facing payload for a registration ceremony.
type CreationOptions struct {
	Challenge              string                 `json:"challenge"`
	RP                     RPEntity               `json:"rp"`
	User                   UserEntity             `json:"user"`
	PubKeyCredParams       []CredentialParameter  `json:"pubKeyCredParams"`
	Timeout                int64                  `json:"timeout"`
	Attestation            string                 `json:"attestation"`
	AuthenticatorSelection AuthenticatorSelection `json:"authenticatorSelection"`
}

// RequestOptions is the client-facing payload for an authentication ceremony.
type RequestOptions struct {
	Challenge        string                 `json:"challenge"`
	RPID             string                 `json:"rpId"`
	Timeout          int64                  `json:"timeout"`
	UserVerification string                 `json:"userVerification"`
	AllowCredentials []CredentialDescriptor `json:"allowCredentials"`
}

const (
	algES256 int64 = -7
	algRS256 int64 = -257
)

func creationParams() []CredentialParameter {
	return []CredentialParameter{
		{Type: "public-key", Alg: algES256},
		{Type: "public-key", Alg: algRS256},
	}
}
