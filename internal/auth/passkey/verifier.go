package passkey

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/louisbranch/crossing.space/internal/auth/passkey/wire"
)

// RecoveredCredential is the credential material a verifier extracted from
// a registration response.
type RecoveredCredential struct {
	ID        []byte
	PublicKey []byte
	SignCount uint32
	AAGUID    []byte
}

// RegistrationInput carries everything a verifier needs to check an
// attestation response against the ceremony it belongs to.
type RegistrationInput struct {
	Attestation      *wire.Attestation
	Challenge        Challenge
	OwnerHandle      []byte
	OwnerName        string
	OwnerDisplayName string
}

// AuthenticationInput carries everything a verifier needs to check an
// assertion response against a stored credential.
type AuthenticationInput struct {
	Assertion         *wire.Assertion
	PublicKey         map[int64]any
	AAGUID            []byte
	PreviousSignCount uint32
	Challenge         Challenge
	OwnerHandle       []byte
}

// Verifier checks WebAuthn ceremony responses. VerifyRegistration may
// return (nil, nil) when the response is acceptable but the verifier
// cannot surface credential material, in which case callers fall back to
// extracting it from the raw attestation object.
type Verifier interface {
	VerifyRegistration(in RegistrationInput) (*RecoveredCredential, error)
	VerifyAuthentication(in AuthenticationInput) (uint32, error)
}

// WebAuthnVerifier verifies ceremonies with the go-webauthn engine.
type WebAuthnVerifier struct {
	engine *webauthn.WebAuthn
}

// NewWebAuthnVerifier builds a verifier for the relying party described
// by cfg.
func NewWebAuthnVerifier(cfg Config) (*WebAuthnVerifier, error) {
	engine, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.RPDisplayName,
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("configure webauthn: %w", err)
	}
	return &WebAuthnVerifier{engine: engine}, nil
}

func (v *WebAuthnVerifier) VerifyRegistration(in RegistrationInput) (*RecoveredCredential, error) {
	if in.Attestation == nil {
		return nil, fmt.Errorf("attestation is required")
	}
	raw, err := json.Marshal(map[string]any{
		"id":    in.Attestation.EncodedID,
		"rawId": in.Attestation.EncodedID,
		"type":  "public-key",
		"response": map[string]any{
			"attestationObject": base64.RawURLEncoding.EncodeToString(in.Attestation.AttestationObject),
			"clientDataJSON":    base64.RawURLEncoding.EncodeToString(in.Attestation.ClientDataJSON),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode attestation response: %w", err)
	}
	parsed, err := protocol.ParseCredentialCreationResponseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("parse attestation response: %w", err)
	}

	session := webauthn.SessionData{
		Challenge:        in.Challenge.EncodedNonce(),
		UserID:           in.OwnerHandle,
		Expires:          in.Challenge.IssuedAt.Add(in.Challenge.Timeout),
		UserVerification: protocol.VerificationPreferred,
	}
	owner := ceremonyUser{
		handle:      in.OwnerHandle,
		name:        in.OwnerName,
		displayName: in.OwnerDisplayName,
	}
	credential, err := v.engine.CreateCredential(owner, session, parsed)
	if err != nil {
		return nil, err
	}
	return &RecoveredCredential{
		ID:        credential.ID,
		PublicKey: credential.PublicKey,
		SignCount: credential.Authenticator.SignCount,
		AAGUID:    credential.Authenticator.AAGUID,
	}, nil
}

func (v *WebAuthnVerifier) VerifyAuthentication(in AuthenticationInput) (uint32, error) {
	if in.Assertion == nil {
		return 0, fmt.Errorf("assertion is required")
	}
	response := map[string]any{
		"authenticatorData": base64.RawURLEncoding.EncodeToString(in.Assertion.AuthenticatorData),
		"clientDataJSON":    base64.RawURLEncoding.EncodeToString(in.Assertion.ClientDataJSON),
		"signature":         base64.RawURLEncoding.EncodeToString(in.Assertion.Signature),
	}
	if len(in.Assertion.UserHandle) > 0 {
		response["userHandle"] = base64.RawURLEncoding.EncodeToString(in.Assertion.UserHandle)
	}
	raw, err := json.Marshal(map[string]any{
		"id":       in.Assertion.EncodedID,
		"rawId":    in.Assertion.EncodedID,
		"type":     "public-key",
		"response": response,
	})
	if err != nil {
		return 0, fmt.Errorf("encode assertion response: %w", err)
	}
	parsed, err := protocol.ParseCredentialRequestResponseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("parse assertion response: %w", err)
	}

	publicKey, err := wire.EncodePublicKey(in.PublicKey)
	if err != nil {
		return 0, fmt.Errorf("encode stored public key: %w", err)
	}
	session := webauthn.SessionData{
		Challenge:            in.Challenge.EncodedNonce(),
		UserID:               in.OwnerHandle,
		AllowedCredentialIDs: in.Challenge.AllowedCredentialIDs,
		Expires:              in.Challenge.IssuedAt.Add(in.Challenge.Timeout),
		UserVerification:     protocol.VerificationPreferred,
	}
	owner := ceremonyUser{
		handle: in.OwnerHandle,
		credentials: []webauthn.Credential{{
			ID:        in.Assertion.RawID,
			PublicKey: publicKey,
			Authenticator: webauthn.Authenticator{
				AAGUID:    in.AAGUID,
				SignCount: in.PreviousSignCount,
			},
		}},
	}
	credential, err := v.engine.ValidateLogin(owner, session, parsed)
	if err != nil {
		return 0, err
	}
	return credential.Authenticator.SignCount, nil
}

// ceremonyUser adapts an owner record to the webauthn.User contract for
// the duration of a single ceremony.
type ceremonyUser struct {
	handle      []byte
	name        string
	displayName string
	credentials []webauthn.Credential
}

func (u ceremonyUser) WebAuthnID() []byte { return u.handle }

func (u ceremonyUser) WebAuthnName() string { return u.name }

func (u ceremonyUser) WebAuthnDisplayName() string { return u.displayName }

func (u ceremonyUser) WebAuthnIcon() string { return "" }

func (u ceremonyUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }
