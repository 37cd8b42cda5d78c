package passkey

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/louisbranch/crossing.space/internal/auth/passkey/authdata"
	"github.com/louisbranch/crossing.space/internal/auth/passkey/wire"
	"github.com/louisbranch/crossing.space/internal/auth/storage"
	"github.com/louisbranch/crossing.space/internal/auth/user"
	apperrors "github.com/louisbranch/crossing.space/internal/platform/errors"
)

// Service runs passkey registration and authentication ceremonies against
// injected stores and a verifier.
type Service struct {
	cfg         Config
	verifier    Verifier
	credentials storage.CredentialStore
	users       storage.UserStore
	clock       func() time.Time
	randRead    func([]byte) (int, error)
}

// NewService wires a passkey service. The verifier and stores are required;
// time and randomness default to the real sources.
func NewService(cfg Config, verifier Verifier, credentials storage.CredentialStore, users storage.UserStore) *Service {
	return &Service{
		cfg:         cfg,
		verifier:    verifier,
		credentials: credentials,
		users:       users,
		clock:       time.Now,
	}
}

// BeginRegistration mints a registration challenge and the client-facing
// creation options for the given owner.
func (s *Service) BeginRegistration(ctx context.Context, ownerID int64) (CreationOptions, Challenge, error) {
	owner, err := s.users.GetUser(ctx, ownerID)
	if err != nil {
		return CreationOptions{}, Challenge{}, err
	}
	nonce, err := newNonce(s.randRead)
	if err != nil {
		return CreationOptions{}, Challenge{}, err
	}
	challenge := Challenge{
		Kind:     KindRegistration,
		Nonce:    nonce,
		RPID:     s.cfg.RPID,
		Origin:   s.primaryOrigin(),
		IssuedAt: s.clock(),
		Timeout:  s.cfg.ChallengeTTL,
	}
	options := CreationOptions{
		Challenge: challenge.EncodedNonce(),
		RP: RPEntity{
			ID:   s.cfg.RPID,
			Name: s.cfg.RPDisplayName,
		},
		User: UserEntity{
			ID:          base64.RawURLEncoding.EncodeToString(wire.EncodeSubjectID(owner.ID)),
			Name:        owner.Email,
			DisplayName: owner.DisplayName,
		},
		PubKeyCredParams: creationParams(),
		Timeout:          challenge.Timeout.Milliseconds(),
		Attestation:      "none",
		AuthenticatorSelection: AuthenticatorSelection{
			AuthenticatorAttachment: "platform",
			ResidentKey:             "preferred",
			UserVerification:        "preferred",
		},
	}
	return options, challenge, nil
}

// BeginAuthentication mints an authentication challenge. When identityHint
// resolves to a known account the request options carry that account's
// credentials; otherwise the allow list stays empty and the ceremony runs
// as a discoverable login. Hint resolution failures never surface.
func (s *Service) BeginAuthentication(ctx context.Context, identityHint string) (RequestOptions, Challenge, error) {
	nonce, err := newNonce(s.randRead)
	if err != nil {
		return RequestOptions{}, Challenge{}, err
	}
	allowed := s.resolveAllowedCredentials(ctx, identityHint)
	challenge := Challenge{
		Kind:                 KindAuthentication,
		Nonce:                nonce,
		RPID:                 s.cfg.RPID,
		Origin:               s.primaryOrigin(),
		IssuedAt:             s.clock(),
		Timeout:              s.cfg.ChallengeTTL,
		AllowedCredentialIDs: allowed,
	}
	descriptors := make([]CredentialDescriptor, 0, len(allowed))
	for _, id := range allowed {
		descriptors = append(descriptors, CredentialDescriptor{
			Type: "public-key",
			ID:   base64.RawURLEncoding.EncodeToString(id),
		})
	}
	options := RequestOptions{
		Challenge:        challenge.EncodedNonce(),
		RPID:             s.cfg.RPID,
		Timeout:          challenge.Timeout.Milliseconds(),
		UserVerification: "preferred",
		AllowCredentials: descriptors,
	}
	return options, challenge, nil
}

func (s *Service) resolveAllowedCredentials(ctx context.Context, identityHint string) [][]byte {
	if identityHint == "" {
		return nil
	}
	owner, err := s.users.GetUserByEmail(ctx, identityHint)
	if err != nil {
		return nil
	}
	stored, err := s.credentials.ListCredentialsByOwner(ctx, owner.ID)
	if err != nil {
		return nil
	}
	allowed := make([][]byte, 0, len(stored))
	for _, credential := range stored {
		raw, err := base64.RawURLEncoding.DecodeString(credential.CredentialID)
		if err != nil {
			continue
		}
		allowed = append(allowed, raw)
	}
	return allowed
}

// FinishRegistration verifies an attestation payload against the ceremony
// challenge and persists the recovered credential for the owner. When the
// verifier accepts the response without surfacing credential material, the
// material is extracted from the raw attestation object instead.
func (s *Service) FinishRegistration(ctx context.Context, ownerID int64, challenge Challenge, payload any, friendlyName string) (storage.Credential, error) {
	if err := s.checkChallenge(challenge, KindRegistration); err != nil {
		return storage.Credential{}, err
	}
	owner, err := s.users.GetUser(ctx, ownerID)
	if err != nil {
		return storage.Credential{}, err
	}
	attestation, err := wire.DecodeAttestation(payload)
	if err != nil {
		return storage.Credential{}, err
	}

	recovered, err := s.verifier.VerifyRegistration(RegistrationInput{
		Attestation:      attestation,
		Challenge:        challenge,
		OwnerHandle:      wire.EncodeSubjectID(owner.ID),
		OwnerName:        owner.Email,
		OwnerDisplayName: owner.DisplayName,
	})
	if err != nil {
		return storage.Credential{}, apperrors.Wrap(apperrors.CodeVerifierRejected, "registration rejected", err)
	}
	if recovered == nil {
		recovered, err = s.extractFallbackCredential(attestation)
		if err != nil {
			return storage.Credential{}, err
		}
	}
	if _, err := wire.DecodePublicKey(recovered.PublicKey); err != nil {
		return storage.Credential{}, err
	}

	now := s.clock()
	credential := storage.Credential{
		CredentialID: base64.RawURLEncoding.EncodeToString(recovered.ID),
		OwnerID:      owner.ID,
		PublicKey:    recovered.PublicKey,
		SignCount:    recovered.SignCount,
		AAGUID:       recovered.AAGUID,
		FriendlyName: friendlyName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.credentials.PutCredential(ctx, credential); err != nil {
		return storage.Credential{}, err
	}
	return credential, nil
}

func (s *Service) extractFallbackCredential(attestation *wire.Attestation) (*RecoveredCredential, error) {
	data, err := authdata.ExtractNoneAttestation(attestation.AttestationObject)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.CodeUnsupportedFallbackFormat {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeFallbackExtractionFailed, "extract credential from attestation object", err)
	}
	credentialID, publicKey, aaguid, err := data.AttestedCredential()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeFallbackExtractionFailed, "attestation object lacks attested credential data", err)
	}
	return &RecoveredCredential{
		ID:        credentialID,
		PublicKey: publicKey,
		SignCount: data.SignCount,
		AAGUID:    aaguid,
	}, nil
}

// FinishAuthentication verifies an assertion payload, applies sign-count
// clone detection, and returns the authenticated owner with the updated
// credential record.
func (s *Service) FinishAuthentication(ctx context.Context, challenge Challenge, payload any) (user.User, storage.Credential, error) {
	if err := s.checkChallenge(challenge, KindAuthentication); err != nil {
		return user.User{}, storage.Credential{}, err
	}
	assertion, err := wire.DecodeAssertion(payload)
	if err != nil {
		return user.User{}, storage.Credential{}, err
	}
	credential, err := storage.FindCredential(ctx, s.credentials, assertion.EncodedID)
	if err != nil {
		return user.User{}, storage.Credential{}, apperrors.Wrap(apperrors.CodeCredentialNotFound, "credential is not registered", err)
	}
	owner, err := s.users.GetUser(ctx, credential.OwnerID)
	if err != nil {
		return user.User{}, storage.Credential{}, apperrors.Wrap(apperrors.CodeCredentialNotFound, "credential owner is unknown", err)
	}
	publicKey, err := wire.DecodePublicKey(credential.PublicKey)
	if err != nil {
		return user.User{}, storage.Credential{}, err
	}

	newCount, err := s.verifier.VerifyAuthentication(AuthenticationInput{
		Assertion:         assertion,
		PublicKey:         publicKey,
		AAGUID:            credential.AAGUID,
		PreviousSignCount: credential.SignCount,
		Challenge:         challenge,
		OwnerHandle:       wire.EncodeSubjectID(owner.ID),
	})
	if err != nil {
		return user.User{}, storage.Credential{}, apperrors.Wrap(apperrors.CodeVerifierRejected, "authentication rejected", err)
	}
	if s.cfg.StrictSignCount && credential.SignCount > 0 && newCount < credential.SignCount {
		return user.User{}, storage.Credential{}, apperrors.WithMetadata(apperrors.CodeVerifierRejected, "sign count regressed",
			map[string]string{"credential_id": credential.CredentialID})
	}

	updated, err := s.credentials.UpdateSignCount(ctx, credential.CredentialID, newCount, s.clock())
	if err != nil {
		return user.User{}, storage.Credential{}, err
	}
	return owner, updated, nil
}

// ListCredentials returns the owner's registered credentials.
func (s *Service) ListCredentials(ctx context.Context, ownerID int64) ([]storage.Credential, error) {
	if _, err := s.users.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.credentials.ListCredentialsByOwner(ctx, ownerID)
}

// DeleteCredential removes a registered credential.
func (s *Service) DeleteCredential(ctx context.Context, credentialID string) error {
	return s.credentials.DeleteCredential(ctx, credentialID)
}

func (s *Service) checkChallenge(challenge Challenge, kind Kind) error {
	if challenge.Kind != kind || len(challenge.Nonce) == 0 {
		return apperrors.New(apperrors.CodeCeremonyNotFound, "ceremony does not match this operation")
	}
	if challenge.Expired(s.clock()) {
		return apperrors.New(apperrors.CodeCeremonyExpired, "ceremony challenge expired")
	}
	return nil
}

func (s *Service) primaryOrigin() string {
	if len(s.cfg.RPOrigins) > 0 {
		return s.cfg.RPOrigins[0]
	}
	return ""
}
