package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/crossing.space/internal/auth/storage"
	apperrors "github.com/louisbranch/crossing.space/internal/platform/errors"
)

type optionsResponse struct {
	CeremonyID string `json:"ceremony_id"`
	PublicKey  any    `json:"public_key"`
}

type registerRequest struct {
	CeremonyID   string          `json:"ceremony_id"`
	Attestation  json.RawMessage `json:"attestation"`
	FriendlyName string          `json:"friendly_name"`
}

type authenticateRequest struct {
	CeremonyID string          `json:"ceremony_id"`
	Assertion  json.RawMessage `json:"assertion"`
}

type authenticateResponse struct {
	HandoffToken string `json:"handoff_token"`
	OwnerID      int64  `json:"owner_id"`
}

type redeemRequest struct {
	Token string `json:"token"`
}

type redeemResponse struct {
	Subject int64 `json:"subject"`
}

type credentialView struct {
	ID           string     `json:"id"`
	OwnerID      int64      `json:"owner_id"`
	SignCount    uint32     `json:"sign_count"`
	FriendlyName string     `json:"friendly_name,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
}

func viewCredential(credential storage.Credential) credentialView {
	return credentialView{
		ID:           credential.CredentialID,
		OwnerID:      credential.OwnerID,
		SignCount:    credential.SignCount,
		FriendlyName: credential.FriendlyName,
		CreatedAt:    credential.CreatedAt,
		LastUsedAt:   credential.LastUsedAt,
	}
}

func (s *Server) handleRegistrationOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ownerID, err := strconv.ParseInt(r.URL.Query().Get("owner_id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "owner_id must be an integer")
		return
	}
	options, challenge, err := s.passkeys.BeginRegistration(r.Context(), ownerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	ceremonyID, err := s.ceremonies.create(challenge, ownerID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "server_error", "failed to create ceremony")
		return
	}
	writeJSON(w, http.StatusOK, optionsResponse{CeremonyID: ceremonyID, PublicKey: options})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	entry, err := s.ceremonies.consume(req.CeremonyID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	credential, err := s.passkeys.FinishRegistration(r.Context(), entry.ownerID, entry.challenge, req.Attestation, req.FriendlyName)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewCredential(credential))
}

func (s *Server) handleAuthenticationOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	options, challenge, err := s.passkeys.BeginAuthentication(r.Context(), r.URL.Query().Get("identity_hint"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	ceremonyID, err := s.ceremonies.create(challenge, 0)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "server_error", "failed to create ceremony")
		return
	}
	writeJSON(w, http.StatusOK, optionsResponse{CeremonyID: ceremonyID, PublicKey: options})
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	entry, err := s.ceremonies.consume(req.CeremonyID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	owner, _, err := s.passkeys.FinishAuthentication(r.Context(), entry.challenge, req.Assertion)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	token := s.handoff.Issue(owner.ID)
	writeJSON(w, http.StatusOK, authenticateResponse{HandoffToken: token, OwnerID: owner.ID})
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	subject, issuedAt, err := s.handoff.Validate(req.Token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.handoff.MarkUsed(subject, issuedAt); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redeemResponse{Subject: subject})
}

func (s *Server) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ownerID, err := strconv.ParseInt(r.URL.Query().Get("owner_id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "owner_id must be an integer")
		return
	}
	credentials, err := s.passkeys.ListCredentials(r.Context(), ownerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	views := make([]credentialView, 0, len(credentials))
	for _, credential := range credentials {
		views = append(views, viewCredential(credential))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCredentialByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	credentialID := strings.TrimPrefix(r.URL.Path, "/passkeys/")
	if credentialID == "" || strings.Contains(credentialID, "/") {
		writeJSONError(w, http.StatusNotFound, "not_found", "unknown credential path")
		return
	}
	if err := s.passkeys.DeleteCredential(r.Context(), credentialID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeDomainError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	writeJSONError(w, code.HTTPStatus(), string(code), err.Error())
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, errorResponse{Error: code, ErrorDescription: description})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}
