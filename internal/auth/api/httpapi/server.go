// Package httpapi exposes passkey ceremonies and handoff redemption over
// HTTP with JSON bodies.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/louisbranch/crossing.space/internal/auth/handoff"
	"github.com/louisbranch/crossing.space/internal/auth/passkey"
)

// Server hosts the passkey and handoff HTTP endpoints.
type Server struct {
	passkeys   *passkey.Service
	handoff    *handoff.Issuer
	ceremonies *ceremonyStore
	clock      func() time.Time
}

// NewServer builds a server bound to the passkey service and handoff issuer.
func NewServer(passkeys *passkey.Service, issuer *handoff.Issuer) *Server {
	return &Server{
		passkeys:   passkeys,
		handoff:    issuer,
		ceremonies: newCeremonyStore(),
		clock:      time.Now,
	}
}

// RegisterRoutes registers the HTTP endpoints on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("/passkeys/registration-options", s.handleRegistrationOptions)
	mux.HandleFunc("/passkeys/register", s.handleRegister)
	mux.HandleFunc("/passkeys/authentication-options", s.handleAuthenticationOptions)
	mux.HandleFunc("/passkeys/authenticate", s.handleAuthenticate)
	mux.HandleFunc("/handoff/redeem", s.handleRedeem)
	mux.HandleFunc("/passkeys", s.handleListCredentials)
	mux.HandleFunc("/passkeys/", s.handleCredentialByID)
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

// StartCleanup starts periodic expiry cleanup for in-flight ceremonies and
// redeemed token markers.
func (s *Server) StartCleanup(ctx context.Context, interval time.Duration) {
	if s == nil || interval <= 0 {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := s.clock().UTC()
				s.ceremonies.cleanupExpired(now)
				s.handoff.EvictExpiredMarkers()
			}
		}
	}()
}
