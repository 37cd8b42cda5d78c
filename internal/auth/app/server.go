// Package app assembles the passkey auth service: storage, ceremony
// verification, handoff issuance, and the HTTP surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/crossing.space/internal/auth/api/httpapi"
	"github.com/louisbranch/crossing.space/internal/auth/handoff"
	"github.com/louisbranch/crossing.space/internal/auth/passkey"
	authsqlite "github.com/louisbranch/crossing.space/internal/auth/storage/sqlite"
	"github.com/louisbranch/crossing.space/internal/auth/user"
	apperrors "github.com/louisbranch/crossing.space/internal/platform/errors"
	"github.com/louisbranch/crossing.space/internal/platform/otel"
)

// Server hosts the passkey auth service.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *authsqlite.Store
	api        *httpapi.Server
}

// New creates a configured auth server listening on the provided address.
func New(httpAddr string) (*Server, error) {
	store, err := openAuthStore()
	if err != nil {
		return nil, err
	}

	passkeyConfig := passkey.LoadConfigFromEnv()
	verifier, err := passkey.NewWebAuthnVerifier(passkeyConfig)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	passkeyService := passkey.NewService(passkeyConfig, verifier, store, store)

	handoffConfig := handoff.LoadConfigFromEnv()
	if handoffConfig.Secret == "" {
		_ = store.Close()
		return nil, fmt.Errorf("CROSSING_SPACE_HANDOFF_SECRET is required")
	}
	issuer := handoff.NewIssuer(handoffConfig, handoff.NewMemoryMarkerStore())

	if err := bootstrapOwner(store); err != nil {
		_ = store.Close()
		return nil, err
	}

	listener, err := net.Listen("tcp", httpAddr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on http addr %s: %w", httpAddr, err)
	}

	mux := http.NewServeMux()
	api := httpapi.NewServer(passkeyService, issuer)
	api.RegisterRoutes(mux)

	return &Server{
		listener:   listener,
		httpServer: &http.Server{Handler: mux},
		store:      store,
		api:        api,
	}, nil
}

// Addr returns the listener address for the auth server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves an auth server until the context ends.
func Run(ctx context.Context, httpAddr string) error {
	server, err := New(httpAddr)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the auth server and blocks until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	serverCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.closeStore()

	shutdownTracing, err := otel.Setup(serverCtx, "authd")
	if err != nil {
		log.Printf("tracing setup: %v", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(shutdownCtx)
		}()
	}

	s.api.StartCleanup(serverCtx, 5*time.Minute)

	log.Printf("auth server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}
}

func openAuthStore() (*authsqlite.Store, error) {
	path := strings.TrimSpace(os.Getenv("CROSSING_SPACE_AUTH_DB_PATH"))
	if path == "" {
		path = filepath.Join("data", "auth.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	store, err := authsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open auth sqlite store: %w", err)
	}
	return store, nil
}

func (s *Server) closeStore() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close auth store: %v", err)
		}
	}
}

// bootstrapOwner seeds an initial owner account from the environment so a
// fresh deployment has someone to register passkeys against.
func bootstrapOwner(store *authsqlite.Store) error {
	email := strings.TrimSpace(os.Getenv("CROSSING_SPACE_BOOTSTRAP_OWNER_EMAIL"))
	displayName := strings.TrimSpace(os.Getenv("CROSSING_SPACE_BOOTSTRAP_OWNER_DISPLAY_NAME"))
	if email == "" || displayName == "" {
		return nil
	}
	ctx := context.Background()
	_, err := store.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if apperrors.GetCode(err) != apperrors.CodeNotFound {
		return fmt.Errorf("lookup bootstrap owner: %w", err)
	}
	created, createErr := user.NewUser(user.CreateUserInput{Email: email, DisplayName: displayName}, time.Now)
	if createErr != nil {
		return fmt.Errorf("create bootstrap owner: %w", createErr)
	}
	if _, err := store.CreateUser(ctx, created); err != nil {
		return fmt.Errorf("store bootstrap owner: %w", err)
	}
	return nil
}
