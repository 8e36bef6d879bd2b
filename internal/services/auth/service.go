// Package auth wraps the session endpoints. It owns nothing beyond the
// persisted user record; the bearer token itself lives in the transport
// client, which mirrors it to storage.
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/igebriel/taskweave/internal/api"
	"github.com/igebriel/taskweave/internal/models"
	"github.com/igebriel/taskweave/internal/storage"
)

// Service defines all session-related operations
type Service interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) error
	Validate(ctx context.Context) error

	// CurrentUser returns the locally persisted session owner.
	CurrentUser() (*models.User, error)
}

// session is the payload returned by the login and refresh endpoints.
type session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user,omitempty"`
}

// service implements Service interface
type service struct {
	client *api.Client
	store  *storage.Store
}

// NewService creates a new auth service
func NewService(client *api.Client, store *storage.Store) Service {
	return &service{client: client, store: store}
}

// Login authenticates against the API, installs the bearer token on the
// transport client, and persists the user record for offline sessions.
func (s *service) Login(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" {
		return nil, ErrEmptyEmail
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}

	env, err := s.client.Post(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	var sess session
	if err := env.Decode(&sess); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if sess.Token == "" {
		return nil, ErrMalformedLogin
	}

	s.client.SetToken(sess.Token)

	if sess.User != nil {
		if err := s.store.Set(storage.KeyAuthUser, sess.User); err != nil {
			slog.Warn("Failed to persist user record", "error", err)
		}
	}

	return sess.User, nil
}

// Logout ends the session remotely (best effort) and always clears
// local session state, so a dead network never traps a user signed in.
func (s *service) Logout(ctx context.Context) error {
	if _, err := s.client.Post(ctx, "/auth/logout", nil); err != nil {
		slog.Warn("Remote logout failed, clearing local session anyway", "error", err)
	}

	s.client.ClearToken()
	if err := s.store.Delete(storage.KeyAuthUser); err != nil {
		return fmt.Errorf("clear user record: %w", err)
	}
	return nil
}

// Refresh exchanges the current token for a fresh one.
func (s *service) Refresh(ctx context.Context) error {
	if s.client.Token() == "" {
		return ErrNotSignedIn
	}

	env, err := s.client.Post(ctx, "/auth/refresh", nil)
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}

	var sess session
	if err := env.Decode(&sess); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}
	if sess.Token == "" {
		return ErrMalformedLogin
	}

	s.client.SetToken(sess.Token)
	return nil
}

// Validate asks the API whether the current session is still good.
// A rejected token has already been cleared by the transport client by
// the time this returns.
func (s *service) Validate(ctx context.Context) error {
	if s.client.Token() == "" {
		return ErrNotSignedIn
	}

	if _, err := s.client.Post(ctx, "/auth/validate", nil); err != nil {
		if apiErr, ok := api.AsError(err); ok && apiErr.Status == 401 {
			return ErrSessionInvalid
		}
		return fmt.Errorf("validate session: %w", err)
	}
	return nil
}

// CurrentUser returns the persisted session owner, or ErrNotSignedIn
// when no user record is stored.
func (s *service) CurrentUser() (*models.User, error) {
	var user models.User
	found, err := s.store.Get(storage.KeyAuthUser, &user)
	if err != nil {
		return nil, fmt.Errorf("read user record: %w", err)
	}
	if !found {
		return nil, ErrNotSignedIn
	}
	return &user, nil
}
