// Package auth tracks the console operator's session and guards protected views.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ashureev/wooagent/internal/client"
	"github.com/ashureev/wooagent/internal/domain"
)

// ErrNotAuthenticated is returned by Require when no user is logged in.
var ErrNotAuthenticated = errors.New("not logged in")

// SessionExpired is recorded when the API rejects the stored token.
const SessionExpired = "session expired, please log in again"

// Session moves between unauthenticated and authenticated. Only Login enters
// the authenticated state; Logout and HandleUnauthorized leave it.
type Session struct {
	client client.Client

	mu      sync.RWMutex
	user    *domain.User
	err     string
	pending int
	idle    chan struct{}
}

func NewSession(c client.Client) *Session {
	idle := make(chan struct{})
	close(idle)
	return &Session{client: c, idle: idle}
}

// Restore resumes a session from a token persisted by an earlier run. A
// rejected or missing token leaves the session unauthenticated without error.
func (s *Session) Restore(ctx context.Context) error {
	s.begin()
	defer s.end()

	u, err := s.client.CurrentUser(ctx)
	if err != nil {
		s.mu.Lock()
		s.user = nil
		s.mu.Unlock()
		if client.IsUnauthorized(err) {
			return nil
		}
		return fmt.Errorf("restore session: %w", err)
	}
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	return nil
}

// Login authenticates with creds. On failure the session stays unauthenticated
// and Err carries the message.
func (s *Session) Login(ctx context.Context, creds domain.Credentials) (*domain.User, error) {
	s.begin()
	defer s.end()

	resp, err := s.client.Login(ctx, creds)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.user = nil
		s.err = message(err, "Login failed")
		return nil, err
	}
	s.user = resp.User
	s.err = ""
	slog.Info("Logged in", "user_id", resp.User.ID)
	return resp.User, nil
}

// Logout ends the session locally even when the server call fails.
func (s *Session) Logout(ctx context.Context) error {
	s.begin()
	defer s.end()

	err := s.client.Logout(ctx)
	s.mu.Lock()
	s.user = nil
	s.err = ""
	s.mu.Unlock()
	if err != nil {
		slog.Warn("Logout request failed", "error", err)
		return err
	}
	return nil
}

// HandleUnauthorized is the forced logout run after the API answered 401.
func (s *Session) HandleUnauthorized() {
	s.mu.Lock()
	had := s.user != nil
	s.user = nil
	if had {
		s.err = SessionExpired
	}
	s.mu.Unlock()
	if had {
		slog.Info("Session expired")
	}
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Loading reports whether a login, logout or restore is in flight.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending > 0
}

func (s *Session) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Wait blocks until no session call is in flight.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.RLock()
	idle := s.idle
	s.mu.RUnlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Require waits for pending session calls and fails unless a user is logged in.
func (s *Session) Require(ctx context.Context) (*domain.User, error) {
	if err := s.Wait(ctx); err != nil {
		return nil, err
	}
	if u := s.User(); u != nil {
		return u, nil
	}
	return nil, ErrNotAuthenticated
}

func (s *Session) begin() {
	s.mu.Lock()
	if s.pending == 0 {
		s.idle = make(chan struct{})
	}
	s.pending++
	s.mu.Unlock()
}

func (s *Session) end() {
	s.mu.Lock()
	s.pending--
	if s.pending == 0 {
		close(s.idle)
	}
	s.mu.Unlock()
}

func message(err error, fallback string) string {
	var cerr *client.Error
	if errors.As(err, &cerr) && cerr.Message != "" {
		return cerr.Message
	}
	return fallback
}
