package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/signalspoc/signals-cli/internal/cli/api"
	"github.com/signalspoc/signals-cli/internal/cli/connection"
	"github.com/signalspoc/signals-cli/internal/storage"
	"github.com/signalspoc/signals-cli/internal/telemetry/logger"
	"github.com/signalspoc/signals-cli/internal/telemetry/metric"
)

// DefaultLoginError is reported when a failed login carries no server message.
const DefaultLoginError = "Login failed"

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*api.LoginResponse, error)
}

// Identity describes the logged-in user.
type Identity struct {
	Username string `json:"username"`
}

// LoginResult reports the outcome of Login. Error is set only on failure.
type LoginResult struct {
	Success bool
	Error   string
}

// Session is the in-memory session, backed by a persistent record.
//
// Token and identity are always set and cleared together.
type Session struct {
	mu       sync.RWMutex
	token    string
	identity *Identity

	record  *storage.Record
	auth    Authenticator
	log     logger.Logger
	metrics *metric.Client
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics records login, logout and invalidation counts on m.
func WithMetrics(m *metric.Client) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// Open restores the session persisted in record.
//
// A malformed user document counts as absent. A record holding only one
// of token and user is cleared so the pair stays consistent.
func Open(ctx context.Context, record *storage.Record, auth Authenticator, opts ...Option) (*Session, error) {
	s := &Session{
		record: record,
		auth:   auth,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	snap, malformed, err := record.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if malformed {
		s.log.Warn("ignoring malformed stored user")
	}

	if snap.Empty() {
		if snap.Token != "" || snap.User != nil || malformed {
			s.log.Debug("clearing partial stored session")
			if err := record.Clear(ctx); err != nil {
				s.log.Warn("failed to clear partial stored session", "error", err)
			}
		}
		return s, nil
	}

	s.token = snap.Token
	s.identity = &Identity{Username: snap.User.Username}
	s.log.Debug("session restored", "username", snap.User.Username)
	return s, nil
}

// Token returns the current bearer token, or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Identity returns a copy of the current identity, or nil.
func (s *Session) Identity() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// IsAuthenticated reports whether a token is present.
func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// Login authenticates against the server and, on success, replaces the
// session. Failures leave the prior session untouched and are reported in
// the result, never as an error.
func (s *Session) Login(ctx context.Context, username, password string) LoginResult {
	resp, err := s.auth.Login(ctx, username, password)
	if err != nil {
		if connection.StatusCode(err) != 0 {
			s.metrics.ObserveLogin(metric.LoginRejected)
		} else {
			s.metrics.ObserveLogin(metric.LoginError)
		}
		s.log.Debug("login failed", "username", username, "error", err)
		return LoginResult{Error: loginMessage(err)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record.Save(ctx, resp.AccessToken, storage.User{Username: resp.Username}); err != nil {
		s.metrics.ObserveLogin(metric.LoginError)
		s.log.Error("failed to persist session", "error", err)
		return LoginResult{Error: DefaultLoginError}
	}

	s.token = resp.AccessToken
	s.identity = &Identity{Username: resp.Username}
	s.metrics.ObserveLogin(metric.LoginSuccess)
	s.log.Info("logged in", "username", resp.Username)
	return LoginResult{Success: true}
}

// Logout ends the session. It always clears the in-memory session; the
// returned error only reports a failure to clear the persistent record.
// Calling Logout without a session is a no-op apart from the store write.
func (s *Session) Logout(ctx context.Context) error {
	err := s.clear(ctx)
	s.metrics.ObserveLogout()
	return err
}

// Invalidate performs a forced logout after the server rejected the token.
// Its effect on memory and store is the same as Logout.
func (s *Session) Invalidate(ctx context.Context) error {
	err := s.clear(ctx)
	s.metrics.ObserveInvalidation()
	s.log.Info("session invalidated by server")
	return err
}

func (s *Session) clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.record.Clear(ctx)
	if err != nil {
		s.log.Warn("failed to clear stored session", "error", err)
		err = fmt.Errorf("clear session: %w", err)
	}
	s.token = ""
	s.identity = nil
	return err
}

// loginMessage picks the server's message when the failure carries one.
func loginMessage(err error) string {
	var sm interface{ ServerMessage() string }
	if errors.As(err, &sm) {
		if msg := sm.ServerMessage(); msg != "" {
			return msg
		}
	}
	return DefaultLoginError
}
