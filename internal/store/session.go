package store

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"EconDash/internal/domain/models"
	drepo "EconDash/internal/domain/repository"
)

// Session operation kinds.
const (
	OpLogin    = "login"
	OpRegister = "register"
	OpLogout   = "logout"
)

// Status is the authentication state of a Session.
type Status int

const (
	StatusLoggedOut Status = iota
	StatusLoggingIn
	StatusLoggedIn
)

func (s Status) String() string {
	switch s {
	case StatusLoggingIn:
		return "logging_in"
	case StatusLoggedIn:
		return "logged_in"
	default:
		return "logged_out"
	}
}

// Session owns the authentication token and the user identity.
type Session struct {
	base
	api    drepo.AuthAPI
	tokens drepo.TokenStore

	token string
	user  *models.User
}

// NewSession creates the session store and restores any token left in the
// durable slot by a previous run.
func NewSession(ctx context.Context, api drepo.AuthAPI, tokens drepo.TokenStore, opts ...Option) (*Session, error) {
	s := &Session{api: api, tokens: tokens}
	s.init("session", opts)

	token, err := tokens.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	s.token = token
	return s, nil
}

// Login exchanges credentials for a token. On success the token is persisted
// and then published in memory, both under the store lock; on failure the
// session is left exactly as it was.
func (s *Session) Login(ctx context.Context, username, password string) error {
	var issued string
	return s.run(OpLogin, false,
		func() error {
			resp, err := s.api.Login(ctx, username, password)
			if err != nil {
				return err
			}
			issued = resp.AccessToken
			return nil
		},
		func() error {
			if err := s.tokens.Save(ctx, issued); err != nil {
				return err
			}
			s.token = issued
			s.user = nil
			return nil
		},
	)
}

// Register creates an account. A nil email is left out of the payload. The
// session is not touched: registering does not log in.
func (s *Session) Register(ctx context.Context, username, password string, email *string) (*models.User, error) {
	req := &models.RegisterRequest{Username: username, Password: password, Email: email}
	var user *models.User
	err := s.run(OpRegister, false, func() error {
		if err := validate.StructCtx(ctx, req); err != nil {
			return fmt.Errorf("register: %w", err)
		}
		u, err := s.api.Register(ctx, req)
		if err != nil {
			return err
		}
		user = u
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Logout clears the in-memory token and user, then removes the persisted
// token. Memory is cleared even when the slot cannot be emptied; that error
// is returned.
func (s *Session) Logout(ctx context.Context) error {
	start := time.Now()

	s.mu.Lock()
	s.token = ""
	s.user = nil
	err := s.tokens.Clear(ctx)
	if err != nil {
		s.ops.fail(OpLogout, err)
	}
	s.mu.Unlock()

	s.observe(OpLogout, err, time.Since(start))
	return err
}

// IsLoggedIn reports whether a token is held.
func (s *Session) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Status derives the state machine position from the token and any login
// in flight.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.token != "":
		return StatusLoggedIn
	case s.ops.state(OpLogin).Loading:
		return StatusLoggingIn
	default:
		return StatusLoggedOut
	}
}

// Token returns the current token, or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the identity snapshot, or nil when none was provided.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SetUser records the identity of the logged in user. It is ignored when no
// token is held, and cleared by Logout and by the next Login.
func (s *Session) SetUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || u == nil {
		return
	}
	cp := *u
	s.user = &cp
}

// Subject returns the "sub" claim of the held token. The token is decoded
// without verification; it is only used for display.
func (s *Session) Subject() string {
	claims, ok := s.claims()
	if !ok {
		return ""
	}
	return claims.Subject
}

// ExpiresAt returns the "exp" claim of the held token, if any.
func (s *Session) ExpiresAt() (time.Time, bool) {
	claims, ok := s.claims()
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func (s *Session) claims() (*jwt.RegisteredClaims, bool) {
	token := s.Token()
	if token == "" {
		return nil, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}
