// Package session tracks the signed-in user and wraps the auth endpoints.
package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/nexora/internal/api"
	"github.com/felixgeelhaar/nexora/internal/errors"
	"github.com/felixgeelhaar/nexora/internal/log"
)

// Roles.
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// User is an account as returned by /auth/me/ and the admin user endpoints.
type User struct {
	ID           int        `json:"id" yaml:"id"`
	Username     string     `json:"username" yaml:"username"`
	Name         string     `json:"name" yaml:"name"`
	Email        string     `json:"email" yaml:"email"`
	Role         string     `json:"role" yaml:"role"`
	Enabled      bool       `json:"enabled" yaml:"enabled"`
	DateJoined   *time.Time `json:"date_joined,omitempty" yaml:"date_joined,omitempty"`
	LastLogin    *time.Time `json:"last_login,omitempty" yaml:"last_login,omitempty"`
	ProjectCount int        `json:"project_count,omitempty" yaml:"project_count,omitempty"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// DisplayName prefers the full name over the username.
func (u *User) DisplayName() string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Username
}

// SignupRequest is the body of POST /auth/signup/.
type SignupRequest struct {
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Store holds the current user and a loading flag, and persists the token
// in a credentials file.
type Store struct {
	client *api.Client
	creds  *File
	logger *log.Logger

	mu      sync.RWMutex
	user    *User
	loading bool
}

// NewStore returns a store whose client authenticates from creds.
func NewStore(client *api.Client, creds *File, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Store{
		client: client.WithCredentials(creds),
		creds:  creds,
		logger: logger.With("component", "session"),
	}
}

// Client returns the API client authenticated with the stored token.
func (s *Store) Client() *api.Client {
	return s.client
}

// Credentials returns the credentials file.
func (s *Store) Credentials() *File {
	return s.creds
}

// User returns the cached user, nil when signed out or not yet checked.
func (s *Store) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Loading reports whether a user check is in progress.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) setUser(u *User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// Check resolves the current user from the stored token. With no token it
// returns nil and no error. A token the backend rejects is removed.
func (s *Store) Check(ctx context.Context) (*User, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	token, err := s.creds.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		s.setUser(nil)
		return nil, nil
	}

	var user User
	if err := s.client.Get(ctx, "/auth/me/", nil, &user); err != nil {
		if api.IsUnauthorized(err) {
			s.logger.Debug("stored token rejected, clearing credentials", "error", err)
			if clearErr := s.creds.Clear(); clearErr != nil {
				s.logger.WithError(clearErr).Warn("failed to clear credentials")
			}
			s.setUser(nil)
			return nil, errors.NewSessionExpiredError(err)
		}
		return nil, err
	}

	s.setUser(&user)
	return &user, nil
}

// Login exchanges username and password for a token and stores it.
func (s *Store) Login(ctx context.Context, username, password string) (*User, error) {
	var resp tokenResponse
	body := map[string]string{"username": username, "password": password}
	if err := s.client.Post(ctx, "/auth/login/", body, &resp); err != nil {
		return nil, authError(errors.ErrCodeLoginFailed, "Login failed", err)
	}
	return s.establish(ctx, errors.ErrCodeLoginFailed, resp, username)
}

// Signup creates an account and signs in with the returned token.
func (s *Store) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	var resp tokenResponse
	if err := s.client.Post(ctx, "/auth/signup/", req, &resp); err != nil {
		return nil, authError(errors.ErrCodeSignupFailed, "Signup failed", err)
	}
	username := req.Username
	if username == "" {
		username = req.Email
	}
	return s.establish(ctx, errors.ErrCodeSignupFailed, resp, username)
}

func (s *Store) establish(ctx context.Context, code errors.ErrorCode, resp tokenResponse, username string) (*User, error) {
	if resp.Token == "" {
		return nil, errors.New(code, "backend response did not include a token")
	}

	if resp.User != nil && resp.User.Username != "" {
		username = resp.User.Username
	}
	if err := s.creds.Save(resp.Token, username); err != nil {
		return nil, err
	}

	if resp.User != nil {
		s.setUser(resp.User)
		return resp.User, nil
	}
	return s.Check(ctx)
}

// Logout revokes the token on the backend when possible and always clears
// local credentials.
func (s *Store) Logout(ctx context.Context) error {
	token, err := s.creds.Token(ctx)
	if err == nil && token != "" {
		if err := s.client.Post(ctx, "/auth/logout/", nil, nil); err != nil {
			s.logger.Debug("backend logout failed", "error", err)
		}
	}

	s.setUser(nil)
	return s.creds.Clear()
}

// RequireUser returns the signed-in user or a not-authenticated error.
func (s *Store) RequireUser(ctx context.Context) (*User, error) {
	if u := s.User(); u != nil {
		return u, nil
	}
	u, err := s.Check(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.NewNotAuthenticatedError()
	}
	return u, nil
}

// RequireAdmin is RequireUser restricted to the admin role.
func (s *Store) RequireAdmin(ctx context.Context) (*User, error) {
	u, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !u.IsAdmin() {
		return nil, errors.NewAdminRequiredError(u.Username)
	}
	return u, nil
}

// authError turns a backend rejection into a coded error. Validation errors
// are spelled out since their cause reads only "API request failed".
// Transport errors pass through unchanged.
func authError(code errors.ErrorCode, fallback string, err error) error {
	apiErr, ok := api.AsError(err)
	if !ok {
		return err
	}
	msg := fallback
	if apiErr.Message == api.DefaultErrorMessage {
		if detail := Describe(apiErr, ""); detail != "" {
			msg = fmt.Sprintf("%s: %s", fallback, detail)
		}
	}
	return errors.Wrap(code, msg, err)
}

// Describe picks the most useful message of a backend error: the detail or
// message text, else the first field validation error.
func Describe(apiErr *api.Error, fallback string) string {
	if apiErr.Message != "" && apiErr.Message != api.DefaultErrorMessage {
		return apiErr.Message
	}

	fields := apiErr.FieldErrors()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(fields[k]) == 0 {
			continue
		}
		if k == "non_field_errors" {
			return fields[k][0]
		}
		return k + ": " + fields[k][0]
	}
	return fallback
}
