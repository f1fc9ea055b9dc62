package health

import (
	"context"
	"fmt"
	"os"

	"github.com/felixgeelhaar/nexora/internal/api"
	"github.com/felixgeelhaar/nexora/internal/session"
)

// BackendChecker probes the backend with the current-user endpoint. A
// rejected token still proves the backend is reachable.
type BackendChecker struct {
	client *api.Client
}

// NewBackendChecker checks the backend client talks to.
func NewBackendChecker(client *api.Client) *BackendChecker {
	return &BackendChecker{client: client}
}

// Name returns the name of this health check.
func (c *BackendChecker) Name() string {
	return "backend"
}

// Check calls GET /auth/me/.
func (c *BackendChecker) Check(ctx context.Context) *Result {
	var me map[string]any
	err := c.client.Get(ctx, "/auth/me/", nil, &me)
	if err == nil {
		return Healthy("backend reachable, session valid").
			WithDetail("url", c.client.BaseURL()).
			WithDetail("username", me["username"])
	}

	apiErr, ok := api.AsError(err)
	switch {
	case ok && apiErr.Status < 500:
		return Degraded(fmt.Sprintf("backend reachable, not signed in (HTTP %d)", apiErr.Status)).
			WithDetail("url", c.client.BaseURL()).
			WithSuggestion("Sign in with 'nexora auth login'")
	case ok:
		return Unhealthy(fmt.Sprintf("backend error: %s", apiErr.Error())).
			WithDetail("url", c.client.BaseURL()).
			WithSuggestion("The backend may be starting up; try again in a moment")
	default:
		return Unhealthy(err.Error()).
			WithDetail("url", c.client.BaseURL()).
			WithSuggestion("Check --api-url (or NEXORA_API_URL) and your network connection")
	}
}

// CredentialsChecker inspects the local credentials file.
type CredentialsChecker struct {
	file *session.File
}

// NewCredentialsChecker checks file.
func NewCredentialsChecker(file *session.File) *CredentialsChecker {
	return &CredentialsChecker{file: file}
}

// Name returns the name of this health check.
func (c *CredentialsChecker) Name() string {
	return "credentials"
}

// Check verifies the file parses, holds a token and is private to the user.
func (c *CredentialsChecker) Check(ctx context.Context) *Result {
	path := c.file.Path()
	token, err := c.file.Token(ctx)
	if err != nil {
		return Unhealthy(err.Error()).
			WithDetail("path", path).
			WithSuggestion("Run 'nexora auth logout' and sign in again")
	}
	if token == "" {
		return Degraded("no stored token").
			WithDetail("path", path).
			WithSuggestion("Sign in with 'nexora auth login'")
	}

	info, err := os.Stat(path)
	if err != nil {
		return Unhealthy(err.Error()).WithDetail("path", path)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return Degraded(fmt.Sprintf("credentials file is accessible to other users (%04o)", info.Mode().Perm())).
			WithDetail("path", path).
			WithSuggestion("chmod 600 " + path)
	}

	return Healthy("token stored").
		WithDetail("path", path).
		WithDetail("username", c.file.Username())
}

// CheckFunc adapts a function to Checker.
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) *Result
}

// NewCheckFunc names fn as a check.
func NewCheckFunc(name string, fn func(ctx context.Context) *Result) CheckFunc {
	return CheckFunc{name: name, fn: fn}
}

// Name returns the name of this health check.
func (c CheckFunc) Name() string {
	return c.name
}

// Check runs the function.
func (c CheckFunc) Check(ctx context.Context) *Result {
	return c.fn(ctx)
}
