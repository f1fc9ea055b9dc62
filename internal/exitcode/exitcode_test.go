package exitcode

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	nexerrors "github.com/felixgeelhaar/nexora/internal/errors"
)

type httpErr int

func (e httpErr) Error() string   { return fmt.Sprintf("status %d", int(e)) }
func (e httpErr) HTTPStatus() int { return int(e) }

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected int
	}{
		{"Success", Success, 0},
		{"GeneralError", GeneralError, 1},
		{"UsageError", UsageError, 2},
		{"AuthError", AuthError, 5},
		{"NetworkError", NetworkError, 6},
		{"Interrupted", Interrupted, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.expected {
				t.Errorf("Exit code %s = %d, want %d", tt.name, tt.code, tt.expected)
			}
		})
	}
}

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error returns success", nil, Success},
		{"context canceled", fmt.Errorf("submit: %w", context.Canceled), Interrupted},
		{"deadline exceeded", context.DeadlineExceeded, NetworkError},
		{"401 from backend", fmt.Errorf("list projects: %w", httpErr(401)), AuthError},
		{"403 from backend", httpErr(403), AuthError},
		{"404 from backend", httpErr(404), GeneralError},
		{"500 from backend", httpErr(500), GeneralError},
		{"not authenticated error", nexerrors.NewNotAuthenticatedError(), AuthError},
		{"admin required error", nexerrors.NewAdminRequiredError("bob"), AuthError},
		{"unreachable error", nexerrors.NewAPIUnreachableError("http://x", errors.New("boom")), NetworkError},
		{"interrupted flow", nexerrors.New(nexerrors.ErrCodeFlowInterrupted, "stopped"), Interrupted},
		{"config invalid", nexerrors.NewConfigInvalidError("output", "unknown"), UsageError},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("refused")}, NetworkError},
		{"connection refused message", errors.New("dial tcp: connection refused"), NetworkError},
		{"timeout message", errors.New("request timeout"), NetworkError},
		{"unauthorized message", errors.New("401 Unauthorized"), AuthError},
		{"unknown command", errors.New(`unknown command "foo" for "nexora"`), UsageError},
		{"required flag", errors.New(`required flag(s) "name" not set`), UsageError},
		{"generic", errors.New("something broke"), GeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineExitCode(tt.err); got != tt.expected {
				t.Errorf("DetermineExitCode(%v) = %d, want %d", tt.err, got, tt.expected)
			}
		})
	}
}

func TestGetExitCodeDescription(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{Success, "Success"},
		{GeneralError, "General error"},
		{UsageError, "Usage error (invalid flags or arguments)"},
		{AuthError, "Authentication error"},
		{NetworkError, "Network error"},
		{Interrupted, "Interrupted"},
		{99, "Unknown error"},
	}

	for _, tt := range tests {
		if got := GetExitCodeDescription(tt.code); got != tt.want {
			t.Errorf("GetExitCodeDescription(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
