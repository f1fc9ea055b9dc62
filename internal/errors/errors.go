package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Auth errors (AUTH-001 to AUTH-099)
	ErrCodeNotAuthenticated   ErrorCode = "AUTH-001"
	ErrCodeLoginFailed        ErrorCode = "AUTH-002"
	ErrCodeSignupFailed       ErrorCode = "AUTH-003"
	ErrCodeSessionExpired     ErrorCode = "AUTH-004"
	ErrCodeAdminRequired      ErrorCode = "AUTH-005"
	ErrCodeCredentialsCorrupt ErrorCode = "AUTH-006"

	// Backend API errors (API-001 to API-099)
	ErrCodeAPIRequest     ErrorCode = "API-001"
	ErrCodeAPIUnreachable ErrorCode = "API-002"
	ErrCodeAPINotFound    ErrorCode = "API-003"
	ErrCodeAPIContract    ErrorCode = "API-004"
	ErrCodeAPIDecode      ErrorCode = "API-005"

	// Question flow errors (FLOW-001 to FLOW-099)
	ErrCodeFlowEmptyAnswer  ErrorCode = "FLOW-001"
	ErrCodeFlowInFlight     ErrorCode = "FLOW-002"
	ErrCodeFlowInterrupted  ErrorCode = "FLOW-003"
	ErrCodeFlowNotAnswering ErrorCode = "FLOW-004"

	// Report errors (REPORT-001 to REPORT-099)
	ErrCodeReportPending      ErrorCode = "REPORT-001"
	ErrCodeReportRender       ErrorCode = "REPORT-002"
	ErrCodeReportLockInvalid  ErrorCode = "REPORT-003"
	ErrCodeReportRegenDisable ErrorCode = "REPORT-004"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid ErrorCode = "CONFIG-001"
	ErrCodeConfigRead    ErrorCode = "CONFIG-002"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
	ErrCodeDirectoryFailed ErrorCode = "IO-004"
	ErrCodeFileUnmarshal   ErrorCode = "IO-005"
	ErrCodeFileMarshal     ErrorCode = "IO-006"
)

const docsBase = "https://github.com/felixgeelhaar/nexora"

// NexoraError represents an enhanced error with code, suggestions, and documentation
type NexoraError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *NexoraError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)

	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			fmt.Fprintf(&b, "\n  • %s", suggestion)
		}
	}

	if e.DocsURL != "" {
		fmt.Fprintf(&b, "\n\nDocumentation: %s", e.DocsURL)
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *NexoraError) Unwrap() error {
	return e.Cause
}

// Category returns the code prefix, e.g. "AUTH" for AUTH-001.
func (c ErrorCode) Category() string {
	prefix, _, _ := strings.Cut(string(c), "-")
	return prefix
}

// New creates a new NexoraError
func New(code ErrorCode, message string) *NexoraError {
	return &NexoraError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new NexoraError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *NexoraError {
	return &NexoraError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *NexoraError) WithSuggestion(suggestion string) *NexoraError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *NexoraError) WithSuggestions(suggestions ...string) *NexoraError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *NexoraError) WithDocs(url string) *NexoraError {
	e.DocsURL = url
	return e
}

// Common error constructors for frequently used errors

// NewNotAuthenticatedError is returned when a command needs a signed-in user.
func NewNotAuthenticatedError() *NexoraError {
	return New(ErrCodeNotAuthenticated, "not authenticated").
		WithSuggestion("Run 'nexora auth login' to sign in").
		WithSuggestion("Run 'nexora auth signup' to create an account").
		WithDocs(docsBase + "#authentication")
}

// NewSessionExpiredError is returned when the backend rejects a stored token.
func NewSessionExpiredError(cause error) *NexoraError {
	return Wrap(ErrCodeSessionExpired, "session expired or token revoked", cause).
		WithSuggestion("Run 'nexora auth login' to sign in again")
}

// NewAdminRequiredError is returned when a client account calls an admin command.
func NewAdminRequiredError(username string) *NexoraError {
	return New(ErrCodeAdminRequired, fmt.Sprintf("user %q is not an admin", username)).
		WithSuggestion("Sign in with an admin account to use 'nexora admin'")
}

// NewAPIUnreachableError wraps transport failures where no response arrived.
func NewAPIUnreachableError(baseURL string, cause error) *NexoraError {
	return Wrap(ErrCodeAPIUnreachable, fmt.Sprintf("backend unreachable at %s", baseURL), cause).
		WithSuggestion("Check your network connection").
		WithSuggestion("Verify the API URL with 'nexora config show'").
		WithSuggestion("Override it with --api-url or NEXORA_API_URL")
}

// NewEmptyAnswerError is returned before any submission of blank answer text.
func NewEmptyAnswerError() *NexoraError {
	return New(ErrCodeFlowEmptyAnswer, "answer text is required").
		WithSuggestion("Type an answer before submitting")
}

// NewReportPendingError is returned when a report has no content yet.
func NewReportPendingError(projectID int) *NexoraError {
	return New(ErrCodeReportPending, fmt.Sprintf("report for project %d is not ready", projectID)).
		WithSuggestion(fmt.Sprintf("Run 'nexora answer %d' to finish the remaining questions", projectID)).
		WithDocs(docsBase + "#reports")
}

// NewConfigInvalidError describes a rejected configuration value.
func NewConfigInvalidError(key string, details string) *NexoraError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration %s: %s", key, details)).
		WithSuggestion("Run 'nexora config show' to inspect the effective configuration").
		WithDocs(docsBase + "#configuration")
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string) *NexoraError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Verify the file exists and you have read permissions")
}

// NewFileUnmarshalError creates an unmarshal error
func NewFileUnmarshalError(path string, format string, cause error) *NexoraError {
	return Wrap(ErrCodeFileUnmarshal, fmt.Sprintf("failed to parse %s file: %s", format, path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion(fmt.Sprintf("Ensure the file is valid %s", format))
}
