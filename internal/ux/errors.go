package ux

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/nexora/internal/api"
	"github.com/felixgeelhaar/nexora/internal/errors"
)

// ErrorWithSuggestion wraps an error with helpful recovery suggestions
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\n💡 Suggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap provides access to the underlying error
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion creates a new error with a suggestion
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// EnhanceError analyzes an error and adds contextual suggestions. Errors
// that already carry suggestions are returned unchanged.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}

	var nexErr *errors.NexoraError
	if stderrors.As(err, &nexErr) && len(nexErr.Suggestions) > 0 {
		return err
	}
	if stderrors.Is(err, context.Canceled) {
		return err
	}

	if apiErr, ok := api.AsError(err); ok {
		switch {
		case apiErr.Status == http.StatusUnauthorized:
			return NewErrorWithSuggestion(err, "Sign in again with 'nexora auth login'")
		case apiErr.Status == http.StatusForbidden:
			return NewErrorWithSuggestion(err, "This needs an admin account; 'nexora auth status' shows who you are signed in as")
		case apiErr.Status == http.StatusNotFound:
			return NewErrorWithSuggestion(err, "Check the ID; 'nexora project list' shows your projects")
		case apiErr.Status >= http.StatusInternalServerError:
			return NewErrorWithSuggestion(err, "The backend failed to handle the request; try again in a moment")
		}
		return err
	}

	errMsg := err.Error()

	if nexErr != nil && nexErr.Code == errors.ErrCodeAPIContract {
		return NewErrorWithSuggestion(err,
			"Check the flag values; 'nexora config endpoints' lists the backend operations")
	}

	// Network errors
	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host") ||
		strings.Contains(errMsg, "no route to host") {
		return NewErrorWithSuggestion(err,
			"Check --api-url (or NEXORA_API_URL) and your network connection")
	}

	if strings.Contains(errMsg, "Client.Timeout exceeded") || strings.Contains(errMsg, "deadline exceeded") {
		return NewErrorWithSuggestion(err,
			"The backend may be waking up; retry or raise --timeout")
	}

	// Permission errors
	if strings.Contains(errMsg, "permission denied") {
		return NewErrorWithSuggestion(err,
			"Check file permissions of ~/.nexora and the export destination")
	}

	return err
}

// FormatError provides consistent error formatting with context
func FormatError(err error, context string) error {
	if err == nil {
		return nil
	}

	enhanced := EnhanceError(err)
	if context != "" {
		return fmt.Errorf("%s: %w", context, enhanced)
	}
	return enhanced
}
