package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// DefaultErrorMessage is used when an error payload carries neither detail
// nor message.
const DefaultErrorMessage = "API request failed"

// Error is a non-2xx backend response.
type Error struct {
	Status  int
	Message string
	// Data is the raw response body.
	Data json.RawMessage
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// HTTPStatus returns the response status code.
func (e *Error) HTTPStatus() int {
	return e.Status
}

// errorPayload is the DRF error shape. Validation errors are field maps and
// decode into neither field.
type errorPayload struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

func newError(status int, body []byte) *Error {
	msg := DefaultErrorMessage
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Detail != "":
			msg = payload.Detail
		case payload.Message != "":
			msg = payload.Message
		}
	}
	return &Error{Status: status, Message: msg, Data: json.RawMessage(body)}
}

// FieldErrors decodes a validation error body of the form
// {"field": ["problem", ...]}. It returns nil for other shapes.
func (e *Error) FieldErrors() map[string][]string {
	var fields map[string][]string
	if err := json.Unmarshal(e.Data, &fields); err != nil {
		return nil
	}
	return fields
}

// AsError unwraps err to a backend error.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUnauthorized reports a 401 or 403 response.
func IsUnauthorized(err error) bool {
	apiErr, ok := AsError(err)
	return ok && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden)
}

// IsNotFound reports a 404 response.
func IsNotFound(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Status == http.StatusNotFound
}
