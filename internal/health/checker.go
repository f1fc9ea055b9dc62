// Package health runs diagnostic checks against the nexora environment: the
// backend, the stored credentials and, while previewing, the loaded report.
//
//	manager := health.NewManager()
//	manager.AddChecker(health.NewBackendChecker(client))
//	manager.AddChecker(health.NewCredentialsChecker(creds))
//
//	report := manager.Run(ctx)
package health

import (
	"context"
	"time"
)

// Checker is one diagnostic.
type Checker interface {
	// Name is a lowercase, hyphenated identifier, e.g. "backend".
	Name() string

	// Check must respect the context deadline.
	Check(ctx context.Context) *Result
}

// Status is the outcome of a check.
type Status string

const (
	// StatusHealthy means the component works.
	StatusHealthy Status = "healthy"

	// StatusDegraded means the component works with reduced function,
	// e.g. the backend is reachable but the session expired.
	StatusDegraded Status = "degraded"

	// StatusUnhealthy means the component does not work.
	StatusUnhealthy Status = "unhealthy"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Result is the outcome of one check.
type Result struct {
	Status     Status         `json:"status" yaml:"status"`
	Message    string         `json:"message" yaml:"message"`
	Suggestion string         `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	Details    map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Latency    time.Duration  `json:"latency_ns" yaml:"latency"`
}

// NewResult creates a result with the given status and message.
func NewResult(status Status, message string) *Result {
	return &Result{
		Status:  status,
		Message: message,
		Details: make(map[string]any),
	}
}

// WithDetail adds a detail and returns the result for chaining.
func (r *Result) WithDetail(key string, value any) *Result {
	r.Details[key] = value
	return r
}

// WithSuggestion sets the recovery hint shown with a failing check.
func (r *Result) WithSuggestion(s string) *Result {
	r.Suggestion = s
	return r
}

// Healthy creates a healthy result with the given message.
func Healthy(message string) *Result {
	return NewResult(StatusHealthy, message)
}

// Degraded creates a degraded result with the given message.
func Degraded(message string) *Result {
	return NewResult(StatusDegraded, message)
}

// Unhealthy creates an unhealthy result with the given message.
func Unhealthy(message string) *Result {
	return NewResult(StatusUnhealthy, message)
}
