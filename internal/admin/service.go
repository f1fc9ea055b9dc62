// Package admin wraps the /admin/ endpoints used by staff accounts.
package admin

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/felixgeelhaar/nexora/internal/api"
	"github.com/felixgeelhaar/nexora/internal/errors"
	"github.com/felixgeelhaar/nexora/internal/log"
	"github.com/felixgeelhaar/nexora/internal/session"
)

// Filter holds list query parameters. Empty values are not sent.
type Filter map[string]string

// Values converts f to query parameters.
func (f Filter) Values() url.Values {
	q := url.Values{}
	for k, v := range f {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

// Resource is one admin collection rooted at path, e.g. /admin/users/.
type Resource[T any] struct {
	client *api.Client
	path   string
	name   string
}

func newResource[T any](client *api.Client, name string) *Resource[T] {
	return &Resource[T]{client: client, path: "/admin/" + name + "/", name: name}
}

// Name is the resource name used in paths and the CLI.
func (r *Resource[T]) Name() string {
	return r.name
}

func (r *Resource[T]) item(id int) string {
	return fmt.Sprintf("%s%d/", r.path, id)
}

// List returns one page of the collection.
func (r *Resource[T]) List(ctx context.Context, f Filter) (api.Page[T], error) {
	var page api.Page[T]
	if err := r.client.Get(ctx, r.path, f.Values(), &page); err != nil {
		return page, fmt.Errorf("failed to list %s: %w", r.name, err)
	}
	if page.Results == nil {
		page.Results = []T{}
	}
	return page, nil
}

// Get returns one item.
func (r *Resource[T]) Get(ctx context.Context, id int) (*T, error) {
	var out T
	if err := r.client.Get(ctx, r.item(id), nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get %s %d: %w", r.name, id, err)
	}
	return &out, nil
}

// Create posts body and returns the created item.
func (r *Resource[T]) Create(ctx context.Context, body any) (*T, error) {
	var out T
	if err := r.client.Post(ctx, r.path, body, &out); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", r.name, err)
	}
	return &out, nil
}

// Update applies a partial change.
func (r *Resource[T]) Update(ctx context.Context, id int, body any) (*T, error) {
	var out T
	if err := r.client.Put(ctx, r.item(id), body, &out); err != nil {
		return nil, fmt.Errorf("failed to update %s %d: %w", r.name, id, err)
	}
	return &out, nil
}

// Delete removes one item.
func (r *Resource[T]) Delete(ctx context.Context, id int) error {
	if err := r.client.Delete(ctx, r.item(id)); err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", r.name, id, err)
	}
	return nil
}

// Toggle flips the enabled flag. Only users, project types and questions
// support it.
func (r *Resource[T]) Toggle(ctx context.Context, id int) (*T, error) {
	var out T
	if err := r.client.Post(ctx, r.item(id)+"toggle/", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to toggle %s %d: %w", r.name, id, err)
	}
	return &out, nil
}

// Service groups the admin resources.
type Service struct {
	client *api.Client
	logger *log.Logger

	Users        *Resource[session.User]
	ProjectTypes *Resource[ProjectType]
	Projects     *Resource[Project]
	Questions    *Resource[Question]
	AIQuestions  *Resource[AIQuestion]
	Reports      *Resource[Report]
}

// NewService returns a Service using client, which must carry admin
// credentials.
func NewService(client *api.Client, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Service{
		client:       client,
		logger:       logger.With("component", "admin"),
		Users:        newResource[session.User](client, "users"),
		ProjectTypes: newResource[ProjectType](client, "project-types"),
		Projects:     newResource[Project](client, "projects"),
		Questions:    newResource[Question](client, "questions"),
		AIQuestions:  newResource[AIQuestion](client, "ai-questions"),
		Reports:      newResource[Report](client, "reports"),
	}
}

// Dashboard returns the dashboard counters. Failures are logged and yield
// zero counters marked Unavailable.
func (s *Service) Dashboard(ctx context.Context) Stats {
	var stats Stats
	if err := s.client.Get(ctx, "/admin/dashboard/", nil, &stats); err != nil {
		s.logger.Warn("dashboard stats unavailable", "error", err)
		return Stats{Unavailable: true}
	}
	return stats
}

// Reorder sets the template order of a project type. order lists question
// IDs first to last.
func (s *Service) Reorder(ctx context.Context, projectTypeID int, order []int) ([]Question, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("reorder project type %d: no question IDs given", projectTypeID)
	}

	body := map[string]any{"project_type_id": projectTypeID, "question_order": order}
	var out struct {
		Results []Question `json:"results"`
	}
	if err := s.client.Post(ctx, "/admin/questions/reorder/", body, &out); err != nil {
		return nil, fmt.Errorf("failed to reorder questions: %w", err)
	}
	sort.SliceStable(out.Results, func(i, j int) bool { return out.Results[i].QuestionNo < out.Results[j].QuestionNo })
	return out.Results, nil
}

// Regenerate discards the project's report and builds a new one from its
// answers. The backend refuses when regeneration is switched off in
// settings.
func (s *Service) Regenerate(ctx context.Context, projectID int) (*Report, error) {
	var out Report
	err := s.client.Post(ctx, fmt.Sprintf("/admin/reports/%d/regenerate/", projectID), nil, &out)
	if err == nil {
		return &out, nil
	}

	if apiErr, ok := api.AsError(err); ok && apiErr.Status == 403 {
		return nil, errors.Wrap(errors.ErrCodeReportRegenDisable, apiErr.Message, err).
			WithSuggestion("Enable it with 'nexora admin settings set --report-regeneration=true'")
	}
	return nil, fmt.Errorf("failed to regenerate report for project %d: %w", projectID, err)
}

// Settings returns the current settings.
func (s *Service) Settings(ctx context.Context) (*Settings, error) {
	var out Settings
	if err := s.client.Get(ctx, "/admin/settings/", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &out, nil
}

// UpdateSettings applies a partial change and returns the result.
func (s *Service) UpdateSettings(ctx context.Context, update SettingsUpdate) (*Settings, error) {
	if update.Empty() {
		return s.Settings(ctx)
	}

	var out Settings
	if err := s.client.Put(ctx, "/admin/settings/", update, &out); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	s.logger.Info("settings updated")
	return &out, nil
}
