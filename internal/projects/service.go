// Package projects wraps the client project endpoints: projects, project
// types, the question sequence and report generation.
package projects

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/nexora/internal/api"
	"github.com/felixgeelhaar/nexora/internal/log"
	"github.com/felixgeelhaar/nexora/internal/metrics"
)

// CompletionPhrase is how the backend says a project has no unanswered
// questions left. It arrives either as the detail of a 200 response without
// data or as an error message. This is the only place nexora matches it.
const CompletionPhrase = "All questions have been answered"

// Service calls the project endpoints.
type Service struct {
	client  *api.Client
	metrics *metrics.Metrics
	logger  *log.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records report fetches.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService returns a Service using client.
func NewService(client *api.Client, opts ...Option) *Service {
	s := &Service{client: client, logger: log.DefaultLogger()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "projects")
	return s
}

// ListOptions filters List. Zero values are not sent.
type ListOptions struct {
	Query         string
	Status        string
	ProjectTypeID int
	Enabled       *bool
}

func (o ListOptions) values() url.Values {
	q := url.Values{}
	if o.Query != "" {
		q.Set("q", o.Query)
	}
	if o.Status != "" {
		q.Set("status", o.Status)
	}
	if o.ProjectTypeID > 0 {
		q.Set("project_type_id", strconv.Itoa(o.ProjectTypeID))
	}
	if o.Enabled != nil {
		q.Set("enabled", strconv.FormatBool(*o.Enabled))
	}
	return q
}

// List returns the signed-in user's projects, newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Project, error) {
	var env api.Envelope[[]Project]
	if err := s.client.Get(ctx, "/projects/project/", opts.values(), &env); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return env.Data, nil
}

// Get returns one project.
func (s *Service) Get(ctx context.Context, id int) (*Project, error) {
	var env api.Envelope[*Project]
	if err := s.client.Get(ctx, fmt.Sprintf("/projects/project/%d/", id), nil, &env); err != nil {
		return nil, fmt.Errorf("failed to get project %d: %w", id, err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("project %d: empty response", id)
	}
	return env.Data, nil
}

// Create creates a project of the given type.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Project, error) {
	var env api.Envelope[*Project]
	if err := s.client.Post(ctx, "/projects/project/", req, &env); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("create project: empty response")
	}
	return env.Data, nil
}

// Types returns the enabled project types.
func (s *Service) Types(ctx context.Context) ([]ProjectType, error) {
	var env api.Envelope[[]ProjectType]
	if err := s.client.Get(ctx, "/projects/get_project_type/", nil, &env); err != nil {
		return nil, fmt.Errorf("failed to list project types: %w", err)
	}
	return env.Data, nil
}

// Next asks for the project's next unanswered question. Completion is a
// result, not an error.
func (s *Service) Next(ctx context.Context, projectID int) (NextResult, error) {
	var env api.Envelope[*Question]
	err := s.client.Get(ctx, fmt.Sprintf("/projects/get_next_question/%d/", projectID), nil, &env)
	if err != nil {
		if isCompletion(err) {
			s.logger.Debug("completion signalled as error", "project_id", projectID)
			return NextResult{Complete: true}, nil
		}
		return NextResult{}, err
	}

	if env.Data == nil || env.Data.ID == 0 {
		if env.Detail != "" && !strings.Contains(env.Detail, CompletionPhrase) {
			s.logger.Warn("next question response has no question", "project_id", projectID, "detail", env.Detail)
		}
		return NextResult{Complete: true}, nil
	}
	return NextResult{Question: env.Data}, nil
}

// HasMoreQuestions reports whether the project still has an unanswered
// question.
func (s *Service) HasMoreQuestions(ctx context.Context, projectID int) (bool, error) {
	res, err := s.Next(ctx, projectID)
	if err != nil {
		return false, err
	}
	return !res.Complete, nil
}

// answerResponse is the 201 body of answer_question.
type answerResponse struct {
	Detail       string    `json:"detail"`
	Data         Answer    `json:"data"`
	NextQuestion *Question `json:"next_question"`
}

// Answer submits an answer. The question origin must be echoed in
// QuestionType.
func (s *Service) Answer(ctx context.Context, req AnswerRequest) (*AnswerResult, error) {
	var resp answerResponse
	if err := s.client.Post(ctx, "/projects/answer_question/", req, &resp); err != nil {
		return nil, err
	}

	res := &AnswerResult{Answer: resp.Data}
	if resp.NextQuestion != nil && resp.NextQuestion.ID != 0 {
		res.Next = resp.NextQuestion
	}
	return res, nil
}

// GenerateReport returns the project's report, generating it on first use.
func (s *Service) GenerateReport(ctx context.Context, projectID int) (*Report, error) {
	var env api.Envelope[*Report]
	if err := s.client.Get(ctx, fmt.Sprintf("/projects/generate_report/%d/", projectID), nil, &env); err != nil {
		s.observeReport("error")
		return nil, fmt.Errorf("failed to fetch report for project %d: %w", projectID, err)
	}
	if env.Data == nil {
		s.observeReport(ReportPending)
		return &Report{ProjectID: projectID, Status: ReportPending}, nil
	}

	s.observeReport(env.Data.EffectiveStatus())
	return env.Data, nil
}

func (s *Service) observeReport(status string) {
	if s.metrics != nil {
		s.metrics.ReportsFetched.WithLabelValues(status).Inc()
	}
}

func isCompletion(err error) bool {
	apiErr, ok := api.AsError(err)
	return ok && strings.Contains(apiErr.Message, CompletionPhrase)
}
