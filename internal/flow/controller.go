// Package flow drives a project's question sequence one round-trip at a
// time: fetch the next question, submit an answer, repeat until the backend
// reports completion.
package flow

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/nexora/internal/api"
	"github.com/felixgeelhaar/nexora/internal/errors"
	"github.com/felixgeelhaar/nexora/internal/log"
	"github.com/felixgeelhaar/nexora/internal/metrics"
	"github.com/felixgeelhaar/nexora/internal/projects"
	"github.com/felixgeelhaar/nexora/internal/telemetry"
)

var (
	// ErrEmptyAnswer rejects blank answers before any request is made.
	ErrEmptyAnswer = errors.NewEmptyAnswerError()
	// ErrSubmissionInFlight rejects a second submission while one is pending.
	ErrSubmissionInFlight = errors.New(errors.ErrCodeFlowInFlight, "an answer is already being submitted")
	// ErrNotAwaitingAnswer rejects submissions when no question is shown.
	ErrNotAwaitingAnswer = errors.New(errors.ErrCodeFlowNotAnswering, "no question is waiting for an answer")
)

// Backend is the part of the project service the flow needs.
type Backend interface {
	Next(ctx context.Context, projectID int) (projects.NextResult, error)
	Answer(ctx context.Context, req projects.AnswerRequest) (*projects.AnswerResult, error)
}

// Controller is the question flow state machine for one project. It is safe
// for concurrent use and allows one submission in flight.
type Controller struct {
	projectID int
	backend   Backend
	metrics   *metrics.Metrics
	logger    *log.Logger

	mu       sync.Mutex
	state    State
	question *projects.Question
	draft    string
	err      error
	answered int
}

// Option configures a Controller.
type Option func(*Controller)

// WithMetrics counts transitions and submissions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger sets the transition logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New returns a controller in the Loading state.
func New(projectID int, backend Backend, opts ...Option) *Controller {
	c := &Controller{
		projectID: projectID,
		backend:   backend,
		logger:    log.DefaultLogger(),
		state:     Loading,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "flow", "project_id", projectID)
	return c
}

// ProjectID returns the project this flow walks.
func (c *Controller) ProjectID() int {
	return c.projectID
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		State:    c.state,
		Question: c.question,
		Draft:    c.draft,
		Err:      c.err,
		Answered: c.answered,
	}
	if c.err != nil {
		s.Message = Message(c.err)
	}
	return s
}

// transition moves to next. Callers hold c.mu.
func (c *Controller) transition(next State) {
	prev := c.state
	c.state = next
	c.logger.Debug("flow transition", "from", prev.String(), "to", next.String())

	if c.metrics != nil {
		c.metrics.FlowTransitions.WithLabelValues(prev.String(), next.String()).Inc()
		if next == Complete {
			c.metrics.FlowsCompleted.Inc()
		}
	}
}

// Start fetches the first question. It is valid in Loading, and in Failed
// when no question has been shown yet (a failed initial load).
func (c *Controller) Start(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	switch {
	case c.state == Loading:
	case c.state == Failed && c.question == nil:
		c.err = nil
		c.transition(Loading)
	default:
		s := c.snapshotLocked()
		c.mu.Unlock()
		return s, errors.New(errors.ErrCodeFlowNotAnswering, "flow already started")
	}
	c.mu.Unlock()

	ctx, span := telemetry.StartFlowSpan(ctx, "next", c.projectID)
	defer span.End()

	res, err := c.backend.Next(ctx, c.projectID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		telemetry.RecordError(span, err)
		c.err = interrupted(ctx, err)
		c.transition(Failed)
		return c.snapshotLocked(), c.err
	}

	if res.Complete {
		c.question = nil
		c.transition(Complete)
	} else {
		c.question = res.Question
		c.transition(AwaitingAnswer)
	}
	telemetry.RecordSuccess(span, attribute.String("flow.state", c.state.String()))
	return c.snapshotLocked(), nil
}

// SetDraft records the text being typed for the current question.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == AwaitingAnswer || c.state == Failed {
		c.draft = text
	}
}

// Submit sends text as the answer to the current question and advances to
// the embedded next question, or to Complete when there is none. After a
// failed submission the same question may be submitted again directly.
func (c *Controller) Submit(ctx context.Context, text string) (Snapshot, error) {
	return c.submit(ctx, text, false)
}

// SaveAndExit submits text and ends the flow in Exited regardless of what
// follows.
func (c *Controller) SaveAndExit(ctx context.Context, text string) (Snapshot, error) {
	return c.submit(ctx, text, true)
}

func (c *Controller) submit(ctx context.Context, text string, exit bool) (Snapshot, error) {
	c.mu.Lock()
	switch c.state {
	case Submitting:
		s := c.snapshotLocked()
		c.mu.Unlock()
		return s, ErrSubmissionInFlight
	case AwaitingAnswer:
	case Failed:
		// A failed submission leaves the question answerable.
		if c.question == nil {
			s := c.snapshotLocked()
			c.mu.Unlock()
			return s, ErrNotAwaitingAnswer
		}
	default:
		s := c.snapshotLocked()
		c.mu.Unlock()
		return s, ErrNotAwaitingAnswer
	}

	if strings.TrimSpace(text) == "" {
		c.draft = text
		s := c.snapshotLocked()
		c.mu.Unlock()
		return s, ErrEmptyAnswer
	}

	q := c.question
	c.draft = text
	c.err = nil
	c.transition(Submitting)
	c.mu.Unlock()

	step := "submit"
	if exit {
		step = "save_and_exit"
	}
	ctx, span := telemetry.StartFlowSpan(ctx, step, c.projectID)
	defer span.End()
	span.SetAttributes(
		attribute.Int("question.id", q.ID),
		attribute.String("question.origin", q.QuestionType),
	)

	res, err := c.backend.Answer(ctx, projects.AnswerRequest{
		QuestionID:   q.ID,
		ProjectID:    c.projectID,
		Text:         text,
		QuestionType: q.QuestionType,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	c.observeAnswer(q, err == nil)
	if err != nil {
		telemetry.RecordError(span, err)
		c.err = interrupted(ctx, err)
		c.transition(Failed)
		return c.snapshotLocked(), c.err
	}

	c.answered++
	c.draft = ""
	switch {
	case exit:
		c.transition(Exited)
	case res.Next != nil:
		c.question = res.Next
		c.transition(AwaitingAnswer)
	default:
		c.question = nil
		c.transition(Complete)
	}
	telemetry.RecordSuccess(span, attribute.String("flow.state", c.state.String()))
	return c.snapshotLocked(), nil
}

// DismissError leaves Failed. With a question on screen it returns to
// AwaitingAnswer keeping the draft; after a failed initial load it returns
// to Loading so Start can be retried. Submitting again does not require it.
func (c *Controller) DismissError() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Failed {
		return c.snapshotLocked()
	}
	c.err = nil
	if c.question != nil {
		c.transition(AwaitingAnswer)
	} else {
		c.transition(Loading)
	}
	return c.snapshotLocked()
}

func (c *Controller) observeAnswer(q *projects.Question, ok bool) {
	if c.metrics == nil {
		return
	}
	origin := q.QuestionType
	if origin == "" {
		origin = "unknown"
	}
	c.metrics.AnswersSubmitted.WithLabelValues(origin, strconv.FormatBool(ok)).Inc()
}

// interrupted marks errors caused by ctx being cancelled.
func interrupted(ctx context.Context, err error) error {
	if ctx.Err() != nil && stderrors.Is(err, ctx.Err()) {
		return errors.Wrap(errors.ErrCodeFlowInterrupted, "question flow interrupted", err)
	}
	return err
}

// Message is the text to show the user for a flow error.
func Message(err error) string {
	if apiErr, ok := api.AsError(err); ok {
		return apiErr.Message
	}
	var nexErr *errors.NexoraError
	if stderrors.As(err, &nexErr) {
		return nexErr.Message
	}
	return err.Error()
}
