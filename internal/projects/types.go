package projects

import (
	"strings"
	"time"
)

// Project statuses.
const (
	StatusProposed  = "proposed"
	StatusCalled    = "called"
	StatusConverted = "converted"
	StatusTrash     = "trash"
)

// Statuses lists the valid project statuses in lifecycle order.
var Statuses = []string{StatusProposed, StatusCalled, StatusConverted, StatusTrash}

// ValidStatus reports whether s is a known project status.
func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Question origins on the flow endpoints.
const (
	OriginPredefined = "predefined"
	OriginAI         = "ai"
)

// Report statuses.
const (
	ReportPending = "pending"
	ReportReady   = "ready"
)

// Project is a client project. User and ProjectType are identifiers.
type Project struct {
	ID            int       `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	Description   string    `json:"description" yaml:"description"`
	Status        string    `json:"status" yaml:"status"`
	UserID        int       `json:"user" yaml:"user"`
	ProjectTypeID int       `json:"project_type" yaml:"project_type"`
	Enabled       bool      `json:"enabled" yaml:"enabled"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updated_at"`
}

// ProjectType categorises projects and owns a question template sequence.
type ProjectType struct {
	ID          int       `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Icon        string    `json:"icon,omitempty" yaml:"icon,omitempty"`
	Enabled     bool      `json:"enabled" yaml:"enabled"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// Question is one question served by the flow endpoints. QuestionType holds
// the origin (predefined or ai) and must be echoed back when answering.
type Question struct {
	ID            int    `json:"id" yaml:"id"`
	Text          string `json:"text" yaml:"text"`
	Description   string `json:"description" yaml:"description"`
	ProjectTypeID int    `json:"project_type,omitempty" yaml:"project_type,omitempty"`
	ProjectID     int    `json:"project,omitempty" yaml:"project,omitempty"`
	QuestionType  string `json:"question_type" yaml:"question_type"`
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	NextQuestion  *int   `json:"next_question,omitempty" yaml:"next_question,omitempty"`
}

// IsAI reports whether the question was generated for this project.
func (q *Question) IsAI() bool {
	return q.QuestionType == OriginAI
}

// Answer is a stored answer.
type Answer struct {
	ID         int       `json:"id" yaml:"id"`
	UserID     int       `json:"user" yaml:"user"`
	QuestionID int       `json:"question" yaml:"question"`
	ProjectID  int       `json:"project" yaml:"project"`
	Text       string    `json:"text" yaml:"text"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
}

// AnswerRequest is the body of POST /projects/answer_question/.
type AnswerRequest struct {
	QuestionID   int    `json:"question_id"`
	ProjectID    int    `json:"project_id"`
	Text         string `json:"text"`
	QuestionType string `json:"question_type"`
}

// AnswerResult is the stored answer and the question that follows it, if
// the backend embedded one.
type AnswerResult struct {
	Answer Answer
	Next   *Question
}

// CreateRequest is the body of POST /projects/project/.
type CreateRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	ProjectTypeID int    `json:"project_type_id"`
}

// Report is the generated requirements document of a project.
type Report struct {
	ID        int       `json:"id" yaml:"id"`
	ProjectID int       `json:"project" yaml:"project"`
	Body      string    `json:"report" yaml:"report"`
	Format    string    `json:"format,omitempty" yaml:"format,omitempty"`
	Status    string    `json:"status,omitempty" yaml:"status,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// EffectiveStatus is the backend status, or ready/pending by content when
// the backend did not send one.
func (r *Report) EffectiveStatus() string {
	if r.Status != "" {
		return r.Status
	}
	if strings.TrimSpace(r.Body) != "" {
		return ReportReady
	}
	return ReportPending
}

// Ready reports whether the report has content to show.
func (r *Report) Ready() bool {
	return r.EffectiveStatus() == ReportReady
}

// NextResult is the outcome of asking for a project's next question:
// either a question or completion.
type NextResult struct {
	Question *Question
	Complete bool
}
