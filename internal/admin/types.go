package admin

import (
	"time"

	"github.com/felixgeelhaar/nexora/internal/projects"
)

// Ref is a nested {id, name, email} reference in admin rows.
type Ref struct {
	ID    int    `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

// ProjectType is a project type with usage counts.
type ProjectType struct {
	projects.ProjectType `yaml:",inline"`
	QuestionCount        int `json:"question_count" yaml:"question_count"`
	ProjectCount         int `json:"project_count" yaml:"project_count"`
}

// Project is a project row with its owner and type resolved.
type Project struct {
	ID          int       `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Status      string    `json:"status" yaml:"status"`
	Enabled     bool      `json:"enabled" yaml:"enabled"`
	User        *Ref      `json:"user" yaml:"user"`
	ProjectType *Ref      `json:"project_type" yaml:"project_type"`
	HasReport   bool      `json:"has_report" yaml:"has_report"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// Question is a question template.
type Question struct {
	ID           int       `json:"id" yaml:"id"`
	QuestionNo   int       `json:"question_no" yaml:"question_no"`
	Text         string    `json:"text" yaml:"text"`
	Description  string    `json:"description" yaml:"description"`
	QuestionType string    `json:"question_type" yaml:"question_type"`
	Enabled      bool      `json:"enabled" yaml:"enabled"`
	ProjectType  *Ref      `json:"project_type" yaml:"project_type"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// AIQuestion is a generated follow-up question with its answer state.
type AIQuestion struct {
	ID          int       `json:"id" yaml:"id"`
	QuestionNo  int       `json:"question_no" yaml:"question_no"`
	Text        string    `json:"text" yaml:"text"`
	Description string    `json:"description" yaml:"description"`
	ProjectID   int       `json:"project" yaml:"project"`
	ProjectName string    `json:"project_name" yaml:"project_name"`
	AnswerCount int       `json:"answer_count" yaml:"answer_count"`
	Status      string    `json:"status" yaml:"status"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// ReportProject is the project a report belongs to.
type ReportProject struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	User *Ref   `json:"user" yaml:"user"`
}

// Report is a generated report as seen by admins.
type Report struct {
	ID        int            `json:"id" yaml:"id"`
	Project   *ReportProject `json:"project" yaml:"project"`
	Body      string         `json:"report" yaml:"report"`
	Format    string         `json:"format" yaml:"format"`
	Status    string         `json:"status" yaml:"status"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
}

// Settings are the backend feature flags and branding colors.
type Settings struct {
	AIQuestionsEnabled        bool   `json:"ai_questions_enabled" yaml:"ai_questions_enabled"`
	VoiceInputEnabled         bool   `json:"voice_input_enabled" yaml:"voice_input_enabled"`
	ReportRegenerationEnabled bool   `json:"report_regeneration_enabled" yaml:"report_regeneration_enabled"`
	PrimaryColor              string `json:"primary_color" yaml:"primary_color"`
	AccentColor               string `json:"accent_color" yaml:"accent_color"`
}

// SettingsUpdate is a partial settings change. Nil fields are left alone.
type SettingsUpdate struct {
	AIQuestionsEnabled        *bool   `json:"ai_questions_enabled,omitempty"`
	VoiceInputEnabled         *bool   `json:"voice_input_enabled,omitempty"`
	ReportRegenerationEnabled *bool   `json:"report_regeneration_enabled,omitempty"`
	PrimaryColor              *string `json:"primary_color,omitempty"`
	AccentColor               *string `json:"accent_color,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u SettingsUpdate) Empty() bool {
	return u.AIQuestionsEnabled == nil && u.VoiceInputEnabled == nil &&
		u.ReportRegenerationEnabled == nil && u.PrimaryColor == nil && u.AccentColor == nil
}

// Stats are the dashboard counters.
type Stats struct {
	TotalUsers          int `json:"total_users" yaml:"total_users"`
	TotalProjects       int `json:"total_projects" yaml:"total_projects"`
	TotalReports        int `json:"total_reports" yaml:"total_reports"`
	TotalAIQuestions    int `json:"total_ai_questions" yaml:"total_ai_questions"`
	NewUsersThisWeek    int `json:"new_users_this_week" yaml:"new_users_this_week"`
	NewProjectsThisWeek int `json:"new_projects_this_week" yaml:"new_projects_this_week"`
	ReportsThisWeek     int `json:"reports_this_week" yaml:"reports_this_week"`
	ActiveProjects      int `json:"active_projects" yaml:"active_projects"`
	ProjectTypesCount   int `json:"project_types_count" yaml:"project_types_count"`
	QuestionsCount      int `json:"questions_count" yaml:"questions_count"`

	// Unavailable is set when the counters could not be fetched and are
	// all zero.
	Unavailable bool `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`
}

// UserCreate is the body of POST /admin/users/.
type UserCreate struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// UserUpdate is a partial user change.
type UserUpdate struct {
	Username *string `json:"username,omitempty"`
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty"`
	Password *string `json:"password,omitempty"`
}

// ProjectTypeWrite creates or changes a project type.
type ProjectTypeWrite struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

// ProjectUpdate is a partial project change.
type ProjectUpdate struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	Status        *string `json:"status,omitempty"`
	Enabled       *bool   `json:"enabled,omitempty"`
	UserID        *int    `json:"user_id,omitempty"`
	ProjectTypeID *int    `json:"project_type_id,omitempty"`
}

// QuestionWrite creates or changes a question template. Text and
// ProjectTypeID are required on create.
type QuestionWrite struct {
	Text          *string `json:"text,omitempty"`
	Description   *string `json:"description,omitempty"`
	ProjectTypeID *int    `json:"project_type_id,omitempty"`
	QuestionType  *string `json:"question_type,omitempty"`
	QuestionNo    *int    `json:"question_no,omitempty"`
	Enabled       *bool   `json:"enabled,omitempty"`
}
