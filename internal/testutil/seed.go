package testutil

import (
	"bytes"
	"io"
	"net/http"
	"sort"
)

func readAll(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, err
}

// AddUser seeds an enabled account with a fixed token "token-<username>".
func (b *Backend) AddUser(username, password, role string) User {
	b.mu.Lock()
	defer b.mu.Unlock()

	u := &User{
		ID:       b.id(),
		Username: username,
		Name:     username,
		Email:    username + "@example.com",
		Role:     role,
		Password: password,
		Enabled:  true,
		Token:    "token-" + username,
		Joined:   b.now(),
	}
	b.users = append(b.users, u)
	return *u
}

// AddProjectType seeds an enabled project type.
func (b *Backend) AddProjectType(name string) ProjectType {
	b.mu.Lock()
	defer b.mu.Unlock()

	pt := &ProjectType{ID: b.id(), Name: name, Description: name + " projects", Icon: "layers", Enabled: true, Created: b.now()}
	b.projectTypes = append(b.projectTypes, pt)
	return *pt
}

// AddQuestion appends an enabled text question to a project type.
func (b *Backend) AddQuestion(projectTypeID int, text string) Question {
	b.mu.Lock()
	defer b.mu.Unlock()

	no := 1
	for _, q := range b.questions {
		if q.ProjectTypeID == projectTypeID && q.No >= no {
			no = q.No + 1
		}
	}
	q := &Question{ID: b.id(), ProjectTypeID: projectTypeID, No: no, Text: text, Type: "text", Enabled: true, Created: b.now()}
	b.questions = append(b.questions, q)
	return *q
}

// AddProject seeds a proposed project owned by userID.
func (b *Backend) AddProject(userID, projectTypeID int, name string) Project {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := &Project{ID: b.id(), UserID: userID, ProjectTypeID: projectTypeID, Name: name, Status: "proposed", Enabled: true, Created: b.now()}
	b.projects = append(b.projects, p)
	return *p
}

// AddAIQuestion queues a generated question after the project's templates.
func (b *Backend) AddAIQuestion(projectID int, text string) AIQuestion {
	b.mu.Lock()
	defer b.mu.Unlock()

	no := 1
	for _, q := range b.aiQuestions {
		if q.ProjectID == projectID && q.No >= no {
			no = q.No + 1
		}
	}
	q := &AIQuestion{ID: b.id(), ProjectID: projectID, No: no, Text: text, Created: b.now()}
	b.aiQuestions = append(b.aiQuestions, q)
	return *q
}

// AddReport stores a report for a project directly.
func (b *Backend) AddReport(projectID int, body string) Report {
	b.mu.Lock()
	defer b.mu.Unlock()

	rep := &Report{ID: b.id(), ProjectID: projectID, Body: body, Created: b.now()}
	b.reports = append(b.reports, rep)
	return *rep
}

// SetSettings replaces the admin settings.
func (b *Backend) SetSettings(s Settings) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settings = s
}

// Answers returns the answers recorded for a project in submission order.
func (b *Backend) Answers(projectID int) []Answer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.projectAnswers(projectID)
}

// Seed is the common fixture: a client and an admin account, a "Web App"
// project type with two questions and one project owned by the client.
type Seed struct {
	Client      User
	Admin       User
	ProjectType ProjectType
	Q1          Question
	Q2          Question
	Project     Project
}

// SeedDefault installs the common fixture.
func (b *Backend) SeedDefault() Seed {
	var s Seed
	s.Client = b.AddUser("ana", "correct-horse", "client")
	s.Admin = b.AddUser("root", "admin-password", "admin")
	s.ProjectType = b.AddProjectType("Web App")
	s.Q1 = b.AddQuestion(s.ProjectType.ID, "Which payment provider do you use?")
	s.Q2 = b.AddQuestion(s.ProjectType.ID, "How many users do you expect?")
	s.Project = b.AddProject(s.Client.ID, s.ProjectType.ID, "Storefront")
	return s
}

// The helpers below expect b.mu to be held.

func (b *Backend) projectAnswers(projectID int) []Answer {
	var out []Answer
	for _, a := range b.answers {
		if a.ProjectID == projectID {
			out = append(out, *a)
		}
	}
	return out
}

func (b *Backend) findUser(id int) *User {
	for _, u := range b.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (b *Backend) findProjectType(id int) *ProjectType {
	for _, pt := range b.projectTypes {
		if pt.ID == id {
			return pt
		}
	}
	return nil
}

func (b *Backend) findProject(id int) *Project {
	for _, p := range b.projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (b *Backend) findQuestion(id int) *Question {
	for _, q := range b.questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}

func (b *Backend) findAIQuestion(id int) *AIQuestion {
	for _, q := range b.aiQuestions {
		if q.ID == id {
			return q
		}
	}
	return nil
}

func (b *Backend) reportFor(projectID int) *Report {
	for _, r := range b.reports {
		if r.ProjectID == projectID {
			return r
		}
	}
	return nil
}

func (b *Backend) answered(projectID, questionID int, ai bool) bool {
	for _, a := range b.answers {
		if a.ProjectID == projectID && a.QuestionID == questionID && a.AI == ai {
			return true
		}
	}
	return false
}

// pending returns the next unanswered question of a project as a wire map,
// templates first in question_no order, then AI questions.
func (b *Backend) pending(p *Project) map[string]any {
	templates := make([]*Question, 0)
	for _, q := range b.questions {
		if q.ProjectTypeID == p.ProjectTypeID && q.Enabled {
			templates = append(templates, q)
		}
	}
	sort.SliceStable(templates, func(i, j int) bool { return templates[i].No < templates[j].No })
	for i, q := range templates {
		if b.answered(p.ID, q.ID, false) {
			continue
		}
		var next any
		if i+1 < len(templates) {
			next = templates[i+1].ID
		}
		m := questionJSON(q)
		m["next_question"] = next
		m["question_type"] = "predefined"
		return m
	}

	generated := make([]*AIQuestion, 0)
	for _, q := range b.aiQuestions {
		if q.ProjectID == p.ID {
			generated = append(generated, q)
		}
	}
	sort.SliceStable(generated, func(i, j int) bool { return generated[i].No < generated[j].No })
	for _, q := range generated {
		if b.answered(p.ID, q.ID, true) {
			continue
		}
		return map[string]any{
			"id":            q.ID,
			"text":          q.Text,
			"description":   q.Description,
			"project":       q.ProjectID,
			"question_type": "ai",
			"created_at":    q.Created,
			"updated_at":    q.Created,
		}
	}
	return nil
}

func questionJSON(q *Question) map[string]any {
	return map[string]any{
		"id":            q.ID,
		"text":          q.Text,
		"description":   q.Description,
		"project_type":  q.ProjectTypeID,
		"question_type": q.Type,
		"enabled":       q.Enabled,
		"created_at":    q.Created,
		"updated_at":    q.Created,
	}
}

func userJSON(u *User) map[string]any {
	return map[string]any{
		"id":          u.ID,
		"username":    u.Username,
		"name":        u.Name,
		"email":       u.Email,
		"role":        u.Role,
		"enabled":     u.Enabled,
		"date_joined": u.Joined,
		"last_login":  nil,
		"created_at":  u.Joined,
		"updated_at":  u.Joined,
	}
}

func projectJSON(p *Project) map[string]any {
	return map[string]any{
		"id":           p.ID,
		"name":         p.Name,
		"description":  p.Description,
		"user":         p.UserID,
		"project_type": p.ProjectTypeID,
		"status":       p.Status,
		"enabled":      p.Enabled,
		"created_at":   p.Created,
		"updated_at":   p.Created,
	}
}

func projectTypeJSON(pt *ProjectType) map[string]any {
	return map[string]any{
		"id":          pt.ID,
		"name":        pt.Name,
		"description": pt.Description,
		"enabled":     pt.Enabled,
		"created_at":  pt.Created,
		"updated_at":  pt.Created,
	}
}

func reportJSON(r *Report) map[string]any {
	return map[string]any{
		"id":         r.ID,
		"project":    r.ProjectID,
		"report":     r.Body,
		"created_at": r.Created,
		"updated_at": r.Created,
	}
}
