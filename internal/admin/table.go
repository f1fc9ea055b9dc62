package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/nexora/internal/session"
)

// Resource names accepted by Browse.
const (
	ResourceUsers        = "users"
	ResourceProjectTypes = "project-types"
	ResourceProjects     = "projects"
	ResourceQuestions    = "questions"
	ResourceAIQuestions  = "ai-questions"
	ResourceReports      = "reports"
)

// Resources lists the browsable resources.
var Resources = []string{
	ResourceUsers, ResourceProjectTypes, ResourceProjects,
	ResourceQuestions, ResourceAIQuestions, ResourceReports,
}

// serverSearch marks resources whose list endpoint accepts ?search=.
var serverSearch = map[string]bool{
	ResourceUsers:    true,
	ResourceProjects: true,
	ResourceReports:  true,
}

// Table is a resource listing ready for display.
type Table struct {
	Columns []string
	Rows    [][]string
	Count   int
}

// Browse lists a resource as a table, narrowed by a free-text search.
// Resources without server-side search are filtered locally.
func (s *Service) Browse(ctx context.Context, resource, search string) (Table, error) {
	f := Filter{}
	if serverSearch[resource] {
		f["search"] = search
	}

	var (
		t   Table
		err error
	)
	switch resource {
	case ResourceUsers:
		t, err = listTable(ctx, s.Users, f, UsersTable)
	case ResourceProjectTypes:
		t, err = listTable(ctx, s.ProjectTypes, f, ProjectTypesTable)
	case ResourceProjects:
		t, err = listTable(ctx, s.Projects, f, ProjectsTable)
	case ResourceQuestions:
		t, err = listTable(ctx, s.Questions, f, QuestionsTable)
	case ResourceAIQuestions:
		t, err = listTable(ctx, s.AIQuestions, f, AIQuestionsTable)
	case ResourceReports:
		t, err = listTable(ctx, s.Reports, f, ReportsTable)
	default:
		return Table{}, fmt.Errorf("unknown admin resource %q (want one of %s)", resource, strings.Join(Resources, ", "))
	}
	if err != nil {
		return Table{}, err
	}

	if !serverSearch[resource] && strings.TrimSpace(search) != "" {
		t = t.Filter(search)
	}
	return t, nil
}

func listTable[T any](ctx context.Context, r *Resource[T], f Filter, build func([]T) Table) (Table, error) {
	page, err := r.List(ctx, f)
	if err != nil {
		return Table{}, err
	}
	t := build(page.Results)
	t.Count = page.Count
	return t, nil
}

// Filter keeps rows with a cell containing needle, ignoring case.
func (t Table) Filter(needle string) Table {
	needle = strings.ToLower(strings.TrimSpace(needle))
	out := Table{Columns: t.Columns}
	for _, row := range t.Rows {
		for _, cell := range row {
			if strings.Contains(strings.ToLower(cell), needle) {
				out.Rows = append(out.Rows, row)
				break
			}
		}
	}
	out.Count = len(out.Rows)
	return out
}

// UsersTable renders users.
func UsersTable(users []session.User) Table {
	t := Table{Columns: []string{"ID", "USERNAME", "NAME", "EMAIL", "ROLE", "ENABLED", "PROJECTS"}, Count: len(users)}
	for _, u := range users {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(u.ID), u.Username, u.Name, u.Email, u.Role,
			yesNo(u.Enabled), strconv.Itoa(u.ProjectCount),
		})
	}
	return t
}

// ProjectTypesTable renders project types.
func ProjectTypesTable(types []ProjectType) Table {
	t := Table{Columns: []string{"ID", "NAME", "ENABLED", "QUESTIONS", "PROJECTS"}, Count: len(types)}
	for _, pt := range types {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(pt.ID), pt.Name, yesNo(pt.Enabled),
			strconv.Itoa(pt.QuestionCount), strconv.Itoa(pt.ProjectCount),
		})
	}
	return t
}

// ProjectsTable renders projects.
func ProjectsTable(list []Project) Table {
	t := Table{Columns: []string{"ID", "NAME", "OWNER", "TYPE", "STATUS", "REPORT", "CREATED"}, Count: len(list)}
	for _, p := range list {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(p.ID), p.Name, refName(p.User), refName(p.ProjectType),
			p.Status, yesNo(p.HasReport), p.CreatedAt.Format("2006-01-02"),
		})
	}
	return t
}

// QuestionsTable renders question templates.
func QuestionsTable(list []Question) Table {
	t := Table{Columns: []string{"ID", "NO", "TYPE", "PROJECT TYPE", "ENABLED", "TEXT"}, Count: len(list)}
	for _, q := range list {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(q.ID), strconv.Itoa(q.QuestionNo), q.QuestionType,
			refName(q.ProjectType), yesNo(q.Enabled), q.Text,
		})
	}
	return t
}

// AIQuestionsTable renders generated questions.
func AIQuestionsTable(list []AIQuestion) Table {
	t := Table{Columns: []string{"ID", "PROJECT", "STATUS", "ANSWERS", "TEXT"}, Count: len(list)}
	for _, q := range list {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(q.ID), q.ProjectName, q.Status, strconv.Itoa(q.AnswerCount), q.Text,
		})
	}
	return t
}

// ReportsTable renders reports.
func ReportsTable(list []Report) Table {
	t := Table{Columns: []string{"ID", "PROJECT ID", "PROJECT", "OWNER", "STATUS", "CREATED"}, Count: len(list)}
	for _, r := range list {
		projectID, project, owner := "", "", ""
		if r.Project != nil {
			projectID = strconv.Itoa(r.Project.ID)
			project = r.Project.Name
			owner = refName(r.Project.User)
		}
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(r.ID), projectID, project, owner, r.Status, r.CreatedAt.Format("2006-01-02"),
		})
	}
	return t
}

func refName(r *Ref) string {
	if r == nil {
		return "-"
	}
	return r.Name
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
