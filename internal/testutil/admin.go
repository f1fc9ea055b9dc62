package testutil

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

func (b *Backend) adminRoutes(r *mux.Router) {
	r.HandleFunc("/dashboard/", b.admin(b.dashboard)).Methods(http.MethodGet)

	r.HandleFunc("/users/", b.admin(b.adminUsers)).Methods(http.MethodGet)
	r.HandleFunc("/users/", b.admin(b.adminCreateUser)).Methods(http.MethodPost)
	r.HandleFunc("/users/{id:[0-9]+}/", b.admin(b.adminGetUser)).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}/", b.admin(b.adminUpdateUser)).Methods(http.MethodPut)
	r.HandleFunc("/users/{id:[0-9]+}/", b.admin(b.adminDeleteUser)).Methods(http.MethodDelete)
	r.HandleFunc("/users/{id:[0-9]+}/toggle/", b.admin(b.adminToggleUser)).Methods(http.MethodPost)

	r.HandleFunc("/project-types/", b.admin(b.adminProjectTypes)).Methods(http.MethodGet)
	r.HandleFunc("/project-types/", b.admin(b.adminCreateProjectType)).Methods(http.MethodPost)
	r.HandleFunc("/project-types/{id:[0-9]+}/", b.admin(b.adminGetProjectType)).Methods(http.MethodGet)
	r.HandleFunc("/project-types/{id:[0-9]+}/", b.admin(b.adminUpdateProjectType)).Methods(http.MethodPut)
	r.HandleFunc("/project-types/{id:[0-9]+}/", b.admin(b.adminDeleteProjectType)).Methods(http.MethodDelete)
	r.HandleFunc("/project-types/{id:[0-9]+}/toggle/", b.admin(b.adminToggleProjectType)).Methods(http.MethodPost)

	r.HandleFunc("/projects/", b.admin(b.adminProjects)).Methods(http.MethodGet)
	r.HandleFunc("/projects/{id:[0-9]+}/", b.admin(b.adminGetProject)).Methods(http.MethodGet)
	r.HandleFunc("/projects/{id:[0-9]+}/", b.admin(b.adminUpdateProject)).Methods(http.MethodPut)
	r.HandleFunc("/projects/{id:[0-9]+}/", b.admin(b.adminDeleteProject)).Methods(http.MethodDelete)

	r.HandleFunc("/questions/", b.admin(b.adminQuestions)).Methods(http.MethodGet)
	r.HandleFunc("/questions/", b.admin(b.adminCreateQuestion)).Methods(http.MethodPost)
	r.HandleFunc("/questions/reorder/", b.admin(b.adminReorderQuestions)).Methods(http.MethodPost)
	r.HandleFunc("/questions/{id:[0-9]+}/", b.admin(b.adminGetQuestion)).Methods(http.MethodGet)
	r.HandleFunc("/questions/{id:[0-9]+}/", b.admin(b.adminUpdateQuestion)).Methods(http.MethodPut)
	r.HandleFunc("/questions/{id:[0-9]+}/", b.admin(b.adminDeleteQuestion)).Methods(http.MethodDelete)
	r.HandleFunc("/questions/{id:[0-9]+}/toggle/", b.admin(b.adminToggleQuestion)).Methods(http.MethodPost)

	r.HandleFunc("/ai-questions/", b.admin(b.adminAIQuestions)).Methods(http.MethodGet)

	r.HandleFunc("/reports/", b.admin(b.adminReports)).Methods(http.MethodGet)
	r.HandleFunc("/reports/{id:[0-9]+}/", b.admin(b.adminGetReport)).Methods(http.MethodGet)
	r.HandleFunc("/reports/{id:[0-9]+}/", b.admin(b.adminDeleteReport)).Methods(http.MethodDelete)
	r.HandleFunc("/reports/{id:[0-9]+}/regenerate/", b.admin(b.adminRegenerateReport)).Methods(http.MethodPost)

	r.HandleFunc("/settings/", b.admin(b.adminSettings)).Methods(http.MethodGet)
	r.HandleFunc("/settings/", b.admin(b.adminUpdateSettings)).Methods(http.MethodPut)
}

func page(results []map[string]any) map[string]any {
	if results == nil {
		results = []map[string]any{}
	}
	return map[string]any{"results": results, "count": len(results)}
}

func notFound(w http.ResponseWriter, kind string) {
	writeJSON(w, http.StatusNotFound, detail(kind+" not found."))
}

func matchBool(filter string, v bool) bool {
	return filter == "" || strconv.FormatBool(v) == strings.ToLower(filter)
}

func (b *Backend) dashboard(w http.ResponseWriter, r *http.Request, _ *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	weekAgo := b.now().AddDate(0, 0, -7)
	stats := map[string]int{
		"total_users":            len(b.users),
		"total_projects":         len(b.projects),
		"total_reports":          len(b.reports),
		"total_ai_questions":     len(b.aiQuestions),
		"new_users_this_week":    0,
		"new_projects_this_week": 0,
		"reports_this_week":      0,
		"active_projects":        0,
		"project_types_count":    0,
		"questions_count":        0,
	}
	for _, u := range b.users {
		if !u.Joined.Before(weekAgo) {
			stats["new_users_this_week"]++
		}
	}
	for _, p := range b.projects {
		if !p.Created.Before(weekAgo) {
			stats["new_projects_this_week"]++
		}
		if p.Status == "proposed" || p.Status == "called" {
			stats["active_projects"]++
		}
	}
	for _, rep := range b.reports {
		if !rep.Created.Before(weekAgo) {
			stats["reports_this_week"]++
		}
	}
	for _, pt := range b.projectTypes {
		if pt.Enabled {
			stats["project_types_count"]++
		}
	}
	for _, q := range b.questions {
		if q.Enabled {
			stats["questions_count"]++
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

// Users

func (b *Backend) adminUserJSON(u *User) map[string]any {
	m := userJSON(u)
	count := 0
	for _, p := range b.projects {
		if p.UserID == u.ID {
			count++
		}
	}
	m["project_count"] = count
	return m
}

func (b *Backend) adminUsers(w http.ResponseWriter, r *http.Request, _ *User) {
	q := r.URL.Query()

	b.mu.Lock()
	defer b.mu.Unlock()

	var results []map[string]any
	for i := len(b.users) - 1; i >= 0; i-- {
		u := b.users[i]
		if role := q.Get("role"); role != "" && u.Role != role {
			continue
		}
		if !matchBool(q.Get("enabled"), u.Enabled) {
			continue
		}
		if s := q.Get("search"); s != "" && !containsFold(u.Name, s) && !containsFold(u.Email, s) && !containsFold(u.Username, s) {
			continue
		}
		results = append(results, b.adminUserJSON(u))
	}
	writeJSON(w, http.StatusOK, page(results))
}

type userWrite struct {
	Username *string `json:"username"`
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	Enabled  *bool   `json:"enabled"`
	Password *string `json:"password"`
}

func (uw userWrite) apply(u *User) {
	if uw.Username != nil {
		u.Username = *uw.Username
	}
	if uw.Name != nil {
		u.Name = *uw.Name
	}
	if uw.Email != nil {
		u.Email = *uw.Email
	}
	if uw.Role != nil {
		u.Role = *uw.Role
	}
	if uw.Enabled != nil {
		u.Enabled = *uw.Enabled
	}
	if uw.Password != nil {
		u.Password = *uw.Password
	}
}

func (b *Backend) emailTaken(email string, except int) bool {
	for _, u := range b.users {
		if u.ID != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (b *Backend) adminCreateUser(w http.ResponseWriter, r *http.Request, _ *User) {
	var req userWrite
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, detail(err.Error()))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if req.Email != nil && b.emailTaken(*req.Email, 0) {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"Email already in use."}})
		return
	}

	u := &User{ID: b.id(), Role: "client", Enabled: true, Joined: b.now()}
	req.apply(u)
	if u.Username == "" {
		u.Username, _, _ = strings.Cut(u.Email, "@")
	}
	b.users = append(b.users, u)
	writeJSON(w, http.StatusCreated, b.adminUserJSON(u))
}

func (b *Backend) adminGetUser(w http.ResponseWriter, r *http.Request, _ *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u := b.findUser(pathID(r))
	if u == nil {
		notFound(w, "User")
		return
	}
	writeJSON(w, http.StatusOK, b.adminUserJSON(u))
}

func (b *Backend) adminUpdateUser(w http.ResponseWriter, r *http.Request, _ *User) {
	var req userWrite
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, detail(err.Error()))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	u := b.findUser(pathID(r))
	if u == nil {
		notFound(w, "User")
		return
	}
	if req.Email != nil && b.emailTaken(*req.Email, u.ID) {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"Email already in use."}})
		return
	}
	req.apply(u)
	writeJSON(w, http.StatusOK, b.adminUserJSON(u))
}

func (b *Backend) adminDeleteUser(w http.ResponseWriter, r *http.Request, caller *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := pathID(r)
	if b.findUser(id) == nil {
		notFound(w, "User")
		return
	}
	if id == caller.ID {
		writeJSON(w, http.StatusBadRequest, detail("Cannot delete your own account."))
		return
	}
	b.users = removeWhere(b.users, func(u *User) bool { return u.ID == id })
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) adminToggleUser(w http.ResponseWriter, r *http.Request, caller *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u := b.findUser(pathID(r))
	if u == nil {
		notFound(w, "User")
		return
	}
	if u.ID == caller.ID {
		writeJSON(w, http.StatusBadRequest, detail("Cannot toggle your own account."))
		return
	}
	u.Enabled = !u.Enabled
	writeJSON(w, http.StatusOK, b.adminUserJSON(u))
}

// Project types

func (b *Backend) adminProjectTypeJSON(pt *ProjectType) map[string]any {
	m := projectTypeJSON(pt)
	m["icon"] = pt.Icon
	questions, projects := 0, 0
	for _, q := range b.questions {
		if q.ProjectTypeID == pt.ID {
			questions++
		}
	}
	for _, p := range b.projects {
		if p.ProjectTypeID == pt.ID {
			projects++
		}
	}
	m["question_count"] = questions
	m["project_count"] = projects
	return m
}

type projectTypeWrite struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	Enabled     *bool   `json:"enabled"`
}

func (pw projectTypeWrite) apply(pt *ProjectType) {
	if pw.Name != nil {
		pt.Name = *pw.Name
	}
	if pw.Description != nil {
		pt.Description = *pw.Description
	}
	if pw.Icon != nil {
		pt.Icon = *pw.Icon
	}
	if pw.Enabled != nil {
		pt.Enabled = *pw.Enabled
	}
}

func (b *Backend) adminProjectTypes(w http.ResponseWriter, r *http.Request, _ *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var results []map[string]any
	for _, pt := range b.projectTypes {
		if matchBool(r.URL.Query().Get("enabled"), pt.Enabled) {
			results = append(results, b.adminProjectTypeJSON(pt))
		}
	}
	writeJSON(w, http.StatusOK, page(results))
}

func (b *Backend) adminCreateProjectType(w http.ResponseWriter, r *http.Request, _ *User) {
	var req projectTypeWrite
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, detail(err.Error()))
		return
	}
	if req.Name == nil || *req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"name": {"This field is required."}})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	pt := &ProjectType{ID: b.id(), Enabled: true, Created: b.now()}
	req.apply(pt)
	b.projectTypes = append(b.projectTypes, pt)
	writeJSON(w, http.StatusCreated, b.adminProjectTypeJSON(pt))
}

func (b *Backend) adminGetProjectType(w http.ResponseWriter, r *http.Request, _ *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pt := b.findProjectType(pathID(r))
	if pt == nil {
		notFound(w, "Project type")
		return
	}
	writeJSON(w, http.StatusOK, b.adminProjectTypeJSON(pt))
}

func (b *Backend) adminUpdateProjectType(w http.ResponseWriter, r *http.Request, _ *User) {
	var req projectTypeWrite
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, detail(err.Error()))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	pt := b.findProjectType(pathID(r))
	if pt == nil {
		notFound(w, "Project type")
		return
	}
	req.apply(pt)
	writeJSON(w, http.StatusOK, b.adminProjectTypeJSON(pt))
}

func (b *Backend) adminDeleteProjectType(w http.ResponseWriter, r *http.Request, _ *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := pathID(r)
	if b.findProjectType(id) == nil {
		notFound(w, "Project type")
		return
	}
	b.projectTypes = removeWhere(b.projectTypes, func(pt *ProjectType) bool { return pt.ID == id })
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) adminToggleProjectType(w http.ResponseWriter, r *http.Request, _ *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pt := b.findProjectType(pathID(r))
	if pt == nil {
		notFound(w, "Project type")
		return
	}
	pt.Enabled = !pt.Enabled
	writeJSON(w, http.StatusOK, b.adminProjectTypeJSON(pt))
}

// Projects

func (b *Backend) adminProjectJSON(p *Project) map[string]any {
	m := projectJSON(p)
	if u := b.findUser(p.UserID); u != nil {
		m["user"] = map[string]any{"id": u.ID, "name": u.Name, "email": u.Email}
	}
	if pt := b.findProjectType(p.ProjectTypeID); pt != nil {
		m["project_type"] = map[string]any{"id": pt.ID, "name": pt.Name}
	}
	m["has_report"] = b.reportFor(p.ID) != nil
	return m
}

func (b *Backend) adminProjects(w http.ResponseWriter, r *http.Request, _ *User) {
	q := r.URL.Query()

	b.mu.Lock()
	defer b.mu.Unlock()

	var results []map[string]any
	for i := len(b.projects) - 1; i >= 0; i-- {
		p := b.projects[i]
		if s := q.Get("status"); s != "" && p.Status != s {
			continue
		}
		if t := q.Get("project_type"); t != "" && strconv.Itoa(p.ProjectTypeID) != t {
			continue
		}
		if !matchBool(q.Get("has_report"), b.reportFor(p.ID) != nil) {
			continue
		}
		if s := q.Get("search"); s != "" && !containsFold(p.Name, s) && !containsFold(p.Description, s) {
			continue
		}
		results = append(results, b.adminProjectJSON(p))
	}
	writeJSON(w, http.StatusOK, page(results))
}

func (b *Backend) adminGetProject(w http.ResponseWriter, r *http.Request, _ *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.findProject(pathID(r))
	if p == nil {
		notFound(w, "Project")
		return
	}
	writeJSON(w, http.StatusOK, b.adminProjectJSON(p))
}

func (b *Backend) adminUpdateProject(w http.ResponseWriter, r *http.Request, _ *User) {
	var req struct {
		Name          *string `json:"name"`
		Description   *string `json:"description"`
		Status        *string `json:"status"`
		Enabled       *bool   `json:"enabled"`
		UserID        *int    `json:"user_id"`
		ProjectTypeID *int    `json:"project_type_id"`
	}
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, detail(err.Error()))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.findProject(pathID(r))
	if p == nil {
		notFound(w, "Project")
		return
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Status != nil {
		p.Status = *req.Status
	}
	if req.Enabled != nil {
		p.Enabled = *req.Enabled
	}
	if req.UserID != nil {
		p.UserID = *req.UserID
	}
	if req.ProjectTypeID != nil {
		p.ProjectTypeID = *req.ProjectTypeID
	}
	writeJSON(w, http.StatusOK, b.adminProjectJSON(p))
}

func (b *Backend) adminDeleteProject(w http.ResponseWriter, r *http.Request, _ *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := pathID(r)
	if b.findProject(id) == nil {
		notFound(w, "Project")
		return
	}
	b.projects = removeWhere(b.projects, func(p *Project) bool { return p.ID == id })
	w.WriteHeader(http.StatusNoContent)
}

// Questions

func (b *Backend) adminQuestionJSON(q *Question) map[string]any {
	m := questionJSON(q)
	m["question_no"] = q.No
	m["next_question"] = nil
	if pt := b.findProjectType(q.ProjectTypeID); pt != nil {
		m["project_type"] = map[string]any{"id": pt.ID, "name": pt.Name}
	}
	return m
}

func (b *Backend) sortedQuestions() []*Question {
	out := append([]*Question(nil), b.questions...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProjectTypeID != out[j].ProjectTypeID {
			return out[i].ProjectTypeID < out[j].ProjectTypeID
		}
		return out[i].No < out[j].No
	})
	return out
}

type questionWrite struct {
	Text          *string `json:"text"`
	Description   *string `json:"description"`
	ProjectTypeID *int    `json:"project_type_id"`
	QuestionType  *string `json:"question_type"`
	QuestionNo    *int    `json:"question_no"`
	Enabled       *bool   `json:"enabled"`
}

func (qw questionWrite) apply(q *Question) {
	if qw.Text != nil {
		q.Text = *qw.Text
	}
	if qw.Description != nil {
		q.Description = *qw.Description
	}
	if qw.ProjectTypeID != nil {
		q.ProjectTypeID = *qw.ProjectTypeID
	}
	if qw.QuestionType != nil {
		q.Type = *qw.QuestionType
	}
	if qw.QuestionNo != nil {
		q.No = *qw.QuestionNo
	}
	if qw.Enabled != nil {
		q.Enabled = *qw.Enabled
	}
}

func (b *Backend) adminQuestions(w http.ResponseWriter, r *http.Request, _ *User) {
	q := r.URL.Query()

	b.mu.Lock()
	defer b.mu.Unlock()

	var results []map[string]any
	for _, question := range b.sortedQuestions() {
		if t := q.Get("project_type"); t != "" && strconv.Itoa(question.ProjectTypeID) != t {
			continue
		}
		if !matchBool(q.Get("enabled"), question.Enabled) {
			continue
		}
		results = append(results, b.adminQuestionJSON(question))
	}
	writeJSON(w, http.StatusOK, page(results))
}

func (b *Backend) adminCreateQuestion(w http.ResponseWriter, r *http.Request, _ *User) {
	var req questionWrite
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, detail(err.Error()))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.findProjectType(*req.ProjectTypeID) == nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"project_type_id": {"Invalid pk - object does not exist."}})
		return
	}
	q := &Question{ID: b.id(), Type: "text", Enabled: true, Created: b.now()}
	req.apply(q)
	b.questions = append(b.questions, q)
	writeJSON(w, http.StatusCreated, b.adminQuestionJSON(q))
}

func (b *Backend) adminGetQuestion(w http.ResponseWriter, r *http.Request, _ *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.findQuestion(pathID(r))
	if q == nil {
		notFound(w, "Question")
		return
	}
	writeJSON(w, http.StatusOK, b.adminQuestionJSON(q))
}

func (b *Backend) adminUpdateQuestion(w http.ResponseWriter, r *http.Request, _ *User) {
	var req questionWrite
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, detail(err.Error()))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.findQuestion(pathID(r))
	if q == nil {
		notFound(w, "Question")
		return
	}
	req.apply(q)
	writeJSON(w, http.StatusOK, b.adminQuestionJSON(q))
}

func (b *Backend) adminDeleteQuestion(w http.ResponseWriter, r *http.Request, _ *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := pathID(r)
	if b.findQuestion(id) == nil {
		notFound(w, "Question")
		return
	}
	b.questions = removeWhere(b.questions, func(q *Question) bool { return q.ID == id })
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) adminToggleQuestion(w http.ResponseWriter, r *http.Request, _ *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.findQuestion(pathID(r))
	if q == nil {
		notFound(w, "Question")
		return
	}
	q.Enabled = !q.Enabled
	writeJSON(w, http.StatusOK, b.adminQuestionJSON(q))
}

func (b *Backend) adminReorderQuestions(w http.ResponseWriter, r *http.Request, _ *User) {
	var req struct {
		ProjectTypeID int   `json:"project_type_id"`
		QuestionOrder []int `json:"question_order"`
	}
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, detail(err.Error()))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i, id := range req.QuestionOrder {
		if q := b.findQuestion(id); q != nil && q.ProjectTypeID == req.ProjectTypeID {
			q.No = i + 1
		}
	}

	var results []map[string]any
	for _, q := range b.sortedQuestions() {
		if q.ProjectTypeID == req.ProjectTypeID {
			results = append(results, b.adminQuestionJSON(q))
		}
	}
	if results == nil {
		results = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// AI questions

func (b *Backend) adminAIQuestions(w http.ResponseWriter, r *http.Request, _ *User) {
	query := r.URL.Query()

	b.mu.Lock()
	defer b.mu.Unlock()

	var results []map[string]any
	for i := len(b.aiQuestions) - 1; i >= 0; i-- {
		q := b.aiQuestions[i]
		if p := query.Get("project"); p != "" && strconv.Itoa(q.ProjectID) != p {
			continue
		}
		answers := 0
		for _, a := range b.answers {
			if a.AI && a.QuestionID == q.ID {
				answers++
			}
		}
		if !matchBool(query.Get("answered"), answers > 0) {
			continue
		}

		status := "pending"
		if answers > 0 {
			status = "answered"
		}
		projectName := ""
		if p := b.findProject(q.ProjectID); p != nil {
			projectName = p.Name
		}
		results = append(results, map[string]any{
			"id":           q.ID,
			"question_no":  q.No,
			"text":         q.Text,
			"description":  q.Description,
			"project":      q.ProjectID,
			"project_name": projectName,
			"created_at":   q.Created,
			"updated_at":   q.Created,
			"answer_count": answers,
			"status":       status,
		})
	}
	writeJSON(w, http.StatusOK, page(results))
}

// Reports

func (b *Backend) adminReportJSON(rep *Report) map[string]any {
	m := reportJSON(rep)
	if p := b.findProject(rep.ProjectID); p != nil {
		project := map[string]any{"id": p.ID, "name": p.Name, "user": nil}
		if u := b.findUser(p.UserID); u != nil {
			project["user"] = map[string]any{"id": u.ID, "name": u.Name, "email": u.Email}
		}
		m["project"] = project
	}
	m["format"] = "PDF"
	m["status"] = "pending"
	if rep.Body != "" {
		m["status"] = "ready"
	}
	return m
}

func (b *Backend) adminReports(w http.ResponseWriter, r *http.Request, _ *User) {
	search := r.URL.Query().Get("search")

	b.mu.Lock()
	defer b.mu.Unlock()

	var results []map[string]any
	for i := len(b.reports) - 1; i >= 0; i-- {
		rep := b.reports[i]
		if search != "" {
			p := b.findProject(rep.ProjectID)
			if p == nil || !containsFold(p.Name, search) {
				continue
			}
		}
		results = append(results, b.adminReportJSON(rep))
	}
	writeJSON(w, http.StatusOK, page(results))
}

func (b *Backend) findReport(id int) *Report {
	for _, rep := range b.reports {
		if rep.ID == id {
			return rep
		}
	}
	return nil
}

func (b *Backend) adminGetReport(w http.ResponseWriter, r *http.Request, _ *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rep := b.findReport(pathID(r))
	if rep == nil {
		notFound(w, "Report")
		return
	}
	writeJSON(w, http.StatusOK, b.adminReportJSON(rep))
}

func (b *Backend) adminDeleteReport(w http.ResponseWriter, r *http.Request, _ *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := pathID(r)
	if b.findReport(id) == nil {
		notFound(w, "Report")
		return
	}
	b.reports = removeWhere(b.reports, func(rep *Report) bool { return rep.ID == id })
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) adminRegenerateReport(w http.ResponseWriter, r *http.Request, _ *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.findProject(pathID(r))
	if p == nil {
		notFound(w, "Project")
		return
	}
	if !b.settings.ReportRegenerationEnabled {
		writeJSON(w, http.StatusForbidden, detail("Report regeneration is disabled."))
		return
	}

	b.reports = removeWhere(b.reports, func(rep *Report) bool { return rep.ProjectID == p.ID })
	answers := b.projectAnswers(p.ID)
	if len(answers) == 0 {
		writeJSON(w, http.StatusBadRequest, detail("No answers found for this project."))
		return
	}

	rep := &Report{ID: b.id(), ProjectID: p.ID, Body: b.ReportText(*p, answers), Created: b.now()}
	b.reports = append(b.reports, rep)
	writeJSON(w, http.StatusCreated, b.adminReportJSON(rep))
}

// Settings

func (b *Backend) settingsJSON() map[string]any {
	var m map[string]any
	data, _ := json.Marshal(b.settings)
	_ = json.Unmarshal(data, &m)
	m["id"] = 1
	m["created_at"] = Epoch
	m["updated_at"] = Epoch
	return m
}

func (b *Backend) adminSettings(w http.ResponseWriter, r *http.Request, _ *User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.settingsJSON())
}

func (b *Backend) adminUpdateSettings(w http.ResponseWriter, r *http.Request, _ *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	merged := b.settings
	if err := decode(r, &merged); err != nil {
		writeJSON(w, http.StatusBadRequest, detail(err.Error()))
		return
	}
	b.settings = merged
	writeJSON(w, http.StatusOK, b.settingsJSON())
}

func removeWhere[T any](items []T, drop func(T) bool) []T {
	out := items[:0]
	for _, it := range items {
		if !drop(it) {
			out = append(out, it)
		}
	}
	return out
}
