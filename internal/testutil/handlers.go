package testutil

import (
	"net/http"
	"strconv"
	"strings"
)

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, detail(err.Error()))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, u := range b.users {
		if u.Username != req.Username || u.Password != req.Password {
			continue
		}
		if !u.Enabled {
			writeJSON(w, http.StatusForbidden, detail("User disabled."))
			return
		}
		if u.Token == "" {
			u.Token = "token-" + u.Username
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": userJSON(u), "token": u.Token})
		return
	}
	writeJSON(w, http.StatusUnauthorized, detail("Invalid credentials."))
}

func (b *Backend) signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, detail(err.Error()))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, u := range b.users {
		if strings.EqualFold(u.Email, req.Email) {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"Email already in use."}})
			return
		}
	}

	username := req.Username
	if username == "" {
		username, _, _ = strings.Cut(req.Email, "@")
	}
	u := &User{
		ID:       b.id(),
		Username: username,
		Name:     req.Name,
		Email:    req.Email,
		Role:     "client",
		Password: req.Password,
		Enabled:  true,
		Token:    "token-" + username,
		Joined:   b.now(),
	}
	b.users = append(b.users, u)
	writeJSON(w, http.StatusCreated, map[string]any{"user": userJSON(u), "token": u.Token})
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request, user *User) {
	b.mu.Lock()
	user.Token = ""
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request, user *User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, userJSON(user))
}

func (b *Backend) listProjects(w http.ResponseWriter, r *http.Request, user *User) {
	q := r.URL.Query()

	b.mu.Lock()
	defer b.mu.Unlock()

	data := make([]map[string]any, 0)
	for i := len(b.projects) - 1; i >= 0; i-- {
		p := b.projects[i]
		if p.UserID != user.ID {
			continue
		}
		if s := q.Get("status"); s != "" && p.Status != s {
			continue
		}
		if t := q.Get("project_type_id"); t != "" && strconv.Itoa(p.ProjectTypeID) != t {
			continue
		}
		if e := q.Get("enabled"); e != "" && strconv.FormatBool(p.Enabled) != e {
			continue
		}
		if s := q.Get("q"); s != "" && !containsFold(p.Name, s) && !containsFold(p.Description, s) {
			continue
		}
		data = append(data, projectJSON(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"detail": "Projects retrieved successfully", "data": data})
}

func (b *Backend) createProject(w http.ResponseWriter, r *http.Request, user *User) {
	var req struct {
		Name          string `json:"name"`
		Description   string `json:"description"`
		ProjectTypeID int    `json:"project_type_id"`
	}
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, detail(err.Error()))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if pt := b.findProjectType(req.ProjectTypeID); pt == nil || !pt.Enabled {
		writeJSON(w, http.StatusBadRequest, detail("Project type not found."))
		return
	}

	p := &Project{
		ID:            b.id(),
		UserID:        user.ID,
		ProjectTypeID: req.ProjectTypeID,
		Name:          req.Name,
		Description:   req.Description,
		Status:        "proposed",
		Enabled:       true,
		Created:       b.now(),
	}
	b.projects = append(b.projects, p)
	writeJSON(w, http.StatusCreated, map[string]any{"detail": "Project created successfully", "data": projectJSON(p)})
}

// ownedProject resolves the {id} project for user. Admins see every project.
// On failure it writes the response and returns nil. Callers hold b.mu.
func (b *Backend) ownedProject(w http.ResponseWriter, r *http.Request, user *User) *Project {
	p := b.findProject(pathID(r))
	if p == nil {
		writeJSON(w, http.StatusNotFound, detail("Project not found."))
		return nil
	}
	if p.UserID != user.ID && user.Role != "admin" {
		writeJSON(w, http.StatusBadRequest, detail("User is not authorized to view questions for this project."))
		return nil
	}
	return p
}

func (b *Backend) getProject(w http.ResponseWriter, r *http.Request, user *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p := b.ownedProject(w, r, user); p != nil {
		writeJSON(w, http.StatusOK, map[string]any{"detail": "Project retrieved successfully", "data": projectJSON(p)})
	}
}

func (b *Backend) listProjectTypes(w http.ResponseWriter, r *http.Request, user *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := make([]map[string]any, 0)
	for _, pt := range b.projectTypes {
		if pt.Enabled {
			data = append(data, projectTypeJSON(pt))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"detail": "Project types retrieved successfully", "data": data})
}

func (b *Backend) nextQuestion(w http.ResponseWriter, r *http.Request, user *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.ownedProject(w, r, user)
	if p == nil {
		return
	}

	next := b.pending(p)
	if next == nil {
		writeJSON(w, http.StatusOK, detail(CompletionDetail))
		return
	}
	msg := "Next question retrieved successfully"
	if next["question_type"] == "ai" {
		msg = "Next AI question retrieved successfully"
	}
	writeJSON(w, http.StatusOK, map[string]any{"detail": msg, "data": next})
}

func (b *Backend) answerQuestion(w http.ResponseWriter, r *http.Request, user *User) {
	var req struct {
		QuestionID   int    `json:"question_id"`
		ProjectID    int    `json:"project_id"`
		Text         string `json:"text"`
		QuestionType string `json:"question_type"`
	}
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, detail(err.Error()))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.findProject(req.ProjectID)
	if p == nil {
		writeJSON(w, http.StatusBadRequest, detail("Project is not present"))
		return
	}

	ai := req.QuestionType == "ai"
	if (ai && b.findAIQuestion(req.QuestionID) == nil) || (!ai && b.findQuestion(req.QuestionID) == nil) {
		writeJSON(w, http.StatusBadRequest, detail("Question is not present"))
		return
	}

	a := &Answer{
		ID:         b.id(),
		UserID:     user.ID,
		ProjectID:  p.ID,
		QuestionID: req.QuestionID,
		AI:         ai,
		Text:       req.Text,
		Created:    b.now(),
	}
	b.answers = append(b.answers, a)

	var next any
	if q := b.pending(p); q != nil {
		next = q
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"detail": "Answer saved successfully",
		"data": map[string]any{
			"id":         a.ID,
			"user":       a.UserID,
			"question":   a.QuestionID,
			"project":    a.ProjectID,
			"text":       a.Text,
			"created_at": a.Created,
			"updated_at": a.Created,
		},
		"next_question": next,
	})
}

func (b *Backend) generateReport(w http.ResponseWriter, r *http.Request, user *User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.findProject(pathID(r))
	if p == nil {
		writeJSON(w, http.StatusBadRequest, detail("Project is not present"))
		return
	}

	if existing := b.reportFor(p.ID); existing != nil {
		writeJSON(w, http.StatusOK, map[string]any{"detail": "Project Report", "data": reportJSON(existing)})
		return
	}

	rep := &Report{ID: b.id(), ProjectID: p.ID, Body: b.ReportText(*p, b.projectAnswers(p.ID)), Created: b.now()}
	b.reports = append(b.reports, rep)
	writeJSON(w, http.StatusCreated, map[string]any{"detail": "Project Report Generated", "data": reportJSON(rep)})
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
