// Package testutil provides an in-memory fake of the Nexora backend for
// tests. Every request is checked against the embedded API contract before
// it is handled.
package testutil

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/felixgeelhaar/nexora/internal/contract"
)

// CompletionDetail is the detail text the backend sends once every question
// of a project has an answer.
const CompletionDetail = "All questions have been answered."

// Epoch is the fake backend clock. Everything is created at or after it.
var Epoch = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

// User is a seeded account.
type User struct {
	ID       int
	Username string
	Name     string
	Email    string
	Role     string
	Password string
	Enabled  bool
	Token    string
	Joined   time.Time
}

// ProjectType is a seeded project type.
type ProjectType struct {
	ID          int
	Name        string
	Description string
	Icon        string
	Enabled     bool
	Created     time.Time
}

// Question is a question template.
type Question struct {
	ID            int
	ProjectTypeID int
	No            int
	Text          string
	Description   string
	Type          string
	Enabled       bool
	Created       time.Time
}

// Project is a client project.
type Project struct {
	ID            int
	UserID        int
	ProjectTypeID int
	Name          string
	Description   string
	Status        string
	Enabled       bool
	Created       time.Time
}

// AIQuestion is a generated follow-up question.
type AIQuestion struct {
	ID          int
	ProjectID   int
	No          int
	Text        string
	Description string
	Created     time.Time
}

// Answer is a recorded answer. AI is set for answers to AI questions.
type Answer struct {
	ID         int
	UserID     int
	ProjectID  int
	QuestionID int
	AI         bool
	Text       string
	Created    time.Time
}

// Report is a generated project report.
type Report struct {
	ID        int
	ProjectID int
	Body      string
	Created   time.Time
}

// Settings mirrors the admin settings singleton.
type Settings struct {
	AIQuestionsEnabled        bool   `json:"ai_questions_enabled"`
	VoiceInputEnabled         bool   `json:"voice_input_enabled"`
	ReportRegenerationEnabled bool   `json:"report_regeneration_enabled"`
	PrimaryColor              string `json:"primary_color"`
	AccentColor               string `json:"accent_color"`
}

// Request is a request the backend received.
type Request struct {
	Method string
	Path   string
	Body   string
}

type failure struct {
	status int
	body   string
}

// Backend is a fake Nexora backend served over HTTP.
type Backend struct {
	server *httptest.Server

	mu           sync.Mutex
	nextID       int
	users        []*User
	projectTypes []*ProjectType
	questions    []*Question
	projects     []*Project
	aiQuestions  []*AIQuestion
	answers      []*Answer
	reports      []*Report
	settings     Settings
	requests     []Request
	failures     map[string][]failure
	hook         func(r *http.Request)

	// ReportText builds the body of a newly generated report.
	ReportText func(p Project, answers []Answer) string
}

// NewBackend starts a fake backend on IPv4 loopback. The test is skipped
// when no listener can be opened.
func NewBackend(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		nextID:   1,
		failures: map[string][]failure{},
		settings: Settings{
			AIQuestionsEnabled:        true,
			ReportRegenerationEnabled: true,
			PrimaryColor:              "#4F46E5",
			AccentColor:               "#10B981",
		},
	}
	b.ReportText = defaultReport

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to start fake backend: %v", err)
	}

	b.server = &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: b.router()},
	}
	b.server.Start()
	t.Cleanup(b.server.Close)
	return b
}

// URL returns the API base URL, e.g. http://127.0.0.1:1234/api.
func (b *Backend) URL() string {
	return b.server.URL + "/api"
}

func (b *Backend) router() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(b.record, contract.MustNew().Middleware("/api"), b.inject)

	api.HandleFunc("/auth/login/", b.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/signup/", b.signup).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout/", b.authed(b.logout)).Methods(http.MethodPost)
	api.HandleFunc("/auth/me/", b.authed(b.me)).Methods(http.MethodGet)

	api.HandleFunc("/projects/project/", b.authed(b.listProjects)).Methods(http.MethodGet)
	api.HandleFunc("/projects/project/", b.authed(b.createProject)).Methods(http.MethodPost)
	api.HandleFunc("/projects/project/{id:[0-9]+}/", b.authed(b.getProject)).Methods(http.MethodGet)
	api.HandleFunc("/projects/get_project_type/", b.authed(b.listProjectTypes)).Methods(http.MethodGet)
	api.HandleFunc("/projects/get_next_question/{id:[0-9]+}/", b.authed(b.nextQuestion)).Methods(http.MethodGet)
	api.HandleFunc("/projects/answer_question/", b.authed(b.answerQuestion)).Methods(http.MethodPost)
	api.HandleFunc("/projects/generate_report/{id:[0-9]+}/", b.authed(b.generateReport)).Methods(http.MethodGet)

	b.adminRoutes(api.PathPrefix("/admin").Subrouter())
	return r
}

// OnRequest registers fn to run before each request is handled. Tests use it
// to hold a request in flight.
func (b *Backend) OnRequest(fn func(r *http.Request)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hook = fn
}

// FailNext makes the next request to method and path (relative to the API
// base, e.g. /projects/answer_question/) respond with status and body.
func (b *Backend) FailNext(method, path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := method + " " + path
	b.failures[key] = append(b.failures[key], failure{status: status, body: body})
}

// Requests returns every request received so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Count returns how many requests hit method and path.
func (b *Backend) Count(method, path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = readAll(r)
		}
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method: r.Method,
			Path:   strings.TrimPrefix(r.URL.Path, "/api"),
			Body:   string(body),
		})
		hook := b.hook
		b.mu.Unlock()

		if hook != nil {
			hook(r)
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")

		b.mu.Lock()
		queue := b.failures[key]
		var f *failure
		if len(queue) > 0 {
			f = &queue[0]
			b.failures[key] = queue[1:]
		}
		b.mu.Unlock()

		if f != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, user *User)

func (b *Backend) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeJSON(w, http.StatusUnauthorized, detail("Authentication credentials were not provided."))
			return
		}
		token := strings.TrimPrefix(header, "Token ")

		b.mu.Lock()
		user := b.userByToken(token)
		b.mu.Unlock()

		if user == nil {
			writeJSON(w, http.StatusUnauthorized, detail("Invalid token."))
			return
		}
		if !user.Enabled {
			writeJSON(w, http.StatusUnauthorized, detail("User inactive or deleted."))
			return
		}
		h(w, r, user)
	}
}

func (b *Backend) admin(h authedHandler) http.HandlerFunc {
	return b.authed(func(w http.ResponseWriter, r *http.Request, user *User) {
		if user.Role != "admin" {
			writeJSON(w, http.StatusForbidden, detail("You do not have permission to perform this action."))
			return
		}
		h(w, r, user)
	})
}

// id allocates the next identifier. Callers hold b.mu.
func (b *Backend) id() int {
	id := b.nextID
	b.nextID++
	return id
}

// now is Epoch advanced by one second per allocated identifier, so creation
// order is stable. Callers hold b.mu.
func (b *Backend) now() time.Time {
	return Epoch.Add(time.Duration(b.nextID) * time.Second)
}

func (b *Backend) userByToken(token string) *User {
	for _, u := range b.users {
		if u.Token != "" && u.Token == token {
			return u
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func detail(msg string) map[string]any {
	return map[string]any{"detail": msg}
}

func pathID(r *http.Request) int {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	return id
}

func decode(r *http.Request, v any) error {
	body, err := readAll(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func defaultReport(p Project, answers []Answer) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n## Requirements\n\n", p.Name)
	for _, a := range answers {
		fmt.Fprintf(&sb, "- %s\n", a.Text)
	}
	return sb.String()
}
