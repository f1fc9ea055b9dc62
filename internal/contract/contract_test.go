package contract

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedDocumentLoads(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	ops := v.Operations()
	assert.NotEmpty(t, ops)
	assert.Contains(t, ops, Operation{Method: "POST", Path: "/projects/answer_question/", ID: "answerQuestion"})
	assert.Contains(t, ops, Operation{Method: "POST", Path: "/admin/reports/{id}/regenerate/", ID: "adminRegenerateReport"})

	for i := 1; i < len(ops); i++ {
		prev, cur := ops[i-1], ops[i]
		assert.True(t, prev.Path < cur.Path || (prev.Path == cur.Path && prev.Method < cur.Method), "operations not sorted at %d", i)
	}
}

func TestLoadRejectsInvalidDocument(t *testing.T) {
	_, err := Load([]byte("openapi: 3.0.3\ninfo: {}\npaths: {}\n"))
	assert.Error(t, err)

	_, err = Load([]byte("{not yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	v := MustNew()

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		wantErr string
	}{
		{"answer", "POST", "/projects/answer_question/", `{"question_id":1,"project_id":7,"text":"Stripe","question_type":"predefined"}`, ""},
		{"answer blank text", "POST", "/projects/answer_question/", `{"question_id":1,"project_id":7,"text":"   ","question_type":"ai"}`, "request body"},
		{"answer missing field", "POST", "/projects/answer_question/", `{"question_id":1,"text":"x","question_type":"ai"}`, "request body"},
		{"answer without body", "POST", "/projects/answer_question/", ``, "required"},
		{"next question", "GET", "/projects/get_next_question/12/", ``, ""},
		{"non numeric id", "GET", "/projects/get_next_question/abc/", ``, "integer"},
		{"zero id", "GET", "/projects/project/0/", ``, "path parameter id"},
		{"wrong method", "DELETE", "/projects/project/", ``, "not allowed"},
		{"unknown path", "GET", "/projects/unknown/", ``, "unknown path"},
		{"reorder beats id template", "POST", "/admin/questions/reorder/", `{"project_type_id":2,"question_order":[3,1,2]}`, ""},
		{"reorder empty order", "POST", "/admin/questions/reorder/", `{"project_type_id":2,"question_order":[]}`, "request body"},
		{"toggle", "POST", "/admin/users/4/toggle/", ``, ""},
		{"toggle with body", "POST", "/admin/users/4/toggle/", `{"enabled":true}`, "no request body"},
		{"query ok", "GET", "/admin/users/?role=admin&search=ana", ``, ""},
		{"query bad enum", "GET", "/admin/users/?role=owner", ``, "query parameter role"},
		{"query unknown", "GET", "/admin/users/?limit=5", ``, "unknown query parameter"},
		{"project filters", "GET", "/projects/project/?status=called&project_type_id=3", ``, ""},
		{"settings color", "PUT", "/admin/settings/", `{"primary_color":"blue"}`, "request body"},
		{"signup short password", "POST", "/auth/signup/", `{"name":"Ana","email":"a@b.c","password":"short"}`, "request body"},
		{"login", "POST", "/auth/login/", `{"username":"ana","password":"secret"}`, ""},
		{"logout", "POST", "/auth/logout/", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.method, tt.path, []byte(tt.body))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMiddleware(t *testing.T) {
	v := MustNew()
	reached := 0
	handler := v.Middleware("/api")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached++
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/projects/project/", strings.NewReader(`{"name":"Portal","project_type_id":1}`))
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/projects/project/", strings.NewReader(`{"description":"no name"}`))
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "contract violation")

	assert.Equal(t, 1, reached)
}
