package projects

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/nexora/internal/api"
	"github.com/felixgeelhaar/nexora/internal/contract"
	"github.com/felixgeelhaar/nexora/internal/log"
	"github.com/felixgeelhaar/nexora/internal/metrics"
	fake "github.com/felixgeelhaar/nexora/internal/testutil"
)

func newService(t *testing.T, backend *fake.Backend, token string, opts ...Option) *Service {
	t.Helper()
	client := api.New(backend.URL(),
		api.WithLogger(log.Discard()),
		api.WithCredentials(api.StaticCredentials(token)),
		api.WithValidator(contract.MustNew()),
	)
	return NewService(client, append([]Option{WithLogger(log.Discard())}, opts...)...)
}

func TestListCreateGet(t *testing.T) {
	backend := fake.NewBackend(t)
	seed := backend.SeedDefault()
	svc := newService(t, backend, seed.Client.Token)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRequest{Name: "Mobile Shop", Description: "iOS first", ProjectTypeID: seed.ProjectType.ID})
	require.NoError(t, err)
	assert.Equal(t, StatusProposed, created.Status)
	assert.Equal(t, seed.Client.ID, created.UserID)

	list, err := svc.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Mobile Shop", list[0].Name, "newest first")

	filtered, err := svc.List(ctx, ListOptions{Query: "store"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, seed.Project.ID, filtered[0].ID)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "iOS first", got.Description)

	_, err = svc.Get(ctx, 9999)
	assert.True(t, api.IsNotFound(err))
}

func TestCreateRejectedByContract(t *testing.T) {
	backend := fake.NewBackend(t)
	seed := backend.SeedDefault()
	svc := newService(t, backend, seed.Client.Token)

	_, err := svc.Create(context.Background(), CreateRequest{Name: "", ProjectTypeID: seed.ProjectType.ID})
	require.Error(t, err)
	assert.Zero(t, backend.Count("POST", "/projects/project/"), "invalid request must not be sent")
}

func TestTypes(t *testing.T) {
	backend := fake.NewBackend(t)
	seed := backend.SeedDefault()
	svc := newService(t, backend, seed.Client.Token)

	types, err := svc.Types(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "Web App", types[0].Name)
}

func TestNextWalksSequence(t *testing.T) {
	backend := fake.NewBackend(t)
	seed := backend.SeedDefault()
	backend.AddAIQuestion(seed.Project.ID, "Do you need offline mode?")
	svc := newService(t, backend, seed.Client.Token)
	ctx := context.Background()

	res, err := svc.Next(ctx, seed.Project.ID)
	require.NoError(t, err)
	require.False(t, res.Complete)
	assert.Equal(t, seed.Q1.ID, res.Question.ID)
	assert.Equal(t, OriginPredefined, res.Question.QuestionType)

	ans, err := svc.Answer(ctx, AnswerRequest{QuestionID: seed.Q1.ID, ProjectID: seed.Project.ID, Text: "Stripe", QuestionType: OriginPredefined})
	require.NoError(t, err)
	assert.Equal(t, "Stripe", ans.Answer.Text)
	require.NotNil(t, ans.Next)
	assert.Equal(t, seed.Q2.ID, ans.Next.ID)

	ans, err = svc.Answer(ctx, AnswerRequest{QuestionID: seed.Q2.ID, ProjectID: seed.Project.ID, Text: "About 500", QuestionType: OriginPredefined})
	require.NoError(t, err)
	require.NotNil(t, ans.Next)
	assert.True(t, ans.Next.IsAI())

	ans, err = svc.Answer(ctx, AnswerRequest{QuestionID: ans.Next.ID, ProjectID: seed.Project.ID, Text: "No", QuestionType: OriginAI})
	require.NoError(t, err)
	assert.Nil(t, ans.Next)

	res, err = svc.Next(ctx, seed.Project.ID)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Nil(t, res.Question)
}

func TestNextCompletionSignals(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		complete bool
		wantErr  bool
	}{
		{"detail without data", 200, `{"detail": "All questions have been answered."}`, true, false},
		{"empty object", 200, `{}`, true, false},
		{"null data", 200, `{"detail": "ok", "data": null}`, true, false},
		{"completion as error", 400, `{"detail": "All questions have been answered."}`, true, false},
		{"completion as message", 404, `{"message": "All questions have been answered for project 5"}`, true, false},
		{"other error", 400, `{"detail": "User is not authorized to view questions for this project."}`, false, true},
		{"server error", 500, ``, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := fake.NewBackend(t)
			seed := backend.SeedDefault()
			svc := newService(t, backend, seed.Client.Token)
			backend.FailNext("GET", fmt.Sprintf("/projects/get_next_question/%d/", seed.Project.ID), tt.status, tt.body)

			res, err := svc.Next(context.Background(), seed.Project.ID)
			if tt.wantErr {
				require.Error(t, err)
				_, isAPI := api.AsError(err)
				assert.True(t, isAPI)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.complete, res.Complete)
		})
	}
}

func TestHasMoreQuestions(t *testing.T) {
	backend := fake.NewBackend(t)
	seed := backend.SeedDefault()
	svc := newService(t, backend, seed.Client.Token)
	ctx := context.Background()

	more, err := svc.HasMoreQuestions(ctx, seed.Project.ID)
	require.NoError(t, err)
	assert.True(t, more)

	for _, q := range []fake.Question{seed.Q1, seed.Q2} {
		_, err := svc.Answer(ctx, AnswerRequest{QuestionID: q.ID, ProjectID: seed.Project.ID, Text: "done", QuestionType: OriginPredefined})
		require.NoError(t, err)
	}

	more, err = svc.HasMoreQuestions(ctx, seed.Project.ID)
	require.NoError(t, err)
	assert.False(t, more)
}

func TestGenerateReport(t *testing.T) {
	backend := fake.NewBackend(t)
	seed := backend.SeedDefault()
	_, reg := metrics.NewRegistry()
	svc := newService(t, backend, seed.Client.Token, WithMetrics(reg))
	ctx := context.Background()

	_, err := svc.Answer(ctx, AnswerRequest{QuestionID: seed.Q1.ID, ProjectID: seed.Project.ID, Text: "Stripe", QuestionType: OriginPredefined})
	require.NoError(t, err)

	first, err := svc.GenerateReport(ctx, seed.Project.ID)
	require.NoError(t, err)
	assert.True(t, first.Ready())
	assert.Contains(t, first.Body, "# Storefront")
	assert.Contains(t, first.Body, "- Stripe")

	second, err := svc.GenerateReport(ctx, seed.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "report is generated once")

	assert.Equal(t, 2.0, testutil.ToFloat64(reg.ReportsFetched.WithLabelValues(ReportReady)))
}

func TestGenerateReportError(t *testing.T) {
	backend := fake.NewBackend(t)
	seed := backend.SeedDefault()
	_, reg := metrics.NewRegistry()
	svc := newService(t, backend, seed.Client.Token, WithMetrics(reg))

	_, err := svc.GenerateReport(context.Background(), 4242)
	require.Error(t, err)
	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Project is not present", apiErr.Message)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ReportsFetched.WithLabelValues("error")))
}

func TestReportStatus(t *testing.T) {
	tests := []struct {
		report Report
		want   string
	}{
		{Report{Body: "# Done"}, ReportReady},
		{Report{Body: "  \n"}, ReportPending},
		{Report{Body: "", Status: ReportReady}, ReportReady},
		{Report{Body: "# x", Status: ReportPending}, ReportPending},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.report.EffectiveStatus())
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, ValidStatus(s))
	}
	assert.False(t, ValidStatus("archived"))
}
