package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/nexora/internal/errors"
	"github.com/felixgeelhaar/nexora/internal/projects"
	"github.com/felixgeelhaar/nexora/internal/report"
	"github.com/felixgeelhaar/nexora/internal/testutil"
)

// cli runs the command tree against a fake backend with a private
// credentials file.
type cli struct {
	t       *testing.T
	backend *testutil.Backend
	seed    testutil.Seed
	dir     string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	backend := testutil.NewBackend(t)
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	return &cli{t: t, backend: backend, seed: backend.SeedDefault(), dir: dir}
}

// run executes args with stdin and returns stdout and stderr.
func (c *cli) run(stdin string, args ...string) (string, string, error) {
	c.t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))

	base := []string{
		"--api-url", c.backend.URL(),
		"--credentials-file", filepath.Join(c.dir, "credentials.json"),
		"--env-file", filepath.Join(c.dir, "missing.env"),
	}
	rootCmd.SetArgs(append(base, args...))
	err := ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (c *cli) login(username, password string) {
	c.t.Helper()
	_, _, err := c.run(password+"\n", "auth", "login", "--username", username, "--password-stdin")
	require.NoError(c.t, err)
}

// resetFlags restores every flag to its default so runs do not leak into
// each other.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

var itoa = strconv.Itoa

func codeOf(t *testing.T, err error) errors.ErrorCode {
	t.Helper()
	var nexErr *errors.NexoraError
	require.ErrorAs(t, err, &nexErr)
	return nexErr.Code
}

func TestAuthLoginStatusLogout(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("", "auth", "status")
	assert.Equal(t, errors.ErrCodeNotAuthenticated, codeOf(t, err))

	out, _, err := c.run("correct-horse\n", "auth", "login", "-u", "ana", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as ana (client)")

	out, _, err = c.run("", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "ana@example.com")
	assert.Contains(t, out, c.backend.URL())

	out, _, err = c.run("", "auth", "status", "-o", "json")
	require.NoError(t, err)
	var user map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &user))
	assert.Equal(t, "ana", user["username"])

	_, errOut, err := c.run("", "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Signed out.")

	_, err = os.Stat(filepath.Join(c.dir, "credentials.json"))
	assert.True(t, os.IsNotExist(err), "credentials file should be removed")
}

func TestAuthLoginWrongPassword(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("nope\n", "auth", "login", "-u", "ana", "--password-stdin")
	assert.Equal(t, errors.ErrCodeLoginFailed, codeOf(t, err))
}

func TestAuthLoginEmptyStdin(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("", "auth", "login", "-u", "ana", "--password-stdin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no password on stdin")
}

func TestProjectCommands(t *testing.T) {
	c := newCLI(t)
	c.login("ana", "correct-horse")

	out, _, err := c.run("", "project", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Storefront")

	_, errOut, err := c.run("", "project", "create", "--name", "Checkout", "--type", itoa(c.seed.ProjectType.ID))
	require.NoError(t, err)
	assert.Contains(t, errOut, `"Checkout"`)

	out, _, err = c.run("", "project", "list", "-o", "json", "--search", "check")
	require.NoError(t, err)
	var list []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Checkout", list[0]["name"])

	out, _, err = c.run("", "project", "show", itoa(c.seed.Project.ID))
	require.NoError(t, err)
	assert.Contains(t, out, "Storefront")
	assert.Contains(t, out, "pending")
}

func TestProjectListRejectsUnknownStatus(t *testing.T) {
	c := newCLI(t)
	c.login("ana", "correct-horse")

	_, _, err := c.run("", "project", "list", "--status", "shipped")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}

func TestProjectShowInvalidID(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("", "project", "show", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a positive number")
}

func TestAnswerPlainFlowCompletes(t *testing.T) {
	c := newCLI(t)
	c.login("ana", "correct-horse")
	id := itoa(c.seed.Project.ID)

	out, _, err := c.run("Stripe\n\n   \nabout 500\n", "answer", id)
	require.NoError(t, err)

	assert.Contains(t, out, c.seed.Q1.Text)
	assert.Contains(t, out, c.seed.Q2.Text)
	assert.Contains(t, out, "All questions answered!")
	assert.Contains(t, out, "nexora report show "+id)

	answers := c.backend.Answers(c.seed.Project.ID)
	require.Len(t, answers, 2, "blank lines are not submitted")
	assert.Equal(t, "Stripe", answers[0].Text)
	assert.Equal(t, "about 500", answers[1].Text)
}

func TestAnswerPlainFlowExit(t *testing.T) {
	c := newCLI(t)
	c.login("ana", "correct-horse")
	id := itoa(c.seed.Project.ID)

	out, _, err := c.run(":exit Stripe\n", "answer", id, "-o", "json")
	require.NoError(t, err)

	var summary answerSummary
	require.NoError(t, json.Unmarshal([]byte(out[strings.Index(out, "{"):]), &summary))
	assert.Equal(t, "exited", summary.State)
	assert.Equal(t, 1, summary.Answered)
	require.Len(t, c.backend.Answers(c.seed.Project.ID), 1)

	// A bare :exit stops without submitting.
	out, _, err = c.run(":exit\n", "answer", id)
	require.NoError(t, err)
	assert.Contains(t, out, c.seed.Q2.Text)
	assert.Contains(t, out, "Stopped.")
	assert.Len(t, c.backend.Answers(c.seed.Project.ID), 1)
}

func TestAnswerPlainFlowRetriesAfterFailure(t *testing.T) {
	c := newCLI(t)
	c.login("ana", "correct-horse")
	c.backend.FailNext("POST", "/projects/answer_question/", 503, `{"detail": "Service unavailable"}`)
	id := itoa(c.seed.Project.ID)

	out, _, err := c.run("Stripe\nStripe, PayPal later\nabout 500\n", "answer", id)
	require.NoError(t, err)

	assert.Contains(t, out, "Service unavailable")
	assert.Equal(t, 1, strings.Count(out, c.seed.Q1.Text), "the failed question is not shown twice")
	assert.Contains(t, out, "All questions answered!")

	answers := c.backend.Answers(c.seed.Project.ID)
	require.Len(t, answers, 2)
	assert.Equal(t, c.seed.Q1.ID, answers[0].QuestionID)
	assert.Equal(t, "Stripe, PayPal later", answers[0].Text)
	assert.Equal(t, c.seed.Q2.ID, answers[1].QuestionID)
	assert.Equal(t, 3, c.backend.Count("POST", "/projects/answer_question/"))
}

func TestAnswerRequiresLogin(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("", "answer", itoa(c.seed.Project.ID))
	assert.Equal(t, errors.ErrCodeNotAuthenticated, codeOf(t, err))
}

func TestReportShowRaw(t *testing.T) {
	c := newCLI(t)
	c.backend.AddReport(c.seed.Project.ID, "# Storefront\n\nPayments via **Stripe**.")
	c.login("ana", "correct-horse")

	out, _, err := c.run("", "report", "show", itoa(c.seed.Project.ID), "--raw")
	require.NoError(t, err)
	assert.Equal(t, "# Storefront\n\nPayments via **Stripe**.\n", out)
}

func TestReportExportTracksChanges(t *testing.T) {
	c := newCLI(t)
	c.backend.AddReport(c.seed.Project.ID, "# Storefront\n\nFirst draft.")
	c.login("ana", "correct-horse")

	file := filepath.Join(c.dir, "out", "report.html")
	lock := filepath.Join(c.dir, "reports.lock.json")
	id := itoa(c.seed.Project.ID)

	out, _, err := c.run("", "report", "export", id, "--file", file, "--lock", lock)
	require.NoError(t, err)
	assert.Contains(t, out, "first export")

	page, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<h1")
	assert.Contains(t, string(page), "First draft.")

	out, _, err = c.run("", "report", "export", id, "--file", file, "--lock", lock, "-o", "json")
	require.NoError(t, err)
	var res exportResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.FirstTime)
	assert.False(t, res.Changed)
	assert.Equal(t, report.Digest("# Storefront\n\nFirst draft."), res.Digest)
}

func TestExportReportDetectsChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "report.html")
	lock := filepath.Join(dir, "lock.json")
	project := &projects.Project{ID: 7, Name: "Storefront"}
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	first, err := exportReport(project, &projects.Report{Body: "# Storefront\n\nFirst draft."}, file, lock, now)
	require.NoError(t, err)
	assert.True(t, first.FirstTime)

	second, err := exportReport(project, &projects.Report{Body: "# Storefront\n\nRevised."}, file, lock, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, second.FirstTime)
	assert.True(t, second.Changed)
	assert.NotEqual(t, first.Digest, second.Digest)

	page, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Revised.")
	assert.NotContains(t, string(page), "First draft.")
}

func TestAdminCommandsNeedAdmin(t *testing.T) {
	c := newCLI(t)
	c.login("ana", "correct-horse")

	_, _, err := c.run("", "admin", "users", "list")
	assert.Equal(t, errors.ErrCodeAdminRequired, codeOf(t, err))
}

func TestAdminUsers(t *testing.T) {
	c := newCLI(t)
	c.login("root", "admin-password")

	out, _, err := c.run("", "admin", "users", "list", "--role", "client")
	require.NoError(t, err)
	assert.Contains(t, out, "ana")
	assert.NotContains(t, out, "root")

	out, _, err = c.run("s3cret-pass\n", "admin", "users", "create",
		"--email", "bea@example.com", "--name", "Bea", "--password-stdin", "-o", "json")
	require.NoError(t, err)
	var created map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "bea", created["username"])

	_, _, err = c.run("", "admin", "users", "create", "--email", "x@example.com", "--role", "owner")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")

	_, _, err = c.run("", "admin", "users", "delete", itoa(c.seed.Client.ID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	_, errOut, err := c.run("", "admin", "users", "delete", itoa(c.seed.Client.ID), "--yes")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Deleted user")
}

func TestAdminQuestionsReorder(t *testing.T) {
	c := newCLI(t)
	c.login("root", "admin-password")

	order := itoa(c.seed.Q2.ID) + "," + itoa(c.seed.Q1.ID)
	out, _, err := c.run("", "admin", "questions", "reorder",
		"--project-type", itoa(c.seed.ProjectType.ID), "--order", order)
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, c.seed.Q2.Text), strings.Index(out, c.seed.Q1.Text))

	_, _, err = c.run("", "admin", "questions", "reorder", "--order", order)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--project-type")
}

func TestAdminSettingsAndRegenerate(t *testing.T) {
	c := newCLI(t)
	c.backend.AddReport(c.seed.Project.ID, "# Storefront")
	c.login("root", "admin-password")

	_, _, err := c.run("", "admin", "settings", "set")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to change")

	out, _, err := c.run("", "admin", "settings", "set", "--report-regeneration=false", "-o", "json")
	require.NoError(t, err)
	var settings map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &settings))
	assert.Equal(t, false, settings["report_regeneration_enabled"])

	_, _, err = c.run("", "admin", "reports", "regenerate", itoa(c.seed.Project.ID))
	assert.Equal(t, errors.ErrCodeReportRegenDisable, codeOf(t, err))
}

func TestAdminDashboard(t *testing.T) {
	c := newCLI(t)
	c.login("root", "admin-password")

	out, _, err := c.run("", "admin", "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Users")
	assert.Contains(t, out, "Question templates")
}

func TestAdminBrowseUnknownResource(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("", "admin", "browse", "widgets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resource")
}

func TestConfigShow(t *testing.T) {
	c := newCLI(t)

	out, errOut, err := c.run("", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "api_url")
	assert.Contains(t, out, c.backend.URL())
	assert.Contains(t, errOut, "Config file: none")

	out, _, err = c.run("", "config", "endpoints")
	require.NoError(t, err)
	assert.Contains(t, out, "/auth/login/")
}

func TestDoctor(t *testing.T) {
	c := newCLI(t)
	c.login("ana", "correct-horse")

	out, _, err := c.run("", "doctor", "-o", "json")
	require.NoError(t, err)
	var rep map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "healthy", rep["status"])
}

func TestVersion(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run("", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "nexora "))

	out, _, err = c.run("", "version", "--json")
	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "go_version")
}
