package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/felixgeelhaar/nexora/internal/errors"
	"github.com/felixgeelhaar/nexora/internal/health"
	"github.com/felixgeelhaar/nexora/internal/metrics"
	"github.com/felixgeelhaar/nexora/internal/projects"
	"github.com/felixgeelhaar/nexora/internal/report"
	"github.com/felixgeelhaar/nexora/internal/server"
	"github.com/felixgeelhaar/nexora/internal/ux"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Read, export and preview generated requirements reports",
	Long: `A project's report is generated by the backend once its questions are
answered. The first request generates it; later requests return the stored
report.`,
}

var reportShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Render a project's report in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportShow,
}

var reportExportCmd = &cobra.Command{
	Use:   "export <project-id>",
	Short: "Write a project's report to a standalone HTML file",
	Long: `Write the sanitized report as a standalone HTML page. The blake3 digest of
every export is kept in .nexora/reports.lock.json so a repeated export tells
whether the report changed since the last one.`,
	Args: cobra.ExactArgs(1),
	RunE: runReportExport,
}

var reportServeCmd = &cobra.Command{
	Use:   "serve <project-id>",
	Short: "Preview a project's report in the browser",
	Long: `Serve the sanitized report on a local HTTP server until interrupted.

Endpoints:
  /             the report page
  /report.html  the report body only
  /health       preview and backend health as JSON
  /metrics      Prometheus metrics

With --refresh the report is fetched again on that interval.`,
	Args: cobra.ExactArgs(1),
	RunE: runReportServe,
}

var (
	reportRaw     bool
	reportWidth   int
	reportOutFile string
	reportLock    string
	reportAddress string
	reportPort    int
	reportRefresh time.Duration
)

func init() {
	reportShowCmd.Flags().BoolVar(&reportRaw, "raw", false, "print the report body without rendering")
	reportShowCmd.Flags().IntVarP(&reportWidth, "width", "w", 0, "wrap width (default terminal width)")

	reportExportCmd.Flags().StringVarP(&reportOutFile, "file", "f", "", "output file (default report-<id>-<name>.html)")
	reportExportCmd.Flags().StringVar(&reportLock, "lock", "", "export lock file (default .nexora/reports.lock.json)")

	reportServeCmd.Flags().StringVar(&reportAddress, "address", "127.0.0.1", "listen address")
	reportServeCmd.Flags().IntVarP(&reportPort, "port", "p", 8089, "listen port, 0 picks a free one")
	reportServeCmd.Flags().DurationVar(&reportRefresh, "refresh", 0, "fetch the report again on this interval")

	reportCmd.AddCommand(reportShowCmd, reportExportCmd, reportServeCmd)
	rootCmd.AddCommand(reportCmd)
}

// readyReport fetches the project and its report. A report without content
// is an error.
func readyReport(ctx context.Context, cc *CommandContext, id int) (*projects.Project, *projects.Report, error) {
	if _, err := cc.Session.RequireUser(ctx); err != nil {
		return nil, nil, err
	}
	project, err := cc.Projects.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rep, err := cc.Projects.GenerateReport(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !rep.Ready() {
		return nil, nil, errors.NewReportPendingError(id)
	}
	return project, rep, nil
}

func runReportShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "project")
	if err != nil {
		return err
	}
	cc, err := fromCommand(cmd)
	if err != nil {
		return err
	}

	_, rep, err := readyReport(cmd.Context(), cc, id)
	if err != nil {
		return err
	}

	if !cc.Text() {
		return cc.Print(rep)
	}
	if reportRaw {
		return cc.Print(rep.Body)
	}

	out, err := report.RenderTerminal(rep.Body, terminalWidth(reportWidth))
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cc.Out, out)
	return err
}

// terminalWidth is the flag value, else the stdout width, else 80.
func terminalWidth(flag int) int {
	if flag > 0 {
		return flag
	}
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			return w
		}
	}
	return 80
}

// exportResult describes one export.
type exportResult struct {
	ProjectID int    `json:"project_id" yaml:"project_id"`
	Path      string `json:"path" yaml:"path"`
	Digest    string `json:"blake3" yaml:"blake3"`
	Changed   bool   `json:"changed" yaml:"changed"`
	FirstTime bool   `json:"first_export" yaml:"first_export"`
}

func runReportExport(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "project")
	if err != nil {
		return err
	}
	cc, err := fromCommand(cmd)
	if err != nil {
		return err
	}

	project, rep, err := readyReport(cmd.Context(), cc, id)
	if err != nil {
		return err
	}

	res, err := exportReport(project, rep, reportOutFile, reportLock, time.Now())
	if err != nil {
		return err
	}
	cc.Metrics.ReportsExported.Inc()
	cc.Logger.Info("report exported", "project_id", id, "path", res.Path, "changed", res.Changed)

	if !cc.Text() {
		return cc.Print(res)
	}

	styles := ux.DefaultStyles()
	note := "first export"
	switch {
	case !res.FirstTime && res.Changed:
		note = "changed since the last export"
	case !res.FirstTime:
		note = "unchanged since the last export"
	}
	return cc.Print(styles.Success.Render("✓ Exported to "+res.Path) + " " + styles.Muted.Render("("+note+")"))
}

// exportReport writes the report page and records it in the lock.
func exportReport(project *projects.Project, rep *projects.Report, path, lockPath string, now time.Time) (*exportResult, error) {
	defaults := ux.NewPathDefaults()
	if path == "" {
		path = defaults.ExportFile(project.ID, project.Name)
	}
	if lockPath == "" {
		lockPath = defaults.ReportLockFile()
	}

	body, err := report.RenderHTML(rep.Body)
	if err != nil {
		return nil, err
	}
	page, err := report.Page(project.Name, body)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDirectoryFailed, "failed to create export directory", err)
		}
	}
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil { // #nosec G306 -- exported reports are meant to be shared
		return nil, errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write "+path, err)
	}

	lock, err := report.LoadLock(lockPath)
	if err != nil {
		return nil, err
	}
	digest := report.Digest(rep.Body)
	changed, known := lock.Changed(project.ID, digest)
	lock.Record(project.ID, digest, path, now)
	if err := lock.Save(lockPath); err != nil {
		return nil, err
	}

	return &exportResult{ProjectID: project.ID, Path: path, Digest: digest, Changed: changed, FirstTime: !known}, nil
}

func runReportServe(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "project")
	if err != nil {
		return err
	}
	cc, err := fromCommand(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	content, err := previewContent(ctx, cc, id)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(reportAddress, strconv.Itoa(reportPort))
	srv, err := server.New(content, server.Config{Address: addr},
		server.WithLogger(cc.Logger),
		server.WithMetrics(cc.Metrics, metrics.Handler()),
		server.WithChecker(health.NewBackendChecker(cc.Session.Client())),
	)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigInvalid, "failed to listen on "+addr, err).
			WithSuggestion("Pick another port with --port")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	cc.Notice("Previewing report for project %d at http://%s (Ctrl+C to stop)", id, listener.Addr())

	var tick <-chan time.Time
	if reportRefresh > 0 {
		ticker := time.NewTicker(reportRefresh)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case err := <-errCh:
			if stderrors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("preview server failed: %w", err)
		case <-tick:
			next, err := previewContent(ctx, cc, id)
			if err != nil {
				cc.Logger.Warn("report refresh failed", "project_id", id, "error", err)
				continue
			}
			if err := srv.SetContent(next); err != nil {
				cc.Logger.Warn("report refresh failed", "project_id", id, "error", err)
			}
		case <-ctx.Done():
			cc.Notice("Shutting down preview server...")
			if err := srv.Shutdown(context.Background()); err != nil {
				return fmt.Errorf("preview server shutdown: %w", err)
			}
			return nil
		}
	}
}

func previewContent(ctx context.Context, cc *CommandContext, id int) (server.Content, error) {
	project, rep, err := readyReport(ctx, cc, id)
	if err != nil {
		return server.Content{}, err
	}
	body, err := report.RenderHTML(rep.Body)
	if err != nil {
		return server.Content{}, err
	}
	return server.Content{ProjectID: id, Title: project.Name, HTML: body}, nil
}
