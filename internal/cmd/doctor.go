package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nexora/internal/health"
	"github.com/felixgeelhaar/nexora/internal/ux"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the backend connection and stored credentials",
	Long: `Run diagnostics:

  backend      the API answers and the stored token is accepted
  credentials  the credentials file is readable and private`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

var doctorTimeout time.Duration

func init() {
	doctorCmd.Flags().DurationVar(&doctorTimeout, "check-timeout", 5*time.Second, "timeout of each check")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cc, err := fromCommand(cmd)
	if err != nil {
		return err
	}

	manager := health.NewManager().WithTimeout(doctorTimeout)
	manager.AddChecker(health.NewBackendChecker(cc.Session.Client()))
	manager.AddChecker(health.NewCredentialsChecker(cc.Session.Credentials()))

	report := manager.Run(cmd.Context())
	cc.Logger.Debug("diagnostics finished", "status", report.Status, "checks", manager.Count())

	if !cc.Text() {
		if err := cc.Print(report); err != nil {
			return err
		}
	} else if err := cc.Print(doctorTable(report)); err != nil {
		return err
	}

	if report.Status == health.StatusUnhealthy {
		return fmt.Errorf("diagnostics failed")
	}
	return nil
}

func doctorTable(report health.Report) ux.Table {
	styles := ux.DefaultStyles()
	t := ux.Table{Columns: []string{"CHECK", "STATUS", "MESSAGE", "SUGGESTION"}}
	for _, name := range report.Names() {
		r := report.Checks[name]
		status := r.Status.String()
		switch r.Status {
		case health.StatusHealthy:
			status = styles.Success.Render("✓ " + status)
		case health.StatusDegraded:
			status = styles.Warning.Render("! " + status)
		default:
			status = styles.Error.Render("✗ " + status)
		}
		t.Rows = append(t.Rows, []string{name, status, r.Message, r.Suggestion})
	}
	return t
}
