package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nexora/internal/config"
	"github.com/felixgeelhaar/nexora/internal/metrics"
	"github.com/felixgeelhaar/nexora/internal/telemetry"
	"github.com/felixgeelhaar/nexora/internal/ux"
)

// skipSetup marks commands that run without loading configuration.
const skipSetup = "nexora/skip-setup"

var rootCmd = &cobra.Command{
	Use:   "nexora",
	Short: "Requirements interviews for client projects",
	Long: `nexora talks to the Nexora backend. Clients answer a project's question
sequence, fixed templates first and AI follow-ups after, and read the
generated requirements report. Admins manage users, project types,
question templates, reports and backend settings.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// cleanup releases what setup acquired; it is reset on every run.
var cleanup = func() {}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default ~/.nexora/config.yaml)")
	flags.String("env-file", ".env", "dotenv file loaded before resolving NEXORA_* variables")
	flags.String("api-url", config.DefaultAPIURL, "backend API base URL")
	flags.String("credentials-file", "", "where the auth token is stored (default ~/.nexora/credentials.json)")
	flags.Duration("timeout", 30*time.Second, "per-request timeout")
	flags.StringP("output", "o", "text", "output format: text, json or yaml")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")
	flags.Bool("validate-contract", false, "validate requests against the embedded API contract before sending")
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, records the command in
// metrics and a trace span, and releases observability resources.
func ExecuteContext(ctx context.Context) error {
	ctx, span := telemetry.StartCommandSpan(ctx, "nexora")
	defer span.End()

	start := time.Now()
	executed, err := rootCmd.ExecuteContextC(ctx)
	cleanup()
	cleanup = func() {}

	name := "nexora"
	if executed != nil {
		name = executed.CommandPath()
	}
	metrics.GetDefault().ObserveCommand(name, err, time.Since(start))
	if err != nil {
		telemetry.RecordError(span, err)
		return ux.EnhanceError(err)
	}
	telemetry.RecordSuccess(span)
	return nil
}

// setup loads configuration and wires the services for the command.
func setup(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipSetup] == "true" {
		return nil
	}

	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	// cobra only hands the root context to subcommands without one, so a
	// context left from an earlier run would stick.
	ctx := cmd.Root().Context()
	cleanup = setupObservability(ctx, cc)
	cmd.SetContext(withCommandContext(ctx, cc))
	return nil
}
