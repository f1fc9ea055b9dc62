package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nexora/internal/admin"
	"github.com/felixgeelhaar/nexora/internal/api"
	"github.com/felixgeelhaar/nexora/internal/config"
	"github.com/felixgeelhaar/nexora/internal/contract"
	"github.com/felixgeelhaar/nexora/internal/log"
	"github.com/felixgeelhaar/nexora/internal/metrics"
	"github.com/felixgeelhaar/nexora/internal/projects"
	"github.com/felixgeelhaar/nexora/internal/session"
	"github.com/felixgeelhaar/nexora/internal/tui"
	"github.com/felixgeelhaar/nexora/internal/ux"
	"github.com/felixgeelhaar/nexora/internal/version"
)

// CommandContext holds the resolved configuration and the services built
// from it. Commands get theirs with fromCommand.
type CommandContext struct {
	Config   *config.Config
	Logger   *log.Logger
	Metrics  *metrics.Metrics
	Session  *session.Store
	Projects *projects.Service
	Admin    *admin.Service

	Out io.Writer
	Err io.Writer
	In  io.Reader
}

// NewCommandContext loads configuration for cmd and builds the API client
// and services. It makes no network calls.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: configFile,
		EnvFile:    envFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return nil, err
	}

	logCfg := cfg.LoggerConfig()
	logCfg.Output = log.NewOutput(cmd.ErrOrStderr())
	logCfg.ServiceVersion = version.GetInfo().Version
	logger := log.New(logCfg)

	m := metrics.GetDefault()
	opts := []api.Option{
		api.WithLogger(logger),
		api.WithMetrics(m),
		api.WithTimeout(cfg.Timeout),
	}
	if cfg.Contract.Validate {
		v, err := contract.New()
		if err != nil {
			return nil, fmt.Errorf("failed to load API contract: %w", err)
		}
		opts = append(opts, api.WithValidator(v))
	}

	store := session.NewStore(api.New(cfg.APIURL, opts...), session.NewFile(cfg.CredentialsFile), logger)
	client := store.Client()

	return &CommandContext{
		Config:   cfg,
		Logger:   logger,
		Metrics:  m,
		Session:  store,
		Projects: projects.NewService(client, projects.WithMetrics(m), projects.WithLogger(logger)),
		Admin:    admin.NewService(client, logger),
		Out:      cmd.OutOrStdout(),
		Err:      cmd.ErrOrStderr(),
		In:       cmd.InOrStdin(),
	}, nil
}

type commandContextKey struct{}

func withCommandContext(ctx context.Context, cc *CommandContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, commandContextKey{}, cc)
}

// fromCommand returns the context built by the root pre-run hook.
func fromCommand(cmd *cobra.Command) (*CommandContext, error) {
	if cc, ok := cmd.Context().Value(commandContextKey{}).(*CommandContext); ok {
		return cc, nil
	}
	return NewCommandContext(cmd)
}

// Print writes data in the configured output format.
func (cc *CommandContext) Print(data any) error {
	f, err := ux.NewFormatter(cc.Config.Output, &ux.FormatterOptions{Writer: cc.Out})
	if err != nil {
		return err
	}
	return f.Format(data)
}

// Text reports whether output is meant for people rather than programs.
func (cc *CommandContext) Text() bool {
	return cc.Config.Output == "text" || cc.Config.Output == ""
}

// Notice writes a status line to stderr so stdout stays parseable.
func (cc *CommandContext) Notice(format string, args ...any) {
	fmt.Fprintf(cc.Err, format+"\n", args...)
}

// Prompter asks on the command's streams. Plain line input is used when
// stdin is not a terminal.
func (cc *CommandContext) Prompter() *tui.Prompter {
	return &tui.Prompter{In: cc.In, Out: cc.Err, Accessible: !tui.IsInteractive()}
}
