package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nexora/internal/admin"
	"github.com/felixgeelhaar/nexora/internal/tui"
	"github.com/felixgeelhaar/nexora/internal/ux"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage users, project types, questions, reports and settings",
	Long: `Admin commands need an account with the admin role.

Resources:
  users          accounts and roles
  project-types  project categories and their question templates
  projects       every client project
  questions      question templates
  ai-questions   generated follow-up questions
  reports        generated requirements reports`,
}

var adminDashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show platform statistics",
	Args:  cobra.NoArgs,
	RunE:  runAdminDashboard,
}

var adminBrowseCmd = &cobra.Command{
	Use:       "browse <resource>",
	Short:     "Browse a resource with live search",
	Long:      "Open a full-screen table of a resource. Typing narrows it with a debounced search.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: admin.Resources,
	RunE:      runAdminBrowse,
}

func init() {
	adminCmd.AddCommand(adminDashboardCmd, adminBrowseCmd)
	adminCmd.AddCommand(
		adminUsersCmd(),
		adminProjectTypesCmd(),
		adminProjectsCmd(),
		adminQuestionsCmd(),
		adminAIQuestionsCmd(),
		adminReportsCmd(),
		adminSettingsCmd(),
	)
	rootCmd.AddCommand(adminCmd)
}

// adminContext is fromCommand for a signed-in admin.
func adminContext(cmd *cobra.Command) (*CommandContext, error) {
	cc, err := fromCommand(cmd)
	if err != nil {
		return nil, err
	}
	if _, err := cc.Session.RequireAdmin(cmd.Context()); err != nil {
		return nil, err
	}
	return cc, nil
}

func runAdminDashboard(cmd *cobra.Command, args []string) error {
	cc, err := adminContext(cmd)
	if err != nil {
		return err
	}

	stats := cc.Admin.Dashboard(cmd.Context())
	if !cc.Text() {
		return cc.Print(stats)
	}
	if stats.Unavailable {
		styles := ux.DefaultStyles()
		cc.Notice("%s", styles.Warning.Render("Statistics are unavailable right now; showing zeros."))
	}

	n := strconv.Itoa
	return cc.Print(ux.Fields{
		{Label: "Users", Value: fmt.Sprintf("%d (+%d this week)", stats.TotalUsers, stats.NewUsersThisWeek)},
		{Label: "Projects", Value: fmt.Sprintf("%d (+%d this week, %d active)", stats.TotalProjects, stats.NewProjectsThisWeek, stats.ActiveProjects)},
		{Label: "Reports", Value: fmt.Sprintf("%d (+%d this week)", stats.TotalReports, stats.ReportsThisWeek)},
		{Label: "AI questions", Value: n(stats.TotalAIQuestions)},
		{Label: "Project types", Value: n(stats.ProjectTypesCount)},
		{Label: "Question templates", Value: n(stats.QuestionsCount)},
	})
}

func runAdminBrowse(cmd *cobra.Command, args []string) error {
	resource := args[0]
	known := false
	for _, r := range admin.Resources {
		known = known || r == resource
	}
	if !known {
		return fmt.Errorf("unknown resource %q (want one of %s)", resource, strings.Join(admin.Resources, ", "))
	}

	cc, err := adminContext(cmd)
	if err != nil {
		return err
	}
	return tui.RunBrowser(cmd.Context(), cc.Admin, resource, cc.Config.Search.Debounce, cc.Metrics)
}

// filterFlag maps a list flag onto a query parameter.
type filterFlag struct {
	name    string
	param   string
	usage   string
	boolean bool
}

func addFilterFlags(cmd *cobra.Command, filters []filterFlag) {
	for _, f := range filters {
		if f.boolean {
			cmd.Flags().Bool(f.name, false, f.usage)
		} else {
			cmd.Flags().String(f.name, "", f.usage)
		}
	}
}

// filterFrom collects the filters that were set on the command line.
func filterFrom(cmd *cobra.Command, filters []filterFlag) admin.Filter {
	out := admin.Filter{}
	for _, f := range filters {
		if fl := cmd.Flags().Lookup(f.name); fl != nil && fl.Changed {
			out[f.param] = fl.Value.String()
		}
	}
	return out
}

// resourceCommands builds the generic subcommands of one admin resource.
type resourceCommands[T any] struct {
	name     string
	singular string
	resource func(*admin.Service) *admin.Resource[T]
	table    func([]T) admin.Table
	filters  []filterFlag
}

func (rc resourceCommands[T]) list() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List " + rc.name,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := adminContext(cmd)
			if err != nil {
				return err
			}
			page, err := rc.resource(cc.Admin).List(cmd.Context(), filterFrom(cmd, rc.filters))
			if err != nil {
				return err
			}
			if !cc.Text() {
				return cc.Print(page)
			}
			return cc.Print(tableOf(rc.table(page.Results)))
		},
	}
	addFilterFlags(cmd, rc.filters)
	return cmd
}

func (rc resourceCommands[T]) show() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one " + rc.singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], rc.singular)
			if err != nil {
				return err
			}
			cc, err := adminContext(cmd)
			if err != nil {
				return err
			}
			item, err := rc.resource(cc.Admin).Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printItem(cc, item)
		},
	}
}

func (rc resourceCommands[T]) remove() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete one " + rc.singular,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], rc.singular)
			if err != nil {
				return err
			}
			cc, err := adminContext(cmd)
			if err != nil {
				return err
			}
			yes, _ := cmd.Flags().GetBool("yes")
			if err := confirm(cc, yes, fmt.Sprintf("Delete %s %d?", rc.singular, id)); err != nil {
				return err
			}
			if err := rc.resource(cc.Admin).Delete(cmd.Context(), id); err != nil {
				return err
			}
			cc.Logger.Info("deleted", "resource", rc.name, "id", id)
			cc.Notice("Deleted %s %d.", rc.singular, id)
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation")
	return cmd
}

func (rc resourceCommands[T]) toggle() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Enable or disable one " + rc.singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], rc.singular)
			if err != nil {
				return err
			}
			cc, err := adminContext(cmd)
			if err != nil {
				return err
			}
			item, err := rc.resource(cc.Admin).Toggle(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printItem(cc, item)
		},
	}
}

func tableOf(t admin.Table) ux.Table {
	return ux.Table{Columns: t.Columns, Rows: t.Rows}
}

// resourceGroup is the parent command of one resource.
func resourceGroup(name, short string, subs ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{Use: name, Short: short}
	cmd.AddCommand(subs...)
	return cmd
}

// printItem writes one record. Text output uses YAML, which reads well for
// nested records.
func printItem(cc *CommandContext, item any) error {
	if !cc.Text() {
		return cc.Print(item)
	}
	f, err := ux.NewFormatter("yaml", &ux.FormatterOptions{Writer: cc.Out})
	if err != nil {
		return err
	}
	return f.Format(item)
}

// confirm asks before a destructive change unless yes is set. Without a
// terminal the change is refused.
func confirm(cc *CommandContext, yes bool, question string) error {
	if yes {
		return nil
	}
	if !tui.ShouldPrompt() {
		return fmt.Errorf("refusing to continue without confirmation; pass --yes")
	}
	ok, err := cc.Prompter().Confirm(question, false)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("cancelled")
	}
	return nil
}
