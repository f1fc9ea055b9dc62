package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nexora/internal/projects"
	"github.com/felixgeelhaar/nexora/internal/tui"
	"github.com/felixgeelhaar/nexora/internal/ux"
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"projects"},
	Short:   "List, create and inspect your projects",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your projects",
	Args:  cobra.NoArgs,
	RunE:  runProjectList,
}

var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project",
	Long: `Create a project of a project type. Without --type the available types
are offered for selection.

Examples:
  nexora project create --name Storefront --type 3
  nexora project create --name Storefront --description "Online shop"`,
	Args: cobra.NoArgs,
	RunE: runProjectCreate,
}

var projectShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show a project and whether questions remain",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

var projectTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the project types you can create",
	Args:  cobra.NoArgs,
	RunE:  runProjectTypes,
}

var (
	projectSearch      string
	projectStatus      string
	projectTypeFilter  int
	projectName        string
	projectDescription string
	projectTypeID      int
)

func init() {
	projectListCmd.Flags().StringVarP(&projectSearch, "search", "s", "", "filter by name or description")
	projectListCmd.Flags().StringVar(&projectStatus, "status", "", "filter by status: "+strings.Join(projects.Statuses, ", "))
	projectListCmd.Flags().IntVar(&projectTypeFilter, "type", 0, "filter by project type ID")
	projectListCmd.Flags().Bool("enabled", false, "filter by enabled state")

	projectCreateCmd.Flags().StringVarP(&projectName, "name", "n", "", "project name")
	projectCreateCmd.Flags().StringVarP(&projectDescription, "description", "d", "", "project description")
	projectCreateCmd.Flags().IntVarP(&projectTypeID, "type", "t", 0, "project type ID (see 'nexora project types')")

	projectCmd.AddCommand(projectListCmd, projectCreateCmd, projectShowCmd, projectTypesCmd)
	rootCmd.AddCommand(projectCmd)
}

func runProjectList(cmd *cobra.Command, args []string) error {
	cc, err := fromCommand(cmd)
	if err != nil {
		return err
	}
	if projectStatus != "" && !projects.ValidStatus(projectStatus) {
		return fmt.Errorf("unknown status %q (want one of %s)", projectStatus, strings.Join(projects.Statuses, ", "))
	}
	if _, err := cc.Session.RequireUser(cmd.Context()); err != nil {
		return err
	}

	list, err := cc.Projects.List(cmd.Context(), projects.ListOptions{
		Query:         projectSearch,
		Status:        projectStatus,
		ProjectTypeID: projectTypeFilter,
		Enabled:       optionalBool(cmd, "enabled"),
	})
	if err != nil {
		return err
	}

	if !cc.Text() {
		return cc.Print(list)
	}
	return cc.Print(projectsTable(list))
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	cc, err := fromCommand(cmd)
	if err != nil {
		return err
	}
	if _, err := cc.Session.RequireUser(cmd.Context()); err != nil {
		return err
	}

	p := cc.Prompter()
	req := projects.CreateRequest{Name: projectName, Description: projectDescription, ProjectTypeID: projectTypeID}
	if strings.TrimSpace(req.Name) == "" {
		if req.Name, err = p.String(tui.Prompt{Message: "Project name", Required: true}); err != nil {
			return err
		}
	}
	if req.ProjectTypeID == 0 {
		if req.ProjectTypeID, err = selectProjectType(cmd, cc, p); err != nil {
			return err
		}
	}

	project, err := cc.Projects.Create(cmd.Context(), req)
	if err != nil {
		return err
	}
	cc.Logger.Info("project created", "project_id", project.ID, "project_type", project.ProjectTypeID)

	if !cc.Text() {
		return cc.Print(project)
	}
	styles := ux.DefaultStyles()
	cc.Notice("%s", styles.Success.Render(fmt.Sprintf("✓ Created project %d %q", project.ID, project.Name)))
	cc.Notice("Answer its questions with 'nexora answer %d'", project.ID)
	return nil
}

func selectProjectType(cmd *cobra.Command, cc *CommandContext, p *tui.Prompter) (int, error) {
	types, err := cc.Projects.Types(cmd.Context())
	if err != nil {
		return 0, err
	}
	if len(types) == 0 {
		return 0, fmt.Errorf("no project types are available; ask an admin to create one")
	}

	choices := make([]tui.Choice[int], len(types))
	for i, t := range types {
		label := t.Name
		if t.Description != "" {
			label += " - " + truncate(t.Description, 50)
		}
		choices[i] = tui.Choice[int]{Label: label, Value: t.ID}
	}
	return tui.Select(p, "Project type", choices)
}

// projectDetail is the show output for json and yaml.
type projectDetail struct {
	projects.Project `yaml:",inline"`
	HasMoreQuestions  bool `json:"has_more_questions" yaml:"has_more_questions"`
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "project")
	if err != nil {
		return err
	}
	cc, err := fromCommand(cmd)
	if err != nil {
		return err
	}
	if _, err := cc.Session.RequireUser(cmd.Context()); err != nil {
		return err
	}

	project, err := cc.Projects.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	more, err := cc.Projects.HasMoreQuestions(cmd.Context(), id)
	if err != nil {
		return err
	}

	if !cc.Text() {
		return cc.Print(projectDetail{Project: *project, HasMoreQuestions: more})
	}

	styles := ux.DefaultStyles()
	questions := "all answered, run 'nexora report show " + strconv.Itoa(id) + "'"
	if more {
		questions = "pending, run 'nexora answer " + strconv.Itoa(id) + "'"
	}
	return cc.Print(ux.Fields{
		{Label: "ID", Value: strconv.Itoa(project.ID)},
		{Label: "Name", Value: project.Name},
		{Label: "Description", Value: project.Description},
		{Label: "Status", Value: styles.Badge(project.Status, project.Status)},
		{Label: "Project type", Value: strconv.Itoa(project.ProjectTypeID)},
		{Label: "Created", Value: project.CreatedAt.Format(time.DateOnly)},
		{Label: "Questions", Value: questions},
	})
}

func runProjectTypes(cmd *cobra.Command, args []string) error {
	cc, err := fromCommand(cmd)
	if err != nil {
		return err
	}
	if _, err := cc.Session.RequireUser(cmd.Context()); err != nil {
		return err
	}

	types, err := cc.Projects.Types(cmd.Context())
	if err != nil {
		return err
	}
	if !cc.Text() {
		return cc.Print(types)
	}

	t := ux.Table{Columns: []string{"ID", "NAME", "DESCRIPTION"}}
	for _, pt := range types {
		t.Rows = append(t.Rows, []string{strconv.Itoa(pt.ID), pt.Name, truncate(pt.Description, 60)})
	}
	return cc.Print(t)
}

func projectsTable(list []projects.Project) ux.Table {
	t := ux.Table{Columns: []string{"ID", "NAME", "STATUS", "TYPE", "CREATED"}}
	for _, p := range list {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(p.ID),
			truncate(p.Name, 40),
			p.Status,
			strconv.Itoa(p.ProjectTypeID),
			p.CreatedAt.Format(time.DateOnly),
		})
	}
	return t
}
