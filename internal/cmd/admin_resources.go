package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nexora/internal/admin"
	"github.com/felixgeelhaar/nexora/internal/projects"
	"github.com/felixgeelhaar/nexora/internal/session"
)

var (
	enabledFilter = filterFlag{name: "enabled", param: "enabled", usage: "only enabled (true) or disabled (false) entries", boolean: true}
	searchFilter  = filterFlag{name: "search", param: "search", usage: "free-text search"}
)

func adminUsersCmd() *cobra.Command {
	rc := resourceCommands[session.User]{
		name:     "users",
		singular: "user",
		resource: func(s *admin.Service) *admin.Resource[session.User] { return s.Users },
		table:    admin.UsersTable,
		filters: []filterFlag{
			searchFilter,
			enabledFilter,
			{name: "role", param: "role", usage: "admin or client"},
		},
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := adminContext(cmd)
			if err != nil {
				return err
			}
			body := admin.UserCreate{}
			body.Username, _ = cmd.Flags().GetString("username")
			body.Name, _ = cmd.Flags().GetString("name")
			body.Email, _ = cmd.Flags().GetString("email")
			body.Role, _ = cmd.Flags().GetString("role")
			if body.Username == "" {
				body.Username, _, _ = strings.Cut(body.Email, "@")
			}
			if err := validRole(body.Role); err != nil {
				return err
			}
			fromStdin, _ := cmd.Flags().GetBool("password-stdin")
			if body.Password, err = readPassword(cc, cc.Prompter(), fromStdin); err != nil {
				return err
			}

			user, err := cc.Admin.Users.Create(cmd.Context(), body)
			if err != nil {
				return err
			}
			return printItem(cc, user)
		},
	}
	create.Flags().String("username", "", "username (default the email's local part)")
	create.Flags().String("name", "", "full name")
	create.Flags().String("email", "", "email address")
	create.Flags().String("role", session.RoleClient, "admin or client")
	create.Flags().Bool("password-stdin", false, "read the password from stdin")
	_ = create.MarkFlagRequired("email")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			cc, err := adminContext(cmd)
			if err != nil {
				return err
			}
			body := admin.UserUpdate{
				Username: optionalString(cmd, "username"),
				Name:     optionalString(cmd, "name"),
				Email:    optionalString(cmd, "email"),
				Role:     optionalString(cmd, "role"),
				Enabled:  optionalBool(cmd, "enabled"),
			}
			if body.Role != nil {
				if err := validRole(*body.Role); err != nil {
					return err
				}
			}
			if fromStdin, _ := cmd.Flags().GetBool("password-stdin"); fromStdin {
				password, err := readPassword(cc, cc.Prompter(), true)
				if err != nil {
					return err
				}
				body.Password = &password
			}

			user, err := cc.Admin.Users.Update(cmd.Context(), id, body)
			if err != nil {
				return err
			}
			return printItem(cc, user)
		},
	}
	update.Flags().String("username", "", "new username")
	update.Flags().String("name", "", "new full name")
	update.Flags().String("email", "", "new email address")
	update.Flags().String("role", "", "admin or client")
	update.Flags().Bool("enabled", true, "enable or disable the account")
	update.Flags().Bool("password-stdin", false, "read a new password from stdin")

	return resourceGroup("users", "Manage user accounts",
		rc.list(), rc.show(), create, update, rc.remove(), rc.toggle())
}

func validRole(role string) error {
	if role != session.RoleAdmin && role != session.RoleClient {
		return fmt.Errorf("unknown role %q (want admin or client)", role)
	}
	return nil
}

func adminProjectTypesCmd() *cobra.Command {
	rc := resourceCommands[admin.ProjectType]{
		name:     "project types",
		singular: "project type",
		resource: func(s *admin.Service) *admin.Resource[admin.ProjectType] { return s.ProjectTypes },
		table:    admin.ProjectTypesTable,
		filters:  []filterFlag{enabledFilter},
	}

	write := func(cmd *cobra.Command) admin.ProjectTypeWrite {
		return admin.ProjectTypeWrite{
			Name:        optionalString(cmd, "name"),
			Description: optionalString(cmd, "description"),
			Icon:        optionalString(cmd, "icon"),
			Enabled:     optionalBool(cmd, "enabled"),
		}
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a project type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := adminContext(cmd)
			if err != nil {
				return err
			}
			pt, err := cc.Admin.ProjectTypes.Create(cmd.Context(), write(cmd))
			if err != nil {
				return err
			}
			return printItem(cc, pt)
		},
	}
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a project type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project type")
			if err != nil {
				return err
			}
			cc, err := adminContext(cmd)
			if err != nil {
				return err
			}
			pt, err := cc.Admin.ProjectTypes.Update(cmd.Context(), id, write(cmd))
			if err != nil {
				return err
			}
			return printItem(cc, pt)
		},
	}
	for _, c := range []*cobra.Command{create, update} {
		c.Flags().String("name", "", "name")
		c.Flags().String("description", "", "description")
		c.Flags().String("icon", "", "icon name")
		c.Flags().Bool("enabled", true, "offer the type for new projects")
	}
	_ = create.MarkFlagRequired("name")

	return resourceGroup("project-types", "Manage project types",
		rc.list(), rc.show(), create, update, rc.remove(), rc.toggle())
}

func adminProjectsCmd() *cobra.Command {
	rc := resourceCommands[admin.Project]{
		name:     "projects",
		singular: "project",
		resource: func(s *admin.Service) *admin.Resource[admin.Project] { return s.Projects },
		table:    admin.ProjectsTable,
		filters: []filterFlag{
			searchFilter,
			{name: "status", param: "status", usage: "one of " + strings.Join(projects.Statuses, ", ")},
			{name: "project-type", param: "project_type", usage: "project type ID"},
			{name: "has-report", param: "has_report", usage: "only projects with (true) or without (false) a report", boolean: true},
		},
	}

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			body := admin.ProjectUpdate{
				Name:          optionalString(cmd, "name"),
				Description:   optionalString(cmd, "description"),
				Status:        optionalString(cmd, "status"),
				Enabled:       optionalBool(cmd, "enabled"),
				UserID:        optionalInt(cmd, "user"),
				ProjectTypeID: optionalInt(cmd, "project-type"),
			}
			if body.Status != nil && !projects.ValidStatus(*body.Status) {
				return fmt.Errorf("unknown status %q (want one of %s)", *body.Status, strings.Join(projects.Statuses, ", "))
			}

			cc, err := adminContext(cmd)
			if err != nil {
				return err
			}
			p, err := cc.Admin.Projects.Update(cmd.Context(), id, body)
			if err != nil {
				return err
			}
			return printItem(cc, p)
		},
	}
	update.Flags().String("name", "", "new name")
	update.Flags().String("description", "", "new description")
	update.Flags().String("status", "", "one of "+strings.Join(projects.Statuses, ", "))
	update.Flags().Bool("enabled", true, "enable or disable the project")
	update.Flags().Int("user", 0, "reassign to this user ID")
	update.Flags().Int("project-type", 0, "change the project type ID")

	return resourceGroup("projects", "Manage client projects",
		rc.list(), rc.show(), update, rc.remove())
}

func adminQuestionsCmd() *cobra.Command {
	rc := resourceCommands[admin.Question]{
		name:     "questions",
		singular: "question",
		resource: func(s *admin.Service) *admin.Resource[admin.Question] { return s.Questions },
		table:    admin.QuestionsTable,
		filters: []filterFlag{
			enabledFilter,
			{name: "project-type", param: "project_type", usage: "project type ID"},
		},
	}

	write := func(cmd *cobra.Command) admin.QuestionWrite {
		return admin.QuestionWrite{
			Text:          optionalString(cmd, "text"),
			Description:   optionalString(cmd, "description"),
			ProjectTypeID: optionalInt(cmd, "project-type"),
			QuestionType:  optionalString(cmd, "type"),
			QuestionNo:    optionalInt(cmd, "position"),
			Enabled:       optionalBool(cmd, "enabled"),
		}
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Add a question template to a project type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := adminContext(cmd)
			if err != nil {
				return err
			}
			q, err := cc.Admin.Questions.Create(cmd.Context(), write(cmd))
			if err != nil {
				return err
			}
			return printItem(cc, q)
		},
	}
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a question template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "question")
			if err != nil {
				return err
			}
			cc, err := adminContext(cmd)
			if err != nil {
				return err
			}
			q, err := cc.Admin.Questions.Update(cmd.Context(), id, write(cmd))
			if err != nil {
				return err
			}
			return printItem(cc, q)
		},
	}
	for _, c := range []*cobra.Command{create, update} {
		c.Flags().String("text", "", "question text")
		c.Flags().String("description", "", "help text shown under the question")
		c.Flags().Int("project-type", 0, "project type ID")
		c.Flags().String("type", "text", "answer type")
		c.Flags().Int("position", 0, "position in the sequence, starting at 1")
		c.Flags().Bool("enabled", true, "ask the question in new flows")
	}
	_ = create.MarkFlagRequired("text")
	_ = create.MarkFlagRequired("project-type")

	reorder := &cobra.Command{
		Use:   "reorder",
		Short: "Set the question order of a project type",
		Long: `Set the order of a project type's question templates. --order lists
question IDs first to last.

Example:
  nexora admin questions reorder --project-type 3 --order 5,4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			typeID, _ := cmd.Flags().GetInt("project-type")
			if typeID <= 0 {
				return fmt.Errorf("--project-type is required")
			}
			list, _ := cmd.Flags().GetString("order")
			order, err := parseIDs(list, "question")
			if err != nil {
				return err
			}

			cc, err := adminContext(cmd)
			if err != nil {
				return err
			}
			questions, err := cc.Admin.Reorder(cmd.Context(), typeID, order)
			if err != nil {
				return err
			}
			if !cc.Text() {
				return cc.Print(questions)
			}
			return cc.Print(tableOf(admin.QuestionsTable(questions)))
		},
	}
	reorder.Flags().Int("project-type", 0, "project type ID")
	reorder.Flags().String("order", "", "comma separated question IDs, first to last")
	_ = reorder.MarkFlagRequired("order")

	return resourceGroup("questions", "Manage question templates",
		rc.list(), rc.show(), create, update, rc.remove(), rc.toggle(), reorder)
}

func adminAIQuestionsCmd() *cobra.Command {
	rc := resourceCommands[admin.AIQuestion]{
		name:     "AI questions",
		singular: "AI question",
		resource: func(s *admin.Service) *admin.Resource[admin.AIQuestion] { return s.AIQuestions },
		table:    admin.AIQuestionsTable,
		filters: []filterFlag{
			{name: "project", param: "project", usage: "project ID"},
			{name: "answered", param: "answered", usage: "only answered (true) or unanswered (false) questions", boolean: true},
		},
	}
	return resourceGroup("ai-questions", "Monitor generated follow-up questions", rc.list())
}

func adminReportsCmd() *cobra.Command {
	rc := resourceCommands[admin.Report]{
		name:     "reports",
		singular: "report",
		resource: func(s *admin.Service) *admin.Resource[admin.Report] { return s.Reports },
		table:    admin.ReportsTable,
		filters:  []filterFlag{searchFilter},
	}

	regenerate := &cobra.Command{
		Use:   "regenerate <project-id>",
		Short: "Discard a project's report and generate it again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			cc, err := adminContext(cmd)
			if err != nil {
				return err
			}
			rep, err := cc.Admin.Regenerate(cmd.Context(), id)
			if err != nil {
				return err
			}
			cc.Logger.Info("report regenerated", "project_id", id, "report_id", rep.ID)
			return printItem(cc, rep)
		},
	}

	return resourceGroup("reports", "Manage generated reports",
		rc.list(), rc.show(), rc.remove(), regenerate)
}

func adminSettingsCmd() *cobra.Command {
	show := &cobra.Command{
		Use:   "show",
		Short: "Show feature flags and branding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := adminContext(cmd)
			if err != nil {
				return err
			}
			s, err := cc.Admin.Settings(cmd.Context())
			if err != nil {
				return err
			}
			return printItem(cc, s)
		},
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Change feature flags and branding",
		Long: `Change settings. Only the flags given are sent.

Example:
  nexora admin settings set --report-regeneration=true --primary-color "#4f46e5"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			update := admin.SettingsUpdate{
				AIQuestionsEnabled:        optionalBool(cmd, "ai-questions"),
				VoiceInputEnabled:         optionalBool(cmd, "voice-input"),
				ReportRegenerationEnabled: optionalBool(cmd, "report-regeneration"),
				PrimaryColor:              optionalString(cmd, "primary-color"),
				AccentColor:               optionalString(cmd, "accent-color"),
			}
			if update.Empty() {
				return fmt.Errorf("nothing to change; see 'nexora admin settings set --help'")
			}

			cc, err := adminContext(cmd)
			if err != nil {
				return err
			}
			s, err := cc.Admin.UpdateSettings(cmd.Context(), update)
			if err != nil {
				return err
			}
			return printItem(cc, s)
		},
	}
	set.Flags().Bool("ai-questions", true, "generate AI follow-up questions")
	set.Flags().Bool("voice-input", true, "offer voice input")
	set.Flags().Bool("report-regeneration", true, "allow report regeneration")
	set.Flags().String("primary-color", "", "primary brand color, e.g. #4f46e5")
	set.Flags().String("accent-color", "", "accent brand color")

	return resourceGroup("settings", "Backend feature flags and branding", show, set)
}
