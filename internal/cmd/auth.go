package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nexora/internal/errors"
	"github.com/felixgeelhaar/nexora/internal/session"
	"github.com/felixgeelhaar/nexora/internal/tui"
	"github.com/felixgeelhaar/nexora/internal/ux"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in, sign up and inspect the current session",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the auth token",
	Long: `Sign in with a username and password. The token is stored in the
credentials file and sent on every later request.

Missing values are prompted for. Use --password-stdin in scripts:

  echo "$PASSWORD" | nexora auth login --username ana --password-stdin`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

var authSignupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	Args:  cobra.NoArgs,
	RunE:  runAuthSignup,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the token and remove stored credentials",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

var (
	authUsername      string
	authName          string
	authEmail         string
	authPasswordStdin bool
)

func init() {
	authLoginCmd.Flags().StringVarP(&authUsername, "username", "u", "", "username or email")
	authLoginCmd.Flags().BoolVar(&authPasswordStdin, "password-stdin", false, "read the password from stdin")

	authSignupCmd.Flags().StringVarP(&authUsername, "username", "u", "", "username")
	authSignupCmd.Flags().StringVar(&authName, "name", "", "full name")
	authSignupCmd.Flags().StringVar(&authEmail, "email", "", "email address")
	authSignupCmd.Flags().BoolVar(&authPasswordStdin, "password-stdin", false, "read the password from stdin")

	authCmd.AddCommand(authLoginCmd, authSignupCmd, authLogoutCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	cc, err := fromCommand(cmd)
	if err != nil {
		return err
	}

	p := cc.Prompter()
	username := authUsername
	if username == "" {
		if username, err = p.String(tui.Prompt{Message: "Username", Required: true}); err != nil {
			return err
		}
	}
	password, err := readPassword(cc, p, authPasswordStdin)
	if err != nil {
		return err
	}

	user, err := cc.Session.Login(cmd.Context(), username, password)
	if err != nil {
		return err
	}
	cc.Logger.Info("signed in", "username", user.Username, "role", user.Role)
	return printSignedIn(cc, user)
}

func runAuthSignup(cmd *cobra.Command, args []string) error {
	cc, err := fromCommand(cmd)
	if err != nil {
		return err
	}

	p := cc.Prompter()
	req := session.SignupRequest{Name: authName, Username: authUsername, Email: authEmail}
	if req.Name == "" {
		if req.Name, err = p.String(tui.Prompt{Message: "Full name", Required: true}); err != nil {
			return err
		}
	}
	if req.Email == "" {
		if req.Email, err = p.String(tui.Prompt{Message: "Email", Required: true}); err != nil {
			return err
		}
	}
	if req.Password, err = readPassword(cc, p, authPasswordStdin); err != nil {
		return err
	}

	user, err := cc.Session.Signup(cmd.Context(), req)
	if err != nil {
		return err
	}
	return printSignedIn(cc, user)
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	cc, err := fromCommand(cmd)
	if err != nil {
		return err
	}
	if err := cc.Session.Logout(cmd.Context()); err != nil {
		return err
	}
	cc.Notice("Signed out.")
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	cc, err := fromCommand(cmd)
	if err != nil {
		return err
	}

	user, err := cc.Session.Check(cmd.Context())
	if err != nil {
		return err
	}
	if user == nil {
		return errors.NewNotAuthenticatedError()
	}

	if !cc.Text() {
		return cc.Print(user)
	}
	return cc.Print(userFields(user, cc.Session.Credentials().Path(), cc.Config.APIURL))
}

func printSignedIn(cc *CommandContext, user *session.User) error {
	if !cc.Text() {
		return cc.Print(user)
	}
	styles := ux.DefaultStyles()
	return cc.Print(styles.Success.Render(fmt.Sprintf("✓ Signed in as %s (%s)", user.DisplayName(), user.Role)))
}

func userFields(u *session.User, credentials, apiURL string) ux.Fields {
	fields := ux.Fields{
		{Label: "Username", Value: u.Username},
		{Label: "Name", Value: u.DisplayName()},
		{Label: "Email", Value: u.Email},
		{Label: "Role", Value: u.Role},
	}
	if u.DateJoined != nil {
		fields = append(fields, ux.Field{Label: "Joined", Value: u.DateJoined.Format(time.DateOnly)})
	}
	if apiURL != "" {
		fields = append(fields, ux.Field{Label: "Backend", Value: apiURL})
	}
	if credentials != "" {
		fields = append(fields, ux.Field{Label: "Credentials", Value: credentials})
	}
	return fields
}

// readPassword takes the first line of stdin when fromStdin is set and
// prompts otherwise.
func readPassword(cc *CommandContext, p *tui.Prompter, fromStdin bool) (string, error) {
	if !fromStdin {
		return p.String(tui.Prompt{Message: "Password", Required: true, Secret: true})
	}

	line, err := bufio.NewReader(cc.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("no password on stdin")
	}
	return password, nil
}
