package cli

import (
	"fmt"

	"github.com/ashureev/wooagent/internal/format"
	"github.com/ashureev/wooagent/internal/wizard"
	"github.com/spf13/cobra"
)

func (a *app) newLoginCmd() *cobra.Command {
	var email string
	var passwordStdin bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the console",
		Long: `Log in with email and password. The password is read without echo.

Examples:
  wooctl login --email dev@example.com
  echo "$PASSWORD" | wooctl login --email dev@example.com --password-stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := wizard.NewLogin()
			p := a.prompter(cmd)
			if email == "" {
				v, err := p.ask("Email", "")
				if err != nil {
					return err
				}
				email = v
			}
			w.Set("email", email)

			var password string
			var err error
			if passwordStdin {
				password, err = p.line()
			} else {
				password, err = p.askSecret("Password")
			}
			if err != nil {
				return err
			}
			w.Set("password", password)

			return w.Submit(func(v wizard.Values) error {
				u, err := a.session.Login(cmd.Context(), wizard.LoginCredentials(v))
				if err != nil {
					return fmt.Errorf("login: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", u.Name, u.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return public(cmd)
}

func (a *app) newLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.session.IsAuthenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			if err := a.session.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
	return public(cmd)
}

func (a *app) newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			u := a.session.User()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", titleStyle.Render(u.Name), u.Email)
			fmt.Fprintf(out, "ID:     %s\n", u.ID)
			fmt.Fprintf(out, "Role:   %s\n", u.Role)
			fmt.Fprintf(out, "Member: %s\n", format.Date(u.CreatedAt))
			return nil
		},
	}
}
