package cli

import (
	"fmt"

	"github.com/ashureev/wooagent/internal/domain"
	"github.com/ashureev/wooagent/internal/wizard"
	"github.com/spf13/cobra"
)

func (a *app) newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage your account",
	}
	cmd.AddCommand(a.newAccountUpdateCmd())
	cmd.AddCommand(a.newAccountPasswordCmd())
	return cmd
}

func (a *app) newAccountUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change your name, email or password",
		RunE: func(cmd *cobra.Command, args []string) error {
			u := a.session.User()
			w := wizard.NewAccount(u)
			setChanged(cmd, w, map[string]string{"name": "name", "email": "email"})
			if err := a.fill(cmd, w); err != nil {
				return err
			}
			return w.Submit(func(v wizard.Values) error {
				patch, change := wizard.AccountChanges(v, u)
				out := cmd.OutOrStdout()
				if patch.Name == nil && patch.Email == nil && change == nil {
					fmt.Fprintln(out, "Nothing to change.")
					return nil
				}
				if patch.Name != nil || patch.Email != nil {
					updated, err := a.client.UpdateUser(cmd.Context(), patch)
					if err != nil {
						return fmt.Errorf("update account: %w", err)
					}
					fmt.Fprintf(out, "Saved: %s <%s>\n", updated.Name, updated.Email)
				}
				if change != nil {
					if err := a.client.ChangePassword(cmd.Context(), *change); err != nil {
						return fmt.Errorf("change password: %w", err)
					}
					fmt.Fprintln(out, "Password changed.")
				}
				return nil
			})
		},
	}
	cmd.Flags().String("name", "", "username")
	cmd.Flags().String("email", "", "email address")
	return cmd
}

func (a *app) newAccountPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := wizard.NewAccount(a.session.User())
			p := a.prompter(cmd)
			for _, f := range []struct{ field, label string }{
				{"currentPassword", "Current password"},
				{"newPassword", "New password"},
				{"confirmPassword", "Confirm password"},
			} {
				v, err := p.askSecret(f.label)
				if err != nil {
					return err
				}
				w.Set(f.field, v)
			}
			if w.Value("newPassword") == "" {
				return &domain.ValidationError{Fields: map[string]string{"newPassword": "new password is required"}}
			}
			return w.Submit(func(v wizard.Values) error {
				_, change := wizard.AccountChanges(v, a.session.User())
				if err := a.client.ChangePassword(cmd.Context(), *change); err != nil {
					return fmt.Errorf("change password: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Password changed.")
				return nil
			})
		},
	}
}
