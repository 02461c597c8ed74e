package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"spactl/internal/api"
	"spactl/internal/app"
	"spactl/internal/models"
)

var (
	authEmail     string
	authPassword  string
	authFirstName string
	authLastName  string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your session",
	Long:  "Log in, create an account, log out and inspect the current session",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to your account",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrompter(cmd)

		email, err := valueOrPrompt(p, authEmail, "Email: ")
		if err != nil {
			return err
		}
		password := authPassword
		if password == "" {
			if password, err = p.password("Password: "); err != nil {
				return err
			}
		}

		creds := models.LoginCredentials{Email: email, Password: password}
		if err := creds.Validate(); err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Session.Login(ctx, creds); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			user := a.Session.State().User
			success.Fprintf(cmd.OutOrStdout(), "Successfully logged in as %s\n", user.Email)
			return nil
		})
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a new account",
	Long:  "Register a new account and log in to it",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrompter(cmd)

		email, err := valueOrPrompt(p, authEmail, "Email: ")
		if err != nil {
			return err
		}

		password := authPassword
		if password == "" {
			if password, err = p.password("Password: "); err != nil {
				return err
			}
			confirmPassword, err := p.password("Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirmPassword {
				return fmt.Errorf("passwords do not match")
			}
		}

		creds := models.SignUpCredentials{
			Email:     email,
			Password:  password,
			FirstName: authFirstName,
			LastName:  authLastName,
		}
		if err := creds.Validate(); err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Session.SignUp(ctx, creds); err != nil {
				if apiErr, ok := api.AsAPIError(err); ok {
					for field, msgs := range apiErr.Errors {
						for _, msg := range msgs {
							failure.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", field, msg)
						}
					}
				}
				return fmt.Errorf("sign up failed: %w", err)
			}
			user := a.Session.State().User
			success.Fprintf(cmd.OutOrStdout(), "Account created. Logged in as %s\n", user.Email)
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out",
	Long:  "End the session on the server and remove the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Session.Logout(ctx); err != nil {
				return fmt.Errorf("error during logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Successfully logged out")
			return nil
		})
	},
}

var authStatusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"whoami"},
	Short:   "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			out := cmd.OutOrStdout()
			st := a.Session.State()
			if !st.IsAuthenticated {
				fmt.Fprintln(out, "You are not logged in")
				return nil
			}

			fmt.Fprintf(out, "Logged in as: %s <%s>\n", st.User.DisplayName(), st.User.Email)
			fmt.Fprintf(out, "User ID: %s\n", st.User.ID)
			fmt.Fprintf(out, "Plan: %s\n", a.Store.PlanName())
			fmt.Fprintf(out, "Server: %s\n", a.Config.APIURL)

			info := models.InspectToken(st.Token)
			switch {
			case info.Opaque:
				fmt.Fprintln(out, "Token: opaque")
			case info.ExpiresAt != nil:
				fmt.Fprintf(out, "Token expires: %s\n", info.ExpiresAt.Local().Format(time.RFC1123))
				if info.Expired(time.Now()) {
					warning.Fprintln(out, "The token has expired; the server will ask you to log in again")
				}
			}
			return nil
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-validate the session and reload your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			st := a.Session.RefreshUser(ctx)
			if !st.IsAuthenticated {
				return errNotLoggedIn
			}
			success.Fprintf(cmd.OutOrStdout(), "Session is valid. Logged in as %s\n", st.User.Email)
			return nil
		})
	},
}

func valueOrPrompt(p *prompter, value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	return p.line(label)
}

func init() {
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(signupCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(refreshCmd)

	for _, c := range []*cobra.Command{loginCmd, signupCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "Account email")
		c.Flags().StringVar(&authPassword, "password", "", "Account password (prompted when omitted)")
	}
	signupCmd.Flags().StringVar(&authFirstName, "first-name", "", "First name")
	signupCmd.Flags().StringVar(&authLastName, "last-name", "", "Last name")
}
