package cli

import (
	"fmt"

	"github.com/jrsteele09/go-blog-server/dashboard"
	"github.com/jrsteele09/go-blog-server/internal/config"
	"github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/spf13/cobra"
)

type credentials struct {
	email    string
	password string
}

func (c *credentials) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.email, "email", "", "account email")
	cmd.Flags().StringVar(&c.password, "password", "", "account password (env "+passwordEnvVar+")")
	_ = cmd.MarkFlagRequired("email")
}

func (c *credentials) resolve() (email, password string, err error) {
	password = c.password
	if password == "" {
		password = config.GetEnv(passwordEnvVar, "")
	}
	if password == "" {
		return "", "", fmt.Errorf("--password or %s is required", passwordEnvVar)
	}
	return c.email, password, nil
}

func newSignupCommand(opts *options) *cobra.Command {
	creds := &credentials{}
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long: `Create an account on the blog server. Log in afterwards with 'blog login'.

Examples:
  blog signup --email me@example.com --password secret1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := creds.resolve()
			if err != nil {
				return err
			}
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			result := a.provider.SignUp(cmd.Context(), email, password)
			if !result.OK() {
				return errors.New(result.Message)
			}
			fmt.Fprintf(a.out, "Account created for %s. Run 'blog login' to sign in.\n", result.Value.Email)
			return nil
		},
	}
	creds.addFlags(cmd)
	return cmd
}

func newLoginCommand(opts *options) *cobra.Command {
	creds := &credentials{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with email and password. The session is stored in --session-file.

Examples:
  blog login --email me@example.com --password secret1
  BLOG_PASSWORD=secret1 blog login --email me@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := creds.resolve()
			if err != nil {
				return err
			}
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			result := a.provider.SignIn(cmd.Context(), email, password)
			if !result.OK() {
				return errors.New(result.Message)
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", result.Value.User.Email)
			return nil
		},
	}
	creds.addFlags(cmd)
	return cmd
}

func newLogoutCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			manager := dashboard.New(a.provider, a.client.Posts, &notifier{out: a.out}, a.navigator)
			manager.SignOut(cmd.Context())
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func newWhoamiCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()

			if _, err := a.provider.RequireSession(); err != nil {
				return errNotLoggedIn
			}
			user, err := a.client.Auth.GetUser(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Email:   %s\n", user.Email)
			fmt.Fprintf(a.out, "User ID: %s\n", user.ID)
			if user.LastSignInAt != nil {
				fmt.Fprintf(a.out, "Last sign in: %s\n", user.LastSignInAt.Local().Format("2 Jan 2006 15:04"))
			}
			return nil
		},
	}
}
