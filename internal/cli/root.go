// Package cli is the blog command line client. It drives the session provider
// and the post manager against a running blog server.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jrsteele09/go-blog-server/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	serverURLEnvVar  = "BLOG_SERVER_URL"
	passwordEnvVar   = "BLOG_PASSWORD"
	defaultServerURL = "http://localhost:8080"
)

// options are the global flags shared by every command
type options struct {
	serverURL   string
	sessionFile string
	verbose     bool
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "blog",
		Short: "Write and manage your blog posts from the terminal",
		Long: `blog signs you in to a blog server and manages your posts.

Your session is kept in a file so later commands stay signed in until you log out.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr(), opts.verbose)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.serverURL, "server", config.GetEnv(serverURLEnvVar, defaultServerURL),
		"blog server URL (env "+serverURLEnvVar+")")
	rootCmd.PersistentFlags().StringVar(&opts.sessionFile, "session-file", defaultSessionFile(),
		"file the session is stored in")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newSignupCommand(opts),
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newWhoamiCommand(opts),
		newPostsCommand(opts),
	)
	return rootCmd
}

// ExecuteContext runs the command tree with ctx.
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".blog-session.json"
	}
	return filepath.Join(home, ".blog", "session.json")
}

func setupLogging(out io.Writer, verbose bool) {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}
