package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPostsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List, add, edit and delete your posts",
	}
	cmd.AddCommand(
		newPostsListCommand(opts),
		newPostsAddCommand(opts),
		newPostsEditCommand(opts),
		newPostsDeleteCommand(opts),
	)
	return cmd
}

func newPostsListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your posts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.withPosts(cmd.Context()); err != nil {
				return err
			}

			list := a.manager.Posts()
			if len(list) == 0 {
				fmt.Fprintln(a.out, "No posts yet. Add one with 'blog posts add'.")
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tCREATED")
			for _, p := range list {
				fmt.Fprintf(w, "%d\t%s\t%s\n", p.ID, p.Title, p.CreatedAt.Local().Format("2 Jan 2006"))
			}
			return w.Flush()
		},
	}
}

type postFields struct {
	title   string
	content string
}

func (pf *postFields) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&pf.title, "title", "", "post title")
	cmd.Flags().StringVar(&pf.content, "content", "", "post content")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("content")
}

func newPostsAddCommand(opts *options) *cobra.Command {
	fields := &postFields{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a post",
		Long: `Add a post owned by the signed-in account.

Examples:
  blog posts add --title "Hello" --content "My first post"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.withPosts(cmd.Context()); err != nil {
				return err
			}

			a.manager.OpenCreate()
			post, err := a.manager.Create(cmd.Context(), fields.title, fields.content)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Post %d created\n", post.ID)
			return nil
		},
	}
	fields.addFlags(cmd)
	return cmd
}

func newPostsEditCommand(opts *options) *cobra.Command {
	fields := &postFields{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title and content of a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.withPosts(cmd.Context()); err != nil {
				return err
			}

			if err := a.manager.OpenEdit(id); err != nil {
				return fmt.Errorf("post %d not found", id)
			}
			return a.manager.Submit(cmd.Context(), fields.title, fields.content)
		},
	}
	fields.addFlags(cmd)
	return cmd
}

func newPostsDeleteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a post",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.withPosts(cmd.Context()); err != nil {
				return err
			}

			before := len(a.manager.Posts())
			if err := a.manager.Delete(cmd.Context(), id); err != nil {
				return err
			}
			if len(a.manager.Posts()) == before {
				return fmt.Errorf("post %d not found", id)
			}
			return nil
		},
	}
}

func parsePostID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid post id %q", arg)
	}
	return id, nil
}
