package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jrsteele09/go-blog-server/client"
	"github.com/jrsteele09/go-blog-server/dashboard"
	"github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/jrsteele09/go-blog-server/provider"
	"github.com/spf13/cobra"
)

// app is the client side stack for one command run
type app struct {
	out       io.Writer
	client    *client.Client
	provider  *provider.Provider
	navigator *navigator
	manager   *dashboard.Manager
}

// newApp restores the stored session. The post manager is only started by withPosts.
func newApp(cmd *cobra.Command, opts *options) (*app, error) {
	c, err := client.New(opts.serverURL, client.WithStorage(client.NewFileStorage(opts.sessionFile)))
	if err != nil {
		return nil, err
	}

	a := &app{
		out:       cmd.OutOrStdout(),
		client:    c,
		provider:  provider.New(c.Auth),
		navigator: &navigator{},
	}
	if err := a.provider.Init(cmd.Context()); err != nil {
		a.provider.Close()
		return nil, err
	}
	return a, nil
}

// withPosts starts the post manager, loading the signed-in user's posts.
func (a *app) withPosts(ctx context.Context) error {
	a.manager = dashboard.New(a.provider, a.client.Posts, &notifier{out: a.out}, a.navigator)
	if err := a.manager.Start(ctx); err != nil {
		return err
	}
	if a.manager.State() == dashboard.StateUnauthenticated {
		return errNotLoggedIn
	}
	return nil
}

func (a *app) close() {
	if a.manager != nil {
		a.manager.Close()
	}
	a.provider.Close()
}

var errNotLoggedIn = errors.New("not logged in, run 'blog login' first")

// notifier prints success toasts
type notifier struct {
	out io.Writer
}

func (n *notifier) Success(message string) {
	fmt.Fprintf(n.out, "✔ %s\n", message)
}

// navigator remembers where the post manager wanted to go
type navigator struct {
	lock sync.Mutex
	path string
}

func (n *navigator) Navigate(path string) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.path = path
}

func (n *navigator) last() string {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.path
}
