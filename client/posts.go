package client

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-blog-server/api"
	"github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/jrsteele09/go-blog-server/posts"
	"golang.org/x/oauth2"
)

const routePosts = "/rest/v1/posts"

// PostsClient reads and writes the posts table as the signed-in user.
// Every call fails with ErrNotAuthenticated when there is no session.
type PostsClient struct {
	client *Client
}

// Select returns the posts matching filter, ordered by id.
func (pc *PostsClient) Select(ctx context.Context, filter posts.Filter) ([]posts.Post, error) {
	return pc.send(ctx, http.MethodGet, filter, nil)
}

// Insert creates rows and returns them as stored, with backend assigned ids.
func (pc *PostsClient) Insert(ctx context.Context, rows ...api.NewPost) ([]posts.Post, error) {
	if len(rows) == 0 {
		return nil, errors.ErrInvalidPost
	}
	var body any = rows
	if len(rows) == 1 {
		body = rows[0]
	}
	return pc.send(ctx, http.MethodPost, posts.Filter{}, body)
}

// Update sets title and content on the rows matching filter and returns them.
func (pc *PostsClient) Update(ctx context.Context, filter posts.Filter, changes api.PostChanges) ([]posts.Post, error) {
	return pc.send(ctx, http.MethodPatch, filter, changes)
}

// Delete removes the rows matching filter and returns them.
func (pc *PostsClient) Delete(ctx context.Context, filter posts.Filter) ([]posts.Post, error) {
	return pc.send(ctx, http.MethodDelete, filter, nil)
}

func (pc *PostsClient) send(ctx context.Context, method string, filter posts.Filter, body any) ([]posts.Post, error) {
	session, err := pc.client.Auth.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errors.ErrNotAuthenticated
	}

	rows := []posts.Post{}
	endpoint := pc.client.endpoint(routePosts, filter.Encode())
	if err := pc.client.do(ctx, pc.client.authorizedHTTPClient(ctx), method, endpoint, body, &rows, nil); err != nil {
		return nil, err
	}
	return rows, nil
}

// authorizedHTTPClient wraps the configured HTTP client in an oauth2.Transport
// that adds the session's bearer token, refreshing it first when needed.
func (c *Client) authorizedHTTPClient(ctx context.Context) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	authorized := oauth2.NewClient(ctx, c.Auth.TokenSource(ctx))
	authorized.Timeout = c.httpClient.Timeout
	return authorized
}
