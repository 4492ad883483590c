// Package client is a Go SDK for the blog server. It signs users in, keeps
// their session fresh and persisted, and reads and writes posts as that user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-blog-server/api"
	"github.com/jrsteele09/go-blog-server/internal/errors"
)

const (
	defaultTimeout             = 30 * time.Second
	defaultRefreshMargin       = 30 * time.Second
	defaultAutoRefreshInterval = 10 * time.Second
	jwksPath                   = "/.well-known/jwks.json"
)

// Client bundles the auth and posts clients of one server.
type Client struct {
	baseURL             *url.URL
	httpClient          *http.Client
	storage             SessionStorage
	now                 func() time.Time
	refreshMargin       time.Duration // Refresh this long before the access token expires
	autoRefreshInterval time.Duration
	verifyTokens        bool

	Auth  *AuthClient
	Posts *PostsClient
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithStorage sets where the session is persisted between runs. Defaults to memory.
func WithStorage(storage SessionStorage) Option {
	return func(c *Client) {
		c.storage = storage
	}
}

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithRefreshMargin sets how long before expiry an access token is treated as expired.
func WithRefreshMargin(margin time.Duration) Option {
	return func(c *Client) {
		c.refreshMargin = margin
	}
}

// WithAutoRefreshInterval sets how often StartAutoRefresh checks the session.
func WithAutoRefreshInterval(interval time.Duration) Option {
	return func(c *Client) {
		c.autoRefreshInterval = interval
	}
}

// WithoutTokenVerification disables checking access token signatures against the server JWKS.
func WithoutTokenVerification() Option {
	return func(c *Client) {
		c.verifyTokens = false
	}
}

// New creates a client for the server at baseURL (e.g., "http://localhost:8080").
func New(baseURL string, options ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("[client.New] invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[client.New] base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:             u,
		httpClient:          &http.Client{Timeout: defaultTimeout},
		storage:             NewMemoryStorage(),
		now:                 time.Now,
		refreshMargin:       defaultRefreshMargin,
		autoRefreshInterval: defaultAutoRefreshInterval,
		verifyTokens:        true,
	}
	for _, opt := range options {
		opt(c)
	}

	c.Auth = newAuthClient(c)
	c.Posts = &PostsClient{client: c}
	return c, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path += path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends body as JSON and decodes a 2xx JSON response into out when out is not nil.
// Non-2xx responses become *Error with kind as the sentinel it unwraps to.
func (c *Client) do(ctx context.Context, httpClient *http.Client, method, endpoint string, body, out any, kinds errorKinds) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp, kinds)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// Error is a non-2xx response from the server.
type Error struct {
	StatusCode  int
	Code        string
	Description string
	kind        error
}

func (e *Error) Error() string {
	if e.Description != "" {
		return e.Description
	}
	if e.Code != "" {
		return e.Code
	}
	return http.StatusText(e.StatusCode)
}

// Unwrap exposes the matching internal/errors sentinel so callers can use errors.Is.
func (e *Error) Unwrap() error {
	return e.kind
}

// errorKinds maps API error codes to sentinels for one call site.
type errorKinds map[string]error

var defaultErrorKinds = errorKinds{
	"user_already_exists": errors.ErrUserExists,
	"weak_password":       errors.ErrWeakPassword,
	"validation_failed":   errors.ErrInvalidEmail,
	"no_authorization":    errors.ErrNotAuthenticated,
	"bad_jwt":             errors.ErrNotAuthenticated,
	"forbidden":           errors.ErrForbidden,
}

func (k errorKinds) with(code string, kind error) errorKinds {
	merged := make(errorKinds, len(k)+1)
	for c, e := range k {
		merged[c] = e
	}
	merged[code] = kind
	return merged
}

func newError(resp *http.Response, kinds errorKinds) error {
	apiErr := &Error{StatusCode: resp.StatusCode}

	var body api.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &body) == nil {
		apiErr.Code = body.Code
		apiErr.Description = body.Description
	}
	if kinds == nil {
		kinds = defaultErrorKinds
	}
	if kind, ok := kinds[apiErr.Code]; ok {
		apiErr.kind = kind
	} else if resp.StatusCode == http.StatusUnauthorized {
		apiErr.kind = errors.ErrNotAuthenticated
	}
	return apiErr
}
