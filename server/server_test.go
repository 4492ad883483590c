package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-blog-server/api"
	"github.com/jrsteele09/go-blog-server/auth"
	"github.com/jrsteele09/go-blog-server/internal/config"
	"github.com/jrsteele09/go-blog-server/posts"
	fakepostrepo "github.com/jrsteele09/go-blog-server/posts/repofake"
	"github.com/jrsteele09/go-blog-server/server"
	fakesessionrepo "github.com/jrsteele09/go-blog-server/sessions/repofake"
	"github.com/jrsteele09/go-blog-server/token"
	"github.com/jrsteele09/go-blog-server/token/keys"
	fakeuserrepo "github.com/jrsteele09/go-blog-server/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	aliceEmail = "alice@example.com"
	bobEmail   = "bob@example.com"
	password   = "secret1"
)

// testFixture holds a running server over in-memory repositories
type testFixture struct {
	ctx         context.Context
	httpServer  *httptest.Server
	server      *server.Server
	authService *auth.AuthService
	sessionRepo *fakesessionrepo.FakeSessionRepo
	now         time.Time
	mu          sync.Mutex
}

func (f *testFixture) nowFunc() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *testFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("CONFIG_FILE", "")

	f := &testFixture{
		ctx:         context.Background(),
		sessionRepo: fakesessionrepo.NewFakeSessionRepo(),
		now:         time.Now(),
	}

	kp, err := keys.GenerateRSAKeyPair("test-key", 2048)
	require.NoError(t, err)
	tokens := token.New(keys.NewKeyPairSigner(kp),
		token.WithIssuer("http://blog.test"),
		token.WithAccessTokenExpiry(time.Hour),
		token.WithNowFunc(f.nowFunc),
	)

	f.authService, err = auth.NewAuthService(
		auth.Repos{Users: fakeuserrepo.NewFakeUserRepo(), Sessions: f.sessionRepo},
		tokens,
		auth.WithNowTime(f.nowFunc),
		auth.WithMaxSessionAge(24*time.Hour),
	)
	require.NoError(t, err)

	f.server, err = server.New(config.New(), f.authService, posts.NewService(fakepostrepo.NewFakePostRepo()))
	require.NoError(t, err)

	f.httpServer = httptest.NewServer(f.server)
	t.Cleanup(f.httpServer.Close)
	return f
}

func (f *testFixture) url(path string) string {
	return f.httpServer.URL + path
}

// do sends a JSON API request and decodes a JSON response into out when out is not nil
func (f *testFixture) do(t *testing.T, method, path, accessToken string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.url(path), reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *testFixture) signUpAndIn(t *testing.T, email string) *api.Session {
	t.Helper()
	creds := api.Credentials{Email: email, Password: password}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, server.RouteAuthSignup, "", creds, nil))

	var session api.Session
	status := f.do(t, http.MethodPost, server.RouteAuthToken+"?grant_type=password", "", creds, &session)
	require.Equal(t, http.StatusOK, status)
	return &session
}

func TestAPI_SignUpSignInAndGetUser(t *testing.T) {
	f := setupTestFixture(t)
	session := f.signUpAndIn(t, aliceEmail)

	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.RefreshToken)
	require.Equal(t, "bearer", session.TokenType)
	require.Equal(t, 3600, session.ExpiresIn)
	require.Equal(t, aliceEmail, session.User.Email)

	var user api.User
	status := f.do(t, http.MethodGet, server.RouteAuthUser, session.AccessToken, nil, &user)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, session.User.ID, user.ID)
	require.NotNil(t, user.LastSignInAt)
}

func TestAPI_SignUpDuplicate(t *testing.T) {
	f := setupTestFixture(t)
	f.signUpAndIn(t, aliceEmail)

	var apiErr api.ErrorResponse
	status := f.do(t, http.MethodPost, server.RouteAuthSignup, "", api.Credentials{Email: aliceEmail, Password: password}, &apiErr)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Equal(t, "user_already_exists", apiErr.Code)
	require.Equal(t, "User already registered", apiErr.Description)
}

func TestAPI_InvalidCredentials(t *testing.T) {
	f := setupTestFixture(t)
	f.signUpAndIn(t, aliceEmail)

	var apiErr api.ErrorResponse
	status := f.do(t, http.MethodPost, server.RouteAuthToken+"?grant_type=password", "",
		api.Credentials{Email: aliceEmail, Password: "wrong-password"}, &apiErr)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid_grant", apiErr.Code)
	require.Equal(t, "Invalid login credentials", apiErr.Description)
}

func TestAPI_UnsupportedGrant(t *testing.T) {
	f := setupTestFixture(t)

	var apiErr api.ErrorResponse
	status := f.do(t, http.MethodPost, server.RouteAuthToken+"?grant_type=magic", "", struct{}{}, &apiErr)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "unsupported_grant_type", apiErr.Code)
}

func TestAPI_RefreshRotatesToken(t *testing.T) {
	f := setupTestFixture(t)
	session := f.signUpAndIn(t, aliceEmail)

	var refreshed api.Session
	status := f.do(t, http.MethodPost, server.RouteAuthToken+"?grant_type=refresh_token", "",
		api.RefreshRequest{RefreshToken: session.RefreshToken}, &refreshed)
	require.Equal(t, http.StatusOK, status)
	require.NotEqual(t, session.RefreshToken, refreshed.RefreshToken)

	var apiErr api.ErrorResponse
	status = f.do(t, http.MethodPost, server.RouteAuthToken+"?grant_type=refresh_token", "",
		api.RefreshRequest{RefreshToken: session.RefreshToken}, &apiErr)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid_grant", apiErr.Code)
}

func TestAPI_LogoutEndsSession(t *testing.T) {
	f := setupTestFixture(t)
	session := f.signUpAndIn(t, aliceEmail)

	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, server.RouteAuthLogout, session.AccessToken, nil, nil))
	require.Equal(t, 0, f.sessionRepo.Len())

	// Logging out twice succeeds
	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, server.RouteAuthLogout, session.AccessToken, nil, nil))

	var apiErr api.ErrorResponse
	status := f.do(t, http.MethodGet, server.RouteAuthUser, session.AccessToken, nil, &apiErr)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestAPI_MissingBearer(t *testing.T) {
	f := setupTestFixture(t)

	var apiErr api.ErrorResponse
	status := f.do(t, http.MethodGet, server.RouteRestPosts, "", nil, &apiErr)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "no_authorization", apiErr.Code)
}

func TestAPI_JWKS(t *testing.T) {
	f := setupTestFixture(t)

	var jwks keys.JWKS
	status := f.do(t, http.MethodGet, server.RouteWellKnownJWKS, "", nil, &jwks)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "test-key", jwks.Keys[0].Kid)
}

func TestAPI_PostsCRUD(t *testing.T) {
	f := setupTestFixture(t)
	alice := f.signUpAndIn(t, aliceEmail)

	var created []posts.Post
	status := f.do(t, http.MethodPost, server.RouteRestPosts, alice.AccessToken,
		api.NewPost{Title: "Hello", Content: "World", UserID: alice.User.ID}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, created, 1)
	require.NotZero(t, created[0].ID)
	require.Equal(t, alice.User.ID, created[0].UserID)

	idFilter := posts.Filter{ID: &created[0].ID, UserID: &alice.User.ID}
	query := "?" + idFilter.Encode().Encode()

	var updated []posts.Post
	status = f.do(t, http.MethodPatch, server.RouteRestPosts+query, alice.AccessToken,
		api.PostChanges{Title: "Hello again", Content: "World"}, &updated)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, updated, 1)
	require.Equal(t, "Hello again", updated[0].Title)
	require.Equal(t, created[0].CreatedAt.Unix(), updated[0].CreatedAt.Unix())

	var deleted []posts.Post
	status = f.do(t, http.MethodDelete, server.RouteRestPosts+query, alice.AccessToken, nil, &deleted)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, deleted, 1)

	var remaining []posts.Post
	status = f.do(t, http.MethodGet, server.RouteRestPosts+"?user_id=eq."+alice.User.ID, alice.AccessToken, nil, &remaining)
	require.Equal(t, http.StatusOK, status)
	require.Empty(t, remaining)
}

func TestAPI_PostsInsertArray(t *testing.T) {
	f := setupTestFixture(t)
	alice := f.signUpAndIn(t, aliceEmail)

	var created []posts.Post
	status := f.do(t, http.MethodPost, server.RouteRestPosts, alice.AccessToken, []api.NewPost{
		{Title: "One", Content: "1"},
		{Title: "Two", Content: "2"},
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, created, 2)
	require.Less(t, created[0].ID, created[1].ID)
}

func TestAPI_PostsRowLevelSecurity(t *testing.T) {
	f := setupTestFixture(t)
	alice := f.signUpAndIn(t, aliceEmail)
	bob := f.signUpAndIn(t, bobEmail)

	var created []posts.Post
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, server.RouteRestPosts, alice.AccessToken,
		api.NewPost{Title: "Private", Content: "Alice only"}, &created))
	postID := created[0].ID

	t.Run("other user sees nothing", func(t *testing.T) {
		var rows []posts.Post
		status := f.do(t, http.MethodGet, server.RouteRestPosts+"?user_id=eq."+alice.User.ID, bob.AccessToken, nil, &rows)
		require.Equal(t, http.StatusOK, status)
		require.Empty(t, rows)

		status = f.do(t, http.MethodGet, server.RouteRestPosts, bob.AccessToken, nil, &rows)
		require.Equal(t, http.StatusOK, status)
		require.Empty(t, rows)
	})

	t.Run("forged delete affects nothing", func(t *testing.T) {
		filter := posts.Filter{ID: &postID, UserID: &alice.User.ID}
		var rows []posts.Post
		status := f.do(t, http.MethodDelete, server.RouteRestPosts+"?"+filter.Encode().Encode(), bob.AccessToken, nil, &rows)
		require.Equal(t, http.StatusOK, status)
		require.Empty(t, rows)
	})

	t.Run("insert for another user is forbidden", func(t *testing.T) {
		var apiErr api.ErrorResponse
		status := f.do(t, http.MethodPost, server.RouteRestPosts, bob.AccessToken,
			api.NewPost{Title: "Forged", Content: "x", UserID: alice.User.ID}, &apiErr)
		require.Equal(t, http.StatusForbidden, status)
		require.Equal(t, "forbidden", apiErr.Code)
	})

	t.Run("delete without id filter is rejected", func(t *testing.T) {
		var apiErr api.ErrorResponse
		status := f.do(t, http.MethodDelete, server.RouteRestPosts+"?user_id=eq."+bob.User.ID, bob.AccessToken, nil, &apiErr)
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "invalid_request", apiErr.Code)
	})

	var rows []posts.Post
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, server.RouteRestPosts, alice.AccessToken, nil, &rows))
	require.Len(t, rows, 1)
	require.Equal(t, "Private", rows[0].Title)
}

func TestAPI_InvalidFilter(t *testing.T) {
	f := setupTestFixture(t)
	alice := f.signUpAndIn(t, aliceEmail)

	var apiErr api.ErrorResponse
	status := f.do(t, http.MethodGet, server.RouteRestPosts+"?title=like.foo", alice.AccessToken, nil, &apiErr)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid_request", apiErr.Code)
}

// browser returns a client that keeps cookies and follows redirects like a browser
func (f *testFixture) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func postForm(t *testing.T, client *http.Client, target string, form url.Values) (int, string) {
	t.Helper()
	resp, err := client.PostForm(target, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func get(t *testing.T, client *http.Client, target string) (int, string) {
	t.Helper()
	resp, err := client.Get(target)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestPages_DashboardRequiresSession(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, server.RouteDashboard, nil)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, server.RouteLogin, rec.Header().Get("Location"))
}

func TestPages_LoginFailureShowsInlineError(t *testing.T) {
	f := setupTestFixture(t)
	client := f.browser(t)

	status, body := postForm(t, client, f.url(server.RouteLogin), url.Values{
		"email":    {aliceEmail},
		"password": {"nope-nope"},
	})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, 1, strings.Count(body, `role="alert"`))
	require.Contains(t, body, "Invalid login credentials")
	require.Contains(t, body, aliceEmail)
}

func TestPages_SignUpLoginAndManagePosts(t *testing.T) {
	f := setupTestFixture(t)
	client := f.browser(t)
	credentials := url.Values{"email": {aliceEmail}, "password": {password}}

	status, body := postForm(t, client, f.url(server.RouteSignup), credentials)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "Account created, please sign in")

	status, body = postForm(t, client, f.url(server.RouteLogin), credentials)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "No posts yet.")
	require.Contains(t, body, aliceEmail)

	status, body = postForm(t, client, f.url(server.RouteDashboardPosts), url.Values{
		"title":   {"First post"},
		"content": {"Hello"},
	})
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "Blog added successfully")
	require.Contains(t, body, "First post")

	status, body = postForm(t, client, f.url("/pages/dashboard/posts/1"), url.Values{
		"title":   {"Edited post"},
		"content": {"Hello again"},
	})
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "Blog updated successfully")
	require.Contains(t, body, "Edited post")

	status, body = get(t, client, f.url(server.RouteDashboard+"?edit=1"))
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, `action="/pages/dashboard/posts/1"`)

	// Unknown id: nothing changes and no toast is shown
	status, body = postForm(t, client, f.url("/pages/dashboard/posts/99/delete"), nil)
	require.Equal(t, http.StatusOK, status)
	require.NotContains(t, body, "Blog Deleted Successfully")
	require.Contains(t, body, "Edited post")

	status, body = postForm(t, client, f.url("/pages/dashboard/posts/1/delete"), nil)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "Blog Deleted Successfully")
	require.Contains(t, body, "No posts yet.")

	status, _ = postForm(t, client, f.url(server.RouteLogout), nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 0, f.sessionRepo.Len())

	resp, err := client.Get(f.url(server.RouteDashboard))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, server.RouteLogin, resp.Request.URL.Path)
}

func TestPages_CreateWithoutTitleShowsError(t *testing.T) {
	f := setupTestFixture(t)
	client := f.browser(t)
	f.signUpAndIn(t, aliceEmail)

	status, _ := postForm(t, client, f.url(server.RouteLogin), url.Values{"email": {aliceEmail}, "password": {password}})
	require.Equal(t, http.StatusOK, status)

	status, body := postForm(t, client, f.url(server.RouteDashboardPosts), url.Values{"title": {" "}, "content": {"x"}})
	require.Equal(t, http.StatusOK, status)
	require.NotContains(t, body, "Blog added successfully")
	require.Contains(t, body, "Title and content are required")
	require.Contains(t, body, "No posts yet.")
}

func TestPages_CraftedNoticeLinksShowNothing(t *testing.T) {
	f := setupTestFixture(t)
	client := f.browser(t)
	f.signUpAndIn(t, aliceEmail)

	status, _ := postForm(t, client, f.url(server.RouteLogin), url.Values{"email": {aliceEmail}, "password": {password}})
	require.Equal(t, http.StatusOK, status)

	spoofed := "Your account is locked, call 555-0100"
	query := url.Values{"toast": {spoofed}, "error": {spoofed}}

	status, body := get(t, client, f.url(server.RouteDashboard+"?"+query.Encode()))
	require.Equal(t, http.StatusOK, status)
	require.NotContains(t, body, "555-0100")
	require.NotContains(t, body, `role="status"`)
	require.NotContains(t, body, `role="alert"`)

	status, body = get(t, client, f.url(server.RouteDashboard+"?toast=post_deleted"))
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, posts.ToastDeleted)

	loginQuery := url.Values{"message": {spoofed}, "error": {spoofed}}
	status, body = get(t, f.browser(t), f.url(server.RouteLogin+"?"+loginQuery.Encode()))
	require.Equal(t, http.StatusOK, status)
	require.NotContains(t, body, "555-0100")
}

func TestPages_ExpiredAccessTokenIsRefreshed(t *testing.T) {
	f := setupTestFixture(t)
	client := f.browser(t)
	f.signUpAndIn(t, aliceEmail)

	status, _ := postForm(t, client, f.url(server.RouteLogin), url.Values{"email": {aliceEmail}, "password": {password}})
	require.Equal(t, http.StatusOK, status)

	f.advance(2 * time.Hour)

	resp, err := client.Get(f.url(server.RouteDashboard))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, server.RouteDashboard, resp.Request.URL.Path)
}

func TestStatic_CSS(t *testing.T) {
	f := setupTestFixture(t)

	resp, err := http.Get(f.url("/css/blog.css"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/css")
	require.Equal(t, "public, max-age=300, must-revalidate", resp.Header.Get("Cache-Control"))

	missing, err := http.Get(f.url("/css/missing.css"))
	require.NoError(t, err)
	defer missing.Body.Close()
	require.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestIndex(t *testing.T) {
	f := setupTestFixture(t)

	status, body := get(t, http.DefaultClient, f.url(server.RouteIndex))
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "/pages/login")

	status, _ = get(t, http.DefaultClient, f.url("/no-such-page"))
	require.Equal(t, http.StatusNotFound, status)
}

func TestSessionReaper(t *testing.T) {
	f := setupTestFixture(t)
	f.signUpAndIn(t, aliceEmail)
	require.Equal(t, 1, f.sessionRepo.Len())

	f.advance(48 * time.Hour)

	ctx, cancel := context.WithCancel(f.ctx)
	defer cancel()
	f.server.StartSessionReaper(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool { return f.sessionRepo.Len() == 0 }, time.Second, 10*time.Millisecond)
}
