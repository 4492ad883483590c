package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-blog-server/auth"
	"github.com/jrsteele09/go-blog-server/internal/errors"
	fakesessionrepo "github.com/jrsteele09/go-blog-server/sessions/repofake"
	"github.com/jrsteele09/go-blog-server/token"
	"github.com/jrsteele09/go-blog-server/token/keys"
	fakeuserrepo "github.com/jrsteele09/go-blog-server/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	issuer           = "http://blog.test"
	testUserEmail    = "a@x.com"
	testUserPassword = "secret1"
)

// testFixture holds all test dependencies
type testFixture struct {
	ctx         context.Context
	userRepo    *fakeuserrepo.FakeUserRepo
	sessionRepo *fakesessionrepo.FakeSessionRepo
	service     *auth.AuthService
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

// setupTestFixture creates a new test fixture with all dependencies
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		ctx:         context.Background(),
		userRepo:    fakeuserrepo.NewFakeUserRepo(),
		sessionRepo: fakesessionrepo.NewFakeSessionRepo(),
		now:         time.Now(),
	}

	kp, err := keys.GenerateRSAKeyPair("test-key", 2048)
	require.NoError(t, err)
	tokens := token.New(keys.NewKeyPairSigner(kp),
		token.WithIssuer(issuer),
		token.WithAccessTokenExpiry(time.Hour),
		token.WithNowFunc(f.nowFunc),
	)

	f.service, err = auth.NewAuthService(
		auth.Repos{Users: f.userRepo, Sessions: f.sessionRepo},
		tokens,
		auth.WithNowTime(f.nowFunc),
		auth.WithMaxSessionAge(24*time.Hour),
	)
	require.NoError(t, err)
	return f
}

func (f *testFixture) signUpAndIn(t *testing.T) (accessToken, refreshToken string) {
	t.Helper()
	_, err := f.service.SignUp(f.ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)
	session, err := f.service.SignInWithPassword(f.ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)
	return session.AccessToken, session.RefreshToken
}

func TestNewAuthService_RequiresDependencies(t *testing.T) {
	_, err := auth.NewAuthService(auth.Repos{}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Users repo is required")
}

func TestSignUpThenSignIn(t *testing.T) {
	f := setupTestFixture(t)

	user, err := f.service.SignUp(f.ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.Equal(t, testUserEmail, user.Email)

	session, err := f.service.SignInWithPassword(f.ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)
	require.NotNil(t, session)
	require.Equal(t, user.ID, session.User.ID)
	require.Equal(t, "bearer", session.TokenType)
	require.Equal(t, 3600, session.ExpiresIn)
	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.RefreshToken)
	require.NotNil(t, session.User.LastSignInAt)
	require.Equal(t, 1, f.sessionRepo.Len())
}

func TestSignUp_Duplicate(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.SignUp(f.ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)
	_, err = f.service.SignUp(f.ctx, "A@X.COM", testUserPassword)
	require.ErrorIs(t, err, errors.ErrUserExists)
}

func TestSignUp_WeakPassword(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.SignUp(f.ctx, testUserEmail, "abc")
	require.ErrorIs(t, err, errors.ErrWeakPassword)
	require.Equal(t, "Password must be at least 6 characters long", auth.Message(err))
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.service.SignUp(f.ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.service.SignInWithPassword(f.ctx, testUserEmail, "wrong-password")
		require.ErrorIs(t, err, errors.ErrInvalidCredentials)
		require.Equal(t, "Invalid login credentials", auth.Message(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.service.SignInWithPassword(f.ctx, "nobody@x.com", testUserPassword)
		require.ErrorIs(t, err, errors.ErrInvalidCredentials)
	})

	require.Equal(t, 0, f.sessionRepo.Len())
}

func TestAuthenticate(t *testing.T) {
	f := setupTestFixture(t)
	accessToken, _ := f.signUpAndIn(t)

	identity, err := f.service.Authenticate(f.ctx, accessToken)
	require.NoError(t, err)
	require.Equal(t, testUserEmail, identity.Email)
	require.NotEmpty(t, identity.SessionID)

	user, err := f.service.GetUser(f.ctx, identity)
	require.NoError(t, err)
	require.Equal(t, identity.UserID, user.ID)

	_, err = f.service.Authenticate(f.ctx, "")
	require.ErrorIs(t, err, errors.ErrNotAuthenticated)
}

func TestAuthenticate_ExpiredAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	accessToken, _ := f.signUpAndIn(t)

	f.advance(2 * time.Hour)
	_, err := f.service.Authenticate(f.ctx, accessToken)
	require.ErrorIs(t, err, errors.ErrTokenExpired)
}

func TestRefresh_RotatesToken(t *testing.T) {
	f := setupTestFixture(t)
	_, refreshToken := f.signUpAndIn(t)

	f.advance(time.Minute)
	session, err := f.service.Refresh(f.ctx, refreshToken)
	require.NoError(t, err)
	require.NotEqual(t, refreshToken, session.RefreshToken)

	_, err = f.service.Authenticate(f.ctx, session.AccessToken)
	require.NoError(t, err)

	// The old refresh token is spent
	_, err = f.service.Refresh(f.ctx, refreshToken)
	require.ErrorIs(t, err, errors.ErrInvalidRefreshToken)
}

func TestRefresh_ExpiredSession(t *testing.T) {
	f := setupTestFixture(t)
	_, refreshToken := f.signUpAndIn(t)

	f.advance(25 * time.Hour)
	_, err := f.service.Refresh(f.ctx, refreshToken)
	require.ErrorIs(t, err, errors.ErrSessionExpired)
	require.Equal(t, 0, f.sessionRepo.Len())
}

func TestSignOut(t *testing.T) {
	f := setupTestFixture(t)
	accessToken, refreshToken := f.signUpAndIn(t)

	require.NoError(t, f.service.SignOut(f.ctx, accessToken))
	require.Equal(t, 0, f.sessionRepo.Len())

	_, err := f.service.Authenticate(f.ctx, accessToken)
	require.ErrorIs(t, err, errors.ErrSessionNotFound)
	_, err = f.service.Refresh(f.ctx, refreshToken)
	require.ErrorIs(t, err, errors.ErrInvalidRefreshToken)

	// Signing out again is a no-op
	require.NoError(t, f.service.SignOut(f.ctx, accessToken))
}

func TestSignOut_ExpiredAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	accessToken, _ := f.signUpAndIn(t)

	f.advance(2 * time.Hour)
	require.NoError(t, f.service.SignOut(f.ctx, accessToken))
	require.Equal(t, 0, f.sessionRepo.Len())
}

func TestCleanupExpiredSessions(t *testing.T) {
	f := setupTestFixture(t)
	f.signUpAndIn(t)

	removed, err := f.service.CleanupExpiredSessions(f.ctx)
	require.NoError(t, err)
	require.Zero(t, removed)

	f.advance(25 * time.Hour)
	removed, err = f.service.CleanupExpiredSessions(f.ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
}
