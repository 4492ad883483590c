package auth

import (
	"context"
	"time"

	"github.com/jrsteele09/go-blog-server/api"
	"github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/jrsteele09/go-blog-server/sessions"
	"github.com/jrsteele09/go-blog-server/token"
	"github.com/jrsteele09/go-blog-server/token/keys"
	"github.com/jrsteele09/go-blog-server/users"
	"github.com/rs/zerolog/log"
)

const (
	defaultMinPasswordLength = 6
	defaultMaxSessionAge     = 7 * 24 * time.Hour
	tokenTypeBearer          = "bearer"
)

// Repos holds all repository dependencies for the AuthService
type Repos struct {
	Users    users.Repo    // Repository for user accounts
	Sessions sessions.Repo // Repository for backend sessions
}

// Identity is the caller behind a verified access token.
type Identity struct {
	UserID    string
	Email     string
	SessionID string
	ExpiresAt time.Time
}

// AuthService implements password sign-up and sign-in, refresh token rotation
// and access token authentication on top of backend sessions.
type AuthService struct {
	repos         Repos            // All repository dependencies
	tokens        *token.Manager   // Access and refresh token issuing
	validator     *Validator       // Input rules
	maxSessionAge time.Duration    // How long a session stays refreshable without use
	nowTime       func() time.Time // nowTime function (injectable for testing)
}

// AuthServiceOption defines a function type to modify the AuthService instance.
type AuthServiceOption func(*AuthService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthServiceOption {
	return func(as *AuthService) {
		as.nowTime = nowFunc
	}
}

// WithMinPasswordLength sets the shortest password accepted at sign-up.
func WithMinPasswordLength(length int) AuthServiceOption {
	return func(as *AuthService) {
		as.validator = NewValidator(length)
	}
}

// WithMaxSessionAge sets how long a session stays refreshable after sign-in or its last refresh.
func WithMaxSessionAge(age time.Duration) AuthServiceOption {
	return func(as *AuthService) {
		as.maxSessionAge = age
	}
}

// NewAuthService initializes a new AuthService with required dependencies.
func NewAuthService(repos Repos, tokens *token.Manager, options ...AuthServiceOption) (*AuthService, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewAuthService] Users repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[NewAuthService] Sessions repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewAuthService] token manager is required")
	}

	as := &AuthService{
		repos:         repos,
		tokens:        tokens,
		validator:     NewValidator(defaultMinPasswordLength),
		maxSessionAge: defaultMaxSessionAge,
		nowTime:       time.Now,
	}
	for _, opt := range options {
		opt(as)
	}
	return as, nil
}

// SignUp registers a new account. The account can sign in immediately.
func (as *AuthService) SignUp(ctx context.Context, email, password string) (*api.User, error) {
	email, err := as.validator.ValidateSignUp(email, password)
	if err != nil {
		return nil, err
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, errors.Wrapf(err, "[AuthService.SignUp] HashPassword")
	}

	user := &users.User{
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    as.nowTime().UTC(),
	}
	if err := as.repos.Users.Create(ctx, user); err != nil {
		if errors.Is(err, errors.ErrUserExists) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "[AuthService.SignUp] Create")
	}

	log.Info().Str("user_id", user.ID).Msg("User signed up")
	apiUser := user.ToAPI()
	return &apiUser, nil
}

// SignInWithPassword checks credentials and starts a new backend session.
// Unknown accounts and wrong passwords fail identically with ErrInvalidCredentials.
func (as *AuthService) SignInWithPassword(ctx context.Context, email, password string) (*api.Session, error) {
	email, err := as.validator.ValidateSignIn(email, password)
	if err != nil {
		return nil, err
	}

	user, err := as.repos.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, errors.Wrapf(err, "[AuthService.SignInWithPassword] GetByEmail")
	}
	if !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, errors.ErrInvalidCredentials
	}

	refreshToken, err := as.tokens.NewRefreshToken()
	if err != nil {
		return nil, errors.Wrapf(err, "[AuthService.SignInWithPassword] NewRefreshToken")
	}

	now := as.nowTime().UTC()
	session := &sessions.Session{
		UserID:       user.ID,
		RefreshToken: refreshToken,
		CreatedAt:    now,
		RefreshedAt:  now,
		ExpiresAt:    now.Add(as.maxSessionAge),
	}
	if err := as.repos.Sessions.Create(ctx, session); err != nil {
		return nil, errors.Wrapf(err, "[AuthService.SignInWithPassword] Sessions.Create")
	}

	if err := as.repos.Users.SetLastSignIn(ctx, user.ID, now); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to record last sign in")
	} else {
		user.LastSignInAt = &now
	}

	return as.issueSession(user, session.ID, refreshToken)
}

// Refresh exchanges a refresh token for a new session payload. The refresh
// token rotates: the presented value stops working once this returns.
func (as *AuthService) Refresh(ctx context.Context, refreshToken string) (*api.Session, error) {
	if err := as.validator.ValidateRefreshToken(refreshToken); err != nil {
		return nil, err
	}

	session, err := as.repos.Sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, errors.ErrSessionNotFound) {
			return nil, errors.ErrInvalidRefreshToken
		}
		return nil, errors.Wrapf(err, "[AuthService.Refresh] GetByRefreshToken")
	}

	now := as.nowTime().UTC()
	if session.Expired(now) {
		if err := as.repos.Sessions.Delete(ctx, session.ID); err != nil {
			log.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to delete expired session")
		}
		return nil, errors.ErrSessionExpired
	}

	user, err := as.repos.Users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, errors.Wrapf(err, "[AuthService.Refresh] GetByID")
	}

	newToken, err := as.tokens.NewRefreshToken()
	if err != nil {
		return nil, errors.Wrapf(err, "[AuthService.Refresh] NewRefreshToken")
	}
	if err := as.repos.Sessions.Rotate(ctx, session.ID, refreshToken, newToken, now, now.Add(as.maxSessionAge)); err != nil {
		if errors.Is(err, errors.ErrInvalidRefreshToken) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "[AuthService.Refresh] Rotate")
	}

	return as.issueSession(user, session.ID, newToken)
}

// SignOut ends the session the access token belongs to. Expired tokens can
// still sign out, and signing out an already ended session succeeds.
func (as *AuthService) SignOut(ctx context.Context, accessToken string) error {
	if err := as.validator.ValidateAccessToken(accessToken); err != nil {
		return err
	}
	claims, err := as.tokens.VerifyAllowExpired(accessToken)
	if err != nil {
		return err
	}
	if err := as.repos.Sessions.Delete(ctx, claims.SessionID); err != nil {
		return errors.Wrapf(err, "[AuthService.SignOut] Delete")
	}
	log.Debug().Str("session_id", claims.SessionID).Msg("Session signed out")
	return nil
}

// Authenticate verifies accessToken and that its backend session is still live.
func (as *AuthService) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	if err := as.validator.ValidateAccessToken(accessToken); err != nil {
		return nil, err
	}
	claims, err := as.tokens.Verify(accessToken)
	if err != nil {
		return nil, err
	}

	session, err := as.repos.Sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, errors.ErrSessionNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "[AuthService.Authenticate] Sessions.Get")
	}
	if session.UserID != claims.Subject {
		return nil, errors.ErrInvalidToken
	}
	if session.Expired(as.nowTime()) {
		return nil, errors.ErrSessionExpired
	}

	return &Identity{
		UserID:    claims.Subject,
		Email:     claims.Email,
		SessionID: claims.SessionID,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// GetUser returns the account behind an authenticated identity.
func (as *AuthService) GetUser(ctx context.Context, identity *Identity) (*api.User, error) {
	user, err := as.repos.Users.GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, errors.Wrapf(err, "[AuthService.GetUser] GetByID")
	}
	apiUser := user.ToAPI()
	return &apiUser, nil
}

// CleanupExpiredSessions removes sessions that can no longer be refreshed.
func (as *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	removed, err := as.repos.Sessions.DeleteExpired(ctx, as.nowTime().UTC())
	if err != nil {
		return 0, errors.Wrapf(err, "[AuthService.CleanupExpiredSessions] DeleteExpired")
	}
	return removed, nil
}

// JWKS returns the public keys clients use to verify access tokens.
func (as *AuthService) JWKS() (*keys.JWKS, error) {
	return as.tokens.GetJWKS()
}

func (as *AuthService) issueSession(user *users.User, sessionID, refreshToken string) (*api.Session, error) {
	accessToken, expiresAt, err := as.tokens.CreateAccessToken(user, sessionID)
	if err != nil {
		return nil, errors.Wrapf(err, "[AuthService.issueSession] CreateAccessToken")
	}

	return &api.Session{
		AccessToken:  accessToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int(as.tokens.AccessTokenExpiry().Seconds()),
		ExpiresAt:    expiresAt.Unix(),
		RefreshToken: refreshToken,
		User:         user.ToAPI(),
	}, nil
}
