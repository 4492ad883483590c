package client

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/jrsteele09/go-blog-server/api"
	"github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	routeSignup = "/auth/v1/signup"
	routeToken  = "/auth/v1/token"
	routeLogout = "/auth/v1/logout"
	routeUser   = "/auth/v1/user"
)

// AuthStateListener receives every auth state change together with the session after it.
// The session is nil after EventSignedOut.
type AuthStateListener func(event api.AuthEvent, session *api.Session)

// AuthClient holds the signed-in session of one user and keeps it fresh.
type AuthClient struct {
	client   *Client
	verifier *tokenVerifier

	lock      sync.Mutex
	session   *api.Session
	loaded    bool // Storage has been read
	listeners map[int]AuthStateListener
	nextID    int

	refreshLock sync.Mutex // Serializes refreshes, a refresh token can only be used once
}

func newAuthClient(c *Client) *AuthClient {
	ac := &AuthClient{
		client:    c,
		listeners: make(map[int]AuthStateListener),
	}
	if c.verifyTokens {
		ac.verifier = newTokenVerifier(c)
	}
	return ac
}

// SignUp registers an account. It does not sign in.
func (ac *AuthClient) SignUp(ctx context.Context, email, password string) (*api.User, error) {
	var user api.User
	err := ac.client.do(ctx, ac.client.httpClient, http.MethodPost, ac.client.endpoint(routeSignup, nil),
		api.Credentials{Email: email, Password: password}, &user, nil)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SignInWithPassword starts a session, stores it and emits EventSignedIn.
func (ac *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*api.Session, error) {
	query := url.Values{"grant_type": {string(api.PasswordGrant)}}
	kinds := defaultErrorKinds.with("invalid_grant", errors.ErrInvalidCredentials)

	var session api.Session
	err := ac.client.do(ctx, ac.client.httpClient, http.MethodPost, ac.client.endpoint(routeToken, query),
		api.Credentials{Email: email, Password: password}, &session, kinds)
	if err != nil {
		return nil, err
	}
	if err := ac.verify(ctx, &session); err != nil {
		return nil, err
	}

	ac.setSession(&session, api.EventSignedIn)
	return &session, nil
}

// SignOut ends the session on the server and locally. The local session is
// always cleared; the returned error only reports the server call.
// Signing out without a session does nothing.
func (ac *AuthClient) SignOut(ctx context.Context) error {
	session, err := ac.currentSession()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read stored session during sign out")
	}
	if session == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ac.client.endpoint(routeLogout, nil), nil)
	if err == nil {
		req.Header.Set("Authorization", "Bearer "+session.AccessToken)
		var resp *http.Response
		resp, err = ac.client.httpClient.Do(req)
		if err == nil {
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				err = newError(resp, nil)
			}
			resp.Body.Close()
		}
	}

	ac.setSession(nil, api.EventSignedOut)
	return err
}

// GetSession returns the current session, restoring it from storage on first use
// and refreshing it when the access token is about to expire. It returns nil, nil
// when signed out.
func (ac *AuthClient) GetSession(ctx context.Context) (*api.Session, error) {
	session, err := ac.currentSession()
	if err != nil || session == nil {
		return nil, err
	}
	if !ac.expiring(session) {
		return session, nil
	}
	return ac.refresh(ctx, session.RefreshToken)
}

// RefreshSession rotates the refresh token and emits EventTokenRefreshed.
func (ac *AuthClient) RefreshSession(ctx context.Context) (*api.Session, error) {
	session, err := ac.currentSession()
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errors.ErrNotAuthenticated
	}
	return ac.refresh(ctx, session.RefreshToken)
}

// GetUser fetches the signed-in account from the server.
func (ac *AuthClient) GetUser(ctx context.Context) (*api.User, error) {
	var user api.User
	err := ac.client.do(ctx, ac.client.authorizedHTTPClient(ctx), http.MethodGet, ac.client.endpoint(routeUser, nil), nil, &user, nil)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Subscription is a registered AuthStateListener.
type Subscription struct {
	once        sync.Once
	unsubscribe func()
}

// NewSubscription returns a Subscription that runs unsubscribe once.
func NewSubscription(unsubscribe func()) *Subscription {
	return &Subscription{unsubscribe: unsubscribe}
}

// Unsubscribe stops delivery. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.unsubscribe)
}

// OnAuthStateChange registers listener for auth state changes. The listener is
// called with EventInitialSession and the restored session before this returns.
func (ac *AuthClient) OnAuthStateChange(listener AuthStateListener) *Subscription {
	ac.lock.Lock()
	id := ac.nextID
	ac.nextID++
	ac.listeners[id] = listener
	ac.lock.Unlock()

	session, err := ac.currentSession()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to restore stored session")
	}
	listener(api.EventInitialSession, session)

	return NewSubscription(func() {
		ac.lock.Lock()
		defer ac.lock.Unlock()
		delete(ac.listeners, id)
	})
}

// StartAutoRefresh refreshes the session in the background shortly before it
// expires, until ctx is done.
func (ac *AuthClient) StartAutoRefresh(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(ac.client.autoRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := ac.GetSession(ctx); err != nil && ctx.Err() == nil {
					log.Warn().Err(err).Msg("Auto refresh failed")
				}
			}
		}
	}()
}

// TokenSource exposes the session as an oauth2.TokenSource so it can drive an
// oauth2.Transport. Token fails with ErrNotAuthenticated when signed out.
func (ac *AuthClient) TokenSource(ctx context.Context) oauth2.TokenSource {
	return sessionTokenSource{ctx: ctx, auth: ac}
}

type sessionTokenSource struct {
	ctx  context.Context
	auth *AuthClient
}

func (ts sessionTokenSource) Token() (*oauth2.Token, error) {
	session, err := ts.auth.GetSession(ts.ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errors.ErrNotAuthenticated
	}
	return &oauth2.Token{
		AccessToken:  session.AccessToken,
		TokenType:    session.TokenType,
		RefreshToken: session.RefreshToken,
		Expiry:       session.Expiry(),
	}, nil
}

// refresh rotates the session. Listeners are notified after refreshLock is
// released so they may read or refresh the session themselves.
func (ac *AuthClient) refresh(ctx context.Context, refreshToken string) (*api.Session, error) {
	session, notify, err := ac.rotate(ctx, refreshToken)
	if notify != nil {
		notify()
	}
	return session, err
}

// rotate exchanges the refresh token under refreshLock and stores the result.
// The returned func delivers the resulting event and is nil when nothing changed.
func (ac *AuthClient) rotate(ctx context.Context, refreshToken string) (*api.Session, func(), error) {
	ac.refreshLock.Lock()
	defer ac.refreshLock.Unlock()

	// Another caller may have rotated the token while this one waited
	current, err := ac.currentSession()
	if err != nil {
		return nil, nil, err
	}
	if current == nil {
		return nil, nil, errors.ErrNotAuthenticated
	}
	if current.RefreshToken != refreshToken && !ac.expiring(current) {
		return current, nil, nil
	}

	query := url.Values{"grant_type": {string(api.RefreshTokenGrant)}}
	kinds := defaultErrorKinds.with("invalid_grant", errors.ErrInvalidRefreshToken)

	var session api.Session
	err = ac.client.do(ctx, ac.client.httpClient, http.MethodPost, ac.client.endpoint(routeToken, query),
		api.RefreshRequest{RefreshToken: current.RefreshToken}, &session, kinds)
	if err == nil {
		err = ac.verify(ctx, &session)
	}
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			// The server rejected the refresh token, the session is over
			return nil, ac.storeSession(nil, api.EventSignedOut), err
		}
		return nil, nil, err
	}

	return &session, ac.storeSession(&session, api.EventTokenRefreshed), nil
}

func (ac *AuthClient) verify(ctx context.Context, session *api.Session) error {
	if ac.verifier == nil {
		return nil
	}
	return ac.verifier.verify(ctx, session)
}

// expiring reports whether session is due for a refresh. The margin never
// exceeds half the token lifetime, so a fresh token is never due.
func (ac *AuthClient) expiring(session *api.Session) bool {
	margin := ac.client.refreshMargin
	if half := time.Duration(session.ExpiresIn) * time.Second / 2; half > 0 && half < margin {
		margin = half
	}
	return session.Expired(ac.client.now(), margin)
}

// currentSession returns a copy of the held session, reading storage once.
func (ac *AuthClient) currentSession() (*api.Session, error) {
	ac.lock.Lock()
	defer ac.lock.Unlock()

	if !ac.loaded {
		stored, err := ac.client.storage.Load()
		if err != nil {
			return nil, err
		}
		ac.session = stored
		ac.loaded = true
	}
	if ac.session == nil {
		return nil, nil
	}
	session := *ac.session
	return &session, nil
}

// setSession replaces the held session, persists it and notifies listeners.
func (ac *AuthClient) setSession(session *api.Session, event api.AuthEvent) {
	ac.storeSession(session, event)()
}

// storeSession replaces the held session and persists it. The returned func
// notifies the listeners registered at that moment and must be called without
// any AuthClient lock held.
func (ac *AuthClient) storeSession(session *api.Session, event api.AuthEvent) func() {
	ac.lock.Lock()
	ac.session = session
	ac.loaded = true
	listeners := make([]AuthStateListener, 0, len(ac.listeners))
	for _, l := range ac.listeners {
		listeners = append(listeners, l)
	}
	ac.lock.Unlock()

	var err error
	if session == nil {
		err = ac.client.storage.Clear()
	} else {
		err = ac.client.storage.Save(session)
	}
	if err != nil {
		log.Warn().Err(err).Str("event", string(event)).Msg("Failed to persist session")
	}

	return func() {
		for _, l := range listeners {
			var copied *api.Session
			if session != nil {
				s := *session
				copied = &s
			}
			l(event, copied)
		}
	}
}
