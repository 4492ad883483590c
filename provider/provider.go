// Package provider owns the signed-in session of a client process and keeps it
// in sync with the auth client. Consumers read the session from it and
// subscribe to changes instead of talking to the auth client directly.
package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-blog-server/api"
	"github.com/jrsteele09/go-blog-server/auth"
	"github.com/jrsteele09/go-blog-server/client"
	"github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/rs/zerolog/log"
)

// Auth is the part of client.AuthClient the provider needs.
type Auth interface {
	SignUp(ctx context.Context, email, password string) (*api.User, error)
	SignInWithPassword(ctx context.Context, email, password string) (*api.Session, error)
	SignOut(ctx context.Context) error
	GetSession(ctx context.Context) (*api.Session, error)
	OnAuthStateChange(listener client.AuthStateListener) *client.Subscription
}

var _ Auth = (*client.AuthClient)(nil)

// Provider holds the current session. It is safe for concurrent use and
// subscribers are always called without the provider lock held.
type Provider struct {
	auth Auth

	lock         sync.RWMutex
	session      *api.Session
	initialised  bool
	subscription *client.Subscription
	subscribers  map[int]func(*api.Session)
	nextID       int
}

func New(auth Auth) *Provider {
	return &Provider{
		auth:        auth,
		subscribers: make(map[int]func(*api.Session)),
	}
}

// Init restores any existing session, then follows every auth state change.
// Calling it again does nothing. A failure to restore leaves the provider signed out.
func (p *Provider) Init(ctx context.Context) error {
	p.lock.Lock()
	if p.initialised {
		p.lock.Unlock()
		return nil
	}
	p.initialised = true
	p.lock.Unlock()

	session, err := p.auth.GetSession(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to restore session")
		session = nil
	}
	p.setSession(session)

	subscription := p.auth.OnAuthStateChange(func(event api.AuthEvent, session *api.Session) {
		log.Debug().Str("event", string(event)).Bool("signed_in", session != nil).Msg("Auth state changed")
		p.setSession(session)
	})

	p.lock.Lock()
	p.subscription = subscription
	p.lock.Unlock()

	if err != nil {
		return fmt.Errorf("[Provider.Init] %w", err)
	}
	return nil
}

// SignUp registers an account without signing in.
func (p *Provider) SignUp(ctx context.Context, email, password string) (result Result[*api.User]) {
	defer recoverInto(&result, "SignUp")

	user, err := p.auth.SignUp(ctx, email, password)
	if err != nil {
		log.Warn().Err(err).Str("email", email).Msg("Sign up failed")
		return failure[*api.User](err)
	}
	return success(user)
}

// SignIn starts a session. Failures, including unexpected ones, come back as a
// failed Result with a message fit for display.
func (p *Provider) SignIn(ctx context.Context, email, password string) (result Result[*api.Session]) {
	defer recoverInto(&result, "SignIn")

	session, err := p.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		log.Warn().Err(err).Str("email", email).Msg("Sign in failed")
		return failure[*api.Session](err)
	}
	p.setSession(session)
	return success(session)
}

// SignOut ends the session. Backend failures are logged, the local session is cleared regardless.
func (p *Provider) SignOut(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("Sign out panicked")
			p.setSession(nil)
		}
	}()

	if err := p.auth.SignOut(ctx); err != nil {
		log.Warn().Err(err).Msg("Sign out failed on the server")
	}
	p.setSession(nil)
}

// Session returns a copy of the current session or nil when signed out.
func (p *Provider) Session() *api.Session {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return copySession(p.session)
}

// RequireSession returns the current session or ErrNotAuthenticated.
func (p *Provider) RequireSession() (*api.Session, error) {
	session := p.Session()
	if session == nil {
		return nil, errors.ErrNotAuthenticated
	}
	return session, nil
}

// Subscribe calls fn with the new session every time it changes. The returned
// function stops delivery.
func (p *Provider) Subscribe(fn func(*api.Session)) (unsubscribe func()) {
	p.lock.Lock()
	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn
	p.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.lock.Lock()
			defer p.lock.Unlock()
			delete(p.subscribers, id)
		})
	}
}

// Close stops following the auth client and drops every subscriber.
func (p *Provider) Close() {
	p.lock.Lock()
	subscription := p.subscription
	p.subscription = nil
	p.subscribers = make(map[int]func(*api.Session))
	p.lock.Unlock()

	if subscription != nil {
		subscription.Unsubscribe()
	}
}

// setSession replaces the held session and notifies subscribers when it actually changed.
func (p *Provider) setSession(session *api.Session) {
	p.lock.Lock()
	if sameSession(p.session, session) {
		p.lock.Unlock()
		return
	}
	p.session = copySession(session)
	subscribers := make([]func(*api.Session), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		subscribers = append(subscribers, fn)
	}
	p.lock.Unlock()

	for _, fn := range subscribers {
		fn(copySession(session))
	}
}

func sameSession(a, b *api.Session) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.AccessToken == b.AccessToken
}

func copySession(session *api.Session) *api.Session {
	if session == nil {
		return nil
	}
	copied := *session
	return &copied
}

// message returns the text shown to users for err. Server descriptions are
// already written for display; anything else goes through auth.Message.
func message(err error) string {
	var apiErr *client.Error
	if errors.As(err, &apiErr) && apiErr.Description != "" && apiErr.StatusCode < 500 {
		return apiErr.Description
	}
	return auth.Message(err)
}

func recoverInto[T any](result *Result[T], operation string) {
	if rec := recover(); rec != nil {
		log.Error().Interface("panic", rec).Str("operation", operation).Msg("Recovered from panic in auth call")
		*result = failure[T](fmt.Errorf("[Provider.%s] panic: %v", operation, rec))
	}
}
