package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-blog-server/auth"
	"github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyIdentity stores the authenticated *auth.Identity
	ContextKeyIdentity ContextKey = "identity"
)

// RequireSessionAuth is middleware for HTML routes that resolves the session cookies
// into an identity. An expired access token is renewed with the refresh cookie;
// anything else unusable sends the browser to the login page.
func (s *Server) RequireSessionAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			identity, err := s.sessionIdentity(w, r)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("No usable session, redirecting to login")
				s.clearSessionCookies(w, r)
				redirectSuccess(w, r, RouteLogin)
				return
			}

			next(w, r.WithContext(withIdentity(r.Context(), identity)))
		}
	}
}

func (s *Server) sessionIdentity(w http.ResponseWriter, r *http.Request) (*auth.Identity, error) {
	accessToken := cookieValue(r, accessTokenCookieName)
	if accessToken == "" {
		return nil, errors.ErrNotAuthenticated
	}

	identity, err := s.auth.Authenticate(r.Context(), accessToken)
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, errors.ErrTokenExpired) {
		return nil, err
	}

	refreshToken := cookieValue(r, refreshTokenCookieName)
	if refreshToken == "" {
		return nil, err
	}
	session, err := s.auth.Refresh(r.Context(), refreshToken)
	if err != nil {
		return nil, err
	}
	s.setSessionCookies(w, r, session)

	return s.auth.Authenticate(r.Context(), session.AccessToken)
}

// RequireBearerAuth is middleware that validates a Bearer access token
// Used for API routes that expect tokens in the Authorization header
func (s *Server) RequireBearerAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeJSONError(w, errorCodeNoAuthorization, "Missing Authorization header", http.StatusUnauthorized)
				return
			}

			identity, err := s.auth.Authenticate(r.Context(), token)
			if errors.Is(err, errors.ErrSessionExpired) {
				writeJSONError(w, errorCodeBadJWT, auth.Message(err), http.StatusUnauthorized)
				return
			}
			if err != nil {
				writeAPIError(w, err)
				return
			}

			next(w, r.WithContext(withIdentity(r.Context(), identity)))
		}
	}
}

func withIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, identity)
}

// IdentityFromContext returns the identity injected by the auth middleware
func IdentityFromContext(ctx context.Context) (*auth.Identity, bool) {
	identity, ok := ctx.Value(ContextKeyIdentity).(*auth.Identity)
	return identity, ok && identity != nil
}

// callerID is the user id every data statement of the request runs as; "" when anonymous.
func callerID(r *http.Request) string {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		return ""
	}
	return identity.UserID
}
