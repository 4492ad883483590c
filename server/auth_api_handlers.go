package server

import (
	"net/http"

	"github.com/jrsteele09/go-blog-server/api"
	"github.com/jrsteele09/go-blog-server/internal/errors"
)

// SignUp registers an account (POST /auth/v1/signup)
func (s *Server) SignUp() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds api.Credentials
		if err := decodeJSON(w, r, &creds); err != nil {
			writeJSONError(w, errorCodeInvalidRequest, "Request body must be JSON with email and password", http.StatusBadRequest)
			return
		}

		user, err := s.auth.SignUp(r.Context(), creds.Email, creds.Password)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// Token issues a session for the password and refresh_token grants (POST /auth/v1/token?grant_type=...)
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			session *api.Session
			err     error
		)

		switch api.GrantType(r.URL.Query().Get("grant_type")) {
		case api.PasswordGrant:
			var creds api.Credentials
			if decodeErr := decodeJSON(w, r, &creds); decodeErr != nil {
				writeJSONError(w, errorCodeInvalidRequest, "Request body must be JSON with email and password", http.StatusBadRequest)
				return
			}
			session, err = s.auth.SignInWithPassword(r.Context(), creds.Email, creds.Password)

		case api.RefreshTokenGrant:
			var req api.RefreshRequest
			if decodeErr := decodeJSON(w, r, &req); decodeErr != nil {
				writeJSONError(w, errorCodeInvalidRequest, "Request body must be JSON with refresh_token", http.StatusBadRequest)
				return
			}
			session, err = s.auth.Refresh(r.Context(), req.RefreshToken)

		default:
			err = errors.ErrUnsupported
		}

		if err != nil {
			writeAPIError(w, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, session)
	}
}

// Logout ends the session of the bearer token (POST /auth/v1/logout).
// An already ended session still logs out successfully.
func (s *Server) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.SignOut(r.Context(), bearerToken(r)); err != nil {
			writeAPIError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// User returns the account of the bearer token (GET /auth/v1/user)
func (s *Server) User() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			writeAPIError(w, errors.ErrNotAuthenticated)
			return
		}
		user, err := s.auth.GetUser(r.Context(), identity)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// JWKS returns the JSON Web Key Set used to validate tokens
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, err := s.auth.JWKS()
		if err != nil {
			writeAPIError(w, err)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		writeJSON(w, http.StatusOK, jwks)
	}
}
