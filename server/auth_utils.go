package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-blog-server/api"
)

const (
	// accessTokenCookieName holds the JWT for server-rendered pages
	accessTokenCookieName = "blog_access_token"
	// refreshTokenCookieName holds the opaque refresh token used to renew accessTokenCookieName
	refreshTokenCookieName = "blog_refresh_token"
)

// setSessionCookies stores both tokens of a session. The refresh cookie lives as
// long as the backend session can be refreshed.
func (s *Server) setSessionCookies(w http.ResponseWriter, r *http.Request, session *api.Session) {
	refreshMaxAge := int(s.config.GetMaxSessionAge() / time.Second)
	s.setCookie(w, r, accessTokenCookieName, session.AccessToken, refreshMaxAge)
	s.setCookie(w, r, refreshTokenCookieName, session.RefreshToken, refreshMaxAge)
}

func (s *Server) clearSessionCookies(w http.ResponseWriter, r *http.Request) {
	s.setCookie(w, r, accessTokenCookieName, "", -1)
	s.setCookie(w, r, refreshTokenCookieName, "", -1)
}

func (s *Server) setCookie(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	isSecure := s.config.GetSecureCookies() || getScheme(r) == "https"

	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithToast redirects to path showing the notice with key as a success toast
func redirectWithToast(w http.ResponseWriter, r *http.Request, path, key string) {
	redirectSuccess(w, r, path+"?toast="+url.QueryEscape(key))
}

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path string, err error) {
	fullPath := path + "?error=" + url.QueryEscape(pageErrorKey(err))

	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", fullPath)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, fullPath, http.StatusSeeOther)
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
