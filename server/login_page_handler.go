package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-blog-server/auth"
	"github.com/rs/zerolog/log"
)

// LoginPageUIHandler displays the login page (GET /pages/login)
func (s *Server) LoginPageUIHandler() http.HandlerFunc {
	loginTmpl, err := ParseTemplate("login.html")
	if err != nil {
		panic("Failed to parse login template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		s.render(w, loginTmpl, http.StatusOK, PageData{
			AppName: s.config.GetAppName(),
			Error:   pageErrorText(query.Get("error")),
			Message: noticeText(query.Get("message")),
			Email:   query.Get("email"),
		})
	}
}

// LoginSubmissionHandler processes the login form submission (POST /pages/login).
// A failed attempt re-renders the form with a single inline error.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	loginTmpl, err := ParseTemplate("login.html")
	if err != nil {
		panic("Failed to parse login template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		email := r.FormValue("email")
		password := r.FormValue("password")

		session, err := s.auth.SignInWithPassword(r.Context(), email, password)
		if err != nil {
			log.Debug().Err(err).Str("email", email).Msg("Login failed")
			s.render(w, loginTmpl, http.StatusUnauthorized, PageData{
				AppName: s.config.GetAppName(),
				Error:   auth.Message(err),
				Email:   email,
			})
			return
		}

		s.setSessionCookies(w, r, session)
		redirectSuccess(w, r, RouteDashboard)
	}
}

// SignupGetHandler renders the signup page (GET /pages/signup)
func (s *Server) SignupGetHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("signup.html")
	if err != nil {
		panic("Failed to parse signup template: " + err.Error())
	}
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, tmpl, http.StatusOK, PageData{
			AppName: s.config.GetAppName(),
			Error:   pageErrorText(r.URL.Query().Get("error")),
		})
	}
}

// SignupPostHandler handles registration form submission (POST /pages/signup)
func (s *Server) SignupPostHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("signup.html")
	if err != nil {
		panic("Failed to parse signup template: " + err.Error())
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		email := r.FormValue("email")

		user, err := s.auth.SignUp(r.Context(), email, r.FormValue("password"))
		if err != nil {
			s.render(w, tmpl, http.StatusUnprocessableEntity, PageData{
				AppName: s.config.GetAppName(),
				Error:   auth.Message(err),
				Email:   email,
			})
			return
		}

		query := url.Values{}
		query.Set("message", noticeAccountCreated)
		query.Set("email", user.Email)
		redirectSuccess(w, r, RouteLogin+"?"+query.Encode())
	}
}

// LogoutHandler ends the backend session, clears the cookies and returns to the landing page.
// Signing out without a session is a no-op.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if accessToken := cookieValue(r, accessTokenCookieName); accessToken != "" {
			if err := s.auth.SignOut(r.Context(), accessToken); err != nil {
				log.Warn().Err(err).Msg("Logout: failed to end session")
			}
		}
		s.clearSessionCookies(w, r)
		redirectSuccess(w, r, RouteIndex)
	}
}
