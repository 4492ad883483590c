package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex+"{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// LOGIN / SIGNUP
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageUIHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteSignup, ChainMiddleware(s.SignupGetHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteSignup, ChainMiddleware(s.SignupPostHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// Dashboard (require session cookie)
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler(), s.HTMLMiddleWare(s.RequireSessionAuth())...))
	s.RegisterRouteHandler("POST "+RouteDashboardPosts, ChainMiddleware(s.DashboardCreatePostHandler(), s.HTMLMiddleWare(s.RequireSessionAuth())...))
	s.RegisterRouteHandler("POST "+RouteDashboardPost, ChainMiddleware(s.DashboardUpdatePostHandler(), s.HTMLMiddleWare(s.RequireSessionAuth())...))
	s.RegisterRouteHandler("POST "+RouteDashboardPostDelete, ChainMiddleware(s.DashboardDeletePostHandler(), s.HTMLMiddleWare(s.RequireSessionAuth())...))

	// Auth API
	s.RegisterRouteHandler("POST "+RouteAuthSignup, ChainMiddleware(s.SignUp(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthToken, ChainMiddleware(s.Token(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.Logout(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthUser, ChainMiddleware(s.User(), s.APIMiddleware(s.RequireBearerAuth())...))
	s.RegisterRouteHandler("GET "+RouteWellKnownJWKS, ChainMiddleware(s.JWKS(), s.APIMiddleware()...))

	// Data API (require bearer access token)
	s.RegisterRouteHandler("GET "+RouteRestPosts, ChainMiddleware(s.SelectPosts(), s.APIMiddleware(s.RequireBearerAuth())...))
	s.RegisterRouteHandler("POST "+RouteRestPosts, ChainMiddleware(s.InsertPosts(), s.APIMiddleware(s.RequireBearerAuth())...))
	s.RegisterRouteHandler("PATCH "+RouteRestPosts, ChainMiddleware(s.UpdatePosts(), s.APIMiddleware(s.RequireBearerAuth())...))
	s.RegisterRouteHandler("DELETE "+RouteRestPosts, ChainMiddleware(s.DeletePosts(), s.APIMiddleware(s.RequireBearerAuth())...))

	// CORS preflight for the APIs
	s.RegisterRouteHandler("OPTIONS /auth/v1/", ChainMiddleware(noContent, s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS /rest/v1/", ChainMiddleware(noContent, s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteStaticCSS, ChainMiddleware(s.serveFileHandler(), s.StaticMiddleware()...))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := strings.TrimPrefix(r.URL.Path, "/")
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		err := streamStaticFile(w, filePath)
		if err != nil {
			logError(r.Method, filePath, err.Error())
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func logError(method, path, error string) {
	log.Error().Msgf("[%-19s] %s %s", colourMethod(method), path, Red+error+ResetColor)
}
