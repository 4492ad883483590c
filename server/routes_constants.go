package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Pages
	RouteIndex     = "/"
	RouteLogin     = "/pages/login"
	RouteSignup    = "/pages/signup"
	RouteDashboard = "/pages/dashboard"
	RouteLogout    = "/pages/logout"

	// Dashboard form posts
	RouteDashboardPosts      = "/pages/dashboard/posts"
	RouteDashboardPost       = "/pages/dashboard/posts/{id}"
	RouteDashboardPostDelete = "/pages/dashboard/posts/{id}/delete"

	// Auth API
	RouteAuthSignup = "/auth/v1/signup"
	RouteAuthToken  = "/auth/v1/token"
	RouteAuthLogout = "/auth/v1/logout"
	RouteAuthUser   = "/auth/v1/user"

	// Data API
	RouteRestPosts = "/rest/v1/posts"

	// Well known
	RouteWellKnownJWKS = "/.well-known/jwks.json"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
)
