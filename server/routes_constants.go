package server

import (
	"github.com/jrsteele09/go-auth-session/guard"
	"github.com/jrsteele09/go-auth-session/session"
)

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Login & Logout
	RouteLogin      = session.LoginPath
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"
	RouteCallback   = guard.CallbackPath

	// Protected Routes
	RouteDashboard        = guard.DefaultReturnTo
	RouteDashboardSection = RouteDashboard + "/{section...}"

	// API Routes
	RouteAPISession = "/api/session"

	// Operational Routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
