// Package server is the web console: the login page, the guarded dashboard and the
// session endpoints, served for whichever strategy the console runs with.
package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/redirect"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	env            string // Environment (e.g., "DEV", "PROD")
	mux            *http.ServeMux
	routes         []string
	config         config.Config
	provider       session.Provider
	strategies     int                  // Strategy controllers configured
	redirect       *redirect.Controller // Serves the callback when set
	metricsHandler http.Handler
	pages          *pages
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithDirectController serves the console with the direct credential strategy
func WithDirectController(c *session.Controller) Option {
	return func(s *Server) {
		s.strategies++
		s.provider = c
	}
}

// WithRedirectController serves the console with the redirect strategy
func WithRedirectController(c *redirect.Controller) Option {
	return func(s *Server) {
		s.strategies++
		s.redirect = c
		s.provider = c
	}
}

// WithMetricsHandler replaces the handler served on /metrics
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

// New creates the console server. Exactly one strategy controller must be given.
func New(cfg config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		env:            cfg.GetEnv(),
		mux:            http.NewServeMux(),
		config:         cfg,
		metricsHandler: promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.strategies > 1 {
		return nil, errors.New("[Server New] only one strategy controller may be configured")
	}
	if s.provider == nil {
		return nil, errors.New("[Server New] a strategy controller is required")
	}

	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}
	s.pages = pages

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if !config.IsDev(s.config) {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Printf("[%-19s] %s\n", displayMethod(method), path)
}

func displayMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
