package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/plughost/pkg/httputil"
	"github.com/platinummonkey/plughost/pkg/middleware"
	"github.com/platinummonkey/plughost/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Config wires a Server to the plugin lifecycle components
type Config struct {
	Registry  Registry
	Builder   BuildService
	Artifacts ArtifactLister

	// Metrics records dispatch and HTTP metrics; nil disables them.
	Metrics *observability.Metrics

	// MetricsRegistry is served on /metrics when set
	MetricsRegistry *prometheus.Registry

	// Health serves /health probes when set
	Health *observability.HealthChecker

	// BuildLimiter throttles the routes that can start a build; nil disables it.
	BuildLimiter middleware.Limiter

	// BuildLimiterFailClosed answers 503 instead of serving when the limiter errors
	BuildLimiterFailClosed bool

	MaxBodyBytes int64
	Log          *logrus.Logger
}

// Server represents the plugin host's HTTP surface
type Server struct {
	router     *mux.Router
	handler    http.Handler
	registry   Registry
	builder    BuildService
	artifacts  ArtifactLister
	dispatcher *Dispatcher
	limit      *middleware.RateLimitMiddleware
	log        *logrus.Logger
}

// NewServer creates a new API server
func NewServer(cfg Config) *Server {
	if cfg.Log == nil {
		cfg.Log = logrus.New()
	}

	s := &Server{
		router:     mux.NewRouter(),
		registry:   cfg.Registry,
		builder:    cfg.Builder,
		artifacts:  cfg.Artifacts,
		dispatcher: NewDispatcher(cfg.Registry, cfg.Metrics),
		log:        cfg.Log,
	}
	if cfg.BuildLimiter != nil {
		s.limit = middleware.NewRateLimitMiddleware(cfg.BuildLimiter, cfg.Log)
		s.limit.SetFailOpen(!cfg.BuildLimiterFailClosed)
	}

	s.router.Use(observability.HTTPMetricsMiddleware(cfg.Metrics))
	s.setupRoutes(cfg.MetricsRegistry, cfg.Health)

	s.handler = httputil.Chain(
		httputil.RequestIDMiddleware(cfg.Log),
		httputil.LoggingMiddleware,
		httputil.RecoveryMiddleware,
		httputil.MaxBytesMiddleware(cfg.MaxBodyBytes),
	)(s.router)

	return s
}

// setupRoutes configures all the routes
func (s *Server) setupRoutes(metricsRegistry *prometheus.Registry, health *observability.HealthChecker) {
	s.router.HandleFunc("/", s.root).Methods(http.MethodGet)

	// Lifecycle
	s.router.Handle("/build/{id}", s.throttled(s.build)).Methods(http.MethodGet)
	s.router.Handle("/control/{verb}/{id}", s.throttled(s.control)).Methods(http.MethodGet)

	// Dispatch
	s.router.HandleFunc("/api/{id}/graphql/{flag:true|false}", s.graphqlQuery).Methods(http.MethodGet)
	s.router.HandleFunc("/api/{id}/graphql/{flag:true|false}", s.graphqlBody).Methods(http.MethodPost)
	s.router.HandleFunc("/api/{id}/graphiql/{flag:true|false}", s.graphiql).Methods(http.MethodGet)

	// Introspection
	s.router.HandleFunc("/plugins", s.listPlugins).Methods(http.MethodGet)
	s.router.HandleFunc("/builds", s.listBuilds).Methods(http.MethodGet)
	s.router.HandleFunc("/builds/{id}", s.getBuild).Methods(http.MethodGet)

	if health != nil {
		s.router.HandleFunc("/health", health.Readiness).Methods(http.MethodGet)
		s.router.HandleFunc("/health/live", health.Liveness).Methods(http.MethodGet)
		s.router.HandleFunc("/health/ready", health.Readiness).Methods(http.MethodGet)
	}

	if metricsRegistry != nil {
		s.router.Handle("/metrics", observability.MetricsHandler(metricsRegistry)).Methods(http.MethodGet)
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteMethodNotAllowed(w)
	})
}

// throttled applies the build rate limit, when configured, to h
func (s *Server) throttled(h http.HandlerFunc) http.Handler {
	if s.limit == nil {
		return h
	}
	return s.limit.Handler(h)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the router so callers can wrap or extend it
func (s *Server) Router() *mux.Router {
	return s.router
}
