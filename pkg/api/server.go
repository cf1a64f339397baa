package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dd0wney/cluso-corridors/pkg/api/middleware"
	"github.com/dd0wney/cluso-corridors/pkg/graphql"
	"github.com/dd0wney/cluso-corridors/pkg/logging"
)

// NewServer validates opts and prepares the handlers.
func NewServer(opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, errors.New("api: engine is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.RouteTimeout <= 0 {
		opts.RouteTimeout = DefaultRouteTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}

	clientIP, err := middleware.NewClientIPResolver(opts.TrustedProxies)
	if err != nil {
		return nil, err
	}

	s := &Server{
		engine:       opts.Engine,
		store:        opts.Store,
		predictor:    opts.Predictor,
		health:       opts.Health,
		metrics:      opts.Metrics,
		tokens:       opts.Tokens,
		audit:        opts.Audit,
		logger:       opts.Logger.With(logging.Component("api")),
		limits:       opts.Limits,
		routeTimeout: opts.RouteTimeout,
		clientIP:     clientIP,
		opts:         opts,
		startTime:    time.Now(),
	}
	if opts.RateLimitRPS > 0 {
		s.rateLimiter = middleware.NewRateLimiter(
			middleware.DefaultRateLimitConfig(opts.RateLimitRPS, opts.RateLimitBurst), opts.Logger)
	}
	if s.tokens == nil {
		s.logger.Warn("admin endpoints are unauthenticated; set auth.jwt_secret to protect them")
	}
	return s, nil
}

// Handler builds the router with the full middleware chain.
func (s *Server) Handler() (http.Handler, error) {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, http.StatusNotFound, codeNotFound, "no such endpoint")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})
	if s.metrics != nil {
		router.Use(middleware.Metrics(s.metrics))
	}

	router.HandleFunc("/routes", s.withTimeout(s.handleRoutes)).Methods(http.MethodPost)
	router.HandleFunc("/graph", s.handleGraph).Methods(http.MethodGet)
	router.HandleFunc("/nodes", s.handleNodes).Methods(http.MethodGet)
	router.HandleFunc("/corridors", s.handleCorridors).Methods(http.MethodGet)
	router.HandleFunc("/corridors/{from}/{to}", s.handleCorridor).Methods(http.MethodGet)
	router.HandleFunc("/predict-edge", s.handlePredictEdge).Methods(http.MethodPost)
	router.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)

	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireRole)
	admin.HandleFunc("/reload-graph", s.handleReloadGraph).Methods(http.MethodPost)
	admin.HandleFunc("/audit", s.handleAudit).Methods(http.MethodGet)

	if s.health != nil {
		router.Handle("/health", s.health.HTTPHandler()).Methods(http.MethodGet)
		router.Handle("/health/ready", s.health.ReadinessHandler()).Methods(http.MethodGet)
		router.Handle("/health/live", s.health.LivenessHandler()).Methods(http.MethodGet)
	}
	if s.metrics != nil {
		router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	resolver, err := graphql.NewResolver(s.engine, s.limits, graphql.DefaultLimitConfig())
	if err != nil {
		return nil, err
	}
	schema, err := resolver.Schema()
	if err != nil {
		return nil, err
	}
	gql := graphql.NewGraphQLHandler(schema, graphql.DefaultMaxDepth)
	router.Handle("/graphql", s.withTimeout(gql.ServeHTTP)).Methods(http.MethodGet, http.MethodPost)

	var h http.Handler = router
	h = middleware.BodySizeLimit(s.opts.MaxBodyBytes)(h)
	h = middleware.RateLimit(s.rateLimiter, s.clientIP.ClientIP)(h)
	h = middleware.CORS(middleware.DefaultCORSConfig(s.opts.CORSOrigins))(h)
	h = middleware.SecurityHeaders(&middleware.SecurityHeadersConfig{TLSEnabled: s.opts.TLSEnabled})(h)
	h = middleware.Logging(s.logger)(h)
	h = middleware.PanicRecovery(s.logger)(h)
	h = middleware.RequestID()(h)
	return h, nil
}

// Close releases background resources.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}
