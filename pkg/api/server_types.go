package api

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-corridors/pkg/api/middleware"
	"github.com/dd0wney/cluso-corridors/pkg/audit"
	"github.com/dd0wney/cluso-corridors/pkg/auth"
	"github.com/dd0wney/cluso-corridors/pkg/health"
	"github.com/dd0wney/cluso-corridors/pkg/ingest"
	"github.com/dd0wney/cluso-corridors/pkg/logging"
	"github.com/dd0wney/cluso-corridors/pkg/metrics"
	"github.com/dd0wney/cluso-corridors/pkg/routing"
	"github.com/dd0wney/cluso-corridors/pkg/validation"
)

// DefaultRouteTimeout bounds one POST /routes or GraphQL request.
const DefaultRouteTimeout = 10 * time.Second

// Reloader rebuilds the corridor graph. *corridor.Store implements it.
type Reloader interface {
	Reload(ctx context.Context) error
	Reloads() uint64
}

// Options wires a Server. Engine is required; everything else is optional.
type Options struct {
	Engine *routing.Engine
	Store  Reloader
	// Predictor serves POST /predict-edge; nil answers 503.
	Predictor ingest.Predictor
	Health    *health.HealthChecker
	Metrics   *metrics.Registry
	// Tokens protects POST /admin/reload-graph; nil leaves it open.
	Tokens auth.TokenValidator
	// Audit records admin actions and serves GET /admin/audit; nil disables both.
	Audit  *audit.Trail
	Logger logging.Logger

	Limits       validation.Limits
	RouteTimeout time.Duration

	CORSOrigins    []string
	TrustedProxies []string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
	TLSEnabled     bool
	Version        string
}

// Server is the HTTP API of the corridor router.
type Server struct {
	engine       *routing.Engine
	store        Reloader
	predictor    ingest.Predictor
	health       *health.HealthChecker
	metrics      *metrics.Registry
	tokens       auth.TokenValidator
	audit        *audit.Trail
	logger       logging.Logger
	limits       validation.Limits
	routeTimeout time.Duration
	clientIP     *middleware.ClientIPResolver
	rateLimiter  *middleware.RateLimiter
	opts         Options
	startTime    time.Time
}
