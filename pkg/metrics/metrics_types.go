package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the service
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Routing Metrics
	RouteRequestsTotal     *prometheus.CounterVec
	RouteDuration          *prometheus.HistogramVec
	RoutePathsReturned     prometheus.Histogram
	RouteSearchExpansions  prometheus.Histogram
	RouteFallbackSearches  prometheus.Counter
	RouteTruncatedSearches prometheus.Counter
	RouteRepairsTotal      *prometheus.CounterVec

	// Graph Metrics
	GraphNodes           prometheus.Gauge
	GraphEdges           prometheus.Gauge
	GraphReloadsTotal    *prometheus.CounterVec
	GraphReloadDuration  prometheus.Histogram
	GraphLastReloadEpoch prometheus.Gauge

	// Ingest Metrics
	IngestRowsTotal        *prometheus.CounterVec
	PredictorRequestsTotal *prometheus.CounterVec
	PredictorDuration      prometheus.Histogram

	// Auth Metrics
	AuthFailuresTotal prometheus.Counter

	// System Metrics
	UptimeSeconds     prometheus.Gauge
	GoRoutines        prometheus.Gauge
	MemoryAllocBytes  prometheus.Gauge
	MemorySysBytes    prometheus.Gauge
	SearchWorkers     prometheus.Gauge
	SearchWorkersBusy prometheus.Gauge
	SearchQueueDepth  prometheus.Gauge
	GraphAgeSeconds   prometheus.Gauge

	registry  *prometheus.Registry
	startTime time.Time
	pool      PoolStats
	builtAt   func() time.Time
	mu        sync.RWMutex
}

// PoolStats reports worker pool occupancy.
type PoolStats interface {
	Workers() int
	Busy() int
	Queued() int
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	r.initHTTPMetrics()
	r.initRoutingMetrics()
	r.initGraphMetrics()
	r.initIngestMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
