package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRoutingMetrics() {
	r.RouteRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "corridor_route_requests_total",
			Help: "Routing requests by outcome",
		},
		[]string{"status"},
	)

	r.RouteDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "corridor_route_duration_seconds",
			Help:    "Time to enumerate, score and rank routes",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"status"},
	)

	r.RoutePathsReturned = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "corridor_route_paths_returned",
			Help:    "Paths returned by one enumeration",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
		},
	)

	r.RouteSearchExpansions = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "corridor_route_search_expansions",
			Help:    "Queue pops and visits spent by one enumeration",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		},
	)

	r.RouteFallbackSearches = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "corridor_route_fallback_searches_total",
			Help: "Enumerations that switched to exhaustive search",
		},
	)

	r.RouteTruncatedSearches = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "corridor_route_truncated_searches_total",
			Help: "Enumerations stopped by the expansion limit",
		},
	)

	r.RouteRepairsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "corridor_route_repairs_total",
			Help: "Invalid weights or scores replaced during ranking",
		},
		[]string{"kind"},
	)
}
