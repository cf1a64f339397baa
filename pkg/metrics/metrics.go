package metrics

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordResponseSize records the size of a response body
func (r *Registry) RecordResponseSize(method, path string, size float64) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(size)
}

func (r *Registry) IncHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Inc() }
func (r *Registry) DecHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Dec() }

// RecordAuthFailure counts a rejected admin request
func (r *Registry) RecordAuthFailure() {
	r.AuthFailuresTotal.Inc()
}

// RecordRouteRequest records the outcome of one routing request
func (r *Registry) RecordRouteRequest(status string, duration time.Duration) {
	r.RouteRequestsTotal.WithLabelValues(status).Inc()
	r.RouteDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordSearch records the work done by one enumeration
func (r *Registry) RecordSearch(expansions, paths int, fallback, truncated bool) {
	r.RouteSearchExpansions.Observe(float64(expansions))
	r.RoutePathsReturned.Observe(float64(paths))
	if fallback {
		r.RouteFallbackSearches.Inc()
	}
	if truncated {
		r.RouteTruncatedSearches.Inc()
	}
}

// RecordRepair counts a repaired weight triple or score
func (r *Registry) RecordRepair(kind string) {
	r.RouteRepairsTotal.WithLabelValues(kind).Inc()
}

// RecordGraphReload records a graph rebuild. Graph size gauges only move on success.
func (r *Registry) RecordGraphReload(status string, duration time.Duration, nodes, edges int) {
	r.GraphReloadsTotal.WithLabelValues(status).Inc()
	r.GraphReloadDuration.Observe(duration.Seconds())
	if status != "success" {
		return
	}
	r.SetGraphSize(nodes, edges)
	r.GraphLastReloadEpoch.Set(float64(time.Now().Unix()))
}

// SetGraphSize sets the node and edge gauges
func (r *Registry) SetGraphSize(nodes, edges int) {
	r.GraphNodes.Set(float64(nodes))
	r.GraphEdges.Set(float64(edges))
}

// RecordIngestRow counts a row by outcome (accepted, predicted, skipped, invalid)
func (r *Registry) RecordIngestRow(outcome string) {
	r.IngestRowsTotal.WithLabelValues(outcome).Inc()
}

// RecordPredictorCall records one metric predictor call
func (r *Registry) RecordPredictorCall(status string, duration time.Duration) {
	r.PredictorRequestsTotal.WithLabelValues(status).Inc()
	r.PredictorDuration.Observe(duration.Seconds())
}

// WatchWorkerPool makes UpdateSystemMetrics report the pool's occupancy
func (r *Registry) WatchWorkerPool(p PoolStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pool = p
}

// WatchGraphAge makes UpdateSystemMetrics report the age of the graph whose
// build time builtAt returns. A zero time leaves the gauge untouched.
func (r *Registry) WatchGraphAge(builtAt func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builtAt = builtAt
}

// UpdateSystemMetrics refreshes uptime, goroutine, memory, worker pool and
// graph age gauges
func (r *Registry) UpdateSystemMetrics() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(r.startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))

	if r.pool != nil {
		r.SearchWorkers.Set(float64(r.pool.Workers()))
		r.SearchWorkersBusy.Set(float64(r.pool.Busy()))
		r.SearchQueueDepth.Set(float64(r.pool.Queued()))
	}
	if r.builtAt != nil {
		if at := r.builtAt(); !at.IsZero() {
			r.GraphAgeSeconds.Set(time.Since(at).Seconds())
		}
	}
}

// RunSystemCollector refreshes the system gauges every interval until ctx ends
func (r *Registry) RunSystemCollector(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.UpdateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.UpdateSystemMetrics()
		}
	}
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
