package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

// MetricsRecorder receives HTTP metrics. *metrics.Registry implements it.
type MetricsRecorder interface {
	RecordHTTPRequest(method, path, status string, duration time.Duration)
	RecordResponseSize(method, path string, size float64)
	IncHTTPRequestsInFlight()
	DecHTTPRequestsInFlight()
}

// unmatchedRoute labels requests no route matched.
const unmatchedRoute = "unmatched"

// RouteTemplate returns the mux path template of the matched route, so that
// /corridors/US/MX and /corridors/GB/IN share the label /corridors/{from}/{to}.
func RouteTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return unmatchedRoute
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return unmatchedRoute
	}
	return tpl
}

// Metrics records request counts, latency and response size. It must run
// inside the router (router.Use) for RouteTemplate to see the match.
func Metrics(recorder MetricsRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder.IncHTTPRequestsInFlight()
			defer recorder.DecHTTPRequestsInFlight()

			sr := newStatusRecorder(w)
			next.ServeHTTP(sr, r)

			path := RouteTemplate(r)
			recorder.RecordHTTPRequest(r.Method, path, strconv.Itoa(sr.status), time.Since(start))
			recorder.RecordResponseSize(r.Method, path, float64(sr.bytes))
		})
	}
}
