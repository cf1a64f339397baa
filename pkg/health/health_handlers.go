package health

import (
	"encoding/json"
	"net/http"
)

// HTTPHandler serves the overall health. Degraded still answers 200.
func (hc *HealthChecker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := hc.Check()
		writeResponse(w, resp, resp.Status != StatusUnhealthy)
	}
}

// ReadinessHandler answers 200 only when every readiness check is healthy.
func (hc *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := hc.CheckReadiness()
		writeResponse(w, resp, resp.Status == StatusHealthy)
	}
}

// LivenessHandler answers 200 only when every liveness check is healthy.
func (hc *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := hc.CheckLiveness()
		writeResponse(w, resp, resp.Status == StatusHealthy)
	}
}

func writeResponse(w http.ResponseWriter, resp Response, ok bool) {
	w.Header().Set("Content-Type", "application/json")
	if ok {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
