package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/dd0wney/cluso-corridors/pkg/logging"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
})

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

// --- BodySizeLimit ---

func TestBodySizeLimit_AllowsSmallRequest(t *testing.T) {
	handler := BodySizeLimit(1024)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/", strings.NewReader("small body")))

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Body.String() != "small body" {
		t.Errorf("Expected echoed body, got %q", rr.Body.String())
	}
}

func TestBodySizeLimit_RejectsLargeContentLength(t *testing.T) {
	handler := BodySizeLimit(100)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called for oversized request")
	}))

	req := httptest.NewRequest("POST", "/", strings.NewReader(""))
	req.ContentLength = 1000
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status %d, got %d", http.StatusRequestEntityTooLarge, rr.Code)
	}
	if body := decodeError(t, rr); body.Code != "BODY_TOO_LARGE" {
		t.Errorf("Expected code BODY_TOO_LARGE, got %q", body.Code)
	}
}

func TestBodySizeLimit_LimitsChunkedBody(t *testing.T) {
	var readErr error
	handler := BodySizeLimit(10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 100)))
	req.ContentLength = -1
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if readErr == nil {
		t.Error("Expected the body reader to fail past the limit")
	}
}

// --- PanicRecovery ---

func TestPanicRecovery_HandlesNormalRequest(t *testing.T) {
	rr := httptest.NewRecorder()
	PanicRecovery(nil)(okHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusOK || rr.Body.String() != "OK" {
		t.Errorf("Expected 200 OK, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestPanicRecovery_RecoversPanic(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.NewJSONLogger(&logs, logging.DebugLevel)

	handler := RequestID()(PanicRecovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("secret detail")
	})))

	req := httptest.NewRequest("GET", "/boom", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
	if strings.Contains(rr.Body.String(), "secret detail") {
		t.Error("Panic value leaked to the client")
	}
	body := decodeError(t, rr)
	if body.RequestID != "req-1" {
		t.Errorf("Expected request_id req-1, got %q", body.RequestID)
	}
	if !strings.Contains(logs.String(), "secret detail") {
		t.Error("Expected panic value in the log")
	}
}

// --- Logging ---

func TestLogging_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "DEBUG"},
		{http.StatusNotFound, "WARN"},
		{http.StatusServiceUnavailable, "ERROR"},
	}
	for _, tt := range tests {
		var logs bytes.Buffer
		logger := logging.NewJSONLogger(&logs, logging.DebugLevel)
		handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/routes", nil))

		var entry logging.LogEntry
		if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
			t.Fatalf("status %d: decode log line: %v", tt.status, err)
		}
		if entry.Level != tt.level {
			t.Errorf("status %d: expected level %s, got %s", tt.status, tt.level, entry.Level)
		}
		if entry.Fields["status"] != float64(tt.status) {
			t.Errorf("status %d: logged status %v", tt.status, entry.Fields["status"])
		}
	}
}

func TestLogging_IncludesRequestID(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.NewJSONLogger(&logs, logging.DebugLevel)
	handler := RequestID()(Logging(logger)(okHandler))

	req := httptest.NewRequest("GET", "/graph", nil)
	req.Header.Set(RequestIDHeader, "trace-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(logs.String(), `"request_id":"trace-42"`) {
		t.Errorf("Expected request_id in log line, got %s", logs.String())
	}
}

// --- RequestID ---

func TestRequestID_GeneratesUUID(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if len(seen) != 36 {
		t.Errorf("Expected a UUID, got %q", seen)
	}
	if rr.Header().Get(RequestIDHeader) != seen {
		t.Errorf("Expected header %q, got %q", seen, rr.Header().Get(RequestIDHeader))
	}
}

func TestRequestID_UsesClientProvided(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "client-id_1.2")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "client-id_1.2" {
		t.Errorf("Expected client id, got %q", seen)
	}
}

func TestRequestID_ReplacesUnusableInput(t *testing.T) {
	var seen string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "<>!!")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(seen) != 36 {
		t.Errorf("Expected a generated UUID, got %q", seen)
	}
}

func TestSanitizeRequestID(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"abc-123", "abc-123"},
		{"a b\nc", "abc"},
		{"<script>", "script"},
		{strings.Repeat("x", 100), strings.Repeat("x", maxRequestIDLength)},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeRequestID(tt.input); got != tt.want {
			t.Errorf("sanitizeRequestID(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestGetRequestID_NoContext(t *testing.T) {
	if id := GetRequestID(httptest.NewRequest("GET", "/", nil)); id != "" {
		t.Errorf("Expected empty request ID, got %q", id)
	}
}

// --- CORS ---

func TestCORS_AllowedOrigin(t *testing.T) {
	handler := CORS(DefaultCORSConfig([]string{"https://ops.example"}))(okHandler)

	req := httptest.NewRequest("GET", "/graph", nil)
	req.Header.Set("Origin", "https://ops.example")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://ops.example" {
		t.Errorf("Expected allowed origin header, got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("Unexpected methods %q", got)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	handler := CORS(DefaultCORSConfig([]string{"https://ops.example"}))(okHandler)

	req := httptest.NewRequest("GET", "/graph", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("CORS header set for a disallowed origin")
	}
	if rr.Code != http.StatusOK {
		t.Errorf("Expected simple request to pass through, got %d", rr.Code)
	}
}

func TestCORS_Wildcard(t *testing.T) {
	handler := CORS(DefaultCORSConfig([]string{"*"}))(okHandler)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://any.example")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "https://any.example" {
		t.Error("Expected wildcard to allow any origin")
	}
}

func TestCORS_Preflight(t *testing.T) {
	handler := CORS(DefaultCORSConfig([]string{"https://ops.example"}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Preflight should not reach the handler")
	}))

	for origin, want := range map[string]int{
		"https://ops.example":  http.StatusNoContent,
		"https://evil.example": http.StatusForbidden,
	} {
		req := httptest.NewRequest("OPTIONS", "/routes", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "POST")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Errorf("%s: expected %d, got %d", origin, want, rr.Code)
		}
	}
}

func TestCORS_NilConfig(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://ops.example")
	rr := httptest.NewRecorder()
	CORS(nil)(okHandler).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("Expected passthrough without CORS headers, got %d", rr.Code)
	}
}

// --- SecurityHeaders ---

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(&SecurityHeadersConfig{TLSEnabled: true})(okHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	for header, want := range map[string]string{
		"X-Frame-Options":           "DENY",
		"X-Content-Type-Options":    "nosniff",
		"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	} {
		if got := rr.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestSecurityHeaders_NoTLS(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(nil)(okHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS set without TLS")
	}
}

// --- Metrics ---

type mockMetricsRecorder struct {
	requests      []string
	responseSizes []float64
	inFlight      int
}

func (m *mockMetricsRecorder) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.requests = append(m.requests, method+" "+path+" "+status)
}

func (m *mockMetricsRecorder) RecordResponseSize(method, path string, size float64) {
	m.responseSizes = append(m.responseSizes, size)
}

func (m *mockMetricsRecorder) IncHTTPRequestsInFlight() { m.inFlight++ }
func (m *mockMetricsRecorder) DecHTTPRequestsInFlight() { m.inFlight-- }

func TestMetrics_LabelsByRouteTemplate(t *testing.T) {
	recorder := &mockMetricsRecorder{}
	router := mux.NewRouter()
	router.Use(Metrics(recorder))
	router.HandleFunc("/corridors/{from}/{to}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Hello"))
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/corridors/US/MX", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/corridors/GB/IN", nil))

	if len(recorder.requests) != 2 {
		t.Fatalf("Expected 2 recorded requests, got %d", len(recorder.requests))
	}
	for _, got := range recorder.requests {
		if got != "GET /corridors/{from}/{to} 200" {
			t.Errorf("Unexpected recorded request: %s", got)
		}
	}
	if recorder.responseSizes[0] != 5 {
		t.Errorf("Expected response size 5, got %v", recorder.responseSizes[0])
	}
}

func TestMetrics_UnmatchedOutsideRouter(t *testing.T) {
	recorder := &mockMetricsRecorder{}
	handler := Metrics(recorder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))

	if len(recorder.requests) != 1 || recorder.requests[0] != "GET unmatched 418" {
		t.Errorf("Unexpected recorded requests: %v", recorder.requests)
	}
}

func TestMetrics_TracksInFlight(t *testing.T) {
	recorder := &mockMetricsRecorder{}
	var during int
	handler := Metrics(recorder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = recorder.inFlight
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if during != 1 {
		t.Errorf("Expected in-flight 1 during request, got %d", during)
	}
	if recorder.inFlight != 0 {
		t.Errorf("Expected in-flight 0 after request, got %d", recorder.inFlight)
	}
}

func TestMetrics_NilRecorder(t *testing.T) {
	rr := httptest.NewRecorder()
	Metrics(nil)(okHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestStatusRecorder_FirstHeaderWins(t *testing.T) {
	sr := newStatusRecorder(httptest.NewRecorder())
	sr.WriteHeader(http.StatusAccepted)
	sr.WriteHeader(http.StatusInternalServerError)
	if sr.status != http.StatusAccepted {
		t.Errorf("Expected status %d, got %d", http.StatusAccepted, sr.status)
	}
	if newStatusRecorder(sr) != sr {
		t.Error("Expected an existing recorder to be reused")
	}
}

// --- RateLimiter ---

func newTestLimiter(rps float64, burst int) (*RateLimiter, *time.Time) {
	cfg := DefaultRateLimitConfig(rps, burst)
	cfg.CleanupInterval = 0
	rl := NewRateLimiter(cfg, nil)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiter_Burst(t *testing.T) {
	rl, _ := newTestLimiter(1, 3)
	defer rl.Stop()

	for i := range 3 {
		if !rl.Allow("a") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.Allow("a") {
		t.Error("fourth request should be limited")
	}
	if !rl.Allow("b") {
		t.Error("other clients have their own bucket")
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	rl, now := newTestLimiter(2, 1)
	defer rl.Stop()

	if !rl.Allow("a") || rl.Allow("a") {
		t.Fatal("expected one token then empty")
	}
	*now = now.Add(500 * time.Millisecond)
	if !rl.Allow("a") {
		t.Error("expected a token after half a second at 2 rps")
	}
}

func TestRateLimiter_MaxClients(t *testing.T) {
	rl, _ := newTestLimiter(1, 1)
	rl.config.MaxClients = 2
	defer rl.Stop()

	rl.Allow("a")
	rl.Allow("b")
	if rl.Allow("c") {
		t.Error("new client beyond MaxClients should be refused")
	}
	if rl.Clients() != 2 {
		t.Errorf("Expected 2 tracked clients, got %d", rl.Clients())
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl, now := newTestLimiter(1, 1)
	defer rl.Stop()

	rl.Allow("idle")
	*now = now.Add(rl.config.ClientExpiration + time.Second)
	rl.Allow("fresh")

	if removed := rl.cleanup(); removed != 1 {
		t.Errorf("Expected 1 removed client, got %d", removed)
	}
	if rl.Clients() != 1 {
		t.Errorf("Expected 1 remaining client, got %d", rl.Clients())
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(0.5, 1)
	defer rl.Stop()

	resolver, err := NewClientIPResolver(nil)
	if err != nil {
		t.Fatal(err)
	}
	handler := RateLimit(rl, resolver.ClientIP)(okHandler)

	req := httptest.NewRequest("GET", "/routes", nil)
	req.RemoteAddr = "203.0.113.7:5555"

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, req)
	if first.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", second.Code)
	}
	if got := second.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Expected Retry-After 2, got %q", got)
	}
	if body := decodeError(t, second); body.Code != "RATE_LIMITED" {
		t.Errorf("Expected code RATE_LIMITED, got %q", body.Code)
	}
}

func TestRateLimit_NilLimiter(t *testing.T) {
	rr := httptest.NewRecorder()
	RateLimit(nil, nil)(okHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestRateLimiter_StopTwice(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimitConfig(1, 1), logging.NewNopLogger())
	rl.Stop()
	rl.Stop()
}
