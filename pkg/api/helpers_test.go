package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-corridors/pkg/auth"
	"github.com/dd0wney/cluso-corridors/pkg/corridor"
	"github.com/dd0wney/cluso-corridors/pkg/health"
	"github.com/dd0wney/cluso-corridors/pkg/ingest"
	"github.com/dd0wney/cluso-corridors/pkg/metrics"
	"github.com/dd0wney/cluso-corridors/pkg/routing"
	"github.com/dd0wney/cluso-corridors/pkg/validation"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// testGraph: A->B->C is cheaper than the direct A->C corridor, whose
// friction comes from the proxy (200bps/100 + 2 + 100/100 = 5).
func testGraph(t *testing.T) *corridor.Graph {
	t.Helper()
	b := corridor.NewBuilder().WithSource("test.csv")
	observed := corridor.Attributes{
		Friction:           corridor.Float(1),
		TotalCostPct:       corridor.Float(1),
		SettlementTimeDays: corridor.Float(1),
	}
	require.NoError(t, b.AddCorridor("A", "B", observed))
	require.NoError(t, b.AddCorridor("B", "C", observed))
	require.NoError(t, b.AddCorridor("A", "C", corridor.Attributes{
		FXSpreadBps:        200,
		TransferFeePercent: 2,
		TaxRatePercent:     100,
	}))
	return b.Build()
}

type fakePredictor struct {
	pred ingest.Prediction
	err  error
	got  ingest.PredictRequest
}

func (f *fakePredictor) Predict(_ context.Context, req ingest.PredictRequest) (ingest.Prediction, error) {
	f.got = req
	return f.pred, f.err
}

type testServer struct {
	handler http.Handler
	store   *corridor.Store
	metrics *metrics.Registry
	jwt     *auth.JWTManager
}

// newTestServer wires a server over initial. build, when set, backs reloads.
func newTestServer(t *testing.T, initial *corridor.Graph, build corridor.BuildFunc, mutate func(*Options)) *testServer {
	t.Helper()
	store := corridor.NewStore(initial, build, nil)
	engine := routing.NewEngine(store, nil, routing.EngineConfig{}, nil)

	hc := health.NewHealthChecker()
	hc.RegisterReadinessCheck("graph", health.GraphCheck(store.Current, 0))

	jwt, err := auth.NewJWTManager(testSecret, "corridord", time.Hour)
	require.NoError(t, err)

	reg := metrics.NewRegistry()
	opts := Options{
		Engine:  engine,
		Store:   store,
		Health:  hc,
		Metrics: reg,
		Tokens:  jwt,
		Limits:  validation.Limits{MaxK: 10, MaxHops: 5},
		Version: "test",
	}
	if mutate != nil {
		mutate(&opts)
	}

	srv, err := NewServer(opts)
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	h, err := srv.Handler()
	require.NoError(t, err)
	return &testServer{handler: h, store: store, metrics: reg, jwt: jwt}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.10:4000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) bearer(t *testing.T, role string) http.Header {
	t.Helper()
	token, err := ts.jwt.GenerateToken("ops@example.com", role)
	require.NoError(t, err)
	return http.Header{"Authorization": {"Bearer " + token}}
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
}
