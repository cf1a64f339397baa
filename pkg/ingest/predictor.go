package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/dd0wney/cluso-corridors/pkg/logging"
)

// MinSettlementDays is the floor applied to predicted settlement times.
const MinSettlementDays = 0.1

// PredictPath is the model endpoint joined onto the configured base URL.
const PredictPath = "/predict-edge"

// ErrPredictorUnavailable is returned while the predictor circuit is open.
var ErrPredictorUnavailable = errors.New("edge predictor unavailable")

// Prediction holds the three corridor metrics estimated by a predictor.
type Prediction struct {
	Friction           float64 `json:"friction"`
	TotalCostPct       float64 `json:"total_cost_pct"`
	SettlementTimeDays float64 `json:"settlement_time_days"`
}

// Clamp keeps predictions in their valid ranges.
func (p Prediction) Clamp() Prediction {
	p.Friction = math.Max(0, p.Friction)
	p.TotalCostPct = math.Max(0, p.TotalCostPct)
	p.SettlementTimeDays = math.Max(MinSettlementDays, p.SettlementTimeDays)
	return p
}

func (p Prediction) finite() bool {
	for _, v := range []float64{p.Friction, p.TotalCostPct, p.SettlementTimeDays} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// PredictRequest is the body sent to a predictor.
type PredictRequest struct {
	SourceCountry      string             `json:"source_country"`
	DestinationCountry string             `json:"destination_country"`
	Features           map[string]float64 `json:"features"`
}

// Predictor estimates missing corridor metrics.
type Predictor interface {
	Predict(ctx context.Context, req PredictRequest) (Prediction, error)
}

// PredictorRecorder receives predictor call outcomes.
type PredictorRecorder interface {
	RecordPredictorCall(status string, duration time.Duration)
}

// PredictorConfig configures an HTTPPredictor.
type PredictorConfig struct {
	// URL is the model service base URL. PredictPath is appended unless the
	// URL already ends with it.
	URL     string
	Timeout time.Duration

	// Circuit breaker settings.
	MaxRequests      uint32
	Interval         time.Duration
	OpenTimeout      time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultPredictorConfig returns conservative breaker settings for url.
func DefaultPredictorConfig(url string) PredictorConfig {
	return PredictorConfig{
		URL:              url,
		Timeout:          5 * time.Second,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		OpenTimeout:      30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// HTTPPredictor calls a remote model over HTTP behind a circuit breaker.
type HTTPPredictor struct {
	url      string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	logger   logging.Logger
	recorder PredictorRecorder
}

// NewHTTPPredictor creates a predictor. recorder may be nil.
func NewHTTPPredictor(cfg PredictorConfig, logger logging.Logger, recorder PredictorRecorder) *HTTPPredictor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	logger = logger.With(logging.Component("predictor"))

	p := &HTTPPredictor{
		url:      predictEndpoint(cfg.URL),
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
		recorder: recorder,
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "edge-predictor",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about predictor health.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return p
}

func predictEndpoint(base string) string {
	if strings.HasSuffix(strings.TrimRight(base, "/"), PredictPath) {
		return base
	}
	joined, err := url.JoinPath(base, PredictPath)
	if err != nil {
		return base
	}
	return joined
}

// State returns the breaker state: "closed", "half-open" or "open".
func (p *HTTPPredictor) State() string {
	return p.breaker.State().String()
}

// Predict posts the request and returns the clamped prediction.
func (p *HTTPPredictor) Predict(ctx context.Context, req PredictRequest) (Prediction, error) {
	start := time.Now()
	out, err := p.breaker.Execute(func() (any, error) {
		return p.call(ctx, req)
	})
	switch {
	case err == nil:
		p.record("ok", start)
		return out.(Prediction), nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		p.record("rejected", start)
		return Prediction{}, fmt.Errorf("%w: %v", ErrPredictorUnavailable, err)
	default:
		p.record("error", start)
		return Prediction{}, err
	}
}

func (p *HTTPPredictor) call(ctx context.Context, req PredictRequest) (Prediction, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("encode prediction request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("build prediction request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Prediction{}, fmt.Errorf("call predictor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Prediction{}, fmt.Errorf("predictor returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var pred Prediction
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&pred); err != nil {
		return Prediction{}, fmt.Errorf("decode prediction: %w", err)
	}
	if !pred.finite() {
		return Prediction{}, errors.New("predictor returned non-finite metrics")
	}
	return pred.Clamp(), nil
}

func (p *HTTPPredictor) record(status string, start time.Time) {
	if p.recorder != nil {
		p.recorder.RecordPredictorCall(status, time.Since(start))
	}
}
