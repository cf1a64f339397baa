package routing

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-corridors/pkg/corridor"
	"github.com/dd0wney/cluso-corridors/pkg/logging"
	"github.com/dd0wney/cluso-corridors/pkg/parallel"
)

// Request defaults.
const (
	DefaultK       = 3
	DefaultMaxHops = 3
)

// Route request outcomes reported to the Recorder.
const (
	StatusOK          = "ok"
	StatusNotFound    = "node_not_found"
	StatusNoPath      = "no_path"
	StatusTimeout     = "timeout"
	StatusUnavailable = "unavailable"
	StatusError       = "error"
)

// Repair kinds reported to the Recorder.
const (
	RepairWeights = "weights"
	RepairScore   = "score"
)

// Recorder receives routing metrics.
type Recorder interface {
	RecordRouteRequest(status string, duration time.Duration)
	RecordSearch(expansions, paths int, fallback, truncated bool)
	RecordRepair(kind string)
}

type nopRecorder struct{}

func (nopRecorder) RecordRouteRequest(string, time.Duration) {}
func (nopRecorder) RecordSearch(int, int, bool, bool)        {}
func (nopRecorder) RecordRepair(string)                      {}

// GraphSource hands out the graph snapshot for one request.
// *corridor.Store implements it.
type GraphSource interface {
	Current() *corridor.Graph
}

// EngineConfig holds request defaults and resource bounds.
type EngineConfig struct {
	DefaultK       int
	DefaultMaxHops int
	MaxExpansions  int
	// ScoreWorkers bounds concurrent breakdown/score goroutines per request.
	ScoreWorkers int
}

// Engine answers routing requests against the current graph snapshot.
type Engine struct {
	graphs   GraphSource
	enum     *Enumerator
	pool     *parallel.WorkerPool
	cfg      EngineConfig
	logger   logging.Logger
	recorder Recorder
}

// NewEngine creates an engine. pool may be nil, in which case searches run on
// the calling goroutine.
func NewEngine(graphs GraphSource, pool *parallel.WorkerPool, cfg EngineConfig, logger logging.Logger) *Engine {
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = DefaultK
	}
	if cfg.DefaultMaxHops <= 0 {
		cfg.DefaultMaxHops = DefaultMaxHops
	}
	if cfg.ScoreWorkers <= 0 {
		cfg.ScoreWorkers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Engine{
		graphs:   graphs,
		enum:     NewEnumerator(Options{MaxExpansions: cfg.MaxExpansions}),
		pool:     pool,
		cfg:      cfg,
		logger:   logger.With(logging.Component("routing")),
		recorder: nopRecorder{},
	}
}

// SetRecorder attaches a metrics recorder.
func (e *Engine) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	e.recorder = r
}

// Graph returns the snapshot the next request would use.
func (e *Engine) Graph() *corridor.Graph {
	return e.graphs.Current()
}

// Route enumerates, scores and ranks routes for req.
func (e *Engine) Route(ctx context.Context, req Request) (resp Response, err error) {
	start := time.Now()
	defer func() {
		e.recorder.RecordRouteRequest(statusOf(err), time.Since(start))
	}()

	k, maxHops, raw := e.resolve(req)
	weights, repaired := raw.Normalize()
	if repaired {
		e.recorder.RecordRepair(RepairWeights)
		e.logger.Debug("weights replaced with defaults",
			logging.Float64("cost", raw.Cost),
			logging.Float64("time", raw.Time),
			logging.Float64("risk", raw.Risk),
		)
	}

	g := e.graphs.Current()
	if g == nil {
		return Response{}, ErrGraphUnavailable
	}
	if !g.HasNode(req.Source) {
		return Response{}, fmt.Errorf("%w: source %q", ErrNodeNotFound, req.Source)
	}
	if !g.HasNode(req.Destination) {
		return Response{}, fmt.Errorf("%w: destination %q", ErrNodeNotFound, req.Destination)
	}

	res, err := e.search(ctx, g, req.Source, req.Destination, k, maxHops)
	if err != nil {
		return Response{}, err
	}
	e.recorder.RecordSearch(res.Expansions, len(res.Paths), res.Fallback, res.Truncated)
	if res.Fallback {
		e.logger.Warn("degenerate corridor weight, used exhaustive search",
			logging.Source(req.Source), logging.Destination(req.Destination))
	}
	if res.Truncated {
		e.logger.Warn("route search hit expansion limit",
			logging.Source(req.Source),
			logging.Destination(req.Destination),
			logging.Int("expansions", res.Expansions),
			logging.Count(len(res.Paths)),
		)
	}
	if len(res.Paths) == 0 {
		return Response{}, fmt.Errorf("%w: %s -> %s within %d hops", ErrNoPathFound, req.Source, req.Destination, maxHops)
	}

	scored, err := e.score(ctx, g, res.Paths, raw)
	if err != nil {
		return Response{}, err
	}
	ranked := Rank(scored, raw, req.HigherIsBetter)

	resp = Response{
		Source:         req.Source,
		Destination:    req.Destination,
		K:              k,
		MaxHops:        maxHops,
		Weights:        weights,
		HigherIsBetter: req.HigherIsBetter,
		Routes:         make([]Route, len(ranked)),
		Fallback:       res.Fallback,
		Truncated:      res.Truncated,
		GraphBuiltAt:   g.Stats().BuiltAt,
	}
	for i, r := range ranked {
		if r.Repaired {
			e.recorder.RecordRepair(RepairScore)
		}
		resp.Routes[i] = newRoute(r)
	}

	e.logger.Debug("routes ranked",
		logging.Source(req.Source),
		logging.Destination(req.Destination),
		logging.Count(len(resp.Routes)),
		logging.Route(resp.Routes[0].Path),
		logging.Latency(time.Since(start)),
	)
	return resp, nil
}

func (e *Engine) resolve(req Request) (k, maxHops int, w Weights) {
	k, maxHops, w = e.cfg.DefaultK, e.cfg.DefaultMaxHops, DefaultWeights
	if req.K != nil {
		k = *req.K
	}
	if req.MaxHops != nil {
		maxHops = *req.MaxHops
	}
	if req.Weights != nil {
		w = *req.Weights
	}
	return k, maxHops, w
}

type searchOutcome struct {
	res SearchResult
	err error
}

// search runs the enumeration on the worker pool and waits for it or ctx.
func (e *Engine) search(ctx context.Context, g corridor.Handle, src, dst string, k, maxHops int) (SearchResult, error) {
	if e.pool == nil {
		return e.enum.TopK(ctx, g, src, dst, k, maxHops)
	}

	done := make(chan searchOutcome, 1)
	err := e.pool.SubmitContext(ctx, func() {
		defer func() {
			if r := recover(); r != nil {
				done <- searchOutcome{err: fmt.Errorf("route search panic: %v", r)}
			}
		}()
		res, err := e.enum.TopK(ctx, g, src, dst, k, maxHops)
		done <- searchOutcome{res: res, err: err}
	})
	if err != nil {
		return SearchResult{}, fmt.Errorf("schedule route search: %w", err)
	}

	select {
	case out := <-done:
		return out.res, out.err
	case <-ctx.Done():
		return SearchResult{}, ctx.Err()
	}
}

// score builds breakdowns and composite scores concurrently, keeping the
// enumerator's order.
func (e *Engine) score(ctx context.Context, g corridor.Handle, paths []Path, w Weights) ([]ScoredRoute, error) {
	scored := make([]ScoredRoute, len(paths))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.cfg.ScoreWorkers)
	for i, p := range paths {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			b, err := BreakdownPath(g, p)
			if err != nil {
				return err
			}
			scored[i] = Score(b, w)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return scored, nil
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrNodeNotFound):
		return StatusNotFound
	case errors.Is(err, ErrNoPathFound):
		return StatusNoPath
	case errors.Is(err, ErrGraphUnavailable):
		return StatusUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return StatusTimeout
	default:
		return StatusError
	}
}
