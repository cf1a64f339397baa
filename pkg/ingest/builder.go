package ingest

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-corridors/pkg/corridor"
	"github.com/dd0wney/cluso-corridors/pkg/logging"
)

// DefaultPredictConcurrency bounds concurrent predictor calls during a build.
const DefaultPredictConcurrency = 8

// RowRecorder receives per-row ingest outcomes.
type RowRecorder interface {
	RecordIngestRow(outcome string)
}

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	// Predictor fills metrics missing from a row. Optional.
	Predictor          Predictor
	PredictConcurrency int
	Logger             logging.Logger
	Recorder           RowRecorder
}

// Builder turns a Source into a corridor graph.
type Builder struct {
	source Source
	opts   BuilderOptions
	logger logging.Logger
}

// NewBuilder creates a builder over source.
func NewBuilder(source Source, opts BuilderOptions) *Builder {
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.PredictConcurrency <= 0 {
		opts.PredictConcurrency = DefaultPredictConcurrency
	}
	return &Builder{
		source: source,
		opts:   opts,
		logger: opts.Logger.With(logging.Component("ingest"), logging.String("dataset", source.Name())),
	}
}

// Build reads the source and builds a graph. It matches corridor.BuildFunc.
func (b *Builder) Build(ctx context.Context) (*corridor.Graph, error) {
	timer := logging.StartTimer(b.logger, "build graph")
	rows, err := b.source.Rows(ctx)
	if err != nil {
		timer.EndError(err)
		return nil, fmt.Errorf("read %s: %w", b.source.Name(), err)
	}
	g, err := b.BuildRows(ctx, rows)
	if err != nil {
		timer.EndError(err)
		return nil, err
	}
	timer.End(logging.Int("nodes", g.NodeCount()), logging.Int("edges", g.EdgeCount()))
	return g, nil
}

// BuildRows builds a graph from rows already in memory. Later rows for the
// same ordered pair replace earlier ones.
func (b *Builder) BuildRows(ctx context.Context, rows []Row) (*corridor.Graph, error) {
	parsed := make([]parsedRow, 0, len(rows))
	for i, row := range rows {
		p, err := parseRow(i, row)
		switch {
		case errors.Is(err, errMissingEndpoint):
			b.record(RowSkipped)
			continue
		case err != nil:
			b.logger.Warn("skipping invalid corridor row", logging.Int("row", i), logging.Error(err))
			b.record(RowInvalid)
			continue
		case p.from == p.to:
			b.logger.Warn("skipping self-loop corridor", logging.Int("row", i), logging.String("node", p.from))
			b.record(RowInvalid)
			continue
		}
		parsed = append(parsed, p)
	}

	predicted, err := b.predict(ctx, parsed)
	if err != nil {
		return nil, err
	}

	builder := corridor.NewBuilder().WithSource(b.source.Name())
	for i, p := range parsed {
		if err := builder.AddCorridor(p.from, p.to, p.attrs); err != nil {
			b.record(RowInvalid)
			continue
		}
		if predicted[i] {
			b.record(RowPredicted)
		} else {
			b.record(RowAccepted)
		}
	}
	if builder.Len() == 0 {
		return nil, ErrNoCorridors
	}
	return builder.Build(), nil
}

// predict fills missing metrics in place and reports which rows were
// touched. Predictor failures leave the metrics absent; only cancellation
// aborts the build.
func (b *Builder) predict(ctx context.Context, rows []parsedRow) ([]bool, error) {
	touched := make([]bool, len(rows))
	if b.opts.Predictor == nil {
		return touched, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.PredictConcurrency)
	failed := make([]bool, len(rows))
	for i := range rows {
		if rows[i].attrs.Complete() {
			continue
		}
		g.Go(func() error {
			p := &rows[i]
			pred, err := b.opts.Predictor.Predict(gctx, PredictRequest{
				SourceCountry:      p.from,
				DestinationCountry: p.to,
				Features:           features(p.raw),
			})
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failed[i] = true
				return nil
			}
			fillMissing(&p.attrs, pred)
			touched[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("predict corridor metrics: %w", err)
	}

	failures := 0
	for _, f := range failed {
		if f {
			failures++
		}
	}
	if failures > 0 {
		b.logger.Warn("predictor failed for some corridors; proxy fallbacks apply",
			logging.Count(failures))
	}
	return touched, nil
}

// fillMissing copies predicted values into metrics the row did not carry.
func fillMissing(a *corridor.Attributes, p Prediction) {
	if a.Friction == nil {
		a.Friction = corridor.Float(p.Friction)
	}
	if a.TotalCostPct == nil {
		a.TotalCostPct = corridor.Float(p.TotalCostPct)
	}
	if a.SettlementTimeDays == nil {
		a.SettlementTimeDays = corridor.Float(p.SettlementTimeDays)
	}
}

func (b *Builder) record(outcome string) {
	if b.opts.Recorder != nil {
		b.opts.Recorder.RecordIngestRow(outcome)
	}
}

// Close releases the underlying source.
func (b *Builder) Close() error {
	return b.source.Close()
}

// Source returns the builder's source.
func (b *Builder) Source() Source { return b.source }
