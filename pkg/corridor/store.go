package corridor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-corridors/pkg/logging"
)

// ErrNoBuilder is returned by Reload when the store has no BuildFunc.
var ErrNoBuilder = errors.New("graph store has no build function")

// BuildFunc constructs a fresh graph, typically from the configured source.
type BuildFunc func(ctx context.Context) (*Graph, error)

// ReloadRecorder receives the outcome of every reload.
type ReloadRecorder interface {
	RecordGraphReload(status string, duration time.Duration, nodes, edges int)
}

// Store holds the current corridor graph. Readers take a snapshot with
// Current and keep using it for the whole request; Reload builds a complete
// new graph before publishing it, so readers never see a partial build.
type Store struct {
	current  atomic.Pointer[Graph]
	build    BuildFunc
	reloadMu sync.Mutex // serializes builds, never held by readers
	logger   logging.Logger
	recorder ReloadRecorder
	reloads  atomic.Uint64
}

// NewStore creates a store. initial may be nil until the first Reload.
func NewStore(initial *Graph, build BuildFunc, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Store{
		build:  build,
		logger: logger.With(logging.Component("graph-store")),
	}
	if initial != nil {
		s.current.Store(initial)
	}
	return s
}

// SetRecorder attaches a metrics recorder.
func (s *Store) SetRecorder(r ReloadRecorder) {
	s.recorder = r
}

// Current returns the graph snapshot in effect right now. It may be nil if
// nothing has been loaded yet.
func (s *Store) Current() *Graph {
	return s.current.Load()
}

// Swap installs g and returns the previous graph.
func (s *Store) Swap(g *Graph) *Graph {
	return s.current.Swap(g)
}

// Reloads returns the number of successful reloads.
func (s *Store) Reloads() uint64 {
	return s.reloads.Load()
}

// Reload rebuilds the graph and swaps it in. On failure the previous graph
// stays in place.
func (s *Store) Reload(ctx context.Context) error {
	if s.build == nil {
		return ErrNoBuilder
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	g, err := s.build(ctx)
	if err == nil && g == nil {
		err = errors.New("build returned no graph")
	}
	if err != nil {
		s.logger.Error("graph reload failed", logging.Error(err), logging.Latency(time.Since(start)))
		s.record("error", time.Since(start), nil)
		return fmt.Errorf("reload graph: %w", err)
	}

	prev := s.Swap(g)
	s.reloads.Add(1)
	s.record("success", time.Since(start), g)
	s.logger.Info("graph reloaded",
		logging.Int("nodes", g.NodeCount()),
		logging.Int("edges", g.EdgeCount()),
		logging.Int("previous_edges", prev.EdgeCount()),
		logging.String("source", g.source),
		logging.Latency(time.Since(start)),
	)
	return nil
}

func (s *Store) record(status string, d time.Duration, g *Graph) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordGraphReload(status, d, g.NodeCount(), g.EdgeCount())
}
