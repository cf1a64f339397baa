package routing

import "errors"

var (
	// ErrNodeNotFound means the source or destination is not in the graph.
	ErrNodeNotFound = errors.New("node not found")
	// ErrNoPathFound means no simple path exists within the hop bound.
	ErrNoPathFound = errors.New("no path found")
	// ErrEdgeNotFound means a path step has no corridor in the graph.
	ErrEdgeNotFound = errors.New("corridor not found")
	// ErrGraphUnavailable means no graph has been loaded yet.
	ErrGraphUnavailable = errors.New("corridor graph not loaded")

	// errDegenerateWeight stops the deviation search when an edge weight is
	// negative or not finite. The enumerator recovers by falling back to the
	// exhaustive search.
	errDegenerateWeight = errors.New("degenerate corridor weight")
	// errBudgetExhausted stops a search that used up its expansions.
	errBudgetExhausted = errors.New("search expansion budget exhausted")
)
