package routing

import (
	"container/heap"
	"context"
	"errors"
	"math"
	"slices"

	"github.com/dd0wney/cluso-corridors/pkg/corridor"
)

// DefaultMaxExpansions bounds the work of one enumeration when Options leaves
// it unset.
const DefaultMaxExpansions = 200_000

// Options tunes an Enumerator.
type Options struct {
	// MaxExpansions caps queue pops plus exhaustive-search visits per call.
	// Zero means DefaultMaxExpansions; negative means unbounded.
	MaxExpansions int
}

// Enumerator finds the k lowest-friction simple paths between two nodes.
// It holds no per-call state and is safe for concurrent use.
type Enumerator struct {
	maxExpansions int
}

// NewEnumerator creates an enumerator.
func NewEnumerator(opts Options) *Enumerator {
	limit := opts.MaxExpansions
	switch {
	case limit == 0:
		limit = DefaultMaxExpansions
	case limit < 0:
		limit = 0
	}
	return &Enumerator{maxExpansions: limit}
}

// TopKPaths is TopK with default options and no cancellation.
func TopKPaths(g corridor.Handle, source, destination string, k, maxHops int) []Path {
	res, _ := NewEnumerator(Options{}).TopK(context.Background(), g, source, destination, k, maxHops)
	return res.Paths
}

// TopK returns up to k simple paths from source to destination with at most
// maxHops corridors each, ordered by ascending total friction and then by
// node sequence. The result is empty when either endpoint is missing, when
// k is zero, or when source equals destination.
//
// The only errors returned come from ctx.
func (e *Enumerator) TopK(ctx context.Context, g corridor.Handle, source, destination string, k, maxHops int) (SearchResult, error) {
	if g == nil || k <= 0 || maxHops < 1 || source == destination {
		return SearchResult{}, nil
	}
	if !g.HasNode(source) || !g.HasNode(destination) {
		return SearchResult{}, nil
	}
	if err := ctx.Err(); err != nil {
		return SearchResult{}, err
	}

	v := newGraphView(g)
	var res SearchResult

	var (
		found []candidate
		err   error
	)
	if hasDegenerateWeight(v, source, destination, maxHops) {
		err = errDegenerateWeight
	} else {
		b := newBudget(ctx, e.maxExpansions)
		found, err = deviationSearch(v, source, destination, k, maxHops, b)
		res.Expansions = b.used
	}

	if errors.Is(err, errDegenerateWeight) {
		res.Fallback = true
		b := newBudget(ctx, e.maxExpansions)
		found, err = exhaustiveSearch(v, source, destination, maxHops, b)
		res.Expansions += b.used
	}

	switch {
	case err == nil:
	case errors.Is(err, errBudgetExhausted):
		res.Truncated = true
	default:
		return SearchResult{Expansions: res.Expansions, Fallback: res.Fallback}, err
	}

	sortCandidates(found)
	if len(found) > k {
		found = found[:k]
	}
	res.Paths = make([]Path, len(found))
	res.Weights = make([]float64, len(found))
	for i, c := range found {
		res.Paths[i] = c.path
		res.Weights[i] = c.weight
	}
	return res, nil
}

// hasDegenerateWeight reports whether any corridor usable by a path of at
// most maxHops from src carries a weight Dijkstra cannot order. The deviation
// search only sees the corridors it relaxes, so an unordered weight on a
// corridor it never reaches would otherwise go unnoticed.
func hasDegenerateWeight(v graphView, src, dst string, maxHops int) bool {
	seen := map[string]struct{}{src: {}}
	frontier := []string{src}
	for depth := 0; depth < maxHops && len(frontier) > 0; depth++ {
		var next []string
		for _, n := range frontier {
			for _, m := range v.successors(n) {
				if m == src {
					continue
				}
				attrs, ok := v.attributes(n, m)
				if !ok {
					continue
				}
				if degenerate(ResolveFriction(attrs)) {
					return true
				}
				if _, ok := seen[m]; ok || m == dst {
					continue
				}
				seen[m] = struct{}{}
				next = append(next, m)
			}
		}
		frontier = next
	}
	return false
}

func degenerate(w float64) bool {
	return w < 0 || math.IsNaN(w) || math.IsInf(w, 0)
}

type candidate struct {
	path   Path
	weight float64
}

func compareCandidates(a, b candidate) int {
	switch {
	case a.weight < b.weight:
		return -1
	case a.weight > b.weight:
		return 1
	}
	return slices.Compare(a.path, b.path)
}

func sortCandidates(c []candidate) {
	slices.SortFunc(c, compareCandidates)
}

// candidateQueue is a min-heap of deviation candidates.
type candidateQueue []candidate

func (q candidateQueue) Len() int           { return len(q) }
func (q candidateQueue) Less(i, j int) bool { return compareCandidates(q[i], q[j]) < 0 }
func (q candidateQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *candidateQueue) Push(x any)        { *q = append(*q, x.(candidate)) }

func (q *candidateQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// pathWeight sums resolved friction in path order. Every comparison uses
// this one summation order so equal paths always get bit-identical weights.
func pathWeight(v graphView, p Path) float64 {
	var total float64
	for i := 0; i+1 < len(p); i++ {
		attrs, _ := v.attributes(p[i], p[i+1])
		total += ResolveFriction(attrs)
	}
	return total
}

// deviationSearch is Yen's algorithm over the hop-bounded shortest-path
// subroutine. Paths are accepted in non-decreasing weight order; after the
// k-th is accepted the search keeps going while candidates tie with it, so
// the caller's sort can apply the node-sequence tie-break across all of them.
func deviationSearch(v graphView, src, dst string, k, maxHops int, b *budget) ([]candidate, error) {
	first, err := shortestPath(v, src, dst, maxHops, exclusions{}, b)
	if err != nil || first == nil {
		return nil, err
	}

	accepted := []candidate{{path: first, weight: pathWeight(v, first)}}
	seen := map[string]struct{}{first.key(): {}}
	cands := &candidateQueue{}

	for {
		last := accepted[len(accepted)-1].path
		if err := pushDeviations(v, dst, maxHops, last, accepted, seen, cands, b); err != nil {
			return accepted, err
		}
		if cands.Len() == 0 {
			break
		}
		if len(accepted) >= k && (*cands)[0].weight > accepted[k-1].weight {
			break
		}
		accepted = append(accepted, heap.Pop(cands).(candidate))
	}
	return accepted, nil
}

// pushDeviations spurs off every node of last except the destination.
func pushDeviations(v graphView, dst string, maxHops int, last Path, accepted []candidate,
	seen map[string]struct{}, cands *candidateQueue, b *budget) error {
	for i := 0; i < len(last)-1; i++ {
		root := last[:i+1]
		skip := exclusions{
			nodes: make(map[string]struct{}, i),
			edges: make(map[[2]string]struct{}),
		}
		for _, a := range accepted {
			if len(a.path) > i+1 && slices.Equal(a.path[:i+1], root) {
				skip.edges[[2]string{a.path[i], a.path[i+1]}] = struct{}{}
			}
		}
		for _, n := range root[:i] {
			skip.nodes[n] = struct{}{}
		}

		spur, err := shortestPath(v, last[i], dst, maxHops-i, skip, b)
		if err != nil {
			return err
		}
		if spur == nil {
			continue
		}

		full := make(Path, 0, i+len(spur))
		full = append(full, root[:i]...)
		full = append(full, spur...)
		key := full.key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		heap.Push(cands, candidate{path: full, weight: pathWeight(v, full)})
	}
	return nil
}

// exhaustiveSearch lists every simple path within maxHops by depth-first
// search. It accepts any weight; NaN totals sort as +Inf.
func exhaustiveSearch(v graphView, src, dst string, maxHops int, b *budget) ([]candidate, error) {
	var found []candidate
	path := Path{src}
	onPath := map[string]struct{}{src: {}}

	var walk func(n string) error
	walk = func(n string) error {
		if err := b.step(); err != nil {
			return err
		}
		if n == dst {
			p := slices.Clone(path)
			w := pathWeight(v, p)
			if math.IsNaN(w) {
				w = math.Inf(1)
			}
			found = append(found, candidate{path: p, weight: w})
			return nil
		}
		if len(path)-1 >= maxHops {
			return nil
		}
		for _, next := range v.successors(n) {
			if _, visited := onPath[next]; visited {
				continue
			}
			if _, ok := v.attributes(n, next); !ok {
				continue
			}
			onPath[next] = struct{}{}
			path = append(path, next)
			err := walk(next)
			path = path[:len(path)-1]
			delete(onPath, next)
			if err != nil {
				return err
			}
		}
		return nil
	}

	err := walk(src)
	return found, err
}
