package routing

import (
	"fmt"
	"slices"

	"github.com/dd0wney/cluso-corridors/pkg/corridor"
)

// BreakdownPath resolves every corridor on path and sums cost, time and risk.
// Missing friction falls back to the proxy, missing total_cost_pct to the
// resolved friction and missing settlement time to zero. Descriptive fields
// are copied through untouched.
func BreakdownPath(g corridor.Handle, path Path) (Breakdown, error) {
	b := Breakdown{
		Path:  slices.Clone(path),
		Edges: make([]EdgeBreakdown, 0, path.Hops()),
		Hops:  path.Hops(),
	}
	for i := 0; i+1 < len(path); i++ {
		attrs, ok := g.EdgeAttributes(path[i], path[i+1])
		if !ok {
			return Breakdown{}, fmt.Errorf("%w: %s -> %s", ErrEdgeNotFound, path[i], path[i+1])
		}
		e := resolveEdge(path[i], path[i+1], attrs)
		b.TotalCost += e.TotalCostPct
		b.TotalTime += e.SettlementTimeDays
		b.TotalRisk += e.Friction
		b.Edges = append(b.Edges, e)
	}
	return b, nil
}

// ProxyEdges counts corridors whose friction came from the proxy formula.
func (b Breakdown) ProxyEdges() int {
	n := 0
	for _, e := range b.Edges {
		if e.FrictionSource == FrictionProxy {
			n++
		}
	}
	return n
}
