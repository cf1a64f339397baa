package routing

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/dd0wney/cluso-corridors/pkg/corridor"
)

// Path is an ordered sequence of distinct nodes joined by corridors.
type Path []string

// Hops returns the number of corridors traversed.
func (p Path) Hops() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

// String renders the path as "A>B>C".
func (p Path) String() string {
	return strings.Join(p, ">")
}

// key identifies the node sequence for de-duplication.
func (p Path) key() string {
	return strings.Join(p, "\x00")
}

// Simple reports whether no node repeats.
func (p Path) Simple() bool {
	seen := make(map[string]struct{}, len(p))
	for _, n := range p {
		if _, dup := seen[n]; dup {
			return false
		}
		seen[n] = struct{}{}
	}
	return true
}

// Weights combines the cost, time and risk totals into one score.
type Weights struct {
	Cost float64 `json:"cost"`
	Time float64 `json:"time"`
	Risk float64 `json:"risk"`
}

// DefaultWeights is used when no weights are given or the given ones sum to
// zero or less.
var DefaultWeights = Weights{Cost: 0.6, Time: 0.2, Risk: 0.2}

// Sum returns the raw sum of the three weights.
func (w Weights) Sum() float64 {
	return w.Cost + w.Time + w.Risk
}

// Normalize scales the weights to sum to 1. A sum that is not a positive
// finite number yields DefaultWeights and repaired=true.
func (w Weights) Normalize() (normalized Weights, repaired bool) {
	sum := w.Sum()
	if !(sum > 0) || math.IsInf(sum, 0) {
		return DefaultWeights, true
	}
	return Weights{Cost: w.Cost / sum, Time: w.Time / sum, Risk: w.Risk / sum}, false
}

// Apply returns the weighted sum of b's totals without normalizing.
func (w Weights) Apply(b Breakdown) float64 {
	return w.Cost*b.TotalCost + w.Time*b.TotalTime + w.Risk*b.TotalRisk
}

// Friction origins reported per edge.
const (
	FrictionObserved = "observed"
	FrictionProxy    = "proxy"
)

// EdgeBreakdown is the resolved view of one corridor on a path.
type EdgeBreakdown struct {
	From               string             `json:"from"`
	To                 string             `json:"to"`
	Friction           float64            `json:"friction"`
	TotalCostPct       float64            `json:"total_cost_pct"`
	SettlementTimeDays float64            `json:"settlement_time_days"`
	FrictionSource     string             `json:"friction_source"`
	FXSpreadBps        float64            `json:"fx_spread_bps,omitempty"`
	TransferFeePercent float64            `json:"transfer_fee_percent,omitempty"`
	TaxRatePercent     float64            `json:"tax_rate_percent,omitempty"`
	Meta               map[string]float64 `json:"meta,omitempty"`
}

// Breakdown aggregates resolved metrics along a path.
type Breakdown struct {
	Path      Path            `json:"path"`
	Edges     []EdgeBreakdown `json:"edges"`
	TotalCost float64         `json:"total_cost"`
	TotalTime float64         `json:"total_time"`
	TotalRisk float64         `json:"total_risk"`
	Hops      int             `json:"hops"`
}

// ScoredRoute is a candidate route with its composite score.
type ScoredRoute struct {
	Breakdown
	Score float64 `json:"composite_score"`
	// Repaired is set by Rank when Score had to be recomputed.
	Repaired bool `json:"-"`
}

// SearchResult is the outcome of one enumeration.
type SearchResult struct {
	Paths []Path
	// Weights holds the total friction of each path, index-aligned with Paths.
	Weights    []float64
	Expansions int
	// Fallback is set when the exhaustive search replaced the deviation search.
	Fallback bool
	// Truncated is set when the expansion budget ran out before the search
	// completed; Paths then holds what was found so far.
	Truncated bool
}

// Request is a routing query. Nil fields take the engine defaults.
type Request struct {
	Source         string   `json:"source"`
	Destination    string   `json:"destination"`
	K              *int     `json:"k,omitempty"`
	MaxHops        *int     `json:"max_hops,omitempty"`
	Weights        *Weights `json:"weights,omitempty"`
	HigherIsBetter bool     `json:"higher_is_better,omitempty"`
}

// Route is one ranked entry of a Response.
type Route struct {
	Path           []string        `json:"path"`
	Hops           int             `json:"hops"`
	Edges          []EdgeBreakdown `json:"edges"`
	TotalCost      float64         `json:"total_cost"`
	TotalTime      float64         `json:"total_time"`
	TotalRisk      float64         `json:"total_risk"`
	CompositeScore float64         `json:"composite_score"`
}

// Response is the ranked result of a Request.
type Response struct {
	Source         string    `json:"source"`
	Destination    string    `json:"destination"`
	K              int       `json:"k"`
	MaxHops        int       `json:"max_hops"`
	Weights        Weights   `json:"weights"`
	HigherIsBetter bool      `json:"higher_is_better"`
	Routes         []Route   `json:"routes"`
	Fallback       bool      `json:"fallback,omitempty"`
	Truncated      bool      `json:"truncated,omitempty"`
	GraphBuiltAt   time.Time `json:"graph_built_at"`
}

func newRoute(r ScoredRoute) Route {
	return Route{
		Path:           slices.Clone(r.Path),
		Hops:           r.Hops,
		Edges:          r.Edges,
		TotalCost:      r.TotalCost,
		TotalTime:      r.TotalTime,
		TotalRisk:      r.TotalRisk,
		CompositeScore: r.Score,
	}
}

// graphView gives the search loops cheap read access to a handle.
type graphView struct {
	h    corridor.Handle
	fast corridor.Fast
}

func newGraphView(h corridor.Handle) graphView {
	fast, _ := h.(corridor.Fast)
	return graphView{h: h, fast: fast}
}

func (v graphView) successors(n string) []string {
	if v.fast != nil {
		return v.fast.SuccessorsShared(n)
	}
	return v.h.Neighbors(n)
}

func (v graphView) attributes(from, to string) (corridor.Attributes, bool) {
	if v.fast != nil {
		return v.fast.AttributesShared(from, to)
	}
	return v.h.EdgeAttributes(from, to)
}
