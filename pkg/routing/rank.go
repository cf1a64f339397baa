package routing

import (
	"cmp"
	"math"
	"slices"
)

// Rank orders routes by score, ascending unless higherIsBetter. A score that
// is NaN or infinite is replaced by raw's unnormalized weighted sum; if that
// is not finite either the route sorts last. Equal scores keep their input
// order. routes is not modified.
func Rank(routes []ScoredRoute, raw Weights, higherIsBetter bool) []ScoredRoute {
	out := slices.Clone(routes)
	for i := range out {
		if isFinite(out[i].Score) {
			continue
		}
		s := raw.Apply(out[i].Breakdown)
		if !isFinite(s) {
			s = math.Inf(1)
			if higherIsBetter {
				s = math.Inf(-1)
			}
		}
		out[i].Score = s
		out[i].Repaired = true
	}

	slices.SortStableFunc(out, func(a, b ScoredRoute) int {
		if higherIsBetter {
			return cmp.Compare(b.Score, a.Score)
		}
		return cmp.Compare(a.Score, b.Score)
	})
	return out
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
