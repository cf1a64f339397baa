package routing

// CompositeScore normalizes w and combines b's totals. Lower is better.
func CompositeScore(b Breakdown, w Weights) float64 {
	nw, _ := w.Normalize()
	return nw.Apply(b)
}

// Score bundles b with its composite score.
func Score(b Breakdown, w Weights) ScoredRoute {
	return ScoredRoute{Breakdown: b, Score: CompositeScore(b, w)}
}
