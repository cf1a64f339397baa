package routing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(name string, score, cost, days, risk float64) ScoredRoute {
	return ScoredRoute{
		Breakdown: Breakdown{Path: Path{name}, TotalCost: cost, TotalTime: days, TotalRisk: risk},
		Score:     score,
	}
}

func names(routes []ScoredRoute) []string {
	out := make([]string, len(routes))
	for i, r := range routes {
		out[i] = r.Path[0]
	}
	return out
}

func TestRank_Ascending(t *testing.T) {
	in := []ScoredRoute{
		scored("c", 3, 0, 0, 0),
		scored("a", 1, 0, 0, 0),
		scored("b", 2, 0, 0, 0),
	}
	got := Rank(in, DefaultWeights, false)
	assert.Equal(t, []string{"a", "b", "c"}, names(got))
	assert.Equal(t, []string{"c", "a", "b"}, names(in), "input untouched")
}

func TestRank_Descending(t *testing.T) {
	in := []ScoredRoute{scored("a", 1, 0, 0, 0), scored("b", 2, 0, 0, 0)}
	assert.Equal(t, []string{"b", "a"}, names(Rank(in, DefaultWeights, true)))
}

func TestRank_StableForEqualScores(t *testing.T) {
	in := []ScoredRoute{
		scored("first", 1, 0, 0, 0),
		scored("second", 1, 0, 0, 0),
		scored("third", 0.5, 0, 0, 0),
	}
	assert.Equal(t, []string{"third", "first", "second"}, names(Rank(in, DefaultWeights, false)))
	assert.Equal(t, []string{"first", "second", "third"}, names(Rank(in, DefaultWeights, true)))
}

func TestRank_CostOnlyWeights(t *testing.T) {
	w := Weights{Cost: 1}
	cheapSlow := Score(Breakdown{Path: Path{"cheap"}, TotalCost: 1, TotalTime: 100, TotalRisk: 100}, w)
	dearFast := Score(Breakdown{Path: Path{"dear"}, TotalCost: 2, TotalTime: 0, TotalRisk: 0}, w)

	got := Rank([]ScoredRoute{dearFast, cheapSlow}, w, false)
	assert.Equal(t, []string{"cheap", "dear"}, names(got))
}

func TestRank_RepairsNonFiniteScores(t *testing.T) {
	raw := Weights{Cost: 2, Time: 0, Risk: 0}
	in := []ScoredRoute{
		scored("ok", 3, 0, 0, 0),
		scored("nan", math.NaN(), 1, 5, 5),  // raw sum 2
		scored("inf", math.Inf(1), 2, 0, 0), // raw sum 4
	}

	got := Rank(in, raw, false)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"nan", "ok", "inf"}, names(got))
	assert.Equal(t, 2.0, got[0].Score)
	assert.True(t, got[0].Repaired)
	assert.False(t, got[1].Repaired)
	assert.Equal(t, 4.0, got[2].Score)
	assert.True(t, math.IsNaN(in[1].Score))
}

func TestRank_UnrepairableScoreSortsLast(t *testing.T) {
	in := []ScoredRoute{
		scored("bad", math.NaN(), math.Inf(1), 0, 0),
		scored("good", 1, 0, 0, 0),
	}

	asc := Rank(in, Weights{Cost: 1}, false)
	assert.Equal(t, []string{"good", "bad"}, names(asc))
	assert.True(t, math.IsInf(asc[1].Score, 1))

	desc := Rank(in, Weights{Cost: 1}, true)
	assert.Equal(t, []string{"good", "bad"}, names(desc))
	assert.True(t, math.IsInf(desc[1].Score, -1))
}
