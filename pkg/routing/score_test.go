package routing

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestWeightsNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       Weights
		want     Weights
		repaired bool
	}{
		{"already normalized", Weights{0.5, 0.25, 0.25}, Weights{0.5, 0.25, 0.25}, false},
		{"scaled", Weights{2, 1, 1}, Weights{0.5, 0.25, 0.25}, false},
		{"single axis", Weights{Cost: 3}, Weights{Cost: 1}, false},
		{"zero", Weights{}, DefaultWeights, true},
		{"negative sum", Weights{-1, 0, 0}, DefaultWeights, true},
		{"nan", Weights{math.NaN(), 1, 1}, DefaultWeights, true},
		{"infinite", Weights{math.Inf(1), 1, 1}, DefaultWeights, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, repaired := tt.in.Normalize()
			assert.Equal(t, tt.repaired, repaired)
			assert.InDelta(t, tt.want.Cost, got.Cost, 1e-12)
			assert.InDelta(t, tt.want.Time, got.Time, 1e-12)
			assert.InDelta(t, tt.want.Risk, got.Risk, 1e-12)
		})
	}
}

func TestCompositeScore(t *testing.T) {
	b := Breakdown{TotalCost: 10, TotalTime: 5, TotalRisk: 2}

	assert.InDelta(t, 0.6*10+0.2*5+0.2*2, CompositeScore(b, DefaultWeights), 1e-12)
	assert.InDelta(t, 10, CompositeScore(b, Weights{Cost: 1}), 1e-12)
	assert.InDelta(t, CompositeScore(b, Weights{Cost: 1}), CompositeScore(b, Weights{Cost: 7}), 1e-12)
}

func TestCompositeScore_ZeroWeightsEqualDefaults(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("zero weights score like the defaults", prop.ForAll(
		func(cost, days, risk float64) bool {
			b := Breakdown{TotalCost: cost, TotalTime: days, TotalRisk: risk}
			return CompositeScore(b, Weights{}) == CompositeScore(b, DefaultWeights)
		},
		gen.Float64Range(0, 1e6), gen.Float64Range(0, 1e6), gen.Float64Range(0, 1e6),
	))

	properties.Property("score is finite for finite inputs", prop.ForAll(
		func(cost, days, risk, wc, wt, wr float64) bool {
			b := Breakdown{TotalCost: cost, TotalTime: days, TotalRisk: risk}
			s := CompositeScore(b, Weights{wc, wt, wr})
			return !math.IsNaN(s) && !math.IsInf(s, 0)
		},
		gen.Float64Range(0, 1e6), gen.Float64Range(0, 1e6), gen.Float64Range(0, 1e6),
		gen.Float64Range(0, 10), gen.Float64Range(0, 10), gen.Float64Range(0, 10),
	))

	properties.TestingRun(t)
}
