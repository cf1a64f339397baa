package graphql

import (
	"context"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-corridors/pkg/corridor"
	"github.com/dd0wney/cluso-corridors/pkg/routing"
	"github.com/dd0wney/cluso-corridors/pkg/validation"
)

// testGraph: A->B->C is cheaper than the direct A->C corridor.
func testGraph(t *testing.T) *corridor.Graph {
	t.Helper()
	b := corridor.NewBuilder().WithSource("test.csv")
	require.NoError(t, b.AddCorridor("A", "B", corridor.Attributes{
		Friction:           corridor.Float(1),
		TotalCostPct:       corridor.Float(1),
		SettlementTimeDays: corridor.Float(1),
		Meta:               map[string]float64{"volume_musd": 12, "corridor_rank": 3},
	}))
	require.NoError(t, b.AddCorridor("B", "C", corridor.Attributes{
		Friction:           corridor.Float(1),
		TotalCostPct:       corridor.Float(1),
		SettlementTimeDays: corridor.Float(1),
	}))
	require.NoError(t, b.AddCorridor("A", "C", corridor.Attributes{
		FXSpreadBps:        200,
		TransferFeePercent: 2,
		TaxRatePercent:     100,
	}))
	return b.Build()
}

func newTestSchema(t *testing.T, g *corridor.Graph) graphql.Schema {
	t.Helper()
	engine := routing.NewEngine(corridor.NewStore(g, nil, nil), nil, routing.EngineConfig{}, nil)
	r, err := NewResolver(engine, validation.Limits{MaxK: 10, MaxHops: 5}, DefaultLimitConfig())
	require.NoError(t, err)
	schema, err := r.Schema()
	require.NoError(t, err)
	return schema
}

func run(t *testing.T, schema graphql.Schema, query string, vars map[string]any) *graphql.Result {
	t.Helper()
	return Execute(context.Background(), schema, query, vars, "", DefaultMaxDepth)
}
