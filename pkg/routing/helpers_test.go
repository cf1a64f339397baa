package routing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-corridors/pkg/corridor"
)

type edgeDef struct {
	from, to string
	attrs    corridor.Attributes
}

func metrics(friction, cost, days float64) corridor.Attributes {
	return corridor.Attributes{
		Friction:           corridor.Float(friction),
		TotalCostPct:       corridor.Float(cost),
		SettlementTimeDays: corridor.Float(days),
	}
}

func fr(friction float64) corridor.Attributes {
	return corridor.Attributes{Friction: corridor.Float(friction)}
}

func buildGraph(t testing.TB, edges ...edgeDef) *corridor.Graph {
	t.Helper()
	b := corridor.NewBuilder().WithSource("test")
	for _, e := range edges {
		require.NoError(t, b.AddCorridor(e.from, e.to, e.attrs))
	}
	return b.Build()
}

func paths(ps ...[]string) []Path {
	out := make([]Path, len(ps))
	for i, p := range ps {
		out[i] = Path(p)
	}
	return out
}
