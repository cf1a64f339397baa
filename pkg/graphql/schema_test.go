package graphql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_Graph(t *testing.T) {
	schema := newTestSchema(t, testGraph(t))

	res := run(t, schema, `{ health graph { nodes edges source } nodes }`, nil)
	require.False(t, res.HasErrors(), "%v", res.Errors)

	data := res.Data.(map[string]any)
	assert.Equal(t, "ok", data["health"])
	stats := data["graph"].(map[string]any)
	assert.Equal(t, 3, stats["nodes"])
	assert.Equal(t, 3, stats["edges"])
	assert.Equal(t, "test.csv", stats["source"])
	assert.Equal(t, []any{"A", "B", "C"}, data["nodes"])
}

func TestSchema_Corridor(t *testing.T) {
	schema := newTestSchema(t, testGraph(t))

	res := run(t, schema, `{
		direct: corridor(from: "A", to: "C") { friction totalCostPct settlementTimeDays frictionSource }
		leg: corridor(from: "A", to: "B") { frictionSource meta { key value } }
		missing: corridor(from: "C", to: "A") { friction }
	}`, nil)
	require.False(t, res.HasErrors(), "%v", res.Errors)

	data := res.Data.(map[string]any)
	direct := data["direct"].(map[string]any)
	assert.InDelta(t, 5.0, direct["friction"], 1e-9)
	assert.InDelta(t, 5.0, direct["totalCostPct"], 1e-9)
	assert.Equal(t, 0.0, direct["settlementTimeDays"])
	assert.Equal(t, "proxy", direct["frictionSource"])

	leg := data["leg"].(map[string]any)
	assert.Equal(t, "observed", leg["frictionSource"])
	assert.Equal(t, []any{
		map[string]any{"key": "corridor_rank", "value": 3.0},
		map[string]any{"key": "volume_musd", "value": 12.0},
	}, leg["meta"])

	assert.Nil(t, data["missing"])
}

func TestSchema_CorridorInvalidCode(t *testing.T) {
	schema := newTestSchema(t, testGraph(t))

	res := run(t, schema, `{ corridor(from: "A/B", to: "C") { friction } }`, nil)
	require.True(t, res.HasErrors())
	assert.Equal(t, CodeInvalidArgument, res.Errors[0].Extensions["code"])
}

func TestSchema_Corridors(t *testing.T) {
	schema := newTestSchema(t, testGraph(t))

	res := run(t, schema, `{
		all: corridors { from to }
		fromA: corridors(from: "A") { to }
		limited: corridors(limit: 1) { from to }
	}`, nil)
	require.False(t, res.HasErrors(), "%v", res.Errors)

	data := res.Data.(map[string]any)
	assert.Len(t, data["all"], 3)
	assert.Equal(t, []any{
		map[string]any{"to": "B"},
		map[string]any{"to": "C"},
	}, data["fromA"])
	assert.Equal(t, []any{map[string]any{"from": "A", "to": "B"}}, data["limited"])
}

func TestSchema_Routes(t *testing.T) {
	schema := newTestSchema(t, testGraph(t))

	res := run(t, schema, `query($w: WeightsInput) {
		routes(source: "A", destination: "C", k: 2, weights: $w) {
			k maxHops weights { cost time risk }
			routes { path hops totalCost totalTime totalRisk compositeScore edges { from to } }
		}
	}`, map[string]any{"w": map[string]any{"cost": 1, "time": 0, "risk": 0}})
	require.False(t, res.HasErrors(), "%v", res.Errors)

	result := res.Data.(map[string]any)["routes"].(map[string]any)
	assert.Equal(t, 2, result["k"])
	assert.Equal(t, 3, result["maxHops"])
	assert.Equal(t, map[string]any{"cost": 1.0, "time": 0.0, "risk": 0.0}, result["weights"])

	routes := result["routes"].([]any)
	require.Len(t, routes, 2)
	first := routes[0].(map[string]any)
	assert.Equal(t, []any{"A", "B", "C"}, first["path"])
	assert.Equal(t, 2, first["hops"])
	assert.InDelta(t, 2.0, first["compositeScore"], 1e-9)
	assert.Len(t, first["edges"], 2)

	second := routes[1].(map[string]any)
	assert.Equal(t, []any{"A", "C"}, second["path"])
	assert.InDelta(t, 5.0, second["compositeScore"], 1e-9)
}

func TestSchema_RouteErrors(t *testing.T) {
	schema := newTestSchema(t, testGraph(t))

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"unknown node", `{ routes(source: "A", destination: "ZZ") { k } }`, CodeNodeNotFound},
		{"no path", `{ routes(source: "C", destination: "A") { k } }`, CodeNoPath},
		{"k over limit", `{ routes(source: "A", destination: "C", k: 50) { k } }`, CodeInvalidArgument},
		{"negative weight", `{ routes(source: "A", destination: "C", weights: {cost: -1}) { k } }`, CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, schema, tt.query, nil)
			require.True(t, res.HasErrors())
			assert.Equal(t, tt.code, res.Errors[0].Extensions["code"])
		})
	}
}

func TestSchema_NoGraph(t *testing.T) {
	schema := newTestSchema(t, nil)

	res := run(t, schema, `{ graph { nodes } }`, nil)
	require.True(t, res.HasErrors())
	assert.Equal(t, CodeGraphUnavailable, res.Errors[0].Extensions["code"])
}
