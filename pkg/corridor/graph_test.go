package corridor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_AddCorridorValidation(t *testing.T) {
	b := NewBuilder()

	assert.ErrorIs(t, b.AddCorridor("", "US", Attributes{}), ErrEmptyNode)
	assert.ErrorIs(t, b.AddCorridor("IN", "  ", Attributes{}), ErrEmptyNode)
	assert.ErrorIs(t, b.AddCorridor("IN", "IN", Attributes{}), ErrSelfLoop)
	assert.ErrorIs(t, b.AddNode(""), ErrEmptyNode)
	assert.Equal(t, 0, b.Len())
}

func TestBuilder_LastWriteWins(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddCorridor("IN", "US", Attributes{Friction: Float(1)}))
	require.NoError(t, b.AddCorridor(" IN ", "US", Attributes{Friction: Float(4)}))

	g := b.Build()
	assert.Equal(t, 1, g.EdgeCount())
	attrs, ok := g.EdgeAttributes("IN", "US")
	require.True(t, ok)
	assert.Equal(t, 4.0, *attrs.Friction)
}

func TestGraph_Lookups(t *testing.T) {
	b := NewBuilder().WithSource("test")
	require.NoError(t, b.AddCorridor("A", "C", Attributes{}))
	require.NoError(t, b.AddCorridor("A", "B", Attributes{}))
	require.NoError(t, b.AddCorridor("B", "C", Attributes{}))
	require.NoError(t, b.AddNode("Z"))
	g := b.Build()

	assert.True(t, g.HasNode("A"))
	assert.True(t, g.HasNode("Z"))
	assert.False(t, g.HasNode("Q"))
	assert.True(t, g.HasEdge("A", "B"))
	assert.False(t, g.HasEdge("B", "A"))
	assert.Equal(t, []string{"B", "C"}, g.Neighbors("A"))
	assert.Empty(t, g.Neighbors("Z"))
	assert.Equal(t, []string{"A", "B", "C", "Z"}, g.Nodes())

	stats := g.Stats()
	assert.Equal(t, 4, stats.Nodes)
	assert.Equal(t, 3, stats.Edges)
	assert.Equal(t, "test", stats.Source)
	assert.False(t, stats.BuiltAt.IsZero())

	_, ok := g.EdgeAttributes("C", "A")
	assert.False(t, ok)
}

func TestGraph_IsolatedFromBuilderAndCallers(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddCorridor("A", "B", Attributes{
		Friction: Float(1),
		Meta:     map[string]float64{"corridor_volume_musd": 10},
	}))
	g := b.Build()

	// later builder writes do not leak into the frozen graph
	require.NoError(t, b.AddCorridor("A", "C", Attributes{}))
	assert.False(t, g.HasEdge("A", "C"))

	attrs, _ := g.EdgeAttributes("A", "B")
	*attrs.Friction = 99
	attrs.Meta["corridor_volume_musd"] = 0
	n := g.Neighbors("A")
	n[0] = "X"

	again, _ := g.EdgeAttributes("A", "B")
	assert.Equal(t, 1.0, *again.Friction)
	assert.Equal(t, 10.0, again.Meta["corridor_volume_musd"])
	assert.Equal(t, []string{"B"}, g.Neighbors("A"))
}

func TestGraph_NilIsEmpty(t *testing.T) {
	var g *Graph
	assert.False(t, g.HasNode("A"))
	assert.False(t, g.HasEdge("A", "B"))
	assert.Nil(t, g.Neighbors("A"))
	assert.Equal(t, 0, g.EdgeCount())
	assert.Equal(t, Stats{}, g.Stats())
}

func TestAttributes_Complete(t *testing.T) {
	assert.False(t, Attributes{Friction: Float(1)}.Complete())
	assert.True(t, Attributes{
		Friction:           Float(1),
		TotalCostPct:       Float(2),
		SettlementTimeDays: Float(0),
	}.Complete())
}

func TestAttributes_Values(t *testing.T) {
	a := Attributes{
		TotalCostPct: Float(2.5),
		FXSpreadBps:  40,
		Meta:         map[string]float64{"volume_musd": 120},
	}
	assert.Equal(t, map[string]float64{
		AttrTotalCostPct:       2.5,
		AttrFXSpreadBps:        40,
		AttrTransferFeePercent: 0,
		AttrTaxRatePercent:     0,
		"volume_musd":          120,
	}, a.Values())
}

func TestGraph_CorridorsSorted(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddCorridor("B", "A", Attributes{}))
	require.NoError(t, b.AddCorridor("A", "C", Attributes{Friction: Float(2)}))
	require.NoError(t, b.AddCorridor("A", "B", Attributes{}))
	g := b.Build()

	got := g.Corridors()
	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].From)
	assert.Equal(t, "B", got[0].To)
	assert.Equal(t, "C", got[1].To)
	assert.Equal(t, 2.0, *got[1].Attributes.Friction)
	assert.Equal(t, "B", got[2].From)
}
