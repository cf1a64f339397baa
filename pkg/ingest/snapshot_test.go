package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-corridors/pkg/corridor"
)

func sampleGraph(t *testing.T) *corridor.Graph {
	t.Helper()
	builtAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := corridor.NewBuilder().WithSource("s3://datasets/corridors.csv").WithBuiltAt(builtAt)
	require.NoError(t, b.AddCorridor("US", "MX", corridor.Attributes{
		Friction:    corridor.Float(1.2),
		FXSpreadBps: 80,
		Meta:        map[string]float64{"corridor_volume_musd": 55},
	}))
	require.NoError(t, b.AddCorridor("MX", "GT", corridor.Attributes{TaxRatePercent: 3}))
	require.NoError(t, b.AddNode("SV"))
	return b.Build()
}

func TestSnapshot_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.snap")
	g := sampleGraph(t)
	require.NoError(t, WriteSnapshot(path, g))

	restored, err := ReadSnapshot(path)
	require.NoError(t, err)

	assert.Equal(t, g.Nodes(), restored.Nodes())
	assert.Equal(t, g.Corridors(), restored.Corridors())
	assert.Equal(t, g.Stats().Source, restored.Stats().Source)
	assert.True(t, g.Stats().BuiltAt.Equal(restored.Stats().BuiltAt))
	assert.True(t, restored.HasNode("SV"))
}

func TestSnapshot_Errors(t *testing.T) {
	dir := t.TempDir()

	assert.Error(t, WriteSnapshot(filepath.Join(dir, "x.snap"), nil))

	_, err := ReadSnapshot(filepath.Join(dir, "missing.snap"))
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.snap")
	require.NoError(t, os.WriteFile(garbage, []byte("not snappy"), 0o600))
	_, err = ReadSnapshot(garbage)
	assert.ErrorContains(t, err, "decompress")

	future := filepath.Join(dir, "future.snap")
	require.NoError(t, os.WriteFile(future, snappy.Encode(nil, []byte(`{"version":99}`)), 0o600))
	_, err = ReadSnapshot(future)
	assert.ErrorIs(t, err, ErrSnapshotVersion)
}

func TestSnapshotBuildFunc(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.snap")
	g := sampleGraph(t)

	build := SnapshotBuildFunc(func(context.Context) (*corridor.Graph, error) {
		return g, nil
	}, path, func(err error) { t.Errorf("unexpected snapshot error: %v", err) })

	got, err := build(context.Background())
	require.NoError(t, err)
	assert.Same(t, g, got)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSnapshotBuildFunc_FailuresDoNotFailBuild(t *testing.T) {
	var reported error
	build := SnapshotBuildFunc(func(context.Context) (*corridor.Graph, error) {
		return sampleGraph(t), nil
	}, filepath.Join(t.TempDir(), "no", "such", "dir", "graph.snap"), func(err error) { reported = err })

	g, err := build(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, g)
	assert.Error(t, reported)

	failing := SnapshotBuildFunc(func(context.Context) (*corridor.Graph, error) {
		return nil, errors.New("source down")
	}, "unused", nil)
	_, err = failing(context.Background())
	assert.ErrorContains(t, err, "source down")
}
