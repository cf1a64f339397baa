package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-corridors/pkg/corridor"
)

const snapshotVersion = 1

// ErrSnapshotVersion is returned for snapshots written by an incompatible version.
var ErrSnapshotVersion = errors.New("unsupported snapshot version")

// snapshotFile is the processed dataset cached between restarts. Nodes is
// stored separately so isolated nodes survive a round trip.
type snapshotFile struct {
	Version   int                 `json:"version"`
	Source    string              `json:"source"`
	BuiltAt   time.Time           `json:"built_at"`
	Nodes     []string            `json:"nodes"`
	Corridors []corridor.Corridor `json:"corridors"`
}

// WriteSnapshot stores g as snappy-compressed JSON. The file is replaced
// atomically.
func WriteSnapshot(path string, g *corridor.Graph) error {
	if g == nil {
		return errors.New("no graph to snapshot")
	}
	stats := g.Stats()
	data, err := json.Marshal(snapshotFile{
		Version:   snapshotVersion,
		Source:    stats.Source,
		BuiltAt:   stats.BuiltAt,
		Nodes:     g.Nodes(),
		Corridors: g.Corridors(),
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(snappy.Encode(nil, data)); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot restores a graph written by WriteSnapshot, keeping its
// original source and build time.
func ReadSnapshot(path string) (*corridor.Graph, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}

	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, snap.Version)
	}

	b := corridor.NewBuilder().WithSource(snap.Source).WithBuiltAt(snap.BuiltAt)
	for _, n := range snap.Nodes {
		if err := b.AddNode(n); err != nil {
			return nil, fmt.Errorf("snapshot node %q: %w", n, err)
		}
	}
	for _, c := range snap.Corridors {
		if err := b.AddCorridor(c.From, c.To, c.Attributes); err != nil {
			return nil, fmt.Errorf("snapshot corridor %s->%s: %w", c.From, c.To, err)
		}
	}
	return b.Build(), nil
}

// SnapshotBuildFunc wraps build so every successful graph is also written to
// path. Snapshot failures are reported through onError and do not fail the build.
func SnapshotBuildFunc(build corridor.BuildFunc, path string, onError func(error)) corridor.BuildFunc {
	return func(ctx context.Context) (*corridor.Graph, error) {
		g, err := build(ctx)
		if err != nil || path == "" {
			return g, err
		}
		if err := WriteSnapshot(path, g); err != nil && onError != nil {
			onError(err)
		}
		return g, nil
	}
}
