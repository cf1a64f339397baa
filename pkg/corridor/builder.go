package corridor

import (
	"errors"
	"slices"
	"strings"
	"time"
)

var (
	ErrEmptyNode = errors.New("corridor endpoint cannot be empty")
	ErrSelfLoop  = errors.New("corridor cannot start and end at the same node")
)

// Builder accumulates corridors and produces an immutable Graph.
// A Builder is not safe for concurrent use.
type Builder struct {
	nodes  map[string]struct{}
	edges  map[edgeKey]Attributes
	source string
	now    func() time.Time
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes: make(map[string]struct{}),
		edges: make(map[edgeKey]Attributes),
		now:   time.Now,
	}
}

// WithSource records where the corridor rows came from.
func (b *Builder) WithSource(source string) *Builder {
	b.source = source
	return b
}

// WithBuiltAt overrides the build timestamp, used when restoring a snapshot.
func (b *Builder) WithBuiltAt(t time.Time) *Builder {
	b.now = func() time.Time { return t }
	return b
}

// AddNode registers a node without any corridor.
func (b *Builder) AddNode(n string) error {
	n = strings.TrimSpace(n)
	if n == "" {
		return ErrEmptyNode
	}
	b.nodes[n] = struct{}{}
	return nil
}

// AddCorridor adds or replaces the corridor from -> to. The most recent call
// for an ordered pair wins.
func (b *Builder) AddCorridor(from, to string, attrs Attributes) error {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" || to == "" {
		return ErrEmptyNode
	}
	if from == to {
		return ErrSelfLoop
	}
	b.nodes[from] = struct{}{}
	b.nodes[to] = struct{}{}
	b.edges[edgeKey{from, to}] = attrs.Clone()
	return nil
}

// Len returns the number of corridors added so far.
func (b *Builder) Len() int {
	return len(b.edges)
}

// Build freezes the accumulated corridors into a Graph. The builder may keep
// being used afterwards; later changes do not affect the returned graph.
func (b *Builder) Build() *Graph {
	g := &Graph{
		nodes:    make(map[string]struct{}, len(b.nodes)),
		outgoing: make(map[string][]string, len(b.nodes)),
		edges:    make(map[edgeKey]Attributes, len(b.edges)),
		builtAt:  b.now(),
		source:   b.source,
	}
	for n := range b.nodes {
		g.nodes[n] = struct{}{}
	}
	for k, attrs := range b.edges {
		g.edges[k] = attrs.Clone()
		g.outgoing[k.from] = append(g.outgoing[k.from], k.to)
	}
	for n := range g.outgoing {
		slices.Sort(g.outgoing[n])
	}
	return g
}
