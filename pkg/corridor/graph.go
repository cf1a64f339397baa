package corridor

import (
	"slices"
	"strings"
	"time"
)

type edgeKey struct {
	from, to string
}

// Graph is an immutable corridor graph. It is only produced by Builder and is
// safe for concurrent readers without locking.
type Graph struct {
	nodes    map[string]struct{}
	outgoing map[string][]string // node -> sorted successors
	edges    map[edgeKey]Attributes
	builtAt  time.Time
	source   string
}

// HasNode reports whether n is part of the graph.
func (g *Graph) HasNode(n string) bool {
	if g == nil {
		return false
	}
	_, ok := g.nodes[n]
	return ok
}

// HasEdge reports whether the directed corridor from -> to exists.
func (g *Graph) HasEdge(from, to string) bool {
	if g == nil {
		return false
	}
	_, ok := g.edges[edgeKey{from, to}]
	return ok
}

// EdgeAttributes returns a copy of the corridor attributes.
func (g *Graph) EdgeAttributes(from, to string) (Attributes, bool) {
	if g == nil {
		return Attributes{}, false
	}
	attrs, ok := g.edges[edgeKey{from, to}]
	if !ok {
		return Attributes{}, false
	}
	return attrs.Clone(), true
}

// edgeAttributesShared returns the stored attributes without copying. Only
// read access is allowed on the result.
func (g *Graph) edgeAttributesShared(from, to string) (Attributes, bool) {
	attrs, ok := g.edges[edgeKey{from, to}]
	return attrs, ok
}

// Neighbors returns the successors of n in ascending order.
func (g *Graph) Neighbors(n string) []string {
	if g == nil {
		return nil
	}
	return slices.Clone(g.outgoing[n])
}

// Nodes returns all node codes in ascending order.
func (g *Graph) Nodes() []string {
	if g == nil {
		return nil
	}
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

// EdgeCount returns the number of corridors.
func (g *Graph) EdgeCount() int {
	if g == nil {
		return 0
	}
	return len(g.edges)
}

// Corridor is one directed edge with its attributes.
type Corridor struct {
	From       string     `json:"from"`
	To         string     `json:"to"`
	Attributes Attributes `json:"attributes"`
}

// Corridors returns a copy of every edge ordered by (from, to).
func (g *Graph) Corridors() []Corridor {
	if g == nil {
		return nil
	}
	out := make([]Corridor, 0, len(g.edges))
	for k, attrs := range g.edges {
		out = append(out, Corridor{From: k.from, To: k.to, Attributes: attrs.Clone()})
	}
	slices.SortFunc(out, func(a, b Corridor) int {
		if c := strings.Compare(a.From, b.From); c != 0 {
			return c
		}
		return strings.Compare(a.To, b.To)
	})
	return out
}

// Stats returns counts and provenance of the graph.
func (g *Graph) Stats() Stats {
	if g == nil {
		return Stats{}
	}
	return Stats{
		Nodes:   len(g.nodes),
		Edges:   len(g.edges),
		BuiltAt: g.builtAt,
		Source:  g.source,
	}
}

// Fast is an optional extension of Handle implemented by *Graph. Hot loops in
// the routing core use it to skip defensive copies.
type Fast interface {
	Handle
	SuccessorsShared(n string) []string
	AttributesShared(from, to string) (Attributes, bool)
}

// SuccessorsShared returns the internal successor slice. Callers must not modify it.
func (g *Graph) SuccessorsShared(n string) []string {
	if g == nil {
		return nil
	}
	return g.outgoing[n]
}

// AttributesShared returns stored attributes without copying. Callers must not modify them.
func (g *Graph) AttributesShared(from, to string) (Attributes, bool) {
	if g == nil {
		return Attributes{}, false
	}
	return g.edgeAttributesShared(from, to)
}
