package routing

import (
	"container/heap"
	"slices"
)

// hopState is a node reached after a given number of hops. Searching over
// (node, hops) keeps the hop bound exact: a cheaper path that used more hops
// does not hide a dearer one that still has hops to spare.
type hopState struct {
	node string
	hops int
}

type stateItem struct {
	hopState
	dist float64
}

// stateQueue orders by distance, then hop count, then node code.
type stateQueue []stateItem

func (q stateQueue) Len() int { return len(q) }

func (q stateQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	if q[i].hops != q[j].hops {
		return q[i].hops < q[j].hops
	}
	return q[i].node < q[j].node
}

func (q stateQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *stateQueue) Push(x any) { *q = append(*q, x.(stateItem)) }

func (q *stateQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// exclusions are the nodes and corridors hidden from one spur search.
type exclusions struct {
	nodes map[string]struct{}
	edges map[[2]string]struct{}
}

func (x exclusions) node(n string) bool {
	_, ok := x.nodes[n]
	return ok
}

func (x exclusions) edge(from, to string) bool {
	_, ok := x.edges[[2]string{from, to}]
	return ok
}

// shortestPath finds the minimum-friction path from src to dst using at most
// maxHops corridors while avoiding excluded nodes and corridors. It returns
// nil when no such path exists and errDegenerateWeight when it meets a weight
// it cannot order.
func shortestPath(v graphView, src, dst string, maxHops int, skip exclusions, b *budget) (Path, error) {
	start := hopState{node: src}
	dist := map[hopState]float64{start: 0}
	prev := make(map[hopState]hopState)
	done := make(map[hopState]struct{})

	q := &stateQueue{{hopState: start}}
	for q.Len() > 0 {
		cur := heap.Pop(q).(stateItem)
		if _, ok := done[cur.hopState]; ok {
			continue
		}
		done[cur.hopState] = struct{}{}
		if err := b.step(); err != nil {
			return nil, err
		}

		if cur.node == dst {
			p := unwind(prev, start, cur.hopState)
			if !p.Simple() {
				return nil, errDegenerateWeight
			}
			return p, nil
		}
		if cur.hops >= maxHops {
			continue
		}

		for _, next := range v.successors(cur.node) {
			if next == src || skip.node(next) || skip.edge(cur.node, next) {
				continue
			}
			attrs, ok := v.attributes(cur.node, next)
			if !ok {
				continue
			}
			w := ResolveFriction(attrs)
			if degenerate(w) {
				return nil, errDegenerateWeight
			}
			ns := hopState{node: next, hops: cur.hops + 1}
			nd := cur.dist + w
			if old, seen := dist[ns]; !seen || nd < old {
				dist[ns] = nd
				prev[ns] = cur.hopState
				heap.Push(q, stateItem{hopState: ns, dist: nd})
			}
		}
	}
	return nil, nil
}

func unwind(prev map[hopState]hopState, start, end hopState) Path {
	p := Path{end.node}
	for s := end; s != start; {
		s = prev[s]
		p = append(p, s.node)
	}
	slices.Reverse(p)
	return p
}
