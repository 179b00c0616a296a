package algorithms

import (
	"math"
)

// flowEps is the residual capacity below which an arc counts as saturated.
const flowEps = 1e-9

// Terminal attaches a node to the super source or super sink. Limit bounds the
// attaching arc; math.Inf(1) leaves it unbounded.
type Terminal struct {
	Node  int
	Limit float64
}

type flowArc struct {
	to  int
	rev int
	cap float64
}

// MaxFlow computes the deliverability between all sources and all sinks with
// Edmonds-Karp on the undirected capacity network. Each non-loop edge becomes
// a pair of arcs with its capacity in both directions; parallel edges add up.
// A missing capacity counts as zero. Nodes listed as both source and sink are
// only treated as sources.
func MaxFlow(ix *Index, sources, sinks []Terminal) float64 {
	n := ix.N()
	if n == 0 || len(sources) == 0 || len(sinks) == 0 {
		return 0
	}
	superSource, superSink := n, n+1
	arcs := make([][]flowArc, n+2)

	addArc := func(u, v int, forward, backward float64) {
		arcs[u] = append(arcs[u], flowArc{to: v, rev: len(arcs[v]), cap: forward})
		arcs[v] = append(arcs[v], flowArc{to: u, rev: len(arcs[u]) - 1, cap: backward})
	}

	for _, e := range ix.Edges {
		if e.IsLoop() || e.Capacity <= 0 {
			continue
		}
		addArc(e.U, e.V, e.Capacity, e.Capacity)
	}

	isSource := make([]bool, n)
	for _, t := range sources {
		if t.Limit > 0 {
			isSource[t.Node] = true
			addArc(superSource, t.Node, t.Limit, 0)
		}
	}
	attached := false
	for _, t := range sinks {
		if isSource[t.Node] || t.Limit <= 0 {
			continue
		}
		attached = true
		addArc(t.Node, superSink, t.Limit, 0)
	}
	if !attached {
		return 0
	}

	type step struct{ node, arc int }
	var acc Accumulator
	for {
		// BFS for the shortest augmenting path.
		prev := make([]step, n+2)
		for i := range prev {
			prev[i] = step{-1, -1}
		}
		prev[superSource] = step{superSource, -1}
		queue := []int{superSource}
		for len(queue) > 0 && prev[superSink].node < 0 {
			u := queue[0]
			queue = queue[1:]
			for i, a := range arcs[u] {
				if a.cap > flowEps && prev[a.to].node < 0 {
					prev[a.to] = step{u, i}
					queue = append(queue, a.to)
				}
			}
		}
		if prev[superSink].node < 0 {
			break
		}

		bottleneck := math.Inf(1)
		for v := superSink; v != superSource; v = prev[v].node {
			p := prev[v]
			bottleneck = math.Min(bottleneck, arcs[p.node][p.arc].cap)
		}
		if math.IsInf(bottleneck, 1) {
			// Unbounded on both terminal arcs with no pipe in between.
			return bottleneck
		}
		for v := superSink; v != superSource; v = prev[v].node {
			p := prev[v]
			a := &arcs[p.node][p.arc]
			a.cap -= bottleneck
			arcs[v][a.rev].cap += bottleneck
		}
		acc.Add(bottleneck)
	}
	return acc.Value()
}
