// Package algorithms holds the graph algorithms behind the structural
// metrics. Every routine works on an Index: a dense, read-only view of a
// network.Graph whose node and edge order is fixed by id, so results never
// depend on map iteration order.
package algorithms

import (
	"sort"

	"github.com/dd0wney/gasnet-simplify/pkg/network"
)

// Arc is one traversable direction of a non-loop edge.
type Arc struct {
	To   int
	Edge int
}

// EdgeRef is an edge with its endpoints resolved to node positions.
type EdgeRef struct {
	ID        network.EdgeID
	U, V      int
	Length    float64
	HasLength bool
	Capacity  float64
	Interior  network.IDSet[network.NodeID]
}

// IsLoop reports whether both endpoints coincide.
func (e EdgeRef) IsLoop() bool { return e.U == e.V }

// Index is an immutable dense view of a graph. It may be shared between
// goroutines.
type Index struct {
	IDs   []network.NodeID
	Nodes []network.Node
	Edges []EdgeRef
	// Adj lists the arcs of every node ordered by (To, Edge). Self-loops are
	// not traversable and only show up in Degree.
	Adj   [][]Arc
	loops []int
	pos   map[network.NodeID]int
}

// NewIndex builds the index of g.
func NewIndex(g *network.Graph) *Index {
	nodes := g.Nodes()
	ix := &Index{
		IDs:   make([]network.NodeID, len(nodes)),
		Nodes: nodes,
		Adj:   make([][]Arc, len(nodes)),
		loops: make([]int, len(nodes)),
		pos:   make(map[network.NodeID]int, len(nodes)),
	}
	for i, n := range nodes {
		ix.IDs[i] = n.ID
		ix.pos[n.ID] = i
	}

	edges := g.Edges()
	ix.Edges = make([]EdgeRef, len(edges))
	for k, e := range edges {
		length, hasLength := e.Attrs[network.Length]
		ref := EdgeRef{
			ID:        e.ID,
			U:         ix.pos[e.From],
			V:         ix.pos[e.To],
			Length:    length,
			HasLength: hasLength,
			Capacity:  e.Attrs[network.Capacity],
			Interior:  e.Interior,
		}
		ix.Edges[k] = ref
		if ref.IsLoop() {
			ix.loops[ref.U]++
			continue
		}
		ix.Adj[ref.U] = append(ix.Adj[ref.U], Arc{To: ref.V, Edge: k})
		ix.Adj[ref.V] = append(ix.Adj[ref.V], Arc{To: ref.U, Edge: k})
	}
	for _, arcs := range ix.Adj {
		sort.Slice(arcs, func(i, j int) bool {
			if arcs[i].To != arcs[j].To {
				return arcs[i].To < arcs[j].To
			}
			return arcs[i].Edge < arcs[j].Edge
		})
	}
	return ix
}

// N returns the number of nodes.
func (ix *Index) N() int { return len(ix.IDs) }

// Pos returns the dense position of id.
func (ix *Index) Pos(id network.NodeID) (int, bool) {
	i, ok := ix.pos[id]
	return i, ok
}

// Degree counts incident edges of node i; a self-loop counts twice.
func (ix *Index) Degree(i int) int {
	return len(ix.Adj[i]) + 2*ix.loops[i]
}

// Neighbors returns the distinct neighbor positions of i in ascending order.
func (ix *Index) Neighbors(i int) []int {
	out := make([]int, 0, len(ix.Adj[i]))
	for _, a := range ix.Adj[i] {
		if len(out) == 0 || out[len(out)-1] != a.To {
			out = append(out, a.To)
		}
	}
	return out
}

// DistinctPairs counts unordered node pairs joined by at least one non-loop edge.
func (ix *Index) DistinctPairs() int {
	pairs := 0
	for i := range ix.Adj {
		for _, nb := range ix.Neighbors(i) {
			if nb > i {
				pairs++
			}
		}
	}
	return pairs
}
