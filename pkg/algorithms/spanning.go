package algorithms

import (
	"sort"
)

// disjointSet is a union-find with path halving and union by rank.
type disjointSet struct {
	parent []int
	rank   []int
}

func newDisjointSet(n int) *disjointSet {
	ds := &disjointSet{parent: make([]int, n), rank: make([]int, n)}
	for i := range ds.parent {
		ds.parent[i] = i
	}
	return ds
}

func (ds *disjointSet) find(x int) int {
	for ds.parent[x] != x {
		ds.parent[x] = ds.parent[ds.parent[x]]
		x = ds.parent[x]
	}
	return x
}

func (ds *disjointSet) union(a, b int) bool {
	ra, rb := ds.find(a), ds.find(b)
	if ra == rb {
		return false
	}
	switch {
	case ds.rank[ra] < ds.rank[rb]:
		ds.parent[ra] = rb
	case ds.rank[ra] > ds.rank[rb]:
		ds.parent[rb] = ra
	default:
		ds.parent[rb] = ra
		ds.rank[ra]++
	}
	return true
}

// MaxSpanningForest runs Kruskal with edges taken by descending capacity and
// then ascending edge id. It returns the chosen edge indices in selection order.
func MaxSpanningForest(ix *Index) []int {
	order := make([]int, 0, len(ix.Edges))
	for k, e := range ix.Edges {
		if !e.IsLoop() {
			order = append(order, k)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := ix.Edges[order[i]], ix.Edges[order[j]]
		if a.Capacity != b.Capacity {
			return a.Capacity > b.Capacity
		}
		return a.ID < b.ID
	})

	ds := newDisjointSet(ix.N())
	var forest []int
	for _, k := range order {
		e := ix.Edges[k]
		if ds.union(e.U, e.V) {
			forest = append(forest, k)
			if len(forest) == ix.N()-1 {
				break
			}
		}
	}
	return forest
}

// ForestCapacity returns the total and the minimum capacity over the forest
// edges; both are zero for an empty forest.
func ForestCapacity(ix *Index, forest []int) (total, bottleneck float64) {
	if len(forest) == 0 {
		return 0, 0
	}
	caps := make([]float64, len(forest))
	for i, k := range forest {
		caps[i] = ix.Edges[k].Capacity
	}
	lo, _ := MinMax(caps)
	return Sum(caps), lo
}
