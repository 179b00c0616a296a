package algorithms

import (
	"sort"
)

// LocalClustering returns the clustering coefficient of every node on the
// simple graph underlying ix. Nodes with fewer than two distinct neighbors
// score zero.
func LocalClustering(ix *Index) []float64 {
	neighbors := make([][]int, ix.N())
	for i := range neighbors {
		neighbors[i] = ix.Neighbors(i)
	}

	out := make([]float64, ix.N())
	for u, nbrs := range neighbors {
		k := len(nbrs)
		if k < 2 {
			continue
		}
		links := 0
		for i := 0; i < k; i++ {
			for j := i + 1; j < k; j++ {
				if adjacent(neighbors[nbrs[i]], nbrs[j]) {
					links++
				}
			}
		}
		out[u] = float64(2*links) / float64(k*(k-1))
	}
	return out
}

// adjacent reports whether target is in the sorted list.
func adjacent(sorted []int, target int) bool {
	i := sort.SearchInts(sorted, target)
	return i < len(sorted) && sorted[i] == target
}
