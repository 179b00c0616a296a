package algorithms

import (
	"sort"
)

// ConnectedComponents returns the node positions of every component. Members
// are ascending; components are ordered largest first, ties broken by the
// smallest member.
func ConnectedComponents(ix *Index) [][]int {
	visited := make([]bool, ix.N())
	var components [][]int

	for start := 0; start < ix.N(); start++ {
		if visited[start] {
			continue
		}
		visited[start] = true
		component := []int{start}
		queue := []int{start}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for _, a := range ix.Adj[v] {
				if !visited[a.To] {
					visited[a.To] = true
					component = append(component, a.To)
					queue = append(queue, a.To)
				}
			}
		}
		sort.Ints(component)
		components = append(components, component)
	}

	sort.SliceStable(components, func(i, j int) bool {
		if len(components[i]) != len(components[j]) {
			return len(components[i]) > len(components[j])
		}
		return components[i][0] < components[j][0]
	})
	return components
}
