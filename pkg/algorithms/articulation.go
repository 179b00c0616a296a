package algorithms

// ArticulationPoints returns, in ascending order, the positions of nodes whose
// removal disconnects their component (Tarjan's low-link method). Parallel
// edges are told apart by edge, so a doubled connection is not a bridge.
func ArticulationPoints(ix *Index) []int {
	n := ix.N()
	disc := make([]int, n)
	low := make([]int, n)
	for i := range disc {
		disc[i] = -1
	}
	isCut := make([]bool, n)
	timer := 0

	type frame struct {
		node     int
		viaEdge  int
		next     int
		children int
	}

	for root := 0; root < n; root++ {
		if disc[root] >= 0 {
			continue
		}
		disc[root], low[root] = timer, timer
		timer++
		stack := []frame{{node: root, viaEdge: -1}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			v := top.node
			if top.next < len(ix.Adj[v]) {
				a := ix.Adj[v][top.next]
				top.next++
				if a.Edge == top.viaEdge {
					continue
				}
				if disc[a.To] >= 0 {
					low[v] = min(low[v], disc[a.To])
					continue
				}
				disc[a.To], low[a.To] = timer, timer
				timer++
				top.children++
				stack = append(stack, frame{node: a.To, viaEdge: a.Edge})
				continue
			}

			// v is finished; report to its parent.
			children := top.children
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				if children > 1 {
					isCut[v] = true
				}
				continue
			}
			parent := stack[len(stack)-1].node
			low[parent] = min(low[parent], low[v])
			if len(stack) > 1 && low[v] >= disc[parent] {
				isCut[parent] = true
			}
		}
	}

	var out []int
	for i, cut := range isCut {
		if cut {
			out = append(out, i)
		}
	}
	return out
}
