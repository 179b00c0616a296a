package algorithms

// EdgeBetweenness runs Brandes' algorithm on the undirected multigraph and
// returns one score per entry of ix.Edges. Parallel edges split the shortest
// paths between them; self-loops score zero. Scores are normalised by the
// number of unordered node pairs.
func EdgeBetweenness(ix *Index) []float64 {
	_, edges := Betweenness(ix)
	return edges
}

// NodeBetweenness returns one score per node, normalised by the number of
// unordered pairs of other nodes. Graphs with fewer than three nodes score zero.
func NodeBetweenness(ix *Index) []float64 {
	nodes, _ := Betweenness(ix)
	return nodes
}

// Betweenness computes node and edge betweenness in one Brandes sweep.
func Betweenness(ix *Index) (nodes, edges []float64) {
	n := ix.N()
	nodes = make([]float64, n)
	scores := make([]float64, len(ix.Edges))
	if n < 2 {
		return nodes, scores
	}

	type predArc struct {
		node int
		edge int
	}

	sigma := make([]float64, n)
	dist := make([]int, n)
	delta := make([]float64, n)
	preds := make([][]predArc, n)
	stack := make([]int, 0, n)

	for source := 0; source < n; source++ {
		for i := 0; i < n; i++ {
			sigma[i] = 0
			dist[i] = -1
			delta[i] = 0
			preds[i] = preds[i][:0]
		}
		stack = stack[:0]
		sigma[source] = 1
		dist[source] = 0

		queue := []int{source}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, a := range ix.Adj[v] {
				w := a.To
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], predArc{node: v, edge: a.Edge})
				}
			}
		}

		// Back-propagation onto edges and intermediate nodes
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, p := range preds[w] {
				contribution := (sigma[p.node] / sigma[w]) * (1 + delta[w])
				delta[p.node] += contribution
				scores[p.edge] += contribution
			}
			if w != source {
				nodes[w] += delta[w]
			}
		}
	}

	// Every unordered pair was seen from both ends.
	norm := 1.0 / float64(n*(n-1))
	for i := range scores {
		scores[i] *= norm
	}
	if n > 2 {
		norm = 1.0 / float64((n-1)*(n-2))
		for i := range nodes {
			nodes[i] *= norm
		}
	} else {
		clear(nodes)
	}
	return nodes, scores
}
