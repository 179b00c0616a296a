package algorithms

// CoreNumbers returns the core number of every node: the largest k such that
// the node belongs to a subgraph where every node has at least k distinct
// neighbors. Parallel edges and self-loops do not add to the degree.
func CoreNumbers(ix *Index) []int {
	n := ix.N()
	deg := make([]int, n)
	nbrs := make([][]int, n)
	maxDeg := 0
	for i := 0; i < n; i++ {
		nbrs[i] = ix.Neighbors(i)
		deg[i] = len(nbrs[i])
		if deg[i] > maxDeg {
			maxDeg = deg[i]
		}
	}

	// Bucket sort by degree (Batagelj-Zaversnik).
	bin := make([]int, maxDeg+1)
	for _, d := range deg {
		bin[d]++
	}
	start := 0
	for d := range bin {
		count := bin[d]
		bin[d] = start
		start += count
	}
	pos := make([]int, n)
	vert := make([]int, n)
	for v := 0; v < n; v++ {
		pos[v] = bin[deg[v]]
		vert[pos[v]] = v
		bin[deg[v]]++
	}
	for d := maxDeg; d > 0; d-- {
		bin[d] = bin[d-1]
	}
	bin[0] = 0

	for i := 0; i < n; i++ {
		v := vert[i]
		for _, u := range nbrs[v] {
			if deg[u] <= deg[v] {
				continue
			}
			du, pu := deg[u], pos[u]
			pw := bin[du]
			w := vert[pw]
			if u != w {
				pos[u], pos[w] = pw, pu
				vert[pu], vert[pw] = w, u
			}
			bin[du]++
			deg[u]--
		}
	}
	return deg
}

// GreedyModularity partitions the graph by agglomerative modularity
// maximisation (Clauset-Newman-Moore). Starting from singletons, the pair of
// adjacent communities with the largest modularity gain is merged until no
// merge gains anything. Equal gains go to the pair with the smallest
// community numbers. Parallel edges add weight; self-loops only add degree.
// Labels are numbered 0, 1, ... in order of their smallest member.
func GreedyModularity(ix *Index) []int {
	n := ix.N()
	comm := make([]int, n)
	for i := range comm {
		comm[i] = i
	}
	m := float64(len(ix.Edges))
	if m == 0 {
		return renumber(comm)
	}

	// between[i][j] counts edges joining communities i and j.
	between := make([]map[int]float64, n)
	share := make([]float64, n)
	for i := 0; i < n; i++ {
		between[i] = make(map[int]float64)
		share[i] = float64(ix.Degree(i)) / (2 * m)
		for _, a := range ix.Adj[i] {
			between[i][a.To]++
		}
	}

	const minGain = 1e-12
	for {
		bi, bj, best := -1, -1, minGain
		for i := 0; i < n; i++ {
			for j, w := range between[i] {
				if j <= i {
					continue
				}
				gain := w/m - 2*share[i]*share[j]
				if gain > best || (gain == best && bi >= 0 && (i < bi || (i == bi && j < bj))) {
					bi, bj, best = i, j, gain
				}
			}
		}
		if bi < 0 {
			break
		}

		// Merge bj into bi.
		for k, w := range between[bj] {
			delete(between[k], bj)
			if k == bi {
				continue
			}
			between[bi][k] += w
			between[k][bi] += w
		}
		delete(between[bi], bj)
		between[bj] = nil
		share[bi] += share[bj]
		share[bj] = 0
		for v := range comm {
			if comm[v] == bj {
				comm[v] = bi
			}
		}
	}
	return renumber(comm)
}

// renumber maps labels to 0, 1, ... in order of first appearance.
func renumber(labels []int) []int {
	ids := make(map[int]int)
	out := make([]int, len(labels))
	for v, label := range labels {
		id, ok := ids[label]
		if !ok {
			id = len(ids)
			ids[label] = id
		}
		out[v] = id
	}
	return out
}
