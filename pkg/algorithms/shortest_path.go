package algorithms

import (
	"container/heap"
	"math"
)

// BFS returns hop distances from src; unreachable nodes get -1.
func BFS(ix *Index, src int) []int {
	dist := make([]int, ix.N())
	for i := range dist {
		dist[i] = -1
	}
	dist[src] = 0
	queue := []int{src}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, a := range ix.Adj[v] {
			if dist[a.To] < 0 {
				dist[a.To] = dist[v] + 1
				queue = append(queue, a.To)
			}
		}
	}
	return dist
}

// HopStats returns the hop diameter and the mean hop distance over ordered
// pairs of distinct nodes within component. A single node gives (0, 0).
func HopStats(ix *Index, component []int) (diameter int, mean float64) {
	k := len(component)
	if k < 2 {
		return 0, 0
	}
	var total Accumulator
	for _, s := range component {
		dist := BFS(ix, s)
		for _, t := range component {
			if t == s {
				continue
			}
			total.Add(float64(dist[t]))
			if dist[t] > diameter {
				diameter = dist[t]
			}
		}
	}
	return diameter, total.Value() / float64(k*(k-1))
}

// EdgeWeight is the length used for weighted paths; a missing length counts as 1.
func EdgeWeight(e EdgeRef) float64 {
	if !e.HasLength {
		return 1
	}
	return e.Length
}

type distItem struct {
	node int
	dist float64
}

type distHeap []distItem

func (h distHeap) Len() int { return len(h) }
func (h distHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].node < h[j].node
}
func (h distHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *distHeap) Push(x any) {
	*h = append(*h, x.(distItem))
}

func (h *distHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Dijkstra returns length-weighted distances from src; unreachable nodes get +Inf.
func Dijkstra(ix *Index, src int) []float64 {
	dist := make([]float64, ix.N())
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	dist[src] = 0
	done := make([]bool, ix.N())

	h := &distHeap{{node: src}}
	for h.Len() > 0 {
		item := heap.Pop(h).(distItem)
		if done[item.node] {
			continue
		}
		done[item.node] = true
		for _, a := range ix.Adj[item.node] {
			nd := item.dist + EdgeWeight(ix.Edges[a.Edge])
			if nd < dist[a.To] {
				dist[a.To] = nd
				heap.Push(h, distItem{node: a.To, dist: nd})
			}
		}
	}
	return dist
}

// WeightedMean returns the mean length-weighted distance over ordered pairs of
// distinct nodes within component.
func WeightedMean(ix *Index, component []int) float64 {
	k := len(component)
	if k < 2 {
		return 0
	}
	var total Accumulator
	for _, s := range component {
		dist := Dijkstra(ix, s)
		for _, t := range component {
			if t != s {
				total.Add(dist[t])
			}
		}
	}
	return total.Value() / float64(k*(k-1))
}
