package simplify

import (
	"sort"
	"sync"

	"github.com/dd0wney/gasnet-simplify/pkg/algorithms"
	"github.com/dd0wney/gasnet-simplify/pkg/network"
)

// ClusterMerge collapses groups of nodes. Each group is split into the pieces
// that are connected inside it; a piece shrinks to its protected members, or
// to its smallest node when it has none, with every other member merged into
// the nearest of those. Groups name original node ids and resolve through
// node provenance, so a group keeps its meaning after other passes ran.
// Ids that only survive inside an edge are ignored, as are ids already
// claimed by an earlier group.
//
// Without Clusters the groups are the greedy modularity communities of the
// first graph the pass is applied to. They are kept for later applications,
// which makes the pass a fixed point once applied. A ClusterMerge must not be
// copied after first use.
type ClusterMerge struct {
	Options  Options
	Clusters [][]network.NodeID

	mu       sync.Mutex
	computed [][]network.NodeID
}

func (c *ClusterMerge) Name() string { return PassCluster }

func (c *ClusterMerge) Apply(g *network.Graph) (*network.Graph, error) {
	opts := c.Options.orDefault()
	b, err := opts.begin(PassCluster, g)
	if err != nil {
		return nil, err
	}

	owner := make(map[network.NodeID]network.NodeID)
	for _, n := range b.Nodes() {
		for id := range n.Provenance {
			owner[id] = n.ID
		}
	}
	claimed := make(map[network.NodeID]bool)
	for _, group := range c.groups(g) {
		var members []network.NodeID
		for _, id := range group {
			o, ok := owner[id]
			if !ok || claimed[o] {
				continue
			}
			claimed[o] = true
			members = append(members, o)
		}
		if err := collapseGroup(b, opts, members); err != nil {
			return nil, err
		}
	}
	return finish(PassCluster, b)
}

// groups returns the configured clusters or the cached communities.
func (c *ClusterMerge) groups(g *network.Graph) [][]network.NodeID {
	if len(c.Clusters) > 0 {
		return c.Clusters
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.computed == nil {
		c.computed = communities(g)
	}
	return c.computed
}

// communities lists the modularity communities of g in original node ids.
func communities(g *network.Graph) [][]network.NodeID {
	ix := algorithms.NewIndex(g)
	labels := algorithms.GreedyModularity(ix)
	out := make([][]network.NodeID, 0)
	for i, label := range labels {
		if label == len(out) {
			out = append(out, nil)
		}
		out[label] = append(out[label], ix.Nodes[i].Provenance.Sorted()...)
	}
	return out
}

func collapseGroup(b *network.Builder, opts Options, members []network.NodeID) error {
	if len(members) < 2 {
		return nil
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	inGroup := make(map[network.NodeID]bool, len(members))
	for _, id := range members {
		inGroup[id] = true
	}
	allowed := func(id network.NodeID) bool { return inGroup[id] }

	visited := make(map[network.NodeID]bool, len(members))
	for _, start := range members {
		if visited[start] {
			continue
		}
		piece := []network.NodeID{start}
		for _, reached := range growFromSeeds(b, piece, allowed) {
			piece = append(piece, reached...)
		}
		sort.Slice(piece, func(i, j int) bool { return piece[i] < piece[j] })

		var seeds []network.NodeID
		for _, id := range piece {
			visited[id] = true
			if n, _ := b.Node(id); opts.protected(n) {
				seeds = append(seeds, id)
			}
		}
		if len(seeds) == 0 {
			seeds = piece[:1]
		}
		if _, err := absorbInto(b, opts.Table, seeds, growFromSeeds(b, seeds, allowed)); err != nil {
			return err
		}
	}
	return nil
}
