package simplify

import (
	"github.com/dd0wney/gasnet-simplify/pkg/network"
)

// growFromSeeds assigns every node reachable from seeds to its nearest seed by
// breadth-first search. Seeds are expanded in the given order and neighbors in
// ascending id order, so ties go to the earlier seed. When allowed is non-nil
// the search never leaves the nodes it accepts. The result maps each seed to
// the nodes it claimed, seeds excluded.
func growFromSeeds(b *network.Builder, seeds []network.NodeID, allowed func(network.NodeID) bool) map[network.NodeID][]network.NodeID {
	owner := make(map[network.NodeID]network.NodeID, len(seeds))
	queue := make([]network.NodeID, 0, len(seeds))
	for _, s := range seeds {
		if _, dup := owner[s]; dup {
			continue
		}
		owner[s] = s
		queue = append(queue, s)
	}
	claimed := make(map[network.NodeID][]network.NodeID)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range b.Neighbors(cur) {
			if _, done := owner[nb]; done {
				continue
			}
			if allowed != nil && !allowed(nb) {
				continue
			}
			owner[nb] = owner[cur]
			claimed[owner[cur]] = append(claimed[owner[cur]], nb)
			queue = append(queue, nb)
		}
	}
	return claimed
}

// absorbInto merges every claimed node into its seed, seeds in order.
func absorbInto(b *network.Builder, t network.Table, seeds []network.NodeID, claimed map[network.NodeID][]network.NodeID) (bool, error) {
	changed := false
	for _, s := range seeds {
		members := claimed[s]
		if len(members) == 0 {
			continue
		}
		if _, err := b.MergeNodesInto(t, s, members...); err != nil {
			return false, err
		}
		changed = true
	}
	return changed, nil
}
