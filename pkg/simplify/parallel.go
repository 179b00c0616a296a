package simplify

import (
	"sort"

	"github.com/dd0wney/gasnet-simplify/pkg/network"
)

// ParallelMerge folds self-loops into their node and merges edges that share
// an endpoint pair with the parallel rules.
type ParallelMerge struct {
	Options Options
}

func (p *ParallelMerge) Name() string { return PassParallel }

func (p *ParallelMerge) Apply(g *network.Graph) (*network.Graph, error) {
	opts := p.Options.orDefault()
	b, err := opts.begin(PassParallel, g)
	if err != nil {
		return nil, err
	}
	for {
		changed, err := mergeParallel(b, opts.Table)
		if err != nil {
			return nil, err
		}
		if !changed {
			break
		}
	}
	return finish(PassParallel, b)
}

func mergeParallel(b *network.Builder, t network.Table) (bool, error) {
	changed := false
	for _, id := range b.NodeIDs() {
		folded, err := b.FoldLoops(t, id)
		if err != nil {
			return false, err
		}
		if folded > 0 {
			changed = true
		}
	}

	groups := make(map[network.Pair][]network.EdgeID)
	for _, e := range b.Edges() {
		groups[e.Key()] = append(groups[e.Key()], e.ID)
	}
	pairs := make([]network.Pair, 0, len(groups))
	for pair, ids := range groups {
		if len(ids) > 1 {
			pairs = append(pairs, pair)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	for _, pair := range pairs {
		if _, err := b.MergeEdges(t, groups[pair]...); err != nil {
			return false, err
		}
		changed = true
	}
	return changed, nil
}
