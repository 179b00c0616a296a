package simplify

import (
	"github.com/dd0wney/gasnet-simplify/pkg/algorithms"
	"github.com/dd0wney/gasnet-simplify/pkg/network"
)

// DefaultCoreK is the core order used when KCore.K is unset.
const DefaultCoreK = 2

// KCore keeps the nodes of the K-core together with every protected node and
// merges each remaining node into the nearest kept node of its component.
// Components without a kept node are left alone, so connectivity and supply
// totals survive.
type KCore struct {
	Options Options
	K       int
}

func (k *KCore) Name() string { return PassKCore }

func (k *KCore) order() int {
	if k.K < 1 {
		return DefaultCoreK
	}
	return k.K
}

func (k *KCore) Apply(g *network.Graph) (*network.Graph, error) {
	opts := k.Options.orDefault()
	b, err := opts.begin(PassKCore, g)
	if err != nil {
		return nil, err
	}

	ix := algorithms.NewIndex(g)
	cores := algorithms.CoreNumbers(ix)
	var seeds []network.NodeID
	for i, id := range ix.IDs {
		if cores[i] >= k.order() || opts.protected(ix.Nodes[i]) {
			seeds = append(seeds, id)
		}
	}
	if _, err := absorbInto(b, opts.Table, seeds, growFromSeeds(b, seeds, nil)); err != nil {
		return nil, err
	}
	return finish(PassKCore, b)
}
