package simplify

import (
	"github.com/dd0wney/gasnet-simplify/pkg/network"
)

// ChainContraction replaces every run of unprotected degree-2 nodes by a
// single edge whose attributes follow the series rules.
type ChainContraction struct {
	Options Options
}

func (c *ChainContraction) Name() string { return PassChain }

// Apply contracts eligible nodes in ascending id order until none remain.
func (c *ChainContraction) Apply(g *network.Graph) (*network.Graph, error) {
	opts := c.Options.orDefault()
	b, err := opts.begin(PassChain, g)
	if err != nil {
		return nil, err
	}
	for {
		changed, err := contractChains(b, opts)
		if err != nil {
			return nil, err
		}
		if !changed {
			break
		}
	}
	return finish(PassChain, b)
}

// contractChains makes one sweep over the node ids and reports whether
// anything was contracted.
func contractChains(b *network.Builder, opts Options) (bool, error) {
	changed := false
	for _, id := range b.NodeIDs() {
		n, ok := b.Node(id)
		if !ok || opts.protected(n) {
			continue
		}
		e1, e2, ok := contractible(b, id)
		if !ok {
			continue
		}
		if _, err := b.MergeEdges(opts.Table, e1, e2); err != nil {
			return false, err
		}
		changed = true
	}
	return changed, nil
}
