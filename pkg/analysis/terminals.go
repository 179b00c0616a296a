package analysis

import (
	"fmt"
	"math"

	"github.com/dd0wney/gasnet-simplify/pkg/algorithms"
	"github.com/dd0wney/gasnet-simplify/pkg/network"
)

// resolveTerminals picks the flow terminals of ix.
//
// Explicit ids are original node ids. An id resolves to the current node that
// carries it in its provenance, or to both endpoints of the edge it was
// contracted into; explicit terminals attach unbounded. Without explicit ids
// nodes with positive supply become sources and nodes with negative supply
// sinks, each bounded by |supply|. Failing that, source and sink roles attach
// unbounded.
func resolveTerminals(ix *algorithms.Index, sources, sinks []network.NodeID) ([]algorithms.Terminal, []algorithms.Terminal, error) {
	if len(sources) > 0 || len(sinks) > 0 {
		owners := make(map[network.NodeID][]int)
		for i, n := range ix.Nodes {
			for orig := range n.Provenance {
				owners[orig] = []int{i}
			}
			owners[n.ID] = []int{i}
		}
		for _, e := range ix.Edges {
			for orig := range e.Interior {
				owners[orig] = []int{e.U, e.V}
			}
		}
		src, err := explicitTerminals(owners, sources)
		if err != nil {
			return nil, nil, err
		}
		snk, err := explicitTerminals(owners, sinks)
		if err != nil {
			return nil, nil, err
		}
		return src, snk, nil
	}

	var src, snk []algorithms.Terminal
	for i, n := range ix.Nodes {
		switch s := n.Attrs[network.Supply]; {
		case s > 0:
			src = append(src, algorithms.Terminal{Node: i, Limit: s})
		case s < 0:
			snk = append(snk, algorithms.Terminal{Node: i, Limit: -s})
		}
	}
	if len(src) > 0 || len(snk) > 0 {
		return src, snk, nil
	}

	for i, n := range ix.Nodes {
		switch n.Role {
		case network.RoleSource:
			src = append(src, algorithms.Terminal{Node: i, Limit: math.Inf(1)})
		case network.RoleSink:
			snk = append(snk, algorithms.Terminal{Node: i, Limit: math.Inf(1)})
		}
	}
	return src, snk, nil
}

// explicitTerminals maps ids to unbounded terminals, one per current node.
func explicitTerminals(owners map[network.NodeID][]int, ids []network.NodeID) ([]algorithms.Terminal, error) {
	seen := make(map[int]bool, len(ids))
	out := make([]algorithms.Terminal, 0, len(ids))
	for _, id := range ids {
		nodes, ok := owners[id]
		if !ok {
			return nil, fmt.Errorf("flow terminal %q: %w", id, network.ErrNotFound)
		}
		for _, i := range nodes {
			if !seen[i] {
				seen[i] = true
				out = append(out, algorithms.Terminal{Node: i, Limit: math.Inf(1)})
			}
		}
	}
	return out, nil
}
