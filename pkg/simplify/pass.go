// Package simplify reduces gas network graphs with topology-preserving passes:
// chain contraction, parallel-edge merging, degree-based pruning, k-core
// reduction and cluster collapsing.
package simplify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dd0wney/gasnet-simplify/pkg/network"
)

// ErrUnknownPass is returned by Build for an unrecognised pass name.
var ErrUnknownPass = errors.New("unknown pass")

// Pass names accepted by Build.
const (
	PassChain    = "chain"
	PassParallel = "parallel"
	PassPrune    = "prune"
	PassKCore    = "kcore"
	PassCluster  = "cluster"
)

// Pass is one simplification step. Apply never modifies g.
type Pass interface {
	Name() string
	Apply(g *network.Graph) (*network.Graph, error)
}

// Options are shared by every pass.
type Options struct {
	Table network.Table
	// KeepRoles lists roles whose nodes are never removed.
	KeepRoles []network.Role
}

// DefaultOptions keeps every station role and uses network.DefaultTable.
func DefaultOptions() Options {
	return Options{
		Table: network.DefaultTable(),
		KeepRoles: []network.Role{
			network.RoleSource,
			network.RoleSink,
			network.RoleCompressor,
			network.RoleValve,
			network.RoleStorage,
		},
	}
}

func (o Options) isZero() bool {
	return o.Table.Node == nil && o.Table.Series == nil && o.Table.Parallel == nil &&
		o.Table.Fold == nil && o.KeepRoles == nil
}

func (o Options) orDefault() Options {
	if o.isZero() {
		return DefaultOptions()
	}
	return o
}

// protected reports whether n must survive every pass.
func (o Options) protected(n network.Node) bool {
	if n.Essential {
		return true
	}
	for _, r := range o.KeepRoles {
		if n.Role == r {
			return true
		}
	}
	return false
}

// begin validates the table against g and returns a private working copy.
func (o Options) begin(pass string, g *network.Graph) (*network.Builder, error) {
	if err := o.Table.Validate(g); err != nil {
		return nil, fmt.Errorf("%s: %w", pass, err)
	}
	return g.Edit(), nil
}

// finish freezes b, attributing any invariant failure to pass.
func finish(pass string, b *network.Builder) (*network.Graph, error) {
	g, err := b.Freeze()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pass, err)
	}
	return g, nil
}

// contractible reports whether id is a plain degree-2 pass-through node: two
// non-loop edges leading to two different neighbors and no supply or demand,
// which series contraction would otherwise lose.
func contractible(b *network.Builder, id network.NodeID) (network.EdgeID, network.EdgeID, bool) {
	n, ok := b.Node(id)
	if !ok {
		return "", "", false
	}
	if v := n.Attrs[network.Supply]; v != 0 {
		return "", "", false
	}
	inc := b.IncidentEdges(id)
	if len(inc) != 2 {
		return "", "", false
	}
	e1, _ := b.Edge(inc[0])
	e2, _ := b.Edge(inc[1])
	if e1.IsLoop() || e2.IsLoop() || e1.Other(id) == e2.Other(id) {
		return "", "", false
	}
	return inc[0], inc[1], true
}

// Params carry the per-pass settings Build hands to the passes it creates.
// Their Options are replaced by the shared ones.
type Params struct {
	Prune    DegreePrune
	CoreK    int
	Clusters [][]network.NodeID
}

// Build constructs passes from their configuration names.
func Build(names []string, opts Options, params Params) ([]Pass, error) {
	passes := make([]Pass, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case PassChain:
			passes = append(passes, &ChainContraction{Options: opts})
		case PassParallel:
			passes = append(passes, &ParallelMerge{Options: opts})
		case PassPrune:
			p := params.Prune
			p.Options = opts
			passes = append(passes, &p)
		case PassKCore:
			passes = append(passes, &KCore{Options: opts, K: params.CoreK})
		case PassCluster:
			passes = append(passes, &ClusterMerge{Options: opts, Clusters: params.Clusters})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownPass, name)
		}
	}
	return passes, nil
}
