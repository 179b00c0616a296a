package simplify

import (
	"math"

	"github.com/dd0wney/gasnet-simplify/pkg/network"
)

// Absorber score weights: incident capacity dominates, degree breaks near ties.
const (
	capacityWeight = 0.8
	degreeWeight   = 0.2
)

// DegreePrune removes low-degree, low-significance nodes without breaking
// connectivity. A candidate is unprotected, has 1 <= degree <= MaxDegree and,
// when Attr is set, |Attr| < Below (a missing attribute counts as zero).
// Plain degree-2 candidates are contracted into their chain; every other
// candidate is merged into its strongest neighbor.
type DegreePrune struct {
	Options   Options
	MaxDegree int
	Attr      network.Attr
	Below     float64
}

func (p *DegreePrune) Name() string { return PassPrune }

func (p *DegreePrune) Apply(g *network.Graph) (*network.Graph, error) {
	opts := p.Options.orDefault()
	b, err := opts.begin(PassPrune, g)
	if err != nil {
		return nil, err
	}
	for {
		changed, err := p.prune(b, opts)
		if err != nil {
			return nil, err
		}
		if !changed {
			break
		}
	}
	return finish(PassPrune, b)
}

func (p *DegreePrune) maxDegree() int {
	if p.MaxDegree < 1 {
		return 1
	}
	return p.MaxDegree
}

func (p *DegreePrune) candidate(b *network.Builder, n network.Node, opts Options) bool {
	if opts.protected(n) {
		return false
	}
	d := b.Degree(n.ID)
	if d < 1 || d > p.maxDegree() {
		return false
	}
	if p.Attr != "" && math.Abs(n.Attrs[p.Attr]) >= p.Below {
		return false
	}
	return true
}

func (p *DegreePrune) prune(b *network.Builder, opts Options) (bool, error) {
	changed := false
	for _, id := range b.NodeIDs() {
		n, ok := b.Node(id)
		if !ok || !p.candidate(b, n, opts) {
			continue
		}
		if e1, e2, ok := contractible(b, id); ok {
			if _, err := b.MergeEdges(opts.Table, e1, e2); err != nil {
				return false, err
			}
			changed = true
			continue
		}
		target, ok := absorber(b, id)
		if !ok {
			continue
		}
		if _, err := b.MergeNodesInto(opts.Table, target, id); err != nil {
			return false, err
		}
		changed = true
	}
	return changed, nil
}

// absorber picks the neighbor with the highest score; ties go to the smallest id.
func absorber(b *network.Builder, id network.NodeID) (network.NodeID, bool) {
	var best network.NodeID
	bestScore := math.Inf(-1)
	for _, nb := range b.Neighbors(id) {
		if s := absorberScore(b, nb); s > bestScore {
			best, bestScore = nb, s
		}
	}
	return best, best != ""
}

func absorberScore(b *network.Builder, id network.NodeID) float64 {
	var capacity float64
	for _, eid := range b.IncidentEdges(id) {
		e, _ := b.Edge(eid)
		capacity += e.Attrs[network.Capacity]
	}
	return capacityWeight*capacity + degreeWeight*float64(b.Degree(id))
}
