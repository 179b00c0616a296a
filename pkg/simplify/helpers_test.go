package simplify

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dd0wney/gasnet-simplify/pkg/network"
)

// graphSpec is a plain description of a graph used to build it in any order.
type graphSpec struct {
	nodes []network.Node
	edges []network.Edge
}

func (s graphSpec) build(order *rand.Rand) (*network.Graph, error) {
	nodes := append([]network.Node(nil), s.nodes...)
	edges := append([]network.Edge(nil), s.edges...)
	if order != nil {
		order.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })
		order.Shuffle(len(edges), func(i, j int) { edges[i], edges[j] = edges[j], edges[i] })
	}
	b := network.NewBuilder()
	for _, n := range nodes {
		if err := b.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, e := range edges {
		if err := b.AddEdge(e); err != nil {
			return nil, err
		}
	}
	return b.Freeze()
}

func (s graphSpec) mustBuild(t *testing.T) *network.Graph {
	t.Helper()
	g, err := s.build(nil)
	require.NoError(t, err)
	return g
}

// randomSpec produces a multigraph with loops, parallel edges, a few stations
// and occasional supply values.
func randomSpec(seed int64) graphSpec {
	r := rand.New(rand.NewSource(seed))
	var s graphSpec
	n := 2 + r.Intn(24)
	for i := 0; i < n; i++ {
		node := network.Node{ID: network.NodeID(fmt.Sprintf("n%02d", i)), Attrs: network.Attributes{}}
		switch r.Intn(10) {
		case 0:
			node.Role = network.RoleSource
			node.Attrs[network.Supply] = float64(1 + r.Intn(50))
		case 1:
			node.Role = network.RoleSink
			node.Attrs[network.Supply] = -float64(1 + r.Intn(50))
		case 2:
			node.Role = network.RoleCompressor
		case 3:
			node.Attrs[network.Supply] = float64(r.Intn(3))
		}
		if r.Intn(2) == 0 {
			node.Attrs[network.Elevation] = float64(r.Intn(400))
		}
		s.nodes = append(s.nodes, node)
	}
	m := r.Intn(3 * n)
	for i := 0; i < m; i++ {
		u := s.nodes[r.Intn(n)].ID
		v := s.nodes[r.Intn(n)].ID
		s.edges = append(s.edges, network.Edge{
			ID:   network.EdgeID(fmt.Sprintf("e%03d", i)),
			From: u,
			To:   v,
			Attrs: network.Attributes{
				network.Length:   float64(1 + r.Intn(100)),
				network.Capacity: float64(1 + r.Intn(100)),
				network.Diameter: float64(100 + 100*r.Intn(8)),
			},
		})
	}
	return s
}

// pathSpec is a chain p1..pn with the end nodes marked source and sink.
func pathSpec(n int, length, capacity float64) graphSpec {
	var s graphSpec
	for i := 1; i <= n; i++ {
		node := network.Node{ID: network.NodeID(fmt.Sprintf("p%d", i))}
		switch i {
		case 1:
			node.Role = network.RoleSource
		case n:
			node.Role = network.RoleSink
		}
		s.nodes = append(s.nodes, node)
	}
	for i := 1; i < n; i++ {
		s.edges = append(s.edges, network.Edge{
			ID:    network.EdgeID(fmt.Sprintf("e%d", i)),
			From:  network.NodeID(fmt.Sprintf("p%d", i)),
			To:    network.NodeID(fmt.Sprintf("p%d", i+1)),
			Attrs: network.Attributes{network.Length: length, network.Capacity: capacity},
		})
	}
	return s
}
