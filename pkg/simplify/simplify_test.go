package simplify

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/gasnet-simplify/pkg/metrics"
	"github.com/dd0wney/gasnet-simplify/pkg/network"
	"github.com/dd0wney/gasnet-simplify/pkg/snapshot"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestChainContractionPath(t *testing.T) {
	g := pathSpec(5, 10, 100).mustBuild(t)

	out, err := (&ChainContraction{Options: DefaultOptions()}).Apply(g)
	require.NoError(t, err)
	require.Equal(t, 2, out.NodeCount())
	require.Equal(t, 1, out.EdgeCount())

	e := out.Edges()[0]
	assert.Equal(t, 40.0, e.Attrs[network.Length])
	assert.Equal(t, 100.0, e.Attrs[network.Capacity])
	span, err := out.Span(e.ID)
	require.NoError(t, err)
	assert.Len(t, span, 5)

	assert.Equal(t, 5, g.NodeCount(), "input graph must be untouched")
}

func TestChainContractionKeepsProtectedNodes(t *testing.T) {
	spec := pathSpec(5, 10, 100)
	spec.nodes[2].Role = network.RoleCompressor
	spec.nodes[3].Attrs = network.Attributes{network.Supply: -4}
	g := spec.mustBuild(t)

	out, err := (&ChainContraction{Options: DefaultOptions()}).Apply(g)
	require.NoError(t, err)

	assert.True(t, out.HasNode("p3"), "compressor is protected")
	assert.True(t, out.HasNode("p4"), "nodes with demand are not contracted")
	assert.False(t, out.HasNode("p2"))
	assert.Equal(t, 3, out.EdgeCount())
}

func TestChainContractionRing(t *testing.T) {
	b := network.NewBuilder()
	for _, id := range []network.NodeID{"a", "b", "c", "d"} {
		require.NoError(t, b.AddNode(network.Node{ID: id}))
	}
	for _, e := range [][3]string{{"ab", "a", "b"}, {"bc", "b", "c"}, {"cd", "c", "d"}, {"da", "d", "a"}} {
		require.NoError(t, b.AddEdge(network.Edge{ID: network.EdgeID(e[0]), From: network.NodeID(e[1]), To: network.NodeID(e[2]),
			Attrs: network.Attributes{network.Length: 1, network.Capacity: 5}}))
	}
	g, err := b.Freeze()
	require.NoError(t, err)

	res, err := NewPipeline("ring", &ChainContraction{}).Run(context.Background(), g)
	require.NoError(t, err)
	// the ring collapses to two nodes joined by one merged edge
	require.Equal(t, 2, res.Graph.NodeCount())
	require.Equal(t, 1, res.Graph.EdgeCount())
	e := res.Graph.Edges()[0]
	assert.Equal(t, network.EdgeID("ab"), e.ID)
	assert.Equal(t, []network.NodeID{"a", "b"}, e.Interior.Sorted())
	assert.Len(t, e.Provenance, 4)
	assert.Equal(t, 10.0, e.Attrs[network.Capacity])
	assert.Equal(t, 2.0, e.Attrs[network.Length])
}

func TestParallelMerge(t *testing.T) {
	b := network.NewBuilder()
	require.NoError(t, b.AddNode(network.Node{ID: "a"}))
	require.NoError(t, b.AddNode(network.Node{ID: "b"}))
	for i, c := range []float64{10, 20, 30} {
		require.NoError(t, b.AddEdge(network.Edge{
			ID:    network.EdgeID([]string{"x", "y", "z"}[i]),
			From:  "a",
			To:    "b",
			Attrs: network.Attributes{network.Capacity: c},
		}))
	}
	require.NoError(t, b.AddEdge(network.Edge{ID: "loop", From: "a", To: "a", Attrs: network.Attributes{network.Length: 3}}))
	g, err := b.Freeze()
	require.NoError(t, err)

	out, err := (&ParallelMerge{}).Apply(g)
	require.NoError(t, err)
	require.NoError(t, out.CheckSimplified())
	require.Equal(t, 1, out.EdgeCount())

	e := out.Edges()[0]
	assert.Equal(t, network.EdgeID("x"), e.ID)
	assert.Equal(t, 60.0, e.Attrs[network.Capacity])
	a, _ := out.Node("a")
	assert.Equal(t, 3.0, a.Attrs[network.InternalLength])
}

func TestDegreePrune(t *testing.T) {
	// hub h with leaves l1 (demand) and l2 (source), a spur s1-s2 and an
	// isolated node
	b := network.NewBuilder()
	nodes := []network.Node{
		{ID: "h"},
		{ID: "k"},
		{ID: "l1", Attrs: network.Attributes{network.Supply: -2}},
		{ID: "l2", Role: network.RoleSource, Attrs: network.Attributes{network.Supply: 9}},
		{ID: "s1"},
		{ID: "s2"},
		{ID: "iso"},
	}
	for _, n := range nodes {
		require.NoError(t, b.AddNode(n))
	}
	edges := []network.Edge{
		{ID: "h-k", From: "h", To: "k", Attrs: network.Attributes{network.Capacity: 1}},
		{ID: "h-l1", From: "h", To: "l1", Attrs: network.Attributes{network.Capacity: 50}},
		{ID: "h-l2", From: "h", To: "l2", Attrs: network.Attributes{network.Capacity: 50}},
		{ID: "h-s1", From: "h", To: "s1", Attrs: network.Attributes{network.Capacity: 50}},
		{ID: "k-s1", From: "k", To: "s1", Attrs: network.Attributes{network.Capacity: 1}},
		{ID: "s1-s2", From: "s1", To: "s2", Attrs: network.Attributes{network.Capacity: 5}},
	}
	for _, e := range edges {
		require.NoError(t, b.AddEdge(e))
	}
	g, err := b.Freeze()
	require.NoError(t, err)

	prune := &DegreePrune{Options: DefaultOptions(), MaxDegree: 1}
	out, err := prune.Apply(g)
	require.NoError(t, err)

	assert.True(t, out.HasNode("iso"), "isolated nodes are never removed")
	assert.True(t, out.HasNode("l2"), "sources are protected")
	assert.False(t, out.HasNode("l1"))
	assert.False(t, out.HasNode("s2"))

	hub, _ := out.Node("h")
	assert.Equal(t, -2.0, hub.Attrs[network.Supply])
	assert.True(t, hub.Provenance.Has("l1"))
	s1, _ := out.Node("s1")
	assert.True(t, s1.Provenance.Has("s2"))

	nodesBefore, edgesBefore := network.Coverage(g)
	nodesAfter, edgesAfter := network.Coverage(out)
	assert.True(t, nodesBefore.Equal(nodesAfter))
	assert.True(t, edgesBefore.Equal(edgesAfter))
}

func TestDegreePruneAttributeThreshold(t *testing.T) {
	b := network.NewBuilder()
	require.NoError(t, b.AddNode(network.Node{ID: "h"}))
	require.NoError(t, b.AddNode(network.Node{ID: "big", Attrs: network.Attributes{network.Supply: -20}}))
	require.NoError(t, b.AddNode(network.Node{ID: "small", Attrs: network.Attributes{network.Supply: -0.1}}))
	require.NoError(t, b.AddEdge(network.Edge{ID: "e1", From: "h", To: "big"}))
	require.NoError(t, b.AddEdge(network.Edge{ID: "e2", From: "h", To: "small"}))
	g, err := b.Freeze()
	require.NoError(t, err)

	out, err := (&DegreePrune{Options: DefaultOptions(), MaxDegree: 1, Attr: network.Supply, Below: 1}).Apply(g)
	require.NoError(t, err)
	assert.True(t, out.HasNode("big"))
	assert.False(t, out.HasNode("small"))
}

func TestAbsorberTieBreak(t *testing.T) {
	b := network.NewBuilder()
	for _, id := range []network.NodeID{"leaf", "x", "y", "z"} {
		require.NoError(t, b.AddNode(network.Node{ID: id}))
	}
	// leaf has degree 3 with equal-score neighbors
	for _, nb := range []network.NodeID{"z", "y", "x"} {
		require.NoError(t, b.AddEdge(network.Edge{ID: network.EdgeID("leaf-" + nb), From: "leaf", To: nb,
			Attrs: network.Attributes{network.Capacity: 10}}))
	}
	g, err := b.Freeze()
	require.NoError(t, err)

	target, ok := absorber(g.Edit(), "leaf")
	require.True(t, ok)
	assert.Equal(t, network.NodeID("x"), target)
}

func TestPassRejectsMissingPolicy(t *testing.T) {
	g := pathSpec(4, 10, 100).mustBuild(t)
	opts := DefaultOptions()
	delete(opts.Table.Series, network.Capacity)

	passes := []Pass{
		&ChainContraction{Options: opts},
		&ParallelMerge{Options: opts},
		&DegreePrune{Options: opts},
		&KCore{Options: opts},
		&ClusterMerge{Options: opts},
	}
	for _, p := range passes {
		t.Run(p.Name(), func(t *testing.T) {
			_, err := p.Apply(g)
			assert.ErrorIs(t, err, network.ErrUnknownAggregationPolicy)
		})
	}
	assert.Equal(t, 4, g.NodeCount())
}

func TestBuild(t *testing.T) {
	clusters := [][]network.NodeID{{"a", "b"}}
	passes, err := Build([]string{"chain", " Parallel", "prune", "KCORE", "cluster"}, DefaultOptions(),
		Params{Prune: DegreePrune{MaxDegree: 2}, CoreK: 3, Clusters: clusters})
	require.NoError(t, err)
	require.Len(t, passes, 5)
	assert.Equal(t, PassChain, passes[0].Name())
	assert.Equal(t, PassParallel, passes[1].Name())
	prune, ok := passes[2].(*DegreePrune)
	require.True(t, ok)
	assert.Equal(t, 2, prune.MaxDegree)
	assert.NotEmpty(t, prune.Options.KeepRoles)
	kcore, ok := passes[3].(*KCore)
	require.True(t, ok)
	assert.Equal(t, 3, kcore.K)
	cluster, ok := passes[4].(*ClusterMerge)
	require.True(t, ok)
	assert.Equal(t, clusters, cluster.Clusters)

	_, err = Build([]string{"chain", "magic"}, DefaultOptions(), Params{})
	assert.ErrorIs(t, err, ErrUnknownPass)
}

func TestPipelineAppendsParallelMerge(t *testing.T) {
	p := NewPipeline("x", &ChainContraction{})
	passes := p.passes()
	require.Len(t, passes, 2)
	assert.Equal(t, PassParallel, passes[1].Name())

	p = NewPipeline("y", &ParallelMerge{}, &ChainContraction{})
	assert.Len(t, p.passes(), 2)
}

func TestPipelineRecordsJournalAndMetrics(t *testing.T) {
	g := pathSpec(6, 5, 50).mustBuild(t)
	journal := snapshot.NewJournal()
	reg := metrics.NewRegistry()

	p := NewPipeline("chains", &ChainContraction{})
	p.Journal = journal
	p.Metrics = reg
	res, err := p.Run(context.Background(), g)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Rounds, "second round confirms the fixed point")
	require.NotEmpty(t, res.Steps)
	assert.True(t, res.Steps[0].Changed())
	assert.Equal(t, 6, res.Steps[0].NodesBefore)
	assert.Equal(t, 2, res.Steps[0].NodesAfter)

	entries := journal.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "chains/input", entries[0].Label)
	assert.Equal(t, "chains/round-1/chain", entries[1].Label)
	restored, err := journal.Restore(1)
	require.NoError(t, err)
	assert.True(t, restored.Equal(res.Graph))

	assert.Equal(t, 4.0, counterValue(t, reg.NodesRemovedTotal.WithLabelValues(PassChain)))
	assert.Equal(t, 2.0, counterValue(t, reg.PassesTotal.WithLabelValues(PassParallel, metrics.StatusSuccess)))
}

// shrinkOne removes the smallest node on every application and never
// reaches a fixed point on a large graph.
type shrinkOne struct{}

func (shrinkOne) Name() string { return "shrink" }

func (shrinkOne) Apply(g *network.Graph) (*network.Graph, error) {
	ids := g.NodeIDs()
	if len(ids) == 0 {
		return g, nil
	}
	return g.RemoveNode(ids[0])
}

func TestPipelineMaxRounds(t *testing.T) {
	g := pathSpec(10, 1, 1).mustBuild(t)
	p := NewPipeline("runaway", shrinkOne{})
	p.MaxRounds = 3

	_, err := p.Run(context.Background(), g)
	assert.True(t, network.IsInvariantViolation(err))
}

func TestPipelineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPipeline("c", &ChainContraction{}).Run(ctx, pathSpec(3, 1, 1).mustBuild(t))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPipelineIdempotent(t *testing.T) {
	g, err := randomSpec(7).build(nil)
	require.NoError(t, err)

	p := NewPipeline("all", &ChainContraction{}, &ParallelMerge{}, &DegreePrune{MaxDegree: 1})
	first, err := p.Run(context.Background(), g)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), first.Graph)
	require.NoError(t, err)

	assert.True(t, first.Graph.Equal(second.Graph))
	assert.Equal(t, 1, second.Rounds)
}
