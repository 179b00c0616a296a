package analysis

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/gasnet-simplify/pkg/metrics"
	"github.com/dd0wney/gasnet-simplify/pkg/network"
	"github.com/dd0wney/gasnet-simplify/pkg/simplify"
)

type edgeSpec struct {
	id, from, to string
	capacity     float64
	length       float64
}

type graphSpec struct {
	nodes []network.Node
	edges []edgeSpec
}

func (s graphSpec) build(t *testing.T, order *rand.Rand) *network.Graph {
	t.Helper()
	nodes := append([]network.Node(nil), s.nodes...)
	edges := append([]edgeSpec(nil), s.edges...)
	if order != nil {
		order.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })
		order.Shuffle(len(edges), func(i, j int) { edges[i], edges[j] = edges[j], edges[i] })
	}
	b := network.NewBuilder()
	for _, n := range nodes {
		require.NoError(t, b.AddNode(n))
	}
	for _, e := range edges {
		attrs := network.Attributes{}
		if e.capacity != 0 {
			attrs[network.Capacity] = e.capacity
		}
		if e.length != 0 {
			attrs[network.Length] = e.length
		}
		require.NoError(t, b.AddEdge(network.Edge{
			ID:    network.EdgeID(e.id),
			From:  network.NodeID(e.from),
			To:    network.NodeID(e.to),
			Attrs: attrs,
		}))
	}
	g, err := b.Freeze()
	require.NoError(t, err)
	return g
}

func plainNodes(ids ...string) []network.Node {
	nodes := make([]network.Node, len(ids))
	for i, id := range ids {
		nodes[i] = network.Node{ID: network.NodeID(id)}
	}
	return nodes
}

// squareSpec is the 4-cycle a-b-c-d with the diagonal a-c.
func squareSpec() graphSpec {
	return graphSpec{
		nodes: plainNodes("a", "b", "c", "d"),
		edges: []edgeSpec{
			{id: "ab", from: "a", to: "b", capacity: 10, length: 1},
			{id: "bc", from: "b", to: "c", capacity: 20, length: 1},
			{id: "cd", from: "c", to: "d", capacity: 30, length: 1},
			{id: "da", from: "d", to: "a", capacity: 40, length: 1},
			{id: "ac", from: "a", to: "c", capacity: 50, length: 5},
		},
	}
}

// randomSpec is a random multigraph with supply terminals.
func randomSpec(seed int64) graphSpec {
	r := rand.New(rand.NewSource(seed))
	var s graphSpec
	n := 2 + r.Intn(20)
	for i := 0; i < n; i++ {
		node := network.Node{ID: network.NodeID(fmt.Sprintf("n%02d", i)), Attrs: network.Attributes{}}
		switch r.Intn(6) {
		case 0:
			node.Attrs[network.Supply] = float64(1 + r.Intn(40))
		case 1:
			node.Attrs[network.Supply] = -float64(1 + r.Intn(40))
		}
		s.nodes = append(s.nodes, node)
	}
	m := r.Intn(3 * n)
	for i := 0; i < m; i++ {
		s.edges = append(s.edges, edgeSpec{
			id:       fmt.Sprintf("e%03d", i),
			from:     string(s.nodes[r.Intn(n)].ID),
			to:       string(s.nodes[r.Intn(n)].ID),
			capacity: float64(1 + r.Intn(100)),
			length:   float64(1 + r.Intn(50)),
		})
	}
	return s
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric(" Diameter ")
	require.NoError(t, err)
	assert.Equal(t, Diameter, m)

	_, err = ParseMetric("modularity")
	assert.ErrorIs(t, err, ErrUnknownMetric)

	set, err := ParseMetricSet([]string{"node_count", "diameter", "node_count"})
	require.NoError(t, err)
	assert.Equal(t, MetricSet{Diameter, NodeCount}, set)

	all, err := ParseMetricSet(nil)
	require.NoError(t, err)
	assert.Len(t, all, len(catalogue))
	assert.True(t, all.Equal(DefaultMetricSet()))
	assert.True(t, all.Contains(MaxFlow))
}

func TestCompute_Square(t *testing.T) {
	g := squareSpec().build(t, nil)
	report, err := NewEngine(WithWorkers(2)).Compute(g, nil, Options{Label: "square"})
	require.NoError(t, err)

	assert.Equal(t, "square", report.Label)
	assert.Equal(t, 4, report.NodeCount)
	assert.Equal(t, 5, report.EdgeCount)

	want := map[Metric]float64{
		NodeCount:                   4,
		EdgeCount:                   5,
		AverageDegree:               2.5,
		Density:                     5.0 / 6.0,
		ConnectedComponents:         1,
		CyclomaticNumber:            2,
		Diameter:                    2,
		AverageShortestPath:         7.0 / 6.0,
		AverageShortestPathWeighted: 8.0 / 6.0,
		ClusteringCoefficient:       5.0 / 6.0,
		ArticulationPoints:          0,
		SpanningCapacity:            110,
		SpanningBottleneck:          20,
		TotalLength:                 9,
		MaxFlow:                     0,
		NodeBetweenness:             1.0 / 12.0,
		PropertyValue:               30,
	}
	for m, v := range want {
		got, ok := report.Scalar(m)
		require.True(t, ok, "missing %s", m)
		assert.InDelta(t, v, got, 1e-9, "metric %s", m)
	}
}

func TestCompute_DegreeDistribution(t *testing.T) {
	g := graphSpec{
		nodes: plainNodes("a", "b", "c"),
		edges: []edgeSpec{{id: "ab", from: "a", to: "b"}, {id: "bc", from: "b", to: "c"}},
	}.build(t, nil)

	report, err := NewEngine().Compute(g, MetricSet{DegreeDistribution, EdgeBetweenness}, Options{})
	require.NoError(t, err)

	v, ok := report.Value(DegreeDistribution)
	require.True(t, ok)
	require.NotNil(t, v.Summary)
	assert.Equal(t, 3, v.Summary.Count)
	assert.InDelta(t, 4.0/3.0, v.Scalar, 1e-12)
	assert.InDelta(t, 2.0/9.0, v.Summary.Variance, 1e-12)
	assert.Equal(t, 1.0, v.Summary.Min)
	assert.Equal(t, 2.0, v.Summary.Max)

	eb, _ := report.Value(EdgeBetweenness)
	require.NotNil(t, eb.Summary)
	assert.InDelta(t, 2.0/3.0, eb.Summary.Mean, 1e-12)
	assert.InDelta(t, 0, eb.Summary.Variance, 1e-12)
}

func TestCompute_NodeBetweennessByOrigin(t *testing.T) {
	// star with hub h; the spoke to l3 runs through m
	spec := graphSpec{
		nodes: plainNodes("h", "l1", "l2", "m", "l3"),
		edges: []edgeSpec{
			{id: "h-l1", from: "h", to: "l1"},
			{id: "h-l2", from: "h", to: "l2"},
			{id: "h-m", from: "h", to: "m"},
			{id: "m-l3", from: "m", to: "l3"},
		},
	}
	g := spec.build(t, nil)
	engine := NewEngine()

	before, err := engine.Compute(g, MetricSet{NodeBetweenness}, Options{})
	require.NoError(t, err)
	v, _ := before.Value(NodeBetweenness)
	// h, l1, l2, l3, m
	assert.InDeltaSlice(t, []float64{5.0 / 6.0, 0, 0, 0, 0.5}, v.ByOrigin, 1e-12)

	simplified, err := simplify.NewPipeline("chains", &simplify.ChainContraction{}).Run(context.Background(), g)
	require.NoError(t, err)
	require.False(t, simplified.Graph.HasNode("m"))

	after, err := engine.Compute(simplified.Graph, MetricSet{NodeBetweenness}, Options{})
	require.NoError(t, err)
	v, _ = after.Value(NodeBetweenness)
	assert.InDeltaSlice(t, []float64{1, 0, 0, 0, 0}, v.ByOrigin, 1e-12)
}

func TestCompute_PropertyValue(t *testing.T) {
	spec := graphSpec{
		nodes: []network.Node{
			{ID: "IC1", Role: network.RoleSource},
			{ID: "X1"},
			{ID: "IND1", Role: network.RoleSink},
		},
		edges: []edgeSpec{
			{id: "a", from: "IC1", to: "X1", capacity: 10},
			{id: "b", from: "X1", to: "IND1", capacity: 5},
		},
	}
	g := spec.build(t, nil)
	engine := NewEngine()

	report, err := engine.Compute(g, MetricSet{PropertyValue}, Options{})
	require.NoError(t, err)
	v, _ := report.Scalar(PropertyValue)
	assert.InDelta(t, 10*(1.0+0.1)+5*(0.1+0.8), v, 1e-12)

	weights := map[network.Role]float64{network.RoleSource: 2}
	report, err = engine.Compute(g, MetricSet{PropertyValue}, Options{RoleWeights: weights})
	require.NoError(t, err)
	v, _ = report.Scalar(PropertyValue)
	assert.InDelta(t, 10*(2+DefaultRoleWeight)+5*(2*DefaultRoleWeight), v, 1e-12)
}

func TestCompute_Disconnected(t *testing.T) {
	g := graphSpec{
		nodes: plainNodes("a", "b", "c", "x", "y"),
		edges: []edgeSpec{
			{id: "ab", from: "a", to: "b"},
			{id: "bc", from: "b", to: "c"},
			{id: "xy", from: "x", to: "y"},
		},
	}.build(t, nil)
	engine := NewEngine()

	_, err := engine.Compute(g, MetricSet{Diameter}, Options{})
	assert.ErrorIs(t, err, ErrDisconnectedGraph)

	report, err := engine.Compute(g, MetricSet{Diameter, AverageShortestPath, ConnectedComponents}, Options{PerComponent: true})
	require.NoError(t, err)

	d, _ := report.Value(Diameter)
	assert.Equal(t, 2.0, d.Scalar)
	assert.Equal(t, []float64{2, 1}, d.Components)

	c, _ := report.Scalar(ConnectedComponents)
	assert.Equal(t, 2.0, c)
}

func TestCompute_EmptyGraph(t *testing.T) {
	report, err := NewEngine().Compute(network.Empty(), nil, Options{})
	require.NoError(t, err)
	for _, m := range report.Metrics {
		v, _ := report.Scalar(m)
		assert.Zero(t, v, "metric %s", m)
	}
}

func TestCompute_UnknownMetric(t *testing.T) {
	_, err := NewEngine().Compute(network.Empty(), MetricSet{"modularity"}, Options{})
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestCompute_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine().ComputeContext(ctx, squareSpec().build(t, nil), nil, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMaxFlow_Terminals(t *testing.T) {
	nodes := []network.Node{
		{ID: "s", Role: network.RoleSource, Attrs: network.Attributes{network.Supply: 5}},
		{ID: "m"},
		{ID: "t", Role: network.RoleSink, Attrs: network.Attributes{network.Supply: -3}},
	}
	spec := graphSpec{
		nodes: nodes,
		edges: []edgeSpec{
			{id: "sm", from: "s", to: "m", capacity: 10},
			{id: "mt", from: "m", to: "t", capacity: 8},
		},
	}
	g := spec.build(t, nil)
	engine := NewEngine()
	flow := func(opts Options) float64 {
		report, err := engine.Compute(g, MetricSet{MaxFlow}, opts)
		require.NoError(t, err)
		v, _ := report.Scalar(MaxFlow)
		return v
	}

	// Supply bounds the terminals.
	assert.InDelta(t, 3, flow(Options{}), 1e-9)
	// Explicit terminals are unbounded.
	assert.InDelta(t, 8, flow(Options{Sources: []network.NodeID{"s"}, Sinks: []network.NodeID{"t"}}), 1e-9)

	_, err := engine.Compute(g, MetricSet{MaxFlow}, Options{Sources: []network.NodeID{"nope"}, Sinks: []network.NodeID{"t"}})
	assert.ErrorIs(t, err, network.ErrNotFound)

	// Roles are the fallback when nobody carries supply.
	for i := range spec.nodes {
		spec.nodes[i].Attrs = nil
	}
	report, err := engine.Compute(spec.build(t, nil), MetricSet{MaxFlow}, Options{})
	require.NoError(t, err)
	v, _ := report.Scalar(MaxFlow)
	assert.InDelta(t, 8, v, 1e-9)
}

func TestMaxFlow_TerminalsSurviveContraction(t *testing.T) {
	spec := graphSpec{
		nodes: []network.Node{
			{ID: "p1", Role: network.RoleSource},
			{ID: "p2"}, {ID: "p3"}, {ID: "p4"},
			{ID: "p5", Role: network.RoleSink},
		},
		edges: []edgeSpec{
			{id: "e1", from: "p1", to: "p2", capacity: 100, length: 10},
			{id: "e2", from: "p2", to: "p3", capacity: 100, length: 10},
			{id: "e3", from: "p3", to: "p4", capacity: 100, length: 10},
			{id: "e4", from: "p4", to: "p5", capacity: 100, length: 10},
		},
	}
	original := spec.build(t, nil)
	res, err := simplify.NewPipeline("chains", &simplify.ChainContraction{}).Run(context.Background(), original)
	require.NoError(t, err)
	require.Equal(t, 2, res.Graph.NodeCount())

	opts := Options{Sources: []network.NodeID{"p1"}, Sinks: []network.NodeID{"p3"}}
	engine := NewEngine()
	before, err := engine.Compute(original, MetricSet{MaxFlow}, opts)
	require.NoError(t, err)
	after, err := engine.Compute(res.Graph, MetricSet{MaxFlow}, opts)
	require.NoError(t, err)

	b, _ := before.Scalar(MaxFlow)
	a, _ := after.Scalar(MaxFlow)
	assert.InDelta(t, 100, b, 1e-9)
	assert.InDelta(t, b, a, 1e-9)
}

func TestCompute_Deterministic(t *testing.T) {
	engine := NewEngine(WithWorkers(4))
	opts := Options{PerComponent: true}
	for seed := int64(1); seed <= 10; seed++ {
		spec := randomSpec(seed)
		first, err := engine.Compute(spec.build(t, nil), nil, opts)
		require.NoError(t, err)
		again, err := engine.Compute(spec.build(t, nil), nil, opts)
		require.NoError(t, err)
		shuffled, err := engine.Compute(spec.build(t, rand.New(rand.NewSource(seed*7))), nil, opts)
		require.NoError(t, err)

		assert.Equal(t, first, again, "seed %d", seed)
		assert.Equal(t, first, shuffled, "seed %d", seed)
	}
}

func TestCompute_RecordsMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	engine := NewEngine(WithMetrics(reg))

	_, err := engine.Compute(squareSpec().build(t, nil), MetricSet{NodeCount, Diameter}, Options{})
	require.NoError(t, err)

	families, err := reg.GetPrometheusRegistry().Gather()
	require.NoError(t, err)
	var observed uint64
	for _, f := range families {
		if f.GetName() != "gasnet_metric_duration_seconds" {
			continue
		}
		for _, m := range f.GetMetric() {
			observed += m.GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(2), observed)
}

func TestSummarize(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, Summary{}, *s)

	s = Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 8, s.Count)
	assert.InDelta(t, 5, s.Mean, 1e-12)
	assert.InDelta(t, 4, s.Variance, 1e-12)
	assert.InDelta(t, 2, s.StdDev(), 1e-12)
}
