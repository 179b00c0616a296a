package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/gasnet-simplify/pkg/analysis"
	"github.com/dd0wney/gasnet-simplify/pkg/evaluation"
	"github.com/dd0wney/gasnet-simplify/pkg/logging"
	"github.com/dd0wney/gasnet-simplify/pkg/network"
	"github.com/dd0wney/gasnet-simplify/pkg/simplify"
	"github.com/dd0wney/gasnet-simplify/pkg/snapshot"
	"github.com/dd0wney/gasnet-simplify/pkg/sweep"
)

const fullDocument = `
workers: 4
log_level: debug
metrics: [node_count, edge_count, diameter]
per_component: true
sources: [IC1]
sinks: [IND7]
role_weights: { source: 2, CS: 0.5 }
score_weights: { complexity: 0.4, structure: 0.2, properties: 0.2, flow: 0.2 }
aggregation:
  node:
    elevation: { policy: weighted-average }
    supply: { policy: sum }
    internal_length: { policy: sum }
  series:
    length: { policy: sum }
  parallel:
    capacity: { policy: sum }
  fold:
    length: internal_length
    capacity: discard
runs:
  - name: chains
    passes: [chain, parallel]
    keep_roles: [source, sink]
    max_rounds: 32
  - name: pruned
    passes: [prune, chain]
    prune: { max_degree: 1, attribute: supply, below: 0.5 }
  - name: reduced
    passes: [kcore, cluster]
    kcore: { k: 3 }
    cluster:
      groups: [[X1, X2], [X3]]
`

func TestParse_FullDocument(t *testing.T) {
	c, err := Parse([]byte(fullDocument))
	require.NoError(t, err)

	assert.Equal(t, 4, c.WorkerCount(1))
	assert.Equal(t, logging.DebugLevel, c.Level())

	set, err := c.MetricSet()
	require.NoError(t, err)
	assert.Equal(t, analysis.MetricSet{analysis.Diameter, analysis.EdgeCount, analysis.NodeCount}, set)

	opts := c.AnalysisOptions()
	assert.True(t, opts.PerComponent)
	assert.Equal(t, []network.NodeID{"IC1"}, opts.Sources)
	assert.Equal(t, []network.NodeID{"IND7"}, opts.Sinks)
	assert.Equal(t, map[network.Role]float64{network.RoleSource: 2, network.RoleCompressor: 0.5}, opts.RoleWeights)
	assert.Equal(t, evaluation.Weights{Complexity: 0.4, Structure: 0.2, Properties: 0.2, Flow: 0.2}, c.Weights())

	table, err := c.Table()
	require.NoError(t, err)
	assert.Equal(t, network.PolicyWeightedAverage, table.Node[network.Elevation].Policy)
	assert.Len(t, table.Series, 1)
	assert.Equal(t, network.PolicySum, table.Parallel[network.Capacity].Policy)
	assert.Equal(t, network.Discard, table.Fold[network.Capacity])
	assert.Equal(t, network.InternalLength, table.Fold[network.Length])

	specs, err := c.RunSpecs(RunOptions{})
	require.NoError(t, err)
	require.Len(t, specs, 3)

	chains := specs[0].Pipeline
	assert.Equal(t, "chains", chains.Name)
	assert.Equal(t, 32, chains.MaxRounds)
	assert.Equal(t, []network.Role{network.RoleSource, network.RoleSink}, chains.Options.KeepRoles)
	require.Len(t, chains.Passes, 2)
	assert.Equal(t, simplify.PassChain, chains.Passes[0].Name())

	pruned := specs[1].Pipeline
	assert.Equal(t, simplify.DefaultOptions().KeepRoles, pruned.Options.KeepRoles)
	prune, ok := pruned.Passes[0].(*simplify.DegreePrune)
	require.True(t, ok)
	assert.Equal(t, 1, prune.MaxDegree)
	assert.Equal(t, network.Supply, prune.Attr)
	assert.Equal(t, 0.5, prune.Below)

	reduced := specs[2].Pipeline
	require.Len(t, reduced.Passes, 2)
	kcore, ok := reduced.Passes[0].(*simplify.KCore)
	require.True(t, ok)
	assert.Equal(t, 3, kcore.K)
	cluster, ok := reduced.Passes[1].(*simplify.ClusterMerge)
	require.True(t, ok)
	assert.Equal(t, [][]network.NodeID{{"X1", "X2"}, {"X3"}}, cluster.Clusters)
}

func TestParse_Defaults(t *testing.T) {
	c, err := Parse([]byte("runs:\n  - name: only\n    passes: [chain]\n"))
	require.NoError(t, err)

	assert.Equal(t, 8, c.WorkerCount(8))
	assert.Equal(t, logging.InfoLevel, c.Level())

	set, err := c.MetricSet()
	require.NoError(t, err)
	assert.True(t, set.Equal(analysis.DefaultMetricSet()))

	table, err := c.Table()
	require.NoError(t, err)
	assert.Equal(t, network.DefaultTable(), table)

	assert.Nil(t, c.AnalysisOptions().RoleWeights)
	assert.Equal(t, evaluation.DefaultWeights(), c.Weights())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		target error
	}{
		{name: "empty", doc: ""},
		{name: "no runs", doc: "workers: 2\n"},
		{name: "unknown key", doc: "runs:\n  - name: a\n    passes: [chain]\n    colour: red\n"},
		{name: "unknown pass", doc: "runs:\n  - name: a\n    passes: [louvain]\n"},
		{name: "negative core order", doc: "runs:\n  - name: a\n    passes: [kcore]\n    kcore: { k: -1 }\n"},
		{name: "empty cluster group", doc: "runs:\n  - name: a\n    passes: [cluster]\n    cluster: { groups: [[]] }\n"},
		{name: "node in two groups", doc: "runs:\n  - name: a\n    passes: [cluster]\n    cluster: { groups: [[X1, X2], [X2]] }\n"},
		{name: "bad run name", doc: "runs:\n  - name: 'two words'\n    passes: [chain]\n"},
		{name: "duplicate runs", doc: "runs:\n  - name: a\n    passes: [chain]\n  - name: a\n    passes: [prune]\n"},
		{name: "negative workers", doc: "workers: -1\nruns:\n  - name: a\n    passes: [chain]\n"},
		{name: "bad log level", doc: "log_level: loud\nruns:\n  - name: a\n    passes: [chain]\n"},
		{
			name:   "unknown metric",
			doc:    "metrics: [modularity]\nruns:\n  - name: a\n    passes: [chain]\n",
			target: analysis.ErrUnknownMetric,
		},
		{
			name:   "unknown policy",
			doc:    "aggregation:\n  series:\n    length: { policy: median }\nruns:\n  - name: a\n    passes: [chain]\n",
			target: network.ErrUnknownAggregationPolicy,
		},
		{
			name:   "unknown attribute",
			doc:    "aggregation:\n  series:\n    colour: { policy: sum }\nruns:\n  - name: a\n    passes: [chain]\n",
			target: network.ErrUnknownAttribute,
		},
		{
			name:   "fold target without rule",
			doc:    "aggregation:\n  node:\n    supply: { policy: sum }\nruns:\n  - name: a\n    passes: [chain]\n",
			target: network.ErrUnknownAggregationPolicy,
		},
		{
			name:   "prune attribute",
			doc:    "runs:\n  - name: a\n    passes: [prune]\n    prune: { attribute: length }\n",
			target: network.ErrUnknownAttribute,
		},
		{name: "role weight for unknown role", doc: "role_weights: { pumping: 1 }\nruns:\n  - name: a\n    passes: [chain]\n"},
		{name: "negative role weight", doc: "role_weights: { sink: -1 }\nruns:\n  - name: a\n    passes: [chain]\n"},
		{
			name:   "score weights off one",
			doc:    "score_weights: { complexity: 0.5, flow: 0.4 }\nruns:\n  - name: a\n    passes: [chain]\n",
			target: evaluation.ErrInvalidWeights,
		},
		{name: "unknown role", doc: "runs:\n  - name: a\n    passes: [chain]\n    keep_roles: [pumping]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullDocument), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Runs, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// TestRunSpecs_Sweep drives the configured pipelines through a sweep.
func TestRunSpecs_Sweep(t *testing.T) {
	doc := `
runs:
  - name: chains
    passes: [chain]
  - name: pruned
    passes: [prune, chain]
`
	c, err := Parse([]byte(doc))
	require.NoError(t, err)

	journal := snapshot.NewJournal()
	specs, err := c.RunSpecs(RunOptions{Journal: journal})
	require.NoError(t, err)

	b := network.NewBuilder()
	for _, n := range []network.Node{
		{ID: "IC1", Role: network.RoleSource},
		{ID: "X1"}, {ID: "X2"}, {ID: "X3"},
		{ID: "IND1", Role: network.RoleSink},
	} {
		require.NoError(t, b.AddNode(n))
	}
	for _, e := range [][3]string{{"a", "IC1", "X1"}, {"b", "X1", "X2"}, {"c", "X2", "IND1"}, {"d", "X2", "X3"}} {
		require.NoError(t, b.AddEdge(network.Edge{
			ID: network.EdgeID(e[0]), From: network.NodeID(e[1]), To: network.NodeID(e[2]),
			Attrs: network.Attributes{network.Length: 10, network.Capacity: 20},
		}))
	}
	g, err := b.Freeze()
	require.NoError(t, err)

	set, err := c.MetricSet()
	require.NoError(t, err)
	batch := sweep.NewRunner(nil).Run(context.Background(), g, specs, set, c.AnalysisOptions())

	require.Zero(t, batch.Failed)
	assert.Equal(t, 4, batch.Results[0].Graph.NodeCount())
	assert.Equal(t, 2, batch.Results[1].Graph.NodeCount())
	assert.Positive(t, journal.Len())
}
