package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/gasnet-simplify/pkg/algorithms"
	"github.com/dd0wney/gasnet-simplify/pkg/logging"
	"github.com/dd0wney/gasnet-simplify/pkg/metrics"
	"github.com/dd0wney/gasnet-simplify/pkg/network"
)

// Engine computes metric reports. Its fields are read-only after
// construction, so one engine may serve many goroutines.
type Engine struct {
	// Workers bounds the metrics computed at once. Values below 1 mean one
	// worker per CPU.
	Workers int
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithWorkers sets the metric fan-out limit.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) { e.Workers = n }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) EngineOption {
	return func(e *Engine) { e.Logger = l }
}

// WithMetrics sets the instrumentation registry.
func WithMetrics(r *metrics.Registry) EngineOption {
	return func(e *Engine) { e.Metrics = r }
}

// NewEngine returns an engine with one worker per CPU and no logging.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{Workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Options control a single computation.
type Options struct {
	Label string
	// PerComponent evaluates path metrics on every connected component
	// instead of failing on a disconnected graph.
	PerComponent bool
	// Sources and Sinks name flow terminals by original node id. When both
	// are empty, terminals come from supply and then from roles.
	Sources []network.NodeID
	Sinks   []network.NodeID
	// RoleWeights rate the endpoints of an edge in the property value. Nil
	// means DefaultRoleWeights; roles missing from the map get
	// DefaultRoleWeight.
	RoleWeights map[network.Role]float64
}

// DefaultRoleWeight rates roles absent from Options.RoleWeights.
const DefaultRoleWeight = 0.1

// DefaultRoleWeights rates entry points highest, then offtakes and stations.
func DefaultRoleWeights() map[network.Role]float64 {
	return map[network.Role]float64{
		network.RoleSource:     1.0,
		network.RoleSink:       0.8,
		network.RoleCompressor: 0.6,
		network.RoleStorage:    0.6,
		network.RoleValve:      0.3,
		network.RoleJunction:   DefaultRoleWeight,
	}
}

func (e *Engine) workers() int {
	if e.Workers < 1 {
		return runtime.NumCPU()
	}
	return e.Workers
}

// Compute evaluates set on g. An empty set selects the full catalogue.
func (e *Engine) Compute(g *network.Graph, set MetricSet, opts Options) (*Report, error) {
	return e.ComputeContext(context.Background(), g, set, opts)
}

// ComputeContext is Compute with cancellation between metrics.
func (e *Engine) ComputeContext(ctx context.Context, g *network.Graph, set MetricSet, opts Options) (*Report, error) {
	if g == nil {
		return nil, errors.New("compute: nil graph")
	}
	if len(set) == 0 {
		set = DefaultMetricSet()
	}
	set, err := NewMetricSet(set...)
	if err != nil {
		return nil, err
	}

	logger := logging.OrNop(e.Logger)
	if opts.Label != "" {
		logger = logger.With(logging.String("label", opts.Label))
	}

	st, err := newState(g, opts, set.Contains(MaxFlow))
	if err != nil {
		return nil, err
	}

	values := make([]Value, len(set))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(e.workers())
	for i, m := range set {
		i, m := i, m
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			timer := logging.StartTimer(logger, "metric computed", logging.Metric(string(m)))
			v, err := st.compute(m)
			if err != nil {
				e.Metrics.RecordMetric(string(m), timer.EndError(err), err)
				return fmt.Errorf("metric %s: %w", m, err)
			}
			e.Metrics.RecordMetric(string(m), timer.End(), nil)
			values[i] = v
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Label:     opts.Label,
		NodeCount: g.NodeCount(),
		EdgeCount: g.EdgeCount(),
		Metrics:   set,
		Values:    make(map[Metric]Value, len(set)),
	}
	for i, m := range set {
		report.Values[m] = values[i]
	}
	logger.Debug("report computed",
		logging.NodeCount(report.NodeCount),
		logging.EdgeCount(report.EdgeCount),
		logging.Int("metrics", len(set)),
	)
	return report, nil
}

// state is the read-only input shared by all metric computations.
type state struct {
	ix           *algorithms.Index
	components   [][]int
	perComponent bool
	sources      []algorithms.Terminal
	sinks        []algorithms.Terminal
	roleWeights  map[network.Role]float64
}

func (st *state) roleWeight(r network.Role) float64 {
	if w, ok := st.roleWeights[r]; ok {
		return w
	}
	return DefaultRoleWeight
}

func newState(g *network.Graph, opts Options, flow bool) (*state, error) {
	ix := algorithms.NewIndex(g)
	st := &state{
		ix:           ix,
		components:   algorithms.ConnectedComponents(ix),
		perComponent: opts.PerComponent,
		roleWeights:  opts.RoleWeights,
	}
	if st.roleWeights == nil {
		st.roleWeights = DefaultRoleWeights()
	}
	if flow {
		var err error
		st.sources, st.sinks, err = resolveTerminals(ix, opts.Sources, opts.Sinks)
		if err != nil {
			return nil, err
		}
	}
	return st, nil
}
