// Package sweep runs several simplification configurations against one
// original graph and collects a comparison for each.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/gasnet-simplify/pkg/analysis"
	"github.com/dd0wney/gasnet-simplify/pkg/evaluation"
	"github.com/dd0wney/gasnet-simplify/pkg/logging"
	"github.com/dd0wney/gasnet-simplify/pkg/metrics"
	"github.com/dd0wney/gasnet-simplify/pkg/network"
	"github.com/dd0wney/gasnet-simplify/pkg/parallel"
	"github.com/dd0wney/gasnet-simplify/pkg/simplify"
)

// ErrNoPipeline is reported for a run without a pipeline.
var ErrNoPipeline = errors.New("run has no pipeline")

// RunSpec names one simplification configuration.
type RunSpec struct {
	Name     string
	Pipeline *simplify.Pipeline
}

// RunResult is the outcome of one run. Err is set when any stage failed; the
// stages that did complete keep their output.
type RunResult struct {
	Name       string                       `json:"name"`
	Graph      *network.Graph               `json:"-"`
	Result     *simplify.Result             `json:"-"`
	Steps      []simplify.Step              `json:"steps,omitempty"`
	Rounds     int                          `json:"rounds,omitempty"`
	Report     *analysis.Report             `json:"report,omitempty"`
	Comparison *evaluation.ComparisonReport `json:"comparison,omitempty"`
	Err        error                        `json:"-"`
	Error      string                       `json:"error,omitempty"`
	Duration   time.Duration                `json:"duration_ns"`
}

// BatchReport collects every run of a sweep in input order.
type BatchReport struct {
	ID       uuid.UUID        `json:"id"`
	Original *analysis.Report `json:"original,omitempty"`
	Results  []RunResult      `json:"results"`
	Failed   int              `json:"failed"`
}

// Succeeded returns the results without an error.
func (b *BatchReport) Succeeded() []RunResult {
	out := make([]RunResult, 0, len(b.Results)-b.Failed)
	for _, r := range b.Results {
		if r.Err == nil {
			out = append(out, r)
		}
	}
	return out
}

// Runner executes sweeps. Its fields are read-only during Run.
type Runner struct {
	Engine  *analysis.Engine
	Workers int
	// Weights score every comparison; the zero value means
	// evaluation.DefaultWeights.
	Weights evaluation.Weights
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// NewRunner returns a runner with one worker per CPU that shares engine's
// logger and metrics.
func NewRunner(engine *analysis.Engine) *Runner {
	if engine == nil {
		engine = analysis.NewEngine()
	}
	return &Runner{
		Engine:  engine,
		Workers: runtime.NumCPU(),
		Logger:  engine.Logger,
		Metrics: engine.Metrics,
	}
}

// Run computes the original report once, then simplifies, measures and
// compares every run on the worker pool. A failing or panicking run only
// marks its own result. If the original report fails, every run carries that
// error.
func (r *Runner) Run(ctx context.Context, original *network.Graph, runs []RunSpec, set analysis.MetricSet, opts analysis.Options) *BatchReport {
	start := time.Now()
	batch := &BatchReport{
		ID:      uuid.New(),
		Results: make([]RunResult, len(runs)),
	}
	for i, spec := range runs {
		batch.Results[i].Name = spec.Name
	}

	logger := logging.OrNop(r.Logger).With(logging.Batch(batch.ID.String()))
	engine := r.Engine
	if engine == nil {
		engine = analysis.NewEngine(analysis.WithLogger(r.Logger), analysis.WithMetrics(r.Metrics))
	}

	defer func() {
		r.Metrics.RecordSweep(time.Since(start))
		logger.Info("sweep finished",
			logging.Int("runs", len(runs)),
			logging.Int("failed", batch.Failed),
			logging.Latency(time.Since(start)),
		)
	}()

	if original == nil {
		r.failAll(batch, errors.New("original graph is nil"))
		return batch
	}

	originalOpts := opts
	originalOpts.Label = "original"
	base, err := engine.ComputeContext(ctx, original, set, originalOpts)
	if err != nil {
		logger.Error("original report failed", logging.Error(err))
		r.failAll(batch, fmt.Errorf("original report: %w", err))
		return batch
	}
	batch.Original = base

	tasks := make([]parallel.Task, len(runs))
	for i, spec := range runs {
		i, spec := i, spec
		tasks[i] = func() error {
			return r.execute(ctx, engine, &batch.Results[i], spec, original, base, opts)
		}
	}
	errs, err := parallel.Run(r.Workers, tasks)
	if err != nil {
		r.failAll(batch, err)
		return batch
	}

	for i, runErr := range errs {
		result := &batch.Results[i]
		if runErr != nil {
			result.Err = fmt.Errorf("run %q: %w", result.Name, runErr)
			result.Error = result.Err.Error()
			batch.Failed++
			logger.Warn("run failed", logging.Run(result.Name), logging.Error(runErr))
		}
		r.Metrics.RecordRun(runErr)
	}
	return batch
}

// execute fills result for one run. It runs on a pool worker and only writes
// to its own result.
func (r *Runner) execute(ctx context.Context, engine *analysis.Engine, result *RunResult, spec RunSpec,
	original *network.Graph, base *analysis.Report, opts analysis.Options) error {
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	if spec.Pipeline == nil {
		return ErrNoPipeline
	}
	res, err := spec.Pipeline.Run(ctx, original)
	if err != nil {
		return fmt.Errorf("simplify: %w", err)
	}
	result.Result = res
	result.Graph = res.Graph
	result.Steps = res.Steps
	result.Rounds = res.Rounds

	runOpts := opts
	runOpts.Label = spec.Name
	report, err := engine.ComputeContext(ctx, res.Graph, base.Metrics, runOpts)
	if err != nil {
		return fmt.Errorf("analyse: %w", err)
	}
	result.Report = report

	cmp, err := evaluation.CompareWith(base, report, r.Weights)
	if err != nil {
		return fmt.Errorf("compare: %w", err)
	}
	result.Comparison = cmp
	return nil
}

func (r *Runner) failAll(batch *BatchReport, err error) {
	for i := range batch.Results {
		batch.Results[i].Err = err
		batch.Results[i].Error = err.Error()
		r.Metrics.RecordRun(err)
	}
	batch.Failed = len(batch.Results)
}
