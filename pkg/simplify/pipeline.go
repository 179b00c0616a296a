package simplify

import (
	"context"
	"fmt"
	"time"

	"github.com/dd0wney/gasnet-simplify/pkg/logging"
	"github.com/dd0wney/gasnet-simplify/pkg/metrics"
	"github.com/dd0wney/gasnet-simplify/pkg/network"
	"github.com/dd0wney/gasnet-simplify/pkg/snapshot"
)

// DefaultMaxRounds bounds the fixed-point iteration of a Pipeline.
const DefaultMaxRounds = 64

// Pipeline applies passes round after round until a full round changes
// neither the node nor the edge count.
type Pipeline struct {
	Name   string
	Passes []Pass
	// Options configure the ParallelMerge appended when Passes has none.
	// The zero value means DefaultOptions.
	Options   Options
	MaxRounds int
	// Journal, when set, receives the input and every graph a pass changed.
	Journal *snapshot.Journal
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// Step records one pass application.
type Step struct {
	Pass        string        `json:"pass"`
	Round       int           `json:"round"`
	NodesBefore int           `json:"nodes_before"`
	EdgesBefore int           `json:"edges_before"`
	NodesAfter  int           `json:"nodes_after"`
	EdgesAfter  int           `json:"edges_after"`
	Duration    time.Duration `json:"duration_ns"`
}

// Changed reports whether the pass removed anything.
func (s Step) Changed() bool {
	return s.NodesBefore != s.NodesAfter || s.EdgesBefore != s.EdgesAfter
}

// Result is the outcome of a pipeline run.
type Result struct {
	Graph  *network.Graph
	Steps  []Step
	Rounds int
}

// NewPipeline returns a pipeline over passes with default settings.
func NewPipeline(name string, passes ...Pass) *Pipeline {
	return &Pipeline{Name: name, Passes: passes}
}

// passes returns the configured passes, ensuring a ParallelMerge runs so the
// final graph has no self-loops or parallel edges.
func (p *Pipeline) passes() []Pass {
	out := append([]Pass(nil), p.Passes...)
	for _, pass := range out {
		if _, ok := pass.(*ParallelMerge); ok {
			return out
		}
	}
	return append(out, &ParallelMerge{Options: p.Options.orDefault()})
}

func (p *Pipeline) maxRounds() int {
	if p.MaxRounds <= 0 {
		return DefaultMaxRounds
	}
	return p.MaxRounds
}

// Run simplifies g to a fixed point. g is never modified.
func (p *Pipeline) Run(ctx context.Context, g *network.Graph) (*Result, error) {
	logger := logging.OrNop(p.Logger)
	if p.Name != "" {
		logger = logger.With(logging.Run(p.Name))
	}
	passes := p.passes()
	if err := p.record("input", g); err != nil {
		return nil, err
	}

	result := &Result{Graph: g}
	current := g
	for round := 1; ; round++ {
		if round > p.maxRounds() {
			return nil, fmt.Errorf("pipeline %q: no fixed point after %d rounds: %w",
				p.Name, p.maxRounds(), network.ErrInvariantViolation)
		}
		changed := false
		for _, pass := range passes {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			next, step, err := p.apply(logger, pass, round, current)
			if err != nil {
				return nil, err
			}
			result.Steps = append(result.Steps, step)
			if step.Changed() {
				changed = true
				if err := p.record(fmt.Sprintf("round-%d/%s", round, pass.Name()), next); err != nil {
					return nil, err
				}
			}
			current = next
		}
		result.Rounds = round
		if !changed {
			break
		}
	}

	if err := current.CheckSimplified(); err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", p.Name, err)
	}
	result.Graph = current
	logger.Info("simplification finished",
		logging.Round(result.Rounds),
		logging.NodeCount(current.NodeCount()),
		logging.EdgeCount(current.EdgeCount()),
		logging.Int("original_nodes", g.NodeCount()),
		logging.Int("original_edges", g.EdgeCount()),
	)
	return result, nil
}

func (p *Pipeline) apply(logger logging.Logger, pass Pass, round int, g *network.Graph) (*network.Graph, Step, error) {
	step := Step{
		Pass:        pass.Name(),
		Round:       round,
		NodesBefore: g.NodeCount(),
		EdgesBefore: g.EdgeCount(),
	}
	timer := logging.StartTimer(logger, "pass applied", logging.Pass(pass.Name()), logging.Round(round))
	next, err := pass.Apply(g)
	if err != nil {
		step.Duration = timer.EndError(err)
		p.Metrics.RecordPass(pass.Name(), step.Duration, 0, 0, err)
		return nil, step, err
	}
	step.NodesAfter = next.NodeCount()
	step.EdgesAfter = next.EdgeCount()
	step.Duration = timer.End(logging.NodeCount(step.NodesAfter), logging.EdgeCount(step.EdgesAfter))
	p.Metrics.RecordPass(pass.Name(), step.Duration,
		step.NodesBefore-step.NodesAfter, step.EdgesBefore-step.EdgesAfter, nil)
	return next, step, nil
}

func (p *Pipeline) record(label string, g *network.Graph) error {
	if p.Journal == nil {
		return nil
	}
	if p.Name != "" {
		label = p.Name + "/" + label
	}
	if _, err := p.Journal.Record(label, g); err != nil {
		return fmt.Errorf("journal %s: %w", label, err)
	}
	return nil
}
