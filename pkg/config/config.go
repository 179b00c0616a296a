// Package config loads the YAML description of a simplification sweep and
// turns it into pipelines, a metric set and analysis options. Everything is
// validated when the document is parsed, before any graph is touched.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/gasnet-simplify/pkg/analysis"
	"github.com/dd0wney/gasnet-simplify/pkg/evaluation"
	"github.com/dd0wney/gasnet-simplify/pkg/logging"
	"github.com/dd0wney/gasnet-simplify/pkg/metrics"
	"github.com/dd0wney/gasnet-simplify/pkg/network"
	"github.com/dd0wney/gasnet-simplify/pkg/simplify"
	"github.com/dd0wney/gasnet-simplify/pkg/snapshot"
	"github.com/dd0wney/gasnet-simplify/pkg/sweep"
	"github.com/dd0wney/gasnet-simplify/pkg/validation"
)

// ErrInvalidConfig wraps every configuration error.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the top-level sweep document.
type Config struct {
	Workers      int                 `yaml:"workers" validate:"gte=0,lte=1024"`
	LogLevel     string              `yaml:"log_level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Metrics      []string            `yaml:"metrics" validate:"dive,required"`
	PerComponent bool                `yaml:"per_component"`
	Sources      []string            `yaml:"sources" validate:"dive,required"`
	Sinks        []string            `yaml:"sinks" validate:"dive,required"`
	RoleWeights  map[string]float64  `yaml:"role_weights"`
	ScoreWeights *evaluation.Weights `yaml:"score_weights"`
	Aggregation  *AggregationConfig  `yaml:"aggregation"`
	Runs         []RunConfig         `yaml:"runs" validate:"required,min=1,dive"`
}

// AggregationConfig overrides sections of network.DefaultTable. A section that
// is present replaces the default section as a whole.
type AggregationConfig struct {
	Node     map[string]RuleConfig `yaml:"node"`
	Series   map[string]RuleConfig `yaml:"series"`
	Parallel map[string]RuleConfig `yaml:"parallel"`
	Fold     map[string]string     `yaml:"fold"`
}

// RuleConfig is one aggregation rule.
type RuleConfig struct {
	Policy string `yaml:"policy" validate:"required"`
	Weight string `yaml:"weight"`
}

// RunConfig describes one pipeline.
type RunConfig struct {
	Name      string       `yaml:"name" validate:"required,name"`
	Passes    []string       `yaml:"passes" validate:"required,min=1,dive,oneof=chain parallel prune kcore cluster"`
	KeepRoles []string       `yaml:"keep_roles"`
	MaxRounds int            `yaml:"max_rounds" validate:"gte=0"`
	Prune     *PruneConfig   `yaml:"prune"`
	KCore     *KCoreConfig   `yaml:"kcore"`
	Cluster   *ClusterConfig `yaml:"cluster"`
}

// PruneConfig sets the degree-prune thresholds.
type PruneConfig struct {
	MaxDegree int     `yaml:"max_degree" validate:"gte=0"`
	Attribute string  `yaml:"attribute"`
	Below     float64 `yaml:"below" validate:"gte=0"`
}

// KCoreConfig sets the core order of the kcore pass.
type KCoreConfig struct {
	K int `yaml:"k" validate:"gte=0"`
}

// ClusterConfig lists the node groups of the cluster pass. Without groups the
// pass uses modularity communities.
type ClusterConfig struct {
	Groups [][]string `yaml:"groups" validate:"dive,min=1,dive,required"`
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidConfig)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks struct constraints, then every name against the domain
// catalogues and the aggregation table for consistency.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cv := validation.NewConfigValidator("config")
	cv.Each("metrics", c.Metrics, func(name string) error {
		_, err := analysis.ParseMetric(name)
		return err
	})
	for _, name := range sortedKeys(c.RoleWeights) {
		field := "role_weights." + name
		cv.Custom(field, func() error {
			_, err := network.ParseRole(name)
			return err
		})
		cv.NonNegativeFloat(field, c.RoleWeights[name])
	}
	cv.When(c.ScoreWeights != nil, func(cv *validation.ConfigValidator) {
		cv.Custom("score_weights", c.ScoreWeights.Validate)
	})
	cv.Custom("aggregation", func() error {
		_, err := c.Table()
		return err
	})

	names := make([]string, len(c.Runs))
	for i, run := range c.Runs {
		names[i] = run.Name
		field := fmt.Sprintf("runs[%d]", i)
		cv.Each(field+".keep_roles", run.KeepRoles, func(name string) error {
			_, err := network.ParseRole(name)
			return err
		})
		cv.When(run.Prune != nil, func(cv *validation.ConfigValidator) {
			cv.NonNegativeFloat(field+".prune.below", run.Prune.Below)
			cv.Custom(field+".prune.attribute", func() error {
				if run.Prune.Attribute != "" && !network.IsNodeAttr(network.Attr(run.Prune.Attribute)) {
					return fmt.Errorf("%w: %q is not a node attribute", network.ErrUnknownAttribute, run.Prune.Attribute)
				}
				return nil
			})
		})
		cv.When(run.Cluster != nil, func(cv *validation.ConfigValidator) {
			var ids []string
			for _, group := range run.Cluster.Groups {
				ids = append(ids, group...)
			}
			cv.Unique(field+".cluster.groups", ids)
		})
	}
	cv.Unique("runs.name", names)

	if err := cv.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Level returns the configured log level, defaulting to info.
func (c *Config) Level() logging.Level {
	if c.LogLevel == "" {
		return logging.InfoLevel
	}
	return logging.ParseLevel(c.LogLevel)
}

// MetricSet returns the configured metrics, or the full catalogue.
func (c *Config) MetricSet() (analysis.MetricSet, error) {
	return analysis.ParseMetricSet(c.Metrics)
}

// AnalysisOptions returns the options every report is computed with.
func (c *Config) AnalysisOptions() analysis.Options {
	opts := analysis.Options{PerComponent: c.PerComponent}
	for _, s := range c.Sources {
		opts.Sources = append(opts.Sources, network.NodeID(s))
	}
	for _, s := range c.Sinks {
		opts.Sinks = append(opts.Sinks, network.NodeID(s))
	}
	if len(c.RoleWeights) > 0 {
		opts.RoleWeights = make(map[network.Role]float64, len(c.RoleWeights))
		for name, w := range c.RoleWeights {
			if r, err := network.ParseRole(name); err == nil {
				opts.RoleWeights[r] = w
			}
		}
	}
	return opts
}

// Weights returns the score weights, or evaluation.DefaultWeights.
func (c *Config) Weights() evaluation.Weights {
	if c.ScoreWeights == nil || c.ScoreWeights.IsZero() {
		return evaluation.DefaultWeights()
	}
	return *c.ScoreWeights
}

// Table builds the aggregation table. Unknown policy names surface
// network.ErrUnknownAggregationPolicy.
func (c *Config) Table() (network.Table, error) {
	t := network.DefaultTable()
	if c.Aggregation == nil {
		return t, nil
	}
	a := c.Aggregation
	var err error
	if a.Node != nil {
		if t.Node, err = rules("node", a.Node); err != nil {
			return network.Table{}, err
		}
	}
	if a.Series != nil {
		if t.Series, err = rules("series", a.Series); err != nil {
			return network.Table{}, err
		}
	}
	if a.Parallel != nil {
		if t.Parallel, err = rules("parallel", a.Parallel); err != nil {
			return network.Table{}, err
		}
	}
	if a.Fold != nil {
		t.Fold = make(map[network.Attr]network.Attr, len(a.Fold))
		for from, to := range a.Fold {
			t.Fold[network.Attr(from)] = network.Attr(to)
		}
	}
	if err := t.Check(); err != nil {
		return network.Table{}, err
	}
	return t, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func rules(section string, in map[string]RuleConfig) (map[network.Attr]network.Rule, error) {
	out := make(map[network.Attr]network.Rule, len(in))
	for _, k := range sortedKeys(in) {
		rc := in[k]
		p, err := network.ParsePolicy(rc.Policy)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", section, k, err)
		}
		out[network.Attr(k)] = network.Rule{Policy: p, Weight: network.Attr(rc.Weight)}
	}
	return out, nil
}

func parseRoles(names []string) ([]network.Role, error) {
	if names == nil {
		return nil, nil
	}
	roles := make([]network.Role, 0, len(names))
	for _, name := range names {
		r, err := network.ParseRole(name)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// RunOptions carry the shared collaborators of every pipeline.
type RunOptions struct {
	Logger  logging.Logger
	Metrics *metrics.Registry
	Journal *snapshot.Journal
}

// RunSpecs builds one pipeline per configured run, in document order.
func (c *Config) RunSpecs(opts RunOptions) ([]sweep.RunSpec, error) {
	table, err := c.Table()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	specs := make([]sweep.RunSpec, 0, len(c.Runs))
	for _, run := range c.Runs {
		roles, err := parseRoles(run.KeepRoles)
		if err != nil {
			return nil, fmt.Errorf("%w: run %q: %w", ErrInvalidConfig, run.Name, err)
		}
		if roles == nil {
			roles = simplify.DefaultOptions().KeepRoles
		}
		passOpts := simplify.Options{Table: table.Clone(), KeepRoles: roles}

		passes, err := simplify.Build(run.Passes, passOpts, run.params())
		if err != nil {
			return nil, fmt.Errorf("%w: run %q: %w", ErrInvalidConfig, run.Name, err)
		}

		specs = append(specs, sweep.RunSpec{
			Name: run.Name,
			Pipeline: &simplify.Pipeline{
				Name:      run.Name,
				Passes:    passes,
				Options:   passOpts,
				MaxRounds: run.MaxRounds,
				Journal:   opts.Journal,
				Logger:    opts.Logger,
				Metrics:   opts.Metrics,
			},
		})
	}
	return specs, nil
}

func (run RunConfig) params() simplify.Params {
	var p simplify.Params
	if run.Prune != nil {
		p.Prune.MaxDegree = run.Prune.MaxDegree
		p.Prune.Attr = network.Attr(run.Prune.Attribute)
		p.Prune.Below = run.Prune.Below
	}
	if run.KCore != nil {
		p.CoreK = run.KCore.K
	}
	if run.Cluster != nil {
		for _, group := range run.Cluster.Groups {
			ids := make([]network.NodeID, len(group))
			for i, id := range group {
				ids[i] = network.NodeID(id)
			}
			p.Clusters = append(p.Clusters, ids)
		}
	}
	return p
}

// WorkerCount returns the configured workers, or fallback when unset.
func (c *Config) WorkerCount(fallback int) int {
	return validation.DefaultOrInt(c.Workers, fallback)
}
