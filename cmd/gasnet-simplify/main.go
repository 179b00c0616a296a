// Command gasnet-simplify runs a sweep of simplification pipelines over a gas
// network and prints the batch report as JSON.
//
// The network is either read from a snapshot (binary .gsn or JSON document) or
// generated synthetically. Runs come from a YAML file; without one a built-in
// sweep is used.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/dd0wney/gasnet-simplify/pkg/analysis"
	"github.com/dd0wney/gasnet-simplify/pkg/config"
	"github.com/dd0wney/gasnet-simplify/pkg/logging"
	"github.com/dd0wney/gasnet-simplify/pkg/metrics"
	"github.com/dd0wney/gasnet-simplify/pkg/network"
	"github.com/dd0wney/gasnet-simplify/pkg/snapshot"
	"github.com/dd0wney/gasnet-simplify/pkg/sweep"
)

const defaultSweep = `
per_component: true
runs:
  - name: chains
    passes: [chain, parallel]
  - name: pruned
    passes: [prune, chain, parallel]
    prune: { max_degree: 1 }
  - name: aggressive
    passes: [prune, chain, parallel]
    keep_roles: [source, compressor]
    prune: { max_degree: 2, attribute: supply, below: 50 }
  - name: communities
    passes: [cluster, chain, parallel]
`

type options struct {
	configPath  string
	inputPath   string
	synthetic   int
	seed        int64
	reportPath  string
	metricsPath string
	journalPath string
	snapshotDir string
	logLevel    string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML sweep configuration (default: built-in sweep)")
	flag.StringVar(&opts.inputPath, "input", "", "Input network: .gsn snapshot or .json document")
	flag.IntVar(&opts.synthetic, "synthetic", 200, "Trunk length of the synthetic network used without -input")
	flag.Int64Var(&opts.seed, "seed", 1, "Seed of the synthetic network")
	flag.StringVar(&opts.reportPath, "out", "", "Write the JSON report here instead of stdout")
	flag.StringVar(&opts.metricsPath, "metrics-out", "", "Write Prometheus metrics in text format to this file")
	flag.StringVar(&opts.journalPath, "journal", "", "Write the journal of intermediate graphs to this file")
	flag.StringVar(&opts.snapshotDir, "snapshot-dir", "", "Write every simplified graph as <run>.gsn into this directory")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (overrides the configuration)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		logging.DefaultLogger().Error("gasnet-simplify failed", logging.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	level := cfg.Level()
	if opts.logLevel != "" {
		level = logging.ParseLevel(opts.logLevel)
	}
	logger := logging.NewJSONLogger(os.Stderr, level).With(logging.Component("gasnet-simplify"))
	logging.SetDefaultLogger(logger)

	g, err := loadGraph(opts)
	if err != nil {
		return err
	}
	logger.Info("network loaded", logging.NodeCount(g.NodeCount()), logging.EdgeCount(g.EdgeCount()))

	reg := metrics.NewRegistry()
	var journal *snapshot.Journal
	if opts.journalPath != "" {
		journal = snapshot.NewJournal()
	}

	specs, err := cfg.RunSpecs(config.RunOptions{Logger: logger, Metrics: reg, Journal: journal})
	if err != nil {
		return err
	}
	set, err := cfg.MetricSet()
	if err != nil {
		return err
	}

	workers := cfg.WorkerCount(runtime.NumCPU())
	engine := analysis.NewEngine(
		analysis.WithWorkers(workers),
		analysis.WithLogger(logger),
		analysis.WithMetrics(reg),
	)
	runner := sweep.NewRunner(engine)
	runner.Workers = workers
	runner.Weights = cfg.Weights()

	batch := runner.Run(ctx, g, specs, set, cfg.AnalysisOptions())

	if err := writeReport(opts.reportPath, stdout, batch); err != nil {
		return err
	}
	if opts.snapshotDir != "" {
		if err := writeSnapshots(opts.snapshotDir, batch); err != nil {
			return err
		}
	}
	if journal != nil {
		if err := journal.SaveFile(opts.journalPath); err != nil {
			return err
		}
		logger.Info("journal written", logging.Path(opts.journalPath), logging.Int("entries", journal.Len()))
	}
	if opts.metricsPath != "" {
		if err := writeMetrics(opts.metricsPath, reg); err != nil {
			return err
		}
	}

	if batch.Failed == len(batch.Results) && len(batch.Results) > 0 {
		return fmt.Errorf("all %d runs failed: %w", batch.Failed, batch.Results[0].Err)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Parse([]byte(defaultSweep))
	}
	return config.Load(path)
}

func loadGraph(opts options) (*network.Graph, error) {
	if opts.inputPath == "" {
		return syntheticNetwork(opts.synthetic, opts.seed)
	}
	if strings.EqualFold(filepath.Ext(opts.inputPath), ".json") {
		data, err := os.ReadFile(opts.inputPath)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		g, err := snapshot.ReadJSON(data)
		if err != nil {
			return nil, err
		}
		return network.WithEstimatedCapacity(g)
	}
	return snapshot.ReadFile(opts.inputPath)
}

func writeReport(path string, stdout io.Writer, batch *sweep.BatchReport) error {
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(batch); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func writeSnapshots(dir string, batch *sweep.BatchReport) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	for _, r := range batch.Succeeded() {
		if err := snapshot.WriteFile(filepath.Join(dir, r.Name+".gsn"), r.Graph); err != nil {
			return err
		}
	}
	return nil
}

func writeMetrics(path string, reg *metrics.Registry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	defer f.Close()
	return reg.WriteText(f)
}
