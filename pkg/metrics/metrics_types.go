package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the counters and histograms of the simplification engine.
// A nil *Registry is valid and records nothing.
type Registry struct {
	// Simplification metrics
	PassesTotal       *prometheus.CounterVec
	PassDuration      *prometheus.HistogramVec
	NodesRemovedTotal *prometheus.CounterVec
	EdgesRemovedTotal *prometheus.CounterVec

	// Analysis metrics
	MetricDuration    *prometheus.HistogramVec
	MetricErrorsTotal *prometheus.CounterVec

	// Sweep metrics
	SweepRunsTotal *prometheus.CounterVec
	SweepDuration  prometheus.Histogram

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with every metric registered
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initSimplifyMetrics()
	r.initAnalysisMetrics()
	r.initSweepMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}
