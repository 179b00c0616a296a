package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30}

func (r *Registry) initSimplifyMetrics() {
	r.PassesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gasnet_passes_total",
			Help: "Total number of simplification pass applications",
		},
		[]string{"pass", "status"},
	)

	r.PassDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gasnet_pass_duration_seconds",
			Help:    "Duration of one simplification pass application in seconds",
			Buckets: durationBuckets,
		},
		[]string{"pass"},
	)

	r.NodesRemovedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gasnet_nodes_removed_total",
			Help: "Nodes removed by simplification passes",
		},
		[]string{"pass"},
	)

	r.EdgesRemovedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gasnet_edges_removed_total",
			Help: "Edges removed by simplification passes",
		},
		[]string{"pass"},
	)
}

func (r *Registry) initAnalysisMetrics() {
	r.MetricDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gasnet_metric_duration_seconds",
			Help:    "Duration of one structural metric computation in seconds",
			Buckets: durationBuckets,
		},
		[]string{"metric"},
	)

	r.MetricErrorsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gasnet_metric_errors_total",
			Help: "Metric computations that returned an error",
		},
		[]string{"metric"},
	)
}

func (r *Registry) initSweepMetrics() {
	r.SweepRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "gasnet_sweep_runs_total",
			Help: "Sweep runs by outcome",
		},
		[]string{"status"},
	)

	r.SweepDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gasnet_sweep_duration_seconds",
			Help:    "Wall time of a whole sweep in seconds",
			Buckets: durationBuckets,
		},
	)
}
