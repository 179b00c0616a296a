package analysis

import (
	"math"

	"github.com/dd0wney/gasnet-simplify/pkg/algorithms"
)

// Summary describes a distribution. Variance is the population variance.
type Summary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// StdDev returns the population standard deviation.
func (s Summary) StdDev() float64 {
	return math.Sqrt(s.Variance)
}

// Summarize describes values in the given order with compensated sums.
func Summarize(values []float64) *Summary {
	if len(values) == 0 {
		return &Summary{}
	}
	mean := algorithms.Mean(values)
	var sq algorithms.Accumulator
	for _, v := range values {
		d := v - mean
		sq.Add(d * d)
	}
	lo, hi := algorithms.MinMax(values)
	return &Summary{
		Count:    len(values),
		Mean:     mean,
		Variance: sq.Value() / float64(len(values)),
		Min:      lo,
		Max:      hi,
	}
}

// Value is the result of one metric. Scalar is always set; distribution
// metrics carry a Summary and per-component evaluation fills Components.
// ByOrigin holds per-node values spread over the original node ids, so
// reports of a graph and its simplification line up entry by entry.
type Value struct {
	Scalar     float64   `json:"scalar"`
	Summary    *Summary  `json:"summary,omitempty"`
	Components []float64 `json:"components,omitempty"`
	ByOrigin   []float64 `json:"by_origin,omitempty"`
}

// Report holds the metric values of one graph.
type Report struct {
	Label     string           `json:"label"`
	NodeCount int              `json:"node_count"`
	EdgeCount int              `json:"edge_count"`
	Metrics   MetricSet        `json:"metrics"`
	Values    map[Metric]Value `json:"values"`
}

// Value returns the value of m.
func (r *Report) Value(m Metric) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	v, ok := r.Values[m]
	return v, ok
}

// Scalar returns the scalar value of m.
func (r *Report) Scalar(m Metric) (float64, bool) {
	v, ok := r.Value(m)
	return v.Scalar, ok
}
