// Package analysis computes structural metric reports over network graphs.
package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownMetric is returned for a metric name outside the catalogue.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrDisconnectedGraph is returned by path metrics on a graph with more
	// than one component unless per-component evaluation is requested.
	ErrDisconnectedGraph = errors.New("graph is disconnected")
)

// Metric names a structural measurement.
type Metric string

const (
	NodeCount                   Metric = "node_count"
	EdgeCount                   Metric = "edge_count"
	AverageDegree               Metric = "average_degree"
	DegreeDistribution          Metric = "degree_distribution"
	Density                     Metric = "density"
	ConnectedComponents         Metric = "connected_components"
	CyclomaticNumber            Metric = "cyclomatic_number"
	Diameter                    Metric = "diameter"
	AverageShortestPath         Metric = "average_shortest_path"
	AverageShortestPathWeighted Metric = "average_shortest_path_weighted"
	ClusteringCoefficient       Metric = "clustering_coefficient"
	EdgeBetweenness             Metric = "edge_betweenness"
	NodeBetweenness             Metric = "node_betweenness"
	ArticulationPoints          Metric = "articulation_points"
	MaxFlow                     Metric = "max_flow"
	SpanningCapacity            Metric = "spanning_capacity"
	SpanningBottleneck          Metric = "spanning_bottleneck"
	TotalLength                 Metric = "total_length"
	PropertyValue               Metric = "property_value"
)

var catalogue = []Metric{
	NodeCount, EdgeCount, AverageDegree, DegreeDistribution, Density,
	ConnectedComponents, CyclomaticNumber, Diameter, AverageShortestPath,
	AverageShortestPathWeighted, ClusteringCoefficient, EdgeBetweenness,
	ArticulationPoints, MaxFlow, SpanningCapacity, SpanningBottleneck, TotalLength,
	NodeBetweenness, PropertyValue,
}

// Known reports whether m is in the catalogue.
func (m Metric) Known() bool {
	for _, c := range catalogue {
		if c == m {
			return true
		}
	}
	return false
}

// pathMetric reports whether m needs a connected graph.
func (m Metric) pathMetric() bool {
	return m == Diameter || m == AverageShortestPath || m == AverageShortestPathWeighted
}

// ParseMetric converts a metric name.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if !m.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
	}
	return m, nil
}

// MetricSet is a sorted list of distinct metrics.
type MetricSet []Metric

// NewMetricSet sorts and deduplicates metrics. Unknown names fail.
func NewMetricSet(metrics ...Metric) (MetricSet, error) {
	seen := make(map[Metric]bool, len(metrics))
	set := make(MetricSet, 0, len(metrics))
	for _, m := range metrics {
		if !m.Known() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, m)
		}
		if !seen[m] {
			seen[m] = true
			set = append(set, m)
		}
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set, nil
}

// ParseMetricSet parses names into a set. No names selects the full catalogue.
func ParseMetricSet(names []string) (MetricSet, error) {
	if len(names) == 0 {
		return DefaultMetricSet(), nil
	}
	metrics := make([]Metric, 0, len(names))
	for _, name := range names {
		m, err := ParseMetric(name)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return NewMetricSet(metrics...)
}

// DefaultMetricSet returns the full catalogue.
func DefaultMetricSet() MetricSet {
	set, _ := NewMetricSet(catalogue...)
	return set
}

// Contains reports whether m is in the set.
func (s MetricSet) Contains(m Metric) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= m })
	return i < len(s) && s[i] == m
}

// Equal reports whether both sets hold the same metrics.
func (s MetricSet) Equal(other MetricSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Strings returns the metric names.
func (s MetricSet) Strings() []string {
	out := make([]string, len(s))
	for i, m := range s {
		out[i] = string(m)
	}
	return out
}
