// Package evaluation compares the metric reports of an original graph and its
// simplification.
package evaluation

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dd0wney/gasnet-simplify/pkg/analysis"
)

var (
	// ErrIncompatibleReports is returned when two reports measured different metrics.
	ErrIncompatibleReports = errors.New("incompatible reports")

	// ErrInvalidWeights is returned for negative score weights or weights
	// that do not sum to one.
	ErrInvalidWeights = errors.New("invalid score weights")
)

// Entry compares one metric. RelativeDelta is only meaningful when
// RelativeDefined is set; it is left at zero when the original value is zero.
type Entry struct {
	Metric          analysis.Metric `json:"metric"`
	Original        float64         `json:"original"`
	Simplified      float64         `json:"simplified"`
	AbsoluteDelta   float64         `json:"absolute_delta"`
	RelativeDelta   float64         `json:"relative_delta"`
	RelativeDefined bool            `json:"relative_defined"`
}

// Scores summarise the quality of a simplification, each in [0, 1]. A score
// whose metric was not measured is left undefined.
type Scores struct {
	// Complexity rewards reduced node, edge and cycle counts.
	Complexity float64 `json:"complexity"`
	// Structure is 1 minus the earth mover's distance between the node
	// betweenness distributions, relative to the largest original score.
	Structure        float64 `json:"structure"`
	StructureDefined bool    `json:"structure_defined"`
	// Properties is the share of the original property value retained.
	Properties        float64 `json:"properties"`
	PropertiesDefined bool    `json:"properties_defined"`
	// Flow is 1 minus the relative deliverability error.
	Flow        float64 `json:"flow"`
	FlowDefined bool    `json:"flow_defined"`
	// Overall is the weighted sum of the scores above. It is defined when
	// every score with a positive weight is.
	Overall        float64 `json:"overall"`
	OverallDefined bool    `json:"overall_defined"`
}

// Weights of the overall score. They must be non-negative and sum to one.
type Weights struct {
	Complexity float64 `json:"complexity" yaml:"complexity"`
	Structure  float64 `json:"structure" yaml:"structure"`
	Properties float64 `json:"properties" yaml:"properties"`
	Flow       float64 `json:"flow" yaml:"flow"`
}

// DefaultWeights weighs every score equally.
func DefaultWeights() Weights {
	return Weights{Complexity: 0.25, Structure: 0.25, Properties: 0.25, Flow: 0.25}
}

// IsZero reports whether no weight is set.
func (w Weights) IsZero() bool {
	return w == Weights{}
}

// Validate checks signs and the unit sum.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Complexity, w.Structure, w.Properties, w.Flow} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: %+v has a negative weight", ErrInvalidWeights, w)
		}
	}
	if sum := w.Complexity + w.Structure + w.Properties + w.Flow; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("%w: weights sum to %g", ErrInvalidWeights, sum)
	}
	return nil
}

// ComparisonReport pairs the two reports metric by metric.
type ComparisonReport struct {
	Original       string  `json:"original"`
	Simplified     string  `json:"simplified"`
	Entries        []Entry `json:"entries"`
	NodeCountRatio float64 `json:"node_count_ratio"`
	EdgeCountRatio float64 `json:"edge_count_ratio"`
	RatiosDefined  bool    `json:"ratios_defined"`
	Scores         Scores  `json:"scores"`
}

// Compare computes deltas for every metric of two reports over the same set,
// scoring with DefaultWeights.
func Compare(original, simplified *analysis.Report) (*ComparisonReport, error) {
	return CompareWith(original, simplified, DefaultWeights())
}

// CompareWith is Compare with explicit score weights. Zero weights mean
// DefaultWeights.
func CompareWith(original, simplified *analysis.Report, w Weights) (*ComparisonReport, error) {
	if w.IsZero() {
		w = DefaultWeights()
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if original == nil || simplified == nil {
		return nil, fmt.Errorf("compare: missing report: %w", ErrIncompatibleReports)
	}
	if !original.Metrics.Equal(simplified.Metrics) {
		return nil, fmt.Errorf("compare %v with %v: %w",
			original.Metrics.Strings(), simplified.Metrics.Strings(), ErrIncompatibleReports)
	}

	cr := &ComparisonReport{
		Original:   original.Label,
		Simplified: simplified.Label,
		Entries:    make([]Entry, 0, len(original.Metrics)),
	}
	for _, m := range original.Metrics {
		before, ok := original.Scalar(m)
		if !ok {
			return nil, fmt.Errorf("compare: %s missing from %q: %w", m, original.Label, ErrIncompatibleReports)
		}
		after, ok := simplified.Scalar(m)
		if !ok {
			return nil, fmt.Errorf("compare: %s missing from %q: %w", m, simplified.Label, ErrIncompatibleReports)
		}
		cr.Entries = append(cr.Entries, newEntry(m, before, after))
	}

	if original.NodeCount > 0 {
		cr.RatiosDefined = true
		cr.NodeCountRatio = float64(simplified.NodeCount) / float64(original.NodeCount)
		if original.EdgeCount > 0 {
			cr.EdgeCountRatio = float64(simplified.EdgeCount) / float64(original.EdgeCount)
		}
	}
	cr.Scores = scores(cr, original, simplified, w)
	return cr, nil
}

func newEntry(m analysis.Metric, before, after float64) Entry {
	e := Entry{
		Metric:        m,
		Original:      before,
		Simplified:    after,
		AbsoluteDelta: after - before,
	}
	if before != 0 {
		e.RelativeDelta = e.AbsoluteDelta / before
		e.RelativeDefined = true
	}
	return e
}

// Entry returns the comparison of m.
func (cr *ComparisonReport) Entry(m analysis.Metric) (Entry, bool) {
	for _, e := range cr.Entries {
		if e.Metric == m {
			return e, true
		}
	}
	return Entry{}, false
}

func scores(cr *ComparisonReport, original, simplified *analysis.Report, w Weights) Scores {
	var s Scores

	var nodeTerm, edgeTerm, cycleTerm float64
	if cr.RatiosDefined {
		nodeTerm = 1 - cr.NodeCountRatio
		if original.EdgeCount > 0 {
			edgeTerm = 1 - cr.EdgeCountRatio
		}
	}
	if e, ok := cr.Entry(analysis.CyclomaticNumber); ok && e.Original > 0 {
		cycleTerm = math.Max(0, 1-e.Simplified/e.Original)
	}
	s.Complexity = (nodeTerm + edgeTerm + cycleTerm) / 3

	if e, ok := cr.Entry(analysis.MaxFlow); ok {
		switch {
		case e.Original > 0:
			s.Flow = 1 - math.Min(1, math.Abs(e.AbsoluteDelta)/e.Original)
			s.FlowDefined = true
		case e.Original == 0 && e.Simplified == 0:
			s.Flow = 1
			s.FlowDefined = true
		}
	}

	before, _ := original.Value(analysis.NodeBetweenness)
	after, _ := simplified.Value(analysis.NodeBetweenness)
	if len(before.ByOrigin) > 0 && len(before.ByOrigin) == len(after.ByOrigin) {
		s.Structure = distributionScore(before.ByOrigin, after.ByOrigin)
		s.StructureDefined = true
	}

	if e, ok := cr.Entry(analysis.PropertyValue); ok {
		s.PropertiesDefined = true
		if e.Original > 0 {
			s.Properties = math.Min(1, math.Max(0, e.Simplified/e.Original))
		}
	}

	parts := []struct {
		weight, score float64
		defined       bool
	}{
		{w.Complexity, s.Complexity, true},
		{w.Structure, s.Structure, s.StructureDefined},
		{w.Properties, s.Properties, s.PropertiesDefined},
		{w.Flow, s.Flow, s.FlowDefined},
	}
	s.OverallDefined = true
	for _, p := range parts {
		if p.weight == 0 {
			continue
		}
		if !p.defined {
			s.OverallDefined = false
			s.Overall = 0
			break
		}
		s.Overall += p.weight * p.score
	}
	return s
}

// distributionScore is 1 minus the earth mover's distance between two samples
// of equal size, relative to the largest value of before. A before sample of
// zeros scores 1.
func distributionScore(before, after []float64) float64 {
	a := append([]float64(nil), before...)
	b := append([]float64(nil), after...)
	sort.Float64s(a)
	sort.Float64s(b)
	peak := a[len(a)-1]
	if peak <= 0 {
		return 1
	}
	var moved float64
	for i := range a {
		moved += math.Abs(a[i] - b[i])
	}
	emd := moved / float64(len(a))
	return math.Max(0, 1-emd/peak)
}
