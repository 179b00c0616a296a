package analysis

import (
	"fmt"
	"sort"

	"github.com/dd0wney/gasnet-simplify/pkg/algorithms"
	"github.com/dd0wney/gasnet-simplify/pkg/network"
)

func (st *state) compute(m Metric) (Value, error) {
	ix := st.ix
	n, e := ix.N(), len(ix.Edges)

	if m.pathMetric() {
		return st.pathValue(m)
	}
	switch m {
	case NodeCount:
		return scalar(float64(n)), nil
	case EdgeCount:
		return scalar(float64(e)), nil
	case AverageDegree:
		if n == 0 {
			return scalar(0), nil
		}
		return scalar(2 * float64(e) / float64(n)), nil
	case DegreeDistribution:
		degrees := make([]float64, n)
		for i := range degrees {
			degrees[i] = float64(ix.Degree(i))
		}
		return distribution(degrees), nil
	case Density:
		if n < 2 {
			return scalar(0), nil
		}
		return scalar(float64(ix.DistinctPairs()) / (float64(n) * float64(n-1) / 2)), nil
	case ConnectedComponents:
		return scalar(float64(len(st.components))), nil
	case CyclomaticNumber:
		return scalar(float64(e - n + len(st.components))), nil
	case ClusteringCoefficient:
		return scalar(algorithms.Mean(algorithms.LocalClustering(ix))), nil
	case EdgeBetweenness:
		return distribution(algorithms.EdgeBetweenness(ix)), nil
	case NodeBetweenness:
		scores := algorithms.NodeBetweenness(ix)
		v := distribution(scores)
		v.ByOrigin = byOrigin(ix, scores)
		return v, nil
	case ArticulationPoints:
		return scalar(float64(len(algorithms.ArticulationPoints(ix)))), nil
	case MaxFlow:
		return scalar(algorithms.MaxFlow(ix, st.sources, st.sinks)), nil
	case SpanningCapacity, SpanningBottleneck:
		total, bottleneck := algorithms.ForestCapacity(ix, algorithms.MaxSpanningForest(ix))
		if m == SpanningCapacity {
			return scalar(total), nil
		}
		return scalar(bottleneck), nil
	case TotalLength:
		lengths := make([]float64, e)
		for k, edge := range ix.Edges {
			lengths[k] = edge.Length
		}
		return scalar(algorithms.Sum(lengths)), nil
	case PropertyValue:
		var total algorithms.Accumulator
		for _, edge := range ix.Edges {
			u, v := ix.Nodes[edge.U], ix.Nodes[edge.V]
			total.Add(edge.Capacity * (st.roleWeight(u.Role) + st.roleWeight(v.Role)))
		}
		return scalar(total.Value()), nil
	}
	return Value{}, fmt.Errorf("%w: %q", ErrUnknownMetric, m)
}

func scalar(v float64) Value {
	return Value{Scalar: v}
}

func distribution(values []float64) Value {
	s := Summarize(values)
	return Value{Scalar: s.Mean, Summary: s}
}

// pathValue evaluates a path metric on every component. A disconnected graph
// is an error unless per-component evaluation was requested; the scalar is the
// value of the largest component.
func (st *state) pathValue(m Metric) (Value, error) {
	if len(st.components) == 0 {
		return scalar(0), nil
	}
	if len(st.components) > 1 && !st.perComponent {
		return Value{}, fmt.Errorf("%s over %d components: %w", m, len(st.components), ErrDisconnectedGraph)
	}

	values := make([]float64, len(st.components))
	for i, comp := range st.components {
		switch m {
		case Diameter:
			d, _ := algorithms.HopStats(st.ix, comp)
			values[i] = float64(d)
		case AverageShortestPath:
			_, mean := algorithms.HopStats(st.ix, comp)
			values[i] = mean
		default:
			values[i] = algorithms.WeightedMean(st.ix, comp)
		}
	}

	v := scalar(values[0])
	if st.perComponent {
		v.Components = values
	}
	return v, nil
}

// byOrigin spreads per-node values over the original node ids, in ascending id
// order. An id contracted into an edge gets zero.
func byOrigin(ix *algorithms.Index, values []float64) []float64 {
	type origin struct {
		id    network.NodeID
		value float64
	}
	var all []origin
	for i, n := range ix.Nodes {
		for id := range n.Provenance {
			all = append(all, origin{id, values[i]})
		}
	}
	for _, e := range ix.Edges {
		for id := range e.Interior {
			all = append(all, origin{id, 0})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].id < all[j].id })
	out := make([]float64, len(all))
	for i, o := range all {
		out[i] = o.value
	}
	return out
}
