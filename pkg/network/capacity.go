package network

import (
	"math"
)

// Gas properties used by EstimateCapacity.
const (
	SpecificGravity   = 0.6   // natural gas relative to air
	GasTemperatureK   = 288.0 // flowing temperature
	StandardDensityKG = 0.8   // kg per normal cubic metre
	minLengthKM       = 0.001
)

// EstimateCapacity approximates the transport capacity of a pipe in kg/s with a
// Panhandle-A style relation. Lengths below one metre are clamped so that short
// station connectors do not produce infinite capacity.
func EstimateCapacity(maxPressureBar, diameterMM, lengthKM float64) float64 {
	if maxPressureBar <= 0 || diameterMM <= 0 {
		return 0
	}
	if lengthKM <= 0 {
		lengthKM = minLengthKM
	}
	flow := 0.0035 * math.Pow(maxPressureBar, 1.054) * math.Pow(diameterMM, 2.53) /
		(math.Pow(lengthKM, 0.527) * math.Pow(SpecificGravity, 0.473) * math.Sqrt(GasTemperatureK))
	return flow * StandardDensityKG / 3600
}

// WithEstimatedCapacity returns a graph in which every edge lacking a capacity
// but carrying max_pressure (bar), diameter (mm) and length (m) gets an
// estimated capacity.
func WithEstimatedCapacity(g *Graph) (*Graph, error) {
	b := g.Edit()
	for _, id := range b.EdgeIDs() {
		e := b.edges[id]
		if _, ok := e.Attrs[Capacity]; ok {
			continue
		}
		p, okP := e.Attrs[MaxPressure]
		d, okD := e.Attrs[Diameter]
		l, okL := e.Attrs[Length]
		if !okP || !okD || !okL {
			continue
		}
		e.Attrs[Capacity] = EstimateCapacity(p, d, l/1000)
		b.edges[id] = e
	}
	return b.Freeze()
}
