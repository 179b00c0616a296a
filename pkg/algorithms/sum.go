package algorithms

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Accumulator is a Neumaier compensated running sum.
type Accumulator struct {
	sum, c float64
}

// Add adds v to the sum.
func (a *Accumulator) Add(v float64) {
	t := a.sum + v
	if math.Abs(a.sum) >= math.Abs(v) {
		a.c += (a.sum - t) + v
	} else {
		a.c += (v - t) + a.sum
	}
	a.sum = t
}

// Value returns the compensated total.
func (a *Accumulator) Value() float64 { return a.sum + a.c }

// Sum adds values in order with compensation.
func Sum[T constraints.Integer | constraints.Float](values []T) float64 {
	var acc Accumulator
	for _, v := range values {
		acc.Add(float64(v))
	}
	return acc.Value()
}

// Mean returns the arithmetic mean, or 0 for no values.
func Mean[T constraints.Integer | constraints.Float](values []T) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// MinMax returns the smallest and largest value; both are zero for no values.
func MinMax[T constraints.Ordered](values []T) (lo, hi T) {
	if len(values) == 0 {
		return lo, hi
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
