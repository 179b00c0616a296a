package network

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Policy is an attribute aggregation rule applied when entities are merged.
type Policy int

const (
	PolicySum Policy = iota + 1
	PolicyWeightedAverage
	PolicyMin
	PolicyMax
	// PolicyReciprocalSum combines values as 1/Σ(1/x), the parallel rule for resistances.
	PolicyReciprocalSum
)

var policyNames = map[Policy]string{
	PolicySum:             "sum",
	PolicyWeightedAverage: "weighted-average",
	PolicyMin:             "min",
	PolicyMax:             "max",
	PolicyReciprocalSum:   "reciprocal-sum",
}

// String returns the configuration name of the policy.
func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	_, ok := policyNames[p]
	return ok
}

// ParsePolicy converts a configuration name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "_", "-")
	for p, n := range policyNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAggregationPolicy, s)
}

// Rule declares how one attribute is aggregated. Weight is only consulted by
// PolicyWeightedAverage; when empty, edges are weighted by length and nodes by
// the number of original nodes they represent.
type Rule struct {
	Policy Policy
	Weight Attr
}

// Discard is a fold target that explicitly drops a self-loop attribute. The loop
// itself stays traceable through Node.Absorbed.
const Discard Attr = "discard"

// Table is the declared aggregation policy table. Every attribute present on a
// merged entity must have a rule; nothing is aggregated implicitly.
type Table struct {
	Node     map[Attr]Rule
	Series   map[Attr]Rule
	Parallel map[Attr]Rule
	// Fold maps a self-loop edge attribute onto a node attribute (aggregated with
	// that attribute's Node rule) or onto Discard.
	Fold map[Attr]Attr
}

// DefaultTable returns the standard series/parallel network-reduction rules.
func DefaultTable() Table {
	return Table{
		Node: map[Attr]Rule{
			Elevation:      {Policy: PolicyWeightedAverage},
			Supply:         {Policy: PolicySum},
			Pressure:       {Policy: PolicyMin},
			InternalLength: {Policy: PolicySum},
		},
		Series: map[Attr]Rule{
			Length:      {Policy: PolicySum},
			Diameter:    {Policy: PolicyMin},
			Capacity:    {Policy: PolicyMin},
			Resistance:  {Policy: PolicySum},
			MaxPressure: {Policy: PolicyMin},
		},
		Parallel: map[Attr]Rule{
			Length:      {Policy: PolicyWeightedAverage, Weight: Capacity},
			Diameter:    {Policy: PolicyMax},
			Capacity:    {Policy: PolicySum},
			Resistance:  {Policy: PolicyReciprocalSum},
			MaxPressure: {Policy: PolicyMax},
		},
		Fold: map[Attr]Attr{
			Length:      InternalLength,
			Diameter:    Discard,
			Capacity:    Discard,
			Resistance:  Discard,
			MaxPressure: Discard,
		},
	}
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := Table{
		Node:     make(map[Attr]Rule, len(t.Node)),
		Series:   make(map[Attr]Rule, len(t.Series)),
		Parallel: make(map[Attr]Rule, len(t.Parallel)),
		Fold:     make(map[Attr]Attr, len(t.Fold)),
	}
	for k, v := range t.Node {
		out.Node[k] = v
	}
	for k, v := range t.Series {
		out.Series[k] = v
	}
	for k, v := range t.Parallel {
		out.Parallel[k] = v
	}
	for k, v := range t.Fold {
		out.Fold[k] = v
	}
	return out
}

// Check verifies that the table itself is well formed.
func (t Table) Check() error {
	if err := checkRules("node", t.Node, nodeSchema); err != nil {
		return err
	}
	if err := checkRules("series", t.Series, edgeSchema); err != nil {
		return err
	}
	if err := checkRules("parallel", t.Parallel, edgeSchema); err != nil {
		return err
	}
	for _, a := range sortedAttrKeys(t.Fold) {
		target := t.Fold[a]
		if !IsEdgeAttr(a) {
			return NewError("check").Policy("fold").Field(a).Cause(ErrUnknownAttribute).Err()
		}
		if target == Discard {
			continue
		}
		if !IsNodeAttr(target) {
			return NewError("check").Policy("fold").Field(a).Cause(ErrUnknownAttribute).
				Context("fold target %q is not a node attribute", target).Err()
		}
		if _, ok := t.Node[target]; !ok {
			return NewError("check").Policy("fold").Field(a).Cause(ErrUnknownAggregationPolicy).
				Context("fold target %q has no node rule", target).Err()
		}
	}
	return nil
}

func checkRules(section string, rules map[Attr]Rule, schema []Attr) error {
	for _, a := range sortedAttrKeys(rules) {
		r := rules[a]
		if !containsAttr(schema, a) {
			return NewError("check").Policy(section).Field(a).Cause(ErrUnknownAttribute).Err()
		}
		if !r.Policy.Valid() {
			return NewError("check").Policy(section).Field(a).Cause(ErrUnknownAggregationPolicy).
				Context("policy %d", int(r.Policy)).Err()
		}
		if r.Weight != "" {
			if r.Policy != PolicyWeightedAverage {
				return NewError("check").Policy(section).Field(a).Cause(ErrUnknownAggregationPolicy).
					Context("weight %q set on %s rule", r.Weight, r.Policy).Err()
			}
			if !containsAttr(schema, r.Weight) {
				return NewError("check").Policy(section).Field(a).Cause(ErrUnknownAttribute).
					Context("weight %q", r.Weight).Err()
			}
		}
	}
	return nil
}

// Validate checks the table against every attribute that occurs in g, so that a
// missing policy is reported before any merge touches the graph.
func (t Table) Validate(g *Graph) error {
	if err := t.Check(); err != nil {
		return err
	}
	nodeAttrs := make(map[Attr]struct{})
	for _, n := range g.nodes {
		for a := range n.Attrs {
			nodeAttrs[a] = struct{}{}
		}
	}
	edgeAttrs := make(map[Attr]struct{})
	for _, e := range g.edges {
		for a := range e.Attrs {
			edgeAttrs[a] = struct{}{}
		}
	}
	for _, a := range sortedAttrKeys(nodeAttrs) {
		if _, ok := t.Node[a]; !ok {
			return missingRule("validate", "node", a)
		}
	}
	for _, a := range sortedAttrKeys(edgeAttrs) {
		if _, ok := t.Series[a]; !ok {
			return missingRule("validate", "series", a)
		}
		if _, ok := t.Parallel[a]; !ok {
			return missingRule("validate", "parallel", a)
		}
		if _, ok := t.Fold[a]; !ok {
			return missingRule("validate", "fold", a)
		}
	}
	return nil
}

func missingRule(op, section string, a Attr) error {
	return NewError(op).Policy(section).Field(a).Cause(ErrUnknownAggregationPolicy).Err()
}

func sortedAttrKeys[V any](m map[Attr]V) []Attr {
	keys := make([]Attr, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// sample is one input to an aggregation. Samples are always supplied in
// ascending entity id order so results do not depend on map iteration.
type sample struct {
	attrs  Attributes
	weight float64 // fallback weight when the rule names no weight attribute
}

// aggregate combines one attribute across samples. ok is false when no sample
// carries the attribute.
func aggregate(a Attr, r Rule, defaultWeight Attr, samples []sample) (float64, bool) {
	values := make([]float64, 0, len(samples))
	weights := make([]float64, 0, len(samples))
	weightAttr := r.Weight
	if weightAttr == "" {
		weightAttr = defaultWeight
	}
	for _, s := range samples {
		v, ok := s.attrs[a]
		if !ok {
			continue
		}
		values = append(values, v)
		w := s.weight
		if weightAttr != "" {
			w = s.attrs[weightAttr]
		}
		weights = append(weights, w)
	}
	if len(values) == 0 {
		return 0, false
	}

	switch r.Policy {
	case PolicySum:
		return compensatedSum(values), true
	case PolicyMin:
		m := values[0]
		for _, v := range values[1:] {
			m = math.Min(m, v)
		}
		return m, true
	case PolicyMax:
		m := values[0]
		for _, v := range values[1:] {
			m = math.Max(m, v)
		}
		return m, true
	case PolicyReciprocalSum:
		inv := make([]float64, len(values))
		for i, v := range values {
			if v == 0 {
				return 0, true
			}
			inv[i] = 1 / v
		}
		return 1 / compensatedSum(inv), true
	case PolicyWeightedAverage:
		total := compensatedSum(weights)
		if total == 0 {
			return compensatedSum(values) / float64(len(values)), true
		}
		products := make([]float64, len(values))
		for i := range values {
			products[i] = values[i] * weights[i]
		}
		return compensatedSum(products) / total, true
	}
	return 0, false
}

// aggregateAll applies every rule relevant to the union of sample attributes.
func aggregateAll(op, section string, rules map[Attr]Rule, defaultWeight Attr, samples []sample) (Attributes, error) {
	present := make(map[Attr]struct{})
	for _, s := range samples {
		for a := range s.attrs {
			present[a] = struct{}{}
		}
	}
	out := make(Attributes, len(present))
	for _, a := range sortedAttrKeys(present) {
		r, ok := rules[a]
		if !ok || !r.Policy.Valid() {
			return nil, missingRule(op, section, a)
		}
		if v, ok := aggregate(a, r, defaultWeight, samples); ok {
			out[a] = v
		}
	}
	return out, nil
}

// compensatedSum is Neumaier's variant of Kahan summation.
func compensatedSum(values []float64) float64 {
	var sum, c float64
	for _, v := range values {
		t := sum + v
		if math.Abs(sum) >= math.Abs(v) {
			c += (sum - t) + v
		} else {
			c += (v - t) + sum
		}
		sum = t
	}
	return sum + c
}
