package network

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// NodeID identifies a junction or station.
type NodeID string

// EdgeID identifies a pipe segment.
type EdgeID string

// Role is the categorical class of a node in a gas network.
type Role string

const (
	RoleJunction   Role = "junction"
	RoleSource     Role = "source"
	RoleSink       Role = "sink"
	RoleCompressor Role = "compressor"
	RoleValve      Role = "valve"
	RoleStorage    Role = "storage"
)

// Roles returns every known role in a fixed order.
func Roles() []Role {
	return []Role{RoleJunction, RoleSource, RoleSink, RoleCompressor, RoleValve, RoleStorage}
}

// rolePrefixes maps station name prefixes used by network operators to roles.
// Longer prefixes are matched first.
var rolePrefixes = []struct {
	prefix string
	role   Role
}{
	{"GPR", RoleSource},
	{"LNG", RoleSource},
	{"BIO", RoleSource},
	{"IND", RoleSink},
	{"DSO", RoleSink},
	{"TPP", RoleSink},
	{"IC", RoleSource},
	{"GS", RoleSource},
	{"CS", RoleCompressor},
	{"CV", RoleValve},
	{"ST", RoleStorage},
	{"X", RoleJunction},
}

// ParseRole converts a role name (or a station prefix such as "CS") to a Role.
func ParseRole(s string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, r := range Roles() {
		if string(r) == name {
			return r, nil
		}
	}
	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, p := range rolePrefixes {
		if upper == p.prefix {
			return p.role, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// RoleFromName infers a role from a station name prefix, defaulting to junction.
func RoleFromName(name string) Role {
	upper := strings.ToUpper(name)
	for _, p := range rolePrefixes {
		if strings.HasPrefix(upper, p.prefix) {
			return p.role
		}
	}
	return RoleJunction
}

// Attr names a numeric attribute. The set of recognised names is closed per entity kind.
type Attr string

// Node attributes
const (
	Elevation      Attr = "elevation"
	Supply         Attr = "supply"
	Pressure       Attr = "pressure"
	InternalLength Attr = "internal_length"
)

// Edge attributes
const (
	Length      Attr = "length"
	Diameter    Attr = "diameter"
	Capacity    Attr = "capacity"
	Resistance  Attr = "resistance"
	MaxPressure Attr = "max_pressure"
)

var (
	nodeSchema = []Attr{Elevation, Supply, Pressure, InternalLength}
	edgeSchema = []Attr{Length, Diameter, Capacity, Resistance, MaxPressure}
)

// NodeAttrs returns the node attribute schema.
func NodeAttrs() []Attr { return append([]Attr(nil), nodeSchema...) }

// EdgeAttrs returns the edge attribute schema.
func EdgeAttrs() []Attr { return append([]Attr(nil), edgeSchema...) }

// IsNodeAttr reports whether a is part of the node schema.
func IsNodeAttr(a Attr) bool { return containsAttr(nodeSchema, a) }

// IsEdgeAttr reports whether a is part of the edge schema.
func IsEdgeAttr(a Attr) bool { return containsAttr(edgeSchema, a) }

func containsAttr(set []Attr, a Attr) bool {
	for _, s := range set {
		if s == a {
			return true
		}
	}
	return false
}

// Attributes maps attribute names to values.
type Attributes map[Attr]float64

// Clone returns a copy of the attribute map.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return Attributes{}
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Keys returns the attribute names in ascending order.
func (a Attributes) Keys() []Attr {
	keys := make([]Attr, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func validateAttrs(schema []Attr, attrs Attributes) (Attr, error) {
	for _, k := range attrs.Keys() {
		if !containsAttr(schema, k) {
			return k, ErrUnknownAttribute
		}
		v := attrs[k]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return k, ErrInvalidAttribute
		}
	}
	return "", nil
}

// IDSet is a set of identifiers.
type IDSet[T ~string] map[T]struct{}

// NewIDSet builds a set from the given ids.
func NewIDSet[T ~string](ids ...T) IDSet[T] {
	s := make(IDSet[T], len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s IDSet[T]) Has(id T) bool {
	_, ok := s[id]
	return ok
}

// Add inserts ids into the set.
func (s IDSet[T]) Add(ids ...T) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Union adds every member of other.
func (s IDSet[T]) Union(other IDSet[T]) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Clone returns a copy.
func (s IDSet[T]) Clone() IDSet[T] {
	out := make(IDSet[T], len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the members in ascending order.
func (s IDSet[T]) Sorted() []T {
	out := make([]T, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equal reports whether both sets have the same members.
func (s IDSet[T]) Equal(other IDSet[T]) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Node is a junction or station. Provenance lists the original node ids it
// represents; Absorbed lists original edge ids folded into it as self-loops.
type Node struct {
	ID         NodeID
	Role       Role
	Essential  bool
	Attrs      Attributes
	Provenance IDSet[NodeID]
	Absorbed   IDSet[EdgeID]
}

// Attr returns the value of a node attribute.
func (n Node) Attr(a Attr) (float64, bool) {
	v, ok := n.Attrs[a]
	return v, ok
}

// Clone returns a deep copy.
func (n Node) Clone() Node {
	n.Attrs = n.Attrs.Clone()
	n.Provenance = n.Provenance.Clone()
	n.Absorbed = n.Absorbed.Clone()
	return n
}

// Pair is an unordered endpoint pair with A <= B.
type Pair struct {
	A, B NodeID
}

// MakePair normalises u, v into a Pair.
func MakePair(u, v NodeID) Pair {
	if v < u {
		u, v = v, u
	}
	return Pair{A: u, B: v}
}

// Edge is an undirected pipe segment. Provenance lists the original edge ids it
// represents; Interior lists original node ids contracted into it.
type Edge struct {
	ID         EdgeID
	From       NodeID
	To         NodeID
	Attrs      Attributes
	Provenance IDSet[EdgeID]
	Interior   IDSet[NodeID]
}

// Attr returns the value of an edge attribute.
func (e Edge) Attr(a Attr) (float64, bool) {
	v, ok := e.Attrs[a]
	return v, ok
}

// Key returns the canonical endpoint pair.
func (e Edge) Key() Pair { return MakePair(e.From, e.To) }

// IsLoop reports whether both endpoints are the same node.
func (e Edge) IsLoop() bool { return e.From == e.To }

// Other returns the endpoint opposite to id.
func (e Edge) Other(id NodeID) NodeID {
	if e.From == id {
		return e.To
	}
	return e.From
}

// Clone returns a deep copy.
func (e Edge) Clone() Edge {
	e.Attrs = e.Attrs.Clone()
	e.Provenance = e.Provenance.Clone()
	e.Interior = e.Interior.Clone()
	return e
}
