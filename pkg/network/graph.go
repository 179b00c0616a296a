package network

import (
	"sort"
)

// store holds the entity maps shared by Graph and Builder.
type store struct {
	nodes    map[NodeID]Node
	edges    map[EdgeID]Edge
	incident map[NodeID]map[EdgeID]struct{}
}

func newStore() store {
	return store{
		nodes:    make(map[NodeID]Node),
		edges:    make(map[EdgeID]Edge),
		incident: make(map[NodeID]map[EdgeID]struct{}),
	}
}

func (s store) clone() store {
	out := store{
		nodes:    make(map[NodeID]Node, len(s.nodes)),
		edges:    make(map[EdgeID]Edge, len(s.edges)),
		incident: make(map[NodeID]map[EdgeID]struct{}, len(s.incident)),
	}
	for id, n := range s.nodes {
		out.nodes[id] = n.Clone()
	}
	for id, e := range s.edges {
		out.edges[id] = e.Clone()
	}
	for id, inc := range s.incident {
		set := make(map[EdgeID]struct{}, len(inc))
		for e := range inc {
			set[e] = struct{}{}
		}
		out.incident[id] = set
	}
	return out
}

// NodeCount returns the number of nodes.
func (s store) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of edges.
func (s store) EdgeCount() int { return len(s.edges) }

// HasNode reports whether id is present.
func (s store) HasNode(id NodeID) bool {
	_, ok := s.nodes[id]
	return ok
}

// HasEdge reports whether id is present.
func (s store) HasEdge(id EdgeID) bool {
	_, ok := s.edges[id]
	return ok
}

// Node returns a copy of the node.
func (s store) Node(id NodeID) (Node, bool) {
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.Clone(), true
}

// Edge returns a copy of the edge.
func (s store) Edge(id EdgeID) (Edge, bool) {
	e, ok := s.edges[id]
	if !ok {
		return Edge{}, false
	}
	return e.Clone(), true
}

// NodeIDs returns all node ids in ascending order.
func (s store) NodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// EdgeIDs returns all edge ids in ascending order.
func (s store) EdgeIDs() []EdgeID {
	ids := make([]EdgeID, 0, len(s.edges))
	for id := range s.edges {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Nodes returns copies of all nodes ordered by id.
func (s store) Nodes() []Node {
	ids := s.NodeIDs()
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = s.nodes[id].Clone()
	}
	return out
}

// Edges returns copies of all edges ordered by id.
func (s store) Edges() []Edge {
	ids := s.EdgeIDs()
	out := make([]Edge, len(ids))
	for i, id := range ids {
		out[i] = s.edges[id].Clone()
	}
	return out
}

// IncidentEdges returns the ids of edges touching id in ascending order.
func (s store) IncidentEdges(id NodeID) []EdgeID {
	inc := s.incident[id]
	out := make([]EdgeID, 0, len(inc))
	for e := range inc {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Degree counts incident edges; a self-loop counts twice.
func (s store) Degree(id NodeID) int {
	d := 0
	for e := range s.incident[id] {
		if s.edges[e].IsLoop() {
			d += 2
		} else {
			d++
		}
	}
	return d
}

// Neighbors returns the distinct adjacent nodes (excluding id itself) in ascending order.
func (s store) Neighbors(id NodeID) []NodeID {
	seen := make(map[NodeID]struct{})
	for e := range s.incident[id] {
		other := s.edges[e].Other(id)
		if other != id {
			seen[other] = struct{}{}
		}
	}
	out := make([]NodeID, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// EdgesBetween returns the ids of all edges joining u and v in ascending order.
func (s store) EdgesBetween(u, v NodeID) []EdgeID {
	key := MakePair(u, v)
	out := make([]EdgeID, 0, 1)
	for e := range s.incident[u] {
		if s.edges[e].Key() == key {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Span returns every original node id an edge represents: its interior plus the
// provenance of both endpoints.
func (s store) Span(id EdgeID) (IDSet[NodeID], error) {
	e, ok := s.edges[id]
	if !ok {
		return nil, edgeNotFound("Span", id)
	}
	span := e.Interior.Clone()
	span.Union(s.nodes[e.From].Provenance)
	span.Union(s.nodes[e.To].Provenance)
	return span, nil
}

// validate checks the structural invariants every graph must satisfy.
func (s store) validate(op string) error {
	for _, id := range s.EdgeIDs() {
		e := s.edges[id]
		if _, ok := s.nodes[e.From]; !ok {
			return invariant(op, "edge %q references missing node %q", id, e.From)
		}
		if _, ok := s.nodes[e.To]; !ok {
			return invariant(op, "edge %q references missing node %q", id, e.To)
		}
		if _, ok := s.incident[e.From][id]; !ok {
			return invariant(op, "edge %q missing from adjacency of %q", id, e.From)
		}
		if _, ok := s.incident[e.To][id]; !ok {
			return invariant(op, "edge %q missing from adjacency of %q", id, e.To)
		}
	}
	for _, nid := range s.NodeIDs() {
		if s.nodes[nid].ID != nid {
			return invariant(op, "node key %q holds node %q", nid, s.nodes[nid].ID)
		}
		for _, eid := range s.IncidentEdges(nid) {
			e, ok := s.edges[eid]
			if !ok {
				return invariant(op, "node %q lists dangling edge %q", nid, eid)
			}
			if e.From != nid && e.To != nid {
				return invariant(op, "node %q lists foreign edge %q", nid, eid)
			}
		}
	}
	for nid := range s.incident {
		if _, ok := s.nodes[nid]; !ok {
			return invariant(op, "adjacency entry for missing node %q", nid)
		}
	}

	nodeOwner := make(map[NodeID]string)
	claimNode := func(orig NodeID, owner string) error {
		if prev, dup := nodeOwner[orig]; dup {
			return invariant(op, "original node %q represented by both %s and %s", orig, prev, owner)
		}
		nodeOwner[orig] = owner
		return nil
	}
	edgeOwner := make(map[EdgeID]string)
	claimEdge := func(orig EdgeID, owner string) error {
		if prev, dup := edgeOwner[orig]; dup {
			return invariant(op, "original edge %q represented by both %s and %s", orig, prev, owner)
		}
		edgeOwner[orig] = owner
		return nil
	}
	for _, nid := range s.NodeIDs() {
		n := s.nodes[nid]
		owner := "node " + string(nid)
		for _, orig := range n.Provenance.Sorted() {
			if err := claimNode(orig, owner); err != nil {
				return err
			}
		}
		for _, orig := range n.Absorbed.Sorted() {
			if err := claimEdge(orig, owner); err != nil {
				return err
			}
		}
	}
	for _, eid := range s.EdgeIDs() {
		e := s.edges[eid]
		owner := "edge " + string(eid)
		for _, orig := range e.Interior.Sorted() {
			if err := claimNode(orig, owner); err != nil {
				return err
			}
		}
		for _, orig := range e.Provenance.Sorted() {
			if err := claimEdge(orig, owner); err != nil {
				return err
			}
		}
	}
	return nil
}

// Graph is an immutable snapshot of a gas network. Every mutating operation
// returns a new Graph and leaves the receiver untouched.
type Graph struct {
	store
}

// Empty returns a graph with no nodes or edges.
func Empty() *Graph {
	return &Graph{store: newStore()}
}

// Edit returns a private mutable copy of the graph.
func (g *Graph) Edit() *Builder {
	return &Builder{store: g.store.clone()}
}

// Validate re-checks the structural invariants.
func (g *Graph) Validate() error {
	return g.validate("Validate")
}

// CheckSimplified fails if any self-loop or parallel edge remains.
func (g *Graph) CheckSimplified() error {
	seen := make(map[Pair]EdgeID, len(g.edges))
	for _, id := range g.EdgeIDs() {
		e := g.edges[id]
		if e.IsLoop() {
			return invariant("CheckSimplified", "self-loop %q on node %q", id, e.From)
		}
		if prev, dup := seen[e.Key()]; dup {
			return invariant("CheckSimplified", "edges %q and %q are parallel", prev, id)
		}
		seen[e.Key()] = id
	}
	return nil
}

// Equal reports whether both graphs hold identical nodes and edges.
func (g *Graph) Equal(other *Graph) bool {
	if g.NodeCount() != other.NodeCount() || g.EdgeCount() != other.EdgeCount() {
		return false
	}
	for id, n := range g.nodes {
		m, ok := other.nodes[id]
		if !ok || !nodesEqual(n, m) {
			return false
		}
	}
	for id, e := range g.edges {
		f, ok := other.edges[id]
		if !ok || !edgesEqual(e, f) {
			return false
		}
	}
	return true
}

func attrsEqual(a, b Attributes) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || v != w {
			return false
		}
	}
	return true
}

func nodesEqual(a, b Node) bool {
	return a.ID == b.ID && a.Role == b.Role && a.Essential == b.Essential &&
		attrsEqual(a.Attrs, b.Attrs) && a.Provenance.Equal(b.Provenance) && a.Absorbed.Equal(b.Absorbed)
}

func edgesEqual(a, b Edge) bool {
	return a.ID == b.ID && a.Key() == b.Key() && attrsEqual(a.Attrs, b.Attrs) &&
		a.Provenance.Equal(b.Provenance) && a.Interior.Equal(b.Interior)
}

// AddNode returns a new graph with n added.
func (g *Graph) AddNode(n Node) (*Graph, error) {
	b := g.Edit()
	if err := b.AddNode(n); err != nil {
		return nil, err
	}
	return b.Freeze()
}

// AddEdge returns a new graph with e added.
func (g *Graph) AddEdge(e Edge) (*Graph, error) {
	b := g.Edit()
	if err := b.AddEdge(e); err != nil {
		return nil, err
	}
	return b.Freeze()
}

// RemoveNode returns a new graph without the node and its incident edges.
func (g *Graph) RemoveNode(id NodeID) (*Graph, error) {
	b := g.Edit()
	if err := b.RemoveNode(id); err != nil {
		return nil, err
	}
	return b.Freeze()
}

// RemoveEdge returns a new graph without the edge.
func (g *Graph) RemoveEdge(id EdgeID) (*Graph, error) {
	b := g.Edit()
	if err := b.RemoveEdge(id); err != nil {
		return nil, err
	}
	return b.Freeze()
}

// MergeNodes returns a new graph in which ids are collapsed into one node.
func (g *Graph) MergeNodes(t Table, ids ...NodeID) (*Graph, NodeID, error) {
	b := g.Edit()
	id, err := b.MergeNodes(t, ids...)
	if err != nil {
		return nil, "", err
	}
	out, err := b.Freeze()
	return out, id, err
}

// MergeEdges returns a new graph in which ids are combined into one edge.
func (g *Graph) MergeEdges(t Table, ids ...EdgeID) (*Graph, EdgeID, error) {
	b := g.Edit()
	id, err := b.MergeEdges(t, ids...)
	if err != nil {
		return nil, "", err
	}
	out, err := b.Freeze()
	return out, id, err
}

// Coverage returns every original node and edge id represented by g.
func Coverage(g *Graph) (IDSet[NodeID], IDSet[EdgeID]) {
	nodes := make(IDSet[NodeID])
	edges := make(IDSet[EdgeID])
	for _, n := range g.nodes {
		nodes.Union(n.Provenance)
		edges.Union(n.Absorbed)
	}
	for _, e := range g.edges {
		nodes.Union(e.Interior)
		edges.Union(e.Provenance)
	}
	return nodes, edges
}
