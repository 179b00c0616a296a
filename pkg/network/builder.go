package network

import (
	"sort"
)

// Builder is a private, mutable working copy of a graph. Simplification passes
// edit a Builder and publish the result with Freeze. A Builder must not be
// shared between goroutines.
type Builder struct {
	store
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{store: newStore()}
}

// Freeze validates the structural invariants and returns an immutable copy.
func (b *Builder) Freeze() (*Graph, error) {
	if err := b.validate("Freeze"); err != nil {
		return nil, err
	}
	return &Graph{store: b.store.clone()}, nil
}

func validRole(r Role) bool {
	for _, known := range Roles() {
		if known == r {
			return true
		}
	}
	return false
}

// AddNode inserts n. Fails with ErrDuplicateEntity if the id is taken.
func (b *Builder) AddNode(n Node) error {
	const op = "AddNode"
	if n.ID == "" {
		return NewError(op).Node(n.ID).Cause(ErrInvalidID).Err()
	}
	if b.HasNode(n.ID) {
		return NewError(op).Node(n.ID).Cause(ErrDuplicateEntity).Err()
	}
	if n.Role == "" {
		n.Role = RoleJunction
	}
	if !validRole(n.Role) {
		return NewError(op).Node(n.ID).Cause(ErrInvalidAttribute).Context("role %q", n.Role).Err()
	}
	if field, err := validateAttrs(nodeSchema, n.Attrs); err != nil {
		return NewError(op).Node(n.ID).Field(field).Cause(err).Err()
	}
	n = n.Clone()
	if len(n.Provenance) == 0 {
		n.Provenance = NewIDSet(n.ID)
	}
	b.putNode(n)
	return nil
}

// AddEdge inserts e. Both endpoints must already exist.
func (b *Builder) AddEdge(e Edge) error {
	const op = "AddEdge"
	if e.ID == "" {
		return NewError(op).Edge(e.ID).Cause(ErrInvalidID).Err()
	}
	if b.HasEdge(e.ID) {
		return NewError(op).Edge(e.ID).Cause(ErrDuplicateEntity).Err()
	}
	if !b.HasNode(e.From) {
		return NewError(op).Edge(e.ID).Cause(ErrNotFound).Context("endpoint %q", e.From).Err()
	}
	if !b.HasNode(e.To) {
		return NewError(op).Edge(e.ID).Cause(ErrNotFound).Context("endpoint %q", e.To).Err()
	}
	if field, err := validateAttrs(edgeSchema, e.Attrs); err != nil {
		return NewError(op).Edge(e.ID).Field(field).Cause(err).Err()
	}
	e = e.Clone()
	if len(e.Provenance) == 0 {
		e.Provenance = NewIDSet(e.ID)
	}
	b.putEdge(e)
	return nil
}

// RemoveNode deletes the node together with its incident edges.
func (b *Builder) RemoveNode(id NodeID) error {
	if !b.HasNode(id) {
		return nodeNotFound("RemoveNode", id)
	}
	for _, e := range b.IncidentEdges(id) {
		b.dropEdge(e)
	}
	delete(b.nodes, id)
	delete(b.incident, id)
	return nil
}

// RemoveEdge deletes one edge.
func (b *Builder) RemoveEdge(id EdgeID) error {
	if !b.HasEdge(id) {
		return edgeNotFound("RemoveEdge", id)
	}
	b.dropEdge(id)
	return nil
}

func (b *Builder) putNode(n Node) {
	b.nodes[n.ID] = n
	if _, ok := b.incident[n.ID]; !ok {
		b.incident[n.ID] = make(map[EdgeID]struct{})
	}
}

func (b *Builder) putEdge(e Edge) {
	if e.To < e.From {
		e.From, e.To = e.To, e.From
	}
	b.edges[e.ID] = e
	b.incident[e.From][e.ID] = struct{}{}
	b.incident[e.To][e.ID] = struct{}{}
}

func (b *Builder) dropEdge(id EdgeID) {
	e, ok := b.edges[id]
	if !ok {
		return
	}
	delete(b.incident[e.From], id)
	delete(b.incident[e.To], id)
	delete(b.edges, id)
}

func uniqueNodeIDs(ids []NodeID) []NodeID {
	set := NewIDSet(ids...)
	return set.Sorted()
}

func uniqueEdgeIDs(ids []EdgeID) []EdgeID {
	set := NewIDSet(ids...)
	return set.Sorted()
}

// MergeEdges combines edges into one. Edges sharing one endpoint pair are merged
// with the table's parallel rules; edges forming a simple open path whose
// interior nodes carry no other edges are merged with the series rules and the
// interior nodes are contracted into the new edge. The surviving id is the
// smallest input id.
func (b *Builder) MergeEdges(t Table, ids ...EdgeID) (EdgeID, error) {
	const op = "MergeEdges"
	ids = uniqueEdgeIDs(ids)
	if len(ids) == 0 {
		return "", NewError(op).Cause(ErrInvalidMerge).Context("no edges given").Err()
	}
	edges := make([]Edge, len(ids))
	for i, id := range ids {
		e, ok := b.edges[id]
		if !ok {
			return "", edgeNotFound(op, id)
		}
		edges[i] = e
	}
	if len(edges) == 1 {
		return ids[0], nil
	}

	parallel := true
	for _, e := range edges[1:] {
		if e.Key() != edges[0].Key() {
			parallel = false
			break
		}
	}
	if parallel {
		merged, err := combineParallel(op, t, edges)
		if err != nil {
			return "", err
		}
		for _, id := range ids {
			b.dropEdge(id)
		}
		b.putEdge(merged)
		return merged.ID, nil
	}
	return b.mergeSeries(op, t, edges)
}

func combineParallel(op string, t Table, edges []Edge) (Edge, error) {
	samples := make([]sample, len(edges))
	for i, e := range edges {
		samples[i] = sample{attrs: e.Attrs, weight: 1}
	}
	attrs, err := aggregateAll(op, "parallel", t.Parallel, Length, samples)
	if err != nil {
		return Edge{}, err
	}
	merged := Edge{
		ID:         edges[0].ID,
		From:       edges[0].From,
		To:         edges[0].To,
		Attrs:      attrs,
		Provenance: make(IDSet[EdgeID]),
		Interior:   make(IDSet[NodeID]),
	}
	for _, e := range edges {
		merged.Provenance.Union(e.Provenance)
		merged.Interior.Union(e.Interior)
	}
	return merged, nil
}

func (b *Builder) mergeSeries(op string, t Table, edges []Edge) (EdgeID, error) {
	count := make(map[NodeID]int)
	along := make(map[NodeID][]int)
	for i, e := range edges {
		if e.IsLoop() {
			return "", NewError(op).Edge(e.ID).Cause(ErrInvalidMerge).Context("self-loop in series merge").Err()
		}
		count[e.From]++
		count[e.To]++
		along[e.From] = append(along[e.From], i)
		along[e.To] = append(along[e.To], i)
	}

	var ends, interior []NodeID
	for n, c := range count {
		switch c {
		case 1:
			ends = append(ends, n)
		case 2:
			interior = append(interior, n)
		default:
			return "", NewError(op).Node(n).Cause(ErrInvalidMerge).Context("node joins %d merged edges", c).Err()
		}
	}
	if len(ends) != 2 {
		return "", NewError(op).Edge(edges[0].ID).Cause(ErrInvalidMerge).
			Context("edges do not form an open path").Err()
	}
	sort.Slice(ends, func(i, j int) bool { return ends[i] < ends[j] })
	sort.Slice(interior, func(i, j int) bool { return interior[i] < interior[j] })

	for _, n := range interior {
		if b.Degree(n) != 2 {
			return "", NewError(op).Node(n).Cause(ErrInvalidMerge).
				Context("interior node has %d incident edges", b.Degree(n)).Err()
		}
	}

	// Walk the path from one end to make sure every edge is on it.
	visited := make([]bool, len(edges))
	walked := 0
	current := ends[0]
	for {
		next := -1
		for _, i := range along[current] {
			if !visited[i] {
				next = i
				break
			}
		}
		if next < 0 {
			break
		}
		visited[next] = true
		walked++
		current = edges[next].Other(current)
	}
	if walked != len(edges) || current != ends[1] {
		return "", NewError(op).Edge(edges[0].ID).Cause(ErrInvalidMerge).
			Context("edges do not form a single path").Err()
	}

	samples := make([]sample, len(edges))
	for i, e := range edges {
		samples[i] = sample{attrs: e.Attrs, weight: 1}
	}
	attrs, err := aggregateAll(op, "series", t.Series, Length, samples)
	if err != nil {
		return "", err
	}

	merged := Edge{
		ID:         edges[0].ID,
		From:       ends[0],
		To:         ends[1],
		Attrs:      attrs,
		Provenance: make(IDSet[EdgeID]),
		Interior:   make(IDSet[NodeID]),
	}
	for _, e := range edges {
		merged.Provenance.Union(e.Provenance)
		merged.Interior.Union(e.Interior)
	}
	for _, n := range interior {
		node := b.nodes[n]
		merged.Interior.Union(node.Provenance)
		merged.Provenance.Union(node.Absorbed)
	}

	for _, e := range edges {
		b.dropEdge(e.ID)
	}
	for _, n := range interior {
		delete(b.nodes, n)
		delete(b.incident, n)
	}
	b.putEdge(merged)
	return merged.ID, nil
}

// foldLoops folds self-loop edges into n: their provenance moves to Absorbed,
// their interior to Provenance, and their attributes follow t.Fold.
func foldLoops(op string, t Table, n Node, loops []Edge) (Node, error) {
	n = n.Clone()
	if n.Attrs == nil {
		n.Attrs = Attributes{}
	}
	if n.Absorbed == nil {
		n.Absorbed = make(IDSet[EdgeID])
	}
	for _, loop := range loops {
		for _, a := range loop.Attrs.Keys() {
			target, ok := t.Fold[a]
			if !ok {
				return Node{}, missingRule(op, "fold", a)
			}
			if target == Discard {
				continue
			}
			r, ok := t.Node[target]
			if !ok || !r.Policy.Valid() {
				return Node{}, missingRule(op, "node", target)
			}
			samples := make([]sample, 0, 2)
			if cur, has := n.Attrs[target]; has {
				samples = append(samples, sample{attrs: Attributes{target: cur}, weight: float64(len(n.Provenance))})
			}
			samples = append(samples, sample{attrs: Attributes{target: loop.Attrs[a]}, weight: 1})
			if v, ok := aggregate(target, r, "", samples); ok {
				n.Attrs[target] = v
			}
		}
		n.Absorbed.Union(loop.Provenance)
		n.Provenance.Union(loop.Interior)
	}
	return n, nil
}

// FoldLoops folds every self-loop on id into the node and returns how many were folded.
func (b *Builder) FoldLoops(t Table, id NodeID) (int, error) {
	const op = "FoldLoops"
	n, ok := b.nodes[id]
	if !ok {
		return 0, nodeNotFound(op, id)
	}
	var loops []Edge
	for _, eid := range b.IncidentEdges(id) {
		if e := b.edges[eid]; e.IsLoop() {
			loops = append(loops, e)
		}
	}
	if len(loops) == 0 {
		return 0, nil
	}
	folded, err := foldLoops(op, t, n, loops)
	if err != nil {
		return 0, err
	}
	for _, e := range loops {
		b.dropEdge(e.ID)
	}
	b.nodes[id] = folded
	return len(loops), nil
}

// MergeNodes collapses ids into one node. The surviving id is the smallest
// essential member, or the smallest member when none is essential.
func (b *Builder) MergeNodes(t Table, ids ...NodeID) (NodeID, error) {
	ids = uniqueNodeIDs(ids)
	if len(ids) == 0 {
		return "", NewError("MergeNodes").Cause(ErrInvalidMerge).Context("no nodes given").Err()
	}
	keep := ids[0]
	for _, id := range ids {
		n, ok := b.nodes[id]
		if !ok {
			return "", nodeNotFound("MergeNodes", id)
		}
		if n.Essential {
			keep = id
			break
		}
	}
	return b.MergeNodesInto(t, keep, ids...)
}

// MergeNodesInto collapses ids into keep. Node attributes follow t.Node, edges
// internal to the set are folded as self-loops, and edges that end up parallel
// are merged with the parallel rules. Every rule is resolved before the builder
// is modified.
func (b *Builder) MergeNodesInto(t Table, keep NodeID, ids ...NodeID) (NodeID, error) {
	const op = "MergeNodes"
	members := uniqueNodeIDs(append(append([]NodeID(nil), ids...), keep))
	inSet := make(map[NodeID]bool, len(members))
	nodes := make([]Node, len(members))
	for i, id := range members {
		n, ok := b.nodes[id]
		if !ok {
			return "", nodeNotFound(op, id)
		}
		nodes[i] = n
		inSet[id] = true
	}
	if len(members) == 1 {
		return keep, nil
	}

	samples := make([]sample, len(nodes))
	for i, n := range nodes {
		samples[i] = sample{attrs: n.Attrs, weight: float64(len(n.Provenance))}
	}
	attrs, err := aggregateAll(op, "node", t.Node, "", samples)
	if err != nil {
		return "", err
	}
	merged := Node{
		ID:         keep,
		Role:       b.nodes[keep].Role,
		Attrs:      attrs,
		Provenance: make(IDSet[NodeID]),
		Absorbed:   make(IDSet[EdgeID]),
	}
	for _, n := range nodes {
		merged.Essential = merged.Essential || n.Essential
		merged.Provenance.Union(n.Provenance)
		merged.Absorbed.Union(n.Absorbed)
	}

	touched := make(IDSet[EdgeID])
	for _, id := range members {
		for e := range b.incident[id] {
			touched.Add(e)
		}
	}
	var loops []Edge
	groups := make(map[NodeID][]Edge)
	for _, eid := range touched.Sorted() {
		e := b.edges[eid]
		if inSet[e.From] && inSet[e.To] {
			loops = append(loops, e)
			continue
		}
		rewired := e.Clone()
		if inSet[rewired.From] {
			rewired.From = keep
		}
		if inSet[rewired.To] {
			rewired.To = keep
		}
		other := rewired.Other(keep)
		groups[other] = append(groups[other], rewired)
	}

	merged, err = foldLoops(op, t, merged, loops)
	if err != nil {
		return "", err
	}

	neighbors := make([]NodeID, 0, len(groups))
	for n := range groups {
		neighbors = append(neighbors, n)
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })
	replacements := make([]Edge, 0, len(neighbors))
	for _, n := range neighbors {
		group := groups[n]
		if len(group) == 1 {
			replacements = append(replacements, group[0])
			continue
		}
		combined, err := combineParallel(op, t, group)
		if err != nil {
			return "", err
		}
		replacements = append(replacements, combined)
	}

	for _, eid := range touched.Sorted() {
		b.dropEdge(eid)
	}
	for _, id := range members {
		delete(b.nodes, id)
		delete(b.incident, id)
	}
	b.putNode(merged)
	for _, e := range replacements {
		b.putEdge(e)
	}
	return keep, nil
}
