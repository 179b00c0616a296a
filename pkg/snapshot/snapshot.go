// Package snapshot serializes gas network graphs, provenance included, as
// snappy-compressed JSON documents.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"os"

	"github.com/golang/snappy"

	"github.com/dd0wney/gasnet-simplify/pkg/network"
)

// ErrCorrupt is returned when a snapshot fails its checksum or cannot be decoded.
var ErrCorrupt = errors.New("corrupt snapshot")

var magic = [4]byte{'G', 'S', 'N', '1'}

// headerSize is magic(4) + checksum(4)
const headerSize = 8

type NodeDoc struct {
	ID         network.NodeID     `json:"id"`
	Role       network.Role       `json:"role"`
	Essential  bool               `json:"essential,omitempty"`
	Attrs      network.Attributes `json:"attrs,omitempty"`
	Provenance []network.NodeID   `json:"provenance"`
	Absorbed   []network.EdgeID   `json:"absorbed,omitempty"`
}

type EdgeDoc struct {
	ID         network.EdgeID     `json:"id"`
	From       network.NodeID     `json:"from"`
	To         network.NodeID     `json:"to"`
	Attrs      network.Attributes `json:"attrs,omitempty"`
	Provenance []network.EdgeID   `json:"provenance"`
	Interior   []network.NodeID   `json:"interior,omitempty"`
}

// Document is the JSON form of a graph. Nodes and edges are ordered by id.
type Document struct {
	Nodes []NodeDoc `json:"nodes"`
	Edges []EdgeDoc `json:"edges"`
}

// NewDocument captures g.
func NewDocument(g *network.Graph) Document {
	doc := Document{
		Nodes: make([]NodeDoc, 0, g.NodeCount()),
		Edges: make([]EdgeDoc, 0, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, NodeDoc{
			ID:         n.ID,
			Role:       n.Role,
			Essential:  n.Essential,
			Attrs:      n.Attrs,
			Provenance: n.Provenance.Sorted(),
			Absorbed:   n.Absorbed.Sorted(),
		})
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, EdgeDoc{
			ID:         e.ID,
			From:       e.From,
			To:         e.To,
			Attrs:      e.Attrs,
			Provenance: e.Provenance.Sorted(),
			Interior:   e.Interior.Sorted(),
		})
	}
	return doc
}

// Graph rebuilds the graph; structural invariants are re-validated.
func (d Document) Graph() (*network.Graph, error) {
	b := network.NewBuilder()
	for _, n := range d.Nodes {
		err := b.AddNode(network.Node{
			ID:         n.ID,
			Role:       n.Role,
			Essential:  n.Essential,
			Attrs:      n.Attrs,
			Provenance: network.NewIDSet(n.Provenance...),
			Absorbed:   network.NewIDSet(n.Absorbed...),
		})
		if err != nil {
			return nil, err
		}
	}
	for _, e := range d.Edges {
		err := b.AddEdge(network.Edge{
			ID:         e.ID,
			From:       e.From,
			To:         e.To,
			Attrs:      e.Attrs,
			Provenance: network.NewIDSet(e.Provenance...),
			Interior:   network.NewIDSet(e.Interior...),
		})
		if err != nil {
			return nil, err
		}
	}
	return b.Freeze()
}

// Encode serializes g as [magic:4][crc32:4][snappy(JSON)].
func Encode(g *network.Graph) ([]byte, error) {
	raw, err := json.Marshal(NewDocument(g))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	compressed := snappy.Encode(nil, raw)

	out := make([]byte, headerSize, headerSize+len(compressed))
	copy(out, magic[:])
	binary.BigEndian.PutUint32(out[4:headerSize], crc32.ChecksumIEEE(compressed))
	return append(out, compressed...), nil
}

// Decode parses data produced by Encode.
func Decode(data []byte) (*network.Graph, error) {
	if len(data) < headerSize || !bytes.Equal(data[:4], magic[:]) {
		return nil, fmt.Errorf("%w: bad header", ErrCorrupt)
	}
	compressed := data[headerSize:]
	if crc32.ChecksumIEEE(compressed) != binary.BigEndian.Uint32(data[4:headerSize]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	g, err := doc.Graph()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return g, nil
}

// WriteFile encodes g to path.
func WriteFile(path string, g *network.Graph) error {
	data, err := Encode(g)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// ReadFile decodes the snapshot stored at path.
func ReadFile(path string) (*network.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Decode(data)
}

// ReadJSON builds a graph from an uncompressed JSON document.
func ReadJSON(data []byte) (*network.Graph, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse graph document: %w", err)
	}
	return doc.Graph()
}
