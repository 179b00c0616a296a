package snapshot

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dd0wney/gasnet-simplify/pkg/network"
)

// Limits on journal records. ReadJournal rejects larger headers as corrupt
// before allocating.
const (
	MaxLabelLen  = 1 << 12
	MaxEntrySize = 256 << 20
)

// Entry is one recorded intermediate graph.
type Entry struct {
	Seq       uint64
	Label     string
	Nodes     int
	Edges     int
	Timestamp int64
	Data      []byte // Encode output
}

// Journal records labelled intermediate graphs of a simplification so any
// step can be restored later. It is safe for concurrent use.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
	seq     uint64

	// Statistics
	bytesStored uint64
}

// NewJournal returns an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Record encodes g and appends it under label. It returns the entry sequence number.
func (j *Journal) Record(label string, g *network.Graph) (uint64, error) {
	data, err := Encode(g)
	if err != nil {
		return 0, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.seq++
	j.entries = append(j.entries, Entry{
		Seq:       j.seq,
		Label:     label,
		Nodes:     g.NodeCount(),
		Edges:     g.EdgeCount(),
		Timestamp: time.Now().Unix(),
		Data:      data,
	})
	j.bytesStored += uint64(len(data))
	return j.seq, nil
}

// Len returns the number of entries.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// Entries returns the recorded entries without their payloads.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	for i, e := range j.entries {
		e.Data = nil
		out[i] = e
	}
	return out
}

// BytesStored returns the total compressed size of all entries.
func (j *Journal) BytesStored() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.bytesStored
}

// Restore decodes the i-th entry (zero based).
func (j *Journal) Restore(i int) (*network.Graph, error) {
	j.mu.Lock()
	if i < 0 || i >= len(j.entries) {
		n := len(j.entries)
		j.mu.Unlock()
		return nil, fmt.Errorf("journal entry %d of %d: %w", i, n, network.ErrNotFound)
	}
	data := j.entries[i].Data
	j.mu.Unlock()
	return Decode(data)
}

// WriteTo streams the journal as
// [Seq:8][Timestamp:8][LabelLen:2][Label][Nodes:4][Edges:4][DataLen:4][Data] records.
func (j *Journal) WriteTo(w io.Writer) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	bw := bufio.NewWriter(w)
	cw := &countingWriter{w: bw}
	for _, e := range j.entries {
		if len(e.Label) > MaxLabelLen {
			return cw.n, fmt.Errorf("journal label too long: %d bytes", len(e.Label))
		}
		if len(e.Data) > MaxEntrySize {
			return cw.n, fmt.Errorf("journal entry %d too large: %d bytes", e.Seq, len(e.Data))
		}
		fields := []any{e.Seq, e.Timestamp, uint16(len(e.Label))}
		for _, f := range fields {
			if err := binary.Write(cw, binary.BigEndian, f); err != nil {
				return cw.n, err
			}
		}
		if _, err := cw.Write([]byte(e.Label)); err != nil {
			return cw.n, err
		}
		for _, f := range []any{uint32(e.Nodes), uint32(e.Edges), uint32(len(e.Data))} {
			if err := binary.Write(cw, binary.BigEndian, f); err != nil {
				return cw.n, err
			}
		}
		if _, err := cw.Write(e.Data); err != nil {
			return cw.n, err
		}
	}
	return cw.n, bw.Flush()
}

// ReadJournal parses a stream produced by WriteTo. Payloads are verified when
// restored, not here.
func ReadJournal(r io.Reader) (*Journal, error) {
	reader := bufio.NewReader(r)
	j := NewJournal()
	for {
		var e Entry
		if err := binary.Read(reader, binary.BigEndian, &e.Seq); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		var labelLen uint16
		if err := readAll(reader, &e.Timestamp, &labelLen); err != nil {
			return nil, err
		}
		if labelLen > MaxLabelLen {
			return nil, fmt.Errorf("%w: entry %d label length %d exceeds %d", ErrCorrupt, e.Seq, labelLen, MaxLabelLen)
		}
		label := make([]byte, labelLen)
		if _, err := io.ReadFull(reader, label); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		e.Label = string(label)

		var nodes, edges, dataLen uint32
		if err := readAll(reader, &nodes, &edges, &dataLen); err != nil {
			return nil, err
		}
		if dataLen > MaxEntrySize {
			return nil, fmt.Errorf("%w: entry %d data length %d exceeds %d", ErrCorrupt, e.Seq, dataLen, MaxEntrySize)
		}
		e.Nodes, e.Edges = int(nodes), int(edges)
		data, err := io.ReadAll(io.LimitReader(reader, int64(dataLen)))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if len(data) != int(dataLen) {
			return nil, fmt.Errorf("%w: entry %d truncated at %d of %d bytes", ErrCorrupt, e.Seq, len(data), dataLen)
		}
		if dataLen > 0 {
			e.Data = data
		}

		j.entries = append(j.entries, e)
		j.seq = e.Seq
		j.bytesStored += uint64(dataLen)
	}
	return j, nil
}

// SaveFile writes the journal to path.
func (j *Journal) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	if _, err := j.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write journal: %w", err)
	}
	return f.Close()
}

// LoadFile reads a journal written by SaveFile.
func LoadFile(path string) (*Journal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()
	return ReadJournal(f)
}

func readAll(r io.Reader, values ...any) error {
	for _, v := range values {
		if err := binary.Read(r, binary.BigEndian, v); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
