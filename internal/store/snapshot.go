// Package store persists the transposition graph as zstd-compressed CSV
// snapshots so a session can resume from an earlier search.
package store

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/klauspost/compress/zstd"

	"github.com/freeeve/cesac/internal/board"
	"github.com/freeeve/cesac/internal/graph"
)

// ErrBadSnapshot is returned for rows that cannot be decoded.
var ErrBadSnapshot = errors.New("bad snapshot")

const (
	kindNode = "node"
	kindEdge = "edge"
)

var header = []string{"kind", "id", "fen", "best", "score", "explored", "terminal"}

// NodeRecord is one decoded node row.
type NodeRecord struct {
	ID       uint64
	FEN      string
	Best     string // empty when the node has no best move
	Score    float64
	Explored bool
	Terminal bool
}

// EdgeRecord is one decoded edge row.
type EdgeRecord struct {
	Parent uint64
	Move   string
	Child  uint64
}

// Snapshot is a decoded snapshot, not yet loaded into a graph.
type Snapshot struct {
	Nodes []NodeRecord
	Edges []EdgeRecord
}

// SnapshotStats counts what was written.
type SnapshotStats struct {
	Nodes int
	Edges int
}

// WriteSnapshot writes every node and edge of g to w as zstd-compressed CSV.
// Node rows come first so a reader can restore edges in a single pass.
func WriteSnapshot(w io.Writer, g *graph.Manager) (SnapshotStats, error) {
	var stats SnapshotStats

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return stats, fmt.Errorf("create zstd encoder: %w", err)
	}
	cw := csv.NewWriter(zw)

	if err := cw.Write(header); err != nil {
		zw.Close()
		return stats, err
	}

	var werr error
	g.Each(func(h graph.Handle, n *graph.Node) {
		if werr != nil {
			return
		}
		best := ""
		if n.HasBest {
			best = n.BestMove.String()
		}
		werr = cw.Write([]string{
			kindNode,
			formatID(n.ID),
			n.Position.FEN(),
			best,
			strconv.FormatFloat(n.Score, 'g', -1, 64),
			strconv.FormatBool(n.Explored),
			strconv.FormatBool(n.Terminal),
		})
		stats.Nodes++
	})
	g.Each(func(h graph.Handle, n *graph.Node) {
		for _, e := range n.Children {
			if werr != nil {
				return
			}
			werr = cw.Write([]string{kindEdge, formatID(n.ID), e.Move.String(), formatID(g.Node(e.Node).ID)})
			stats.Edges++
		}
	})
	if werr != nil {
		zw.Close()
		return stats, fmt.Errorf("write row: %w", werr)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		zw.Close()
		return stats, fmt.Errorf("flush csv: %w", err)
	}
	if err := zw.Close(); err != nil {
		return stats, fmt.Errorf("close zstd: %w", err)
	}
	return stats, nil
}

// ReadSnapshot decodes a zstd-compressed snapshot.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer zr.Close()
	return readCSV(zr)
}

func readCSV(r io.Reader) (*Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return &Snapshot{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	s := &Snapshot{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		switch row[0] {
		case kindNode:
			rec, err := parseNode(row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", line, err)
			}
			s.Nodes = append(s.Nodes, rec)
		case kindEdge:
			rec, err := parseEdge(row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", line, err)
			}
			s.Edges = append(s.Edges, rec)
		default:
			return nil, fmt.Errorf("%w: row %d has kind %q", ErrBadSnapshot, line, row[0])
		}
	}
	return s, nil
}

func parseNode(row []string) (NodeRecord, error) {
	if len(row) != len(header) {
		return NodeRecord{}, fmt.Errorf("%w: node row has %d fields", ErrBadSnapshot, len(row))
	}
	id, err := parseID(row[1])
	if err != nil {
		return NodeRecord{}, err
	}
	score, err := strconv.ParseFloat(row[4], 64)
	if err != nil {
		return NodeRecord{}, fmt.Errorf("%w: score %q", ErrBadSnapshot, row[4])
	}
	explored, err := strconv.ParseBool(row[5])
	if err != nil {
		return NodeRecord{}, fmt.Errorf("%w: explored %q", ErrBadSnapshot, row[5])
	}
	terminal, err := strconv.ParseBool(row[6])
	if err != nil {
		return NodeRecord{}, fmt.Errorf("%w: terminal %q", ErrBadSnapshot, row[6])
	}
	return NodeRecord{
		ID:       id,
		FEN:      row[2],
		Best:     row[3],
		Score:    score,
		Explored: explored,
		Terminal: terminal,
	}, nil
}

func parseEdge(row []string) (EdgeRecord, error) {
	if len(row) != 4 {
		return EdgeRecord{}, fmt.Errorf("%w: edge row has %d fields", ErrBadSnapshot, len(row))
	}
	parent, err := parseID(row[1])
	if err != nil {
		return EdgeRecord{}, err
	}
	child, err := parseID(row[3])
	if err != nil {
		return EdgeRecord{}, err
	}
	return EdgeRecord{Parent: parent, Move: row[2], Child: child}, nil
}

// Restore loads the snapshot into g, which should be empty.
func (s *Snapshot) Restore(g *graph.Manager) error {
	for _, n := range s.Nodes {
		pos, err := board.ParseFEN(n.FEN)
		if err != nil {
			return fmt.Errorf("node %s: %w", formatID(n.ID), err)
		}
		st := graph.NodeState{
			ID:       n.ID,
			Position: pos,
			Score:    n.Score,
			Explored: n.Explored,
			Terminal: n.Terminal,
		}
		if n.Best != "" {
			m, err := board.ParseMove(n.Best)
			if err != nil {
				return fmt.Errorf("node %s: %w", formatID(n.ID), err)
			}
			st.BestMove = m
			st.HasBest = true
		}
		if _, err := g.Restore(st); err != nil {
			return err
		}
	}
	for _, e := range s.Edges {
		m, err := board.ParseMove(e.Move)
		if err != nil {
			return fmt.Errorf("edge %s: %w", formatID(e.Parent), err)
		}
		if err := g.RestoreEdge(e.Parent, m, e.Child); err != nil {
			return err
		}
	}
	return nil
}

// SaveFile writes a snapshot of g to path.
func SaveFile(path string, g *graph.Manager) (SnapshotStats, error) {
	f, err := os.Create(path)
	if err != nil {
		return SnapshotStats{}, err
	}
	stats, err := WriteSnapshot(f, g)
	if err != nil {
		f.Close()
		return stats, err
	}
	return stats, f.Close()
}

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic = []byte{0x1f, 0x8b}
)

// LoadFile reads a snapshot from path. The encoding is taken from the
// leading bytes, not the name: zstd and gzip streams are decompressed,
// anything else is read as plain CSV.
func LoadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, _ := br.Peek(len(zstdMagic))
	switch {
	case bytes.HasPrefix(head, zstdMagic):
		return ReadSnapshot(br)
	case bytes.HasPrefix(head, gzipMagic):
		gr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		return readCSV(gr)
	default:
		return readCSV(br)
	}
}

func formatID(id uint64) string {
	return fmt.Sprintf("%016x", id)
}

func parseID(s string) (uint64, error) {
	if len(s) != 16 {
		return 0, fmt.Errorf("%w: id %q", ErrBadSnapshot, s)
	}
	id, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q", ErrBadSnapshot, s)
	}
	return id, nil
}
