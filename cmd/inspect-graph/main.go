package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/freeeve/cesac/internal/board"
	"github.com/freeeve/cesac/internal/graph"
	"github.com/freeeve/cesac/internal/store"
)

func main() {
	var (
		snapshotPath = flag.String("snapshot", "graph.csv.zst", "snapshot file (.csv.zst, .csv.gz or .csv)")
		outputPath   = flag.String("output", "", "export one CSV row per node here (empty = summary only)")
		rootFEN      = flag.String("root", "", "print the best line from this position")
		maxLine      = flag.Int("max-line", 20, "longest best line to print")
	)
	flag.Parse()

	fmt.Printf("Loading snapshot: %s\n", *snapshotPath)
	snap, err := store.LoadFile(*snapshotPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load snapshot: %v\n", err)
		os.Exit(1)
	}

	g := graph.New()
	if err := snap.Restore(g); err != nil {
		fmt.Fprintf(os.Stderr, "restore graph: %v\n", err)
		os.Exit(1)
	}

	stats := g.Stats()
	fmt.Printf("Nodes: %d  edges: %d  explored: %d  terminal: %d\n",
		stats.Nodes, stats.Edges, stats.Explored, stats.Terminal)

	if *rootFEN != "" {
		line, err := bestLine(g, *rootFEN, *maxLine)
		if err != nil {
			fmt.Fprintf(os.Stderr, "best line: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Best line: %s\n", line)
	}

	if *outputPath == "" {
		return
	}

	outFile, err := os.Create(*outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output file: %v\n", err)
		os.Exit(1)
	}
	defer outFile.Close()

	writer := csv.NewWriter(outFile)
	if err := writer.Write([]string{"fen", "id", "best", "score", "explored", "terminal", "parents", "children"}); err != nil {
		fmt.Fprintf(os.Stderr, "write header: %v\n", err)
		os.Exit(1)
	}

	var rows int
	g.Each(func(_ graph.Handle, n *graph.Node) {
		best := ""
		if n.HasBest {
			best = n.BestMove.String()
		}
		row := []string{
			n.Position.FEN(),
			fmt.Sprintf("%016x", n.ID),
			best,
			strconv.FormatFloat(n.Score, 'g', -1, 64),
			strconv.FormatBool(n.Explored),
			strconv.FormatBool(n.Terminal),
			strconv.Itoa(len(n.Parents)),
			strconv.Itoa(len(n.Children)),
		}
		if err := writer.Write(row); err == nil {
			rows++
		}
	})

	writer.Flush()
	if err := writer.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "csv writer error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exported %d nodes to %s\n", rows, *outputPath)
}

// bestLine follows best moves from fen until a node without one, a repeated
// node or limit moves.
func bestLine(g *graph.Manager, fen string, limit int) (string, error) {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return "", err
	}
	h, ok := g.Lookup(pos.Identity())
	if !ok {
		return "", fmt.Errorf("%w: %s", graph.ErrUnknownPosition, fen)
	}

	score := g.Node(h).Score
	var moves []string
	seen := map[graph.Handle]bool{}
	for len(moves) < limit && !seen[h] {
		seen[h] = true
		n := g.Node(h)
		if !n.HasBest {
			break
		}
		moves = append(moves, n.BestMove.String())
		next := graph.NoHandle
		for _, e := range n.Children {
			if e.Move == n.BestMove {
				next = e.Node
				break
			}
		}
		if next == graph.NoHandle {
			break
		}
		h = next
	}
	if len(moves) == 0 {
		return "(none)", nil
	}
	return strings.Join(moves, " ") + fmt.Sprintf("  [%g]", score), nil
}
