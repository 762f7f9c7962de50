package store_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/cesac/internal/board"
	"github.com/freeeve/cesac/internal/graph"
	"github.com/freeeve/cesac/internal/search"
	"github.com/freeeve/cesac/internal/store"
)

func searchedGraph(t *testing.T) *graph.Manager {
	t.Helper()
	g := graph.New()
	s := search.NewSearcher(search.Config{Iterations: 1, Filter: search.NoFilter, Logger: zerolog.Nop()}, g)
	_, err := s.Run(context.Background(), board.StartPosition())
	require.NoError(t, err)
	return g
}

func assertSameGraph(t *testing.T, want, got *graph.Manager) {
	t.Helper()
	require.Equal(t, want.Len(), got.Len())
	require.Equal(t, want.EdgeCount(), got.EdgeCount())

	want.Each(func(_ graph.Handle, wn *graph.Node) {
		h, ok := got.Lookup(wn.ID)
		require.True(t, ok, "missing %016x", wn.ID)
		gn := got.Node(h)
		assert.Equal(t, wn.HasBest, gn.HasBest)
		assert.Equal(t, wn.BestMove, gn.BestMove)
		assert.Equal(t, wn.Score, gn.Score)
		assert.Equal(t, wn.Explored, gn.Explored)
		assert.Equal(t, wn.Terminal, gn.Terminal)
		assert.Len(t, gn.Children, len(wn.Children))
		assert.Len(t, gn.Parents, len(wn.Parents))
		assert.True(t, wn.Position.Equal(gn.Position))
	})
}

func TestSnapshot_RoundTrip(t *testing.T) {
	g := searchedGraph(t)

	var buf bytes.Buffer
	stats, err := store.WriteSnapshot(&buf, g)
	require.NoError(t, err)
	assert.Equal(t, g.Len(), stats.Nodes)
	assert.Equal(t, g.EdgeCount(), stats.Edges)

	snap, err := store.ReadSnapshot(&buf)
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, g.Len())
	assert.Len(t, snap.Edges, g.EdgeCount())

	restored := graph.New()
	require.NoError(t, snap.Restore(restored))
	assertSameGraph(t, g, restored)
}

func TestSnapshot_ResumeSearch(t *testing.T) {
	g := searchedGraph(t)
	var buf bytes.Buffer
	_, err := store.WriteSnapshot(&buf, g)
	require.NoError(t, err)

	snap, err := store.ReadSnapshot(&buf)
	require.NoError(t, err)

	e := search.NewEngine(search.EngineConfig{
		RetainGraph: true,
		Search:      search.Config{Filter: search.NoFilter, BatchSize: 3},
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, e.WithGraph(snap.Restore))

	res, err := e.BestMove(context.Background(), board.StartPosition(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Expanded)
	assert.Greater(t, res.Nodes, g.Len())
}

func TestSaveLoadFile(t *testing.T) {
	g := searchedGraph(t)
	path := filepath.Join(t.TempDir(), "graph.csv.zst")

	_, err := store.SaveFile(path, g)
	require.NoError(t, err)

	snap, err := store.LoadFile(path)
	require.NoError(t, err)

	restored := graph.New()
	require.NoError(t, snap.Restore(restored))
	assertSameGraph(t, g, restored)
}

func TestSaveLoadFile_AnyName(t *testing.T) {
	g := searchedGraph(t)
	for _, name := range []string{"graph.csv", "graph", "graph.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			_, err := store.SaveFile(path, g)
			require.NoError(t, err)

			snap, err := store.LoadFile(path)
			require.NoError(t, err)
			restored := graph.New()
			require.NoError(t, snap.Restore(restored))
			assertSameGraph(t, g, restored)
		})
	}
}

func TestLoadFile_Gzip(t *testing.T) {
	start := board.StartPosition()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("kind,id,fen,best,score,explored,terminal\n" +
		"node," + hex(start.Identity()) + "," + start.FEN() + ",,0,false,false\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	// the name says zstd; the content decides
	path := filepath.Join(t.TempDir(), "graph.csv.zst")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	snap, err := store.LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, 1)
}

func TestLoadFile_PlainCSV(t *testing.T) {
	start := board.StartPosition()
	id := start.Identity()
	child := start.Apply(board.MustParseMove("e2e4"))

	csv := "kind,id,fen,best,score,explored,terminal\n" +
		"node," + hex(id) + "," + start.FEN() + ",e2e4,0.5,true,false\n" +
		"node," + hex(child.Identity()) + "," + child.FEN() + ",,0.5,false,false\n" +
		"edge," + hex(id) + ",e2e4," + hex(child.Identity()) + "\n"
	path := filepath.Join(t.TempDir(), "graph.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	snap, err := store.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 2)
	require.Len(t, snap.Edges, 1)

	g := graph.New()
	require.NoError(t, snap.Restore(g))
	h, ok := g.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, "e2e4", g.Node(h).BestMove.String())
	assert.Equal(t, 0.5, g.Node(h).Score)
	assert.Len(t, g.Node(h).Children, 1)
}

func TestReadSnapshot_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"unknown kind", "kind,id,fen,best,score,explored,terminal\nvertex,0000000000000001\n"},
		{"short id", "kind,id,fen,best,score,explored,terminal\nedge,01,e2e4,0000000000000002\n"},
		{"bad score", "kind,id,fen,best,score,explored,terminal\nnode,0000000000000001,8/8/8/8/8/8/8/4K2k w - - 0 1,,x,false,false\n"},
		{"edge field count", "kind,id,fen,best,score,explored,terminal\nedge,0000000000000001,e2e4\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.csv), 0o644))
			_, err := store.LoadFile(path)
			assert.ErrorIs(t, err, store.ErrBadSnapshot)
		})
	}
}

func TestRestore_UnknownEdge(t *testing.T) {
	snap := &store.Snapshot{
		Edges: []store.EdgeRecord{{Parent: 1, Move: "e2e4", Child: 2}},
	}
	err := snap.Restore(graph.New())
	assert.ErrorIs(t, err, graph.ErrUnknownPosition)
}

func hex(id uint64) string {
	return fmt.Sprintf("%016x", id)
}
