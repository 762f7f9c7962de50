package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/cesac/internal/board"
)

func child(t *testing.T, g *Manager, parent Handle, move string) Handle {
	t.Helper()
	m := board.MustParseMove(move)
	pos := g.Node(parent).Position
	require.True(t, pos.IsLegal(m), "%s not legal", move)
	h, _ := g.GetOrCreate(pos.Apply(m))
	g.Link(parent, m, h)
	return h
}

func TestGetOrCreate(t *testing.T) {
	g := New()
	start := board.StartPosition()

	h, created := g.GetOrCreate(start)
	require.True(t, created)
	n := g.Node(h)
	assert.True(t, n.Valid)
	assert.False(t, n.HasBest)
	assert.False(t, n.Explored)
	assert.Equal(t, start.StaticScore(), n.Score)
	assert.Equal(t, start.Identity(), n.ID)

	same, err := board.ParseFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 12 30")
	require.NoError(t, err)
	h2, created := g.GetOrCreate(same)
	assert.False(t, created)
	assert.Equal(t, h, h2)
	assert.Equal(t, 1, g.Len())

	got, ok := g.Lookup(start.Identity())
	assert.True(t, ok)
	assert.Equal(t, h, got)

	_, ok = g.Lookup(start.Identity() ^ 1)
	assert.False(t, ok)
	assert.Nil(t, g.Node(NoHandle))
}

func TestLink_Deduplicates(t *testing.T) {
	g := New()
	root, _ := g.GetOrCreate(board.StartPosition())
	m := board.MustParseMove("e2e4")
	c, _ := g.GetOrCreate(board.StartPosition().Apply(m))

	assert.True(t, g.Link(root, m, c))
	assert.False(t, g.Link(root, m, c))
	assert.Equal(t, 1, g.EdgeCount())
	assert.Len(t, g.Node(root).Children, 1)
	assert.Len(t, g.Node(c).Parents, 1)
	assert.Equal(t, Edge{Move: m, Node: root}, g.Node(c).Parents[0])
}

func TestTransposition_SharesNode(t *testing.T) {
	g := New()
	root, _ := g.GetOrCreate(board.StartPosition())
	a := child(t, g, child(t, g, child(t, g, root, "g1f3"), "g8f6"), "b1c3")
	b := child(t, g, child(t, g, child(t, g, root, "b1c3"), "g8f6"), "g1f3")

	assert.Equal(t, a, b)
	assert.Len(t, g.Node(a).Parents, 2)
}

func TestUpdateScore_FirstReportAccepted(t *testing.T) {
	g := New()
	root, _ := g.GetOrCreate(board.StartPosition())
	e4 := child(t, g, root, "e2e4")

	g.UpdateScore(root, -2, board.MustParseMove("e2e4"))
	n := g.Node(root)
	assert.True(t, n.HasBest)
	assert.Equal(t, "e2e4", n.BestMove.String())
	assert.Equal(t, -2.0, n.Score)
	assert.False(t, g.Node(e4).HasBest)
}

func TestUpdateScore_SideToMoveSign(t *testing.T) {
	g := New()
	root, _ := g.GetOrCreate(board.StartPosition())
	e4 := child(t, g, root, "e2e4")
	e5 := child(t, g, e4, "e7e5")
	d5 := child(t, g, e4, "d7d5")

	// black minimizes
	g.Resolve(e5, 2)
	g.Resolve(d5, -1)
	n := g.Node(e4)
	assert.Equal(t, "d7d5", n.BestMove.String())
	assert.Equal(t, -1.0, n.Score)

	// a higher report does not tempt black
	g.UpdateScore(e4, 4, board.MustParseMove("e7e5"))
	assert.Equal(t, "d7d5", g.Node(e4).BestMove.String())
}

func TestUpdateScore_Supersede(t *testing.T) {
	g := New()
	root, _ := g.GetOrCreate(board.StartPosition())
	e4 := child(t, g, root, "e2e4")
	d4 := child(t, g, root, "d2d4")
	child(t, g, root, "g1f3")

	g.Resolve(e4, 1)
	assert.Equal(t, "e2e4", g.Node(root).BestMove.String())

	g.Resolve(d4, 2)
	n := g.Node(root)
	assert.Equal(t, "d2d4", n.BestMove.String())
	assert.Equal(t, 2.0, n.Score)

	t.Run("regression that stays best keeps the move", func(t *testing.T) {
		g.Node(d4).Score = 1.5
		g.UpdateScore(root, 1.5, board.MustParseMove("d2d4"))
		n := g.Node(root)
		assert.Equal(t, "d2d4", n.BestMove.String())
		assert.Equal(t, 1.5, n.Score)
	})

	t.Run("regression below a sibling switches move", func(t *testing.T) {
		g.Node(d4).Score = 0.5
		g.UpdateScore(root, 0.5, board.MustParseMove("d2d4"))
		n := g.Node(root)
		assert.Equal(t, "e2e4", n.BestMove.String())
		assert.Equal(t, 1.0, n.Score)
	})

	t.Run("tie keeps current best", func(t *testing.T) {
		g.Node(e4).Score = 0.5
		g.UpdateScore(root, 0.5, board.MustParseMove("e2e4"))
		n := g.Node(root)
		assert.Equal(t, "e2e4", n.BestMove.String())
		assert.Equal(t, 0.5, n.Score)
	})
}

func TestUpdateScore_RescanWithoutChildren(t *testing.T) {
	g := New()
	root, _ := g.GetOrCreate(board.StartPosition())
	g.UpdateScore(root, 3, board.MustParseMove("e2e4"))
	g.UpdateScore(root, 1, board.MustParseMove("e2e4"))

	n := g.Node(root)
	assert.False(t, n.HasBest)
	assert.Equal(t, 3.0, n.Score)
}

func TestUpdateScore_StaleRescanDoesNotPropagate(t *testing.T) {
	g := New()
	root, _ := g.GetOrCreate(board.StartPosition())
	e4 := child(t, g, root, "e2e4")
	e5 := child(t, g, e4, "e7e5")

	g.Resolve(e5, 7)
	assert.Equal(t, 7.0, g.Node(e4).Score)
	assert.Equal(t, 7.0, g.Node(root).Score)

	// black finds something better; root sees a worse report for its
	// best move and rescans
	d5 := child(t, g, e4, "d7d5")
	g.Resolve(d5, 3)
	assert.Equal(t, "d7d5", g.Node(e4).BestMove.String())
	assert.Equal(t, "e2e4", g.Node(root).BestMove.String())
	assert.Equal(t, 3.0, g.Node(root).Score)

	before := g.Stats().Propagations
	g.Node(e4).Score = 1
	g.UpdateScore(root, 1, board.MustParseMove("e2e4"))
	assert.Equal(t, before, g.Stats().Propagations)
}

func TestUpdateScore_PropagatesThroughAllParents(t *testing.T) {
	g := New()
	root, _ := g.GetOrCreate(board.StartPosition())
	nf3 := child(t, g, root, "g1f3")
	nc3 := child(t, g, root, "b1c3")
	a := child(t, g, nf3, "b8c6")
	b := child(t, g, nc3, "b8c6")
	shared := child(t, g, a, "b1c3")
	require.Equal(t, shared, child(t, g, b, "g1f3"))

	g.Resolve(shared, -4)
	assert.Equal(t, -4.0, g.Node(a).Score)
	assert.Equal(t, -4.0, g.Node(b).Score)
	assert.Equal(t, -4.0, g.Node(nf3).Score)
	assert.Equal(t, -4.0, g.Node(nc3).Score)
	assert.Equal(t, -4.0, g.Node(root).Score)
}

func TestUpdateScore_TranspositionRescansStaleBest(t *testing.T) {
	g := New()
	root, _ := g.GetOrCreate(board.StartPosition())
	nf3 := child(t, g, root, "g1f3")
	nc3 := child(t, g, root, "b1c3")
	a := child(t, g, nf3, "b8c6")
	b := child(t, g, nc3, "b8c6")
	shared := child(t, g, a, "b1c3")
	require.Equal(t, shared, child(t, g, b, "g1f3"))

	g.UpdateScore(nf3, 8, board.MustParseMove("b8c6"))
	g.UpdateScore(nc3, 9, board.MustParseMove("b8c6"))
	require.Equal(t, "b1c3", g.Node(root).BestMove.String())
	require.Equal(t, 9.0, g.Node(root).Score)

	// the root is reached first through g1f3 (not its best), then through
	// b1c3 whose score regressed
	g.Resolve(shared, -4)
	assert.Equal(t, -4.0, g.Node(nf3).Score)
	assert.Equal(t, -4.0, g.Node(nc3).Score)
	assert.Equal(t, "b1c3", g.Node(root).BestMove.String())
	assert.Equal(t, -4.0, g.Node(root).Score)
}

func TestUpdateScore_CycleTerminates(t *testing.T) {
	g := New()
	s := mustHandle(g.GetOrCreate(board.StartPosition()))
	s1 := child(t, g, s, "g1f3")
	s2 := child(t, g, s1, "g8f6")
	s3 := child(t, g, s2, "f3g1")
	back := child(t, g, s3, "f6g8")
	require.Equal(t, s, back, "knight shuffle should return to the start node")

	g.UpdateScore(s, 5, board.MustParseMove("g1f3"))

	for _, h := range []Handle{s, s1, s2, s3} {
		assert.True(t, g.Node(h).HasBest, "node %d", h)
		assert.Equal(t, 5.0, g.Node(h).Score, "node %d", h)
	}
	st := g.Stats()
	assert.Equal(t, 4, st.Propagations)
	assert.Equal(t, 3, st.MaxPropagateDepth)
}

func mustHandle(h Handle, _ bool) Handle { return h }

func TestResolve(t *testing.T) {
	g := New()
	mate, err := board.ParseFEN("rn1qkbnr/pbpp1Qpp/1p6/4p3/2B1P3/8/PPPP1PPP/RNB1K1NR b KQkq - 0 1")
	require.NoError(t, err)
	h, _ := g.GetOrCreate(mate)
	g.Resolve(h, 1000)

	n := g.Node(h)
	assert.True(t, n.Terminal)
	assert.True(t, n.Explored)
	assert.False(t, n.HasBest)
	assert.Equal(t, 1000.0, n.Score)

	// terminal scores are fixed
	g.UpdateScore(h, -5, board.MustParseMove("e8e7"))
	assert.Equal(t, 1000.0, g.Node(h).Score)

	st := g.Stats()
	assert.Equal(t, 1, st.Terminal)
	assert.Equal(t, 1, st.Explored)
}

func TestClear(t *testing.T) {
	g := New()
	root, _ := g.GetOrCreate(board.StartPosition())
	child(t, g, root, "e2e4")
	require.Equal(t, 2, g.Len())

	g.Clear()
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, 0, g.EdgeCount())
	_, ok := g.Lookup(board.StartPosition().Identity())
	assert.False(t, ok)
	assert.Equal(t, Stats{}, g.Stats())
}

func TestRestore(t *testing.T) {
	src := New()
	root, _ := src.GetOrCreate(board.StartPosition())
	e4 := child(t, src, root, "e2e4")
	src.Resolve(e4, 2)
	src.MarkExplored(root)

	dst := New()
	for _, h := range []Handle{root, e4} {
		_, err := dst.Restore(src.State(h))
		require.NoError(t, err)
	}
	require.NoError(t, dst.RestoreEdge(src.Node(root).ID, board.MustParseMove("e2e4"), src.Node(e4).ID))

	h, ok := dst.Lookup(src.Node(root).ID)
	require.True(t, ok)
	n := dst.Node(h)
	assert.True(t, n.Explored)
	assert.Equal(t, "e2e4", n.BestMove.String())
	assert.Equal(t, 2.0, n.Score)
	assert.Len(t, n.Children, 1)

	_, err := dst.Restore(src.State(root))
	assert.ErrorIs(t, err, ErrDuplicateNode)

	bad := src.State(root)
	bad.ID ^= 1
	_, err = New().Restore(bad)
	assert.ErrorIs(t, err, ErrIdentityMismatch)

	err = dst.RestoreEdge(42, board.MustParseMove("e2e4"), src.Node(e4).ID)
	assert.ErrorIs(t, err, ErrUnknownPosition)
}
