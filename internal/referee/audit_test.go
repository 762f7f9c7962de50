package referee

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/cesac/internal/board"
)

func TestAuditFEN(t *testing.T) {
	tests := []struct {
		name      string
		fen       string
		ours      int
		knownGaps int
	}{
		{"start", board.StartFEN, 20, 0},
		{"castling", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", 26, 0},
		{"promotion", "8/4P3/8/8/8/8/k7/4K3 w - - 0 1", 6, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := AuditFEN(tt.fen)
			require.NoError(t, err)
			assert.True(t, a.OK(), "missing %v extra %v", a.Missing, a.Extra)
			assert.Equal(t, tt.ours, a.Ours)
			assert.Len(t, a.KnownGaps, tt.knownGaps)
		})
	}
}

func TestAuditFEN_BadFEN(t *testing.T) {
	_, err := AuditFEN("8/8/8 w - - 0 1")
	assert.ErrorIs(t, err, board.ErrMalformedBoard)
}

func TestPerft(t *testing.T) {
	ours, ref, err := Perft(board.StartFEN, 2)
	require.NoError(t, err)
	assert.Equal(t, 400, ours)
	assert.Equal(t, ref, ours)
}

func TestCompare(t *testing.T) {
	path := os.Getenv("STOCKFISH_PATH")
	if path == "" {
		t.Skip("STOCKFISH_PATH not set")
	}
	cmp, err := Compare(context.Background(), CompareConfig{
		StockfishPath: path,
		Depth:         8,
		Iterations:    2,
		Logger:        zerolog.Nop(),
	}, "k7/7Q/1K6/8/8/8/8/8 w - - 0 1")
	require.NoError(t, err)
	assert.NotEmpty(t, cmp.Reference)
	assert.NotEmpty(t, cmp.Ours)
	assert.True(t, cmp.RefMate)
}

func TestCompare_NoPath(t *testing.T) {
	_, err := Compare(context.Background(), CompareConfig{}, board.StartFEN)
	assert.Error(t, err)
}
