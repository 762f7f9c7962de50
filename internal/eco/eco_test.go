package eco_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/freeeve/cesac/internal/board"
	"github.com/freeeve/cesac/internal/eco"
)

const table = "eco\tname\tpgn\n" +
	"B00\tKing's Pawn Game\t1. e4\n" +
	"C50\tItalian Game\t1. e4 e5 2. Nf3 Nc6 3. Bc4\n" +
	"C60\tRuy Lopez\t1. e4 e5 2. Nf3 Nc6 3. Bb5\n" +
	"X99\tBroken\t1. e5\n" +
	"short row\n"

func play(t *testing.T, moves ...string) *board.Position {
	t.Helper()
	pos := board.StartPosition()
	for _, s := range moves {
		pos = pos.Apply(board.MustParseMove(s))
	}
	return pos
}

func TestLoadAndLookup(t *testing.T) {
	book := eco.NewBook()
	if err := book.Load(strings.NewReader(table)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if book.Count() != 3 {
		t.Errorf("Count = %d, want 3", book.Count())
	}
	if book.Skipped() != 1 {
		t.Errorf("Skipped = %d, want 1", book.Skipped())
	}

	tests := []struct {
		name  string
		moves []string
		want  string
	}{
		{"start", nil, ""},
		{"king's pawn", []string{"e2e4"}, "B00"},
		{"italian", []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1c4"}, "C50"},
		{"ruy lopez", []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5"}, "C60"},
		{"transposed italian", []string{"e2e4", "b8c6", "g1f3", "e7e5", "f1c4"}, "C50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := book.Lookup(play(t, tt.moves...))
			if tt.want == "" {
				if o != nil {
					t.Errorf("Lookup = %+v, want nil", o)
				}
				return
			}
			if o == nil || o.ECO != tt.want {
				t.Errorf("Lookup = %+v, want %s", o, tt.want)
			}
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.tsv"), []byte(table), 0o644); err != nil {
		t.Fatal(err)
	}
	book := eco.NewBook()
	if err := book.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if book.Count() != 3 {
		t.Errorf("Count = %d, want 3", book.Count())
	}

	if err := eco.NewBook().LoadDir(t.TempDir()); err == nil {
		t.Error("expected error for empty dir")
	}
}

func TestLookup_NilBook(t *testing.T) {
	var book *eco.Book
	if o := book.Lookup(board.StartPosition()); o != nil {
		t.Errorf("Lookup on nil book = %+v", o)
	}
}
