// Package eco names opening positions from ECO (Encyclopedia of Chess
// Openings) tables.
package eco

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/freeeve/pgn/v3"

	"github.com/freeeve/cesac/internal/board"
)

// Opening is one ECO classification.
type Opening struct {
	ECO  string `json:"eco"`
	Name string `json:"name"`
}

// Book maps position identities to openings. A Book is read-only once
// loaded and safe for concurrent lookups.
type Book struct {
	byID    map[uint64]Opening
	skipped int
}

func NewBook() *Book {
	return &Book{byID: make(map[uint64]Opening)}
}

// moveNumberRegex matches move numbers like "1." or "12..."
var moveNumberRegex = regexp.MustCompile(`\d+\.+\s*`)

// LoadDir loads every .tsv file in dir.
func (b *Book) LoadDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.tsv"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .tsv files found in %s", dir)
	}
	for _, file := range files {
		if err := b.LoadFile(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

func (b *Book) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return b.Load(f)
}

// Load reads "eco<TAB>name<TAB>moves" rows. The header row is optional;
// rows whose moves do not replay are counted in Skipped.
func (b *Book) Load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			if strings.HasPrefix(line, "eco\t") {
				continue
			}
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}

		pos, err := replay(parts[2])
		if err != nil {
			b.skipped++
			continue
		}
		b.byID[pos.Identity()] = Opening{ECO: parts[0], Name: parts[1]}
	}
	return scanner.Err()
}

// replay plays SAN moves like "1. e4 e5 2. Nf3 Nc6" from the start
// position. SAN is resolved by the pgn library and the final placement is
// read back through FEN.
func replay(moves string) (*board.Position, error) {
	gs := pgn.NewStartingPosition()
	cleaned := moveNumberRegex.ReplaceAllString(moves, "")
	for _, san := range strings.Fields(cleaned) {
		if san[0] == '$' || san[0] == '{' {
			continue
		}
		san = strings.TrimRight(san, "+#")

		mv, err := pgn.ParseSAN(gs, san)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", san, err)
		}
		if err := pgn.ApplyMove(gs, mv); err != nil {
			return nil, fmt.Errorf("apply %q: %w", san, err)
		}
	}
	return board.ParseFEN(gs.ToFEN())
}

// Lookup returns the opening reached at pos, or nil.
func (b *Book) Lookup(pos *board.Position) *Opening {
	if b == nil {
		return nil
	}
	if o, ok := b.byID[pos.Identity()]; ok {
		return &o
	}
	return nil
}

// Count returns the number of distinct positions named.
func (b *Book) Count() int { return len(b.byID) }

// Skipped returns how many rows could not be replayed.
func (b *Book) Skipped() int { return b.skipped }
