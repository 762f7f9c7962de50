// Package referee cross-checks the engine against independent
// implementations: the pgn library's move generator and an external UCI
// engine such as Stockfish.
package referee

import (
	"fmt"
	"sort"

	"github.com/freeeve/pgn/v3"

	"github.com/freeeve/cesac/internal/board"
)

// Audit is the difference between our legal moves and the reference
// generator's for one position.
type Audit struct {
	FEN string
	// Missing are reference moves we do not generate.
	Missing []string
	// Extra are moves we generate that the reference rejects.
	Extra []string
	// KnownGaps are reference moves outside the modelled rules: promotions
	// with a piece choice and en-passant captures.
	KnownGaps []string
	Ours      int
	Reference int
}

// OK reports whether the only differences are known gaps.
func (a Audit) OK() bool {
	return len(a.Missing) == 0 && len(a.Extra) == 0
}

// AuditFEN compares legal move generation for fen.
func AuditFEN(fen string) (Audit, error) {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return Audit{}, err
	}
	gs, err := pgn.NewGame(fen)
	if err != nil {
		return Audit{}, fmt.Errorf("reference parse %q: %w", fen, err)
	}
	return audit(pos, gs), nil
}

func audit(pos *board.Position, gs *pgn.GameState) Audit {
	ours := make(map[string]bool)
	for _, m := range pos.LegalMoves() {
		ours[m.String()] = true
	}

	ref := make(map[string]bool)
	promoSquares := make(map[string]bool)
	a := Audit{FEN: pos.FEN(), Ours: len(ours)}
	for _, mv := range pgn.GenerateLegalMoves(gs) {
		uci, promo := mvToUCI(mv)
		ref[uci] = true
		a.Reference++
		if promo {
			promoSquares[uci[:4]] = true
		}

		if ours[uci] {
			continue
		}
		// en passant is flagged 2 by the reference generator
		if promo || mv.Flags == 2 {
			a.KnownGaps = append(a.KnownGaps, uci)
			continue
		}
		a.Missing = append(a.Missing, uci)
	}

	for uci := range ours {
		if ref[uci] || promoSquares[uci] {
			continue
		}
		a.Extra = append(a.Extra, uci)
	}

	sort.Strings(a.Missing)
	sort.Strings(a.Extra)
	sort.Strings(a.KnownGaps)
	return a
}

// mvToUCI converts a reference move to long-algebraic notation and reports
// whether it carries a promotion.
func mvToUCI(mv pgn.Mv) (string, bool) {
	files := "abcdefgh"
	ranks := "12345678"

	uci := string(files[mv.From%8]) + string(ranks[mv.From/8]) +
		string(files[mv.To%8]) + string(ranks[mv.To/8])

	switch mv.Promo {
	case pgn.PromoQueen:
		return uci + "q", true
	case pgn.PromoRook:
		return uci + "r", true
	case pgn.PromoBishop:
		return uci + "b", true
	case pgn.PromoKnight:
		return uci + "n", true
	}
	return uci, false
}

// Perft counts leaf positions depth plies below fen with both generators.
func Perft(fen string, depth int) (ours, reference int, err error) {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return 0, 0, err
	}
	gs, err := pgn.NewGame(fen)
	if err != nil {
		return 0, 0, fmt.Errorf("reference parse %q: %w", fen, err)
	}
	return perft(pos, depth), refPerft(gs, depth), nil
}

func perft(p *board.Position, depth int) int {
	if depth == 0 {
		return 1
	}
	n := 0
	for _, m := range p.LegalMoves() {
		n += perft(p.Apply(m), depth-1)
	}
	return n
}

func refPerft(gs *pgn.GameState, depth int) int {
	if depth == 0 {
		return 1
	}
	n := 0
	for _, mv := range pgn.GenerateLegalMoves(gs) {
		child := gs.Pack().Unpack()
		if child == nil {
			continue
		}
		if err := pgn.ApplyMove(child, mv); err != nil {
			continue
		}
		n += refPerft(child, depth-1)
	}
	return n
}
