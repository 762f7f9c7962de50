package board

import (
	"fmt"
	"strings"
)

// Position is one board state. It is never mutated after construction;
// Apply returns a new Position.
type Position struct {
	grid         [8][8]Slot // [file][rank]
	whiteToMove  bool
	castling     CastlingRights
	halfMove     int
	fullMove     int
	whiteInCheck bool
	blackInCheck bool
	whiteMoves   []Move // pseudo-legal, cached
	blackMoves   []Move // pseudo-legal, cached
}

// At returns the slot on sq. Off-board squares read as Empty.
func (p *Position) At(sq Square) Slot {
	if !sq.Valid() {
		return Empty
	}
	return p.grid[sq.File][sq.Rank]
}

func (p *Position) WhiteToMove() bool { return p.whiteToMove }

// SideToMove returns the side whose turn it is.
func (p *Position) SideToMove() Side {
	if p.whiteToMove {
		return White
	}
	return Black
}

func (p *Position) Castling() CastlingRights { return p.castling }
func (p *Position) HalfMoveClock() int       { return p.halfMove }
func (p *Position) FullMoveNumber() int      { return p.fullMove }

// InCheck reports whether side's king is attacked by a pseudo-legal move
// of the other side.
func (p *Position) InCheck(side Side) bool {
	if side == White {
		return p.whiteInCheck
	}
	return p.blackInCheck
}

// PseudoLegalMoves returns the cached pseudo-legal moves of side. The
// slice is shared; callers must not modify it.
func (p *Position) PseudoLegalMoves(side Side) []Move {
	if side == White {
		return p.whiteMoves
	}
	return p.blackMoves
}

// Apply plays m and returns the resulting position. No legality check is
// made: m must be pseudo-legal and consistent with the board.
func (p *Position) Apply(m Move) *Position {
	n := &Position{
		grid:        p.grid,
		whiteToMove: !p.whiteToMove,
		castling:    p.castling,
		halfMove:    p.halfMove + 1,
	}
	n.fullMove = n.halfMove/2 + 1

	piece := n.grid[m.From.File][m.From.Rank]
	n.grid[m.From.File][m.From.Rank] = Empty
	if m.Promotion == NoKind {
		n.grid[m.To.File][m.To.Rank] = piece
	} else {
		n.grid[m.To.File][m.To.Rank] = NewSlot(m.Promotion, piece.Side())
	}

	if piece.Kind() == King {
		n.castleRook(m, piece.Side())
	}
	n.castling &^= rightsTouched(m.From) | rightsTouched(m.To)

	n.refresh()
	return n
}

// castleRook relocates the rook when a king moves two files from its
// start square.
func (p *Position) castleRook(m Move, side Side) {
	home := int8(0)
	if side == Black {
		home = 7
	}
	if m.From != Sq(4, int(home)) || m.To.Rank != home {
		return
	}
	rook := NewSlot(Rook, side)
	switch m.To.File {
	case 6:
		p.grid[7][home] = Empty
		p.grid[5][home] = rook
	case 2:
		p.grid[0][home] = Empty
		p.grid[3][home] = rook
	}
}

// rightsTouched returns the castling rights lost when a piece leaves or
// lands on sq.
func rightsTouched(sq Square) CastlingRights {
	switch sq {
	case Sq(4, 0):
		return WhiteKingside | WhiteQueenside
	case Sq(7, 0):
		return WhiteKingside
	case Sq(0, 0):
		return WhiteQueenside
	case Sq(4, 7):
		return BlackKingside | BlackQueenside
	case Sq(7, 7):
		return BlackKingside
	case Sq(0, 7):
		return BlackQueenside
	}
	return NoCastling
}

// refresh recomputes both move caches and the in-check flags.
func (p *Position) refresh() {
	p.whiteMoves = p.generate(White)
	p.blackMoves = p.generate(Black)

	wk, wok := p.findKing(White)
	bk, bok := p.findKing(Black)
	p.whiteInCheck = wok && targets(p.blackMoves, wk)
	p.blackInCheck = bok && targets(p.whiteMoves, bk)
}

func targets(moves []Move, sq Square) bool {
	for _, m := range moves {
		if m.To == sq {
			return true
		}
	}
	return false
}

func (p *Position) findKing(side Side) (Square, bool) {
	want := NewSlot(King, side)
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			if p.grid[file][rank] == want {
				return Sq(file, rank), true
			}
		}
	}
	return Square{}, false
}

// LegalMoves returns the side to move's pseudo-legal moves that do not
// leave its own king in check. An empty result is checkmate when the side
// to move is in check and stalemate otherwise.
func (p *Position) LegalMoves() []Move {
	side := p.SideToMove()
	pseudo := p.PseudoLegalMoves(side)
	legal := make([]Move, 0, len(pseudo))
	for _, m := range pseudo {
		if !p.Apply(m).InCheck(side) {
			legal = append(legal, m)
		}
	}
	return legal
}

// IsLegal reports whether m is among LegalMoves. Generated moves never
// carry a promotion, so a promotion is accepted on any legal pawn move to
// the last rank.
func (p *Position) IsLegal(m Move) bool {
	if m.Promotion != NoKind {
		last := int8(7)
		if !p.whiteToMove {
			last = 0
		}
		if p.At(m.From).Kind() != Pawn || m.To.Rank != last {
			return false
		}
	}
	for _, lm := range p.LegalMoves() {
		if lm.From == m.From && lm.To == m.To {
			return true
		}
	}
	return false
}

// StaticScore is white material minus black material.
func (p *Position) StaticScore() float64 {
	var white, black float64
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			s := p.grid[file][rank]
			if s.IsEmpty() {
				continue
			}
			if s.Side() == White {
				white += s.Kind().weight()
			} else {
				black += s.Kind().weight()
			}
		}
	}
	return white - black
}

// Equal compares the fields that make up Identity: placement, side to
// move and castling rights. Move clocks are ignored.
func (p *Position) Equal(o *Position) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.grid == o.grid && p.whiteToMove == o.whiteToMove && p.castling == o.castling
}

// String renders a multi-line debug view.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteString("<Board>\n")
	fmt.Fprintf(&sb, "current turn:     %s\n", p.SideToMove())
	fmt.Fprintf(&sb, "white in check:   %t\n", p.whiteInCheck)
	fmt.Fprintf(&sb, "black in check:   %t\n", p.blackInCheck)
	fmt.Fprintf(&sb, "castling:         %s\n", p.castling)
	fmt.Fprintf(&sb, "board score:      %g\n", p.StaticScore())
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d ", rank+1)
		for file := 0; file < 8; file++ {
			c := p.grid[file][rank].Char()
			if c == ' ' {
				c = '.'
			}
			sb.WriteByte(c)
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  abcdefgh\n</Board>")
	return sb.String()
}
