package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformedBoard is returned when the piece placement field does not
	// describe exactly 8 ranks of 8 squares.
	ErrMalformedBoard = errors.New("malformed board")
	// ErrMalformedClock is returned when a move clock is not an integer.
	ErrMalformedClock = errors.New("malformed clock")
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// CastlingRights holds the four castling flags.
type CastlingRights uint8

const (
	WhiteKingside CastlingRights = 1 << iota
	WhiteQueenside
	BlackKingside
	BlackQueenside

	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingside | WhiteQueenside | BlackKingside | BlackQueenside
)

// Has reports whether every flag in f is set.
func (c CastlingRights) Has(f CastlingRights) bool { return c&f == f }

// String renders the rights in FEN form.
func (c CastlingRights) String() string {
	var sb strings.Builder
	if c.Has(WhiteKingside) {
		sb.WriteByte('K')
	}
	if c.Has(WhiteQueenside) {
		sb.WriteByte('Q')
	}
	if c.Has(BlackKingside) {
		sb.WriteByte('k')
	}
	if c.Has(BlackQueenside) {
		sb.WriteByte('q')
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}

// ParseCastling decodes a FEN castling token. Characters other than KQkq are ignored.
func ParseCastling(s string) CastlingRights {
	var c CastlingRights
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'K':
			c |= WhiteKingside
		case 'Q':
			c |= WhiteQueenside
		case 'k':
			c |= BlackKingside
		case 'q':
			c |= BlackQueenside
		}
	}
	return c
}

// FromFEN builds a position from the six FEN fields. The side token "w"
// means white to move, anything else black. The en-passant field is
// accepted but not modelled.
func FromFEN(ranks, side, castling, _, halfmove, fullmove string) (*Position, error) {
	grid, err := parsePlacement(ranks)
	if err != nil {
		return nil, err
	}

	half, err := strconv.Atoi(halfmove)
	if err != nil {
		return nil, fmt.Errorf("%w: half-move clock %q", ErrMalformedClock, halfmove)
	}
	full, err := strconv.Atoi(fullmove)
	if err != nil {
		return nil, fmt.Errorf("%w: full-move number %q", ErrMalformedClock, fullmove)
	}
	p := &Position{
		grid:        grid,
		whiteToMove: side == "w",
		castling:    ParseCastling(castling),
		halfMove:    half,
		fullMove:    full,
	}
	p.refresh()
	return p, nil
}

// ParseFEN parses a whitespace-separated FEN string. Missing clock fields
// default to "0 1"; fewer than four fields is a malformed board.
func ParseFEN(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return nil, fmt.Errorf("%w: expected 6 fields, got %d", ErrMalformedBoard, len(fields))
	}
	if len(fields) > 6 {
		return nil, fmt.Errorf("%w: expected 6 fields, got %d", ErrMalformedBoard, len(fields))
	}
	for len(fields) < 6 {
		if len(fields) == 4 {
			fields = append(fields, "0")
		} else {
			fields = append(fields, "1")
		}
	}
	return FromFEN(fields[0], fields[1], fields[2], fields[3], fields[4], fields[5])
}

// StartPosition returns the standard initial position.
func StartPosition() *Position {
	p, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return p
}

func parsePlacement(s string) ([8][8]Slot, error) {
	var grid [8][8]Slot

	ranks := strings.Split(s, "/")
	if len(ranks) != 8 {
		return grid, fmt.Errorf("%w: %d ranks", ErrMalformedBoard, len(ranks))
	}

	// FEN lists rank 8 first
	for i, row := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c >= '0' && c <= '9' {
				file += int(c - '0')
				continue
			}
			if file < 8 {
				grid[file][rank] = SlotFromChar(c)
			}
			file++
		}
		if file != 8 {
			return grid, fmt.Errorf("%w: rank %d has %d squares", ErrMalformedBoard, rank+1, file)
		}
	}
	return grid, nil
}

// BoardString serialises only the piece placement field.
func (p *Position) BoardString() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			s := p.grid[file][rank]
			if s.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(s.Char())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// FEN serialises the position. En passant is always "-".
func (p *Position) FEN() string {
	side := "b"
	if p.whiteToMove {
		side = "w"
	}
	return fmt.Sprintf("%s %s %s - %d %d", p.BoardString(), side, p.castling, p.halfMove, p.fullMove)
}
