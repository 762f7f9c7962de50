package board

import (
	"errors"
	"fmt"
)

// ErrMalformedMove is returned when long-algebraic notation cannot be parsed.
var ErrMalformedMove = errors.New("malformed move")

// Square is a (file, rank) pair, both 0..7. a1 is {0, 0}.
type Square struct {
	File int8
	Rank int8
}

// Sq builds a square from file and rank indices.
func Sq(file, rank int) Square {
	return Square{File: int8(file), Rank: int8(rank)}
}

// Valid reports whether the square lies on the board.
func (s Square) Valid() bool {
	return s.File >= 0 && s.File <= 7 && s.Rank >= 0 && s.Rank <= 7
}

// Offset returns the square shifted by (df, dr). The result may be off board.
func (s Square) Offset(df, dr int) Square {
	return Square{File: s.File + int8(df), Rank: s.Rank + int8(dr)}
}

func (s Square) String() string {
	if !s.Valid() {
		return "--"
	}
	return string([]byte{byte('a' + s.File), byte('1' + s.Rank)})
}

// ParseSquare parses a two-character square name such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return Square{}, fmt.Errorf("%w: square %q", ErrMalformedMove, s)
	}
	sq := Square{File: int8(s[0]) - 'a', Rank: int8(s[1]) - '1'}
	if s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return Square{}, fmt.Errorf("%w: square %q", ErrMalformedMove, s)
	}
	return sq, nil
}

// Move is a from/to pair with an optional promotion kind. Promotion never
// carries a side bit; the mover's side is applied when the move is played.
type Move struct {
	From      Square
	To        Square
	Promotion Kind
}

// NewMove builds a move without promotion.
func NewMove(from, to Square) Move {
	return Move{From: from, To: to}
}

// IsZero reports whether m is the zero Move (a1a1), which never denotes a real move.
func (m Move) IsZero() bool {
	return m == Move{}
}

// String returns long-algebraic notation, e.g. "e2e4" or "e7e8q".
func (m Move) String() string {
	s := m.From.String() + m.To.String()
	if c, ok := kindChars[m.Promotion]; ok && m.Promotion != King && m.Promotion != Pawn {
		s += string(c)
	}
	return s
}

// ParseMove parses long-algebraic notation: file, rank, file, rank and an
// optional promotion letter (q, r, b, n).
func ParseMove(s string) (Move, error) {
	if len(s) < 4 {
		return Move{}, fmt.Errorf("%w: %q too short", ErrMalformedMove, s)
	}
	if len(s) > 5 {
		return Move{}, fmt.Errorf("%w: %q too long", ErrMalformedMove, s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("%w: invalid from square in %q", ErrMalformedMove, s)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("%w: invalid to square in %q", ErrMalformedMove, s)
	}
	if from == to {
		return Move{}, fmt.Errorf("%w: %q does not move", ErrMalformedMove, s)
	}

	m := Move{From: from, To: to}
	if len(s) == 5 {
		switch s[4] {
		case 'q', 'Q':
			m.Promotion = Queen
		case 'r', 'R':
			m.Promotion = Rook
		case 'b', 'B':
			m.Promotion = Bishop
		case 'n', 'N':
			m.Promotion = Knight
		default:
			return Move{}, fmt.Errorf("%w: invalid promotion piece %q", ErrMalformedMove, s[4])
		}
	}
	return m, nil
}

// MustParseMove is ParseMove for literals known to be valid.
func MustParseMove(s string) Move {
	m, err := ParseMove(s)
	if err != nil {
		panic(err)
	}
	return m
}
