// Package board implements the chess position model: board encoding, FEN
// parsing, move application, pseudo-legal move generation, legality
// filtering, material scoring and position identity hashing.
package board

// Kind is a piece kind. Each kind occupies its own bit so a Slot can be
// tested with a mask.
type Kind uint8

const (
	NoKind Kind = 0
	Pawn   Kind = 1
	Rook   Kind = 2
	Knight Kind = 4
	Bishop Kind = 8
	King   Kind = 16
	Queen  Kind = 32
)

// Side is the colour bit of a Slot.
type Side uint8

const (
	Black Side = 0
	White Side = 128
)

const (
	kindMask uint8 = 127
	sideMask uint8 = 128
)

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == White {
		return Black
	}
	return White
}

func (s Side) String() string {
	if s == White {
		return "white"
	}
	return "black"
}

// Slot is the content of one square: Empty, or a kind bit plus the side bit.
type Slot uint8

// Empty is the slot of an unoccupied square.
const Empty Slot = 0

// NewSlot combines a kind and a side.
func NewSlot(k Kind, s Side) Slot {
	return Slot(uint8(k)&kindMask | uint8(s)&sideMask)
}

func (s Slot) Kind() Kind { return Kind(uint8(s) & kindMask) }
func (s Slot) Side() Side { return Side(uint8(s) & sideMask) }

// IsEmpty reports whether no piece occupies the slot.
func (s Slot) IsEmpty() bool { return s.Kind() == NoKind }

// Owned reports whether the slot holds a piece of the given side.
func (s Slot) Owned(side Side) bool {
	return !s.IsEmpty() && s.Side() == side
}

var kindChars = map[Kind]byte{
	Pawn:   'p',
	Rook:   'r',
	Knight: 'n',
	Bishop: 'b',
	King:   'k',
	Queen:  'q',
}

// Char returns the FEN letter for the slot (upper case for white) or ' '
// for an empty square.
func (s Slot) Char() byte {
	c, ok := kindChars[s.Kind()]
	if !ok {
		return ' '
	}
	if s.Side() == White {
		return c - 'a' + 'A'
	}
	return c
}

// SlotFromChar decodes a FEN piece letter. Unknown letters decode to Empty.
func SlotFromChar(c byte) Slot {
	side := Black
	if c >= 'A' && c <= 'Z' {
		side = White
		c = c - 'A' + 'a'
	}
	k := KindFromChar(c)
	if k == NoKind {
		return Empty
	}
	return NewSlot(k, side)
}

// KindFromChar decodes a lower-case piece letter into a Kind without a side.
func KindFromChar(c byte) Kind {
	for k, ch := range kindChars {
		if ch == c {
			return k
		}
	}
	return NoKind
}

// weight is the material value used by StaticScore.
func (k Kind) weight() float64 {
	switch k {
	case Pawn:
		return 1
	case Knight:
		return 3
	case Bishop:
		return 2.5
	case Rook:
		return 3.5
	case Queen:
		return 6
	default:
		return 0
	}
}
