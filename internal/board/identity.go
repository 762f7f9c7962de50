package board

// Zobrist keys, generated once from a fixed seed so identities are stable
// across processes and snapshot files.
var (
	zobristPiece     [2][6][8][8]uint64 // [side][kind index][file][rank]
	zobristCastling  [16]uint64
	zobristWhiteMove uint64
)

func init() {
	rng := xorshift{state: 0x98F107A2BEEF1234}
	for s := 0; s < 2; s++ {
		for k := 0; k < 6; k++ {
			for f := 0; f < 8; f++ {
				for r := 0; r < 8; r++ {
					zobristPiece[s][k][f][r] = rng.next()
				}
			}
		}
	}
	for i := range zobristCastling {
		zobristCastling[i] = rng.next()
	}
	zobristWhiteMove = rng.next()
}

// xorshift64*
type xorshift struct {
	state uint64
}

func (x *xorshift) next() uint64 {
	x.state ^= x.state >> 12
	x.state ^= x.state << 25
	x.state ^= x.state >> 27
	return x.state * 0x2545F4914F6CDD1D
}

func kindIndex(k Kind) int {
	switch k {
	case Pawn:
		return 0
	case Rook:
		return 1
	case Knight:
		return 2
	case Bishop:
		return 3
	case King:
		return 4
	default:
		return 5
	}
}

// Identity is the 64-bit hash of placement, side to move and castling
// rights. Positions that are Equal always share an identity; distinct
// positions that collide are treated as the same graph node.
func (p *Position) Identity() uint64 {
	var h uint64
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			s := p.grid[file][rank]
			if s.IsEmpty() {
				continue
			}
			side := 0
			if s.Side() == White {
				side = 1
			}
			h ^= zobristPiece[side][kindIndex(s.Kind())][file][rank]
		}
	}
	h ^= zobristCastling[p.castling&AllCastling]
	if p.whiteToMove {
		h ^= zobristWhiteMove
	}
	return h
}
