package board

var (
	knightOffsets = [8][2]int{{-1, 2}, {1, 2}, {-1, -2}, {1, -2}, {2, 1}, {2, -1}, {-2, 1}, {-2, -1}}
	kingOffsets   = [8][2]int{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}
	rookRays      = [4][2]int{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
	bishopRays    = [4][2]int{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}}
	queenRays     = [8][2]int{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}
)

// generate returns every pseudo-legal move for side.
func (p *Position) generate(side Side) []Move {
	moves := make([]Move, 0, 48)
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			s := p.grid[file][rank]
			if !s.Owned(side) {
				continue
			}
			from := Sq(file, rank)
			switch s.Kind() {
			case Pawn:
				moves = p.pawnMoves(moves, from, side)
			case Knight:
				moves = p.stepMoves(moves, from, side, knightOffsets[:])
			case King:
				moves = p.stepMoves(moves, from, side, kingOffsets[:])
				moves = p.castleMoves(moves, from, side)
			case Rook:
				moves = p.rayMoves(moves, from, side, rookRays[:])
			case Bishop:
				moves = p.rayMoves(moves, from, side, bishopRays[:])
			case Queen:
				moves = p.rayMoves(moves, from, side, queenRays[:])
			}
		}
	}
	return moves
}

func (p *Position) pawnMoves(moves []Move, from Square, side Side) []Move {
	dir, start := 1, int8(1)
	if side == Black {
		dir, start = -1, 6
	}

	one := from.Offset(0, dir)
	if one.Valid() && p.At(one).IsEmpty() {
		moves = append(moves, NewMove(from, one))
		two := from.Offset(0, 2*dir)
		if from.Rank == start && p.At(two).IsEmpty() {
			moves = append(moves, NewMove(from, two))
		}
	}

	for _, df := range [2]int{-1, 1} {
		to := from.Offset(df, dir)
		if to.Valid() && p.At(to).Owned(side.Other()) {
			moves = append(moves, NewMove(from, to))
		}
	}
	return moves
}

func (p *Position) stepMoves(moves []Move, from Square, side Side, offsets [][2]int) []Move {
	for _, o := range offsets {
		to := from.Offset(o[0], o[1])
		if to.Valid() && !p.At(to).Owned(side) {
			moves = append(moves, NewMove(from, to))
		}
	}
	return moves
}

func (p *Position) rayMoves(moves []Move, from Square, side Side, rays [][2]int) []Move {
	for _, r := range rays {
		to := from.Offset(r[0], r[1])
		for to.Valid() {
			s := p.At(to)
			if s.Owned(side) {
				break
			}
			moves = append(moves, NewMove(from, to))
			if !s.IsEmpty() {
				break
			}
			to = to.Offset(r[0], r[1])
		}
	}
	return moves
}

// castleMoves emits king moves two files sideways when side still holds
// the right, king and rook are on their start squares, the squares between
// them are empty, and the king neither starts on, crosses, nor lands on an
// attacked square.
func (p *Position) castleMoves(moves []Move, from Square, side Side) []Move {
	home := 0
	ks, qs := WhiteKingside, WhiteQueenside
	if side == Black {
		home = 7
		ks, qs = BlackKingside, BlackQueenside
	}
	if from != Sq(4, home) {
		return moves
	}
	rook := NewSlot(Rook, side)
	enemy := side.Other()

	if p.castling.Has(ks) && p.grid[7][home] == rook &&
		p.grid[5][home].IsEmpty() && p.grid[6][home].IsEmpty() &&
		!p.Attacked(from, enemy) && !p.Attacked(Sq(5, home), enemy) && !p.Attacked(Sq(6, home), enemy) {
		moves = append(moves, NewMove(from, Sq(6, home)))
	}
	if p.castling.Has(qs) && p.grid[0][home] == rook &&
		p.grid[1][home].IsEmpty() && p.grid[2][home].IsEmpty() && p.grid[3][home].IsEmpty() &&
		!p.Attacked(from, enemy) && !p.Attacked(Sq(3, home), enemy) && !p.Attacked(Sq(2, home), enemy) {
		moves = append(moves, NewMove(from, Sq(2, home)))
	}
	return moves
}

// Attacked reports whether any piece of side by attacks sq, whether or not
// sq is occupied.
func (p *Position) Attacked(sq Square, by Side) bool {
	// pawns attack diagonally forward, so look one rank behind sq
	dir := -1
	if by == Black {
		dir = 1
	}
	for _, df := range [2]int{-1, 1} {
		if p.At(sq.Offset(df, dir)) == NewSlot(Pawn, by) {
			return true
		}
	}
	for _, o := range knightOffsets {
		if p.At(sq.Offset(o[0], o[1])) == NewSlot(Knight, by) {
			return true
		}
	}
	for _, o := range kingOffsets {
		if p.At(sq.Offset(o[0], o[1])) == NewSlot(King, by) {
			return true
		}
	}
	if p.rayHits(sq, by, rookRays[:], Rook) || p.rayHits(sq, by, bishopRays[:], Bishop) {
		return true
	}
	return false
}

// rayHits walks each ray from sq and reports whether the first piece met
// is by's slider of kind k or a queen.
func (p *Position) rayHits(sq Square, by Side, rays [][2]int, k Kind) bool {
	for _, r := range rays {
		to := sq.Offset(r[0], r[1])
		for to.Valid() {
			s := p.At(to)
			if !s.IsEmpty() {
				if s.Side() == by && (s.Kind() == k || s.Kind() == Queen) {
					return true
				}
				break
			}
			to = to.Offset(r[0], r[1])
		}
	}
	return false
}
