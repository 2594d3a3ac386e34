package chess

import "github.com/park285/Cheese-LocalChess/internal/domain"

var (
	knightJumps = [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = [][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	orthogonal  = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonal    = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

func findKing(pieces map[domain.Square]domain.Piece, side domain.Side) (domain.Square, bool) {
	want := domain.NewPiece(side, domain.King)
	for sq, p := range pieces {
		if p == want {
			return sq, true
		}
	}
	return domain.Square{}, false
}

// attacked reports whether any piece of side by attacks target.
func attacked(pieces map[domain.Square]domain.Piece, target domain.Square, by domain.Side) bool {
	at := func(file, rank int, kinds ...domain.PieceKind) bool {
		sq := domain.NewSquare(file, rank)
		if !sq.Valid() {
			return false
		}
		p, ok := pieces[sq]
		if !ok || p.Side != by {
			return false
		}
		for _, k := range kinds {
			if p.Kind == k {
				return true
			}
		}
		return false
	}

	pawnRank := target.Rank - 1
	if by == domain.Black {
		pawnRank = target.Rank + 1
	}
	if at(target.File-1, pawnRank, domain.Pawn) || at(target.File+1, pawnRank, domain.Pawn) {
		return true
	}
	for _, d := range knightJumps {
		if at(target.File+d[0], target.Rank+d[1], domain.Knight) {
			return true
		}
	}
	for _, d := range kingSteps {
		if at(target.File+d[0], target.Rank+d[1], domain.King) {
			return true
		}
	}
	if slides(pieces, target, orthogonal, func(p domain.Piece) bool {
		return p.Side == by && (p.Kind == domain.Rook || p.Kind == domain.Queen)
	}) {
		return true
	}
	return slides(pieces, target, diagonal, func(p domain.Piece) bool {
		return p.Side == by && (p.Kind == domain.Bishop || p.Kind == domain.Queen)
	})
}

func slides(pieces map[domain.Square]domain.Piece, from domain.Square, dirs [][2]int, hit func(domain.Piece) bool) bool {
	for _, d := range dirs {
		sq := domain.NewSquare(from.File+d[0], from.Rank+d[1])
		for sq.Valid() {
			if p, ok := pieces[sq]; ok && !p.IsNone() {
				if hit(p) {
					return true
				}
				break
			}
			sq = domain.NewSquare(sq.File+d[0], sq.Rank+d[1])
		}
	}
	return false
}

// insufficientMaterial covers bare kings, a single minor piece, and bishops all on one square colour.
func insufficientMaterial(pieces map[domain.Square]domain.Piece) bool {
	var minors, knights int
	bishopColours := map[int]bool{}
	for sq, p := range pieces {
		switch p.Kind {
		case domain.King, domain.NoKind:
		case domain.Knight:
			minors++
			knights++
		case domain.Bishop:
			minors++
			bishopColours[(sq.File+sq.Rank)%2] = true
		default:
			return false
		}
	}
	switch {
	case minors == 0:
		return true
	case minors == 1:
		return true
	case knights == 0 && len(bishopColours) == 1:
		return true
	default:
		return false
	}
}
