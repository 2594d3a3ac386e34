package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSquare = errors.New("invalid square")
	ErrInvalidMove   = errors.New("invalid move notation")
	ErrInvalidMode   = errors.New("invalid game mode")
	ErrNegativeTime  = errors.New("time values must not be negative")
)

// Side identifies a chess side.
type Side int8

const (
	White Side = iota
	Black
)

func (s Side) Other() Side {
	if s == White {
		return Black
	}
	return White
}

func (s Side) String() string {
	if s == Black {
		return "Black"
	}
	return "White"
}

// HomeRank is the zero-based rank holding the side's pieces at the start.
func (s Side) HomeRank() int {
	if s == Black {
		return 7
	}
	return 0
}

// LastRank is the zero-based promotion rank for the side's pawns.
func (s Side) LastRank() int {
	if s == Black {
		return 0
	}
	return 7
}

type PieceKind int8

const (
	NoKind PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindNames = map[PieceKind]string{
	NoKind: "none",
	Pawn:   "pawn",
	Knight: "knight",
	Bishop: "bishop",
	Rook:   "rook",
	Queen:  "queen",
	King:   "king",
}

func (k PieceKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "none"
}

// Value is the material value used for army budgets. Kings are not counted.
func (k PieceKind) Value() int {
	switch k {
	case Pawn:
		return 1
	case Knight, Bishop:
		return 3
	case Rook:
		return 5
	case Queen:
		return 9
	default:
		return 0
	}
}

// Promotable reports whether a pawn may promote to k.
func (k PieceKind) Promotable() bool {
	return k == Queen || k == Rook || k == Bishop || k == Knight
}

// Letter returns the lower-case UCI letter of the kind.
func (k PieceKind) Letter() string {
	switch k {
	case Pawn:
		return "p"
	case Knight:
		return "n"
	case Bishop:
		return "b"
	case Rook:
		return "r"
	case Queen:
		return "q"
	case King:
		return "k"
	default:
		return ""
	}
}

// PromotionChoices lists the promotion options in dialog order.
var PromotionChoices = []PieceKind{Queen, Rook, Bishop, Knight}

// ParsePieceKind accepts full names or single letters, case-insensitive.
func ParsePieceKind(s string) (PieceKind, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if k == NoKind {
			continue
		}
		if v == name || v == k.Letter() {
			return k, true
		}
	}
	return NoKind, false
}

// Piece is a side/kind pair. The zero value is no piece.
type Piece struct {
	Side Side
	Kind PieceKind
}

var NoPiece = Piece{}

func NewPiece(side Side, kind PieceKind) Piece { return Piece{Side: side, Kind: kind} }

func (p Piece) IsNone() bool { return p.Kind == NoKind }

func (p Piece) String() string {
	if p.IsNone() {
		return "none"
	}
	return strings.ToLower(p.Side.String()) + " " + p.Kind.String()
}

// Square is a zero-based (file, rank) pair; a1 is {0, 0} and h8 is {7, 7}.
type Square struct {
	File int
	Rank int
}

func NewSquare(file, rank int) Square { return Square{File: file, Rank: rank} }

func (sq Square) Valid() bool {
	return sq.File >= 0 && sq.File < 8 && sq.Rank >= 0 && sq.Rank < 8
}

func (sq Square) String() string {
	if !sq.Valid() {
		return "-"
	}
	return fmt.Sprintf("%c%d", 'a'+sq.File, sq.Rank+1)
}

// ParseSquare parses algebraic coordinates such as "e4".
func ParseSquare(s string) (Square, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if len(v) != 2 {
		return Square{}, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	sq := Square{File: int(v[0] - 'a'), Rank: int(v[1] - '1')}
	if !sq.Valid() {
		return Square{}, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	return sq, nil
}

// MustSquare is ParseSquare for literals known to be valid.
func MustSquare(s string) Square {
	sq, err := ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return sq
}

// Move compares equal to a rules-engine legal move including its promotion kind.
type Move struct {
	From      Square
	To        Square
	Promotion PieceKind
}

func (m Move) UCI() string {
	return m.From.String() + m.To.String() + m.Promotion.Letter()
}

func (m Move) String() string { return m.UCI() }

func ParseMove(uci string) (Move, error) {
	v := strings.ToLower(strings.TrimSpace(uci))
	if len(v) != 4 && len(v) != 5 {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, uci)
	}
	from, err := ParseSquare(v[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, uci)
	}
	to, err := ParseSquare(v[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, uci)
	}
	mv := Move{From: from, To: to}
	if len(v) == 5 {
		kind, ok := ParsePieceKind(v[4:])
		if !ok || !kind.Promotable() {
			return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, uci)
		}
		mv.Promotion = kind
	}
	return mv, nil
}

func MustMove(uci string) Move {
	mv, err := ParseMove(uci)
	if err != nil {
		panic(err)
	}
	return mv
}

// ContainsMove reports whether mv is a member of moves.
func ContainsMove(moves []Move, mv Move) bool {
	for _, m := range moves {
		if m == mv {
			return true
		}
	}
	return false
}
