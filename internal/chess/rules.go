package chess

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/Cheese-LocalChess/internal/domain"
)

const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	ErrIllegalMove   = errors.New("illegal move")
	ErrNothingToUndo = errors.New("no move to undo")
	ErrSetupLocked   = errors.New("board setup is only allowed before the first move")
	ErrInvalidFEN    = errors.New("invalid fen")
)

// Placer edits the starting position before any move is played.
type Placer interface {
	PieceAt(sq domain.Square) domain.Piece
	SetPiece(sq domain.Square, p domain.Piece) error
	RemovePiece(sq domain.Square) error
}

// Engine adapts corentings/chess to the session's rules contract.
// The game is rebuilt from the initial FEN plus the UCI history on undo and setup edits.
type Engine struct {
	initialFEN string
	history    []string
	game       *nchess.Game
}

func NewEngine() *Engine {
	e, err := NewEngineFromFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return e
}

func NewEngineFromFEN(fen string) (*Engine, error) {
	e := &Engine{}
	if err := e.load(fen, nil); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) load(fen string, moves []string) error {
	opt, err := nchess.FEN(fen)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	game := nchess.NewGame(opt)
	for _, mv := range moves {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return fmt.Errorf("replay %s: %w", mv, err)
		}
	}
	e.initialFEN = fen
	e.history = append([]string(nil), moves...)
	e.game = game
	return nil
}

func (e *Engine) PieceAt(sq domain.Square) domain.Piece {
	if !sq.Valid() {
		return domain.NoPiece
	}
	return pieceFrom(e.game.Position().Board().Piece(toSquare(sq)))
}

func (e *Engine) LegalMoves() []domain.Move {
	valid := e.game.ValidMoves()
	out := make([]domain.Move, 0, len(valid))
	for _, mv := range valid {
		out = append(out, domain.Move{
			From:      squareFrom(mv.S1()),
			To:        squareFrom(mv.S2()),
			Promotion: kindFrom(mv.Promo()),
		})
	}
	return out
}

// ApplyMove plays mv; it must be a member of LegalMoves.
func (e *Engine) ApplyMove(mv domain.Move) error {
	if !domain.ContainsMove(e.LegalMoves(), mv) {
		return fmt.Errorf("%w: %s", ErrIllegalMove, mv.UCI())
	}
	uci := mv.UCI()
	if err := e.game.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIllegalMove, uci, err)
	}
	e.history = append(e.history, uci)
	return nil
}

func (e *Engine) UndoLastMove() error {
	if len(e.history) == 0 {
		return ErrNothingToUndo
	}
	return e.load(e.initialFEN, e.history[:len(e.history)-1])
}

func (e *Engine) SideToMove() domain.Side {
	return sideFrom(e.game.Position().Turn())
}

func (e *Engine) PlyCount() int { return len(e.history) }

// History returns the applied moves in UCI notation.
func (e *Engine) History() []string { return append([]string(nil), e.history...) }

func (e *Engine) FEN() string { return e.game.FEN() }

func (e *Engine) IsInCheck(side domain.Side) bool {
	pieces := e.pieces()
	king, ok := findKing(pieces, side)
	if !ok {
		return false
	}
	return attacked(pieces, king, side.Other())
}

func (e *Engine) IsCheckmate() bool {
	if e.game.Method() == nchess.Checkmate {
		return true
	}
	return len(e.game.ValidMoves()) == 0 && e.IsInCheck(e.SideToMove())
}

func (e *Engine) IsStalemateOrNoMoves() bool {
	switch e.game.Method() {
	case nchess.Stalemate:
		return true
	case nchess.InsufficientMaterial, nchess.FivefoldRepetition, nchess.SeventyFiveMoveRule:
		return false
	}
	return len(e.game.ValidMoves()) == 0 && !e.IsInCheck(e.SideToMove())
}

func (e *Engine) IsInsufficientMaterial() bool {
	if e.game.Method() == nchess.InsufficientMaterial {
		return true
	}
	return insufficientMaterial(e.pieces())
}

func (e *Engine) IsRepetition() bool {
	switch e.game.Method() {
	case nchess.ThreefoldRepetition, nchess.FivefoldRepetition:
		return true
	}
	for _, m := range e.game.EligibleDraws() {
		if m == nchess.ThreefoldRepetition || m == nchess.FivefoldRepetition {
			return true
		}
	}
	return false
}

func (e *Engine) Snapshot() domain.Position {
	side := e.SideToMove()
	pieces := e.pieces()
	pos := domain.Position{
		FEN:        e.game.FEN(),
		Pieces:     pieces,
		SideToMove: side,
		Ply:        len(e.history),
	}
	if king, ok := findKing(pieces, side); ok && attacked(pieces, king, side.Other()) {
		k := king
		pos.Check = &k
	}
	if n := len(e.history); n > 0 {
		if mv, err := domain.ParseMove(e.history[n-1]); err == nil {
			pos.LastMove = &mv
		}
	}
	return pos
}

func (e *Engine) SetPiece(sq domain.Square, p domain.Piece) error {
	if p.IsNone() {
		return e.RemovePiece(sq)
	}
	return e.edit(sq, p)
}

func (e *Engine) RemovePiece(sq domain.Square) error {
	return e.edit(sq, domain.NoPiece)
}

func (e *Engine) edit(sq domain.Square, p domain.Piece) error {
	if !sq.Valid() {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSquare, sq)
	}
	if len(e.history) > 0 {
		return ErrSetupLocked
	}
	pieces := e.pieces()
	if p.IsNone() {
		delete(pieces, sq)
	} else {
		pieces[sq] = p
	}
	return e.load(buildFEN(pieces, e.SideToMove()), nil)
}

func (e *Engine) pieces() map[domain.Square]domain.Piece {
	out := make(map[domain.Square]domain.Piece, 32)
	for sq, p := range e.game.Position().Board().SquareMap() {
		if p == nchess.NoPiece {
			continue
		}
		out[squareFrom(sq)] = pieceFrom(p)
	}
	return out
}

// buildFEN writes a setup position. Castling rights follow the king and rook placement;
// there is never an en passant target.
func buildFEN(pieces map[domain.Square]domain.Piece, turn domain.Side) string {
	var b strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			p, ok := pieces[domain.NewSquare(file, rank)]
			if !ok || p.IsNone() {
				empty++
				continue
			}
			if empty > 0 {
				fmt.Fprintf(&b, "%d", empty)
				empty = 0
			}
			letter := p.Kind.Letter()
			if p.Side == domain.White {
				letter = strings.ToUpper(letter)
			}
			b.WriteString(letter)
		}
		if empty > 0 {
			fmt.Fprintf(&b, "%d", empty)
		}
		if rank > 0 {
			b.WriteByte('/')
		}
	}
	turnLetter := "w"
	if turn == domain.Black {
		turnLetter = "b"
	}
	return fmt.Sprintf("%s %s %s - 0 1", b.String(), turnLetter, castlingRights(pieces))
}

func castlingRights(pieces map[domain.Square]domain.Piece) string {
	has := func(sq string, side domain.Side, kind domain.PieceKind) bool {
		return pieces[domain.MustSquare(sq)] == domain.NewPiece(side, kind)
	}
	var b strings.Builder
	if has("e1", domain.White, domain.King) {
		if has("h1", domain.White, domain.Rook) {
			b.WriteByte('K')
		}
		if has("a1", domain.White, domain.Rook) {
			b.WriteByte('Q')
		}
	}
	if has("e8", domain.Black, domain.King) {
		if has("h8", domain.Black, domain.Rook) {
			b.WriteByte('k')
		}
		if has("a8", domain.Black, domain.Rook) {
			b.WriteByte('q')
		}
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

func toSquare(sq domain.Square) nchess.Square {
	return nchess.NewSquare(nchess.File(sq.File), nchess.Rank(sq.Rank))
}

func squareFrom(sq nchess.Square) domain.Square {
	return domain.NewSquare(int(sq.File()), int(sq.Rank()))
}

func sideFrom(c nchess.Color) domain.Side {
	if c == nchess.Black {
		return domain.Black
	}
	return domain.White
}

func kindFrom(pt nchess.PieceType) domain.PieceKind {
	switch pt {
	case nchess.Pawn:
		return domain.Pawn
	case nchess.Knight:
		return domain.Knight
	case nchess.Bishop:
		return domain.Bishop
	case nchess.Rook:
		return domain.Rook
	case nchess.Queen:
		return domain.Queen
	case nchess.King:
		return domain.King
	default:
		return domain.NoKind
	}
}

func pieceFrom(p nchess.Piece) domain.Piece {
	if p == nchess.NoPiece {
		return domain.NoPiece
	}
	return domain.NewPiece(sideFrom(p.Color()), kindFrom(p.Type()))
}
