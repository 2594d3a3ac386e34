package session

import (
	"github.com/park285/Cheese-LocalChess/internal/chess"
	"github.com/park285/Cheese-LocalChess/internal/domain"
)

// Rules is the authority over the board. The session never edits the board
// except through ApplyMove, UndoLastMove, and the pre-game Placer methods.
type Rules interface {
	chess.Placer
	LegalMoves() []domain.Move
	ApplyMove(mv domain.Move) error
	UndoLastMove() error
	SideToMove() domain.Side
	IsInCheck(side domain.Side) bool
	IsCheckmate() bool
	IsStalemateOrNoMoves() bool
	IsInsufficientMaterial() bool
	IsRepetition() bool
	PlyCount() int
	Snapshot() domain.Position
}

type RulesFactory func() Rules

// BoardView receives render and highlight instructions.
type BoardView interface {
	Render(pos domain.Position)
	HighlightSelection(sq *domain.Square)
	HighlightLegalDestinations(dests, captures []domain.Square)
	ShowClock(side domain.Side, remainingMs int64)
	SetFlipped(flipped bool)
}

// HitTester maps pointer coordinates to board squares.
type HitTester interface {
	SquareAt(x, y int) (domain.Square, bool)
}

// Notifier shows dialogs. RequestPromotionChoice is answered later through
// Session.ChoosePromotion or Session.CancelPromotion.
type Notifier interface {
	RequestPromotionChoice(side domain.Side)
	AnnounceResult(result domain.GameResult)
}

// ArmySetup rewrites the starting position for random-army sessions and returns the budget used.
type ArmySetup interface {
	Populate(p chess.Placer) (int, error)
}

type nopView struct{}

func (nopView) Render(domain.Position) {}
func (nopView) HighlightSelection(*domain.Square) {}
func (nopView) HighlightLegalDestinations(_, _ []domain.Square) {}
func (nopView) ShowClock(domain.Side, int64) {}
func (nopView) SetFlipped(bool) {}

type nopNotifier struct{}

func (nopNotifier) RequestPromotionChoice(domain.Side) {}
func (nopNotifier) AnnounceResult(domain.GameResult) {}
