package session

import "github.com/park285/Cheese-LocalChess/internal/domain"

type SelectionKind int

const (
	Idle SelectionKind = iota
	Selected
	AwaitingPromotion
	GameOver
)

func (k SelectionKind) String() string {
	switch k {
	case Selected:
		return "selected"
	case AwaitingPromotion:
		return "awaiting_promotion"
	case GameOver:
		return "game_over"
	default:
		return "idle"
	}
}

// Selection is the input state. Square and the destination sets are only
// meaningful when Selected; Move only when AwaitingPromotion.
type Selection struct {
	Kind         SelectionKind
	Square       domain.Square
	Destinations []domain.Square
	Captures     []domain.Square
	Move         domain.Move
	Mover        domain.Side
}

// Snapshot is a copy of everything a transport needs to draw the session.
type Snapshot struct {
	ID         string
	Config     domain.SessionConfig
	Position   domain.Position
	Selection  Selection
	Result     domain.GameResult
	White      domain.ClockState
	Black      domain.ClockState
	Flipped    bool
	ArmyBudget int
}

func (s Snapshot) Clock(side domain.Side) domain.ClockState {
	if side == domain.Black {
		return s.Black
	}
	return s.White
}
