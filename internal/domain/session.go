package domain

import (
	"fmt"
	"time"
)

// Position is a read-only snapshot of the rules engine's board.
type Position struct {
	FEN        string
	Pieces     map[Square]Piece
	SideToMove Side
	Ply        int
	Check      *Square
	LastMove   *Move
}

func (p Position) PieceAt(sq Square) Piece {
	if p.Pieces == nil {
		return NoPiece
	}
	return p.Pieces[sq]
}

type GameMode int

const (
	Standard   GameMode = 1
	RandomArmy GameMode = 2
)

func ParseGameMode(v int) (GameMode, error) {
	switch GameMode(v) {
	case Standard, RandomArmy:
		return GameMode(v), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidMode, v)
	}
}

func (m GameMode) String() string {
	switch m {
	case Standard:
		return "standard"
	case RandomArmy:
		return "random-army"
	default:
		return "unknown"
	}
}

// SessionConfig is fixed for the lifetime of a session.
type SessionConfig struct {
	Mode        GameMode
	BaseTimeMs  int64
	IncrementMs int64
}

func (c SessionConfig) Validate() error {
	if _, err := ParseGameMode(int(c.Mode)); err != nil {
		return err
	}
	if c.BaseTimeMs < 0 || c.IncrementMs < 0 {
		return ErrNegativeTime
	}
	return nil
}

// Timed reports whether clocks run at all. A zero base time is an untimed game.
func (c SessionConfig) Timed() bool { return c.BaseTimeMs > 0 }

type ClockState struct {
	RemainingMs int64
	Running     bool
}

type ResultStatus int

const (
	Ongoing ResultStatus = iota
	Checkmate
	Draw
	Timeout
)

func (s ResultStatus) String() string {
	switch s {
	case Checkmate:
		return "checkmate"
	case Draw:
		return "draw"
	case Timeout:
		return "timeout"
	default:
		return "ongoing"
	}
}

type DrawReason int

const (
	NoDrawReason DrawReason = iota
	Stalemate
	InsufficientMaterial
	Repetition
)

func (r DrawReason) String() string {
	switch r {
	case Stalemate:
		return "stalemate"
	case InsufficientMaterial:
		return "insufficient_material"
	case Repetition:
		return "repetition"
	default:
		return ""
	}
}

// GameResult moves from Ongoing to a terminal status exactly once per session.
type GameResult struct {
	Status ResultStatus
	Winner Side
	Reason DrawReason
}

func OngoingResult() GameResult { return GameResult{Status: Ongoing} }

func CheckmateResult(winner Side) GameResult {
	return GameResult{Status: Checkmate, Winner: winner}
}

func DrawResult(reason DrawReason) GameResult {
	return GameResult{Status: Draw, Reason: reason}
}

func TimeoutResult(winner Side) GameResult {
	return GameResult{Status: Timeout, Winner: winner}
}

func (r GameResult) IsTerminal() bool { return r.Status != Ongoing }

// HasWinner is true for checkmate and timeout results.
func (r GameResult) HasWinner() bool {
	return r.Status == Checkmate || r.Status == Timeout
}

// Score returns the PGN-style result token.
func (r GameResult) Score() string {
	switch {
	case r.HasWinner() && r.Winner == White:
		return "1-0"
	case r.HasWinner() && r.Winner == Black:
		return "0-1"
	case r.Status == Draw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

func (r GameResult) String() string {
	switch r.Status {
	case Checkmate, Timeout:
		return fmt.Sprintf("%s(%s)", r.Status, r.Winner)
	case Draw:
		return fmt.Sprintf("draw(%s)", r.Reason)
	default:
		return "ongoing"
	}
}

// FinishedGame is the archived summary of a terminated session.
type FinishedGame struct {
	ID          string        `json:"id"`
	Mode        string        `json:"mode"`
	BaseTimeMs  int64         `json:"base_time_ms"`
	IncrementMs int64         `json:"increment_ms"`
	Result      string        `json:"result"`
	Method      string        `json:"method"`
	Winner      string        `json:"winner,omitempty"`
	Plies       int           `json:"plies"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     time.Time     `json:"ended_at"`
	Duration    time.Duration `json:"duration"`
}

// NewFinishedGame summarises a terminal result.
func NewFinishedGame(id string, cfg SessionConfig, result GameResult, plies int, started, ended time.Time) FinishedGame {
	fg := FinishedGame{
		ID:          id,
		Mode:        cfg.Mode.String(),
		BaseTimeMs:  cfg.BaseTimeMs,
		IncrementMs: cfg.IncrementMs,
		Result:      result.Score(),
		Method:      result.Status.String(),
		Plies:       plies,
		StartedAt:   started,
		EndedAt:     ended,
		Duration:    ended.Sub(started),
	}
	if result.Status == Draw {
		fg.Method = result.Reason.String()
	}
	if result.HasWinner() {
		fg.Winner = result.Winner.String()
	}
	if fg.Duration < 0 {
		fg.Duration = 0
	}
	return fg
}
