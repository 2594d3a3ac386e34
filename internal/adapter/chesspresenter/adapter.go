package chesspresenter

import (
	"sort"

	"github.com/park285/Cheese-LocalChess/internal/domain"
	"github.com/park285/Cheese-LocalChess/internal/session"
	"github.com/park285/Cheese-LocalChess/pkg/chessdto"
)

// ToDTOSnapshot converts a session snapshot for the JSON transports.
// A notice is attached only while it still matches the session state: a
// promotion prompt while awaiting promotion, a result once the game is over.
func ToDTOSnapshot(s session.Snapshot, notice *Notice) *chessdto.Snapshot {
	pos := s.Position
	out := &chessdto.Snapshot{
		SessionID:   s.ID,
		Mode:        s.Config.Mode.String(),
		BaseTimeMs:  s.Config.BaseTimeMs,
		IncrementMs: s.Config.IncrementMs,
		FEN:         pos.FEN,
		Board:       toDTOBoard(pos.Pieces),
		SideToMove:  pos.SideToMove.String(),
		Ply:         pos.Ply,
		Selection:   toDTOSelection(s.Selection),
		Result:      ToDTOResult(s.Result),
		White:       toDTOClock(s.White),
		Black:       toDTOClock(s.Black),
		Flipped:     s.Flipped,
		ArmyBudget:  s.ArmyBudget,
	}
	if pos.Check != nil {
		out.Check = pos.Check.String()
	}
	if pos.LastMove != nil {
		out.LastMove = pos.LastMove.UCI()
	}
	if notice != nil && noticeCurrent(s, notice) {
		out.Notice = &chessdto.Notice{
			Kind:    string(notice.Kind),
			Title:   notice.Title,
			Message: notice.Message,
			Options: append([]string(nil), notice.Options...),
		}
	}
	return out
}

func noticeCurrent(s session.Snapshot, n *Notice) bool {
	switch n.Kind {
	case NoticePromotion:
		return s.Selection.Kind == session.AwaitingPromotion && s.Selection.Mover == n.Side
	case NoticeResult:
		return s.Result.IsTerminal() && s.Result == n.Result
	default:
		return false
	}
}

func ToDTOResult(r domain.GameResult) chessdto.Result {
	out := chessdto.Result{Status: r.Status.String(), Score: r.Score()}
	if r.HasWinner() {
		out.Winner = r.Winner.String()
	}
	if r.Status == domain.Draw {
		out.Reason = r.Reason.String()
	}
	return out
}

func toDTOSelection(sel session.Selection) chessdto.Selection {
	out := chessdto.Selection{State: sel.Kind.String()}
	switch sel.Kind {
	case session.Selected:
		out.Square = sel.Square.String()
		out.Destinations = squareTokens(sel.Destinations)
		out.Captures = squareTokens(sel.Captures)
	case session.AwaitingPromotion:
		out.Square = sel.Move.From.String()
		out.Pending = sel.Move.UCI()
	}
	return out
}

func toDTOClock(c domain.ClockState) chessdto.Clock {
	return chessdto.Clock{
		RemainingMs: c.RemainingMs,
		Display:     FormatClock(c.RemainingMs),
		Running:     c.Running,
	}
}

// toDTOBoard keys pieces by square name using FEN letters (upper case for White).
func toDTOBoard(pieces map[domain.Square]domain.Piece) map[string]string {
	out := make(map[string]string, len(pieces))
	for sq, p := range pieces {
		if p.IsNone() {
			continue
		}
		out[sq.String()] = PieceToken(p)
	}
	return out
}

func PieceToken(p domain.Piece) string {
	letter := p.Kind.Letter()
	if letter == "" {
		return ""
	}
	if p.Side == domain.White {
		return string(letter[0] - 'a' + 'A')
	}
	return letter
}

func squareTokens(list []domain.Square) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, sq := range list {
		out = append(out, sq.String())
	}
	sort.Strings(out)
	return out
}
