package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/Cheese-LocalChess/internal/clock"
	"github.com/park285/Cheese-LocalChess/internal/domain"
	"github.com/park285/Cheese-LocalChess/internal/obslog"
)

// clockGracePlies is the number of opening plies played before any clock starts.
const clockGracePlies = 2

var ErrNoRules = errors.New("session: rules factory is required")

type Options struct {
	Config    domain.SessionConfig
	NewRules  RulesFactory
	Army      ArmySetup
	View      BoardView
	Notifier  Notifier
	Scheduler clock.Scheduler
	Now       func() time.Time
	Logger    *zap.Logger
	OnFinish  func(domain.FinishedGame)
}

// Session is one game: board, selection, clocks and result.
// All methods must be called from a single goroutine, the same one the
// scheduler delivers clock callbacks on.
type Session struct {
	cfg      domain.SessionConfig
	newRules RulesFactory
	army     ArmySetup
	view     BoardView
	notifier Notifier
	now      func() time.Time
	log      *zap.Logger
	onFinish func(domain.FinishedGame)

	id        string
	rules     Rules
	clocks    *clock.Pair
	sel       Selection
	result    domain.GameResult
	flipped   bool
	startedAt time.Time
	budget    int
}

func New(opts Options) (*Session, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	if opts.NewRules == nil {
		return nil, ErrNoRules
	}
	s := &Session{
		cfg:      opts.Config,
		newRules: opts.NewRules,
		army:     opts.Army,
		view:     opts.View,
		notifier: opts.Notifier,
		now:      opts.Now,
		log:      opts.Logger,
		onFinish: opts.OnFinish,
	}
	if s.view == nil {
		s.view = nopView{}
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = obslog.L()
	}
	s.clocks = clock.NewPair(s.cfg.BaseTimeMs, clock.Config{
		Scheduler: opts.Scheduler,
		Now:       s.now,
		OnTick:    func(side domain.Side, ms int64) { s.view.ShowClock(side, ms) },
		OnTimeout: s.Timeout,
	})
	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) start() error {
	rules := s.newRules()
	budget := 0
	if s.cfg.Mode == domain.RandomArmy && s.army != nil {
		b, err := s.army.Populate(rules)
		if err != nil {
			return fmt.Errorf("random army: %w", err)
		}
		budget = b
	}
	s.clocks.Reset(s.cfg.BaseTimeMs)
	s.id = uuid.NewString()
	s.rules = rules
	s.budget = budget
	s.sel = Selection{Kind: Idle}
	s.result = domain.OngoingResult()
	s.startedAt = s.now()

	s.view.SetFlipped(s.flipped)
	s.view.Render(s.rules.Snapshot())
	s.clearHighlights()
	s.showClocks()

	s.log.Info("session_start",
		zap.String("session_id", s.id),
		zap.String("mode", s.cfg.Mode.String()),
		zap.Int64("base_ms", s.cfg.BaseTimeMs),
		zap.Int64("increment_ms", s.cfg.IncrementMs),
		zap.Int("army_budget", budget),
	)
	return nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Config() domain.SessionConfig { return s.cfg }

func (s *Session) Result() domain.GameResult { return s.result }

func (s *Session) Selection() Selection { return s.sel }

func (s *Session) Clocks() *clock.Pair { return s.clocks }

func (s *Session) Rules() Rules { return s.rules }

// Activate handles a tap on sq. Off-board squares and taps while a promotion
// choice is pending or the game is over are ignored.
func (s *Session) Activate(sq domain.Square) {
	if !sq.Valid() {
		return
	}
	switch s.sel.Kind {
	case Idle:
		s.selectSquare(sq)
	case Selected:
		s.moveTo(sq)
	}
}

func (s *Session) selectSquare(sq domain.Square) {
	piece := s.rules.PieceAt(sq)
	if piece.IsNone() {
		return
	}
	var dests, captures []domain.Square
	for _, mv := range s.rules.LegalMoves() {
		if mv.From != sq || containsSquare(dests, mv.To) {
			continue
		}
		dests = append(dests, mv.To)
		target := s.rules.PieceAt(mv.To)
		if (!target.IsNone() && target.Side != piece.Side) ||
			(piece.Kind == domain.Pawn && mv.To.Rank == piece.Side.LastRank()) {
			captures = append(captures, mv.To)
		}
	}
	s.sel = Selection{Kind: Selected, Square: sq, Destinations: dests, Captures: captures}
	s.view.HighlightSelection(&sq)
	s.view.HighlightLegalDestinations(dests, captures)
}

func (s *Session) moveTo(target domain.Square) {
	from := s.sel.Square
	piece := s.rules.PieceAt(from)
	if piece.Kind == domain.Pawn && target.Rank == piece.Side.LastRank() {
		s.sel = Selection{
			Kind:   AwaitingPromotion,
			Square: from,
			Move:   domain.Move{From: from, To: target},
			Mover:  piece.Side,
		}
		s.view.HighlightLegalDestinations(nil, nil)
		s.notifier.RequestPromotionChoice(piece.Side)
		return
	}
	s.resetSelection()
	mv := domain.Move{From: from, To: target}
	if domain.ContainsMove(s.rules.LegalMoves(), mv) {
		s.commit(mv)
	}
}

// ChoosePromotion completes a pending promotion. Moves the rules reject are dropped.
func (s *Session) ChoosePromotion(kind domain.PieceKind) {
	if s.sel.Kind != AwaitingPromotion {
		return
	}
	mv := s.sel.Move
	mv.Promotion = kind
	s.resetSelection()
	if !kind.Promotable() || !domain.ContainsMove(s.rules.LegalMoves(), mv) {
		s.log.Debug("session_promotion_dropped", zap.String("session_id", s.id), zap.String("move", mv.UCI()))
		return
	}
	s.commit(mv)
}

func (s *Session) CancelPromotion() {
	if s.sel.Kind != AwaitingPromotion {
		return
	}
	s.resetSelection()
}

func (s *Session) commit(mv domain.Move) {
	if err := s.rules.ApplyMove(mv); err != nil {
		s.log.Warn("session_move_rejected", zap.String("session_id", s.id), zap.String("move", mv.UCI()), zap.Error(err))
		return
	}
	ply := s.rules.PlyCount()
	s.log.Info("session_move",
		zap.String("session_id", s.id),
		zap.String("uci", mv.UCI()),
		zap.Int("ply", ply),
	)
	s.view.Render(s.rules.Snapshot())

	if s.cfg.Timed() && ply > clockGracePlies {
		mover := s.rules.SideToMove().Other()
		mc := s.clocks.Side(mover)
		mc.AddIncrement(s.cfg.IncrementMs)
		mc.Stop()
		s.clocks.Side(mover.Other()).Start()
	}
	s.showClocks()

	if result, ok := s.terminal(); ok {
		s.finish(result)
	}
}

// terminal checks checkmate first so a mated side is never reported as stalemated.
func (s *Session) terminal() (domain.GameResult, bool) {
	switch {
	case s.rules.IsCheckmate():
		return domain.CheckmateResult(s.rules.SideToMove().Other()), true
	case s.rules.IsStalemateOrNoMoves():
		return domain.DrawResult(domain.Stalemate), true
	case s.rules.IsInsufficientMaterial():
		return domain.DrawResult(domain.InsufficientMaterial), true
	case s.rules.IsRepetition():
		return domain.DrawResult(domain.Repetition), true
	default:
		return domain.GameResult{}, false
	}
}

// Timeout ends the game in favour of the side that still has time.
func (s *Session) Timeout(side domain.Side) {
	if s.result.IsTerminal() {
		return
	}
	s.log.Info("clock_timeout", zap.String("session_id", s.id), zap.String("side", side.String()))
	s.finish(domain.TimeoutResult(side.Other()))
}

func (s *Session) finish(result domain.GameResult) {
	s.clocks.StopAll()
	s.result = result
	s.sel = Selection{Kind: GameOver}
	s.clearHighlights()
	s.showClocks()
	s.notifier.AnnounceResult(result)

	ended := s.now()
	s.log.Info("session_finish",
		zap.String("session_id", s.id),
		zap.String("result", result.String()),
		zap.Int("plies", s.rules.PlyCount()),
		zap.Duration("duration", ended.Sub(s.startedAt)),
	)
	if s.onFinish != nil {
		s.onFinish(domain.NewFinishedGame(s.id, s.cfg, result, s.rules.PlyCount(), s.startedAt, ended))
	}
}

// Undo takes back the last ply. Running clocks stop and, past the opening grace,
// the side to move resumes. Increments already credited stay.
func (s *Session) Undo() bool {
	if s.result.IsTerminal() || s.rules.PlyCount() == 0 {
		return false
	}
	if err := s.rules.UndoLastMove(); err != nil {
		s.log.Warn("session_undo_failed", zap.String("session_id", s.id), zap.Error(err))
		return false
	}
	s.resetSelection()
	s.clocks.StopAll()
	if s.cfg.Timed() && s.rules.PlyCount() > clockGracePlies {
		s.clocks.Side(s.rules.SideToMove()).Start()
	}
	s.view.Render(s.rules.Snapshot())
	s.showClocks()
	s.log.Info("session_undo", zap.String("session_id", s.id), zap.Int("ply", s.rules.PlyCount()))
	return true
}

func (s *Session) Flip() {
	s.flipped = !s.flipped
	s.view.SetFlipped(s.flipped)
	s.view.Render(s.rules.Snapshot())
}

func (s *Session) Flipped() bool { return s.flipped }

// Reset discards the board, clocks and any pending promotion and starts over
// with the same configuration.
func (s *Session) Reset() error {
	s.clocks.StopAll()
	return s.start()
}

// Close stops both clocks; the session must not be used afterwards.
func (s *Session) Close() {
	s.clocks.StopAll()
}

func (s *Session) Snapshot() Snapshot {
	sel := s.sel
	sel.Destinations = append([]domain.Square(nil), s.sel.Destinations...)
	sel.Captures = append([]domain.Square(nil), s.sel.Captures...)
	return Snapshot{
		ID:         s.id,
		Config:     s.cfg,
		Position:   s.rules.Snapshot(),
		Selection:  sel,
		Result:     s.result,
		White:      s.clocks.White().State(),
		Black:      s.clocks.Black().State(),
		Flipped:    s.flipped,
		ArmyBudget: s.budget,
	}
}

func (s *Session) resetSelection() {
	s.sel = Selection{Kind: Idle}
	s.clearHighlights()
}

func (s *Session) clearHighlights() {
	s.view.HighlightSelection(nil)
	s.view.HighlightLegalDestinations(nil, nil)
}

func (s *Session) showClocks() {
	s.view.ShowClock(domain.White, s.clocks.White().RemainingMs())
	s.view.ShowClock(domain.Black, s.clocks.Black().RemainingMs())
}

func containsSquare(list []domain.Square, sq domain.Square) bool {
	for _, v := range list {
		if v == sq {
			return true
		}
	}
	return false
}
