package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/park285/Cheese-LocalChess/internal/domain"
	"github.com/park285/Cheese-LocalChess/internal/obslog"
)

// Service owns the loop and the current session. Every method runs on the
// loop and returns the snapshot taken right after the event.
type Service struct {
	loop     *Loop
	opts     Options
	hit      HitTester
	onChange func(Snapshot)
	log      *zap.Logger

	sess *Session
}

type ServiceOptions struct {
	Session  Options
	Hit      HitTester
	OnChange func(Snapshot)
}

func NewService(ctx context.Context, so ServiceOptions) (*Service, error) {
	svc := &Service{
		opts:     so.Session,
		hit:      so.Hit,
		onChange: so.OnChange,
		log:      so.Session.Logger,
	}
	if svc.log == nil {
		svc.log = obslog.L()
	}
	svc.loop = NewLoop(64, svc.publish)
	svc.opts.Scheduler = svc.loop

	var err error
	if doErr := svc.loop.Do(ctx, func() { svc.sess, err = New(svc.opts) }); doErr != nil {
		svc.loop.Close()
		return nil, doErr
	}
	if err != nil {
		svc.loop.Close()
		return nil, err
	}
	return svc, nil
}

func (svc *Service) publish() {
	if svc.onChange == nil || svc.sess == nil {
		return
	}
	svc.onChange(svc.sess.Snapshot())
}

func (svc *Service) exec(ctx context.Context, fn func(*Session)) (Snapshot, error) {
	var snap Snapshot
	err := svc.loop.Do(ctx, func() {
		fn(svc.sess)
		snap = svc.sess.Snapshot()
	})
	return snap, err
}

func (svc *Service) Activate(ctx context.Context, sq domain.Square) (Snapshot, error) {
	return svc.exec(ctx, func(s *Session) { s.Activate(sq) })
}

// Tap maps pointer coordinates through the hit tester. Misses are ignored.
func (svc *Service) Tap(ctx context.Context, x, y int) (Snapshot, error) {
	return svc.exec(ctx, func(s *Session) {
		if svc.hit == nil {
			return
		}
		if sq, ok := svc.hit.SquareAt(x, y); ok {
			s.Activate(sq)
		}
	})
}

func (svc *Service) Promote(ctx context.Context, kind domain.PieceKind) (Snapshot, error) {
	return svc.exec(ctx, func(s *Session) { s.ChoosePromotion(kind) })
}

func (svc *Service) CancelPromotion(ctx context.Context) (Snapshot, error) {
	return svc.exec(ctx, func(s *Session) { s.CancelPromotion() })
}

func (svc *Service) Undo(ctx context.Context) (Snapshot, error) {
	return svc.exec(ctx, func(s *Session) { s.Undo() })
}

func (svc *Service) Flip(ctx context.Context) (Snapshot, error) {
	return svc.exec(ctx, func(s *Session) { s.Flip() })
}

func (svc *Service) Reset(ctx context.Context) (Snapshot, error) {
	var resetErr error
	snap, err := svc.exec(ctx, func(s *Session) { resetErr = s.Reset() })
	if err != nil {
		return snap, err
	}
	return snap, resetErr
}

// NewGame replaces the current session with one using cfg.
func (svc *Service) NewGame(ctx context.Context, cfg domain.SessionConfig) (Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	var newErr error
	err := svc.loop.Do(ctx, func() {
		opts := svc.opts
		opts.Config = cfg
		next, err := New(opts)
		if err != nil {
			newErr = err
			snap = svc.sess.Snapshot()
			return
		}
		prev := svc.sess
		flipped := prev.Flipped()
		prev.Close()
		svc.sess = next
		if flipped {
			next.Flip()
		}
		svc.opts = opts
		snap = next.Snapshot()
	})
	if err != nil {
		return snap, err
	}
	return snap, newErr
}

func (svc *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	return svc.exec(ctx, func(*Session) {})
}

func (svc *Service) Close() {
	err := svc.loop.Do(context.Background(), func() {
		if svc.sess != nil {
			svc.sess.Close()
		}
	})
	if err != nil {
		svc.log.Debug("session_service_already_closed", zap.Error(err))
	}
	svc.loop.Close()
}
