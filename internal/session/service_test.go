package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/Cheese-LocalChess/internal/chess"
	"github.com/park285/Cheese-LocalChess/internal/domain"
)

type fixedHit map[[2]int]domain.Square

func (f fixedHit) SquareAt(x, y int) (domain.Square, bool) {
	sq, ok := f[[2]int{x, y}]
	return sq, ok
}

func newTestService(t *testing.T, onChange func(Snapshot)) *Service {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	svc, err := NewService(ctx, ServiceOptions{
		Session: Options{
			Config:   fiveMinutes,
			NewRules: func() Rules { return chess.NewEngine() },
			Army:     chess.NewArmyGenerator(),
		},
		Hit: fixedHit{
			{10, 10}: domain.MustSquare("e2"),
			{10, 20}: domain.MustSquare("e4"),
		},
		OnChange: onChange,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

func TestLoopRunsInOrder(t *testing.T) {
	var afters atomic.Int32
	l := NewLoop(4, func() { afters.Add(1) })
	defer l.Close()
	var got []int
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if !l.Post(func() { got = append(got, i) }) {
			t.Fatalf("Post rejected")
		}
	}
	if err := l.Do(ctx, func() {}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(got) != 3 || got[0] != 0 || got[2] != 2 {
		t.Fatalf("order = %v", got)
	}
	if afters.Load() < 3 {
		t.Fatalf("after hook ran %d times", afters.Load())
	}
}

func TestLoopAfterFuncPostsOntoLoop(t *testing.T) {
	l := NewLoop(4, nil)
	defer l.Close()
	fired := make(chan struct{})
	l.AfterFunc(10*time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer callback never ran")
	}
	stopped := l.AfterFunc(time.Hour, func() {})
	if !stopped.Stop() {
		t.Fatalf("Stop on pending timer should report true")
	}
}

func TestLoopClosed(t *testing.T) {
	l := NewLoop(1, nil)
	l.Close()
	l.Close()
	if l.Post(func() {}) {
		t.Fatalf("Post after Close accepted")
	}
	if err := l.Do(context.Background(), func() {}); !errors.Is(err, ErrLoopClosed) {
		t.Fatalf("Do after Close: %v", err)
	}
}

func TestLoopSkipsCallAfterDeadline(t *testing.T) {
	l := NewLoop(4, nil)
	defer l.Close()
	release := make(chan struct{})
	l.Post(func() { <-release })

	var ran atomic.Bool
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Do(ctx, func() { ran.Store(true) }); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Do = %v, want deadline exceeded", err)
	}
	close(release)
	if err := l.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if ran.Load() {
		t.Fatalf("timed-out call still ran")
	}
}

func TestServiceDropsTimedOutCommand(t *testing.T) {
	svc := newTestService(t, nil)
	release := make(chan struct{})
	svc.loop.Post(func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := svc.Activate(ctx, domain.MustSquare("e2")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Activate = %v, want deadline exceeded", err)
	}
	close(release)
	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Selection.Kind != Idle {
		t.Fatalf("timed-out activate was applied: %v", snap.Selection.Kind)
	}
}

func TestServicePlaysMoves(t *testing.T) {
	var changes atomic.Int32
	svc := newTestService(t, func(Snapshot) { changes.Add(1) })
	ctx := context.Background()

	snap, err := svc.Tap(ctx, 10, 10)
	if err != nil {
		t.Fatalf("Tap: %v", err)
	}
	if snap.Selection.Kind != Selected || len(snap.Selection.Destinations) != 2 {
		t.Fatalf("selection = %+v", snap.Selection)
	}
	snap, err = svc.Tap(ctx, 10, 20)
	if err != nil {
		t.Fatalf("Tap: %v", err)
	}
	if snap.Position.Ply != 1 || snap.Selection.Kind != Idle {
		t.Fatalf("after e2e4: ply=%d state=%v", snap.Position.Ply, snap.Selection.Kind)
	}
	if _, err := svc.Tap(ctx, 500, 500); err != nil {
		t.Fatalf("Tap miss: %v", err)
	}

	snap, err = svc.Activate(ctx, domain.MustSquare("e7"))
	if err != nil || snap.Selection.Kind != Selected {
		t.Fatalf("Activate: %v %+v", err, snap.Selection)
	}
	snap, _ = svc.Activate(ctx, domain.MustSquare("e5"))
	if snap.Position.Ply != 2 {
		t.Fatalf("ply = %d", snap.Position.Ply)
	}
	snap, _ = svc.Undo(ctx)
	if snap.Position.Ply != 1 {
		t.Fatalf("undo ply = %d", snap.Position.Ply)
	}
	snap, _ = svc.Flip(ctx)
	if !snap.Flipped {
		t.Fatalf("flip not reflected")
	}
	if changes.Load() < 6 {
		t.Fatalf("OnChange ran %d times", changes.Load())
	}
}

func TestServiceNewGameAndReset(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	first, _ := svc.Snapshot(ctx)

	if _, err := svc.NewGame(ctx, domain.SessionConfig{Mode: 9}); err == nil {
		t.Fatalf("expected invalid mode error")
	}
	svc.Flip(ctx)
	snap, err := svc.NewGame(ctx, domain.SessionConfig{Mode: domain.RandomArmy, BaseTimeMs: 60000, IncrementMs: 1000})
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if snap.ID == first.ID || snap.Config.Mode != domain.RandomArmy || snap.ArmyBudget == 0 {
		t.Fatalf("new game snapshot = %+v", snap)
	}
	if !snap.Flipped {
		t.Fatalf("orientation should survive a new game")
	}

	svc.Activate(ctx, domain.MustSquare("e2"))
	svc.Activate(ctx, domain.MustSquare("e4"))
	snap, err = svc.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if snap.Position.Ply != 0 || snap.Config.IncrementMs != 1000 {
		t.Fatalf("reset snapshot = %+v", snap)
	}
}

func TestServiceClosed(t *testing.T) {
	svc := newTestService(t, nil)
	svc.Close()
	if _, err := svc.Snapshot(context.Background()); !errors.Is(err, ErrLoopClosed) {
		t.Fatalf("Snapshot after Close: %v", err)
	}
}
