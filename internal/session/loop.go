package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/park285/Cheese-LocalChess/internal/clock"
)

var ErrLoopClosed = errors.New("session loop closed")

// Loop runs posted closures one at a time on a single goroutine. Clock timers
// created through AfterFunc post back onto the loop, so ticks never interleave
// with input handling.
type Loop struct {
	events    chan func()
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	after     func()
}

// NewLoop starts the loop goroutine. after, when set, runs following every event.
func NewLoop(buffer int, after func()) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	l := &Loop{
		events: make(chan func(), buffer),
		done:   make(chan struct{}),
		after:  after,
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.done:
			return
		case fn := <-l.events:
			fn()
			if l.after != nil {
				l.after()
			}
		}
	}
}

// Post queues fn without waiting. It reports false once the loop is closed.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- fn:
		return true
	case <-l.done:
		return false
	}
}

const (
	callQueued int32 = iota
	callRunning
	callAbandoned
)

// Do runs fn on the loop and waits for it. It must not be called from the loop itself.
// When ctx ends or the loop closes before fn starts, fn is skipped; once fn has
// started, Do waits for it and reports success.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	var state atomic.Int32
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		if !state.CompareAndSwap(callQueued, callRunning) {
			return
		}
		fn()
	}) {
		return ErrLoopClosed
	}
	var stopErr error
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		stopErr = ctx.Err()
	case <-l.done:
		stopErr = ErrLoopClosed
	}
	if state.CompareAndSwap(callQueued, callAbandoned) {
		return stopErr
	}
	<-finished
	return nil
}

type loopTimer struct{ t *time.Timer }

func (lt loopTimer) Stop() bool { return lt.t.Stop() }

// AfterFunc implements clock.Scheduler by delivering fn on the loop.
func (l *Loop) AfterFunc(d time.Duration, fn func()) clock.Timer {
	return loopTimer{t: time.AfterFunc(d, func() { l.Post(fn) })}
}

func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
	l.wg.Wait()
}
