package clock

import (
	"time"

	"github.com/park285/Cheese-LocalChess/internal/domain"
)

// TickInterval is the cadence of remaining-time reports while a clock runs.
const TickInterval = time.Second

type Timer interface {
	Stop() bool
}

// Scheduler runs fn once after d. Callbacks must be delivered on the goroutine
// that owns the clocks; Clock and Pair are not safe for concurrent use.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool { return r.t.Stop() }

// RealScheduler fires callbacks on their own goroutines via time.AfterFunc.
type RealScheduler struct{}

func (RealScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{t: time.AfterFunc(d, fn)}
}

type Config struct {
	Scheduler Scheduler
	Now       func() time.Time
	OnTick    func(side domain.Side, remainingMs int64)
	OnTimeout func(side domain.Side)
}

func (c Config) withDefaults() Config {
	if c.Scheduler == nil {
		c.Scheduler = RealScheduler{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Clock counts one side's remaining time down while running.
type Clock struct {
	side      domain.Side
	cfg       Config
	remaining time.Duration
	running   bool
	startedAt time.Time
	timer     Timer
	gen       uint64
}

func New(side domain.Side, remainingMs int64, cfg Config) *Clock {
	return &Clock{
		side:      side,
		cfg:       cfg.withDefaults(),
		remaining: time.Duration(remainingMs) * time.Millisecond,
	}
}

func (c *Clock) Side() domain.Side { return c.side }

func (c *Clock) Running() bool { return c.running }

// RemainingMs includes time elapsed since the last tick when running.
func (c *Clock) RemainingMs() int64 {
	rem := c.remaining
	if c.running {
		rem -= c.cfg.Now().Sub(c.startedAt)
	}
	if rem < 0 {
		rem = 0
	}
	return rem.Milliseconds()
}

func (c *Clock) State() domain.ClockState {
	return domain.ClockState{RemainingMs: c.RemainingMs(), Running: c.running}
}

// Start begins counting down. A clock already at zero times out on the next callback.
func (c *Clock) Start() {
	if c.running {
		return
	}
	c.running = true
	c.startedAt = c.cfg.Now()
	c.gen++
	c.schedule(c.gen)
}

// Stop deducts the elapsed time and halts the countdown. It never reports a timeout.
func (c *Clock) Stop() {
	if !c.running {
		return
	}
	c.settle()
	c.halt()
	if c.remaining < 0 {
		c.remaining = 0
	}
}

func (c *Clock) Reset(toMs int64) {
	c.halt()
	c.remaining = time.Duration(toMs) * time.Millisecond
}

func (c *Clock) AddIncrement(ms int64) {
	if ms <= 0 {
		return
	}
	c.remaining += time.Duration(ms) * time.Millisecond
}

func (c *Clock) halt() {
	c.running = false
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Clock) settle() {
	now := c.cfg.Now()
	c.remaining -= now.Sub(c.startedAt)
	c.startedAt = now
}

func (c *Clock) schedule(gen uint64) {
	d := TickInterval
	if c.remaining < d {
		d = c.remaining
	}
	if d < 0 {
		d = 0
	}
	c.timer = c.cfg.Scheduler.AfterFunc(d, func() { c.fire(gen) })
}

// fire ignores callbacks from timers that were stopped or replaced.
func (c *Clock) fire(gen uint64) {
	if gen != c.gen || !c.running {
		return
	}
	c.settle()
	if c.remaining <= 0 {
		c.remaining = 0
		c.halt()
		if c.cfg.OnTick != nil {
			c.cfg.OnTick(c.side, 0)
		}
		if c.cfg.OnTimeout != nil {
			c.cfg.OnTimeout(c.side)
		}
		return
	}
	if c.cfg.OnTick != nil {
		c.cfg.OnTick(c.side, c.remaining.Milliseconds())
	}
	if gen == c.gen && c.running {
		c.schedule(gen)
	}
}

// Pair holds one clock per side. It does not enforce that only one runs;
// callers stop one side before starting the other.
type Pair struct {
	clocks [2]*Clock
}

func NewPair(baseMs int64, cfg Config) *Pair {
	return &Pair{clocks: [2]*Clock{
		New(domain.White, baseMs, cfg),
		New(domain.Black, baseMs, cfg),
	}}
}

func (p *Pair) Side(s domain.Side) *Clock {
	if s == domain.Black {
		return p.clocks[1]
	}
	return p.clocks[0]
}

func (p *Pair) White() *Clock { return p.clocks[0] }

func (p *Pair) Black() *Clock { return p.clocks[1] }

func (p *Pair) StopAll() {
	for _, c := range p.clocks {
		c.Stop()
	}
}

func (p *Pair) Reset(toMs int64) {
	for _, c := range p.clocks {
		c.Reset(toMs)
	}
}

// Running counts sides whose clock is running.
func (p *Pair) Running() int {
	n := 0
	for _, c := range p.clocks {
		if c.running {
			n++
		}
	}
	return n
}
