package chesspresenter

import (
	"sync"

	"go.uber.org/zap"

	"github.com/park285/Cheese-LocalChess/internal/domain"
	"github.com/park285/Cheese-LocalChess/internal/obslog"
)

type NoticeKind string

const (
	NoticePromotion NoticeKind = "promotion"
	NoticeResult    NoticeKind = "result"
)

// Notice is a dialog raised by the session.
type Notice struct {
	Kind    NoticeKind
	Title   string
	Message string
	Options []string
	Side    domain.Side
	Result  domain.GameResult
}

// Presenter turns session notifications into Notices and keeps the latest one.
// The promotion answer arrives separately through Service.Promote.
type Presenter struct {
	mu      sync.RWMutex
	fmt     *Formatter
	current *Notice
	deliver func(Notice)
}

// NewPresenter wires an optional deliver callback invoked for every notice.
func NewPresenter(f *Formatter, deliver func(Notice)) *Presenter {
	if f == nil {
		f = NewFormatter(nil)
	}
	return &Presenter{fmt: f, deliver: deliver}
}

func (p *Presenter) RequestPromotionChoice(side domain.Side) {
	title, prompt, options := p.fmt.Promotion(side)
	p.set(Notice{
		Kind:    NoticePromotion,
		Title:   title,
		Message: prompt,
		Options: options,
		Side:    side,
	})
}

func (p *Presenter) AnnounceResult(result domain.GameResult) {
	title, message := p.fmt.Result(result)
	obslog.L().Info("result_announced",
		zap.String("result", result.String()),
		zap.String("message", message),
	)
	p.set(Notice{
		Kind:    NoticeResult,
		Title:   title,
		Message: message,
		Result:  result,
	})
}

func (p *Presenter) set(n Notice) {
	p.mu.Lock()
	p.current = &n
	deliver := p.deliver
	p.mu.Unlock()
	if deliver != nil {
		deliver(n)
	}
}

// Current returns the most recent notice.
func (p *Presenter) Current() (Notice, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return Notice{}, false
	}
	n := *p.current
	n.Options = append([]string(nil), p.current.Options...)
	return n, true
}

func (p *Presenter) Clear() {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
}
