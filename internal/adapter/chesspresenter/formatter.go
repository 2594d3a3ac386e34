package chesspresenter

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/Cheese-LocalChess/internal/domain"
	"github.com/park285/Cheese-LocalChess/internal/msgcat"
	"github.com/park285/Cheese-LocalChess/internal/obslog"
)

// Formatter renders results, promotion prompts and clocks into display text.
type Formatter struct {
	cat *msgcat.Catalog
}

// NewFormatter uses the embedded English catalog when cat is nil.
func NewFormatter(cat *msgcat.Catalog) *Formatter {
	if cat == nil {
		cat = msgcat.MustDefault()
	}
	return &Formatter{cat: cat}
}

// Result returns the dialog title and message for a terminal result.
func (f *Formatter) Result(r domain.GameResult) (title, message string) {
	switch r.Status {
	case domain.Checkmate:
		return f.render("result.title.victory", nil, "Victory!"),
			f.render("result.checkmate", map[string]string{"Winner": r.Winner.String()},
				fmt.Sprintf("%s wins! Checkmate!", r.Winner))
	case domain.Timeout:
		data := map[string]string{"Winner": r.Winner.String(), "Loser": r.Winner.Other().String()}
		return f.render("result.title.victory", nil, "Victory!"),
			f.render("result.timeout", data, fmt.Sprintf("%s wins! %s ran out of time!", r.Winner, r.Winner.Other()))
	case domain.Draw:
		return f.render("result.title.draw", nil, "Draw!"),
			f.render("result.draw."+r.Reason.String(), nil, "Draw!")
	default:
		return "", ""
	}
}

// Promotion returns the dialog title, prompt and the four choices in display order.
func (f *Formatter) Promotion(side domain.Side) (title, prompt string, options []string) {
	options = make([]string, 0, len(domain.PromotionChoices))
	for _, k := range domain.PromotionChoices {
		options = append(options, capitalize(k.String()))
	}
	title = f.render("promotion.title", nil, "Choose promotion piece")
	prompt = f.render("promotion.prompt",
		map[string]string{"Side": side.String(), "Options": strings.Join(options, ", ")},
		title)
	return title, prompt, options
}

// ClockLabel is the panel text for one side, e.g. "White 04:59".
func (f *Formatter) ClockLabel(side domain.Side, remainingMs int64) string {
	clock := FormatClock(remainingMs)
	return f.render("clock.label", map[string]string{"Side": side.String(), "Clock": clock}, side.String()+" "+clock)
}

func (f *Formatter) render(key string, data any, fallback string) string {
	if f == nil || f.cat == nil {
		return fallback
	}
	text, err := f.cat.Render(key, data)
	if err != nil {
		obslog.L().Warn("message_render_error", zap.String("key", key), zap.Error(err))
		return fallback
	}
	return text
}

// FormatClock renders remaining milliseconds as MM:SS, rounding down to whole seconds.
func FormatClock(remainingMs int64) string {
	if remainingMs < 0 {
		remainingMs = 0
	}
	seconds := remainingMs / 1000
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
