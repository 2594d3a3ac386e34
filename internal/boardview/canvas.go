package boardview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/park285/Cheese-LocalChess/internal/adapter/chesspresenter"
	"github.com/park285/Cheese-LocalChess/internal/domain"
)

const DefaultSquareSize = 72

// Canvas keeps the latest render instructions and paints them on demand.
// It is safe for concurrent use; the session writes while transports read PNGs.
type Canvas struct {
	mu        sync.RWMutex
	geo       Geometry
	margin    int
	panel     int
	pos       domain.Position
	selection *domain.Square
	dests     []domain.Square
	captures  []domain.Square
	clocks    [2]int64
}

func NewCanvas(squareSize int) *Canvas {
	if squareSize <= 0 {
		squareSize = DefaultSquareSize
	}
	margin := squareSize / 2
	panel := squareSize * 2 / 3
	return &Canvas{
		geo: Geometry{
			SquareSize: squareSize,
			Origin:     image.Pt(margin, margin+panel),
		},
		margin: margin,
		panel:  panel,
	}
}

func (c *Canvas) Render(pos domain.Position) {
	c.mu.Lock()
	c.pos = pos
	c.mu.Unlock()
}

func (c *Canvas) HighlightSelection(sq *domain.Square) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sq == nil {
		c.selection = nil
		return
	}
	v := *sq
	c.selection = &v
}

func (c *Canvas) HighlightLegalDestinations(dests, captures []domain.Square) {
	c.mu.Lock()
	c.dests = append([]domain.Square(nil), dests...)
	c.captures = append([]domain.Square(nil), captures...)
	c.mu.Unlock()
}

func (c *Canvas) ShowClock(side domain.Side, remainingMs int64) {
	c.mu.Lock()
	c.clocks[side] = remainingMs
	c.mu.Unlock()
}

func (c *Canvas) SetFlipped(flipped bool) {
	c.mu.Lock()
	c.geo.Flipped = flipped
	c.mu.Unlock()
}

// SquareAt hit-tests pixel coordinates of the PNG produced by this canvas.
func (c *Canvas) SquareAt(x, y int) (domain.Square, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.geo.SquareAt(x, y)
}

func (c *Canvas) Geometry() Geometry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.geo
}

// Size is the full image size including margins and clock panels.
func (c *Canvas) Size() image.Point {
	board := c.geo.SquareSize * boardSquares
	return image.Pt(board+c.margin*2, board+(c.margin+c.panel)*2)
}

type frame struct {
	geo       Geometry
	margin    int
	panel     int
	pos       domain.Position
	selection *domain.Square
	dests     []domain.Square
	captures  []domain.Square
	clocks    [2]string
}

func (c *Canvas) frame() frame {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return frame{
		geo:       c.geo,
		margin:    c.margin,
		panel:     c.panel,
		pos:       c.pos,
		selection: c.selection,
		dests:     append([]domain.Square(nil), c.dests...),
		captures:  append([]domain.Square(nil), c.captures...),
		clocks: [2]string{
			chesspresenter.FormatClock(c.clocks[domain.White]),
			chesspresenter.FormatClock(c.clocks[domain.Black]),
		},
	}
}

func (c *Canvas) PNG(ctx context.Context) ([]byte, error) {
	f := c.frame()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rectangle{Max: c.Size()})
	fillBackground(img)
	drawClockPanels(img, f)
	drawSquares(img, f.geo)
	drawLastMove(img, f)
	if f.selection != nil {
		drawSquareOverlay(img, f.geo.Rect(*f.selection), selectionColor)
	}
	if f.pos.Check != nil {
		if err := drawMarker(img, f.geo, *f.pos.Check, markerCheck); err != nil {
			return nil, err
		}
	}
	drawPieces(img, f)
	if err := drawDestinations(img, f); err != nil {
		return nil, err
	}
	drawCoordinates(img, f.geo, f.margin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
