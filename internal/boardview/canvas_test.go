package boardview

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/park285/Cheese-LocalChess/internal/chess"
	"github.com/park285/Cheese-LocalChess/internal/domain"
)

func TestGeometryRoundTrip(t *testing.T) {
	for _, flipped := range []bool{false, true} {
		geo := Geometry{SquareSize: 40, Origin: image.Pt(10, 30), Flipped: flipped}
		for rank := 0; rank < 8; rank++ {
			for file := 0; file < 8; file++ {
				sq := domain.NewSquare(file, rank)
				c := geo.Center(sq)
				got, ok := geo.SquareAt(c.X, c.Y)
				if !ok || got != sq {
					t.Fatalf("flipped=%v: SquareAt(Center(%s)) = %s, %v", flipped, sq, got, ok)
				}
			}
		}
	}
}

func TestGeometryTopLeftCorner(t *testing.T) {
	geo := Geometry{SquareSize: 40, Origin: image.Pt(10, 30)}
	sq, ok := geo.SquareAt(11, 31)
	if !ok || sq != domain.MustSquare("a8") {
		t.Fatalf("top-left = %s, want a8", sq)
	}
	geo.Flipped = true
	sq, ok = geo.SquareAt(11, 31)
	if !ok || sq != domain.MustSquare("h1") {
		t.Fatalf("flipped top-left = %s, want h1", sq)
	}
}

func TestGeometryOutsideBoard(t *testing.T) {
	geo := Geometry{SquareSize: 40, Origin: image.Pt(10, 30)}
	for _, p := range []image.Point{{9, 31}, {11, 29}, {10 + 320, 40}, {20, 30 + 320}} {
		if _, ok := geo.SquareAt(p.X, p.Y); ok {
			t.Fatalf("point %v should be outside the board", p)
		}
	}
	if _, ok := (Geometry{}).SquareAt(0, 0); ok {
		t.Fatalf("zero geometry must not hit any square")
	}
}

func renderStart(t *testing.T, c *Canvas) {
	t.Helper()
	e := chess.NewEngine()
	if err := e.ApplyMove(domain.MustMove("e2e4")); err != nil {
		t.Fatalf("apply e2e4: %v", err)
	}
	c.Render(e.Snapshot())
	sel := domain.MustSquare("g8")
	c.HighlightSelection(&sel)
	c.HighlightLegalDestinations(
		[]domain.Square{domain.MustSquare("f6"), domain.MustSquare("h6")},
		nil,
	)
	c.ShowClock(domain.White, 300000)
	c.ShowClock(domain.Black, 61500)
}

func TestCanvasPNGDecodes(t *testing.T) {
	c := NewCanvas(32)
	renderStart(t, c)

	data, err := c.PNG(context.Background())
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got, want := img.Bounds().Size(), c.Size(); got != want {
		t.Fatalf("size = %v, want %v", got, want)
	}
}

func TestCanvasFlipChangesImageAndHitTest(t *testing.T) {
	c := NewCanvas(32)
	renderStart(t, c)

	normal, err := c.PNG(context.Background())
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	center := c.Geometry().Center(domain.MustSquare("e2"))

	c.SetFlipped(true)
	flipped, err := c.PNG(context.Background())
	if err != nil {
		t.Fatalf("PNG flipped: %v", err)
	}
	if bytes.Equal(normal, flipped) {
		t.Fatalf("flipped render should differ")
	}
	sq, ok := c.SquareAt(center.X, center.Y)
	if !ok || sq != domain.MustSquare("d7") {
		t.Fatalf("after flip the e2 pixel maps to %s, want d7", sq)
	}
}

func TestCanvasHonoursContext(t *testing.T) {
	c := NewCanvas(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.PNG(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if c.Geometry().SquareSize != DefaultSquareSize {
		t.Fatalf("default square size not applied")
	}
}

func TestMarkerImagesRasterise(t *testing.T) {
	for _, m := range []marker{markerDot, markerRing, markerCheck} {
		img, err := markerImage(m, 24)
		if err != nil {
			t.Fatalf("marker %s: %v", m, err)
		}
		if img.Bounds().Dx() != 24 {
			t.Fatalf("marker %s width = %d", m, img.Bounds().Dx())
		}
	}
}
